package csp

import (
	"sync"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// winner is whatever resolved a statement: an operation, or a default case.
type winner interface {
	fire() error
	caseKind() CaseKind
}

var statementSeq atomic.Uint64

// statement is the state of one Select call.
//
// mu is the resolution gate.  It's only ever acquired while holding at most one
// channel lock, never the other way around; when a pairing involves two
// statements, both gates are taken in ascending id order (see commit).
type statement struct {
	id uint64

	mu       sync.Mutex
	cond     *sync.Cond
	resolved atomic.Bool // Set exactly once, under mu.  Readable without mu for the "is this operation dead?" check.
	winner   winner      // The operation that resolved us.  Nil if we were sealed without a winner.
	failure  error       // Secondary completion: a reason to give up, honored only if nobody wins first.

	hasDefault bool
	fallback   winner
	misuse     error
	cleanups   []func()
	finalizers []func()
	finalizing bool // Set under mu once finish has taken the finalizers.  Later ones run right away.

	finishOnce sync.Once
	finished   atomic.Bool // After this, Contexts carrying this statement act as if they carried none.
}

func newStatement() *statement {
	s := &statement{id: statementSeq.Inc()}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// resolveLocked records w as the winner.  The gate must be held and the statement unresolved.
func (s *statement) resolveLocked(w winner) {
	s.winner = w
	s.resolved.Store(true)
	s.cond.Broadcast()
}

// tryWin resolves the statement with w if nobody has yet, running fn first
// (while the gate is held) to put the operation into its final state.
// Returns false if the statement was already resolved, in which case fn isn't called.
func (s *statement) tryWin(w winner, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved.Load() {
		return false
	}
	fn()
	s.resolveLocked(w)
	return true
}

// fail offers a reason to give up.  Only the first failure is kept,
// and it's ignored entirely if the statement is already resolved.
func (s *statement) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved.Load() || s.failure != nil {
		return
	}
	s.failure = err
	s.cond.Broadcast()
}

// register records how to pull an operation back out of its channel if it loses.
// Returns false if the statement is already resolved; the operation then shouldn't be queued at all.
func (s *statement) register(cleanup func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved.Load() {
		return false
	}
	s.cleanups = append(s.cleanups, cleanup)
	return true
}

// addFinalizer arranges for fn to run when the statement finishes,
// or runs it now if the statement already has.
func (s *statement) addFinalizer(fn func()) {
	s.mu.Lock()
	if s.finalizing {
		s.mu.Unlock()
		fn()
		return
	}
	s.finalizers = append(s.finalizers, fn)
	s.mu.Unlock()
}

// applyDefault lets a registered default case win, if nothing else has.
func (s *statement) applyDefault() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fallback == nil || s.resolved.Load() {
		return
	}
	s.resolveLocked(s.fallback)
}

// await blocks until the statement is resolved or has failed, then seals it:
// after await returns, no operation can win anymore.
func (s *statement) await() (winner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for !s.resolved.Load() && s.failure == nil {
		s.cond.Wait()
	}
	s.resolved.Store(true)
	return s.winner, s.failure
}

// finish seals the statement, pulls every operation that didn't win out of its channel,
// runs finalizers, and stops intercepting channel operations.
// It's safe to call repeatedly; only the first call does anything.
func (s *statement) finish() {
	s.finishOnce.Do(func() {
		s.mu.Lock()
		s.resolved.Store(true)
		cleanups, finalizers := s.cleanups, s.finalizers
		s.cleanups, s.finalizers = nil, nil
		s.finalizing = true
		s.mu.Unlock()

		for _, fn := range cleanups {
			fn()
		}
		for _, fn := range finalizers {
			fn()
		}
		s.finished.Store(true)
		log().WithFields(logrus.Fields{
			"statement": s.id,
			"cleanups":  len(cleanups),
		}).Trace("select statement finished")
	})
}

// commit is the two-phase commit for pairing a receive with a push.
// Either statement may be nil (a direct operation, or a push that's already buffered and needs nobody's permission).
// Both gates are acquired in ascending id order, both are checked, and fn runs only if both are still unresolved.
// The return values say which side, if any, was already resolved.
func commit(recv, push *statement, fn func()) (recvOK, pushOK bool) {
	if recv != nil && recv == push {
		return false, false
	}
	first, second := recv, push
	if first == nil || (second != nil && second.id < first.id) {
		first, second = second, first
	}
	if first != nil {
		first.mu.Lock()
		defer first.mu.Unlock()
	}
	if second != nil {
		second.mu.Lock()
		defer second.mu.Unlock()
	}
	recvOK = recv == nil || !recv.resolved.Load()
	pushOK = push == nil || !push.resolved.Load()
	if recvOK && pushOK {
		fn()
	}
	return
}
