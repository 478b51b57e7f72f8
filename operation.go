package csp

import (
	"sync"
)

type opKind uint8

const (
	opKind_push    opKind = iota + 1 // Offers a message.
	opKind_receive                   // Wants a message.
)

type opState uint8

const (
	opState_pending   opState = iota // Queued; nothing has happened to it yet.
	opState_signaled                 // Woken without success, so the waiter re-checks everything (e.g. its context was cancelled).
	opState_completed                // Message transferred (or buffered, for a push).  Terminal.
	opState_closed                   // The channel closed underneath it.  Terminal.
)

// CaseKind says which kind of case produced an Outcome.
type CaseKind uint8

const (
	CaseKind_Push    CaseKind = iota + 1 // A push completed.  Outcome.Value is the message that was pushed.
	CaseKind_Receive                     // A receive completed.  Check Outcome.Ok to see if a message actually arrived.
	CaseKind_Default                     // Nothing else was ready.
	CaseKind_Timeout                     // The timeout elapsed.
)

func (k CaseKind) String() string {
	switch k {
	case CaseKind_Push:
		return "push"
	case CaseKind_Receive:
		return "receive"
	case CaseKind_Default:
		return "default"
	case CaseKind_Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Outcome is what a completion callback receives.
//
// Ok is true if the message came from a channel that was open when the message was produced.
// A receive that completed only because its channel closed has Ok false and a zero Value.
type Outcome[T any] struct {
	Value T
	Ok    bool
	Case  CaseKind
}

// operation is one pending push or receive.
//
// All mutable fields are guarded by the mutex of the channel the operation is queued on.
// stmt is set at construction and never changes, so it may be read without that lock.
type operation[T any] struct {
	kind  opKind
	msg   T
	state opState
	stmt  *statement
	then  func(Outcome[T]) error
	cond  *sync.Cond
	as    CaseKind // Overrides the reported case kind; zero means derive it from kind.
}

func newOperation[T any](kind opKind, lk sync.Locker, stmt *statement, msg T, then func(Outcome[T]) error) *operation[T] {
	return &operation[T]{
		kind: kind,
		msg:  msg,
		stmt: stmt,
		then: then,
		cond: sync.NewCond(lk),
	}
}

// wait parks the calling goroutine until someone wakes this operation.
// The channel lock must be held; it's released while parked and held again on return.
// Callers loop and re-examine state, since a wake doesn't imply success.
func (op *operation[T]) wait() {
	op.cond.Wait()
}

func (op *operation[T]) signal() {
	if op.state == opState_pending {
		op.state = opState_signaled
	}
	op.cond.Signal()
}

func (op *operation[T]) complete() {
	op.state = opState_completed
	op.cond.Signal()
}

func (op *operation[T]) close() {
	op.state = opState_closed
	op.cond.Signal()
}

func (op *operation[T]) incomplete() bool {
	return op.state != opState_completed
}

// dead reports whether the operation can never complete:
// it belongs to a select statement that some other operation already won.
// Dead operations are dropped from queues whenever a channel comes across them.
func (op *operation[T]) dead() bool {
	return op.stmt != nil && op.incomplete() && op.stmt.resolved.Load()
}

// outcome describes how the operation ended, for handing to its callback.
func (op *operation[T]) outcome() Outcome[T] {
	switch op.kind {
	case opKind_push:
		return Outcome[T]{Value: op.msg, Ok: true, Case: op.caseKind()}
	default:
		return Outcome[T]{Value: op.msg, Ok: op.state == opState_completed, Case: op.caseKind()}
	}
}

// fire runs the completion callback, if there is one.
// It's called by Select for a winning operation,
// or directly after a blocking Push or Receive returns.
func (op *operation[T]) fire() error {
	if op.then == nil {
		return nil
	}
	return op.then(op.outcome())
}

func (op *operation[T]) caseKind() CaseKind {
	if op.as != 0 {
		return op.as
	}
	if op.kind == opKind_push {
		return CaseKind_Push
	}
	return CaseKind_Receive
}
