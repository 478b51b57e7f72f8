package csp

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Select waits on several channel operations at once and commits exactly one of them.
//
// The body is called with a Context that puts channel operations into "select mode":
// every Push, PushAndThen, Receive and ReceiveAndThen called with that Context
// registers a case instead of blocking.  The body can also add a default case or a
// timeout case via the Cases handle.  Once the body returns, Select blocks until one
// case wins, removes every other registered operation from its channel, and then
// calls the winning case's callback (outside of any lock) and returns its error.
//
// An operation that's ready while the body runs wins immediately, and later
// operations in the body are then ignored.  A default case only wins if nothing has
// won by the time the body returns.
// An operation never pairs with another operation of the same Select.
//
// Select returns early with an error, and with no callback called, if:
// the body returns an error; a push to a closed channel was registered and nothing
// else won; ctx was cancelled before anything won; or the cases were misused
// (ErrSelectMisuse).  In every case, including a panic in the body or a callback,
// all of the operations that didn't win are removed from their channels before
// Select returns.  (An operation that already completed stays completed:
// a buffered push is still buffered, even if the body then failed.)
//
// The Context handed to the body stops being special once Select has picked a winner,
// so callbacks may use channels normally.
func Select(ctx Context, body func(ctx Context, c *Cases) error) error {
	ctx = orBackground(ctx)
	s := newStatement()
	defer s.finish()

	stop := context.AfterFunc(ctx, func() {
		s.fail(ctx.Err())
	})
	defer stop()

	bodyCtx := withStatement(ctx, s)
	if err := body(bodyCtx, &Cases{ctx: bodyCtx, s: s}); err != nil {
		return err
	}
	s.mu.Lock()
	misuse := s.misuse
	s.mu.Unlock()
	if misuse != nil {
		return misuse
	}

	s.applyDefault()
	w, failure := s.await()
	s.finish()

	if w == nil {
		log().WithFields(logrus.Fields{
			"statement": s.id,
			"error":     failure,
		}).Debug("select gave up")
		return failure
	}
	selectResolutions.WithLabelValues(w.caseKind().String()).Inc()
	log().WithFields(logrus.Fields{
		"statement": s.id,
		"case":      w.caseKind(),
	}).Trace("select resolved")
	return w.fire()
}

// Cases is the handle a Select body uses to add cases that aren't channel operations.
type Cases struct {
	ctx Context
	s   *statement
}

// Default adds a case that wins if nothing else has by the time the body returns.
// A second Default in the same Select makes it fail with ErrSelectMisuse.
// The callback may be nil.
func (c *Cases) Default(then func(Outcome[struct{}]) error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if c.s.hasDefault {
		if c.s.misuse == nil {
			c.s.misuse = fmt.Errorf("%w: more than one default case", ErrSelectMisuse)
		}
		return
	}
	c.s.hasDefault = true
	c.s.fallback = defaultCase{then}
}

// Timeout adds a case that wins once d has elapsed, if nothing else has won first.
// The callback may be nil.
//
// It's sugar over a synchronous channel: the case is a push into a private channel,
// and a helper goroutine receives from it after sleeping.
// Whatever happens, the helper goroutine exits once the Select is over.
func (c *Cases) Timeout(d time.Duration, then func(Outcome[struct{}]) error) {
	helper := MustChannel[struct{}](0)
	quit := make(chan struct{})
	go func() {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-quit:
			return
		}
		// Releases the push if it's still waiting.  If the select went another way,
		// this waits until the finalizer closes the helper channel.
		helper.receive(context.Background())
	}()
	c.s.addFinalizer(func() {
		close(quit)
		helper.Close()
	})
	helper.registerPush(c.s, struct{}{}, then, CaseKind_Timeout)
}

// Context returns the Context that puts channel operations into this Select.
// It's the same one the body was called with.
func (c *Cases) Context() Context {
	return c.ctx
}

type defaultCase struct {
	then func(Outcome[struct{}]) error
}

func (d defaultCase) fire() error {
	if d.then == nil {
		return nil
	}
	return d.then(Outcome[struct{}]{Ok: true, Case: CaseKind_Default})
}

func (defaultCase) caseKind() CaseKind { return CaseKind_Default }
