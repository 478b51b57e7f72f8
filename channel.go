package csp

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/sirupsen/logrus"
)

// Channel is a rendezvous queue connecting producers and consumers.
//
// A Channel has a fixed capacity.  Up to that many pushes are buffered and
// return right away; any further push blocks until a receive makes room.
// A capacity of zero makes the channel synchronous: every push waits for a receive.
//
// Every blocking operation takes a Context.  If that Context came from the body of
// a Select, the operation doesn't block at all: it becomes one of that Select's cases,
// and its callback (if any) is called only if it's the case that wins.
// Otherwise the operation blocks until it completes, the channel is closed,
// or the Context is cancelled.
//
// Messages are delivered in the order they were pushed.
// A Channel must not be copied after first use.
type Channel[T any] struct {
	mu       sync.Mutex
	capacity int
	pushes   []*operation[T] // Completed pushes (the buffer) first, then pushes still waiting for room.
	receives []*operation[T] // Receives waiting for a push.  Only non-empty while nothing is buffered.
	closed   bool
}

// NewChannel returns an open channel with room to buffer capacity messages.
// It returns ErrInvalidArgument if capacity is negative.
func NewChannel[T any](capacity int) (*Channel[T], error) {
	if capacity < 0 {
		return nil, fmt.Errorf("%w: channel capacity must be 0 or greater, got %d", ErrInvalidArgument, capacity)
	}
	return &Channel[T]{capacity: capacity}, nil
}

// MustChannel is NewChannel, but panics on a negative capacity.
func MustChannel[T any](capacity int) *Channel[T] {
	ch, err := NewChannel[T](capacity)
	if err != nil {
		panic(err)
	}
	return ch
}

// Push sends v.  See PushAndThen.
func (ch *Channel[T]) Push(ctx Context, v T) error {
	return ch.PushAndThen(ctx, v, nil)
}

// PushAndThen sends v, and calls then once the push has completed.
//
// Used directly, it blocks until v is buffered or handed to a receiver,
// and returns ErrClosedChannel if the channel is closed (either already, or
// while still waiting for room), or the Context's error if it's cancelled first.
// The callback's error, if any, is returned.
//
// Used with a Context from a Select body, it returns nil immediately and registers a case.
// Pushing to a closed channel inside a Select makes the Select fail with ErrClosedChannel,
// unless another case wins first.
func (ch *Channel[T]) PushAndThen(ctx Context, v T, then func(Outcome[T]) error) error {
	if s := selectingIn(ctx); s != nil {
		ch.registerPush(s, v, then, 0)
		return nil
	}
	if err := ch.push(ctx, v); err != nil {
		return err
	}
	if then != nil {
		return then(Outcome[T]{Value: v, Ok: true, Case: CaseKind_Push})
	}
	return nil
}

// Receive takes the oldest message.  See ReceiveAndThen.
//
// Used directly, it blocks until a message is available, and returns
// ErrEndOfStream if the channel is closed and has nothing more to give.
// Used with a Context from a Select body, it registers a case and returns a zero value and nil.
func (ch *Channel[T]) Receive(ctx Context) (T, error) {
	if s := selectingIn(ctx); s != nil {
		ch.registerReceive(s, nil)
		var zero T
		return zero, nil
	}
	return ch.receive(ctx)
}

// ReceiveAndThen takes the oldest message and hands it to then.
//
// Used directly, it blocks like Receive, returns ErrEndOfStream without calling then
// if the channel is closed and drained, and otherwise returns the callback's error.
//
// Used with a Context from a Select body, it returns nil immediately and registers a case.
// If the channel is (or becomes) closed and drained, that case wins with an Outcome
// whose Ok is false.
func (ch *Channel[T]) ReceiveAndThen(ctx Context, then func(Outcome[T]) error) error {
	if s := selectingIn(ctx); s != nil {
		ch.registerReceive(s, then)
		return nil
	}
	v, err := ch.receive(ctx)
	if err != nil {
		return err
	}
	if then != nil {
		return then(Outcome[T]{Value: v, Ok: true, Case: CaseKind_Receive})
	}
	return nil
}

// Close closes the channel.  It returns false if the channel was already closed.
//
// Receives waiting on the channel are woken and get nothing.
// Messages already buffered stay available to later receives.
// Pushes still waiting for room are rejected with ErrClosedChannel.
func (ch *Channel[T]) Close() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed {
		return false
	}
	ch.closed = true

	for _, r := range ch.receives {
		if r.stmt == nil {
			r.close()
			continue
		}
		r.stmt.tryWin(r, r.close)
	}
	ch.receives = nil

	var rejected int
	buffered := ch.pushes[:0]
	for _, p := range ch.pushes {
		if !p.incomplete() {
			buffered = append(buffered, p)
			continue
		}
		if p.dead() {
			continue
		}
		rejected++
		p.close()
		if p.stmt != nil {
			p.stmt.fail(ErrClosedChannel)
		}
	}
	clear(ch.pushes[len(buffered):])
	ch.pushes = buffered

	closesTotal.Inc()
	rejectedPushesTotal.Add(float64(rejected))
	if logEnabled(logrus.DebugLevel) {
		log().WithFields(logrus.Fields{
			"channel":  fmt.Sprintf("%p", ch),
			"buffered": len(buffered),
			"rejected": rejected,
		}).Debug("channel closed")
	}
	return true
}

// Closed reports whether Close has been called.
func (ch *Channel[T]) Closed() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.closed
}

// Cap returns the capacity the channel was created with.
func (ch *Channel[T]) Cap() int {
	return ch.capacity
}

// Size returns the number of buffered messages.  It's never more than Cap.
func (ch *Channel[T]) Size() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.buffered()
}

// Empty reports whether there are no buffered messages.
func (ch *Channel[T]) Empty() bool {
	return ch.Size() == 0
}

func (ch *Channel[T]) String() string {
	return fmt.Sprintf("Channel{capacity: %d, size: %d}", ch.Cap(), ch.Size())
}

// Each receives messages and calls fn with each of them, until the channel is closed and drained
// (which returns nil), fn returns an error, or ctx is cancelled.
//
// Each always blocks directly, even with a Context from a Select body.
// It consumes the channel: messages it received are gone for everyone else.
func (ch *Channel[T]) Each(ctx Context, fn func(T) error) error {
	for {
		v, err := ch.receive(ctx)
		switch {
		case errors.Is(err, ErrEndOfStream):
			return nil
		case err != nil:
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
	}
}

// All returns an iterator over received messages,
// ending when the channel is closed and drained, or ctx is cancelled.
// Like Each, it consumes the channel and can't be restarted.
func (ch *Channel[T]) All(ctx Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, err := ch.receive(ctx)
			if err != nil {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}

// push is a blocking push, for callers outside of any select.
func (ch *Channel[T]) push(ctx Context, v T) error {
	ctx = orBackground(ctx)
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed {
		return ErrClosedChannel
	}
	p := newOperation[T](opKind_push, &ch.mu, nil, v, nil)
	if paired, _ := ch.offer(p); paired {
		return nil
	}
	ch.pushes = append(ch.pushes, p)
	ch.promote()
	if !p.incomplete() {
		return nil
	}

	stop := context.AfterFunc(ctx, func() {
		ch.mu.Lock()
		p.signal()
		ch.mu.Unlock()
	})
	defer stop()
	for {
		switch p.state {
		case opState_completed:
			return nil
		case opState_closed:
			return ErrClosedChannel
		}
		if err := ctx.Err(); err != nil {
			ch.pushes = removeOp(ch.pushes, p)
			return err
		}
		p.wait()
	}
}

// receive is a blocking receive, for callers outside of any select.
func (ch *Channel[T]) receive(ctx Context) (T, error) {
	ctx = orBackground(ctx)
	var zero T
	ch.mu.Lock()
	defer ch.mu.Unlock()
	r := newOperation[T](opKind_receive, &ch.mu, nil, zero, nil)
	if paired, _ := ch.take(r); paired {
		return r.msg, nil
	}
	if ch.closed {
		return zero, ErrEndOfStream
	}
	ch.receives = append(ch.receives, r)

	stop := context.AfterFunc(ctx, func() {
		ch.mu.Lock()
		r.signal()
		ch.mu.Unlock()
	})
	defer stop()
	for {
		switch r.state {
		case opState_completed:
			return r.msg, nil
		case opState_closed:
			return zero, ErrEndOfStream
		}
		if err := ctx.Err(); err != nil {
			ch.receives = removeOp(ch.receives, r)
			return zero, err
		}
		r.wait()
	}
}

// registerPush is a push on behalf of a select statement.  It never blocks.
// A nonzero "as" changes the case kind reported to the callback.
func (ch *Channel[T]) registerPush(s *statement, v T, then func(Outcome[T]) error, as CaseKind) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if s.resolved.Load() {
		return
	}
	if ch.closed {
		s.fail(ErrClosedChannel)
		return
	}
	p := newOperation(opKind_push, &ch.mu, s, v, then)
	p.as = as
	if paired, lost := ch.offer(p); paired || lost {
		return
	}
	if !s.register(func() { ch.withdraw(p) }) {
		return
	}
	ch.pushes = append(ch.pushes, p)
	ch.promote()
}

// registerReceive is a receive on behalf of a select statement.  It never blocks.
func (ch *Channel[T]) registerReceive(s *statement, then func(Outcome[T]) error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if s.resolved.Load() {
		return
	}
	var zero T
	r := newOperation(opKind_receive, &ch.mu, s, zero, then)
	if paired, lost := ch.take(r); paired || lost {
		return
	}
	if ch.closed {
		s.tryWin(r, r.close)
		return
	}
	if !s.register(func() { ch.withdraw(r) }) {
		return
	}
	ch.receives = append(ch.receives, r)
}

// withdraw removes an operation that lost its select.
// An operation that completed stays put: a buffered push is still a buffered message.
func (ch *Channel[T]) withdraw(op *operation[T]) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if !op.incomplete() {
		return
	}
	switch op.kind {
	case opKind_push:
		ch.pushes = removeOp(ch.pushes, op)
	case opKind_receive:
		ch.receives = removeOp(ch.receives, op)
	}
}

// offer tries to hand a new push straight to the oldest eligible waiting receive.
// lost is true if the push's own statement turned out to be resolved already,
// in which case the push should be abandoned.
func (ch *Channel[T]) offer(p *operation[T]) (paired, lost bool) {
	for i := 0; i < len(ch.receives); {
		r := ch.receives[i]
		if r.dead() {
			ch.receives = removeAt(ch.receives, i)
			continue
		}
		if p.stmt != nil && r.stmt == p.stmt {
			i++
			continue
		}
		recvOK, pushOK := ch.pair(r, p)
		if recvOK && pushOK {
			ch.receives = removeAt(ch.receives, i)
			return true, false
		}
		if !pushOK {
			return false, true
		}
		ch.receives = removeAt(ch.receives, i)
	}
	return false, false
}

// take tries to satisfy a new receive from the oldest eligible push,
// buffered ones first since they're at the front.
// lost is true if the receive's own statement turned out to be resolved already.
func (ch *Channel[T]) take(r *operation[T]) (paired, lost bool) {
	for i := 0; i < len(ch.pushes); {
		p := ch.pushes[i]
		if p.dead() {
			ch.pushes = removeAt(ch.pushes, i)
			continue
		}
		if r.stmt != nil && p.stmt == r.stmt {
			i++
			continue
		}
		recvOK, pushOK := ch.pair(r, p)
		if recvOK && pushOK {
			ch.pushes = removeAt(ch.pushes, i)
			ch.promote()
			return true, false
		}
		if !recvOK {
			return false, true
		}
		if logEnabled(logrus.TraceLevel) {
			log().WithField("channel", fmt.Sprintf("%p", ch)).Trace("push lost its select before pairing")
		}
		ch.pushes = removeAt(ch.pushes, i)
	}
	return false, false
}

// pair moves p's message into r and completes both, atomically with respect to
// both operations' select statements.
// A push that's already buffered has nothing left to decide, so only the receive's statement is consulted for it.
func (ch *Channel[T]) pair(r, p *operation[T]) (recvOK, pushOK bool) {
	var pushStmt *statement
	if p.incomplete() {
		pushStmt = p.stmt
	}
	recvOK, pushOK = commit(r.stmt, pushStmt, func() {
		r.msg = p.msg
		if p.incomplete() {
			p.complete()
			if p.stmt != nil {
				p.stmt.resolveLocked(p)
			}
		}
		r.complete()
		if r.stmt != nil {
			r.stmt.resolveLocked(r)
		}
	})
	if recvOK && pushOK {
		pairingsTotal.Inc()
	}
	return
}

// promote completes waiting pushes, oldest first, for as long as there's room in the buffer.
// A waiting push whose select already went another way is dropped instead.
func (ch *Channel[T]) promote() {
	for i := 0; i < len(ch.pushes); {
		p := ch.pushes[i]
		if !p.incomplete() {
			i++
			continue
		}
		if i >= ch.capacity {
			return
		}
		if p.stmt == nil {
			p.complete()
			i++
			continue
		}
		if !p.stmt.tryWin(p, p.complete) {
			ch.pushes = removeAt(ch.pushes, i)
			continue
		}
		i++
	}
}

// buffered counts the completed pushes at the front of the queue.
func (ch *Channel[T]) buffered() int {
	n := 0
	for _, p := range ch.pushes {
		if p.incomplete() {
			break
		}
		n++
	}
	return n
}

func removeAt[T any](ops []*operation[T], i int) []*operation[T] {
	copy(ops[i:], ops[i+1:])
	ops[len(ops)-1] = nil
	return ops[:len(ops)-1]
}

func removeOp[T any](ops []*operation[T], op *operation[T]) []*operation[T] {
	for i, o := range ops {
		if o == op {
			return removeAt(ops, i)
		}
	}
	return ops
}

func orBackground(ctx Context) Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
