package csp

import (
	"sync"
)

// Promise holds a value that will be resolved exactly once, at some point in the future.
//
// Reading the value before it's resolved returns the zero value;
// use Await, ResolvedCh, WhenResolved, or ReportTo to find out when it's ready.
type Promise[T any] struct {
	mu       sync.Mutex
	value    T
	resolved bool
	waitCh   chan struct{}
	afterFns []func()
	afterChs []chan<- *Promise[T]
}

// NewPromise returns a new unresolved promise, and the function that resolves it.
// You can start waiting on it immediately, and resolve it (or hand the resolver off
// to someone else) at your leisure.  Calling the resolver twice panics.
func NewPromise[T any]() (*Promise[T], func(T)) {
	p := &Promise[T]{waitCh: make(chan struct{})}
	return p, p.resolve
}

func (p *Promise[T]) resolve(v T) {
	p.mu.Lock()
	if p.resolved {
		// i've been misused!  rage.
		p.mu.Unlock()
		panic("multiple resolve calls on Promise")
	}
	p.value = v
	p.resolved = true
	afterFns, afterChs := p.afterFns, p.afterChs
	p.afterFns, p.afterChs = nil, nil
	p.mu.Unlock()

	close(p.waitCh)
	for _, ch := range afterChs {
		ch <- p
	}
	for _, fn := range afterFns {
		fn()
	}
}

// Await blocks until the promise is resolved (returning nil), or ctx is cancelled
// (returning the ctx's error).
func (p *Promise[T]) Await(ctx Context) error {
	select {
	case <-p.waitCh:
		return nil
	case <-orBackground(ctx).Done():
		return ctx.Err()
	}
}

// ResolvedCh returns a channel that's closed when the promise is resolved.
func (p *Promise[T]) ResolvedCh() <-chan struct{} {
	return p.waitCh
}

// IsResolved peeks at whether the promise has been resolved yet.
func (p *Promise[T]) IsResolved() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resolved
}

// Value returns the resolved value, or the zero value if the promise isn't resolved yet.
func (p *Promise[T]) Value() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// WhenResolved arranges for fn to be called once the promise is resolved.
// If it already is, fn is called immediately, on the calling goroutine.
// Otherwise it's called on the goroutine that resolves the promise.
func (p *Promise[T]) WhenResolved(fn func()) {
	p.mu.Lock()
	if !p.resolved {
		p.afterFns = append(p.afterFns, fn)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	fn()
}

// ReportTo arranges for the promise to send itself to ch once it's resolved.
// The send is performed by whichever goroutine resolves the promise (or by the caller,
// if it's already resolved), so ch should be serviced promptly or buffered.
func (p *Promise[T]) ReportTo(ch chan<- *Promise[T]) {
	p.mu.Lock()
	if !p.resolved {
		p.afterChs = append(p.afterChs, ch)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	ch <- p
}
