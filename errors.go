package csp

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned by NewChannel for a negative capacity.
	ErrInvalidArgument = errors.New("csp: invalid argument")

	// ErrClosedChannel is returned when pushing to a closed channel,
	// or when a push that was still waiting for room is rejected by Close.
	// Inside a Select, a push to a closed channel makes the Select return this
	// (unless some other case wins first).
	ErrClosedChannel = errors.New("csp: push to closed channel")

	// ErrEndOfStream is returned by a direct Receive on a closed and drained channel.
	// It's the normal way a consumer learns that it's done; think io.EOF.
	// Receives inside a Select see this as an Outcome with Ok set to false instead.
	ErrEndOfStream = errors.New("csp: end of stream")

	// ErrSelectMisuse is returned by Select when the body registered cases in a way
	// that can't be honored (e.g. two default cases).
	ErrSelectMisuse = errors.New("csp: select misuse")
)

// ErrChild is the error produced by a supervised task that failed.
// If the task panicked, Panicked is true and Cause describes the panic value.
type ErrChild struct {
	Cause    error
	Panicked bool
}

func (e *ErrChild) Error() string {
	if e.Panicked {
		return fmt.Sprintf("task panicked: %v", e.Cause)
	}
	return e.Cause.Error()
}

func (e *ErrChild) Unwrap() error { return e.Cause }

// errOfPanic converts a recovered value into an error.
func errOfPanic(rcvr interface{}) error {
	switch x := rcvr.(type) {
	case error:
		return x
	default:
		return fmt.Errorf("%v", x)
	}
}
