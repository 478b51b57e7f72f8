package csp

import (
	"errors"
)

// SteppedTask is a convenient alternative to Task which calls the RunStep method in a loop
// as long as the Context has not been cancelled.
// It's just here to save you about a dozen lines of very common boilerplate.
//
// A RunStep that returns ErrEndOfStream ends the loop without error:
// that's what a step that drains a closed Channel will naturally return.
type SteppedTask interface {
	RunStep(Context) error
}

// TaskOfFunc makes any `func(Context) error` into a Task.
func TaskOfFunc(fn func(Context) error) Task {
	return simpleTask{fn}
}

// TaskOfSteppedTask makes a Task that calls t.RunStep until it errors or the Context is cancelled.
func TaskOfSteppedTask(t SteppedTask) Task {
	return steppedTask{t}
}

type simpleTask struct {
	fn func(Context) error
}

func (t simpleTask) Run(ctx Context) error { return t.fn(ctx) }

type steppedTask struct {
	t SteppedTask
}

func (t steppedTask) Run(ctx Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			switch err := t.t.RunStep(ctx); {
			case errors.Is(err, ErrEndOfStream):
				return nil
			case err != nil:
				return err
			}
		}
	}
}
