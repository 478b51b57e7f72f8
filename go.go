package csp

import (
	"fmt"
	"path/filepath"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// Handle refers to a task launched by Go.
type Handle struct {
	id      uuid.UUID
	task    *boundTask
	promise *Promise[error]
}

// Go runs the task on a new goroutine and returns immediately.
//
// The task is run with a Context derived from ctx, carrying the task's name
// (see CtxTaskName and CtxTaskPath).  If ctx came from a Select body, the task
// does not take part in that Select.
//
// A panic in the task is recovered and becomes the task's error, as an *ErrChild
// with Panicked set.  Use the Handle to wait for the task and collect its error.
func Go(ctx Context, t Task) *Handle {
	return launch(ctx, bindTask(t), nil, nil)
}

// launch is Go for an already-bound task.
// If sem is non-nil, the task waits for a slot before running,
// and gives up with the Context's error if it's cancelled while waiting.
// If after is non-nil, it's called with the task's result on the task's goroutine,
// once the Handle is resolved.
func launch(ctx Context, task *boundTask, sem *semaphore.Weighted, after func(error)) *Handle {
	ctx = orBackground(ctx)
	p, resolve := NewPromise[error]()
	h := &Handle{
		id:      uuid.New(),
		task:    task,
		promise: p,
	}
	go func() {
		result := func() error {
			if sem != nil {
				if err := sem.Acquire(ctx, 1); err != nil {
					return err
				}
				defer sem.Release(1)
			}
			tasksRunning.Inc()
			defer tasksRunning.Dec()
			return runTask(ctx, task)
		}()
		resolve(result)
		if after != nil {
			after(result)
		}
	}()
	return h
}

// GoFunc is shorthand for Go(ctx, TaskOfFunc(fn)).
func GoFunc(ctx Context, fn func(Context) error) *Handle {
	return Go(ctx, TaskOfFunc(fn))
}

// ID is a random identifier for this launch of the task.
func (h *Handle) ID() uuid.UUID { return h.id }

// Name is the task's name.
func (h *Handle) Name() string { return h.task.name }

// Promise resolves to the task's error (nil on success) when the task returns.
func (h *Handle) Promise() *Promise[error] { return h.promise }

// Done reports whether the task has returned.
func (h *Handle) Done() bool { return h.promise.IsResolved() }

// Wait blocks until the task returns, and returns its error.
// If ctx is cancelled first, Wait returns the ctx's error instead
// (the task keeps running; cancelling the Context the task was launched with is how to stop it).
func (h *Handle) Wait(ctx Context) error {
	if err := h.promise.Await(ctx); err != nil {
		return err
	}
	return h.promise.Value()
}

// runTask extends the context tree with the task's name and path, runs the task,
// and converts any panic into an error.
func runTask(parentCtx Context, task *boundTask) (result error) {
	taskPath := filepath.Join(CtxTaskPath(parentCtx), task.name)
	defer func() {
		if rcvr := recover(); rcvr != nil {
			result = &ErrChild{Cause: errOfPanic(rcvr), Panicked: true}
			log().WithFields(logrus.Fields{
				"task":  taskPath,
				"panic": fmt.Sprintf("%v", rcvr),
				"stack": string(debug.Stack()),
			}).Error("task panicked")
		}
	}()
	ctx := appendCtxInfo(parentCtx, ctxInfo{task: task, taskPath: taskPath})
	return task.original.Run(ctx)
}
