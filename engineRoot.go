package csp

import (
	"context"
)

type superviseRoot struct {
	// no need for the whole phase machine on this one; we never return a
	//  public handle to any part of this implementation.

	task *boundTask
}

func (mgr superviseRoot) init(task Task) *superviseRoot {
	mgr.task = bindTask(task)
	return &mgr
}

func (mgr superviseRoot) Name() string {
	return "-"
}

// Run runs the task on the calling goroutine.  Panics are converted to errors, same as for Go.
func (mgr *superviseRoot) Run(parentCtx context.Context) error {
	return runTask(parentCtx, mgr.task)
}
