package csp

import (
	"context"

	"golang.org/x/sync/semaphore"
)

type Phase uint32

const (
	Phase_uninitalized = Phase(0) // panic if you see this.
	Phase_init         = Phase(1) // when the mgr is properly constructed.
	Phase_running      = Phase(2) // immediately after the manager task has been Run(), and new tasks can still be submitted.
	Phase_collecting   = Phase(3) // when the manager is running, but no new tasks can be submitted (n.b. this replaces Phase_running completely for forkjoin).
	Phase_halting      = Phase(4) // when waiting for all children to return (we've either been cancelled by parent or child has errored).
	Phase_halt         = Phase(5) // all tasks have returned, we're done here and you can have the final result.
)

func (p Phase) String() string {
	switch p {
	case Phase_init:
		return "init"
	case Phase_running:
		return "running"
	case Phase_collecting:
		return "collecting"
	case Phase_halting:
		return "halting"
	case Phase_halt:
		return "halt"
	default:
		return "uninitialized"
	}
}

type phaseFn func(parentCtx context.Context) phaseFn

type reportMsg struct {
	task   *boundTask
	result error
}

// launchChild starts a child task on its own goroutine.
// When the child returns, its result is pushed to report; the push happens on the
// child's goroutine, and the supervisor must keep receiving until every child has reported.
func launchChild(groupCtx context.Context, report *Channel[reportMsg], task *boundTask, sem *semaphore.Weighted) {
	launch(groupCtx, task, sem, func(result error) {
		// The supervisor always drains reports before it returns, so this can't be left hanging.
		_ = report.Push(context.Background(), reportMsg{task, result})
	})
}

// awaitReport selects on the next child report (or parent cancellation),
// and calls record with it.  It returns the child's error, or the parent's.
func awaitReport(parentCtx context.Context, report *Channel[reportMsg], record func(reportMsg)) error {
	return Select(parentCtx, func(ctx Context, _ *Cases) error {
		return report.ReceiveAndThen(ctx, func(o Outcome[reportMsg]) error {
			record(o.Value)
			return o.Value.result
		})
	})
}

// drainReports waits for the remaining children without regard for cancellation.
// It's important to do this so we don't have goroutine leaks.
func drainReports(report *Channel[reportMsg], awaiting map[*boundTask]struct{}, record func(reportMsg)) {
	for len(awaiting) > 0 {
		msg, err := report.Receive(context.Background())
		if err != nil {
			// Nobody closes a report channel, so this would be a bug.
			panic(err)
		}
		record(msg)
	}
}
