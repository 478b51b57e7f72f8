package csp

import (
	"context"

	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"
)

type superviseStream struct {
	name        string
	taskGen     *Channel[Task]
	sem         *semaphore.Weighted
	phase       atomic.Uint32
	reportCh    *Channel[reportMsg]
	groupCtx    context.Context
	groupCancel func()
	awaiting    map[*boundTask]struct{}
	firstErr    error
}

func (mgr *superviseStream) Phase() Phase {
	return Phase(mgr.phase.Load())
}

func (mgr *superviseStream) init(tg *Channel[Task], cfg supervisionConfig) NamedTask {
	mgr.phase.Store(uint32(Phase_init))
	mgr.taskGen = tg
	mgr.sem = cfg.semaphore()
	return mgr
}

func (mgr *superviseStream) Name() string {
	return mgr.name
}

func (mgr *superviseStream) Run(parentCtx context.Context) error {
	// Enforce single-run.
	ok := mgr.phase.CompareAndSwap(uint32(Phase_init), uint32(Phase_running))
	if !ok {
		panic("supervisor can only be Run() once!")
	}

	// Allocate statekeepers.
	mgr.awaiting = make(map[*boundTask]struct{})
	mgr.reportCh = MustChannel[reportMsg](0)
	mgr.groupCtx, mgr.groupCancel = context.WithCancel(parentCtx)
	defer mgr.groupCancel()

	// Step through phases (the halt phase will return a nil next phase).
	for phase := mgr._running; phase != nil; {
		phase = phase(parentCtx)
	}

	return mgr.firstErr
}

func (mgr *superviseStream) _running(parentCtx context.Context) phaseFn {
	// Loop selecting over new task submissions or result collection, with
	//  parent cancellation checked by Select itself.  We'll only break out on
	//  errors, cancels, or if the taskgen channel is closed.
	for {
		var next phaseFn
		err := Select(parentCtx, func(ctx Context, _ *Cases) error {
			if err := mgr.taskGen.ReceiveAndThen(ctx, func(o Outcome[Task]) error {
				if !o.Ok {
					next = mgr._collecting
					return nil
				}
				task := bindTask(o.Value)
				mgr.awaiting[task] = struct{}{}
				launchChild(mgr.groupCtx, mgr.reportCh, task, mgr.sem)
				return nil
			}); err != nil {
				return err
			}
			return mgr.reportCh.ReceiveAndThen(ctx, func(o Outcome[reportMsg]) error {
				mgr.record(o.Value)
				return o.Value.result
			})
		})
		if err != nil {
			mgr.firstErr = err
			return mgr._halting
		}
		if next != nil {
			return next
		}
	}
}

func (mgr *superviseStream) _collecting(parentCtx context.Context) phaseFn {
	mgr.phase.Store(uint32(Phase_collecting))

	// We're not accepting new tasks anymore, so this loop is now only
	//  for collecting results or noticing a parent cancel;
	//  and it can move directly to halt if there are no disruptions.
	for len(mgr.awaiting) > 0 {
		if err := awaitReport(parentCtx, mgr.reportCh, mgr.record); err != nil {
			mgr.firstErr = err
			return mgr._halting
		}
	}
	return mgr._halt
}

func (mgr *superviseStream) _halting(_ context.Context) phaseFn {
	mgr.phase.Store(uint32(Phase_halting))

	// We're halting, not entirely happily.  Cancel all children.
	mgr.groupCancel()

	// Keep watching reports.
	drainReports(mgr.reportCh, mgr.awaiting, mgr.record)

	// Move on.
	return mgr._halt
}

func (mgr *superviseStream) _halt(_ context.Context) phaseFn {
	mgr.phase.Store(uint32(Phase_halt))
	return nil
}

func (mgr *superviseStream) record(report reportMsg) {
	delete(mgr.awaiting, report.task)
}
