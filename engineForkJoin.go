package csp

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

type superviseFJ struct {
	name     string
	tasks    []*boundTask
	sem      *semaphore.Weighted
	mu       sync.Mutex
	phase    Phase
	awaiting map[*boundTask]struct{}
}

func (mgr *superviseFJ) init(tasks []Task, cfg supervisionConfig) NamedTask {
	mgr.phase = Phase_init
	mgr.tasks = bindTasks(tasks)
	mgr.sem = cfg.semaphore()
	mgr.awaiting = make(map[*boundTask]struct{}, len(tasks))
	return mgr
}

func (mgr *superviseFJ) Name() string {
	return mgr.name
}

func (mgr *superviseFJ) Run(parentCtx context.Context) error {
	// Enforce single-run under mutex for sanity.
	mgr.mu.Lock()
	if mgr.phase != Phase_init {
		mgr.mu.Unlock()
		panic("supervisor can only be Run() once!")
	}
	mgr.phase = Phase_collecting
	mgr.mu.Unlock()

	// Build the child report channel we'll be watching,
	// and the groupCtx which will let us cancel all children in bulk.
	reportCh := MustChannel[reportMsg](0)
	groupCtx, groupCancel := context.WithCancel(parentCtx)
	defer groupCancel()

	// Launch all child goroutines.
	for _, task := range mgr.tasks {
		mgr.awaiting[task] = struct{}{}
		launchChild(groupCtx, reportCh, task, mgr.sem)
	}

	// Watch reports.
	//  This is the happy-path loop.
	//  If anyone errors or we're cancelled, jump down.
	var firstErr error
	for len(mgr.awaiting) > 0 {
		if err := awaitReport(parentCtx, reportCh, mgr.record); err != nil {
			firstErr = err
			break
		}
	}
	// Did we collect all reports without getting unhappy?  Nice; return.
	if firstErr == nil {
		mgr.setPhase(Phase_halt)
		return nil
	}

	// We're halting, not entirely happily.  Cancel all children,
	//  then keep watching reports until everyone's home.
	mgr.setPhase(Phase_halting)
	groupCancel()
	drainReports(reportCh, mgr.awaiting, mgr.record)
	mgr.setPhase(Phase_halt)
	return firstErr
}

func (mgr *superviseFJ) record(report reportMsg) {
	delete(mgr.awaiting, report.task)
}

func (mgr *superviseFJ) setPhase(p Phase) {
	mgr.mu.Lock()
	mgr.phase = p
	mgr.mu.Unlock()
}

// Phase peeks at the supervisor's progress.
func (mgr *superviseFJ) Phase() Phase {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	return mgr.phase
}
