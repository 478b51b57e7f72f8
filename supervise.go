package csp

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// SuperviseForkJoin returns a task that runs all the given tasks concurrently,
// and returns once they all have.
//
// If any task errors, the others are cancelled (via their Context),
// and the first error is the result once everyone has returned.
// Cancelling the supervisor's own Context does the same.
func SuperviseForkJoin(
	taskGroupName string,
	tasks []Task,
	opts ...SupervisionOptions,
) NamedTask {
	return (&superviseFJ{name: taskGroupName}).init(tasks, buildConfig(opts))
}

// SuperviseStream returns a task that runs every task received from the given
// channel, each on its own goroutine, for as long as the channel is open.
// Once the channel is closed and drained, it waits for the remaining tasks and returns.
//
// Errors and cancellation are handled the same as for SuperviseForkJoin.
func SuperviseStream(
	taskGroupName string,
	tasks *Channel[Task],
	opts ...SupervisionOptions,
) NamedTask {
	return (&superviseStream{name: taskGroupName}).init(tasks, buildConfig(opts))
}

// SuperviseRoot runs the task on the calling goroutine, at the root of a task tree.
func SuperviseRoot(ctx context.Context, task Task) error {
	return superviseRoot{}.init(task).Run(ctx)
}

// SupervisionOptions configure a supervisor.
//
// ex:
//   - WithMaxConcurrency(10)
type SupervisionOptions func(*supervisionConfig)

type supervisionConfig struct {
	maxConcurrency int64
}

// WithMaxConcurrency limits how many children may run at once.
// Children beyond the limit are launched but wait for a slot before running.
// Zero or less means no limit.
func WithMaxConcurrency(n int) SupervisionOptions {
	return func(cfg *supervisionConfig) {
		cfg.maxConcurrency = int64(n)
	}
}

func buildConfig(opts []SupervisionOptions) supervisionConfig {
	var cfg supervisionConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (cfg supervisionConfig) semaphore() *semaphore.Weighted {
	if cfg.maxConcurrency <= 0 {
		return nil
	}
	return semaphore.NewWeighted(cfg.maxConcurrency)
}
