package tasktree

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/warpfork/go-csp"
)

func Test(t *testing.T) {
	var baps baps

	err := csp.SuperviseRoot(context.Background(),
		csp.SuperviseForkJoin("root", []csp.Task{
			// First, just a regular task.
			&Bapper{"bapper-0-2", 0, 2, &baps},
			// Now, we'll create a sub-tree of supervision... starting with just a regular task func,
			//  and running a new supervisor inside it.  Not much magic.
			csp.TaskWithName("subtree", csp.TaskOfFunc(func(ctx context.Context) error {
				return csp.SuperviseForkJoin("inner", []csp.Task{
					&Bapper{"bapper-2-4", 2, 2, &baps},
					&Bapper{"bapper-4-6", 4, 2, &baps},
				}).Run(ctx)
			})),
			// Of course, the above is a pretty common thing to want to do!
			//  A supervisor is itself a task, so it nests directly, too:
			csp.SuperviseForkJoin("flat", []csp.Task{
				&Bapper{"bapper-6-8", 6, 2, &baps},
			}),
		}),
	)
	require.NoError(t, err)
	require.Equal(t, []string{
		"bap! 0 from root/bapper-0-2",
		"bap! 1 from root/bapper-0-2",
		"bap! 2 from root/subtree/bapper-2-4",
		"bap! 3 from root/subtree/bapper-2-4",
		"bap! 4 from root/subtree/bapper-4-6",
		"bap! 5 from root/subtree/bapper-4-6",
		"bap! 6 from root/flat/bapper-6-8",
		"bap! 7 from root/flat/bapper-6-8",
	}, baps.Sorted())
}

type Bapper struct {
	name  string
	start int
	count int
	out   *baps
}

func (b *Bapper) Name() string { return b.name }

func (b *Bapper) Run(ctx context.Context) error {
	// Be a good citizen and always check if we were already cancelled, even just as we begin.
	if ctx.Err() != nil {
		return ctx.Err()
	}
	for i := b.start; i < b.count+b.start; i++ {
		// Do our task.  It's a silly little side-effect.
		b.out.add(fmt.Sprintf("bap! %d from %s", i, csp.CtxTaskPath(ctx)))
		// Idle a while (as a simulated placeholder for some other hard work),
		// or always be ready to accept that we've been cancelled.
		select {
		case <-time.After(10 * time.Millisecond):
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

type baps struct {
	mu    sync.Mutex
	lines []string
}

func (b *baps) add(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
}

func (b *baps) Sorted() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := append([]string(nil), b.lines...)
	sort.Strings(out)
	return out
}
