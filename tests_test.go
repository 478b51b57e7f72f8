package csp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestPanicCalming(t *testing.T) {
	err := SuperviseStream("groupname", TaskStream(TaskOfFunc(func(_ context.Context) error {
		panic(fmt.Errorf("foo"))
	}))).Run(context.Background())
	var child *ErrChild
	require.ErrorAs(t, err, &child)
	require.True(t, child.Panicked)
	require.EqualError(t, child.Cause, "foo")
}

func TestForkJoin(t *testing.T) {
	t.Run("runs every task", func(t *testing.T) {
		var n atomic.Int32
		tasks := TasksFromSlice([]int32{1, 2, 3, 4}, func(_ context.Context, v int32) error {
			n.Add(v)
			return nil
		})
		require.NoError(t, SuperviseRoot(context.Background(), SuperviseForkJoin("group", tasks)))
		require.Equal(t, int32(10), n.Load())
	})
	t.Run("an error cancels the others", func(t *testing.T) {
		var cancelled atomic.Int32
		tasks := []Task{
			TaskOfFunc(func(ctx context.Context) error {
				return errBoom
			}),
			TaskOfFunc(func(ctx context.Context) error {
				<-ctx.Done()
				cancelled.Inc()
				return ctx.Err()
			}),
			TaskOfFunc(func(ctx context.Context) error {
				<-ctx.Done()
				cancelled.Inc()
				return ctx.Err()
			}),
		}
		mgr := SuperviseForkJoin("group", tasks)
		err := mgr.Run(context.Background())
		require.ErrorIs(t, err, errBoom)
		require.Equal(t, int32(2), cancelled.Load())
		require.Equal(t, Phase_halt, mgr.(*superviseFJ).Phase())
	})
	t.Run("parent cancellation reaches the children", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		started := make(chan struct{})
		tasks := []Task{TaskOfFunc(func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})}
		go func() {
			<-started
			cancel()
		}()
		err := SuperviseForkJoin("group", tasks).Run(ctx)
		require.ErrorIs(t, err, context.Canceled)
	})
	t.Run("can only run once", func(t *testing.T) {
		mgr := SuperviseForkJoin("group", nil)
		require.NoError(t, mgr.Run(context.Background()))
		require.Panics(t, func() { _ = mgr.Run(context.Background()) })
	})
	t.Run("respects max concurrency", func(t *testing.T) {
		var running, peak atomic.Int32
		tasks := TasksFromSlice(make([]struct{}, 12), func(_ context.Context, _ struct{}) error {
			now := running.Inc()
			for {
				old := peak.Load()
				if now <= old || peak.CompareAndSwap(old, now) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Dec()
			return nil
		})
		require.NoError(t, SuperviseForkJoin("group", tasks, WithMaxConcurrency(3)).Run(context.Background()))
		require.LessOrEqual(t, peak.Load(), int32(3))
		require.Greater(t, peak.Load(), int32(0))
	})
}

func TestStream(t *testing.T) {
	t.Run("runs tasks until the channel closes", func(t *testing.T) {
		taskCh := MustChannel[Task](0)
		var mu sync.Mutex
		var seen []string
		done := make(chan error, 1)
		go func() {
			done <- SuperviseStream("stream", taskCh).Run(context.Background())
		}()
		for i := 0; i < 5; i++ {
			name := fmt.Sprintf("t%d", i)
			require.NoError(t, taskCh.Push(context.Background(), TaskWithName(name, TaskOfFunc(func(ctx context.Context) error {
				mu.Lock()
				seen = append(seen, CtxTaskName(ctx))
				mu.Unlock()
				return nil
			}))))
		}
		taskCh.Close()
		require.NoError(t, <-done)
		require.ElementsMatch(t, []string{"t0", "t1", "t2", "t3", "t4"}, seen)
	})
	t.Run("an error halts the stream", func(t *testing.T) {
		taskCh := MustChannel[Task](0)
		mgr := SuperviseStream("stream", taskCh)
		done := make(chan error, 1)
		go func() { done <- mgr.Run(context.Background()) }()
		require.NoError(t, taskCh.Push(context.Background(), TaskOfFunc(func(ctx context.Context) error {
			return errBoom
		})))
		require.ErrorIs(t, <-done, errBoom)
		require.Equal(t, Phase_halt, mgr.(*superviseStream).Phase())
	})
	t.Run("the steps of a stepped task run until end of stream", func(t *testing.T) {
		src := MustChannel[int](3)
		for i := 1; i <= 3; i++ {
			require.NoError(t, src.Push(context.Background(), i))
		}
		src.Close()
		var sum atomic.Int64
		err := SuperviseStream("stream", TaskStream(TaskOfSteppedTask(summer{src, &sum}))).Run(context.Background())
		require.NoError(t, err)
		require.Equal(t, int64(6), sum.Load())
	})
}

type summer struct {
	src *Channel[int]
	sum *atomic.Int64
}

func (s summer) RunStep(ctx context.Context) error {
	v, err := s.src.Receive(ctx)
	if err != nil {
		return err
	}
	s.sum.Add(int64(v))
	return nil
}

func TestGo(t *testing.T) {
	t.Run("wait returns the task's error", func(t *testing.T) {
		h := GoFunc(context.Background(), func(ctx context.Context) error {
			return errBoom
		})
		require.ErrorIs(t, h.Wait(context.Background()), errBoom)
		require.True(t, h.Done())
		require.ErrorIs(t, h.Promise().Value(), errBoom)
	})
	t.Run("panics become errors", func(t *testing.T) {
		h := GoFunc(context.Background(), func(ctx context.Context) error {
			panic(errBoom)
		})
		err := h.Wait(context.Background())
		var child *ErrChild
		require.True(t, errors.As(err, &child))
		require.True(t, child.Panicked)
		require.ErrorIs(t, err, errBoom)
	})
	t.Run("tasks are named", func(t *testing.T) {
		names := make(chan string, 2)
		h := Go(context.Background(), TaskWithName("worker", TaskOfFunc(func(ctx context.Context) error {
			names <- CtxTaskName(ctx)
			names <- CtxTaskPath(ctx)
			return nil
		})))
		require.NoError(t, h.Wait(context.Background()))
		require.Equal(t, "worker", h.Name())
		require.Equal(t, "worker", <-names)
		require.Equal(t, "worker", <-names)
		require.NotEqual(t, h.ID(), GoFunc(context.Background(), func(context.Context) error { return nil }).ID())
	})
	t.Run("waiting gives up with the context", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		h := GoFunc(context.Background(), func(ctx context.Context) error {
			<-release
			return nil
		})
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		require.ErrorIs(t, h.Wait(ctx), context.DeadlineExceeded)
		require.False(t, h.Done())
	})
	t.Run("unmanaged contexts have no task name", func(t *testing.T) {
		require.Equal(t, "[unmanaged]", CtxTaskName(context.Background()))
		require.Equal(t, "", CtxTaskPath(context.Background()))
	})
}
