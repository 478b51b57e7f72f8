package csp

import (
	"context"
	"fmt"
)

// TasksFromSlice makes one Task per element of the slice.
// Each task is named by its index.
func TasksFromSlice[V any](theSlice []V, taskFn func(context.Context, V) error) []Task {
	tasks := make([]Task, len(theSlice))
	for i, v := range theSlice {
		tasks[i] = TaskWithName(fmt.Sprintf("%d", i), TaskOfFunc(func(ctx Context) error {
			return taskFn(ctx, v)
		}))
	}
	return tasks
}

// TasksFromMap makes one Task per entry of the map.
// Each task is named by its key.
func TasksFromMap[K comparable, V any](theMap map[K]V, taskFn func(ctx context.Context, k K, v V) error) []Task {
	tasks := make([]Task, 0, len(theMap))
	for k, v := range theMap {
		tasks = append(tasks, mapEntryTask[K, V]{k, v, taskFn})
	}
	return tasks
}

type mapEntryTask[K comparable, V any] struct {
	k  K
	v  V
	fn func(ctx context.Context, k K, v V) error
}

func (t mapEntryTask[K, V]) Run(ctx context.Context) error {
	return t.fn(ctx, t.k, t.v)
}

func (t mapEntryTask[K, V]) Name() string {
	return fmt.Sprintf("%v", t.k)
}

// TaskStream returns a closed Channel holding the given tasks, in order,
// ready to be handed to SuperviseStream.
func TaskStream(tasks ...Task) *Channel[Task] {
	ch := MustChannel[Task](len(tasks))
	for _, t := range tasks {
		// Can't block or fail: there's exactly enough room, and nobody else has the channel yet.
		if err := ch.Push(context.Background(), t); err != nil {
			panic(err)
		}
	}
	ch.Close()
	return ch
}
