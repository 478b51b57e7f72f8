// Package csp provides rendezvous channels with a multi-way Select,
// plus a few helpers for launching and supervising the goroutines that use them.
//
// A Channel is a queue of fixed capacity that blocks producers while it's full
// and consumers while it's empty.  Select registers several channel operations
// at once and commits exactly one of them; every operation that loses is taken
// back out of its channel before Select returns.
//
// Whether a channel operation blocks or becomes a select case is decided by the
// Context it's called with: Select hands its body a Context that makes operations
// register instead of block.  There's no goroutine-local state anywhere.
//
//	err := csp.Select(ctx, func(ctx csp.Context, c *csp.Cases) error {
//		if err := jobs.ReceiveAndThen(ctx, func(o csp.Outcome[Job]) error {
//			return handle(o.Value)
//		}); err != nil {
//			return err
//		}
//		c.Timeout(time.Second, nil)
//		return nil
//	})
package csp
