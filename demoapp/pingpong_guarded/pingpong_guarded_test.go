package pingpong

// This ping-pong implementation uses csp channels and Select.
// You could also implement a similar thing using golang channels directly,
// but you'd be wiring up the quit signal in every select yourself.

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warpfork/go-csp"
)

func TestPingpong(t *testing.T) {
	pingToPong := csp.MustChannel[Msg](0)
	pongToPing := csp.MustChannel[Msg](1)
	var log transcript

	pinger := &Actor{
		wiring: Wiring{Inbox: pongToPing, Outbox: pingToPong},
		config: Config{Rounds: 3},
		log:    &log,
	}
	ponger := &Actor{
		wiring: Wiring{Inbox: pingToPong, Outbox: pongToPing},
		config: Config{Ponger: true},
		log:    &log,
	}

	// Serve the first ball.
	require.NoError(t, pongToPing.Push(context.Background(), Msg{}))

	err := csp.SuperviseRoot(context.Background(),
		csp.SuperviseForkJoin("pingpong", []csp.Task{
			csp.TaskWithName("pinger", csp.TaskOfSteppedTask(pinger)),
			csp.TaskWithName("ponger", csp.TaskOfSteppedTask(ponger)),
		}),
	)
	require.NoError(t, err)
	require.Equal(t, []string{
		"Ping 1 from pinger!",
		"Pong 1 from ponger!",
		"Ping 2 from pinger!",
		"Pong 2 from ponger!",
		"Ping 3 from pinger!",
		"Pong 3 from ponger!",
	}, log.Lines())
}

type Actor struct {
	wiring Wiring
	config Config
	log    *transcript
}

type Wiring struct {
	Inbox  *csp.Channel[Msg]
	Outbox *csp.Channel[Msg]
}

type Config struct {
	Ponger bool
	Rounds int // Pinger only.  The pinger hangs up after this many rounds.
}

type Msg struct {
	Increment int
}

func (a *Actor) RunStep(ctx csp.Context) error {
	// Might not look like much of a "select", with only one case in it!
	// But it *is* still technically a select, because we're implicitly also considering if it's time to quit:
	// Select gives up as soon as ctx is cancelled.
	return csp.Select(ctx, func(sctx csp.Context, _ *csp.Cases) error {
		return a.wiring.Inbox.ReceiveAndThen(sctx, func(o csp.Outcome[Msg]) error {
			if !o.Ok {
				// Our partner hung up.  That's the end of the game, not an error.
				return csp.ErrEndOfStream
			}
			m := o.Value
			// This switch is just regular business logic -- processing the demo message.
			switch {
			case a.config.Ponger:
				a.log.Printf("Pong %d from %s!", m.Increment, csp.CtxTaskName(ctx))
			default:
				m.Increment++
				if m.Increment > a.config.Rounds {
					a.wiring.Outbox.Close()
					return csp.ErrEndOfStream
				}
				a.log.Printf("Ping %d from %s!", m.Increment, csp.CtxTaskName(ctx))
			}
			// The callback runs after the select is over, so this is a plain blocking push
			// (which still gives up if ctx is cancelled).
			return a.wiring.Outbox.Push(ctx, m)
		})
	})
}

type transcript struct {
	mu    sync.Mutex
	lines []string
}

func (t *transcript) Printf(format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, fmt.Sprintf(format, args...))
}

func (t *transcript) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.lines...)
}
