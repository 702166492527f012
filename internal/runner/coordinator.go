package runner

import (
	"context"

	"github.com/opencode-ai/sessionwatch/internal/event"
	"github.com/opencode-ai/sessionwatch/internal/logging"
	"github.com/opencode-ai/sessionwatch/internal/monitor"
	"github.com/opencode-ai/sessionwatch/pkg/types"
)

// Coordinator bridges monitor detections into the turn runner. The monitor
// never calls the runner directly; it queues messages, and the coordinator
// drains the queue at turn boundaries. This keeps a single writer on the
// session and prevents the monitor from racing an in-flight turn.
type Coordinator struct {
	runner TurnRunner
	queue  *monitor.Queue
	bus    *event.Bus
}

// NewCoordinator creates a coordinator over a runner and an injection queue.
// A nil bus disables injection event publishing.
func NewCoordinator(r TurnRunner, q *monitor.Queue, bus *event.Bus) *Coordinator {
	return &Coordinator{runner: r, queue: q, bus: bus}
}

// RunTurn executes one user-initiated turn.
func (c *Coordinator) RunTurn(ctx context.Context, key types.SessionKey, text string, onEvent func(types.Event)) error {
	return c.runner.Run(ctx, key, text, onEvent)
}

// DrainOne pops at most one queued message and injects it as a new user-role
// turn on the same session. It returns whether an injection happened. Calling
// it once per turn boundary bounds injections to one per turn, which keeps a
// chatty detector from flooding the conversation; remaining messages are
// delivered at later boundaries.
func (c *Coordinator) DrainOne(ctx context.Context, key types.SessionKey, onEvent func(types.Event)) (bool, error) {
	msg, ok := c.queue.TryPop()
	if !ok {
		return false, nil
	}

	logging.Info().Str("session", key.String()).Msg("injecting queued message")
	if err := c.runner.Run(ctx, key, msg, onEvent); err != nil {
		return false, err
	}

	if c.bus != nil {
		c.bus.PublishSync(event.Event{
			Type: event.InjectionDelivered,
			Data: event.InjectionData{Key: key, Message: msg},
		})
	}
	return true, nil
}

// Converse drives a multi-turn conversation, draining the injection queue
// once after each turn.
func (c *Coordinator) Converse(ctx context.Context, key types.SessionKey, onEvent func(types.Event), texts ...string) error {
	for _, text := range texts {
		if err := c.RunTurn(ctx, key, text, onEvent); err != nil {
			return err
		}
		if _, err := c.DrainOne(ctx, key, onEvent); err != nil {
			return err
		}
	}
	return nil
}
