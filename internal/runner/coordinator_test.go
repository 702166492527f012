package runner

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/sessionwatch/internal/event"
	"github.com/opencode-ai/sessionwatch/internal/monitor"
	"github.com/opencode-ai/sessionwatch/internal/session"
	"github.com/opencode-ai/sessionwatch/pkg/types"
)

func TestDrainOne_EmptyQueue(t *testing.T) {
	store := session.NewMemoryStore(nil)
	key := newSession(t, store)
	c := NewCoordinator(NewScriptedRunner(store), monitor.NewQueue(), nil)

	injected, err := c.DrainOne(context.Background(), key, nil)
	require.NoError(t, err)
	assert.False(t, injected)

	sess, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Empty(t, sess.Events)
}

func TestDrainOne_AtMostOnePerBoundary(t *testing.T) {
	store := session.NewMemoryStore(nil)
	key := newSession(t, store)

	queue := monitor.NewQueue()
	queue.Push("first warning")
	queue.Push("second warning")
	queue.Push("third warning")

	c := NewCoordinator(NewScriptedRunner(store), queue, nil)

	injected, err := c.DrainOne(context.Background(), key, nil)
	require.NoError(t, err)
	assert.True(t, injected)
	assert.Equal(t, 2, queue.Len(), "one boundary drains one message")

	sess, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, sess.Events, 2)
	assert.Equal(t, "first warning", sess.Events[0].Text())

	// Later boundaries deliver the rest in order.
	_, err = c.DrainOne(context.Background(), key, nil)
	require.NoError(t, err)
	_, err = c.DrainOne(context.Background(), key, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, queue.Len())

	sess, err = store.Get(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, sess.Events, 6)
	assert.Equal(t, "second warning", sess.Events[2].Text())
	assert.Equal(t, "third warning", sess.Events[4].Text())
}

func TestDrainOne_PublishesDelivery(t *testing.T) {
	store := session.NewMemoryStore(nil)
	key := newSession(t, store)
	bus := event.NewBus()
	defer bus.Close()

	var delivered []event.Event
	unsub := bus.Subscribe(event.InjectionDelivered, func(ev event.Event) {
		delivered = append(delivered, ev)
	})
	defer unsub()

	queue := monitor.NewQueue()
	queue.Push("heads up")
	c := NewCoordinator(NewScriptedRunner(store), queue, bus)

	injected, err := c.DrainOne(context.Background(), key, nil)
	require.NoError(t, err)
	require.True(t, injected)

	require.Len(t, delivered, 1)
	data := delivered[0].Data.(event.InjectionData)
	assert.Equal(t, key, data.Key)
	assert.Equal(t, "heads up", data.Message)
}

// Drives a full loop: a scripted turn produces a risky reply, a running
// monitor picks it up and queues a warning, and the coordinator injects it at
// the next boundary.
func TestCoordinator_MonitorLoop_InjectsWarning(t *testing.T) {
	store := session.NewMemoryStore(nil)
	key := newSession(t, store)

	queue := monitor.NewQueue()
	nudge := make(chan struct{}, 1)
	m := monitor.New(monitor.Config{
		Store:    store,
		Key:      key,
		Detector: monitor.NewTriggerDetector(monitor.NewBudget(3)),
		Queue:    queue,
		Interval: time.Hour, // only nudges advance the loop
		Nudge:    nudge,
	})
	require.NoError(t, m.Start())
	defer m.Stop()

	runner := NewScriptedRunner(store, "Here you go:\n```\nrm -rf /tmp/build\n```")
	c := NewCoordinator(runner, queue, nil)

	ctx := context.Background()
	require.NoError(t, c.RunTurn(ctx, key, "Write a cleanup script", nil))

	nudge <- struct{}{}
	require.Eventually(t, func() bool { return queue.Len() > 0 },
		2*time.Second, 10*time.Millisecond, "monitor should queue a warning")

	injected, err := c.DrainOne(ctx, key, nil)
	require.NoError(t, err)
	assert.True(t, injected)

	sess, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.Len(t, sess.Events, 4)

	assert.Equal(t, types.RoleUser, sess.Events[0].Role)
	assert.Equal(t, types.RoleModel, sess.Events[1].Role)
	assert.Equal(t, types.RoleUser, sess.Events[2].Role)
	assert.True(t, strings.Contains(sess.Events[2].Text(), "SAFETY WARNING"))
	assert.Equal(t, types.RoleModel, sess.Events[3].Role)
}

func TestCoordinator_MonitorLoop_BenignTurnStaysClean(t *testing.T) {
	store := session.NewMemoryStore(nil)
	key := newSession(t, store)

	queue := monitor.NewQueue()
	nudge := make(chan struct{}, 1)
	m := monitor.New(monitor.Config{
		Store:    store,
		Key:      key,
		Detector: monitor.NewTriggerDetector(monitor.NewBudget(3)),
		Queue:    queue,
		Interval: time.Hour,
		Nudge:    nudge,
	})
	require.NoError(t, m.Start())
	defer m.Stop()

	runner := NewScriptedRunner(store, "The weather in Paris is mild today.")
	c := NewCoordinator(runner, queue, nil)

	ctx := context.Background()
	require.NoError(t, c.RunTurn(ctx, key, "What's the weather like?", nil))

	nudge <- struct{}{}
	require.Eventually(t, func() bool { return m.Cursor() == 2 },
		2*time.Second, 10*time.Millisecond, "monitor should process both events")

	injected, err := c.DrainOne(ctx, key, nil)
	require.NoError(t, err)
	assert.False(t, injected)

	sess, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Len(t, sess.Events, 2)
}

func TestConverse_DrainsBetweenTurns(t *testing.T) {
	store := session.NewMemoryStore(nil)
	key := newSession(t, store)

	queue := monitor.NewQueue()
	queue.Push("note from the monitor")

	c := NewCoordinator(NewScriptedRunner(store, "reply one", "reply two", "reply three"), queue, nil)
	require.NoError(t, c.Converse(context.Background(), key, nil, "turn one", "turn two"))

	sess, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	// turn one, injection, turn two: three runner turns, two events each.
	require.Len(t, sess.Events, 6)
	assert.Equal(t, "turn one", sess.Events[0].Text())
	assert.Equal(t, "note from the monitor", sess.Events[2].Text())
	assert.Equal(t, "turn two", sess.Events[4].Text())
}
