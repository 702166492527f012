package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/sessionwatch/internal/session"
	"github.com/opencode-ai/sessionwatch/pkg/types"
)

func newSession(t *testing.T, store session.Store) types.SessionKey {
	t.Helper()
	key := types.SessionKey{AppID: "demo_app", UserID: "user123", SessionID: session.NewID()}
	_, err := store.Create(context.Background(), key)
	require.NoError(t, err)
	return key
}

func TestScriptedRunner_AppendsUserAndModelEvents(t *testing.T) {
	store := session.NewMemoryStore(nil)
	key := newSession(t, store)
	r := NewScriptedRunner(store, "Sure, writing the script now.")

	var streamed []types.Event
	err := r.Run(context.Background(), key, "Write me a cleanup script", func(ev types.Event) {
		streamed = append(streamed, ev)
	})
	require.NoError(t, err)

	sess, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, sess.Events, 2)

	assert.Equal(t, types.RoleUser, sess.Events[0].Role)
	assert.Equal(t, "Write me a cleanup script", sess.Events[0].Text())
	assert.Equal(t, types.RoleModel, sess.Events[1].Role)
	assert.Equal(t, "Sure, writing the script now.", sess.Events[1].Text())

	require.Len(t, streamed, 2)
	assert.Equal(t, sess.Events[0].ID, streamed[0].ID)
	assert.Equal(t, sess.Events[1].ID, streamed[1].ID)
}

func TestScriptedRunner_RepliesInOrder(t *testing.T) {
	store := session.NewMemoryStore(nil)
	key := newSession(t, store)
	r := NewScriptedRunner(store, "first", "second")

	ctx := context.Background()
	require.NoError(t, r.Run(ctx, key, "one", nil))
	require.NoError(t, r.Run(ctx, key, "two", nil))

	sess, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.Len(t, sess.Events, 4)
	assert.Equal(t, "first", sess.Events[1].Text())
	assert.Equal(t, "second", sess.Events[3].Text())
}

func TestScriptedRunner_ExhaustedScriptFallsBack(t *testing.T) {
	store := session.NewMemoryStore(nil)
	key := newSession(t, store)
	r := NewScriptedRunner(store)

	require.NoError(t, r.Run(context.Background(), key, "hello", nil))

	sess, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, sess.Events, 2)
	assert.Equal(t, DefaultScriptedReply, sess.Events[1].Text())
}

func TestScriptedRunner_AbsentSession(t *testing.T) {
	store := session.NewMemoryStore(nil)
	key := types.SessionKey{AppID: "demo_app", UserID: "user123", SessionID: "missing"}

	err := NewScriptedRunner(store).Run(context.Background(), key, "hello", nil)
	assert.ErrorIs(t, err, session.ErrNotFound)
}
