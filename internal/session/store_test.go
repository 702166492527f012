package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/sessionwatch/pkg/types"
)

var testKey = types.SessionKey{AppID: "demo_app", UserID: "user123", SessionID: "session_001"}

// storeUnderTest runs the shared Store contract tests against an implementation.
func storeUnderTest(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		sess, err := store.Create(ctx, testKey)
		require.NoError(t, err)
		assert.Equal(t, testKey, sess.Key())
		assert.Empty(t, sess.Events)

		got, err := store.Get(ctx, testKey)
		require.NoError(t, err)
		assert.Equal(t, testKey, got.Key())
	})

	t.Run("create duplicate", func(t *testing.T) {
		_, err := store.Create(ctx, testKey)
		assert.ErrorIs(t, err, ErrExists)
	})

	t.Run("get absent", func(t *testing.T) {
		_, err := store.Get(ctx, types.SessionKey{AppID: "x", UserID: "y", SessionID: "z"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("append preserves order", func(t *testing.T) {
		for i, text := range []string{"first", "second", "third"} {
			ev := types.TextEvent(NewID(), types.RoleUser, text, int64(i))
			require.NoError(t, store.AppendEvent(ctx, testKey, ev))
		}

		got, err := store.Get(ctx, testKey)
		require.NoError(t, err)
		require.Len(t, got.Events, 3)
		assert.Equal(t, "first", got.Events[0].Text())
		assert.Equal(t, "second", got.Events[1].Text())
		assert.Equal(t, "third", got.Events[2].Text())
	})

	t.Run("get returns a copy", func(t *testing.T) {
		a, err := store.Get(ctx, testKey)
		require.NoError(t, err)
		before := len(a.Events)

		require.NoError(t, store.AppendEvent(ctx, testKey, types.TextEvent(NewID(), types.RoleModel, "later", 9)))

		// The earlier snapshot must not grow.
		assert.Len(t, a.Events, before)
	})

	t.Run("append to absent session", func(t *testing.T) {
		err := store.AppendEvent(ctx, types.SessionKey{AppID: "nope"}, types.TextEvent(NewID(), types.RoleUser, "x", 0))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("state", func(t *testing.T) {
		require.NoError(t, store.PutState(ctx, testKey, "phase", "active"))
		got, err := store.Get(ctx, testKey)
		require.NoError(t, err)
		assert.Equal(t, "active", got.State["phase"])
	})

	t.Run("list", func(t *testing.T) {
		keys, err := store.List(ctx, "demo_app")
		require.NoError(t, err)
		require.Len(t, keys, 1)
		assert.Equal(t, testKey, keys[0])

		keys, err = store.List(ctx, "other_app")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, testKey))
		_, err := store.Get(ctx, testKey)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, store.Delete(ctx, testKey), ErrNotFound)
	})
}

func TestMemoryStore(t *testing.T) {
	storeUnderTest(t, NewMemoryStore(nil))
}

func TestFileStore(t *testing.T) {
	storeUnderTest(t, NewFileStore(t.TempDir(), nil))
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store := NewFileStore(dir, nil)
	_, err := store.Create(ctx, testKey)
	require.NoError(t, err)
	require.NoError(t, store.AppendEvent(ctx, testKey, types.TextEvent(NewID(), types.RoleUser, "persist me", 1)))

	reopened := NewFileStore(dir, nil)
	got, err := reopened.Get(ctx, testKey)
	require.NoError(t, err)
	require.Len(t, got.Events, 1)
	assert.Equal(t, "persist me", got.Events[0].Text())
}

func TestWatcher_NudgesOnAppend(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir(), nil)

	w, err := NewWatcher(store, testKey)
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	_, err = store.Create(ctx, testKey)
	require.NoError(t, err)
	require.NoError(t, store.AppendEvent(ctx, testKey, types.TextEvent(NewID(), types.RoleUser, "hello", 1)))

	select {
	case <-w.Nudge():
	case <-time.After(2 * time.Second):
		t.Fatal("expected a nudge after session write")
	}
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	store := NewFileStore(t.TempDir(), nil)
	w, err := NewWatcher(store, testKey)
	require.NoError(t, err)
	require.NoError(t, w.Stop())
}

func TestWatcher_ConcurrentStop(t *testing.T) {
	store := NewFileStore(t.TempDir(), nil)
	w, err := NewWatcher(store, testKey)
	require.NoError(t, err)
	w.Start()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Stop()
		}()
	}
	wg.Wait()
}
