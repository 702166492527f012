package monitor

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue()
	q.Push("first")
	q.Push("second")
	q.Push("third")

	require.Equal(t, 3, q.Len())

	for _, want := range []string{"first", "second", "third"} {
		got, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := q.TryPop()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_TryPopEmpty(t *testing.T) {
	q := NewQueue()
	msg, ok := q.TryPop()
	assert.False(t, ok)
	assert.Empty(t, msg)
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := NewQueue()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			q.Push(fmt.Sprintf("msg-%d", n))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, q.Len())

	seen := make(map[string]bool)
	for {
		msg, ok := q.TryPop()
		if !ok {
			break
		}
		require.False(t, seen[msg], "duplicate message %s", msg)
		seen[msg] = true
	}
	assert.Len(t, seen, 20)
}
