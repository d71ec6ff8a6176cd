// Package queuetest checks queue.Store implementations against the behaviour the queue
// relies on.
package queuetest

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dukex/eca/pkg/models"
	"github.com/dukex/eca/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStore runs the store conformance checks. newStore must return an empty store.
func TestStore(t *testing.T, newStore func(t *testing.T) queue.Store) {
	t.Helper()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Truncate(time.Millisecond)

	t.Run("empty", func(t *testing.T) {
		store := newStore(t)

		_, ok, err := store.Pop(t.Context(), now)
		require.NoError(t, err)
		assert.False(t, ok)

		n, err := store.Len(t.Context())
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("round trip", func(t *testing.T) {
		store := newStore(t)

		value := "7"
		task := models.Task{
			ID:         "a",
			Name:       "publish",
			Value:      &value,
			Data:       map[string]any{"title": "draft", "tags": []any{"x"}},
			NotBefore:  now.Add(time.Minute),
			EnqueuedAt: now,
		}

		require.NoError(t, store.Push(t.Context(), task, now))

		n, err := store.Len(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		got, ok, err := store.Pop(t.Context(), now)
		require.NoError(t, err)
		require.True(t, ok)

		assert.Equal(t, task.ID, got.ID)
		assert.Equal(t, task.Name, got.Name)
		assert.Equal(t, "7", got.ValueOrEmpty())
		assert.Equal(t, task.Data, got.Data)
		assert.True(t, task.NotBefore.Equal(got.NotBefore))

		_, ok, err = store.Pop(t.Context(), now)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("visibility order", func(t *testing.T) {
		store := newStore(t)

		require.NoError(t, store.Push(t.Context(), models.Task{ID: "late", Name: "late"}, now.Add(2*time.Second)))
		require.NoError(t, store.Push(t.Context(), models.Task{ID: "early", Name: "early"}, now.Add(time.Second)))
		require.NoError(t, store.Push(t.Context(), models.Task{ID: "hidden", Name: "hidden"}, now.Add(time.Hour)))

		_, ok, err := store.Pop(t.Context(), now)
		require.NoError(t, err)
		assert.False(t, ok, "nothing is visible yet")

		later := now.Add(5 * time.Second)

		first, ok, err := store.Pop(t.Context(), later)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "early", first.ID)

		second, ok, err := store.Pop(t.Context(), later)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "late", second.ID)

		_, ok, err = store.Pop(t.Context(), later)
		require.NoError(t, err)
		assert.False(t, ok)

		n, err := store.Len(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("concurrent pop delivers each task once", func(t *testing.T) {
		store := newStore(t)

		const total = 50
		for i := range total {
			task := models.Task{ID: fmt.Sprintf("task-%d", i), Name: "t"}
			require.NoError(t, store.Push(t.Context(), task, now))
		}

		var (
			mu   sync.Mutex
			seen = map[string]int{}
			wg   sync.WaitGroup
		)

		for range 5 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				for {
					task, ok, err := store.Pop(t.Context(), now)
					if err != nil || !ok {
						return
					}

					mu.Lock()
					seen[task.ID]++
					mu.Unlock()
				}
			}()
		}

		wg.Wait()

		assert.Len(t, seen, total)
		for id, count := range seen {
			assert.Equal(t, 1, count, "task %s popped more than once", id)
		}
	})
}
