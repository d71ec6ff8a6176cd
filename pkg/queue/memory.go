package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/dukex/eca/pkg/models"
)

type item struct {
	task      models.Task
	visibleAt time.Time
	seq       uint64
}

type items []item

func (h items) Len() int { return len(h) }

func (h items) Less(i, j int) bool {
	if !h[i].visibleAt.Equal(h[j].visibleAt) {
		return h[i].visibleAt.Before(h[j].visibleAt)
	}

	return h[i].seq < h[j].seq
}

func (h items) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *items) Push(x any) { *h = append(*h, x.(item)) }

func (h *items) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]

	return it
}

// MemoryStore is a process local Store ordered by visibility, then insertion.
type MemoryStore struct {
	mu    sync.Mutex
	items items
	seq   uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Push(_ context.Context, task models.Task, visibleAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	heap.Push(&s.items, item{task: task, visibleAt: visibleAt, seq: s.seq})

	return nil
}

func (s *MemoryStore) Pop(_ context.Context, now time.Time) (models.Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 || s.items[0].visibleAt.After(now) {
		return models.Task{}, false, nil
	}

	it := heap.Pop(&s.items).(item)

	return it.task, true, nil
}

func (s *MemoryStore) Len(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.items), nil
}
