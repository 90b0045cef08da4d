// Package queue provides the bounded in-memory queues backing the recorder's
// best-effort retry pipeline.
package queue

import "sync"

// Bounded is a concurrent-safe FIFO queue with a hard capacity. Pushing onto a
// full queue evicts the oldest element rather than blocking or failing, since
// losing the oldest pending record beats stalling the inbound event that
// produced the newest one.
type Bounded[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
}

// NewBounded creates a queue holding at most capacity elements.
// A non-positive capacity defaults to 1.
func NewBounded[T any](capacity int) *Bounded[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Bounded[T]{capacity: capacity}
}

// Push appends an item. If the queue is full it evicts and returns the oldest
// item with evicted=true.
func (q *Bounded[T]) Push(item T) (oldest T, evicted bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.capacity {
		oldest = q.items[0]
		q.items = append(q.items[1:], item)
		return oldest, true
	}
	q.items = append(q.items, item)
	return oldest, false
}

// Pop removes and returns the oldest item, or ok=false when empty.
func (q *Bounded[T]) Pop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return item, false
	}
	item = q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Len returns the current queue depth.
func (q *Bounded[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot copies the queued items oldest-first for inspection surfaces.
func (q *Bounded[T]) Snapshot() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]T, len(q.items))
	copy(out, q.items)
	return out
}
