// README: FIFO queue of pending orders with head-requeue for rejections.
package order

import (
	"sync"
	"time"

	"courier/internal/types"
)

type queueItem struct {
	id         types.ID
	enqueuedAt time.Time
}

// Queue keeps pending order IDs in arrival order. A rejected order goes
// back to the head with its original timestamp so it does not lose its
// place behind newer orders.
type Queue struct {
	mu    sync.Mutex
	items []queueItem
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Enqueue(id types.ID, at time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, queueItem{id: id, enqueuedAt: at})
}

// RequeueAtHead puts the order at the front of the queue, keeping its
// original enqueue time for wait accounting.
func (q *Queue) RequeueAtHead(id types.ID, at time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append([]queueItem{{id: id, enqueuedAt: at}}, q.items...)
}

// Peek returns up to n order IDs from the head without removing them.
func (q *Queue) Peek(n int) []types.ID {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n > len(q.items) {
		n = len(q.items)
	}
	out := make([]types.ID, 0, n)
	for _, item := range q.items[:n] {
		out = append(out, item.id)
	}
	return out
}

// Remove deletes the order from the queue wherever it sits.
func (q *Queue) Remove(id types.ID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, item := range q.items {
		if item.id == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Position returns the order's 1-based place in the queue, or 0 if it is
// not queued.
func (q *Queue) Position(id types.ID) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, item := range q.items {
		if item.id == id {
			return i + 1
		}
	}
	return 0
}

// AvgWaitMinutes is the mean time queued orders have been waiting.
func (q *Queue) AvgWaitMinutes(now time.Time) float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return 0
	}
	var total float64
	for _, item := range q.items {
		total += now.Sub(item.enqueuedAt).Minutes()
	}
	return total / float64(len(q.items))
}
