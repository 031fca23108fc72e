package dag

import "sync"

// ReadyQueue is a concurrent FIFO of actions whose dependencies are all Done.
// An action can be queued at most once per run.
type ReadyQueue struct {
	mu    sync.Mutex
	items []*Action
	head  int
}

// NewReadyQueue creates a queue with room for capacity actions.
func NewReadyQueue(capacity int) *ReadyQueue {
	return &ReadyQueue{items: make([]*Action, 0, capacity)}
}

// Push marks a Ready and appends it. It returns false, leaving the queue
// unchanged, if a was not Pending.
func (q *ReadyQueue) Push(a *Action) bool {
	if !a.transition(StatusPending, StatusReady) {
		return false
	}
	q.mu.Lock()
	q.items = append(q.items, a)
	q.mu.Unlock()
	return true
}

// Pop removes the oldest action. It never blocks and returns false when the
// queue is empty.
func (q *ReadyQueue) Pop() (*Action, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == len(q.items) {
		return nil, false
	}
	a := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return a, true
}

// Len returns the number of queued actions.
func (q *ReadyQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}
