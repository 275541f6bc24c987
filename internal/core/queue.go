package core

import "sync"

// ReturnQueue holds the values mocks return when they are not spying, per mock name.
type ReturnQueue interface {
	Enqueue(mock string, value any)
	DequeueNext(mock string) (any, bool)
	Clear(mock string)
}

// Queue is the default ReturnQueue: one FIFO per mock name.
type Queue struct {
	mu     sync.Mutex
	values map[string][]any
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{values: make(map[string][]any)}
}

// Clear drops every value queued for mock.
func (q *Queue) Clear(mock string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.values, mock)
}

// DequeueNext pops the oldest value queued for mock.
func (q *Queue) DequeueNext(mock string) (any, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := q.values[mock]
	if len(pending) == 0 {
		return nil, false
	}

	q.values[mock] = pending[1:]

	return pending[0], true
}

// Enqueue appends value to mock's queue.
func (q *Queue) Enqueue(mock string, value any) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.values[mock] = append(q.values[mock], value)
}

// Len reports how many values are queued for mock.
func (q *Queue) Len(mock string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.values[mock])
}
