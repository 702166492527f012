package monitor

import "sync"

// Queue is the injection queue: FIFO, unbounded, safe for multiple producers
// and a single consumer. Enqueue and dequeue are atomic with respect to each
// other; the consumer drains non-blockingly via TryPop.
type Queue struct {
	mu   sync.Mutex
	msgs []string
}

// NewQueue creates an empty injection queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends a message to the queue.
func (q *Queue) Push(msg string) {
	q.mu.Lock()
	q.msgs = append(q.msgs, msg)
	q.mu.Unlock()
}

// TryPop removes and returns the oldest message without blocking.
func (q *Queue) TryPop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.msgs) == 0 {
		return "", false
	}
	msg := q.msgs[0]
	q.msgs = q.msgs[1:]
	return msg, true
}

// Len returns the number of pending messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs)
}
