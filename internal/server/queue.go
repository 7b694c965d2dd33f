package server

import "sync"

// MatchmakingQueue is the FIFO of connections waiting for an opponent
type MatchmakingQueue struct {
	mu      sync.Mutex
	waiting []*Connection
}

// NewMatchmakingQueue creates an empty queue
func NewMatchmakingQueue() *MatchmakingQueue {
	return &MatchmakingQueue{}
}

// Add enqueues a connection at the tail
func (q *MatchmakingQueue) Add(c *Connection) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.waiting = append(q.waiting, c)
}

// Contains reports whether a connection with the given ID is waiting
func (q *MatchmakingQueue) Contains(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, c := range q.waiting {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Remove drops the connection with the given ID, keeping arrival order.
// Returns false if it was not queued.
func (q *MatchmakingQueue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, c := range q.waiting {
		if c.ID == id {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			return true
		}
	}
	return false
}

// TakePair dequeues the two longest-waiting connections. Returns ok=false
// without mutating the queue when fewer than two are waiting.
func (q *MatchmakingQueue) TakePair() (p1, p2 *Connection, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.waiting) < 2 {
		return nil, nil, false
	}
	p1, p2 = q.waiting[0], q.waiting[1]
	q.waiting = q.waiting[2:]
	return p1, p2, true
}

// Len returns the number of waiting connections
func (q *MatchmakingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}
