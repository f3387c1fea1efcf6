package journal

import "sync"

// queue is an unbounded FIFO ring that doubles its capacity once it is 70%
// full. Push never blocks, so recording stays off the dispatch hot path.
type queue[T any] struct {
	mu     sync.Mutex
	ring   []T
	head   int
	count  int
	closed bool

	pushed  int64
	drained int64
	grows   int
}

// QueueStats describes queue occupancy.
type QueueStats struct {
	Len     int   `json:"len"`
	Cap     int   `json:"cap"`
	Pushed  int64 `json:"pushed"`
	Drained int64 `json:"drained"`
	Grows   int   `json:"grows"`
}

func newQueue[T any](capacity int) *queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &queue[T]{ring: make([]T, capacity)}
}

// Push appends item. It returns false once the queue is closed.
func (q *queue[T]) Push(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if limit := max(len(q.ring)*7/10, 1); q.count+1 >= limit {
		q.grow()
	}

	q.ring[(q.head+q.count)%len(q.ring)] = item
	q.count++
	q.pushed++
	return true
}

// Drain removes up to limit items in FIFO order. limit <= 0 drains all.
func (q *queue[T]) Drain(limit int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.count
	if n == 0 {
		return nil
	}
	if limit > 0 && limit < n {
		n = limit
	}

	var zero T
	out := make([]T, n)
	for i := range out {
		out[i] = q.ring[q.head]
		q.ring[q.head] = zero
		q.head = (q.head + 1) % len(q.ring)
	}
	q.count -= n
	q.drained += int64(n)
	return out
}

// Close rejects further pushes. Queued items stay drainable.
func (q *queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

func (q *queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

func (q *queue[T]) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Len:     q.count,
		Cap:     len(q.ring),
		Pushed:  q.pushed,
		Drained: q.drained,
		Grows:   q.grows,
	}
}

// grow doubles the ring and unwraps it. Caller holds mu.
func (q *queue[T]) grow() {
	next := make([]T, len(q.ring)*2)
	for i := 0; i < q.count; i++ {
		next[i] = q.ring[(q.head+i)%len(q.ring)]
	}
	q.ring = next
	q.head = 0
	q.grows++
}
