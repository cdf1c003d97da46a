package texture

import "sync"

// uploadQueue is an unbounded FIFO with many producers and a
// single consumer.
type uploadQueue struct {
	mu    sync.Mutex
	items []*Upload
	head  int
}

func (q *uploadQueue) enqueue(u *Upload) {
	q.mu.Lock()
	q.items = append(q.items, u)
	q.mu.Unlock()
}

// tryDequeue returns the oldest Upload, or nil if q is empty.
func (q *uploadQueue) tryDequeue() *Upload {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == len(q.items) {
		return nil
	}
	u := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return u
}

func (q *uploadQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}
