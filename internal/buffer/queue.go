package buffer

import (
	"sync"
)

// Queue is a thread-safe FIFO backed by a ring that doubles its capacity
// when full. With a positive limit the queue never holds more than limit
// items: pushing onto a full queue evicts the oldest item.
type Queue[T any] struct {
	mu    sync.Mutex
	buf   []T
	head  int // read position
	tail  int // write position
	count int
	limit int // 0 = unbounded

	// Stats
	totalPushed  int64
	totalPopped  int64
	totalEvicted int64
	resizeCount  int
}

// Stats contains queue statistics.
type Stats struct {
	Count        int
	Capacity     int
	Limit        int
	TotalPushed  int64
	TotalPopped  int64
	TotalEvicted int64
	ResizeCount  int
}

// NewQueue creates a queue holding at most limit items. A limit of zero or
// less means the queue grows without bound.
func NewQueue[T any](limit int) *Queue[T] {
	if limit < 0 {
		limit = 0
	}
	initial := 8
	if limit > 0 && limit < initial {
		initial = limit
	}
	return &Queue[T]{
		buf:   make([]T, initial),
		limit: limit,
	}
}

// Push appends item at the tail. If the queue is at its limit the oldest
// item is dropped first and evicted is true.
func (q *Queue[T]) Push(item T) (evicted bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.limit > 0 && q.count >= q.limit {
		q.popLocked()
		q.totalEvicted++
		evicted = true
	}
	if q.count == len(q.buf) {
		q.grow()
	}

	q.buf[q.tail] = item
	q.tail = (q.tail + 1) % len(q.buf)
	q.count++
	q.totalPushed++
	return evicted
}

// Pop removes and returns the head item, or false if the queue is empty.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		var zero T
		return zero, false
	}
	item := q.popLocked()
	q.totalPopped++
	return item, true
}

// Peek returns the head item without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		var zero T
		return zero, false
	}
	return q.buf[q.head], true
}

// Drain removes and returns every queued item in FIFO order.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil
	}
	result := make([]T, 0, q.count)
	for q.count > 0 {
		result = append(result, q.popLocked())
		q.totalPopped++
	}
	return result
}

// Clear discards all queued items and returns how many were dropped.
func (q *Queue[T]) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.count
	clear(q.buf)
	q.head, q.tail, q.count = 0, 0, 0
	return n
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Limit returns the configured maximum length (0 = unbounded).
func (q *Queue[T]) Limit() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.limit
}

// Stats returns queue statistics.
func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Count:        q.count,
		Capacity:     len(q.buf),
		Limit:        q.limit,
		TotalPushed:  q.totalPushed,
		TotalPopped:  q.totalPopped,
		TotalEvicted: q.totalEvicted,
		ResizeCount:  q.resizeCount,
	}
}

// popLocked removes the head item. Must be called with lock held and count > 0.
func (q *Queue[T]) popLocked() T {
	item := q.buf[q.head]
	var zero T
	q.buf[q.head] = zero // Clear reference for GC
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return item
}

// grow doubles the ring capacity, capped at the limit. Must be called with lock held.
func (q *Queue[T]) grow() {
	newCapacity := len(q.buf) * 2
	if newCapacity == 0 {
		newCapacity = 1
	}
	if q.limit > 0 && newCapacity > q.limit {
		newCapacity = q.limit
	}
	newBuf := make([]T, newCapacity)

	// Unroll [head...end) + [0...tail) into the new ring
	if q.count > 0 {
		if q.head < q.tail {
			copy(newBuf, q.buf[q.head:q.tail])
		} else {
			n := copy(newBuf, q.buf[q.head:])
			copy(newBuf[n:], q.buf[:q.tail])
		}
	}

	q.buf = newBuf
	q.head = 0
	q.tail = q.count % newCapacity
	q.resizeCount++
}
