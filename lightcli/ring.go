package lightcli

import "iter"

// Ring is a fixed-capacity FIFO queue. Storage is allocated once by
// NewRing and never grows; Enqueue on a full ring fails instead of
// overwriting or dropping.
//
// A Ring is not safe for concurrent use. It is owned by exactly one
// component (the Tokenizer for input, the Output for output).
type Ring[T any] struct {
	buf  []T
	head int // index of the oldest item
	n    int // number of items held
}

// NewRing creates a ring holding at most capacity items.
// It panics if capacity is not positive.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("lightcli: ring capacity must be positive")
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Enqueue appends v. It returns an error matching ErrCapacityExceeded when
// the ring is full; the ring is left unchanged in that case.
func (r *Ring[T]) Enqueue(v T) error {
	if r.n == len(r.buf) {
		return &Error{Kind: KindCapacityExceeded, Op: "enqueue", Capacity: len(r.buf)}
	}
	r.buf[(r.head+r.n)%len(r.buf)] = v
	r.n++
	return nil
}

// Dequeue removes and returns the oldest item.
func (r *Ring[T]) Dequeue() (T, bool) {
	var zero T
	if r.n == 0 {
		return zero, false
	}
	v := r.buf[r.head]
	r.buf[r.head] = zero
	r.head = (r.head + 1) % len(r.buf)
	r.n--
	return v, true
}

// Peek returns the oldest item without removing it.
func (r *Ring[T]) Peek() (T, bool) {
	return r.PeekAt(0)
}

// PeekAt returns the i-th oldest item without removing anything.
func (r *Ring[T]) PeekAt(i int) (T, bool) {
	if i < 0 || i >= r.n {
		var zero T
		return zero, false
	}
	return r.buf[(r.head+i)%len(r.buf)], true
}

// Discard removes up to n of the oldest items and returns how many were
// removed.
func (r *Ring[T]) Discard(n int) int {
	if n > r.n {
		n = r.n
	}
	var zero T
	for i := 0; i < n; i++ {
		r.buf[r.head] = zero
		r.head = (r.head + 1) % len(r.buf)
	}
	r.n -= n
	return n
}

// All iterates over the held items from oldest to newest. Iteration does
// not modify the ring.
func (r *Ring[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := 0; i < r.n; i++ {
			if !yield(r.buf[(r.head+i)%len(r.buf)]) {
				return
			}
		}
	}
}

// Len returns the number of items held.
func (r *Ring[T]) Len() int { return r.n }

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// IsEmpty reports whether the ring holds no items.
func (r *Ring[T]) IsEmpty() bool { return r.n == 0 }

// IsFull reports whether Enqueue would fail.
func (r *Ring[T]) IsFull() bool { return r.n == len(r.buf) }

// Reset drops every item.
func (r *Ring[T]) Reset() {
	r.Discard(r.n)
	r.head = 0
}
