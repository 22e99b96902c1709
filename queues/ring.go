package queues

import "math/bits"

const defaultCapacity = 16

// ring is the unsynchronized FIFO store behind ConcurrentQueue.
// Elements are held by value in a circular buffer whose length is always a power of two.
type ring[T any] struct {
	buf  []T // backing array, len(buf) is a power of two
	head int // index of the front element
	size int // number of stored elements
	mask int // len(buf) - 1, so idx & mask wraps
}

func newRing[T any](capacity int) *ring[T] {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	n := roundPow2(capacity)
	return &ring[T]{
		buf:  make([]T, n),
		mask: n - 1,
	}
}

// roundPow2 returns the smallest power of two >= n, for n >= 1.
func roundPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << uint(bits.Len(uint(n-1)))
}

// grow reallocates so that at least extra more elements fit, unwrapping the contents to index 0.
func (r *ring[T]) grow(extra int) {
	n := roundPow2(r.size + extra)
	buf := make([]T, n)
	r.copyTo(buf)
	clear(r.buf)
	r.buf = buf
	r.head = 0
	r.mask = n - 1
}

// copyTo copies the live elements in FIFO order to the front of dst, which must hold r.size elements.
func (r *ring[T]) copyTo(dst []T) {
	if r.head+r.size <= len(r.buf) {
		copy(dst, r.buf[r.head:r.head+r.size])
		return
	}
	n := copy(dst, r.buf[r.head:])
	copy(dst[n:], r.buf[:(r.head+r.size)&r.mask])
}

func (r *ring[T]) push(value T) {
	if r.size == len(r.buf) {
		r.grow(1)
	}
	r.buf[(r.head+r.size)&r.mask] = value
	r.size++
}

func (r *ring[T]) pushAll(values []T) {
	n := len(values)
	if r.size+n > len(r.buf) {
		r.grow(n)
	}
	tail := (r.head + r.size) & r.mask
	if tail+n <= len(r.buf) {
		copy(r.buf[tail:], values)
	} else {
		k := copy(r.buf[tail:], values)
		copy(r.buf, values[k:])
	}
	r.size += n
}

// pop removes the front element. The vacated slot is zeroed so the ring
// does not keep popped values reachable.
func (r *ring[T]) pop() (value T, ok bool) {
	if r.size == 0 {
		return value, false
	}
	value = r.buf[r.head]
	var zero T
	r.buf[r.head] = zero
	r.head = (r.head + 1) & r.mask
	r.size--
	return value, true
}

func (r *ring[T]) len() int {
	return r.size
}

// clone returns an independent ring with the same elements in the same order.
// Element values are copied shallowly, as with assignment.
func (r *ring[T]) clone() *ring[T] {
	c := newRing[T](len(r.buf))
	r.copyTo(c.buf)
	c.size = r.size
	return c
}
