package queues

import (
	"context"
	"iter"
	"sync"
)

// ConcurrentQueue is an unbounded, thread-safe FIFO queue.
// A single mutex guards the backing ring; notEmpty wakes goroutines blocked in WaitAndPop.
//
// The zero value is not ready for use, create queues with NewConcurrentQueue.
// A ConcurrentQueue must not be copied after first use; use Clone for an independent copy.
type ConcurrentQueue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	r        *ring[T]
}

// NewConcurrentQueue creates an empty queue. capacity only sizes the initial
// buffer, the queue grows without limit. If capacity <= 0 a default is used.
func NewConcurrentQueue[T any](capacity int) *ConcurrentQueue[T] {
	return newConcurrentQueue(newRing[T](capacity))
}

func newConcurrentQueue[T any](r *ring[T]) *ConcurrentQueue[T] {
	cq := &ConcurrentQueue[T]{r: r}
	cq.notEmpty = sync.NewCond(&cq.mu)
	return cq
}

// Push appends value to the tail of the queue and wakes at most one waiting consumer.
func (cq *ConcurrentQueue[T]) Push(value T) {
	cq.mu.Lock()
	cq.r.push(value)
	cq.mu.Unlock()
	cq.notEmpty.Signal()
}

// PushAll appends values in order as one atomic step.
// No other push can interleave with them.
// A single value wakes one waiter; more than one wakes every waiter, and those that find the queue empty again go back to sleep.
func (cq *ConcurrentQueue[T]) PushAll(values ...T) {
	if len(values) == 0 {
		return
	}
	cq.mu.Lock()
	cq.r.pushAll(values)
	cq.mu.Unlock()
	if len(values) == 1 {
		cq.notEmpty.Signal()
		return
	}
	cq.notEmpty.Broadcast()
}

// TryPop removes and returns the front element.
// If the queue is empty it returns immediately with ok == false.
func (cq *ConcurrentQueue[T]) TryPop() (value T, ok bool) {
	cq.mu.Lock()
	defer cq.mu.Unlock()
	return cq.r.pop()
}

// WaitAndPop removes and returns the front element, blocking until one is available.
// It blocks forever if nothing is ever pushed; see WaitAndPopContext for a bounded wait.
func (cq *ConcurrentQueue[T]) WaitAndPop() T {
	cq.mu.Lock()
	defer cq.mu.Unlock()
	for cq.r.len() == 0 {
		cq.notEmpty.Wait()
	}
	value, _ := cq.r.pop()
	return value
}

// WaitAndPopContext is like WaitAndPop but gives up when ctx is done.
// An element that is already queued is returned even if ctx is done.
// On cancellation it returns ctx.Err() and leaves the queue untouched.
func (cq *ConcurrentQueue[T]) WaitAndPopContext(ctx context.Context) (T, error) {
	cq.mu.Lock()
	defer cq.mu.Unlock()

	if value, ok := cq.r.pop(); ok {
		return value, nil
	}
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	// Wake every waiter once ctx is done; the others go back to sleep.
	// Taking the lock here orders the broadcast after our Wait has parked.
	stop := context.AfterFunc(ctx, func() {
		cq.mu.Lock()
		defer cq.mu.Unlock()
		cq.notEmpty.Broadcast()
	})
	defer stop()

	for cq.r.len() == 0 {
		if err := ctx.Err(); err != nil {
			var zero T
			return zero, err
		}
		cq.notEmpty.Wait()
	}
	value, _ := cq.r.pop()
	return value, nil
}

// IsEmpty reports whether the queue held no elements at the moment of the call.
// The answer can be stale as soon as it is returned.
func (cq *ConcurrentQueue[T]) IsEmpty() bool {
	cq.mu.Lock()
	defer cq.mu.Unlock()
	return cq.r.len() == 0
}

// Len returns a snapshot of the number of queued elements.
func (cq *ConcurrentQueue[T]) Len() int {
	cq.mu.Lock()
	defer cq.mu.Unlock()
	return cq.r.len()
}

// Clone returns a new queue holding a copy of the current contents.
// The clone has its own lock and evolves independently of cq.
func (cq *ConcurrentQueue[T]) Clone() *ConcurrentQueue[T] {
	cq.mu.Lock()
	defer cq.mu.Unlock()
	return newConcurrentQueue(cq.r.clone())
}

// Drain returns an iterator that pops elements until the queue is empty.
// It never blocks. Elements pushed while ranging may also be yielded.
func (cq *ConcurrentQueue[T]) Drain() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			value, ok := cq.TryPop()
			if !ok || !yield(value) {
				return
			}
		}
	}
}
