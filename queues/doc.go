/*
Package queues provides ConcurrentQueue, an unbounded FIFO queue that any number of
producer and consumer goroutines can share without extra locking.

Every operation runs under one mutex. Consumers that need to wait for data park on a
condition variable that is signalled once per pushed element:

	q := queues.NewConcurrentQueue[int](0)

	go func() {
		for i := range 10 {
			q.Push(i)
		}
	}()

	for range 10 {
		fmt.Println(q.WaitAndPop())
	}

# Popping

  - [ConcurrentQueue.TryPop] never blocks and reports an empty queue with ok == false.
  - [ConcurrentQueue.WaitAndPop] blocks until an element is available, with no timeout.
  - [ConcurrentQueue.WaitAndPopContext] blocks until an element is available or the context is done.
  - [ConcurrentQueue.Drain] ranges over everything currently queued.

When several consumers are blocked, which one is woken by a push is up to the scheduler.

# Copying

The queue holds a mutex and must only be shared by pointer. [ConcurrentQueue.Clone]
takes a locked snapshot into a new, independent queue.
*/
package queues
