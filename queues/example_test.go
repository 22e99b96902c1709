package queues_test

import (
	"context"
	"fmt"
	"time"

	"tsqueue/queues"
)

func ExampleConcurrentQueue() {
	q := queues.NewConcurrentQueue[int](0)
	q.Push(10)
	q.Push(20)

	v, ok := q.TryPop()
	fmt.Println(v, ok)
	v, ok = q.TryPop()
	fmt.Println(v, ok)
	v, ok = q.TryPop()
	fmt.Println(v, ok)
	// Output:
	// 10 true
	// 20 true
	// 0 false
}

func ExampleConcurrentQueue_WaitAndPop() {
	q := queues.NewConcurrentQueue[string](0)

	go func() {
		for _, s := range []string{"a", "b", "c"} {
			q.Push(s)
		}
	}()

	for range 3 {
		fmt.Print(q.WaitAndPop())
	}
	fmt.Println()
	// Output: abc
}

func ExampleConcurrentQueue_WaitAndPopContext() {
	q := queues.NewConcurrentQueue[int](0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := q.WaitAndPopContext(ctx)
	fmt.Println(err)
	// Output: context deadline exceeded
}

func ExampleConcurrentQueue_Clone() {
	a := queues.NewConcurrentQueue[int](0)
	a.PushAll(1, 2, 3)

	b := a.Clone()
	a.Push(4)

	for v := range b.Drain() {
		fmt.Print(v, " ")
	}
	fmt.Println("| a has", a.Len())
	// Output: 1 2 3 | a has 4
}
