package concurrency

import (
	"context"
	"sync"
)

// WorkerFn handles one task index.
type WorkerFn func(ctx context.Context, index int)

// SimpleWorkerPool runs fn once for every index in [0, tasks) on at most
// concurrency goroutines. Undispatched tasks are dropped when ctx ends.
func SimpleWorkerPool(ctx context.Context, concurrency int, tasks int, fn WorkerFn) {
	if tasks <= 0 {
		return
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if concurrency > tasks {
		concurrency = tasks
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				fn(ctx, idx)
			}
		}()
	}

dispatch:
	for i := 0; i < tasks; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()
}
