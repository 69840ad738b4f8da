package concurrency

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

func TestSimpleWorkerPoolRunsEveryTask(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[int]int)

	SimpleWorkerPool(context.Background(), 4, 50, func(ctx context.Context, index int) {
		mu.Lock()
		seen[index]++
		mu.Unlock()
	})

	if len(seen) != 50 {
		t.Fatalf("expected 50 distinct tasks, got %d", len(seen))
	}
	for idx, n := range seen {
		if n != 1 {
			t.Fatalf("task %d ran %d times", idx, n)
		}
	}
}

func TestSimpleWorkerPoolStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Int32

	SimpleWorkerPool(ctx, 1, 100, func(ctx context.Context, index int) {
		if ran.Add(1) == 3 {
			cancel()
		}
	})

	if n := ran.Load(); n >= 100 {
		t.Fatalf("expected cancellation to stop dispatch early, ran %d", n)
	}
}

func TestSimpleWorkerPoolNoTasks(t *testing.T) {
	SimpleWorkerPool(context.Background(), 4, 0, func(ctx context.Context, index int) {
		t.Fatal("fn must not be called")
	})
}
