package sweep

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// taskResult holds the outcome of one pooled task, tagged with its submission
// index so callers get results back in submission order.
type taskResult[R any] struct {
	index      int
	value      R
	err        error
	durationMs float64
}

// runPool executes fn over every item on at most workers goroutines and
// returns the results in submission order.  The sweep over candidates is
// embarrassingly parallel: tasks share only read-only tables and fold
// assignments, so the pool needs no retry, priority, or back-pressure
// machinery.  Cancellation is coarse; a cancelled context stops dispatching
// and marks the remaining tasks with the context error.
func runPool[T, R any](
	ctx context.Context,
	workers int,
	items []T,
	metrics SweepMetrics,
	fn func(ctx context.Context, item T) (R, error),
) []taskResult[R] {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if metrics == nil {
		metrics = NewNoopSweepMetrics()
	}

	n := len(items)
	resultCh := make(chan taskResult[R], n)
	sem := make(chan struct{}, workers)

	var active atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int, item T) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				resultCh <- taskResult[R]{index: idx, err: ctx.Err()}
				return
			}

			metrics.SetActiveWorkers(int(active.Add(1)))
			defer func() { metrics.SetActiveWorkers(int(active.Add(-1))) }()

			start := time.Now()
			value, err := fn(ctx, item)
			resultCh <- taskResult[R]{
				index:      idx,
				value:      value,
				err:        err,
				durationMs: float64(time.Since(start).Microseconds()) / 1000.0,
			}
		}(i, items[i])
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]taskResult[R], 0, n)
	for r := range resultCh {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].index < results[j].index })
	return results
}
