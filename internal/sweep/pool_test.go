package sweep

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPoolPreservesOrder(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6, 7}
	results := runPool(context.Background(), 3, items, nil,
		func(_ context.Context, item int) (int, error) {
			return item * 10, nil
		})

	require.Len(t, results, len(items))
	for i, r := range results {
		assert.NoError(t, r.err)
		assert.Equal(t, i, r.index)
		assert.Equal(t, i*10, r.value)
	}
}

func TestRunPoolBoundsConcurrency(t *testing.T) {
	const workers = 2
	var inFlight, peak atomic.Int32

	items := make([]int, 16)
	runPool(context.Background(), workers, items, nil,
		func(_ context.Context, _ int) (struct{}, error) {
			cur := inFlight.Add(1)
			for {
				p := peak.Load()
				if cur <= p || peak.CompareAndSwap(p, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return struct{}{}, nil
		})

	assert.LessOrEqual(t, peak.Load(), int32(workers))
}

func TestRunPoolCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := make([]int, 8)
	results := runPool(ctx, 2, items, nil,
		func(ctx context.Context, _ int) (struct{}, error) {
			return struct{}{}, ctx.Err()
		})

	require.Len(t, results, len(items))
	for _, r := range results {
		assert.ErrorIs(t, r.err, context.Canceled)
	}
}
