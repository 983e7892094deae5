package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEachSequentialOrder(t *testing.T) {
	var mu sync.Mutex
	var order []int
	stats, err := ForEach(context.Background(), 1, 5, func(i int) error {
		mu.Lock()
		order = append(order, i)
		mu.Unlock()
		if i == 2 {
			return errors.New("bad")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	assert.Equal(t, Stats{Processed: 5, Failed: 1}, stats)
}

func TestForEachBounded(t *testing.T) {
	var running, peak atomic.Int32
	_, err := ForEach(context.Background(), 3, 20, func(i int) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Equal(t, 3, New(3).Size())
	assert.Equal(t, 1, New(0).Size())
}

func TestForEachCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	stats, err := ForEach(ctx, 1, 10, func(i int) error {
		calls.Add(1)
		if i == 1 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, calls.Load(), int32(10))
	assert.Equal(t, int64(calls.Load()), stats.Processed)
}
