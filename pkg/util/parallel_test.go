package util

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelProcessesEveryInput(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []int
	)
	err := Parallel(context.Background(), []int{1, 2, 3, 4, 5}, 2, func(_ context.Context, n int) error {
		mu.Lock()
		seen = append(seen, n)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5}, seen)
}

func TestParallelJoinsErrorsWithoutStopping(t *testing.T) {
	var calls atomic.Int32
	err := Parallel(context.Background(), []string{"g1", "g2", "g3"}, 3, func(_ context.Context, id string) error {
		calls.Add(1)
		if id == "g3" {
			return nil
		}
		return fmt.Errorf("guild %s failed", id)
	})

	assert.Equal(t, int32(3), calls.Load())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "guild g1 failed")
	assert.Contains(t, err.Error(), "guild g2 failed")
}

func TestParallelHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	err := Parallel(ctx, []int{1, 2, 3}, 1, func(context.Context, int) error {
		calls.Add(1)
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestParallelEmpty(t *testing.T) {
	assert.NoError(t, Parallel(context.Background(), []int(nil), 4, func(context.Context, int) error {
		return fmt.Errorf("unexpected")
	}))
}
