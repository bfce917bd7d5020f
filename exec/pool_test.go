package exec

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockingPoolRunsWithinLimit(t *testing.T) {
	pool := NewBlockingPool(2, PolicyBlock)
	pool.Start()

	err := pool.RunBlocking(context.Background(), func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)
}

func TestBlockingPoolRejectsBeforeStart(t *testing.T) {
	pool := NewBlockingPool(1, PolicyBlock)
	err := pool.RunBlocking(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestBlockingPoolFailFastOverload(t *testing.T) {
	pool := NewBlockingPool(1, PolicyFailFast)
	pool.Start()

	blocking := make(chan struct{})
	go pool.RunBlocking(context.Background(), func(ctx context.Context) error {
		<-blocking
		return nil
	})
	time.Sleep(20 * time.Millisecond)

	err := pool.RunBlocking(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrOverloaded)
	close(blocking)
}

func TestCPUPoolRunsAndStops(t *testing.T) {
	pool := NewCPUPool(2, nil)
	pool.Start()
	defer pool.Stop()

	val, err := pool.RunCPU(context.Background(), func(ctx context.Context) (interface{}, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, val)
}

func TestCPUPoolInitializerRuns(t *testing.T) {
	seen := make(chan int, 1)
	pool := NewCPUPool(1, func(workerID int) { seen <- workerID })
	pool.Start()
	defer pool.Stop()

	select {
	case id := <-seen:
		assert.Equal(t, 0, id)
	case <-time.After(time.Second):
		t.Fatal("initializer never ran")
	}
}
