package concurrency

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtester/pkg/logging"
)

func TestWorkerPoolRunsAllTasks(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{Name: "test", MaxWorkers: 4, MaxCapacity: 16}, logging.NewNop())

	var done atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, pool.Submit(func() { done.Add(1) }))
	}
	pool.Wait()

	assert.Equal(t, int32(10), done.Load())
}

func TestWorkerPoolDefaults(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{Name: "defaults"}, logging.NewNop())
	require.NoError(t, pool.Submit(func() {}))
	pool.Wait()

	stats := pool.Stats()
	assert.EqualValues(t, 1, stats["submitted_tasks"])
}

func TestWorkerPoolRecoversFromPanic(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{Name: "panic", MaxWorkers: 1, MaxCapacity: 4}, logging.NewNop())

	require.NoError(t, pool.Submit(func() { panic("boom") }))

	var done atomic.Int32
	require.NoError(t, pool.Submit(func() { done.Add(1) }))
	pool.Wait()

	assert.Equal(t, int32(1), done.Load())
}
