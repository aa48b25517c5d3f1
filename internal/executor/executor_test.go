package executor

// ============================================================================
// Executor Test File
// Purpose: Verify start/stop lifecycle, FIFO ordering, and closed-queue errors
// ============================================================================

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitBeforeStartFails(t *testing.T) {
	e := New(1)
	err := e.Submit(func() {})
	assert.Error(t, err)
}

func TestStartTwiceFails(t *testing.T) {
	e := New(1)
	require.NoError(t, e.Start())
	defer e.Stop()
	assert.Error(t, e.Start())
}

func TestTasksRunInSubmissionOrder(t *testing.T) {
	e := New(16)
	require.NoError(t, e.Start())
	defer e.Stop()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		require.NoError(t, e.Submit(func() {
			defer wg.Done()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestStopDrainsQueuedTasks(t *testing.T) {
	e := New(16)
	require.NoError(t, e.Start())

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, e.Submit(func() {
			ran.Add(1)
		}))
	}
	e.Stop()

	assert.Equal(t, int32(10), ran.Load())
}

func TestSubmitAfterStopFails(t *testing.T) {
	e := New(1)
	require.NoError(t, e.Start())
	e.Stop()

	err := e.Submit(func() {})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConcurrentSubmit(t *testing.T) {
	e := New(4)
	require.NoError(t, e.Start())
	defer e.Stop()

	var count atomic.Int32
	var wg sync.WaitGroup
	for p := 0; p < 20; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = e.Submit(func() { count.Add(1) })
		}()
	}
	wg.Wait()

	// All 20 Submit calls returned before this marker task is enqueued, so
	// by FIFO ordering every counter increment has already run by the
	// time the marker runs.
	done := make(chan struct{})
	require.NoError(t, e.Submit(func() { close(done) }))
	<-done

	assert.Equal(t, int32(20), count.Load())
}
