package ring

// ============================================================================
// Ring Buffer Test File
// Purpose: Verify eviction ordering, snapshot isolation, and concurrent pushes
// ============================================================================

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClampsNonPositiveCapacity(t *testing.T) {
	b := New[int](0)
	assert.Equal(t, 0, b.Len())
	b.Push(1)
	b.Push(2)
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, []int{2}, b.Snapshot())
}

func TestPushEvictsOldestAtCapacity(t *testing.T) {
	b := New[int](3)
	for i := 1; i <= 5; i++ {
		b.Push(i)
	}
	assert.Equal(t, []int{3, 4, 5}, b.Snapshot())
	assert.Equal(t, uint64(2), b.Evicted())
}

func TestPushReportsEviction(t *testing.T) {
	b := New[int](2)
	require.False(t, b.Push(1))
	require.False(t, b.Push(2))
	require.True(t, b.Push(3))
}

func TestSnapshotIsACopy(t *testing.T) {
	b := New[int](3)
	b.Push(1)
	snap := b.Snapshot()
	snap[0] = 999
	assert.Equal(t, []int{1}, b.Snapshot())
}

func TestConcurrentPushes(t *testing.T) {
	b := New[int](2000)
	var wg sync.WaitGroup
	for p := 0; p < 16; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				b.Push(i)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1600, b.Len())
}

func TestSnapshotSortedBy(t *testing.T) {
	b := New[int](10)
	for _, v := range []int{5, 1, 4, 2, 3} {
		b.Push(v)
	}
	out := SnapshotSortedBy(b, func(x int) int64 { return int64(x) })
	assert.Equal(t, []int{1, 2, 3, 4, 5}, out)
}
