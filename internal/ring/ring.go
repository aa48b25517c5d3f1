// ============================================================================
// Chemist Ring Buffer - 有界稽核軌跡
// ============================================================================
//
// Package: internal/ring
// 文件: ring.go
// 功能: 提供 Repository 三條稽核軌跡（historyStack/repoHistoryStack/
//       errorStack）共用的固定容量 FIFO，滿載時淘汰最舊的項目
//
// ============================================================================

package ring

import (
	"sort"
	"sync"
)

// Buffer is a fixed-capacity FIFO, safe for concurrent pushes from
// multiple producers. It uses a plain mutex-guarded slice rather than a
// lock-free ring, since capacities here are small (hundreds to low
// thousands of entries) and writes are rare compared to the lifecycle
// engine's own hot path.
type Buffer[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	evicted  uint64
}

// New creates a Buffer with the given capacity. A non-positive capacity
// is treated as 1, since a zero-capacity ring buffer can hold nothing.
func New[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffer[T]{
		items:    make([]T, 0, capacity),
		capacity: capacity,
	}
}

// Push appends x, evicting the oldest entry first if at capacity. It
// reports whether an eviction occurred, so callers can feed a
// ring-buffer-eviction counter.
func (b *Buffer[T]) Push(x T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	evicted := false
	if len(b.items) >= b.capacity {
		// Evict oldest (index 0). Capacities are small enough that the
		// O(n) shift is cheaper than a ring index plus wraparound logic,
		// and it keeps Snapshot() a plain copy.
		copy(b.items, b.items[1:])
		b.items = b.items[:len(b.items)-1]
		b.evicted++
		evicted = true
	}
	b.items = append(b.items, x)
	return evicted
}

// Snapshot returns a copy of the buffer's contents, oldest first.
func (b *Buffer[T]) Snapshot() []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

// Len returns the current number of stored entries.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Evicted returns the total number of entries evicted over the buffer's
// lifetime, exposed so callers can feed a RingBufferEvictions counter.
func (b *Buffer[T]) Evicted() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.evicted
}

// SnapshotSortedBy returns a copy of the buffer's contents sorted by the
// given key function, ascending. Historical event queries use this to
// present wall-clock ordering even though push ordering across producers
// racing the writer goroutine is not itself guaranteed to be time-sorted.
func SnapshotSortedBy[T any, K int64 | uint64](b *Buffer[T], key func(T) K) []T {
	out := b.Snapshot()
	sort.SliceStable(out, func(i, j int) bool { return key(out[i]) < key(out[j]) })
	return out
}
