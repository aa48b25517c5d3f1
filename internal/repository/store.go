// ============================================================================
// Chemist 狀態格 - 四個獨立鎖定的儲存單元
// ============================================================================
//
// Package: internal/repository
// 文件: store.go
// 功能: 定義 Repository 倚賴的四個獨立狀態格 (targets/buckets/flasks/dist)
//
// 設計理念:
//   每個狀態格各自持有自己的 mutex，彼此互不相通。跨格的一致性不是靠更大
//   的鎖換來的，而是靠 executor 的單一寫入者序列化所有修改；每個狀態格
//   自身的鎖只保證「單一格內」的原子性（例如 Move 一次性完成刪除+插入）。
//
// 四個狀態格:
//   targetIndex  - URI -> 最新 StateChange，唯一真實來源
//   stateBuckets - TargetState -> (URI -> StateChange) 反向索引
//   flaskRegistry- FlaskID -> Flask
//   distribution - FlaskID -> 被指派的 URI 集合 (D)
//
// ============================================================================

package repository

import (
	"sync"

	"github.com/chemist/chemist/pkg/types"
)

// targetIndex is the targets: URI -> StateChange cell.
type targetIndex struct {
	mu    sync.Mutex
	items map[types.URI]types.StateChange
}

func newTargetIndex() *targetIndex {
	return &targetIndex{items: make(map[types.URI]types.StateChange)}
}

func (t *targetIndex) Get(uri types.URI) (types.StateChange, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sc, ok := t.items[uri]
	return sc, ok
}

func (t *targetIndex) Set(uri types.URI, sc types.StateChange) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items[uri] = sc
}

func (t *targetIndex) Delete(uri types.URI) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.items, uri)
}

func (t *targetIndex) Snapshot() map[types.URI]types.StateChange {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[types.URI]types.StateChange, len(t.items))
	for k, v := range t.items {
		out[k] = v
	}
	return out
}

// stateBuckets is the stateMaps: State -> (URI -> StateChange) inverted
// index. Moving a target between buckets is a single locked operation, so
// a reader taking a snapshot mid-move never observes the target missing
// from every bucket or present in two at once.
type stateBuckets struct {
	mu      sync.Mutex
	buckets map[types.TargetState]map[types.URI]types.StateChange
}

func newStateBuckets() *stateBuckets {
	b := &stateBuckets{buckets: make(map[types.TargetState]map[types.URI]types.StateChange, len(types.States))}
	for _, s := range types.States {
		b.buckets[s] = make(map[types.URI]types.StateChange)
	}
	return b
}

// Move deletes uri from the `from` bucket (a no-op if absent, e.g. the
// target's first transition out of Unknown) and inserts it into the `to`
// bucket under sc.
func (b *stateBuckets) Move(from, to types.TargetState, uri types.URI, sc types.StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.buckets[from]; ok {
		delete(m, uri)
	}
	if _, ok := b.buckets[to]; !ok {
		b.buckets[to] = make(map[types.URI]types.StateChange)
	}
	b.buckets[to][uri] = sc
}

// Delete removes uri from the bucket of the given state; other buckets are
// not touched.
func (b *stateBuckets) Delete(state types.TargetState, uri types.URI) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.buckets[state]; ok {
		delete(m, uri)
	}
}

// Counts returns the current size of every bucket, for gauge refresh.
func (b *stateBuckets) Counts() map[types.TargetState]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[types.TargetState]int, len(b.buckets))
	for s, m := range b.buckets {
		out[s] = len(m)
	}
	return out
}

// Snapshot returns a deep copy of the full bucket structure.
func (b *stateBuckets) Snapshot() map[types.TargetState]map[types.URI]types.StateChange {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[types.TargetState]map[types.URI]types.StateChange, len(b.buckets))
	for s, m := range b.buckets {
		inner := make(map[types.URI]types.StateChange, len(m))
		for u, sc := range m {
			inner[u] = sc
		}
		out[s] = inner
	}
	return out
}

// Bucket returns a copy of one bucket.
func (b *stateBuckets) Bucket(state types.TargetState) map[types.URI]types.StateChange {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.buckets[state]
	out := make(map[types.URI]types.StateChange, len(m))
	for u, sc := range m {
		out[u] = sc
	}
	return out
}

// flaskRegistry is the flasks: FlaskID -> Flask cell.
type flaskRegistry struct {
	mu    sync.Mutex
	items map[types.FlaskID]types.Flask
}

func newFlaskRegistry() *flaskRegistry {
	return &flaskRegistry{items: make(map[types.FlaskID]types.Flask)}
}

func (r *flaskRegistry) Get(id types.FlaskID) (types.Flask, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.items[id]
	return f, ok
}

func (r *flaskRegistry) Upsert(f types.Flask) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[f.ID] = f
}

func (r *flaskRegistry) Snapshot() map[types.FlaskID]types.Flask {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[types.FlaskID]types.Flask, len(r.items))
	for k, v := range r.items {
		out[k] = v
	}
	return out
}

// distribution is the D: FlaskID -> Set<Target> cell.
type distribution struct {
	mu   sync.Mutex
	sets map[types.FlaskID]map[types.URI]types.Target
}

func newDistribution() *distribution {
	return &distribution{sets: make(map[types.FlaskID]map[types.URI]types.Target)}
}

// EnsureFlask registers an empty assignment set for id if it doesn't
// already have one (NewFlask: "initialized with empty assignment in D").
func (d *distribution) EnsureFlask(id types.FlaskID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.sets[id]; !ok {
		d.sets[id] = make(map[types.URI]types.Target)
	}
}

// Get returns the target set owned by id, and whether id is known at all
// (distinguishing "registered with zero targets" from "never registered",
// which AssignedTargets needs for its InstanceNotFound error).
func (d *distribution) Get(id types.FlaskID) (map[types.URI]types.Target, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.sets[id]
	if !ok {
		return nil, false
	}
	out := make(map[types.URI]types.Target, len(set))
	for u, t := range set {
		out[u] = t
	}
	return out, true
}

// Merge unions targets into id's set, unioning per-flask (mergeDistribution).
func (d *distribution) Merge(id types.FlaskID, targets map[types.URI]types.Target) {
	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.sets[id]
	if !ok {
		set = make(map[types.URI]types.Target)
		d.sets[id] = set
	}
	for u, t := range targets {
		set[u] = t
	}
}

// Snapshot returns a deep copy of the entire distribution.
func (d *distribution) Snapshot() map[types.FlaskID]map[types.URI]types.Target {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[types.FlaskID]map[types.URI]types.Target, len(d.sets))
	for id, set := range d.sets {
		inner := make(map[types.URI]types.Target, len(set))
		for u, t := range set {
			inner[u] = t
		}
		out[id] = inner
	}
	return out
}
