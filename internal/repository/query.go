// ============================================================================
// Chemist 查詢/稽核介面 - 唯讀存取，永不阻塞於寫入者
// ============================================================================
//
// Package: internal/repository
// 文件: query.go
// 功能: 提供 States/History/Instance/Distribution 等唯讀查詢，以及兩種
//       merge 操作（走 executor，因為它們會修改共享狀態格）
//
// 併發安全:
//   - 絕大多數查詢直接呼叫對應狀態格的 Snapshot/Get，完全不經過 exec
//   - MergeDistribution / MergeExistingDistribution 會修改 dist/targets/
//     buckets，因此兩者都透過 exec.Submit 序列化，行為等同一次性事件
//
// ============================================================================

package repository

import (
	"time"

	"github.com/chemist/chemist/internal/ring"
	"github.com/chemist/chemist/pkg/types"
)

// States returns a deep copy of every state bucket.
func (r *Repository) States() map[types.TargetState]map[types.URI]types.StateChange {
	return r.buckets.Snapshot()
}

// HistoricalPlatformEvents returns every retained platform event, sorted
// by time ascending regardless of push order across producers.
func (r *Repository) HistoricalPlatformEvents() []types.PlatformEvent {
	return ring.SnapshotSortedBy(r.historyStack, func(e types.PlatformEvent) int64 { return e.Time.UnixNano() })
}

// HistoricalRepoEvents returns every retained repo event, in insertion
// order.
func (r *Repository) HistoricalRepoEvents() []types.RepoEvent {
	return r.repoHistoryStack.Snapshot()
}

// Errors returns every retained out-of-band error, in insertion order.
func (r *Repository) Errors() []types.Error {
	return r.errorStack.Snapshot()
}

// Instance returns the target known under uri, if any.
func (r *Repository) Instance(uri types.URI) (types.Target, bool) {
	sc, ok := r.targets.Get(uri)
	if !ok {
		return types.Target{}, false
	}
	return sc.Msg.Target, true
}

// Flask returns the flask registered under id, if any.
func (r *Repository) Flask(id types.FlaskID) (types.Flask, bool) {
	return r.flasks.Get(id)
}

// TargetState returns uri's current lifecycle state, defaulting to
// Unknown for a URI the ledger has never seen.
func (r *Repository) TargetState(uri types.URI) types.TargetState {
	sc, ok := r.targets.Get(uri)
	if !ok {
		return types.StateUnknown
	}
	return sc.To
}

// Distribution returns a deep copy of the flask-to-targets mapping.
func (r *Repository) Distribution() map[types.FlaskID]map[types.URI]types.Target {
	return r.dist.Snapshot()
}

// AssignedTargets returns the set of targets assigned to flaskID, or
// ErrInstanceNotFound if flaskID was never registered.
func (r *Repository) AssignedTargets(flaskID types.FlaskID) (map[types.URI]types.Target, error) {
	set, ok := r.dist.Get(flaskID)
	if !ok {
		return nil, ErrInstanceNotFound
	}
	return set, nil
}

// UnassignedTargets returns the contents of the Unmonitored bucket.
func (r *Repository) UnassignedTargets() map[types.URI]types.Target {
	bucket := r.buckets.Bucket(types.StateUnmonitored)
	out := make(map[types.URI]types.Target, len(bucket))
	for uri, sc := range bucket {
		out[uri] = sc.Msg.Target
	}
	return out
}

// UnmonitorableTargets returns the URIs of targets in the Unmonitorable
// bucket.
func (r *Repository) UnmonitorableTargets() []types.URI {
	bucket := r.buckets.Bucket(types.StateUnmonitorable)
	out := make([]types.URI, 0, len(bucket))
	for uri := range bucket {
		out = append(out, uri)
	}
	return out
}

// MergeDistribution unions d into D, per flask, and returns the
// resulting distribution. Runs on the writer goroutine since it mutates
// a shared cell.
func (r *Repository) MergeDistribution(d map[types.FlaskID]map[types.URI]types.Target) map[types.FlaskID]map[types.URI]types.Target {
	done := make(chan struct{})
	var result map[types.FlaskID]map[types.URI]types.Target
	err := r.exec.Submit(func() {
		defer close(done)
		for flaskID, targets := range d {
			r.dist.Merge(flaskID, targets)
		}
		result = r.dist.Snapshot()
	})
	if err != nil {
		r.log.Error("merge distribution rejected, executor closed", "err", err)
		return r.dist.Snapshot()
	}
	<-done
	return result
}

// MergeExistingDistribution is the bootstrap path used when a
// pre-existing assignment is learned on startup: for each (flask,
// targets) pair it writes a synthetic StateChange(Unknown -> Monitored,
// Confirmation) for every target directly into targets and stateMaps,
// bypassing the lifecycle engine entirely, then merges the assignment
// into D.
func (r *Repository) MergeExistingDistribution(d map[types.FlaskID]map[types.URI]types.Target) {
	done := make(chan struct{})
	err := r.exec.Submit(func() {
		defer close(done)
		now := time.Now()
		for flaskID, targets := range d {
			for uri, target := range targets {
				sc := types.StateChange{
					Seq:  newSeq(),
					From: types.StateUnknown,
					To:   types.StateMonitored,
					Msg: types.LifecycleMsg{
						Target:  target,
						FlaskID: flaskID,
						Time:    now,
						Reason:  "Confirmation",
					},
				}
				r.targets.Set(uri, sc)
				r.buckets.Move(types.StateUnknown, types.StateMonitored, uri, sc)
			}
			r.dist.Merge(flaskID, targets)
		}
		r.refreshGauges()
	})
	if err != nil {
		r.log.Error("merge existing distribution rejected, executor closed", "err", err)
		return
	}
	<-done
}
