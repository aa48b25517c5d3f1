// ============================================================================
// Chemist 事件套用器 - 將 lifecycle 引擎輸出寫入狀態格
// ============================================================================
//
// Package: internal/repository
// 文件: repo_event.go
// 功能: 將 lifecycle.Step 回傳的 RepoEvent 套用到 targets/buckets，刷新指標
//
// ============================================================================

package repository

import "github.com/chemist/chemist/pkg/types"

// applyRepoEvent applies a lifecycle-engine output to the state store.
// Must be called from the writer goroutine.
func (r *Repository) applyRepoEvent(re types.RepoEvent) {
	r.pushRepoHistory(re)

	switch re.Kind {
	case types.RepoEventStateChange:
		r.applyStateChange(re.SC)
	case types.RepoEventNewFlask:
		r.flasks.Upsert(re.Flask)
	}
}

func (r *Repository) applyStateChange(sc types.StateChange) {
	uri := sc.Msg.Target.URI

	r.targets.Set(uri, sc)
	r.buckets.Move(sc.From, sc.To, uri, sc)
	r.refreshGauges()

	if sc.To == types.StateUnmonitored {
		r.enqueueCommand(types.RepoCommand{Kind: types.CommandMonitor, Target: sc.Msg.Target})
	}
	// Other destination states emit no outbound command; DoubleAssigned
	// and DoubleMonitored are left as an extension point rather than a
	// guessed policy.
}
