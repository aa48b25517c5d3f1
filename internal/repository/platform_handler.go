// ============================================================================
// Chemist 入站事件調度器 - Platform/Telemetry 事件的唯一入口
// ============================================================================
//
// Package: internal/repository
// 文件: platform_handler.go
// 功能: 接收平台發現與 flask 遙測事件，分派至 lifecycle 引擎，套用結果
//
// 調度流程:
//   PlatformHandler(e) --Submit--> handlePlatformEvent(e) --switch Kind-->
//     runLifecycle() -> lifecycle.Step() -> applyRepoEvent()
//
// 錯誤處理:
//   - dispatch 過程中的 panic 會被攔截、記錄並計入 PlatformEventFailures，
//     不會向上傳播；上游事件來源不可靠，遺失一個事件不該拖垮整個 ledger
//   - 未知 target 的遙測/problem 事件記錄錯誤並丟棄，不產生狀態變化
//
// ============================================================================

package repository

import (
	"time"

	"github.com/chemist/chemist/internal/lifecycle"
	"github.com/chemist/chemist/pkg/types"
)

// PlatformHandler is the sole entry point for platform discovery and
// flask telemetry. It runs on the writer goroutine and blocks the caller
// until applied, so a sequence of calls from a single producer is
// applied in submission order. A panic during dispatch is recovered,
// logged, and counted rather than propagated — platform events originate
// from an unreliable upstream, and losing one event must not take down
// the ledger.
func (r *Repository) PlatformHandler(e types.PlatformEvent) {
	done := make(chan struct{})
	err := r.exec.Submit(func() {
		defer close(done)
		r.handlePlatformEvent(e)
	})
	if err != nil {
		r.log.Error("platform handler rejected, executor closed", "kind", e.Kind, "err", err)
		return
	}
	<-done
}

func (r *Repository) handlePlatformEvent(e types.PlatformEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("platform handler panic recovered", "kind", e.Kind, "recover", rec)
			r.metrics.RecordPlatformEventFailure()
		}
	}()

	r.pushHistory(e)

	switch e.Kind {
	case types.EventNewTarget:
		cur, flask := r.stateOf(e.Target.URI)
		r.runLifecycle(lifecycle.Input{
			Kind:   lifecycle.InputDiscovery,
			Target: e.Target,
			Time:   e.Time,
		}, cur, flask)

	case types.EventNewFlask:
		r.flasks.Upsert(e.Flask)
		r.dist.EnsureFlask(e.Flask.ID)
		r.enqueueCommand(types.RepoCommand{Kind: types.CommandTelemetry, Flask: e.Flask, FlaskID: e.Flask.ID})

	case types.EventTerminatedFlask:
		r.enqueueCommand(types.RepoCommand{Kind: types.CommandReassignWork, FlaskID: e.FlaskID})

	case types.EventTerminatedTarget:
		r.removeTarget(e.Target.URI)

	case types.EventMonitored:
		r.handleTelemetry(e.Target.URI, e.FlaskID, e.Time, lifecycle.InputConfirmation)

	case types.EventUnmonitored:
		r.handleTelemetry(e.Target.URI, e.FlaskID, e.Time, lifecycle.InputUnmonitoring)

	case types.EventProblem:
		r.handleProblem(e)

	case types.EventAssigned:
		cur, flask := r.stateOf(e.Target.URI)
		r.runLifecycle(lifecycle.Input{
			Kind:    lifecycle.InputAssignment,
			Target:  e.Target,
			FlaskID: e.FlaskID,
			Time:    e.Time,
		}, cur, flask)

	case types.EventNoOp:
		// Nothing to do; still recorded above via pushHistory.
	}
}

// runLifecycle steps the engine and, if the transition is handled,
// applies the resulting RepoEvent. An unhandled transition is a no-op
// beyond the history entry already written by the caller.
func (r *Repository) runLifecycle(in lifecycle.Input, current types.TargetState, currentFlask types.FlaskID) {
	re, ok := lifecycle.Step(r.lifecycleCfg, current, currentFlask, in)
	if !ok {
		return
	}
	r.applyRepoEvent(re)
}

// handleTelemetry resolves uri to its known Target and steps the engine
// with a Confirmation or Unmonitoring input. A URI absent from targets is
// logged at error and otherwise ignored: no state change, no command.
func (r *Repository) handleTelemetry(uri types.URI, flaskID types.FlaskID, t time.Time, kind lifecycle.InputKind) {
	sc, ok := r.targets.Get(uri)
	if !ok {
		r.log.Error("telemetry for unknown target dropped", "uri", uri, "flask", flaskID)
		return
	}
	r.runLifecycle(lifecycle.Input{
		Kind:    kind,
		Target:  sc.Msg.Target,
		FlaskID: flaskID,
		Time:    t,
	}, sc.To, sc.Msg.FlaskID)
}

// handleProblem resolves the target and steps the engine with an
// Investigate input at attempt 0. Unknown targets are dropped, as with
// handleTelemetry.
func (r *Repository) handleProblem(e types.PlatformEvent) {
	sc, ok := r.targets.Get(e.Target.URI)
	if !ok {
		r.log.Error("problem for unknown target dropped", "uri", e.Target.URI, "flask", e.FlaskID, "msg", e.Msg)
		return
	}
	r.runLifecycle(lifecycle.Input{
		Kind:    lifecycle.InputInvestigate,
		Target:  sc.Msg.Target,
		FlaskID: e.FlaskID,
		Time:    e.Time,
		Attempt: 0,
	}, sc.To, sc.Msg.FlaskID)
}

// removeTarget deletes uri from targets and from its current state
// bucket. Applying it to an already-absent uri is a no-op, making
// TerminatedTarget idempotent.
func (r *Repository) removeTarget(uri types.URI) {
	sc, ok := r.targets.Get(uri)
	if !ok {
		return
	}
	r.targets.Delete(uri)
	r.buckets.Delete(sc.To, uri)
	r.refreshGauges()
}
