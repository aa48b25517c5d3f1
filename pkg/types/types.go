// ============================================================================
// Chemist Types - 共用領域模型
// ============================================================================
//
// Package: pkg/types
// 文件: types.go
// 功能: 定義 target、flask、生命週期狀態機的詞彙，以及流經系統的三種
//       tagged-variant 結構：PlatformEvent（入站）、RepoEvent（已套用）、
//       RepoCommand（出站）
//
// 設計理念:
//   每種事件/命令都用一個 Kind 欄位搭配扁平欄位表示變體，而不是用介面加
//   多個實作型別。呼叫端用 switch Kind 取值，沒有動態分派，也不需要型別
//   斷言。
//
// ============================================================================

package types

import "time"

// URI identifies a Target. It is opaque to the repository beyond equality.
type URI string

// FlaskID identifies a Flask (a collector worker).
type FlaskID string

// TargetState is the finite set of lifecycle states a Target can occupy.
type TargetState string

// 生命週期狀態常數 —— 對應 lifecycle 引擎轉換表中的每一個節點
const (
	StateUnknown         TargetState = "Unknown"         // 尚未被發現
	StateUnmonitored     TargetState = "Unmonitored"      // 已發現，待指派 flask
	StateAssigned        TargetState = "Assigned"         // 已指派，待 flask 確認
	StateMonitored       TargetState = "Monitored"        // flask 已確認監控中
	StateProblematic     TargetState = "Problematic"      // lifecycle 引擎沒有任何轉換會進入此狀態
	StateDoubleAssigned  TargetState = "DoubleAssigned"   // 被兩個 flask 同時指派
	StateDoubleMonitored TargetState = "DoubleMonitored"  // 被兩個 flask 同時監控
	StateInvestigating   TargetState = "Investigating"    // 正在重試調查
	StateUnmonitorable   TargetState = "Unmonitorable"    // 可配置的終止狀態之一
	StateFin             TargetState = "Fin"              // 預設的終止狀態
)

// States lists every TargetState, in the order gauges are created.
var States = []TargetState{
	StateUnknown,
	StateUnmonitored,
	StateAssigned,
	StateMonitored,
	StateProblematic,
	StateDoubleAssigned,
	StateDoubleMonitored,
	StateInvestigating,
	StateUnmonitorable,
	StateFin,
}

// Target is a monitored process, addressed by URI.
type Target struct {
	URI      URI
	Keys     map[string]struct{} // opaque metric keys discovered on this target
	Metadata map[string]string   // discovery metadata
}

// Flask is a collector worker that scrapes target endpoints.
type Flask struct {
	ID      FlaskID // 唯一識別碼
	Address string  // telemetry address
}

// LifecycleMsg is the payload a lifecycle transition is keyed on: the
// target it concerns, the flask involved (if any), and when it happened.
type LifecycleMsg struct {
	Target  Target
	FlaskID FlaskID // empty if not flask-scoped (e.g. Discovery)
	Time    time.Time
	Reason  string // free-form note, e.g. "Discovery", "Confirmation"
}

// StateChange is the record of one lifecycle transition, identified by the
// target URI plus a unique sequence stamp (the "(target URI, sequence)"
// identity from the data model).
type StateChange struct {
	Seq  string
	From TargetState
	To   TargetState
	Msg  LifecycleMsg
}

// PlatformEventKind tags the variant of an inbound PlatformEvent.
type PlatformEventKind string

const (
	EventNewTarget        PlatformEventKind = "NewTarget"        // 平台發現了新 target
	EventNewFlask         PlatformEventKind = "NewFlask"         // 平台發現了新 flask
	EventTerminatedFlask  PlatformEventKind = "TerminatedFlask"  // flask 已終止
	EventTerminatedTarget PlatformEventKind = "TerminatedTarget" // target 已終止
	EventMonitored        PlatformEventKind = "Monitored"        // flask 確認監控中
	EventUnmonitored      PlatformEventKind = "Unmonitored"      // flask 回報不再監控
	EventProblem          PlatformEventKind = "Problem"          // flask 回報異常
	EventAssigned         PlatformEventKind = "Assigned"         // target 被指派給 flask
	EventNoOp             PlatformEventKind = "NoOp"              // 無需處理，僅記錄稽核軌跡
)

// PlatformEvent is a tagged union of everything platform discovery and
// flask telemetry feed into the repository. Only the fields relevant to
// Kind are populated, following a flat-struct encoding of a tagged
// variant rather than a sealed interface hierarchy.
type PlatformEvent struct {
	Kind    PlatformEventKind
	Time    time.Time
	Target  Target
	FlaskID FlaskID
	Flask   Flask
	Msg     string // Problem's message, if any
}

// RepoEventKind tags the variant of a lifecycle-engine output event.
type RepoEventKind string

const (
	RepoEventStateChange RepoEventKind = "StateChange" // 一次生命週期轉換
	RepoEventNewFlask    RepoEventKind = "NewFlask"    // 登錄一個新 flask
)

// RepoEvent is the output of the lifecycle engine, applied to the state
// store by the repo-event processor.
type RepoEvent struct {
	Kind  RepoEventKind
	SC    StateChange // populated when Kind == RepoEventStateChange
	Flask Flask       // populated when Kind == RepoEventNewFlask
}

// RepoCommandKind tags the variant of an outbound RepoCommand.
type RepoCommandKind string

const (
	CommandMonitor      RepoCommandKind = "Monitor"      // 指示 sharding consumer 開始監控
	CommandTelemetry    RepoCommandKind = "Telemetry"    // 通知新 flask 的遙測位址
	CommandReassignWork RepoCommandKind = "ReassignWork" // 指示重新分派某個 flask 的工作
)

// RepoCommand is an outbound directive for the sharding component.
type RepoCommand struct {
	Kind    RepoCommandKind
	Target  Target  // populated for Monitor
	Flask   Flask   // populated for Telemetry
	FlaskID FlaskID // populated for ReassignWork (and Telemetry, redundantly)
}

// Error records an out-of-band failure attributed to a flask.
type Error struct {
	Flask FlaskID
	Cause error
	Time  time.Time
}
