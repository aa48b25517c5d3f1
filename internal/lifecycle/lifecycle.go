// ============================================================================
// Chemist Lifecycle - target 狀態轉換引擎
// ============================================================================
//
// Package: internal/lifecycle
// 文件: lifecycle.go
// 功能: 以純函式實現 target 的生命週期狀態機：(目前狀態, 輸入) -> RepoEvent
//
// 狀態轉換圖 (State Machine):
//   Unknown --Discovery--> Unmonitored --Assignment--> Assigned
//     Assigned --Confirmation--> Monitored
//     Assigned --Assignment(另一 flask)--> DoubleAssigned --Confirmation--> Monitored
//     Monitored --Unmonitoring--> Unmonitored
//     Monitored --Confirmation(另一 flask)--> DoubleMonitored
//   任意非 Fin/Investigating 狀態 --Investigate--> Investigating
//     Investigating --Confirmation--> Monitored
//     Investigating --Investigate(嘗試次數 >= 門檻)--> TerminalState (預設 Fin)
//
// 設計理念:
//   不持有任何可變狀態，不執行 I/O；輸入與輸出事件都是 tagged-variant
//   結構（Kind 欄位 + 扁平欄位），而非透過基底類別動態分派。
//
// ============================================================================

package lifecycle

import (
	"time"

	"github.com/google/uuid"

	"github.com/chemist/chemist/pkg/types"
)

// InputKind tags the variant of a lifecycle input.
type InputKind string

const (
	InputDiscovery    InputKind = "Discovery"
	InputAssignment   InputKind = "Assignment"
	InputConfirmation InputKind = "Confirmation"
	InputUnmonitoring InputKind = "Unmonitoring"
	InputInvestigate  InputKind = "Investigate"
)

// Input is the abstract event fed into the state machine.
type Input struct {
	Kind    InputKind
	Target  types.Target
	FlaskID types.FlaskID // flask involved, if any
	Time    time.Time
	Attempt int // only meaningful for InputInvestigate
}

// Config carries the policy constants governing investigation retries: the
// attempt threshold N, and which terminal state an exhausted investigation
// lands in. The transition table names Fin, but an unreachable target's
// terminal destination is left configurable so a caller can opt into
// Unmonitorable instead without inventing an undocumented new transition.
type Config struct {
	AttemptThreshold int
	TerminalState    types.TargetState
}

// DefaultConfig matches the transition table: Fin is the terminal state,
// reached after 3 failed investigation attempts.
func DefaultConfig() Config {
	return Config{AttemptThreshold: 3, TerminalState: types.StateFin}
}

// Step evaluates one lifecycle input against the target's current state
// and the flask (if any) associated with the most recent transition.
// currentFlask is the empty FlaskID if the target has never been
// flask-scoped (e.g. it just arrived via Discovery).
//
// Step returns (event, true) for a handled transition, or (zero, false)
// for an unlisted combination — "LifecycleUnhandledTransition": no state
// change, caller still records the input in history.
func Step(cfg Config, current types.TargetState, currentFlask types.FlaskID, in Input) (types.RepoEvent, bool) {
	to, reason, ok := transition(cfg, current, currentFlask, in)
	if !ok {
		return types.RepoEvent{}, false
	}

	sc := types.StateChange{
		Seq:  uuid.NewString(),
		From: current,
		To:   to,
		Msg: types.LifecycleMsg{
			Target:  in.Target,
			FlaskID: in.FlaskID,
			Time:    in.Time,
			Reason:  reason,
		},
	}
	return types.RepoEvent{Kind: types.RepoEventStateChange, SC: sc}, true
}

func transition(cfg Config, current types.TargetState, currentFlask types.FlaskID, in Input) (types.TargetState, string, bool) {
	// Investigate applies to any non-Fin state regardless of what it is,
	// except the exhausted-attempts case is only meaningful once already
	// Investigating (the per-row case below takes precedence there).
	if in.Kind == InputInvestigate && current != types.StateFin && current != types.StateInvestigating {
		return types.StateInvestigating, "Investigate", true
	}

	switch current {
	case types.StateUnknown:
		if in.Kind == InputDiscovery {
			return types.StateUnmonitored, "Discovery", true
		}

	case types.StateUnmonitored:
		if in.Kind == InputAssignment {
			return types.StateAssigned, "Assignment", true
		}

	case types.StateAssigned:
		if in.Kind == InputConfirmation {
			return types.StateMonitored, "Confirmation", true
		}
		if in.Kind == InputAssignment && in.FlaskID != currentFlask {
			return types.StateDoubleAssigned, "Assignment", true
		}

	case types.StateMonitored:
		if in.Kind == InputConfirmation && in.FlaskID != currentFlask {
			return types.StateDoubleMonitored, "Confirmation", true
		}
		if in.Kind == InputUnmonitoring {
			return types.StateUnmonitored, "Unmonitoring", true
		}

	case types.StateInvestigating:
		if in.Kind == InputConfirmation {
			return types.StateMonitored, "Confirmation", true
		}
		if in.Kind == InputInvestigate && in.Attempt >= cfg.AttemptThreshold {
			return cfg.TerminalState, "Investigate", true
		}

	case types.StateDoubleAssigned:
		if in.Kind == InputConfirmation {
			// Tie-break: keep the confirming flask.
			return types.StateMonitored, "Confirmation", true
		}
	}

	return "", "", false
}
