// ============================================================================
// Chemist 儲存庫 - 目標生命週期狀態機實現
// ============================================================================
//
// Package: internal/repository
// 文件: repository.go
// 功能: 協調平台發現、flask 遙測與內部事件，驅動每個 target 的生命週期狀態機
//
// 設計理念:
//   單一寫入者 (single writer) 模式，兼顧併發安全與邏輯簡單:
//   1. 四個獨立狀態格 (cell) - targets / buckets / flasks / dist，各自持鎖
//   2. 所有修改透過 exec (executor.Executor) 序列化，讀取則直接走各格快照
//   3. 三個有界環形緩衝區記錄歷史，供稽核與除錯之用
//
// 架構組件:
//   ┌──────────────────┐        Submit(closure)        ┌──────────────┐
//   │ PlatformHandler   │ ─────────────────────────────▶│   executor   │
//   │ ErrorSink         │                               │ (單一寫入者)  │
//   │ Merge*Distribution│◀──────────────────────────────└──────┬───────┘
//   └──────────────────┘        done chan / 直接回傳             │
//                                                                ▼
//                                      ┌─────────────────────────────────┐
//                                      │ targets / buckets / flasks / dist│
//                                      └─────────────────┬────────────────┘
//                                                         │ 狀態變更
//                                                         ▼
//                                      historyStack / repoHistoryStack / errorStack
//
// 生命週期:
//   1. New(cfg, sink, log)  - 建立 Repository，不啟動寫入者 goroutine
//   2. Start()              - 啟動 exec，開始接受 Submit
//   3. PlatformHandler(e)   - 提交事件，阻塞直到寫入者處理完成
//   4. Stop()                - 排空並停止 exec，再關閉 commands 佇列
//
// 並發安全:
//   - 四個狀態格各自以 mutex 保護，彼此之間沒有共同的鎖
//   - 跨格一致性完全依賴 exec 的單一寫入者序列化，而非更大的鎖
//   - 查詢方法 (States/Instance/...) 不經過 exec，永不因寫入阻塞
//
// ============================================================================

package repository

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/chemist/chemist/internal/config"
	"github.com/chemist/chemist/internal/executor"
	"github.com/chemist/chemist/internal/lifecycle"
	"github.com/chemist/chemist/internal/metrics"
	"github.com/chemist/chemist/internal/ring"
	"github.com/chemist/chemist/pkg/types"
)

// Repository owns the four state cells plus the ring buffers, outbound
// command queue, metrics sink, and logger wired in at construction. All
// of its cells are mutated exclusively through the single writer
// goroutine (exec); queries read each cell's own snapshot method and
// never touch exec, so they never block on a pending write.
type Repository struct {
	targets *targetIndex  // URI -> 最新 StateChange，唯一真實來源
	buckets *stateBuckets // TargetState -> URI 集合，供 O(1) 依狀態查詢
	flasks  *flaskRegistry
	dist    *distribution // FlaskID -> 被指派的 URI 集合

	historyStack     *ring.Buffer[types.PlatformEvent] // 入站事件稽核軌跡
	repoHistoryStack *ring.Buffer[types.RepoEvent]      // 已套用事件稽核軌跡
	errorStack       *ring.Buffer[types.Error]          // 帶外錯誤稽核軌跡

	commands *CommandQueue     // 對外下發的 RepoCommand 串流
	exec     *executor.Executor // 單一寫入者，序列化所有狀態格修改
	metrics  metrics.Sink
	log      *slog.Logger

	lifecycleCfg lifecycle.Config
}

// New 建立新的 Repository 實例，但不啟動寫入者 goroutine。
//
// 參數說明：
//   - cfg: 環形緩衝區容量、lifecycle 門檻值、executor 佇列深度等設定
//   - sink: 指標記錄介面；傳入 nil 時預設為 metrics.NoopSink{}
//   - log: 結構化日誌；傳入 nil 時預設為 slog.Default()
//
// 使用範例：
//
//	repo := repository.New(config.Defaults(), collector, logger)
//	if err := repo.Start(); err != nil { ... }
//
// 併發安全：回傳的 Repository 在 Start() 之後可安全地被多個 goroutine 使用。
func New(cfg config.Config, sink metrics.Sink, log *slog.Logger) *Repository {
	if sink == nil {
		sink = metrics.NoopSink{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Repository{
		targets: newTargetIndex(),
		buckets: newStateBuckets(),
		flasks:  newFlaskRegistry(),
		dist:    newDistribution(),

		historyStack:     ring.New[types.PlatformEvent](cfg.History.PlatformCapacity),
		repoHistoryStack: ring.New[types.RepoEvent](cfg.History.RepoCapacity),
		errorStack:       ring.New[types.Error](cfg.History.ErrorCapacity),

		commands: NewCommandQueue(),
		exec:     executor.New(cfg.Executor.QueueSize),
		metrics:  sink,
		log:      log,

		lifecycleCfg: lifecycle.Config{
			AttemptThreshold: cfg.Lifecycle.AttemptThreshold,
			TerminalState:    types.TargetState(cfg.Lifecycle.TerminalState),
		},
	}
}

// Start launches the writer goroutine. Must be called before
// PlatformHandler, ErrorSink, or either merge operation.
func (r *Repository) Start() error {
	return r.exec.Start()
}

// Stop 先停止寫入者 goroutine（不再接受新的 Submit，並排空已排隊的任務），
// 再關閉對外 command 佇列。順序很重要：排空中的任務仍可能下發
// RepoCommand，若先關閉佇列，這些命令會被靜默丟棄。
func (r *Repository) Stop() {
	r.exec.Stop()
	r.commands.Close()
}

// Commands exposes the outbound RepoCommand stream for the sharding
// consumer to Dequeue from.
func (r *Repository) Commands() *CommandQueue {
	return r.commands
}

// ErrorSink records an out-of-band error attributed to a flask.
func (r *Repository) ErrorSink(e types.Error) {
	done := make(chan struct{})
	err := r.exec.Submit(func() {
		defer close(done)
		if r.errorStack.Push(e) {
			r.metrics.RecordRingEviction("errorStack")
		}
		r.metrics.RecordError()
	})
	if err != nil {
		r.log.Error("error sink rejected, executor closed", "flask", e.Flask, "err", err)
		return
	}
	<-done
}

// KeySink accepts the set of metric keys discovered on a target. Reserved
// for future use; no caller materializes it yet.
func (r *Repository) KeySink(uri types.URI, keys map[string]struct{}) {}

// pushHistory appends e to historyStack and records eviction/event
// metrics. Must be called from the writer goroutine.
func (r *Repository) pushHistory(e types.PlatformEvent) {
	if r.historyStack.Push(e) {
		r.metrics.RecordRingEviction("historyStack")
	}
	r.metrics.RecordPlatformEvent(e.Kind)
}

// pushRepoHistory appends re to repoHistoryStack. Must be called from
// the writer goroutine.
func (r *Repository) pushRepoHistory(re types.RepoEvent) {
	if r.repoHistoryStack.Push(re) {
		r.metrics.RecordRingEviction("repoHistoryStack")
	}
}

// refreshGauges republishes the per-state target counts. Must be called
// from the writer goroutine after a bucket move.
func (r *Repository) refreshGauges() {
	for state, count := range r.buckets.Counts() {
		r.metrics.SetStateCount(state, count)
	}
}

// enqueueCommand pushes cmd onto the outbound stream and records it.
// Must be called from the writer goroutine.
func (r *Repository) enqueueCommand(cmd types.RepoCommand) {
	r.commands.Enqueue(cmd)
	r.metrics.RecordRepoCommand(cmd.Kind)
}

// stateOf returns the target's current state, defaulting to Unknown, and
// the FlaskID associated with its most recent transition. Must be called
// from the writer goroutine.
func (r *Repository) stateOf(uri types.URI) (types.TargetState, types.FlaskID) {
	sc, ok := r.targets.Get(uri)
	if !ok {
		return types.StateUnknown, ""
	}
	return sc.To, sc.Msg.FlaskID
}

// newSeq generates a StateChange sequence stamp, grounded on the
// ingest-engine convention of stamping records with uuid.NewString()
// rather than a shared mutable counter.
func newSeq() string {
	return uuid.NewString()
}
