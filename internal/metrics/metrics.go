// ============================================================================
// Chemist Metrics - Prometheus 監控指標
// ============================================================================
//
// Package: internal/metrics
// 文件: metrics.go
// 功能: 收集並暴露 Repository 的運行指標，支援 Prometheus 監控
//
// 指標分類:
//
//   1. 狀態計量 (Gauge) - 瞬時值，每次 bucket move 後刷新：
//      - chemist_targets_in_state{state=...}: 當前每個生命週期狀態的 target 數
//
//   2. 計數器 (Counter) - 累計值，只增不減：
//      - chemist_platform_events_total{kind=...}: 已處理的平台事件數
//      - chemist_platform_event_failures_total: dispatch 時 panic 被攔截的次數
//      - chemist_repo_commands_total{kind=...}: 已下發的 RepoCommand 數
//      - chemist_ring_buffer_evictions_total{buffer=...}: 環形緩衝區淘汰次數
//      - chemist_errors_total: 經 ErrorSink 記錄的錯誤數
//
// 使用場景:
//
//   監控告警:
//   - chemist_platform_event_failures_total 增長 → 上游事件格式異常
//   - chemist_targets_in_state{state="Unmonitorable"} 持續增長 → 目標不可達
//   - chemist_ring_buffer_evictions_total 增長過快 → 稽核視窗覆蓋範圍不足
//
//   PromQL 範例:
//
//     # 每分鐘處理的平台事件數
//     rate(chemist_platform_events_total[1m])
//
//     # dispatch 失敗率
//     rate(chemist_platform_event_failures_total[5m]) / rate(chemist_platform_events_total[5m])
//
// HTTP 端點:
//   透過 /metrics 端點暴露，由 Prometheus 定期抓取；預設監聽位址見
//   internal/config.Defaults().Metrics.ListenAddr。
//
// ============================================================================

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chemist/chemist/pkg/types"
)

// Sink is the interface the repository depends on. The repository never
// imports prometheus directly; Collector is the concrete implementation a
// caller wires in at construction.
type Sink interface {
	SetStateCount(state types.TargetState, count int)
	RecordPlatformEvent(kind types.PlatformEventKind)
	RecordPlatformEventFailure()
	RecordRepoCommand(kind types.RepoCommandKind)
	RecordRingEviction(buffer string)
	RecordError()
}

// Collector is the Prometheus-backed Sink implementation.
type Collector struct {
	stateGauges map[types.TargetState]prometheus.Gauge // 每個 TargetState 一個獨立 Gauge

	platformEvents        *prometheus.CounterVec // 依 PlatformEventKind 分類
	platformEventFailures prometheus.Counter      // dispatch panic 被攔截次數
	repoCommands          *prometheus.CounterVec  // 依 RepoCommandKind 分類
	ringEvictions         *prometheus.CounterVec  // 依緩衝區名稱分類
	errors                prometheus.Counter      // 經 ErrorSink 記錄的錯誤總數
}

// NewCollector builds and registers a Collector against reg. Pass
// prometheus.NewRegistry() in tests to avoid the default registry's
// "duplicate metrics collector registration" panic across test runs;
// pass prometheus.DefaultRegisterer in production.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		stateGauges: make(map[types.TargetState]prometheus.Gauge, len(types.States)),
		platformEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chemist_platform_events_total",
			Help: "Total number of platform events processed, by kind.",
		}, []string{"kind"}),
		platformEventFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chemist_platform_event_failures_total",
			Help: "Total number of platform events that raised during dispatch and were swallowed.",
		}),
		repoCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chemist_repo_commands_total",
			Help: "Total number of outbound RepoCommands enqueued, by kind.",
		}, []string{"kind"}),
		ringEvictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chemist_ring_buffer_evictions_total",
			Help: "Total number of entries evicted from a bounded ring buffer, by buffer name.",
		}, []string{"buffer"}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chemist_errors_total",
			Help: "Total number of errors recorded via ErrorSink.",
		}),
	}

	for _, state := range types.States {
		c.stateGauges[state] = prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "chemist_targets_in_state",
			Help:        "Current number of targets in a given lifecycle state.",
			ConstLabels: prometheus.Labels{"state": string(state)},
		})
	}

	reg.MustRegister(c.platformEvents, c.platformEventFailures, c.repoCommands, c.ringEvictions, c.errors)
	for _, g := range c.stateGauges {
		reg.MustRegister(g)
	}

	return c
}

func (c *Collector) SetStateCount(state types.TargetState, count int) {
	g, ok := c.stateGauges[state]
	if !ok {
		return
	}
	g.Set(float64(count))
}

func (c *Collector) RecordPlatformEvent(kind types.PlatformEventKind) {
	c.platformEvents.WithLabelValues(string(kind)).Inc()
}

func (c *Collector) RecordPlatformEventFailure() {
	c.platformEventFailures.Inc()
}

func (c *Collector) RecordRepoCommand(kind types.RepoCommandKind) {
	c.repoCommands.WithLabelValues(string(kind)).Inc()
}

func (c *Collector) RecordRingEviction(buffer string) {
	c.ringEvictions.WithLabelValues(buffer).Inc()
}

func (c *Collector) RecordError() {
	c.errors.Inc()
}

// StartServer starts the Prometheus HTTP exposition endpoint. It is an
// ambient helper cmd/chemist can call; the repository itself never invokes
// it.
func StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}

// NoopSink discards every recording. Useful as the default when a caller
// doesn't care about metrics, and in tests that only assert on the
// repository's own state rather than on exported metrics.
type NoopSink struct{}

func (NoopSink) SetStateCount(types.TargetState, int)        {}
func (NoopSink) RecordPlatformEvent(types.PlatformEventKind) {}
func (NoopSink) RecordPlatformEventFailure()                 {}
func (NoopSink) RecordRepoCommand(types.RepoCommandKind)     {}
func (NoopSink) RecordRingEviction(string)                   {}
func (NoopSink) RecordError()                                {}

var (
	_ Sink = NoopSink{}
	_ Sink = (*Collector)(nil)
)
