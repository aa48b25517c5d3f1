package metrics

// ============================================================================
// Metrics Test File
// Purpose: Verify gauge/counter registration and concurrent-update safety
// ============================================================================

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemist/chemist/pkg/types"
)

func TestNewCollectorRegistersPerStateGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	require.NotNil(t, c)
	assert.Len(t, c.stateGauges, len(types.States))
}

func TestSetStateCountUnknownStateIsNoop(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	assert.NotPanics(t, func() {
		c.SetStateCount(types.TargetState("not-a-real-state"), 5)
	})
}

func TestRecordMethodsDoNotPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	assert.NotPanics(t, func() {
		c.SetStateCount(types.StateMonitored, 3)
		c.RecordPlatformEvent(types.EventNewTarget)
		c.RecordPlatformEventFailure()
		c.RecordRepoCommand(types.CommandMonitor)
		c.RecordRingEviction("historyStack")
		c.RecordError()
	})
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)
	assert.Panics(t, func() {
		NewCollector(reg)
	})
}

func TestConcurrentRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordPlatformEvent(types.EventNewTarget)
			c.RecordRepoCommand(types.CommandMonitor)
			c.SetStateCount(types.StateMonitored, 1)
		}()
	}
	wg.Wait()
}

func TestNoopSinkSatisfiesSink(t *testing.T) {
	var s Sink = NoopSink{}
	assert.NotPanics(t, func() {
		s.SetStateCount(types.StateMonitored, 1)
		s.RecordPlatformEvent(types.EventNewTarget)
		s.RecordPlatformEventFailure()
		s.RecordRepoCommand(types.CommandMonitor)
		s.RecordRingEviction("historyStack")
		s.RecordError()
	})
}
