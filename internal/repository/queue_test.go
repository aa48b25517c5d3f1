package repository

// ============================================================================
// Command Queue Test File
// Purpose: Verify FIFO ordering, ReassignWork dedup, and close/drain semantics
// ============================================================================

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemist/chemist/pkg/types"
)

func TestCommandQueueFIFOOrder(t *testing.T) {
	q := NewCommandQueue()
	q.Enqueue(types.RepoCommand{Kind: types.CommandTelemetry, FlaskID: "f1"})
	q.Enqueue(types.RepoCommand{Kind: types.CommandMonitor, FlaskID: "f2"})

	ctx := context.Background()
	first, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.CommandTelemetry, first.Kind)

	second, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.CommandMonitor, second.Kind)
}

// TestCommandQueueDedupsConsecutiveSameFlaskReassignWork is the direct
// regression test for the high-water-mark dedup improvement: two
// ReassignWork commands enqueued back to back for the same flask collapse
// into one.
func TestCommandQueueDedupsConsecutiveSameFlaskReassignWork(t *testing.T) {
	q := NewCommandQueue()
	q.Enqueue(types.RepoCommand{Kind: types.CommandReassignWork, FlaskID: "f1"})
	q.Enqueue(types.RepoCommand{Kind: types.CommandReassignWork, FlaskID: "f1"})

	assert.Equal(t, 1, q.Len())

	ctx := context.Background()
	cmd, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.CommandReassignWork, cmd.Kind)
	assert.Equal(t, types.FlaskID("f1"), cmd.FlaskID)

	assertDequeueBlocks(t, q)
}

// TestCommandQueueDoesNotDedupDifferentFlasks checks the dedup is scoped to
// the same FlaskID — two different flasks both needing reassignment must
// both survive.
func TestCommandQueueDoesNotDedupDifferentFlasks(t *testing.T) {
	q := NewCommandQueue()
	q.Enqueue(types.RepoCommand{Kind: types.CommandReassignWork, FlaskID: "f1"})
	q.Enqueue(types.RepoCommand{Kind: types.CommandReassignWork, FlaskID: "f2"})

	assert.Equal(t, 2, q.Len())

	ctx := context.Background()
	first, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.FlaskID("f1"), first.FlaskID)

	second, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.FlaskID("f2"), second.FlaskID)
}

// TestCommandQueueDoesNotDedupAcrossInterveningCommand checks the dedup
// only looks at the immediately preceding entry: a ReassignWork for f1,
// then an unrelated command, then another ReassignWork for f1, must not
// collapse — the intervening command breaks adjacency.
func TestCommandQueueDoesNotDedupAcrossInterveningCommand(t *testing.T) {
	q := NewCommandQueue()
	q.Enqueue(types.RepoCommand{Kind: types.CommandReassignWork, FlaskID: "f1"})
	q.Enqueue(types.RepoCommand{Kind: types.CommandMonitor, FlaskID: "f1"})
	q.Enqueue(types.RepoCommand{Kind: types.CommandReassignWork, FlaskID: "f1"})

	assert.Equal(t, 3, q.Len())
}

// TestCommandQueueDedupsOnlyAgainstMostRecentEntry checks that dedup
// compares against the tail of the queue, not the whole backlog: a
// ReassignWork for f1 followed by one for f2 followed by another for f1
// must not collapse, since f2's entry sits between them.
func TestCommandQueueDedupsOnlyAgainstMostRecentEntry(t *testing.T) {
	q := NewCommandQueue()
	q.Enqueue(types.RepoCommand{Kind: types.CommandReassignWork, FlaskID: "f1"})
	q.Enqueue(types.RepoCommand{Kind: types.CommandReassignWork, FlaskID: "f2"})
	q.Enqueue(types.RepoCommand{Kind: types.CommandReassignWork, FlaskID: "f1"})

	assert.Equal(t, 3, q.Len())
}

func TestCommandQueueCloseDrainsBacklogThenReportsClosed(t *testing.T) {
	q := NewCommandQueue()
	q.Enqueue(types.RepoCommand{Kind: types.CommandTelemetry, FlaskID: "f1"})
	q.Close()

	ctx := context.Background()
	cmd, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.CommandTelemetry, cmd.Kind)

	_, err = q.Dequeue(ctx)
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestCommandQueueEnqueueAfterCloseIsSilentNoOp(t *testing.T) {
	q := NewCommandQueue()
	q.Close()
	q.Enqueue(types.RepoCommand{Kind: types.CommandTelemetry, FlaskID: "f1"})
	assert.Equal(t, 0, q.Len())
}

func assertDequeueBlocks(t *testing.T, q *CommandQueue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
