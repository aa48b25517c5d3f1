// ============================================================================
// Chemist 對外命令佇列 - 無界 MPSC，帶高水位去重
// ============================================================================
//
// Package: internal/repository
// 文件: queue.go
// 功能: 承載 Repository 下發給 sharding consumer 的 RepoCommand 串流
//
// 設計理念:
//   使用 mutex + slice + 容量為 1 的 signal channel，而非帶緩衝的 channel，
//   因為 channel 的容量是硬性上限，而這條串流對生產者必須永不施加背壓。
//
// 改進（非原始設計的一部分）:
//   連續兩筆對同一 flask 的 ReassignWork，只保留後者之前、佇列尾端的那筆
//   視為多餘而捨棄新進的重複項——僅比對「最後一筆」，範圍刻意收得很窄，
//   不會影響佇列中其他位置的命令順序。
//
// ============================================================================

package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/chemist/chemist/pkg/types"
)

// ErrQueueClosed is returned by Dequeue once the queue has been closed and
// drained.
var ErrQueueClosed = errors.New("repository: command queue closed")

// CommandQueue is the unbounded, multi-producer/single-consumer stream of
// outbound RepoCommands. It is a plain mutex+slice queue rather than a
// buffered Go channel because a channel's capacity is a hard bound and
// this stream must never apply backpressure to producers enqueuing new
// commands.
type CommandQueue struct {
	mu     sync.Mutex
	items  []types.RepoCommand
	signal chan struct{} // capacity 1; closed on Close to wake blocked Dequeues
	closed bool
}

// NewCommandQueue creates an empty, open CommandQueue.
func NewCommandQueue() *CommandQueue {
	return &CommandQueue{signal: make(chan struct{}, 1)}
}

// Enqueue appends cmd. If cmd is a ReassignWork for a flask whose most
// recently enqueued, still-pending command is also a ReassignWork for that
// same flask, the new one is dropped as a redundant duplicate. Enqueue on
// a closed queue is a silent no-op: a command stream producer racing a
// shutdown should not panic or error.
func (q *CommandQueue) Enqueue(cmd types.RepoCommand) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	if cmd.Kind == types.CommandReassignWork && len(q.items) > 0 {
		last := q.items[len(q.items)-1]
		if last.Kind == types.CommandReassignWork && last.FlaskID == cmd.FlaskID {
			return
		}
	}

	q.items = append(q.items, cmd)

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Dequeue blocks until a command is available, ctx is cancelled, or the
// queue is closed and drained.
func (q *CommandQueue) Dequeue(ctx context.Context) (types.RepoCommand, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			cmd := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return cmd, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return types.RepoCommand{}, ErrQueueClosed
		}

		select {
		case <-q.signal:
			continue
		case <-ctx.Done():
			return types.RepoCommand{}, ctx.Err()
		}
	}
}

// Close marks the queue closed and wakes any blocked Dequeue. Commands
// already enqueued remain available until drained; Dequeue only returns
// ErrQueueClosed once the backlog is empty.
func (q *CommandQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	close(q.signal)
}

// Len reports the number of commands currently queued, for diagnostics.
func (q *CommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
