// ============================================================================
// Chemist Executor - 單一寫入者 goroutine
// ============================================================================
//
// Package: internal/executor
// 文件: executor.go
// 功能: 提供一個專用的寫入者 goroutine，依提交順序逐一執行閉包
//
// 架構組件:
//   ┌──────────┐   Submit(fn)   ┌─────────┐   for task := range taskCh
//   │ Caller 1 │ ──────────────▶│ taskCh  │──────────────────┐
//   │ Caller 2 │ ──────────────▶│(buffered)│                  ▼
//   │ Caller N │ ──────────────▶│         │             run goroutine
//   └──────────┘                └─────────┘             (唯一寫入者)
//
// 生命週期:
//   1. New(bufferSize) - 建立 Executor，初始化 taskCh/stopCh
//   2. Start()          - 啟動唯一的寫入者 goroutine
//   3. Submit(fn)        - 提交任務；只會因為 channel 積壓而阻塞，
//                          不會等待任務本身執行完成
//   4. Stop()            - 關閉 taskCh，等待寫入者排空佇列並退出
//
// 並發控制:
//   - taskCh: 帶緩衝 channel，避免 Submit 在正常情況下阻塞
//   - stopCh: 與 taskCh 的關閉一起形成 select 競爭，讓 Stop() 與 Submit()
//     的交錯被觀察為 ErrClosed 而不是對已關閉 channel 送值而 panic
//   - mu: 保護 started/stopped 兩個旗標
//
// ============================================================================

package executor

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Submit once the executor has been stopped.
var ErrClosed = errors.New("executor: closed")

// Executor runs submitted functions one at a time, in submission order,
// on a single dedicated goroutine. Submit blocks only on channel backlog,
// never on the function's own execution finishing — callers that need a
// result synchronize themselves (e.g. via a channel closed by the task).
type Executor struct {
	taskCh chan func()   // 任務佇列；由唯一的寫入者 goroutine 消費
	stopCh chan struct{} // 與 taskCh 關閉同步，讓 Submit 能觀察到 Stop
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

// New creates an Executor with the given task backlog capacity.
func New(bufferSize int) *Executor {
	return &Executor{
		taskCh: make(chan func(), bufferSize),
		stopCh: make(chan struct{}),
	}
}

// Start launches the writer goroutine. Calling Start twice is an error.
func (e *Executor) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return errors.New("executor: already started")
	}
	e.started = true

	e.wg.Add(1)
	go e.run()
	return nil
}

func (e *Executor) run() {
	defer e.wg.Done()
	for task := range e.taskCh {
		task()
	}
}

// Submit enqueues task to run on the writer goroutine. It returns
// ErrClosed if the executor has been stopped.
//
// stopCh is checked under the lock first, then again in a select racing
// the send. If Stop() closes taskCh after that check and the send loses
// the race, the resulting panic is recovered, so a Stop() that interleaves
// with a Submit() is observed as ErrClosed rather than a panic on a closed
// channel.
func (e *Executor) Submit(task func()) (err error) {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return errors.New("executor: not started")
	}
	if e.stopped {
		e.mu.Unlock()
		return ErrClosed
	}
	taskCh := e.taskCh
	stopCh := e.stopCh
	e.mu.Unlock()

	defer func() {
		if recover() != nil {
			err = ErrClosed
		}
	}()

	select {
	case taskCh <- task:
		return nil
	case <-stopCh:
		return ErrClosed
	}
}

// Stop closes the task channel and waits for the writer goroutine to
// drain whatever was already queued before returning.
func (e *Executor) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	e.mu.Unlock()

	close(e.stopCh)
	close(e.taskCh)
	e.wg.Wait()
}
