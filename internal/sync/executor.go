// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package sync

import (
	"context"
	"sync"

	"github.com/tomtom215/octosync/internal/logging"
)

// Executor runs posted closures one at a time, in post order.
// Post must not block and may be called from any goroutine.
type Executor interface {
	Post(fn func())
}

// QueueExecutor is the single logical executor. Closures are queued without
// bound and drained by Serve on one goroutine.
type QueueExecutor struct {
	mu     sync.Mutex
	queue  []func()
	signal chan struct{}
}

// NewQueueExecutor creates an executor. Closures posted before Serve starts
// are kept and run once it does.
func NewQueueExecutor() *QueueExecutor {
	return &QueueExecutor{signal: make(chan struct{}, 1)}
}

// Post queues fn.
func (e *QueueExecutor) Post(fn func()) {
	e.mu.Lock()
	e.queue = append(e.queue, fn)
	e.mu.Unlock()

	select {
	case e.signal <- struct{}{}:
	default:
	}
}

// Serve drains the queue until ctx is canceled. It implements suture.Service.
func (e *QueueExecutor) Serve(ctx context.Context) error {
	for {
		for {
			fn := e.next()
			if fn == nil {
				break
			}
			runSafely(fn)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.signal:
		}
	}
}

func (e *QueueExecutor) next() func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return nil
	}
	fn := e.queue[0]
	e.queue[0] = nil
	e.queue = e.queue[1:]
	return fn
}

// String implements fmt.Stringer for suture logging.
func (e *QueueExecutor) String() string {
	return "sync-executor"
}

func runSafely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Interface("panic", r).Msg("Executor task panicked")
		}
	}()
	fn()
}

// InlineExecutor runs closures on the posting goroutine. A closure posted
// while another is running is queued and run after it, so ordering matches
// QueueExecutor. Used by tests.
type InlineExecutor struct {
	mu      sync.Mutex
	queue   []func()
	running bool
}

// NewInlineExecutor creates an InlineExecutor.
func NewInlineExecutor() *InlineExecutor {
	return &InlineExecutor{}
}

// Post runs fn, or queues it when a closure is already running.
func (e *InlineExecutor) Post(fn func()) {
	e.mu.Lock()
	e.queue = append(e.queue, fn)
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	for len(e.queue) > 0 {
		next := e.queue[0]
		e.queue = e.queue[1:]
		e.mu.Unlock()
		runSafely(next)
		e.mu.Lock()
	}
	e.running = false
	e.mu.Unlock()
}
