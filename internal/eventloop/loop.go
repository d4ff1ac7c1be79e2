// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package eventloop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// =============================================================================
// RUNTIME INTERFACE
// =============================================================================

// Runtime executes closures serially on one logical task queue.
type Runtime interface {
	// Post schedules fn to run on the loop. Post never runs fn inline, so it
	// is safe to call from code that is itself running on the loop.
	Post(fn func())

	// AfterFunc runs fn on the loop once d has elapsed. The returned stop
	// function prevents fn from running if it has not started yet and
	// reports whether it did so.
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

// Timer states shared by Loop and Manual.
const (
	timerPending int32 = iota
	timerFired
	timerStopped
)

// =============================================================================
// LOOP
// =============================================================================

// Loop is a Runtime backed by a single goroutine (the one calling Run).
// The queue is unbounded so that Post never blocks, even when called from
// the loop itself.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	closed  bool
	wake    chan struct{}

	log zerolog.Logger
}

// New creates a Loop. Closures posted before Run starts are kept and run
// once it does.
func New(logger zerolog.Logger) *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		log:  logger.With().Str("component", "eventloop").Logger(),
	}
}

// Post appends fn to the queue. Posts after the loop stopped are dropped.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.log.Debug().Msg("post after loop stopped; dropped")
		return
	}
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// AfterFunc schedules fn on the loop after d.
func (l *Loop) AfterFunc(d time.Duration, fn func()) func() bool {
	var state atomic.Int32
	t := time.AfterFunc(d, func() {
		l.Post(func() {
			if state.CompareAndSwap(timerPending, timerFired) {
				fn()
			}
		})
	})
	return func() bool {
		if !state.CompareAndSwap(timerPending, timerStopped) {
			return false
		}
		t.Stop()
		return true
	}
}

// Run executes posted closures until ctx is done. It returns ctx.Err().
// After Run returns, further posts are dropped.
func (l *Loop) Run(ctx context.Context) error {
	defer l.close()

	for {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn := l.pop()
			if fn == nil {
				break
			}
			l.exec(fn)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Len returns the number of closures waiting to run.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

func (l *Loop) pop() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pending) == 0 {
		return nil
	}
	fn := l.pending[0]
	l.pending[0] = nil
	l.pending = l.pending[1:]
	return fn
}

func (l *Loop) close() {
	l.mu.Lock()
	l.closed = true
	l.pending = nil
	l.mu.Unlock()
}

// exec runs fn, keeping the loop alive if it panics.
func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error().Interface("panic", r).Msg("recovered panic in loop task")
		}
	}()
	fn()
}
