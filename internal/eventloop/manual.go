// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package eventloop

import (
	"sync"
	"sync/atomic"
	"time"
)

// =============================================================================
// MANUAL RUNTIME
// =============================================================================

// Manual is a Runtime with a virtual clock. Nothing runs until the caller
// drives it with RunPending, Advance or RunUntil, and the goroutine doing
// the driving acts as the loop. Posts may arrive from any goroutine.
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	queue  []func()
	timers []*manualTimer
	seq    uint64
	posted chan struct{}
}

type manualTimer struct {
	due   time.Duration
	seq   uint64
	fn    func()
	state atomic.Int32
}

// NewManual creates a Manual runtime at virtual time zero.
func NewManual() *Manual {
	return &Manual{posted: make(chan struct{}, 1)}
}

// Post queues fn for the next RunPending.
func (m *Manual) Post(fn func()) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()

	select {
	case m.posted <- struct{}{}:
	default:
	}
}

// AfterFunc registers fn to run when the virtual clock reaches now+d.
func (m *Manual) AfterFunc(d time.Duration, fn func()) func() bool {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	m.seq++
	t := &manualTimer{due: m.now + d, seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	m.mu.Unlock()

	return func() bool {
		return t.state.CompareAndSwap(timerPending, timerStopped)
	}
}

// Now returns the virtual time elapsed since NewManual.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// PendingTimers returns the number of timers that have neither fired nor
// been stopped.
func (m *Manual) PendingTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if t.state.Load() == timerPending {
			n++
		}
	}
	return n
}

// RunPending runs queued closures, including ones they post, until the
// queue is empty. It returns how many ran.
func (m *Manual) RunPending() int {
	ran := 0
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return ran
		}
		fn := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()

		fn()
		ran++
	}
}

// Advance moves the virtual clock forward by d, firing due timers in
// deadline order and draining the queue after each one. It returns the
// number of timers fired.
func (m *Manual) Advance(d time.Duration) int {
	m.RunPending()

	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	fired := 0
	for {
		t := m.nextDue(target)
		if t == nil {
			break
		}
		if t.state.CompareAndSwap(timerPending, timerFired) {
			t.fn()
			fired++
		}
		m.RunPending()
	}

	m.mu.Lock()
	m.now = target
	m.compact()
	m.mu.Unlock()
	return fired
}

// RunUntil drains the queue until cond reports true, waiting for posts from
// other goroutines in between. It gives up after timeout of wall time.
func (m *Manual) RunUntil(cond func() bool, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		m.RunPending()
		if cond() {
			return true
		}
		select {
		case <-m.posted:
		case <-deadline.C:
			m.RunPending()
			return cond()
		}
	}
}

// nextDue pops the earliest pending timer due at or before target and moves
// the clock to its deadline.
func (m *Manual) nextDue(target time.Duration) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()

	var next *manualTimer
	for _, t := range m.timers {
		if t.state.Load() != timerPending || t.due > target {
			continue
		}
		if next == nil || t.due < next.due || (t.due == next.due && t.seq < next.seq) {
			next = t
		}
	}
	if next != nil && next.due > m.now {
		m.now = next.due
	}
	return next
}

// compact drops timers that can no longer fire. Caller holds mu.
func (m *Manual) compact() {
	live := m.timers[:0]
	for _, t := range m.timers {
		if t.state.Load() == timerPending {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(m.timers); i++ {
		m.timers[i] = nil
	}
	m.timers = live
}
