// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package eventloop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var (
	_ Runtime = (*Loop)(nil)
	_ Runtime = (*Manual)(nil)
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =============================================================================
// LOOP TESTS
// =============================================================================

func TestLoop_RunsPostsInOrder(t *testing.T) {
	loop := New(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	var got []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		loop.Post(func() { got = append(got, i) })
	}
	loop.Post(func() { close(done) })

	errc := make(chan error, 1)
	go func() { errc <- loop.Run(ctx) }()

	<-done
	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestLoop_PostFromLoopDoesNotBlock(t *testing.T) {
	loop := New(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	var depth int
	var recurse func()
	recurse = func() {
		depth++
		if depth == 100 {
			close(done)
			return
		}
		loop.Post(recurse)
	}
	loop.Post(recurse)

	go loop.Run(ctx)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("nested posts did not drain")
	}
	assert.Equal(t, 100, depth)
}

func TestLoop_AfterFuncRunsOnLoop(t *testing.T) {
	loop := New(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	fired := make(chan struct{})
	loop.AfterFunc(5*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
}

func TestLoop_StoppedTimerNeverRuns(t *testing.T) {
	loop := New(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	var mu sync.Mutex
	ran := false
	stop := loop.AfterFunc(20*time.Millisecond, func() {
		mu.Lock()
		ran = true
		mu.Unlock()
	})
	assert.True(t, stop(), "first stop should report it prevented the call")
	assert.False(t, stop(), "second stop is a no-op")

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, ran)
}

func TestLoop_PanicDoesNotKillLoop(t *testing.T) {
	loop := New(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	done := make(chan struct{})
	loop.Post(func() { panic("boom") })
	loop.Post(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop died after panic")
	}
}

func TestLoop_PostAfterStopIsDropped(t *testing.T) {
	loop := New(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = loop.Run(ctx)

	loop.Post(func() { t.Error("should not run") })
	assert.Equal(t, 0, loop.Len())
}

// =============================================================================
// MANUAL TESTS
// =============================================================================

func TestManual_AdvanceFiresInDeadlineOrder(t *testing.T) {
	m := NewManual()
	var order []string

	m.AfterFunc(30*time.Millisecond, func() { order = append(order, "c") })
	m.AfterFunc(10*time.Millisecond, func() { order = append(order, "a") })
	m.AfterFunc(20*time.Millisecond, func() { order = append(order, "b") })

	assert.Equal(t, 2, m.Advance(25*time.Millisecond))
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, 25*time.Millisecond, m.Now())
	assert.Equal(t, 1, m.PendingTimers())

	m.Advance(5 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 0, m.PendingTimers())
}

func TestManual_TimersScheduledDuringAdvanceFire(t *testing.T) {
	m := NewManual()
	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		if ticks < 5 {
			m.AfterFunc(10*time.Millisecond, tick)
		}
	}
	m.AfterFunc(10*time.Millisecond, tick)

	m.Advance(100 * time.Millisecond)
	assert.Equal(t, 5, ticks)
	assert.Equal(t, 0, m.PendingTimers())
}

func TestManual_StopPreventsFire(t *testing.T) {
	m := NewManual()
	stop := m.AfterFunc(time.Millisecond, func() { t.Error("stopped timer fired") })
	require.True(t, stop())
	assert.Equal(t, 0, m.Advance(time.Second))
}

func TestManual_RunUntilWaitsForGoroutinePosts(t *testing.T) {
	m := NewManual()
	count := 0

	go func() {
		for i := 0; i < 3; i++ {
			m.Post(func() { count++ })
		}
	}()

	ok := m.RunUntil(func() bool { return count == 3 }, 2*time.Second)
	assert.True(t, ok)
}
