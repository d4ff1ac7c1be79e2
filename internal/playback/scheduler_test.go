// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package playback

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jeranaias/cradle-tui/internal/eventloop"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const tick = 20 * time.Millisecond

func newTestScheduler() (*Scheduler, *eventloop.Manual) {
	clock := eventloop.NewManual()
	return NewScheduler(clock, Config{Delay: tick}), clock
}

// recorder collects rendered lengths in runes.
type recorder struct {
	frames []string
}

func (r *recorder) render(visible string) {
	r.frames = append(r.frames, visible)
}

func (r *recorder) lengths() []int {
	out := make([]int, len(r.frames))
	for i, f := range r.frames {
		out[i] = RuneLen(f)
	}
	return out
}

// =============================================================================
// PACING TESTS
// =============================================================================

func TestAdvance_OneRunePerTick(t *testing.T) {
	s, clock := newTestScheduler()
	rec := &recorder{}

	require.NoError(t, s.Advance("m1", "Hello", rec.render))
	assert.Empty(t, rec.frames, "nothing renders before the first tick")

	for i := 1; i <= 5; i++ {
		assert.Equal(t, 1, clock.Advance(tick))
		n, ok := s.Displayed("m1")
		require.True(t, ok)
		assert.Equal(t, i, n)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, rec.lengths())
	assert.Equal(t, "Hello", rec.frames[4])

	// Caught up: the timer is released and nothing else renders.
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, 0, clock.Advance(10*tick))
	assert.Len(t, rec.frames, 5)
}

func TestAdvance_GrowingTargetResumes(t *testing.T) {
	s, clock := newTestScheduler()
	rec := &recorder{}

	require.NoError(t, s.Advance("m1", "Hi", rec.render))
	clock.Advance(5 * tick)
	require.Len(t, rec.frames, 2)

	require.NoError(t, s.Advance("m1", "Hi there", nil))
	clock.Advance(10 * tick)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, rec.lengths())
	assert.Equal(t, "Hi there", rec.frames[len(rec.frames)-1])
}

func TestAdvance_IdempotentRestart(t *testing.T) {
	s, clock := newTestScheduler()
	rec := &recorder{}

	require.NoError(t, s.Advance("m1", "a", rec.render))
	require.NoError(t, s.Advance("m1", "ab", nil))
	require.NoError(t, s.Advance("m1", "abc", nil))
	assert.Equal(t, 1, s.Pending(), "repeated Advance keeps one pending tick")
	assert.Equal(t, 1, clock.PendingTimers())

	// The single pending tick observes the latest target.
	clock.Advance(tick)
	clock.Advance(tick)
	clock.Advance(tick)
	assert.Equal(t, []string{"a", "ab", "abc"}, rec.frames)
}

func TestAdvance_StrictlyIncreasingUnderRandomGrowth(t *testing.T) {
	s, clock := newTestScheduler()
	rec := &recorder{}
	full := "Night wakings are a normal part of infant sleep."

	// Deliver in uneven fragments, some faster than playback and some slower.
	cuts := []int{3, 4, 20, 21, 22, 40, len(full)}
	for _, cut := range cuts {
		require.NoError(t, s.Advance("m1", full[:cut], rec.render))
		clock.Advance(tick * time.Duration(cut%5))
	}
	clock.Advance(tick * time.Duration(len(full)))

	lengths := rec.lengths()
	require.Len(t, lengths, len(full))
	for i, n := range lengths {
		assert.Equal(t, i+1, n)
	}
}

func TestAdvance_MultiByteText(t *testing.T) {
	s, clock := newTestScheduler()
	rec := &recorder{}

	require.NoError(t, s.Advance("m1", "夜泣き", rec.render))
	clock.Advance(3 * tick)
	assert.Equal(t, []string{"夜", "夜泣", "夜泣き"}, rec.frames)
}

func TestAdvance_RejectsShrinkAndDivergence(t *testing.T) {
	s, clock := newTestScheduler()
	rec := &recorder{}

	require.NoError(t, s.Advance("m1", "Hello", rec.render))
	clock.Advance(2 * tick)

	assert.ErrorIs(t, s.Advance("m1", "Hel", nil), ErrShrink)
	assert.ErrorIs(t, s.Advance("m1", "Goodbye", nil), ErrDiverged)

	clock.Advance(10 * tick)
	assert.Equal(t, "Hello", rec.frames[len(rec.frames)-1])
}

// =============================================================================
// COMPLETION TESTS
// =============================================================================

func TestComplete_BeforeCatchUpRevealsEverything(t *testing.T) {
	s, clock := newTestScheduler()
	rec := &recorder{}
	done := 0

	require.NoError(t, s.Advance("m1", "Hello world", rec.render))
	clock.Advance(3 * tick)
	s.Complete("m1", func() { done++ })
	assert.Equal(t, 0, done, "completion waits for playback")

	clock.Advance(100 * tick)
	assert.Equal(t, 1, done)
	assert.Equal(t, "Hello world", rec.frames[len(rec.frames)-1])
	assert.Len(t, rec.frames, 11)
	assert.Empty(t, s.Active())
	assert.Equal(t, 0, clock.PendingTimers())
}

func TestComplete_WhenCaughtUpFinishesNow(t *testing.T) {
	s, clock := newTestScheduler()
	done := 0

	require.NoError(t, s.Advance("m1", "ok", nil))
	clock.Advance(2 * tick)
	s.Complete("m1", func() { done++ })
	assert.Equal(t, 1, done)

	// Unknown id and empty target both finish immediately.
	s.Complete("missing", func() { done++ })
	require.NoError(t, s.Advance("m2", "", nil))
	s.Complete("m2", func() { done++ })
	assert.Equal(t, 3, done)
}

// =============================================================================
// CLEANUP TESTS
// =============================================================================

func TestStop_CancelsPendingTick(t *testing.T) {
	s, clock := newTestScheduler()
	rec := &recorder{}
	done := 0

	require.NoError(t, s.Advance("m1", "Hello", rec.render))
	s.Complete("m1", func() { done++ })
	clock.Advance(tick)

	s.Stop("m1")
	assert.Equal(t, 0, clock.PendingTimers())
	clock.Advance(10 * tick)

	assert.Len(t, rec.frames, 1)
	assert.Equal(t, 0, done, "Stop does not run the done callback")
	_, ok := s.Displayed("m1")
	assert.False(t, ok)
}

func TestStopAll_ReleasesEveryTimer(t *testing.T) {
	s, clock := newTestScheduler()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Advance(id, "text", nil))
	}
	assert.Equal(t, []string{"a", "b", "c"}, s.Active())
	assert.Equal(t, 3, s.Pending())

	s.StopAll()
	assert.Empty(t, s.Active())
	assert.Equal(t, 0, clock.PendingTimers())
	assert.Equal(t, 0, clock.Advance(time.Second))
}

func TestTick_RenderMayStopCursor(t *testing.T) {
	s, clock := newTestScheduler()
	frames := 0

	require.NoError(t, s.Advance("m1", "abc", func(string) {
		frames++
		s.Stop("m1")
	}))
	clock.Advance(10 * tick)
	assert.Equal(t, 1, frames)
	assert.Equal(t, 0, clock.PendingTimers())
}

func TestSetDelay(t *testing.T) {
	s, clock := newTestScheduler()
	rec := &recorder{}
	s.SetDelay(50 * time.Millisecond)
	s.SetDelay(0)
	assert.Equal(t, 50*time.Millisecond, s.Delay())

	require.NoError(t, s.Advance("m1", "ab", rec.render))
	clock.Advance(49 * time.Millisecond)
	assert.Empty(t, rec.frames)
	clock.Advance(time.Millisecond)
	assert.Len(t, rec.frames, 1)
}

func TestScheduler_RealLoop(t *testing.T) {
	loop := eventloop.New(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- loop.Run(ctx) }()

	s := NewScheduler(loop, Config{Delay: time.Millisecond})
	finished := make(chan string, 1)
	loop.Post(func() {
		var last string
		_ = s.Advance("m1", "paced", func(v string) { last = v })
		s.Complete("m1", func() { finished <- last })
	})

	select {
	case got := <-finished:
		assert.Equal(t, "paced", got)
	case <-time.After(2 * time.Second):
		t.Fatal("playback did not finish")
	}
	cancel()
	<-errc
}
