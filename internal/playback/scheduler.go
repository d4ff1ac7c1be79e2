// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package playback paces assistant text onto the screen at a constant rate,
// independent of how fast the network delivers it.
//
// A Scheduler owns one cursor per assistant message, keyed by message id.
// Each cursor reveals one rune per tick until it catches up with the latest
// target text, and holds at most one pending timer. The scheduler is not
// safe for concurrent use: call it, and let its timers fire, on one event
// loop.
package playback

import (
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// DefaultDelay is the inter-character delay.
const DefaultDelay = 20 * time.Millisecond

// Errors returned by Advance when a target does not extend the text already
// scheduled. The cursor is left untouched.
var (
	ErrShrink   = errors.New("playback: target is shorter than scheduled text")
	ErrDiverged = errors.New("playback: target does not extend scheduled text")
)

// Clock schedules fn to run after d on the scheduler's loop and returns a
// function that cancels it. eventloop.Runtime satisfies Clock.
type Clock interface {
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

// RenderFunc receives the visible prefix of a message after each tick.
type RenderFunc func(visible string)

// Config holds scheduler options.
type Config struct {
	// Delay between revealed runes (default: DefaultDelay).
	Delay time.Duration
	// Logger receives rejected targets.
	Logger *zerolog.Logger
}

// =============================================================================
// CURSOR
// =============================================================================

// cursor is the playback state of one message.
type cursor struct {
	id        string
	text      string
	runes     []rune
	displayed int

	stop     func() bool
	complete bool

	render RenderFunc
	done   func()
}

func (c *cursor) caughtUp() bool {
	return c.displayed >= len(c.runes)
}

// =============================================================================
// SCHEDULER
// =============================================================================

// Scheduler paces text for any number of messages.
type Scheduler struct {
	clock   Clock
	delay   time.Duration
	cursors map[string]*cursor
	log     zerolog.Logger
}

// NewScheduler creates a scheduler driven by clock.
func NewScheduler(clock Clock, cfg Config) *Scheduler {
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.Delay == 0 {
		cfg.Delay = DefaultDelay
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Scheduler{
		clock:   clock,
		delay:   cfg.Delay,
		cursors: make(map[string]*cursor),
		log:     logger.With().Str("component", "playback").Logger(),
	}
}

// Delay returns the current inter-character delay.
func (s *Scheduler) Delay() time.Duration {
	return s.delay
}

// SetDelay changes the delay for ticks scheduled from now on. Values <= 0
// are ignored.
func (s *Scheduler) SetDelay(d time.Duration) {
	if d > 0 {
		s.delay = d
	}
}

// Advance sets the target text for message id and makes sure a tick is
// pending if there is anything left to reveal. Calling it again before the
// pending tick fires never schedules a second one; the pending tick sees
// the new target. onRender replaces the previous callback when non-nil.
//
// target must extend the text already scheduled. Otherwise Advance returns
// ErrShrink or ErrDiverged and changes nothing.
func (s *Scheduler) Advance(id, target string, onRender RenderFunc) error {
	c, ok := s.cursors[id]
	if !ok {
		c = &cursor{id: id}
		s.cursors[id] = c
	}

	if target != c.text {
		if !strings.HasPrefix(target, c.text) {
			err := ErrDiverged
			if strings.HasPrefix(c.text, target) {
				err = ErrShrink
			}
			s.log.Warn().
				Str("message_id", id).
				Int("scheduled", len(c.text)).
				Int("target", len(target)).
				Err(err).
				Msg("rejected playback target")
			return err
		}
		suffix := target[len(c.text):]
		c.runes = append(c.runes, []rune(suffix)...)
		c.text = target
	}
	if onRender != nil {
		c.render = onRender
	}

	if c.stop == nil && !c.caughtUp() {
		s.schedule(c)
	}
	return nil
}

// Complete marks the producer of message id as finished. onDone runs once
// the cursor has revealed the whole target; immediately if it already has
// or if there is no cursor for id. Completion never skips unrevealed text.
func (s *Scheduler) Complete(id string, onDone func()) {
	c, ok := s.cursors[id]
	if !ok {
		if onDone != nil {
			onDone()
		}
		return
	}
	c.complete = true
	c.done = onDone
	if c.caughtUp() {
		s.finish(c)
	}
}

// Stop cancels playback of message id without running its done callback.
func (s *Scheduler) Stop(id string) {
	c, ok := s.cursors[id]
	if !ok {
		return
	}
	s.release(c)
	delete(s.cursors, id)
}

// StopAll cancels every cursor.
func (s *Scheduler) StopAll() {
	for id, c := range s.cursors {
		s.release(c)
		delete(s.cursors, id)
	}
}

// Displayed returns how many runes of message id are visible.
func (s *Scheduler) Displayed(id string) (int, bool) {
	c, ok := s.cursors[id]
	if !ok {
		return 0, false
	}
	return c.displayed, true
}

// Visible returns the revealed prefix of message id.
func (s *Scheduler) Visible(id string) string {
	c, ok := s.cursors[id]
	if !ok {
		return ""
	}
	return string(c.runes[:c.displayed])
}

// Active returns the ids of messages with a live cursor, sorted.
func (s *Scheduler) Active() []string {
	ids := make([]string, 0, len(s.cursors))
	for id := range s.cursors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Pending returns how many ticks are scheduled. Never more than one per
// cursor.
func (s *Scheduler) Pending() int {
	n := 0
	for _, c := range s.cursors {
		if c.stop != nil {
			n++
		}
	}
	return n
}

// Remaining returns how many runes of message id are still to be shown.
func (s *Scheduler) Remaining(id string) int {
	c, ok := s.cursors[id]
	if !ok {
		return 0
	}
	return len(c.runes) - c.displayed
}

// =============================================================================
// TICKS
// =============================================================================

func (s *Scheduler) schedule(c *cursor) {
	c.stop = s.clock.AfterFunc(s.delay, func() { s.tick(c) })
}

func (s *Scheduler) tick(c *cursor) {
	c.stop = nil
	// A stopped cursor may still have a tick in flight on the loop.
	if s.cursors[c.id] != c {
		return
	}

	c.displayed++
	if c.render != nil {
		c.render(string(c.runes[:c.displayed]))
	}
	// The render callback may have stopped this cursor.
	if s.cursors[c.id] != c {
		return
	}

	switch {
	case !c.caughtUp():
		s.schedule(c)
	case c.complete:
		s.finish(c)
	}
}

func (s *Scheduler) finish(c *cursor) {
	s.release(c)
	delete(s.cursors, c.id)
	if c.done != nil {
		done := c.done
		c.done = nil
		done()
	}
}

func (s *Scheduler) release(c *cursor) {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
}

// RuneLen returns the length of text in playback units.
func RuneLen(text string) int {
	return utf8.RuneCountInString(text)
}
