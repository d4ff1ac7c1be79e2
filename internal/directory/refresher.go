// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package directory

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jeranaias/cradle-tui/internal/eventloop"
)

// DefaultRefreshInterval is the minimum spacing between list fetches.
const DefaultRefreshInterval = 2 * time.Second

// Lister fetches the conversation list. *Client implements it.
type Lister interface {
	Conversations(ctx context.Context) ([]Conversation, error)
}

// ResultFunc receives each fetched list on the runtime.
type ResultFunc func(convs []Conversation, err error)

// =============================================================================
// REFRESHER
// =============================================================================

// Refresher reloads the conversation list on request. Fetches are spaced by
// a token-bucket limiter, and requests made while a fetch is running fold
// into a single follow-up fetch.
//
// Refresh must be called on the runtime; results are delivered there too.
type Refresher struct {
	rt      eventloop.Runtime
	lister  Lister
	limiter *rate.Limiter
	ctx     context.Context
	log     zerolog.Logger

	running bool
	again   bool
	fetches int

	onResult []ResultFunc
}

// NewRefresher creates a refresher. An interval <= 0 uses
// DefaultRefreshInterval.
func NewRefresher(ctx context.Context, rt eventloop.Runtime, lister Lister, interval time.Duration, logger *zerolog.Logger) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	return &Refresher{
		rt:      rt,
		lister:  lister,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		ctx:     ctx,
		log:     l.With().Str("component", "directory").Logger(),
	}
}

// OnResult registers fn for fetched lists.
func (r *Refresher) OnResult(fn ResultFunc) {
	r.onResult = append(r.onResult, fn)
}

// Refresh requests a reload.
func (r *Refresher) Refresh() {
	if r.running {
		r.again = true
		return
	}
	r.start()
}

// Running reports whether a fetch is in progress.
func (r *Refresher) Running() bool {
	return r.running
}

// Fetches returns how many fetches have been started.
func (r *Refresher) Fetches() int {
	return r.fetches
}

func (r *Refresher) start() {
	r.running = true
	r.again = false
	r.fetches++

	go func() {
		var (
			convs []Conversation
			err   error
		)
		if err = r.limiter.Wait(r.ctx); err == nil {
			convs, err = r.lister.Conversations(r.ctx)
		}
		r.rt.Post(func() { r.finish(convs, err) })
	}()
}

func (r *Refresher) finish(convs []Conversation, err error) {
	r.running = false
	if err != nil {
		r.log.Warn().Err(err).Msg("conversation list refresh failed")
	} else {
		r.log.Debug().Int("count", len(convs)).Msg("conversation list refreshed")
	}
	for _, fn := range r.onResult {
		fn(convs, err)
	}

	if r.again && r.ctx.Err() == nil {
		r.start()
	}
}
