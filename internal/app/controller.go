// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/cradle-tui/internal/directory"
	"github.com/jeranaias/cradle-tui/internal/eventloop"
	"github.com/jeranaias/cradle-tui/internal/model"
	"github.com/jeranaias/cradle-tui/internal/navigation"
	"github.com/jeranaias/cradle-tui/internal/playback"
	"github.com/jeranaias/cradle-tui/internal/reconcile"
)

// Directory lists conversations and loads their messages.
// *directory.Client implements it.
type Directory interface {
	directory.Lister
	reconcile.Loader
}

// Options configures a Controller. Runtime and Sender are required.
type Options struct {
	Runtime eventloop.Runtime
	// Context bounds all network calls made by the controller.
	Context context.Context
	Sender  reconcile.Sender
	// Directory is optional; without it there is no conversation list
	// and selected conversations open empty.
	Directory Directory

	// CharDelay paces playback (default: playback.DefaultDelay).
	CharDelay time.Duration
	// RefreshInterval spaces directory fetches
	// (default: directory.DefaultRefreshInterval).
	RefreshInterval time.Duration

	Logger *zerolog.Logger
}

// Snapshot is a copy of everything a front end renders.
type Snapshot struct {
	View           navigation.View
	ConversationID model.ID
	Title          string
	Messages       []model.Message

	// InFlight is set from submit until the reply finished playing.
	InFlight bool
	// Loading is set while a selected conversation is fetched.
	Loading bool
	// Err is the last send or load failure, cleared by the next attempt.
	Err error

	Conversations []directory.Conversation
	DirectoryErr  error

	Fragment   string
	CanBack    bool
	CanForward bool
}

// Controller owns one chat session. All methods must be called on the
// runtime it was created with.
type Controller struct {
	rt        eventloop.Runtime
	ctx       context.Context
	history   *navigation.MemoryHistory
	nav       *navigation.Machine
	rec       *reconcile.Reconciler
	sched     *playback.Scheduler
	refresher *directory.Refresher
	log       zerolog.Logger

	convs  []directory.Conversation
	dirErr error

	dirty     bool
	onChange  []func(Snapshot)
	onSettled []func(reconcile.Settlement)
}

// New builds a controller and its components.
func New(opts Options) *Controller {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	c := &Controller{
		rt:  opts.Runtime,
		ctx: opts.Context,
		log: logger.With().Str("component", "app").Logger(),
	}

	c.sched = playback.NewScheduler(opts.Runtime, playback.Config{
		Delay:  opts.CharDelay,
		Logger: &logger,
	})

	var (
		refresher reconcile.Refresher
		loader    reconcile.Loader
	)
	if opts.Directory != nil {
		c.refresher = directory.NewRefresher(opts.Context, opts.Runtime, opts.Directory, opts.RefreshInterval, &logger)
		c.refresher.OnResult(c.directoryResult)
		refresher = c.refresher
		loader = opts.Directory
	}

	c.rec = reconcile.New(reconcile.Config{
		Runtime:   opts.Runtime,
		Scheduler: c.sched,
		Sender:    opts.Sender,
		Refresher: refresher,
		Loader:    loader,
		Context:   opts.Context,
		Logger:    &logger,
	})

	c.history = navigation.NewMemoryHistory(opts.Runtime)
	c.nav = navigation.New(c.history, c.rec, &logger)
	c.rec.SetNavigator(c.nav)
	c.history.Listen(c.nav.HandleEvent)

	c.rec.OnChange(func() {
		c.applyDirectoryTitle()
		c.changed()
	})
	c.rec.OnSettled(c.settled)
	c.nav.OnChange(func(navigation.State) { c.changed() })
	return c
}

// Start fetches the conversation list once.
func (c *Controller) Start() {
	c.Refresh()
}

// OnChange registers fn to receive a snapshot after changes. Changes made
// within one runtime turn are coalesced into one snapshot.
func (c *Controller) OnChange(fn func(Snapshot)) {
	c.onChange = append(c.onChange, fn)
}

// OnSettled registers fn for the outcome of each started submission.
func (c *Controller) OnSettled(fn func(reconcile.Settlement)) {
	c.onSettled = append(c.onSettled, fn)
}

// =============================================================================
// USER ACTIONS
// =============================================================================

// Submit sends text in the active conversation.
func (c *Controller) Submit(text string) reconcile.Outcome {
	return c.rec.Submit(text)
}

// NewConversation returns to the welcome view.
func (c *Controller) NewConversation() {
	c.nav.NewConversation()
}

// Select opens a saved conversation.
func (c *Controller) Select(id model.ID) {
	c.nav.Select(id)
}

// Back moves one history entry back. It reports false at the start.
func (c *Controller) Back() bool {
	return c.history.Back()
}

// Forward moves one history entry forward. It reports false at the end.
func (c *Controller) Forward() bool {
	return c.history.Forward()
}

// Navigate goes to fragment as if typed into a location bar, e.g.
// "#chat/c_12" or "#welcome".
func (c *Controller) Navigate(fragment string) {
	c.history.Go(fragment)
}

// Refresh reloads the conversation list.
func (c *Controller) Refresh() {
	if c.refresher != nil {
		c.refresher.Refresh()
	}
}

// SetCharDelay changes the playback pace for subsequent characters.
func (c *Controller) SetCharDelay(d time.Duration) {
	c.sched.SetDelay(d)
	c.log.Debug().Dur("delay", c.sched.Delay()).Msg("playback delay changed")
}

// =============================================================================
// STATE
// =============================================================================

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	state := c.nav.State()
	s := Snapshot{
		View:           state.View,
		ConversationID: c.rec.ConversationID(),
		Title:          c.rec.Title(),
		Messages:       c.rec.Messages(),
		InFlight:       c.rec.InFlight(),
		Loading:        c.rec.Loading(),
		Err:            c.rec.LastError(),
		Conversations:  append([]directory.Conversation(nil), c.convs...),
		DirectoryErr:   c.dirErr,
		Fragment:       c.history.Fragment(),
		CanBack:        c.history.CanBack(),
		CanForward:     c.history.CanForward(),
	}
	if state.View == navigation.ViewWelcome {
		s.ConversationID = ""
		s.Title = ""
	}
	return s
}

// Conversations returns the last fetched conversation list.
func (c *Controller) Conversations() []directory.Conversation {
	return append([]directory.Conversation(nil), c.convs...)
}

// Scheduler exposes the playback scheduler.
func (c *Controller) Scheduler() *playback.Scheduler {
	return c.sched
}

// History exposes the navigation history.
func (c *Controller) History() *navigation.MemoryHistory {
	return c.history
}

// =============================================================================
// INTERNALS
// =============================================================================

func (c *Controller) directoryResult(convs []directory.Conversation, err error) {
	if err != nil {
		c.dirErr = err
		c.changed()
		return
	}
	c.convs = convs
	c.dirErr = nil
	c.applyDirectoryTitle()
	c.changed()
}

// applyDirectoryTitle fills in the active title from the list when the
// send did not return one.
func (c *Controller) applyDirectoryTitle() {
	id := c.rec.ConversationID()
	if id.IsZero() || c.rec.Title() != "" {
		return
	}
	for _, conv := range c.convs {
		if conv.ID == id && conv.Title != "" {
			c.rec.SetTitle(conv.Title)
			return
		}
	}
}

func (c *Controller) settled(s reconcile.Settlement) {
	ev := c.log.Debug().Str("outcome", s.Outcome.String())
	if s.Err != nil {
		ev = ev.Err(s.Err)
	}
	ev.Msg("submission settled")
	for _, fn := range c.onSettled {
		fn(s)
	}
}

func (c *Controller) changed() {
	if c.dirty || len(c.onChange) == 0 {
		return
	}
	c.dirty = true
	c.rt.Post(c.emit)
}

func (c *Controller) emit() {
	c.dirty = false
	snap := c.Snapshot()
	for _, fn := range c.onChange {
		fn(snap)
	}
}
