// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jeranaias/cradle-tui/internal/chatapi"
	"github.com/jeranaias/cradle-tui/internal/eventloop"
	"github.com/jeranaias/cradle-tui/internal/model"
	"github.com/jeranaias/cradle-tui/internal/playback"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Sender delivers one message and reports cumulative reply text.
// *chatapi.Client implements Sender.
type Sender interface {
	Send(ctx context.Context, req chatapi.Request, onProgress chatapi.ProgressFunc) (chatapi.Result, error)
}

// Navigator is the part of the navigation state machine the reconciler
// drives.
type Navigator interface {
	// EnterConversation moves from welcome to an unsaved conversation.
	EnterConversation()
	// RevertToWelcome undoes EnterConversation after a failed first send.
	RevertToWelcome()
	// Sync updates the current entry to carry id and hasMessages.
	Sync(id model.ID, hasMessages bool)
}

// Refresher asks the conversation list to reload.
type Refresher interface {
	Refresh()
}

// Loader fetches the stored messages of a conversation.
type Loader interface {
	Messages(ctx context.Context, id model.ID) ([]model.Message, error)
}

// =============================================================================
// OUTCOMES
// =============================================================================

// Outcome describes what happened to a submission.
type Outcome int

const (
	// Rejected: empty text or another submission in flight. Nothing changed.
	Rejected Outcome = iota
	// Started: the exchange was inserted and the send is running.
	Started
	// Succeeded: the reply was fully received and played back.
	Succeeded
	// Failed: the send failed and the exchange was rolled back.
	Failed
	// Discarded: the list was reset before the exchange settled.
	Discarded
)

// String returns the name of the outcome.
func (o Outcome) String() string {
	switch o {
	case Rejected:
		return "rejected"
	case Started:
		return "started"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Discarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Settlement is the final result of a started submission.
type Settlement struct {
	Outcome        Outcome
	Prompt         string
	Reply          string
	ConversationID model.ID
	Title          string
	Err            error
}

// =============================================================================
// RECONCILER
// =============================================================================

// Config holds the reconciler's collaborators. Runtime, Scheduler and
// Sender are required.
type Config struct {
	Runtime   eventloop.Runtime
	Scheduler *playback.Scheduler
	Sender    Sender
	Navigator Navigator
	Refresher Refresher
	Loader    Loader

	// Context bounds network calls. Resets do not cancel it.
	Context context.Context

	Logger *zerolog.Logger
}

// exchange is one in-flight submission.
type exchange struct {
	gen         uint64
	prompt      string
	userID      string
	assistantID string
	first       bool
	// replied is set once the network result was applied and only
	// playback remains.
	replied bool
}

// Reconciler owns the ordered message list for the active conversation.
type Reconciler struct {
	rt      eventloop.Runtime
	ctx     context.Context
	sched   *playback.Scheduler
	sender  Sender
	nav     Navigator
	refresh Refresher
	loader  Loader
	log     zerolog.Logger

	ids  model.IDSequence
	list model.MessageList
	gen  uint64

	inflight       *exchange
	conversationID model.ID
	title          string
	lastErr        error
	lastOutcome    Outcome
	loading        bool

	onChange  []func()
	onSettled []func(Settlement)
}

// New creates a reconciler.
func New(cfg Config) *Reconciler {
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Reconciler{
		rt:      cfg.Runtime,
		ctx:     cfg.Context,
		sched:   cfg.Scheduler,
		sender:  cfg.Sender,
		nav:     cfg.Navigator,
		refresh: cfg.Refresher,
		loader:  cfg.Loader,
		log:     logger.With().Str("component", "reconcile").Logger(),
	}
}

// SetNavigator attaches the navigation machine. The machine needs the
// reconciler too, so one side is wired after construction.
func (r *Reconciler) SetNavigator(nav Navigator) {
	r.nav = nav
}

// OnChange registers fn to run after every visible change to the list.
func (r *Reconciler) OnChange(fn func()) {
	r.onChange = append(r.onChange, fn)
}

// OnSettled registers fn to receive the final outcome of each submission.
func (r *Reconciler) OnSettled(fn func(Settlement)) {
	r.onSettled = append(r.onSettled, fn)
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit inserts an optimistic exchange for text and starts sending it.
// It returns Rejected without side effects if the trimmed text is empty, a
// submission is in flight, or the selected conversation is still loading.
func (r *Reconciler) Submit(text string) Outcome {
	text = strings.TrimSpace(text)
	if text == "" {
		return Rejected
	}
	if r.inflight != nil {
		r.log.Debug().Msg("submit ignored: exchange in flight")
		return Rejected
	}
	if r.loading {
		r.log.Debug().Str("conversation_id", r.conversationID.String()).Msg("submit ignored: conversation loading")
		return Rejected
	}

	wasEmpty := r.list.IsEmpty()
	ex := &exchange{
		gen:         r.gen,
		prompt:      text,
		userID:      r.ids.Next(),
		assistantID: r.ids.Next(),
		first:       wasEmpty && r.conversationID.IsZero(),
	}
	r.list.Append(
		model.NewMessage(ex.userID, model.RoleUser, text),
		model.NewPlaceholder(ex.assistantID),
	)
	r.inflight = ex
	r.lastErr = nil
	r.lastOutcome = Started

	if wasEmpty && r.nav != nil {
		r.nav.EnterConversation()
	}
	r.changed()

	req := chatapi.Request{Message: text, ConversationID: r.conversationID}
	r.log.Debug().
		Uint64("generation", ex.gen).
		Str("conversation_id", req.ConversationID.String()).
		Bool("first", ex.first).
		Msg("submitting")

	go func() {
		res, err := r.sender.Send(r.ctx, req, func(cumulative string) {
			r.rt.Post(func() { r.progress(ex, cumulative) })
		})
		r.rt.Post(func() { r.settle(ex, res, err) })
	}()
	return Started
}

// progress applies a fragment of ex's reply.
func (r *Reconciler) progress(ex *exchange, cumulative string) {
	if ex.gen != r.gen {
		return
	}
	r.advance(ex, cumulative)
}

// advance hands text to the scheduler. A reply that restarts (the
// non-streaming fallback after a partial stream) replays from the start.
func (r *Reconciler) advance(ex *exchange, text string) {
	err := r.sched.Advance(ex.assistantID, text, r.renderer(ex))
	if errors.Is(err, playback.ErrDiverged) {
		r.sched.Stop(ex.assistantID)
		err = r.sched.Advance(ex.assistantID, text, r.renderer(ex))
	}
	if err != nil {
		r.log.Debug().Err(err).Str("message_id", ex.assistantID).Msg("playback target ignored")
	}
}

func (r *Reconciler) renderer(ex *exchange) playback.RenderFunc {
	return func(visible string) {
		if ex.gen != r.gen {
			return
		}
		if msg := r.list.Get(ex.assistantID); msg != nil {
			msg.Content = visible
			r.changed()
		}
	}
}

// settle applies the network result of ex.
func (r *Reconciler) settle(ex *exchange, res chatapi.Result, err error) {
	if ex.gen != r.gen {
		r.log.Debug().
			Uint64("generation", ex.gen).
			Uint64("current", r.gen).
			Bool("ok", err == nil).
			Msg("dropping stale result")
		// The server still saved the conversation; the list should show it.
		if err == nil {
			r.requestRefresh()
		}
		r.notify(Settlement{Outcome: Discarded, Prompt: ex.prompt, Err: err})
		return
	}

	if err != nil {
		r.rollback(ex, err)
		return
	}

	ex.replied = true
	if !res.ConversationID.IsZero() {
		r.conversationID = res.ConversationID
	}
	if res.Title != "" {
		r.title = res.Title
	}
	if r.nav != nil {
		r.nav.Sync(r.conversationID, true)
	}
	r.requestRefresh()

	r.advance(ex, res.Text)
	r.sched.Complete(ex.assistantID, func() { r.finalize(ex, res) })
	r.changed()
}

// finalize runs once playback of a successful reply caught up.
func (r *Reconciler) finalize(ex *exchange, res chatapi.Result) {
	if ex.gen != r.gen {
		return
	}
	if msg := r.list.Get(ex.assistantID); msg != nil {
		msg.Content = res.Text
		msg.Pending = false
	}
	if r.inflight == ex {
		r.inflight = nil
	}
	r.lastOutcome = Succeeded
	r.changed()
	r.notify(Settlement{
		Outcome:        Succeeded,
		Prompt:         ex.prompt,
		Reply:          res.Text,
		ConversationID: r.conversationID,
		Title:          r.title,
	})
}

// rollback removes ex from the list after a failed send.
func (r *Reconciler) rollback(ex *exchange, err error) {
	r.log.Warn().Err(err).Bool("first", ex.first).Msg("send failed, rolling back")

	r.sched.Stop(ex.assistantID)
	r.list.Remove(ex.userID, ex.assistantID)
	if r.inflight == ex {
		r.inflight = nil
	}
	r.lastErr = err
	r.lastOutcome = Failed

	if r.nav != nil {
		if ex.first {
			r.nav.RevertToWelcome()
		} else {
			r.nav.Sync(r.conversationID, !r.list.IsEmpty())
		}
	}
	r.changed()
	r.notify(Settlement{Outcome: Failed, Prompt: ex.prompt, Err: err})
}

// =============================================================================
// RESET / LOAD
// =============================================================================

// Reset clears the list for the welcome view. Pending results of earlier
// submissions are dropped when they arrive.
func (r *Reconciler) Reset() {
	r.discard()
	r.conversationID = ""
	r.title = ""
	r.changed()
}

// Open resets the list and loads the stored messages of conversation id.
// Without a Loader the list stays empty.
func (r *Reconciler) Open(id model.ID) {
	r.discard()
	r.conversationID = id
	r.title = ""
	r.changed()

	if r.loader == nil || id.IsZero() {
		return
	}

	gen := r.gen
	r.loading = true
	go func() {
		msgs, err := r.loader.Messages(r.ctx, id)
		r.rt.Post(func() {
			if gen != r.gen {
				return
			}
			r.loading = false
			if err != nil {
				r.log.Warn().Err(err).Str("conversation_id", id.String()).Msg("failed to load conversation")
				r.lastErr = err
				r.changed()
				return
			}
			r.Load(id, msgs)
		})
	}()
}

// Load replaces the list with authoritative messages for conversation id.
func (r *Reconciler) Load(id model.ID, msgs []model.Message) {
	if r.conversationID != id {
		r.discard()
		r.conversationID = id
	}
	items := make([]*model.Message, len(msgs))
	for i := range msgs {
		m := msgs[i]
		m.Pending = false
		items[i] = &m
	}
	r.list.Replace(items)
	r.loading = false

	if r.nav != nil {
		r.nav.Sync(id, !r.list.IsEmpty())
	}
	r.changed()
}

// SetTitle records the conversation title, typically from the directory.
func (r *Reconciler) SetTitle(title string) {
	if r.title != title {
		r.title = title
		r.changed()
	}
}

// discard starts a new generation and empties the list.
func (r *Reconciler) discard() {
	r.gen++
	r.sched.StopAll()
	r.list.Clear()
	r.lastErr = nil
	r.loading = false

	if ex := r.inflight; ex != nil {
		r.inflight = nil
		// An exchange still waiting on the network reports Discarded from
		// settle; one that was only playing back reports it now.
		if ex.replied {
			r.notify(Settlement{Outcome: Discarded, Prompt: ex.prompt})
		}
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Messages returns a copy of the list.
func (r *Reconciler) Messages() []model.Message {
	return r.list.Snapshot()
}

// HasMessages reports whether the list is non-empty.
func (r *Reconciler) HasMessages() bool {
	return !r.list.IsEmpty()
}

// ConversationID returns the active conversation id, zero if not created.
func (r *Reconciler) ConversationID() model.ID {
	return r.conversationID
}

// Title returns the active conversation title.
func (r *Reconciler) Title() string {
	return r.title
}

// InFlight reports whether a submission is running or still playing back.
func (r *Reconciler) InFlight() bool {
	return r.inflight != nil
}

// Loading reports whether a selected conversation is being fetched.
func (r *Reconciler) Loading() bool {
	return r.loading
}

// LastError returns the error of the last failed send or load.
func (r *Reconciler) LastError() error {
	return r.lastErr
}

// LastOutcome returns the outcome of the most recent submission.
func (r *Reconciler) LastOutcome() Outcome {
	return r.lastOutcome
}

// Generation returns the current generation.
func (r *Reconciler) Generation() uint64 {
	return r.gen
}

func (r *Reconciler) requestRefresh() {
	if r.refresh != nil {
		r.refresh.Refresh()
	}
}

func (r *Reconciler) changed() {
	for _, fn := range r.onChange {
		fn()
	}
}

func (r *Reconciler) notify(s Settlement) {
	for _, fn := range r.onSettled {
		fn(s)
	}
}
