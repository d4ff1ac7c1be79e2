// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"
	"github.com/rs/zerolog"

	"github.com/jeranaias/cradle-tui/internal/app"
	"github.com/jeranaias/cradle-tui/internal/config"
	"github.com/jeranaias/cradle-tui/internal/directory"
	"github.com/jeranaias/cradle-tui/internal/eventloop"
	"github.com/jeranaias/cradle-tui/internal/model"
	"github.com/jeranaias/cradle-tui/internal/reconcile"
	"github.com/jeranaias/cradle-tui/internal/util"
)

var (
	promptStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// ErrRejected is returned by Ask when the controller refused the text.
var ErrRejected = errors.New("message rejected: empty or reply still in flight")

// pollInterval spaces checks while a conversation loads.
const pollInterval = 20 * time.Millisecond

// Input reads one line per call. *LineEditor implements it.
type Input interface {
	Prompt(prompt string) (string, error)
}

// Options configures a Session.
type Options struct {
	// Out receives the transcript (default: os.Stdout).
	Out    io.Writer
	Prompt string
	Logger *zerolog.Logger
}

// =============================================================================
// SESSION
// =============================================================================

// Session drives a controller from line input.
type Session struct {
	ctrl    *app.Controller
	rt      eventloop.Runtime
	in      Input
	tr      *Transcript
	prompt  string
	settled chan reconcile.Settlement
	log     zerolog.Logger
}

// New creates a session. rt must be running and must be the runtime ctrl
// was built on. in may be nil when only Ask is used.
func New(ctrl *app.Controller, rt eventloop.Runtime, in Input, opts Options) *Session {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Prompt == "" {
		opts.Prompt = "cradle> "
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Session{
		ctrl:    ctrl,
		rt:      rt,
		in:      in,
		tr:      NewTranscript(opts.Out),
		prompt:  opts.Prompt,
		settled: make(chan reconcile.Settlement, 8),
		log:     logger.With().Str("component", "repl").Logger(),
	}
}

// Attach registers the session with the controller. Run calls it.
func (s *Session) Attach(ctx context.Context) error {
	return s.call(ctx, func() {
		s.ctrl.OnChange(s.tr.Update)
		s.ctrl.OnSettled(func(st reconcile.Settlement) {
			select {
			case s.settled <- st:
			default:
				s.log.Warn().Str("outcome", st.Outcome.String()).Msg("settlement dropped")
			}
		})
	})
}

// call runs fn on the loop and waits for it.
func (s *Session) call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	s.rt.Post(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run reads lines until EOF, Ctrl+C, /quit or ctx ends.
func (s *Session) Run(ctx context.Context) error {
	if s.in == nil {
		return errors.New("repl: no input")
	}
	if err := s.Attach(ctx); err != nil {
		return err
	}
	s.call(ctx, s.ctrl.Start)
	s.tr.Println(dimStyle.Render("Type a message, /help for commands, Ctrl+D to leave."))

	for ctx.Err() == nil {
		line, err := s.in.Prompt(promptStyle.Render(s.prompt))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit"):
			return nil
		case strings.HasPrefix(line, "/"):
			quit, err := s.command(ctx, line)
			if err != nil {
				s.tr.Println(errorStyle.Render("[Error]"), err)
			}
			if quit {
				return nil
			}
		default:
			if _, err := s.Ask(ctx, line); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Debug().Err(err).Msg("exchange failed")
			}
		}
	}
	return nil
}

// Ask sends text and blocks until its reply finished playing. It returns
// the settlement, and its error for failed sends.
func (s *Session) Ask(ctx context.Context, text string) (reconcile.Settlement, error) {
	var outcome reconcile.Outcome
	err := s.call(ctx, func() {
		outcome = s.ctrl.Submit(text)
		if outcome != reconcile.Started {
			return
		}
		msgs := s.ctrl.Snapshot().Messages
		s.tr.Begin(msgs[len(msgs)-1].ID)
	})
	if err != nil {
		return reconcile.Settlement{}, err
	}
	if outcome != reconcile.Started {
		return reconcile.Settlement{Outcome: outcome}, ErrRejected
	}

	for {
		select {
		case st := <-s.settled:
			if st.Outcome == reconcile.Discarded {
				continue
			}
			// The final snapshot is posted ahead of this barrier.
			s.call(ctx, func() {})
			s.tr.End(st)
			if st.Outcome == reconcile.Failed {
				return st, st.Err
			}
			return st, nil
		case <-ctx.Done():
			s.tr.End(reconcile.Settlement{})
			return reconcile.Settlement{}, ctx.Err()
		}
	}
}

// =============================================================================
// COMMANDS
// =============================================================================

type command struct {
	name    string
	aliases []string
	usage   string
	run     func(s *Session, ctx context.Context, args []string) (quit bool, err error)
}

func commands() []command {
	return []command{
		{name: "new", aliases: []string{"n"}, usage: "start a new conversation", run: func(s *Session, ctx context.Context, _ []string) (bool, error) {
			if err := s.call(ctx, s.ctrl.NewConversation); err != nil {
				return false, err
			}
			return false, s.showCurrent(ctx)
		}},
		{name: "back", aliases: []string{"b"}, usage: "go back in history", run: func(s *Session, ctx context.Context, _ []string) (bool, error) {
			return false, s.move(ctx, s.ctrl.Back)
		}},
		{name: "forward", aliases: []string{"f"}, usage: "go forward in history", run: func(s *Session, ctx context.Context, _ []string) (bool, error) {
			return false, s.move(ctx, s.ctrl.Forward)
		}},
		{name: "go", usage: "<fragment>  navigate to a fragment", run: func(s *Session, ctx context.Context, args []string) (bool, error) {
			if len(args) == 0 {
				return false, errors.New("usage: /go <fragment>")
			}
			if err := s.call(ctx, func() { s.ctrl.Navigate(args[0]) }); err != nil {
				return false, err
			}
			return false, s.showCurrent(ctx)
		}},
		{name: "open", aliases: []string{"o"}, usage: "<n|id>  open and print a conversation", run: func(s *Session, ctx context.Context, args []string) (bool, error) {
			if len(args) == 0 {
				return false, errors.New("usage: /open <n|id>")
			}
			id, err := s.resolve(ctx, args[0])
			if err != nil {
				return false, err
			}
			if err := s.call(ctx, func() { s.ctrl.Select(id) }); err != nil {
				return false, err
			}
			return false, s.showCurrent(ctx)
		}},
		{name: "list", aliases: []string{"ls"}, usage: "show saved conversations", run: func(s *Session, ctx context.Context, _ []string) (bool, error) {
			var convs []directory.Conversation
			var dirErr error
			if err := s.call(ctx, func() {
				convs = s.ctrl.Conversations()
				dirErr = s.ctrl.Snapshot().DirectoryErr
			}); err != nil {
				return false, err
			}
			if dirErr != nil {
				return false, fmt.Errorf("list unavailable: %s", util.FirstLine(dirErr.Error()))
			}
			if len(convs) == 0 {
				s.tr.Println(dimStyle.Render("no saved conversations"))
			}
			for i, c := range convs {
				s.tr.Println(fmt.Sprintf("%3d  %s  %s", i+1, util.TruncateWidth(c.DisplayTitle(), 48), dimStyle.Render(c.ID.String())))
			}
			return false, nil
		}},
		{name: "refresh", usage: "reload the conversation list", run: func(s *Session, ctx context.Context, _ []string) (bool, error) {
			return false, s.call(ctx, s.ctrl.Refresh)
		}},
		{name: "delay", usage: "<duration>  set the playback pace", run: func(s *Session, ctx context.Context, args []string) (bool, error) {
			if len(args) == 0 {
				return false, errors.New("usage: /delay <duration>")
			}
			var d config.Duration
			if err := d.UnmarshalText([]byte(args[0])); err != nil || d <= 0 {
				return false, fmt.Errorf("invalid duration %q", args[0])
			}
			if err := s.call(ctx, func() { s.ctrl.SetCharDelay(d.Std()) }); err != nil {
				return false, err
			}
			s.tr.Println(dimStyle.Render("playback delay " + d.String()))
			return false, nil
		}},
		{name: "help", aliases: []string{"h", "?"}, usage: "show commands", run: func(s *Session, _ context.Context, _ []string) (bool, error) {
			for _, c := range commands() {
				s.tr.Println(fmt.Sprintf("  /%-9s %s", c.name, c.usage))
			}
			return false, nil
		}},
		{name: "quit", aliases: []string{"q", "exit"}, usage: "leave", run: func(*Session, context.Context, []string) (bool, error) {
			return true, nil
		}},
	}
}

func (s *Session) command(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(fields) == 0 {
		return false, errors.New("type a command after /")
	}
	name := strings.ToLower(fields[0])
	for _, c := range commands() {
		if c.name == name || contains(c.aliases, name) {
			return c.run(s, ctx, fields[1:])
		}
	}
	return false, fmt.Errorf("unknown command /%s (try /help)", name)
}

func (s *Session) move(ctx context.Context, step func() bool) error {
	var ok bool
	if err := s.call(ctx, func() { ok = step() }); err != nil {
		return err
	}
	if !ok {
		return errors.New("no more history in that direction")
	}
	return s.showCurrent(ctx)
}

// showCurrent waits for the current conversation to load and prints it.
func (s *Session) showCurrent(ctx context.Context) error {
	snap, err := s.idle(ctx)
	if err != nil {
		return err
	}
	s.describe(snap)
	return nil
}

// Open selects conversation id and waits until its messages are loaded.
func (s *Session) Open(ctx context.Context, id model.ID) (app.Snapshot, error) {
	if err := s.call(ctx, func() { s.ctrl.Select(id) }); err != nil {
		return app.Snapshot{}, err
	}
	snap, err := s.idle(ctx)
	if err == nil && snap.Err != nil {
		err = snap.Err
	}
	return snap, err
}

// idle polls until no conversation is loading.
func (s *Session) idle(ctx context.Context) (app.Snapshot, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		var snap app.Snapshot
		if err := s.call(ctx, func() { snap = s.ctrl.Snapshot() }); err != nil {
			return app.Snapshot{}, err
		}
		if !snap.Loading {
			return snap, nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return app.Snapshot{}, ctx.Err()
		}
	}
}

func (s *Session) describe(snap app.Snapshot) {
	if snap.ConversationID.IsZero() {
		s.tr.Println(dimStyle.Render("new conversation " + snap.Fragment))
		return
	}
	title := snap.Title
	if title == "" {
		title = snap.ConversationID.String()
	}
	s.tr.Println(dimStyle.Render("-- " + title + " " + snap.Fragment))
	if snap.Err != nil {
		s.tr.Println(errorStyle.Render("[Error]"), util.FirstLine(snap.Err.Error()))
	}
	s.tr.PrintHistory(snap.Messages)
}

func (s *Session) resolve(ctx context.Context, arg string) (model.ID, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return model.ID(strings.TrimPrefix(arg, "#chat/")), nil
	}
	var convs []directory.Conversation
	if err := s.call(ctx, func() { convs = s.ctrl.Conversations() }); err != nil {
		return "", err
	}
	if n < 1 || n > len(convs) {
		return "", fmt.Errorf("no conversation #%d", n)
	}
	return convs[n-1].ID, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
