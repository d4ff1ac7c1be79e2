// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/cradle-tui/internal/app"
	"github.com/jeranaias/cradle-tui/internal/reconcile"
	"github.com/jeranaias/cradle-tui/internal/ui/styles"
)

// Poster runs closures on the controller's event loop.
// eventloop.Runtime satisfies it.
type Poster interface {
	Post(fn func())
}

// Options configures the chat view.
type Options struct {
	ShowSidebar bool
	Markdown    bool
	Logger      *zerolog.Logger
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model of the chat view.
type Model struct {
	theme *styles.Theme
	keys  KeyMap
	help  help.Model

	loop Poster
	ctrl *app.Controller
	snap app.Snapshot

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	md       *Renderer

	width  int
	height int

	showSidebar  bool
	focusSidebar bool
	selected     int
	showHelp     bool
	spinning     bool
	status       string

	log zerolog.Logger
}

// New creates the chat view for ctrl. loop must be the runtime ctrl was
// built on.
func New(ctrl *app.Controller, loop Poster, theme *styles.Theme, opts Options) Model {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask anything..."
	ti.CharLimit = 8192
	ti.PromptStyle = theme.InputPrompt
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    spinner.Line.FPS,
	}
	sp.Style = theme.Spinner

	return Model{
		theme:       theme,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		loop:        loop,
		ctrl:        ctrl,
		viewport:    viewport.New(80, 20),
		input:       ti,
		spinner:     sp,
		md:          NewRenderer(theme.GlamourStyle(), opts.Markdown),
		width:       80,
		height:      24,
		showSidebar: opts.ShowSidebar,
		log:         logger.With().Str("component", "ui").Logger(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	m.do(func(c *app.Controller) { c.Start() })
	return textinput.Blink
}

// Snapshot returns the last state received from the controller.
func (m Model) Snapshot() app.Snapshot {
	return m.snap
}

// do runs fn against the controller on its loop.
func (m Model) do(fn func(c *app.Controller)) {
	ctrl := m.ctrl
	m.loop.Post(func() { fn(ctrl) })
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.layout()
		return m, nil

	case SnapshotMsg:
		return m.applySnapshot(msg.Snapshot)

	case SettledMsg:
		switch s := msg.Settlement; s.Outcome {
		case reconcile.Failed:
			m.status = "send failed"
		case reconcile.Succeeded:
			m.status = ""
		}
		return m, nil

	case StatusMsg:
		m.status = string(msg)
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refreshContent()
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) applySnapshot(s app.Snapshot) (tea.Model, tea.Cmd) {
	m.snap = s
	if m.selected >= len(s.Conversations) {
		m.selected = len(s.Conversations) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	if m.focusSidebar && len(s.Conversations) == 0 {
		m.setSidebarFocus(false)
	}
	m.refreshContent()

	if m.busy() && !m.spinning {
		m.spinning = true
		return m, m.spinner.Tick
	}
	return m, nil
}

func (m Model) busy() bool {
	return m.snap.InFlight || m.snap.Loading
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.layout()
		return m, nil

	case key.Matches(msg, m.keys.New):
		m.status = ""
		m.do(func(c *app.Controller) { c.NewConversation() })
		return m, nil

	case key.Matches(msg, m.keys.Back):
		m.do(func(c *app.Controller) { c.Back() })
		return m, nil

	case key.Matches(msg, m.keys.Forward):
		m.do(func(c *app.Controller) { c.Forward() })
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		m.do(func(c *app.Controller) { c.Refresh() })
		return m, nil

	case key.Matches(msg, m.keys.Sidebar):
		if !m.showSidebar {
			m.showSidebar = true
			m.layout()
		}
		m.setSidebarFocus(!m.focusSidebar && len(m.snap.Conversations) > 0)
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.focusSidebar {
		return m.handleSidebarKey(msg)
	}

	if key.Matches(msg, m.keys.Submit) {
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.setSidebarFocus(false)
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		m.refreshContent()
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.snap.Conversations)-1 {
			m.selected++
		}
		m.refreshContent()
	case key.Matches(msg, m.keys.Submit):
		if m.selected < len(m.snap.Conversations) {
			id := m.snap.Conversations[m.selected].ID
			m.do(func(c *app.Controller) { c.Select(id) })
		}
		m.setSidebarFocus(false)
	}
	return m, nil
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if strings.HasPrefix(text, "/") {
		m.input.Reset()
		return m, m.runCommand(text)
	}
	if m.snap.InFlight {
		m.status = "wait for the reply to finish"
		return m, nil
	}

	m.input.Reset()
	m.status = ""
	m.viewport.GotoBottom()
	m.do(func(c *app.Controller) {
		if c.Submit(text) == reconcile.Rejected {
			m.log.Debug().Msg("submission rejected")
		}
	})
	return m, nil
}

func (m *Model) setSidebarFocus(on bool) {
	m.focusSidebar = on
	if on {
		m.input.Blur()
	} else {
		m.input.Focus()
	}
	m.refreshContent()
}
