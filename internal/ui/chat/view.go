// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/cradle-tui/internal/model"
	"github.com/jeranaias/cradle-tui/internal/navigation"
	"github.com/jeranaias/cradle-tui/internal/ui/styles"
	"github.com/jeranaias/cradle-tui/internal/util"
)

const (
	headerHeight = 1
	inputHeight  = 2 // top border + line
	statusHeight = 1
	minBodyWidth = 20
)

// =============================================================================
// LAYOUT
// =============================================================================

// sidebarWidth is the width of the conversation list, zero when hidden.
func (m *Model) sidebarWidth() int {
	if !m.showSidebar {
		return 0
	}
	w := m.theme.SidebarWidth()
	if m.width-w < minBodyWidth {
		return 0
	}
	return w
}

// layout sizes the viewport, input and renderer for the current window.
func (m *Model) layout() {
	reserved := headerHeight + inputHeight + statusHeight
	if m.showHelp {
		reserved += len(m.keys.FullHelp())
	}

	h := m.height - reserved
	if h < 1 {
		h = 1
	}
	w := m.width - m.sidebarWidth()
	if w < minBodyWidth {
		w = minBodyWidth
	}

	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = m.width - 4 - len(m.input.Prompt)
	if m.input.Width < 10 {
		m.input.Width = 10
	}
	m.help.Width = m.width
	// Bubble border and padding take two columns.
	m.md.SetWidth(w - 2)
	m.refreshContent()
}

// refreshContent rebuilds the transcript, keeping the view pinned to the
// bottom if it was there.
func (m *Model) refreshContent() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	body := m.viewport.View()
	if w := m.sidebarWidth(); w > 0 {
		side := m.theme.Sidebar.
			Width(w - 1).
			Height(m.viewport.Height).
			Render(m.renderSidebar(w - 2))
		body = lipgloss.JoinHorizontal(lipgloss.Top, side, body)
	}

	parts := []string{
		m.renderHeader(),
		body,
		m.theme.InputContainer.Width(m.width).Render(m.input.View()),
		m.renderStatusBar(),
	}
	if m.showHelp {
		parts = append(parts, m.help.FullHelpView(m.keys.FullHelp()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader() string {
	t := m.theme
	parts := []string{t.HeaderBrand.Render("cradle")}

	switch {
	case m.snap.View == navigation.ViewWelcome:
		parts = append(parts, t.HeaderSubtitle.Render("new conversation"))
	case m.snap.Title != "":
		parts = append(parts, t.HeaderTitle.Render(m.snap.Title))
	case m.snap.ConversationID.IsZero():
		parts = append(parts, t.HeaderSubtitle.Render("unsaved conversation"))
	default:
		parts = append(parts, t.HeaderSubtitle.Render(m.snap.ConversationID.String()))
	}
	if m.busy() {
		parts = append(parts, m.spinner.View())
	}

	line := strings.Join(parts, "  ")
	if frag := m.snap.Fragment; frag != "" {
		right := t.ShortcutDesc.Render(frag)
		gap := m.width - 2 - lipgloss.Width(line) - lipgloss.Width(right)
		if gap > 1 {
			line += strings.Repeat(" ", gap) + right
		}
	}
	return t.Header.Width(m.width).Render(line)
}

func (m Model) renderStatusBar() string {
	t := m.theme
	var text string
	switch {
	case m.status != "":
		text = m.status
	case m.focusSidebar:
		text = "↑/↓ choose  Enter open  Esc back"
	default:
		text = m.help.ShortHelpView(m.keys.ShortHelp())
	}
	if n := len(m.snap.Messages); n > 0 {
		text += t.ShortcutDesc.Render(fmt.Sprintf("  %d messages", n))
	}
	return t.StatusBar.Width(m.width).Render(text)
}

func (m *Model) renderSidebar(width int) string {
	t := m.theme
	lines := []string{t.SidebarHeading.Render("Conversations")}

	if m.snap.DirectoryErr != nil {
		lines = append(lines, styles.RenderError(util.TruncateWidth("list unavailable", width-4)))
	}
	if len(m.snap.Conversations) == 0 && m.snap.DirectoryErr == nil {
		lines = append(lines, t.ShortcutDesc.Render("none yet"))
	}
	for i, c := range m.snap.Conversations {
		label := util.PadWidth(util.TruncateWidth(c.DisplayTitle(), width), width)
		switch {
		case m.focusSidebar && i == m.selected:
			label = t.SidebarItemSelected.Render(label)
		case c.ID == m.snap.ConversationID && m.snap.View == navigation.ViewConversation:
			label = t.SidebarItemActive.Render(label)
		default:
			label = t.SidebarItem.Render(label)
		}
		lines = append(lines, label)
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func (m *Model) renderTranscript() string {
	if m.snap.View == navigation.ViewWelcome && len(m.snap.Messages) == 0 {
		return m.renderWelcome()
	}

	var parts []string
	if m.snap.Loading && len(m.snap.Messages) == 0 {
		parts = append(parts, m.theme.PendingLabel.Render("loading conversation..."))
	}
	for i := range m.snap.Messages {
		parts = append(parts, m.renderMessage(&m.snap.Messages[i]))
	}
	if m.snap.Err != nil {
		parts = append(parts, m.renderError(m.snap.Err))
	}
	return strings.Join(parts, "\n\n")
}

func (m *Model) renderMessage(msg *model.Message) string {
	t := m.theme
	width := m.viewport.Width - 2

	label := t.RoleLabel.Render(msg.Role.DisplayName())
	if msg.Role == model.RoleUser {
		return label + "\n" + t.UserBubble.Width(width).Render(msg.Content)
	}

	var body string
	switch {
	case msg.Pending && msg.Content == "":
		body = m.spinner.View() + " " + t.PendingLabel.Render("thinking")
	case msg.Pending:
		// Markdown is rendered once the reply is final.
		body = m.md.Plain(msg.Content)
	default:
		body = m.md.Markdown(msg.Content)
	}
	if msg.Pending {
		label += " " + t.PendingLabel.Render("...")
	}
	return label + "\n" + t.AssistantBubble.Width(width).Render(body)
}

func (m *Model) renderError(err error) string {
	t := m.theme
	return t.ErrorBox.Render(
		t.ErrorTitle.Render("Message not sent") + "\n" +
			t.ErrorMessage.Render(util.FirstLine(err.Error())),
	)
}

func (m *Model) renderWelcome() string {
	t := m.theme
	keys := []struct{ key, desc string }{
		{"Enter", "send a message"},
		{"Tab", "browse conversations"},
		{"M-←/M-→", "back / forward"},
		{"/help", "commands"},
	}

	var sb strings.Builder
	sb.WriteString(t.WelcomeLogo.Render("cradle"))
	sb.WriteString("\n\n")
	sb.WriteString(t.WelcomeInfo.Render("Start a conversation below."))
	sb.WriteString("\n\n")
	for _, k := range keys {
		sb.WriteString(t.WelcomeKey.Render(util.PadWidth(k.key, 9)))
		sb.WriteString(t.WelcomeInfo.Render(k.desc))
		sb.WriteString("\n")
	}
	if n := len(m.snap.Conversations); n > 0 {
		sb.WriteString("\n")
		sb.WriteString(t.WelcomeInfo.Render(fmt.Sprintf("%d saved conversations", n)))
	}

	box := t.WelcomeBox.Render(strings.TrimRight(sb.String(), "\n"))
	return lipgloss.Place(m.viewport.Width, m.viewport.Height, lipgloss.Center, lipgloss.Center, box)
}
