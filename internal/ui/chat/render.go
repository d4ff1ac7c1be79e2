// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// maxCachedRenders bounds the markdown cache; it is cleared when full.
const maxCachedRenders = 256

// Renderer turns finished assistant replies into terminal markdown.
// Output is cached per width and content since the transcript is rebuilt
// on every playback tick.
type Renderer struct {
	style   string
	enabled bool
	width   int

	term  *glamour.TermRenderer
	cache map[string]string
}

// NewRenderer creates a renderer using a glamour standard style ("dark" or
// "light"). When enabled is false content is only word-wrapped.
func NewRenderer(style string, enabled bool) *Renderer {
	return &Renderer{
		style:   style,
		enabled: enabled,
		width:   80,
		cache:   make(map[string]string),
	}
}

// SetWidth changes the wrap width. The cache is dropped when it changes.
func (r *Renderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if width == r.width {
		return
	}
	r.width = width
	r.term = nil
	r.cache = make(map[string]string)
}

// Width returns the wrap width.
func (r *Renderer) Width() int {
	return r.width
}

// Markdown renders content as markdown, falling back to plain wrapping if
// glamour cannot render it.
func (r *Renderer) Markdown(content string) string {
	if !r.enabled || strings.TrimSpace(content) == "" {
		return r.Plain(content)
	}
	if out, ok := r.cache[content]; ok {
		return out
	}

	if r.term == nil {
		term, err := glamour.NewTermRenderer(
			glamour.WithStylePath(r.style),
			glamour.WithWordWrap(r.width),
		)
		if err != nil {
			r.enabled = false
			return r.Plain(content)
		}
		r.term = term
	}

	out, err := r.term.Render(content)
	if err != nil {
		return r.Plain(content)
	}
	out = strings.Trim(out, "\n")

	if len(r.cache) >= maxCachedRenders {
		r.cache = make(map[string]string)
	}
	r.cache[content] = out
	return out
}

// Plain word-wraps content to the current width.
func (r *Renderer) Plain(content string) string {
	return lipgloss.NewStyle().Width(r.width).Render(content)
}
