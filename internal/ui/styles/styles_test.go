// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTheme_ForcedModes(t *testing.T) {
	dark := NewTheme("dark")
	assert.True(t, dark.IsDark)
	assert.Equal(t, "dark", dark.GlamourStyle())

	light := NewTheme("LIGHT")
	assert.False(t, light.IsDark)
	assert.Equal(t, "light", light.GlamourStyle())
}

func TestTheme_StylesRender(t *testing.T) {
	theme := NewTheme("dark")
	for name, style := range map[string]func(...string) string{
		"user":      theme.UserBubble.Render,
		"assistant": theme.AssistantBubble.Render,
		"sidebar":   theme.SidebarItem.Render,
		"welcome":   theme.WelcomeBox.Render,
		"error":     theme.ErrorBox.Render,
	} {
		assert.Contains(t, style("hello"), "hello", name)
	}
}

func TestTheme_LayoutMode(t *testing.T) {
	tests := []struct {
		width   int
		mode    LayoutMode
		sidebar int
	}{
		{40, LayoutNarrow, 0},
		{59, LayoutNarrow, 0},
		{60, LayoutMedium, 24},
		{99, LayoutMedium, 24},
		{100, LayoutWide, 32},
		{0, LayoutNarrow, 0},
	}
	theme := NewTheme("dark")
	for _, tt := range tests {
		theme.SetSize(tt.width, 30)
		assert.Equal(t, tt.mode, theme.GetLayoutMode(), "width %d", tt.width)
		assert.Equal(t, tt.sidebar, theme.SidebarWidth(), "width %d", tt.width)
	}
}

func TestRenderHelpers(t *testing.T) {
	assert.True(t, strings.Contains(RenderError("boom"), StatusIndicators.Error))
	assert.True(t, strings.Contains(RenderInfo("note"), StatusIndicators.Info))
}
