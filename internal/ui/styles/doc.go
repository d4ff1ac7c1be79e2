// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the cradle TUI.

All colors are Lip Gloss AdaptiveColor values, so one palette serves light
and dark terminals. NewTheme resolves the background once: "dark" and
"light" force it, "auto" asks the terminal through termenv.

# Color System (colors.go)

  - Purple - primary accent, assistant messages, selections
  - Cyan - brand color, prompts, shortcut keys
  - Emerald - success
  - Amber - warnings, pending state
  - Rose - errors

# Theme (theme.go)

Theme groups the styles used by the chat view: header, message bubbles,
input line, status bar, conversation sidebar, welcome screen and error box.

	theme := styles.NewTheme("auto")
	fmt.Println(theme.UserBubble.Render("hello"))
*/
package styles
