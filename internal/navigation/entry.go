// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package navigation keeps the visible view in step with the host's
// back/forward history.
//
// The view is either the welcome screen or a conversation. Every history
// entry carries enough to rebuild the view (Entry), and navigation events
// are authoritative: the view is re-derived from the event with Derive,
// never patched incrementally.
//
// Fragments:
//
//	#welcome      welcome screen
//	#chat         conversation not yet saved on the server
//	#chat/<id>    saved conversation
package navigation

import (
	"strings"

	"github.com/jeranaias/cradle-tui/internal/model"
)

// =============================================================================
// VIEW / ENTRY
// =============================================================================

// View is the top-level screen.
type View int

const (
	ViewWelcome View = iota
	ViewConversation
)

// String returns the name of the view.
func (v View) String() string {
	switch v {
	case ViewWelcome:
		return "welcome"
	case ViewConversation:
		return "conversation"
	default:
		return "unknown"
	}
}

// Entry is the payload stored with a history entry.
type Entry struct {
	View        View
	HasMessages bool
	// ConversationID is empty until the server assigns one.
	ConversationID model.ID
}

// WelcomeEntry is the entry for the welcome screen.
func WelcomeEntry() Entry {
	return Entry{View: ViewWelcome}
}

// ConversationEntry is the entry for a conversation view.
func ConversationEntry(id model.ID, hasMessages bool) Entry {
	return Entry{View: ViewConversation, HasMessages: hasMessages, ConversationID: id}
}

// Fragment returns the location fragment for the entry.
func (e Entry) Fragment() string {
	if e.View != ViewConversation {
		return FragmentWelcome
	}
	if e.ConversationID.IsZero() {
		return FragmentChat
	}
	return FragmentChat + "/" + e.ConversationID.String()
}

// =============================================================================
// FRAGMENTS
// =============================================================================

const (
	FragmentWelcome = "#welcome"
	FragmentChat    = "#chat"
)

// State is the derived view.
type State struct {
	View           View
	ConversationID model.ID
}

// Derive computes the view for a navigation event. It is pure.
//
// With an entry, the entry decides: welcome or an entry without messages
// derive welcome; anything else derives its conversation. Without an entry
// only "#chat/<id>" selects a conversation; every other fragment, including
// "#chat", "#welcome" and the empty fragment, falls back to welcome.
func Derive(entry *Entry, fragment string) State {
	if entry != nil {
		if entry.View != ViewConversation || !entry.HasMessages {
			return State{View: ViewWelcome}
		}
		return State{View: ViewConversation, ConversationID: entry.ConversationID}
	}

	if id, ok := ParseFragment(fragment); ok {
		return State{View: ViewConversation, ConversationID: id}
	}
	return State{View: ViewWelcome}
}

// ParseFragment extracts the conversation id from "#chat/<id>".
func ParseFragment(fragment string) (model.ID, bool) {
	fragment = strings.TrimSpace(fragment)
	if !strings.HasPrefix(fragment, "#") {
		fragment = "#" + fragment
	}
	rest, ok := strings.CutPrefix(fragment, FragmentChat+"/")
	if !ok {
		return "", false
	}
	rest = strings.Trim(rest, "/")
	if rest == "" || strings.ContainsAny(rest, "/?# ") {
		return "", false
	}
	return model.ID(rest), true
}
