// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package navigation

import (
	"github.com/rs/zerolog"

	"github.com/jeranaias/cradle-tui/internal/model"
)

// Conversation is the message-list owner the machine resets and loads.
// *reconcile.Reconciler implements it.
type Conversation interface {
	// Reset clears the list and starts a new generation.
	Reset()
	// Open resets the list and loads conversation id.
	Open(id model.ID)
	HasMessages() bool
	ConversationID() model.ID
}

// =============================================================================
// MACHINE
// =============================================================================

// Machine is the two-state navigation machine (welcome, conversation). It
// must be driven from the same event loop as its Conversation.
type Machine struct {
	history History
	conv    Conversation
	state   State
	log     zerolog.Logger

	onChange []func(State)
}

// New creates a machine over history and conv. An empty history is seeded
// with the welcome entry; otherwise the initial view is derived from the
// current entry.
func New(history History, conv Conversation, logger *zerolog.Logger) *Machine {
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	m := &Machine{
		history: history,
		conv:    conv,
		log:     l.With().Str("component", "navigation").Logger(),
	}
	if cur, ok := history.Current(); ok {
		m.state = Derive(&cur, cur.Fragment())
	} else {
		history.Replace(WelcomeEntry())
	}
	return m
}

// OnChange registers fn to run after every view change.
func (m *Machine) OnChange(fn func(State)) {
	m.onChange = append(m.onChange, fn)
}

// State returns the current view.
func (m *Machine) State() State {
	return m.state
}

// View returns the current top-level view.
func (m *Machine) View() View {
	return m.state.View
}

// =============================================================================
// TRANSITIONS DRIVEN BY THE RECONCILER
// =============================================================================

// EnterConversation handles the first optimistic insert. From welcome it
// pushes a conversation entry synchronously. Inside a conversation it only
// marks the entry as having messages.
func (m *Machine) EnterConversation() {
	id := m.conv.ConversationID()
	if m.state.View == ViewConversation {
		m.Sync(id, true)
		return
	}
	m.history.Push(ConversationEntry(id, true))
	m.set(State{View: ViewConversation, ConversationID: id})
}

// RevertToWelcome undoes the push of a failed first exchange. The entry is
// replaced rather than popped so that no navigation event races the user.
// The stack keeps two adjacent welcome entries afterwards, so the first
// Back from here lands on the welcome view again.
func (m *Machine) RevertToWelcome() {
	m.history.Replace(WelcomeEntry())
	m.set(State{View: ViewWelcome})
}

// Sync rewrites the current entry when it disagrees with id or
// hasMessages. Ignored on the welcome view.
func (m *Machine) Sync(id model.ID, hasMessages bool) {
	if m.state.View != ViewConversation {
		return
	}
	want := ConversationEntry(id, hasMessages)
	if cur, ok := m.history.Current(); !ok || cur != want {
		m.history.Replace(want)
	}
	if m.state.ConversationID != id {
		m.set(State{View: ViewConversation, ConversationID: id})
	}
}

// =============================================================================
// TRANSITIONS DRIVEN BY THE USER
// =============================================================================

// NewConversation returns to the welcome view. Inside a conversation it
// pushes a welcome entry so Back returns to the conversation.
func (m *Machine) NewConversation() {
	if m.state.View != ViewConversation {
		return
	}
	m.history.Push(WelcomeEntry())
	m.conv.Reset()
	m.set(State{View: ViewWelcome})
}

// Select switches to a saved conversation. From welcome it pushes an entry;
// between conversations it replaces the current one.
func (m *Machine) Select(id model.ID) {
	if id.IsZero() {
		return
	}
	if m.state.View == ViewConversation && m.state.ConversationID == id && m.conv.ConversationID() == id {
		return
	}
	entry := ConversationEntry(id, false)
	if m.state.View == ViewConversation {
		m.history.Replace(entry)
	} else {
		m.history.Push(entry)
	}
	m.set(State{View: ViewConversation, ConversationID: id})
	m.conv.Open(id)
}

// =============================================================================
// TRANSITIONS DRIVEN BY THE HOST
// =============================================================================

// HandleEvent applies a back/forward or fragment navigation. The view is
// re-derived from the event; the list is reset whenever the derived view
// does not match what is showing.
func (m *Machine) HandleEvent(ev Event) {
	next := Derive(ev.Entry, ev.Fragment)
	m.log.Debug().
		Str("fragment", ev.Fragment).
		Bool("payload", ev.Entry != nil).
		Str("view", next.View.String()).
		Msg("navigation event")

	if next.View == ViewWelcome {
		m.toWelcome(ev)
		return
	}

	id := next.ConversationID
	if id.IsZero() {
		// An unsaved conversation only survives if it is still on screen.
		if m.state.View == ViewConversation && m.conv.ConversationID().IsZero() && m.conv.HasMessages() {
			return
		}
		m.log.Debug().Msg("unsaved conversation is gone, falling back to welcome")
		m.toWelcome(Event{})
		return
	}

	// The entry only claims messages once they are on screen; a reload
	// that succeeds syncs it back to true.
	showing := m.state.View == ViewConversation && m.conv.ConversationID() == id && m.conv.HasMessages()
	if want := ConversationEntry(id, showing); ev.Entry == nil || *ev.Entry != want {
		m.history.Replace(want)
	}
	m.set(State{View: ViewConversation, ConversationID: id})
	if !showing {
		m.conv.Open(id)
	}
}

// toWelcome resets the list and normalizes the current entry to the
// welcome marker.
func (m *Machine) toWelcome(ev Event) {
	if ev.Entry == nil || ev.Entry.View != ViewWelcome {
		m.history.Replace(WelcomeEntry())
	}
	m.conv.Reset()
	m.set(State{View: ViewWelcome})
}

func (m *Machine) set(s State) {
	if m.state == s {
		return
	}
	m.state = s
	for _, fn := range m.onChange {
		fn(s)
	}
}
