// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package navigation

import (
	"slices"
	"sync"

	"github.com/jeranaias/cradle-tui/internal/eventloop"
)

// =============================================================================
// HISTORY INTERFACE
// =============================================================================

// Event is a navigation notification from the host. Entry is nil when the
// host has no payload for the location (for example a typed fragment).
type Event struct {
	Entry    *Entry
	Fragment string
}

// History is the host's back/forward stack. Push and Replace never notify;
// Back and Forward deliver an Event asynchronously to listeners.
type History interface {
	Push(entry Entry)
	Replace(entry Entry)
	Back() bool
	Forward() bool
	// Current returns the payload of the current entry. ok is false when
	// the stack is empty or the current entry has no payload.
	Current() (entry Entry, ok bool)
}

// =============================================================================
// MEMORY HISTORY
// =============================================================================

// Slot is one position in a MemoryHistory.
type Slot struct {
	Entry    *Entry
	Fragment string
}

// MemoryHistory is an in-memory History. Notifications are posted to the
// runtime rather than delivered inline, as a browser delivers popstate.
type MemoryHistory struct {
	rt eventloop.Runtime

	mu        sync.Mutex
	slots     []Slot
	index     int
	listeners []func(Event)
}

// NewMemoryHistory creates an empty history.
func NewMemoryHistory(rt eventloop.Runtime) *MemoryHistory {
	return &MemoryHistory{rt: rt, index: -1}
}

// Listen registers fn for navigation events. fn runs on the runtime.
func (h *MemoryHistory) Listen(fn func(Event)) {
	h.mu.Lock()
	h.listeners = append(h.listeners, fn)
	h.mu.Unlock()
}

// Push adds entry after the current position, dropping forward entries.
func (h *MemoryHistory) Push(entry Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.push(Slot{Entry: &entry, Fragment: entry.Fragment()})
}

// Replace overwrites the current entry, or pushes if the stack is empty.
func (h *MemoryHistory) Replace(entry Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	slot := Slot{Entry: &entry, Fragment: entry.Fragment()}
	if h.index < 0 {
		h.push(slot)
		return
	}
	h.slots[h.index] = slot
}

// Back moves one entry back. It reports false at the start of the stack.
func (h *MemoryHistory) Back() bool {
	return h.move(-1)
}

// Forward moves one entry forward. It reports false at the end.
func (h *MemoryHistory) Forward() bool {
	return h.move(1)
}

// Go navigates to fragment without a payload, like typing it into the
// location bar. It pushes a new entry and notifies listeners.
func (h *MemoryHistory) Go(fragment string) {
	h.mu.Lock()
	h.push(Slot{Fragment: fragment})
	h.mu.Unlock()
	h.notify(Event{Fragment: fragment})
}

// Current implements History.
func (h *MemoryHistory) Current() (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index < 0 || h.slots[h.index].Entry == nil {
		return Entry{}, false
	}
	return *h.slots[h.index].Entry, true
}

// Fragment returns the fragment of the current entry.
func (h *MemoryHistory) Fragment() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index < 0 {
		return ""
	}
	return h.slots[h.index].Fragment
}

// CanBack reports whether Back would move.
func (h *MemoryHistory) CanBack() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index > 0
}

// CanForward reports whether Forward would move.
func (h *MemoryHistory) CanForward() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index >= 0 && h.index < len(h.slots)-1
}

// Slots returns a copy of the stack and the current index.
func (h *MemoryHistory) Slots() ([]Slot, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Slot, len(h.slots))
	for i, s := range h.slots {
		out[i] = Slot{Fragment: s.Fragment}
		if s.Entry != nil {
			e := *s.Entry
			out[i].Entry = &e
		}
	}
	return out, h.index
}

// push appends slot after the current index. Caller holds mu.
func (h *MemoryHistory) push(slot Slot) {
	h.slots = append(h.slots[:h.index+1], slot)
	h.index = len(h.slots) - 1
}

func (h *MemoryHistory) move(delta int) bool {
	h.mu.Lock()
	next := h.index + delta
	if h.index < 0 || next < 0 || next >= len(h.slots) {
		h.mu.Unlock()
		return false
	}
	h.index = next
	slot := h.slots[next]
	h.mu.Unlock()

	ev := Event{Fragment: slot.Fragment}
	if slot.Entry != nil {
		e := *slot.Entry
		ev.Entry = &e
	}
	h.notify(ev)
	return true
}

func (h *MemoryHistory) notify(ev Event) {
	h.rt.Post(func() {
		h.mu.Lock()
		listeners := slices.Clone(h.listeners)
		h.mu.Unlock()
		for _, fn := range listeners {
			fn(ev)
		}
	})
}
