// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// MESSAGE LIST
// =============================================================================

// MessageList is the insertion-ordered list of messages for the active
// conversation. It is not safe for concurrent use; the controller only
// touches it from its event loop.
type MessageList struct {
	items []*Message
}

// Append adds messages to the end of the list.
func (l *MessageList) Append(msgs ...*Message) {
	l.items = append(l.items, msgs...)
}

// Get returns the message with the given id, or nil.
func (l *MessageList) Get(id string) *Message {
	for _, msg := range l.items {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// Remove deletes every message whose id is listed and returns how many
// were removed. Order of the remaining messages is preserved.
func (l *MessageList) Remove(ids ...string) int {
	if len(ids) == 0 {
		return 0
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	kept := l.items[:0]
	for _, msg := range l.items {
		if _, ok := drop[msg.ID]; ok {
			continue
		}
		kept = append(kept, msg)
	}
	removed := len(l.items) - len(kept)
	for i := len(kept); i < len(l.items); i++ {
		l.items[i] = nil
	}
	l.items = kept
	return removed
}

// Replace swaps the whole list for msgs, which the caller hands over.
func (l *MessageList) Replace(msgs []*Message) {
	l.items = msgs
}

// Clear removes all messages.
func (l *MessageList) Clear() {
	l.items = nil
}

// Len returns the number of messages.
func (l *MessageList) Len() int {
	return len(l.items)
}

// IsEmpty returns true if there are no messages.
func (l *MessageList) IsEmpty() bool {
	return len(l.items) == 0
}

// Last returns the most recent message, or nil if empty.
func (l *MessageList) Last() *Message {
	if len(l.items) == 0 {
		return nil
	}
	return l.items[len(l.items)-1]
}

// Snapshot returns a copy of the messages, safe to hand to another
// goroutine.
func (l *MessageList) Snapshot() []Message {
	out := make([]Message, len(l.items))
	for i, msg := range l.items {
		out[i] = *msg
	}
	return out
}
