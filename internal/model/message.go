// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"strconv"
	"sync/atomic"
	"time"
	"unicode/utf8"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// Valid reports whether r is a role the client knows how to show.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Pending marks an optimistic message that has not been confirmed by
	// the server yet. Not persisted.
	Pending bool `json:"-"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(id string, role Role, content string) *Message {
	return &Message{
		ID:        id,
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewPlaceholder creates an empty, pending assistant message.
func NewPlaceholder(id string) *Message {
	msg := NewMessage(id, RoleAssistant, "")
	msg.Pending = true
	return msg
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	if utf8.RuneCountInString(m.Content) <= maxLen {
		return m.Content
	}
	runes := []rune(m.Content)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// =============================================================================
// ID SEQUENCE
// =============================================================================

// IDSequence hands out message ids that are strictly increasing within a
// session, both numerically and lexically. The zero value is ready to use.
type IDSequence struct {
	next atomic.Uint64
}

// idWidth keeps ids the same length so string order matches numeric order.
const idWidth = 12

// Next returns a new id of the form "msg_000000000001".
func (s *IDSequence) Next() string {
	n := s.next.Add(1)
	digits := strconv.FormatUint(n, 10)
	buf := make([]byte, 0, 4+idWidth)
	buf = append(buf, "msg_"...)
	for i := len(digits); i < idWidth; i++ {
		buf = append(buf, '0')
	}
	return string(append(buf, digits...))
}

// Seq extracts the sequence number from an id produced by Next. It returns
// false for ids that came from elsewhere (for example, the server).
func Seq(id string) (uint64, bool) {
	if len(id) != 4+idWidth || id[:4] != "msg_" {
		return 0, false
	}
	n, err := strconv.ParseUint(id[4:], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
