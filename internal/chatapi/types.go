// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatapi

import (
	"bytes"
	"encoding/json"

	"github.com/jeranaias/cradle-tui/internal/model"
)

// =============================================================================
// REQUEST / RESULT
// =============================================================================

// Request is one user message addressed to a conversation. A zero
// ConversationID asks the server to create a conversation.
type Request struct {
	Message        string
	ConversationID model.ID
}

// Result is the outcome of a completed send.
type Result struct {
	// Text is the full assistant reply.
	Text string
	// ConversationID is the server id, or the caller's id when the server
	// did not name one.
	ConversationID model.ID
	// Title is the server-assigned conversation title, if any.
	Title string

	// Streamed is true when the reply arrived over the framed path.
	Streamed bool
	// FellBack is true when the framed path failed and the plain request
	// produced the reply.
	FellBack bool
}

// ProgressFunc receives the cumulative reply text once per fragment.
type ProgressFunc func(text string)

// =============================================================================
// EVENTS
// =============================================================================

// EventKind identifies what an Event carries.
type EventKind int

const (
	EventFragment EventKind = iota
	EventDone
	EventError
)

// String returns the name of the kind.
func (k EventKind) String() string {
	switch k {
	case EventFragment:
		return "fragment"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one step of a reply delivered by Stream.
type Event struct {
	Kind EventKind

	// Text is the cumulative reply so far.
	Text string
	// Delta is what this fragment added to Text.
	Delta string
	// Replaced is set when Text does not extend the previous fragment,
	// which happens when the fallback restarts the reply.
	Replaced bool

	// Set on EventDone.
	ConversationID model.ID
	Title          string
	Result         *Result

	// Set on EventError.
	Err error
}

// Terminal reports whether the event ends the stream.
func (e Event) Terminal() bool {
	return e.Kind == EventDone || e.Kind == EventError
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// chatRequest is the JSON body of POST /api/chat.
type chatRequest struct {
	Message        string   `json:"message"`
	ConversationID model.ID `json:"conversationId"`
	Stream         bool     `json:"stream"`
}

// streamRecord is the payload of one "data: " line.
type streamRecord struct {
	Content        string     `json:"content,omitempty"`
	ConversationID model.ID   `json:"conversationId,omitempty"`
	Title          string     `json:"title,omitempty"`
	Error          errorField `json:"error,omitempty"`
	Done           bool       `json:"done,omitempty"`
}

// chatResponse is the body of a non-streaming reply.
type chatResponse struct {
	Response       string     `json:"response"`
	ConversationID model.ID   `json:"conversationId"`
	Title          string     `json:"title"`
	Error          errorField `json:"error,omitempty"`
}

// errorField accepts "error": "text" as well as "error": {"message": "text"}.
type errorField string

func (f *errorField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")), bytes.Equal(data, []byte("false")):
		*f = ""
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = errorField(s)
		return nil
	case data[0] == '{':
		var obj struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if obj.Message == "" {
			obj.Message = obj.Error
		}
		if obj.Message == "" {
			obj.Message = "unknown server error"
		}
		*f = errorField(obj.Message)
		return nil
	default:
		*f = errorField(string(data))
		return nil
	}
}
