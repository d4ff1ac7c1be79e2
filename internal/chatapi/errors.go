// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatapi

import (
	"errors"
	"strconv"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorKind categorizes client errors for handling.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindTransport covers connection failures and malformed framing.
	KindTransport
	// KindServer covers explicit error records and non-2xx replies.
	KindServer
	// KindParse covers a single record that could not be decoded.
	KindParse
)

// String returns the name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Error represents an error from the chat client.
type Error struct {
	Kind    ErrorKind
	Message string
	// Status is the HTTP status code when the server answered, otherwise 0.
	Status int
	Cause  error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg += " (HTTP " + strconv.Itoa(e.Status) + ")"
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Sentinel errors for easy checking.
var (
	ErrStreamIncomplete = &Error{Kind: KindTransport, Message: "stream ended before completion"}
	ErrLineTooLong      = &Error{Kind: KindTransport, Message: "stream record exceeds maximum line size"}
	ErrEmptyMessage     = errors.New("chatapi: message is empty")
)

func transportError(msg string, cause error) *Error {
	return &Error{Kind: KindTransport, Message: msg, Cause: cause}
}

func serverError(msg string, status int) *Error {
	return &Error{Kind: KindServer, Message: msg, Status: status}
}

func parseError(msg string, cause error) *Error {
	return &Error{Kind: KindParse, Message: msg, Cause: cause}
}

// KindOf returns the kind of err, or KindUnknown if it is not an *Error.
func KindOf(err error) ErrorKind {
	var clientErr *Error
	if errors.As(err, &clientErr) {
		return clientErr.Kind
	}
	return KindUnknown
}

// IsTransport checks if an error is a transport error.
func IsTransport(err error) bool {
	return KindOf(err) == KindTransport
}

// IsServer checks if an error was reported by the server.
func IsServer(err error) bool {
	return KindOf(err) == KindServer
}

// IsParse checks if an error is a record parse error.
func IsParse(err error) bool {
	return KindOf(err) == KindParse
}
