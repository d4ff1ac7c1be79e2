// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatapi

import (
	"context"
	"os"
	"strconv"
	"strings"
)

// =============================================================================
// CAPABILITY PROBE
// =============================================================================

// NoStreamEnv disables the framed path when set to a true value. Useful
// behind proxies that buffer response bodies.
const NoStreamEnv = "CRADLE_NO_STREAM"

// StreamSupport reports whether the environment can read a response body
// incrementally. When it returns false the client uses the plain request
// directly.
type StreamSupport func() bool

// EnvProbe is the default StreamSupport. It honors NoStreamEnv.
func EnvProbe() bool {
	v := strings.TrimSpace(os.Getenv(NoStreamEnv))
	if v == "" {
		return true
	}
	off, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return !off
}

// Always is a StreamSupport that never rejects the framed path.
func Always() bool { return true }

// Never is a StreamSupport that always uses the plain request.
func Never() bool { return false }

// =============================================================================
// TOKENS
// =============================================================================

// TokenSource supplies the bearer token for each request. Session handling
// lives outside this package.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token. An empty
// StaticToken sends no Authorization header.
type StaticToken string

// Token implements TokenSource.
func (s StaticToken) Token(context.Context) (string, error) {
	return string(s), nil
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

// Token implements TokenSource.
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}
