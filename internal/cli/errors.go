// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeranaias/cradle-tui/internal/chatapi"
	"github.com/jeranaias/cradle-tui/internal/config"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitNetworkError = 5
	ExitServerError  = 6
	ExitTimeoutError = 8
)

// CommandError is a failed command with context.
type CommandError struct {
	Command string
	Action  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Command, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func commandError(command, action string, err error) error {
	if err == nil {
		return nil
	}
	return &CommandError{Command: command, Action: action, Err: err}
}

// usageError marks bad arguments.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

// ExitCode maps an error returned by Execute to a process exit status.
func ExitCode(err error) int {
	var (
		usage usageError
		verrs config.ValidateErrors
		verr  config.ValidationError
	)
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.As(err, &verrs), errors.As(err, &verr):
		return ExitConfigError
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case chatapi.IsTransport(err):
		return ExitNetworkError
	case chatapi.IsServer(err):
		return ExitServerError
	default:
		return ExitGeneralError
	}
}
