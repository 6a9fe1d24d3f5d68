// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Structured CLI errors and exit codes.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/lexchat-tui/internal/config"
	"github.com/jeranaias/lexchat-tui/internal/conversation"
	"github.com/jeranaias/lexchat-tui/internal/session"
	"github.com/jeranaias/lexchat-tui/internal/transport"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	// ExitUsageError covers bad flags, arguments and unknown subcommands.
	ExitUsageError = 2
	// ExitConfigError means the config file could not be read or failed
	// validation.
	ExitConfigError = 3
	// ExitAuthError indicates the user is signed out or the token was rejected
	ExitAuthError = 4
	// ExitNetworkError indicates the chat server could not be reached
	ExitNetworkError = 5
	// ExitNotFoundError means a named session does not exist.
	ExitNotFoundError = 7
	// ExitTimeoutError covers the bootstrap ack timeout and expired
	// deadlines.
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ValidationError is bad user input: a flag, argument or config key. It
// maps to ExitUsageError.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		fmt.Fprintf(&b, " (got: %s)", e.Value)
	}
	if e.Example != "" {
		fmt.Fprintf(&b, "\nExample: %s", e.Example)
	}
	return b.String()
}

// NotFoundError reports a missing local resource, such as a forgotten
// session id.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrMissingArgument creates an error for missing required arguments.
func ErrMissingArgument(argName, usage string) error {
	return &ValidationError{Field: argName, Reason: "required argument missing", Example: usage}
}

// ErrUnknownSubcommand creates an error for a subcommand the command does
// not know.
func ErrUnknownSubcommand(command, sub, usage string) error {
	return &ValidationError{Field: command + " subcommand", Value: sub, Reason: "unknown subcommand", Example: usage}
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError prints err to stderr, or as a JSON error response on stdout
// in JSON mode.
func DisplayError(command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		NewJSONErrorResponse(command, err).Print()
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render("[ERROR]"), err.Error())
}

// GetExitCode determines the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	var notFoundErr *NotFoundError
	var configErrs config.ValidateErrors

	switch {
	case errors.As(err, &validationErr):
		return ExitUsageError
	case errors.As(err, &notFoundErr):
		return ExitNotFoundError
	case errors.As(err, &configErrs):
		return ExitConfigError
	case errors.Is(err, conversation.ErrUnauthenticated), errors.Is(err, transport.ErrUnauthorized):
		return ExitAuthError
	case errors.Is(err, session.ErrAckTimeout), errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case errors.Is(err, transport.ErrDisconnected), errors.Is(err, conversation.ErrDisconnected):
		return ExitNetworkError
	}
	return ExitGeneralError
}
