// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - Machine-readable output for scripting.
package cli

import (
	"encoding/json"
	"io"
	"os"
	"time"
)

// JSONResponse is the envelope every --json command prints. Exactly one of
// Data and Error is set.
type JSONResponse struct {
	Success   bool    `json:"success"`
	Command   string  `json:"command,omitempty"`
	Data      any     `json:"data"`
	Error     *string `json:"error"`
	Timestamp string  `json:"timestamp"`
}

func envelope(command string) *JSONResponse {
	return &JSONResponse{Command: command, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

// NewJSONResponse wraps a command's result.
func NewJSONResponse(command string, data any) *JSONResponse {
	r := envelope(command)
	r.Success, r.Data = true, data
	return r
}

// NewJSONErrorResponse wraps a failed command.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	r := envelope(command)
	r.Error = &msg
	return r
}

// Print writes the response to stdout.
func (r *JSONResponse) Print() error {
	return r.Write(os.Stdout)
}

// Write encodes the response to w, indented by two spaces.
func (r *JSONResponse) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// =============================================================================
// RESPONSE DATA TYPES
// =============================================================================

// VersionData is the data of "lexchat version --json".
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// SessionData is one row of "lexchat sessions --json".
type SessionData struct {
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	LastSeen  time.Time `json:"last_seen"`
	Current   bool      `json:"current"`
}
