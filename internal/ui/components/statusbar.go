// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/lexchat-tui/internal/ui/styles"
)

// =============================================================================
// STATUS BAR COMPONENT - Bottom status bar
// =============================================================================

// Status represents what the conversation is doing.
type Status int

const (
	StatusReady Status = iota
	StatusWaiting
	StatusStreaming
	StatusOffline
)

// String returns the display string for the status.
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusWaiting:
		return "Waiting for answer..."
	case StatusStreaming:
		return "Answering..."
	case StatusOffline:
		return "Offline"
	default:
		return "Unknown"
	}
}

// StatusBar shows connection state, the session and keyboard hints.
type StatusBar struct {
	Width     int
	Status    Status
	Connected bool
	SessionID string
	Spinner   string
	theme     *styles.Theme
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{theme: theme}
}

// SetWidth sets the status bar width.
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// View renders the status bar.
func (s *StatusBar) View() string {
	var conn string
	if s.Connected {
		conn = s.theme.Connected.Render("* online")
	} else {
		conn = s.theme.Disconnected.Render("x offline")
	}

	left := []string{conn}
	status := s.Status.String()
	if s.Spinner != "" && (s.Status == StatusWaiting || s.Status == StatusStreaming) {
		status = strings.TrimSpace(s.Spinner) + " " + status
	}
	left = append(left, status)

	layout := styles.LayoutFor(s.Width)
	if s.SessionID != "" && layout != styles.LayoutNarrow {
		left = append(left, s.theme.Muted.Render("session "+shortID(s.SessionID)))
	}

	right := ""
	if layout == styles.LayoutWide {
		right = s.renderShortcuts()
	}

	inner := maxInt(s.Width-2, 0)
	return s.theme.StatusBar.Width(s.Width).Render(spread(strings.Join(left, "  "), right, inner))
}

// renderShortcuts renders keyboard shortcut hints.
func (s *StatusBar) renderShortcuts() string {
	pairs := [][2]string{
		{"esc", "stop"},
		{"^R", "regenerate"},
		{"alt+</>", "answers"},
		{"^N", "new"},
	}
	shortcuts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		shortcuts = append(shortcuts, s.theme.ShortcutKey.Render(p[0])+" "+s.theme.ShortcutDesc.Render(p[1]))
	}
	return strings.Join(shortcuts, "  ")
}
