// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal detection for choosing between the full-screen
// chat and the line-mode fallback.
package cli

import (
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// CanRunTUI reports whether the full-screen interface can own the terminal.
// Both ends must be terminals; piped sessions use the line-mode chat.
func CanRunTUI() bool {
	return isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

// GetTerminalWidth returns the width of stdout in columns: 80 when it is
// not a terminal, and never less than 40.
func GetTerminalWidth() int {
	const fallback, floor = 80, 40
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	switch {
	case err != nil, width <= 0:
		return fallback
	case width < floor:
		return floor
	}
	return width
}

// =============================================================================
// COLOR OUTPUT CONTROL
// =============================================================================

var (
	colorsEnabled     bool
	colorsEnabledOnce sync.Once
)

// ColorsEnabled is decided once per process: NO_COLOR disables color,
// FORCE_COLOR enables it, otherwise color follows whether stdout is a
// terminal.
func ColorsEnabled() bool {
	colorsEnabledOnce.Do(func() {
		colorsEnabled = os.Getenv("NO_COLOR") == "" &&
			(os.Getenv("FORCE_COLOR") != "" || isTerminal(os.Stdout))
	})
	return colorsEnabled
}

// GetColorProfile returns the termenv profile for styled output.
func GetColorProfile() termenv.Profile {
	if !ColorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}

// useColorProfile applies GetColorProfile to lipgloss output, so NO_COLOR
// and FORCE_COLOR hold for line-mode chat.
func useColorProfile() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// RenderStyle picks the theme and markdown style name. configured is the
// ui.theme setting; colorless output always gets "notty".
func RenderStyle(configured string) string {
	if GetColorProfile() == termenv.Ascii {
		return "notty"
	}
	if configured == "" {
		return "auto"
	}
	return configured
}
