// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/lexchat-tui/internal/ui/styles"
)

// =============================================================================
// LINE-MODE STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Indigo).
			Bold(true)

	titleStyle = lipgloss.NewStyle().
			Foreground(styles.Teal).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(styles.Teal).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	mutedStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	successStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	warningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)
)
