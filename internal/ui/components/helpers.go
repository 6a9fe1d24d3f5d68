// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/lexchat-tui/internal/util"
)

// =============================================================================
// SHARED HELPER FUNCTIONS
// =============================================================================

// fmtPercent formats a 0-100 integer as "87%".
func fmtPercent(p int) string {
	return strconv.Itoa(p) + "%"
}

// fmtCounter formats a response position as "2/3".
func fmtCounter(index, total int) string {
	return strconv.Itoa(index+1) + "/" + strconv.Itoa(total)
}

// shortID shortens a session id for the status bar.
func shortID(id string) string {
	return util.TruncateRunes(id, 8)
}

// spread places left and right on one line of the given width. Both may
// carry styling; plain text should be truncated before it is styled.
func spread(left, right string, width int) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + util.PadRight("", gap) + right
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
