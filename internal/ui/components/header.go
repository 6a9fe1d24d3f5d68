// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/lexchat-tui/internal/ui/styles"
	"github.com/jeranaias/lexchat-tui/internal/util"
)

// =============================================================================
// HEADER COMPONENT - Title bar
// =============================================================================

// Header represents the title bar component.
type Header struct {
	Title        string // Brand title (default: "lexchat")
	SessionTitle string // Preview of the first question, empty for a new chat
	User         string // Display name of the signed-in user
	Width        int
	theme        *styles.Theme
}

// NewHeader creates a new Header component with default values.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Title: "lexchat",
		Width: 80,
		theme: theme,
	}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// View renders a two-line header: brand and user, then the session title.
func (h *Header) View() string {
	width := maxInt(h.Width, 40)
	inner := width - 2

	brand := h.theme.HeaderTitle.Render("< " + h.Title + " >")
	user := ""
	if h.User != "" {
		user = h.theme.HeaderSubtitle.Render(util.TruncateWidth(h.User, inner/3))
	}
	top := spread(brand, user, inner)

	title := h.SessionTitle
	if title == "" {
		title = "New conversation"
	}
	sub := h.theme.HeaderSubtitle.Render(util.TruncateWidth(title, inner))

	return h.theme.Header.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, top, sub))
}

// ViewCompact renders a single-line header for narrow terminals.
func (h *Header) ViewCompact() string {
	width := maxInt(h.Width, 20)
	inner := width - 2

	brand := h.theme.HeaderTitle.Render(h.Title)
	title := ""
	if h.SessionTitle != "" {
		title = h.theme.HeaderSubtitle.Render(util.TruncateWidth(h.SessionTitle, maxInt(inner-lipgloss.Width(brand)-1, 0)))
	}
	return h.theme.Header.Width(width).Render(spread(brand, title, inner))
}
