// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme is the set of styles the chat view draws with, resolved once for the
// terminal's color profile and background.
type Theme struct {
	Name         string
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	RoleLabel       lipgloss.Style
	ResponseCounter lipgloss.Style
	Incomplete      lipgloss.Style
	MetadataFooter  lipgloss.Style
	Citation        lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputPlaceholder lipgloss.Style
	InputDisabled    lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	Connected    lipgloss.Style
	Disconnected lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
	JumpButton   lipgloss.Style

	// ==========================================================================
	// FEEDBACK STYLES
	// ==========================================================================

	Spinner     lipgloss.Style
	ErrorLine   lipgloss.Style
	LoginBanner lipgloss.Style
	Muted       lipgloss.Style
}

// NewTheme creates a theme from terminal detection.
func NewTheme() *Theme {
	return NamedTheme("auto")
}

// NamedTheme creates a theme. name is "auto", "dark", "light" or "notty";
// "dark" and "light" override background detection and "notty" drops all
// color.
func NamedTheme(name string) *Theme {
	colorProfile := termenv.ColorProfile()
	isDark := termenv.HasDarkBackground()

	switch name {
	case "dark":
		isDark = true
		lipgloss.SetHasDarkBackground(true)
	case "light":
		isDark = false
		lipgloss.SetHasDarkBackground(false)
	case "notty":
		colorProfile = termenv.Ascii
	default:
		name = "auto"
	}

	t := &Theme{
		Name:         name,
		IsDark:       isDark,
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}

	t.initStyles()
	return t
}

func fg(c lipgloss.TerminalColor) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

func strong(c lipgloss.TerminalColor) lipgloss.Style { return fg(c).Bold(true) }

func boxed(c lipgloss.TerminalColor, border lipgloss.Border) lipgloss.Style {
	return fg(c).BorderStyle(border).Padding(0, 1)
}

func (t *Theme) initStyles() {
	bar := lipgloss.NewStyle().Background(SurfaceDim).Padding(0, 1)

	t.Header = bar.Foreground(Indigo).Bold(true)
	t.HeaderTitle = strong(Indigo)
	t.HeaderSubtitle = fg(TextSecondary).Italic(true)

	// A user turn sits in an indented rounded box; answers hang off a rule.
	t.UserBubble = boxed(UserBubbleFg, lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).MarginLeft(4)
	t.AssistantBubble = fg(AssistantBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).BorderLeft(true).
		BorderForeground(AssistantBubbleBorder).PaddingLeft(1)
	t.RoleLabel = strong(TextSecondary)
	t.ResponseCounter = fg(TextMuted)
	t.Incomplete = fg(Amber).Italic(true)
	t.MetadataFooter = fg(TextMuted).PaddingLeft(2)
	t.Citation = fg(Teal).Underline(true)

	t.InputContainer = lipgloss.NewStyle().Padding(0, 1).
		BorderStyle(lipgloss.NormalBorder()).BorderTop(true).BorderForeground(Overlay)
	t.InputPrompt = strong(Indigo)
	t.InputPlaceholder = fg(TextMuted).Italic(true)
	t.InputDisabled = fg(TextMuted)

	t.StatusBar = bar.Foreground(TextSecondary)
	t.Connected = strong(Emerald)
	t.Disconnected = strong(Rose)
	t.ShortcutKey = strong(Indigo)
	t.ShortcutDesc = fg(TextMuted)
	t.JumpButton = fg(TextInverse).Background(Indigo).Padding(0, 1)

	t.Spinner = fg(Indigo)
	t.ErrorLine = fg(Rose)
	t.LoginBanner = boxed(Amber, lipgloss.RoundedBorder()).BorderForeground(Amber).Bold(true)
	t.Muted = fg(TextMuted)

	if t.ColorProfile == termenv.Ascii {
		t.stripColor()
	}
}

// stripColor replaces colored styles with plain ones for dumb terminals.
// Borders and layout are kept.
func (t *Theme) stripColor() {
	for _, s := range []*lipgloss.Style{
		&t.Header, &t.HeaderTitle, &t.UserBubble, &t.AssistantBubble,
		&t.StatusBar, &t.Connected, &t.Disconnected, &t.JumpButton,
		&t.ErrorLine, &t.LoginBanner, &t.Citation, &t.Incomplete,
	} {
		*s = s.UnsetForeground().UnsetBackground().UnsetBorderForeground()
	}
}

// SetSize records the terminal size.
func (t *Theme) SetSize(width, height int) {
	t.Width, t.Height = width, height
}

// LayoutMode is a width bracket the header and status bar adapt to.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota
	LayoutMedium
	LayoutWide
)

const (
	narrowBelow = 60
	wideFrom    = 100
)

// LayoutFor buckets a width in columns.
func LayoutFor(width int) LayoutMode {
	switch {
	case width < narrowBelow:
		return LayoutNarrow
	case width < wideFrom:
		return LayoutMedium
	}
	return LayoutWide
}

// GetLayoutMode buckets the current width.
func (t *Theme) GetLayoutMode() LayoutMode {
	return LayoutFor(t.Width)
}
