// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// CHAT VIEWPORT COMPONENT - Scrollable transcript area
// =============================================================================

// ChatViewport is the scrollable transcript. It never moves on its own when
// content changes; following new content is decided by the scroll arbiter,
// which drives it through ScrollToBottom and DistanceFromBottom.
type ChatViewport struct {
	viewport viewport.Model
	width    int
	height   int
}

// NewChatViewport creates a new ChatViewport.
func NewChatViewport(width, height int) *ChatViewport {
	vp := viewport.New(width, height)
	vp.Style = lipgloss.NewStyle()
	vp.MouseWheelEnabled = true
	vp.MouseWheelDelta = 3

	return &ChatViewport{
		viewport: vp,
		width:    width,
		height:   height,
	}
}

// SetSize updates the viewport dimensions.
func (cv *ChatViewport) SetSize(width, height int) {
	if height < 1 {
		height = 1
	}
	cv.width = width
	cv.height = height
	cv.viewport.Width = width
	cv.viewport.Height = height
}

// SetContent replaces the rendered transcript, keeping the scroll offset.
func (cv *ChatViewport) SetContent(content string) {
	cv.viewport.SetContent(content)
}

// ScrollToBottom scrolls so the last line is visible.
func (cv *ChatViewport) ScrollToBottom() {
	cv.viewport.GotoBottom()
}

// DistanceFromBottom returns how many lines lie below the visible area.
func (cv *ChatViewport) DistanceFromBottom() int {
	d := cv.viewport.TotalLineCount() - (cv.viewport.YOffset + cv.viewport.Height)
	if d < 0 {
		return 0
	}
	return d
}

// ScrollUp scrolls up by the specified number of lines.
func (cv *ChatViewport) ScrollUp(lines int) {
	cv.viewport.LineUp(lines)
}

// ScrollDown scrolls down by the specified number of lines.
func (cv *ChatViewport) ScrollDown(lines int) {
	cv.viewport.LineDown(lines)
}

// PageUp scrolls up by one page.
func (cv *ChatViewport) PageUp() {
	cv.viewport.ViewUp()
}

// PageDown scrolls down by one page.
func (cv *ChatViewport) PageDown() {
	cv.viewport.ViewDown()
}

// ScrollToTop scrolls to the first line.
func (cv *ChatViewport) ScrollToTop() {
	cv.viewport.GotoTop()
}

// AtBottom returns true if the viewport is at the bottom.
func (cv *ChatViewport) AtBottom() bool {
	return cv.viewport.AtBottom()
}

// ScrollPercent returns the scroll position as a fraction.
func (cv *ChatViewport) ScrollPercent() float64 {
	return cv.viewport.ScrollPercent()
}

// YOffset returns the index of the first visible line.
func (cv *ChatViewport) YOffset() int {
	return cv.viewport.YOffset
}

// HandleMouse applies mouse wheel scrolling and reports whether the offset
// moved.
func (cv *ChatViewport) HandleMouse(msg tea.MouseMsg) bool {
	before := cv.viewport.YOffset
	cv.viewport, _ = cv.viewport.Update(msg)
	return cv.viewport.YOffset != before
}

// Width returns the viewport width.
func (cv *ChatViewport) Width() int {
	return cv.width
}

// Height returns the viewport height.
func (cv *ChatViewport) Height() int {
	return cv.height
}

// View renders the visible slice of the transcript.
func (cv *ChatViewport) View() string {
	return cv.viewport.View()
}
