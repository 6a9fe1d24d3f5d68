// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/lexchat-tui/internal/model"
	"github.com/jeranaias/lexchat-tui/internal/ui/components"
	"github.com/jeranaias/lexchat-tui/internal/util"
)

// headerTitleLength bounds the session title taken from the first question.
const headerTitleLength = 60

// View implements tea.Model.
func (m *Model) View() string {
	m.header.SessionTitle = sessionTitle(m.state.Messages)
	m.header.User = m.identity().DisplayName()

	header := m.header.View()
	if m.compact || m.width < 60 {
		header = m.header.ViewCompact()
	}

	m.status.Connected = m.state.Connected
	m.status.SessionID = m.state.SessionID
	m.status.Spinner = m.spinner.View()
	m.status.Status = m.currentStatus()

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		m.noticeLine(),
		m.theme.InputContainer.Width(m.width).Render(m.inputView()),
		m.status.View(),
	)
}

func (m *Model) currentStatus() components.Status {
	switch {
	case !m.state.Connected:
		return components.StatusOffline
	case m.state.IsStreaming:
		return components.StatusStreaming
	case m.awaiting || m.ctrl.Sessions().Pending():
		return components.StatusWaiting
	default:
		return components.StatusReady
	}
}

// noticeLine shows, in priority order, the login prompt or the latest error
// on the left and the jump control on the right.
func (m *Model) noticeLine() string {
	jump := ""
	if m.arbiter.ShowJumpControl() {
		jump = m.theme.JumpButton.Render("v newest (End)")
	}

	room := m.width - lipgloss.Width(jump) - 1
	left := ""
	switch {
	case m.loginRequired:
		text := "Sign in to ask questions"
		if m.loginURL != "" {
			text += ": " + m.loginURL
		}
		left = m.theme.LoginBanner.UnsetBorderStyle().UnsetPadding().Render(util.TruncateWidth(text, room))
	case m.actionErr != "":
		left = m.theme.ErrorLine.Render(util.TruncateWidth(m.actionErr, room))
	case m.state.LastError != "":
		left = m.theme.ErrorLine.Render(util.TruncateWidth(m.state.LastError, room))
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(jump)
	if gap < 0 {
		gap = 0
	}
	return left + util.PadRight("", gap) + jump
}

func (m *Model) inputView() string {
	if !m.state.Connected {
		return m.theme.InputDisabled.Render("> Reconnecting to the chat server...")
	}
	return m.input.View()
}

// sessionTitle is the preview of the first question.
func sessionTitle(messages []model.ChatMessage) string {
	for _, msg := range messages {
		if !msg.IsBot() {
			return msg.Preview(headerTitleLength)
		}
	}
	return ""
}
