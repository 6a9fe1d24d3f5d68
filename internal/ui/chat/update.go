// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"log"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/lexchat-tui/internal/conversation"
	"github.com/jeranaias/lexchat-tui/internal/model"
	"github.com/jeranaias/lexchat-tui/internal/ui/components"
	"github.com/jeranaias/lexchat-tui/internal/ui/styles"
)

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refresh()
		return m, nil

	case refreshMsg:
		if wait := m.frames.wait(); wait > 0 {
			return m, frameTickCmd(wait)
		}
		m.notify.consumed()
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state.IsStreaming || m.awaiting {
			m.refresh()
		}
		return m, cmd

	case actionDoneMsg:
		m.handleActionDone(msg)
		m.refresh()
		return m, nil

	case ConfigChangedMsg:
		m.applyConfig(msg)
		m.refresh()
		return m, nil

	case tea.MouseMsg:
		if m.viewport.HandleMouse(msg) {
			m.arbiter.OnUserScroll()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// =============================================================================
// KEYS
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Submit):
		return m, m.submit()

	case key.Matches(msg, m.keyMap.Abort):
		if !m.state.IsStreaming && !m.ctrl.Sessions().Pending() {
			return m, nil
		}
		return m, m.run(actionAbort, m.ctrl.Abort)

	case key.Matches(msg, m.keyMap.Regenerate):
		return m, m.run(actionRegenerate, m.ctrl.RegenerateLast)

	case key.Matches(msg, m.keyMap.PrevAnswer):
		return m, m.run(actionSelect, func(context.Context) error { return m.ctrl.CycleResponse(-1) })

	case key.Matches(msg, m.keyMap.NextAnswer):
		return m, m.run(actionSelect, func(context.Context) error { return m.ctrl.CycleResponse(1) })

	case key.Matches(msg, m.keyMap.NewChat):
		m.awaiting = false
		m.loginRequired = false
		m.arbiter.Reset()
		return m, m.run(actionNewChat, m.ctrl.NewChat)

	case key.Matches(msg, m.keyMap.Up):
		m.viewport.ScrollUp(1)
		m.arbiter.OnUserScroll()
		return m, nil

	case key.Matches(msg, m.keyMap.Down):
		m.viewport.ScrollDown(1)
		m.arbiter.OnUserScroll()
		return m, nil

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.PageUp()
		m.arbiter.OnUserScroll()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.PageDown()
		m.arbiter.OnUserScroll()
		return m, nil

	case key.Matches(msg, m.keyMap.Home):
		m.viewport.ScrollToTop()
		m.arbiter.OnUserScroll()
		return m, nil

	case key.Matches(msg, m.keyMap.JumpToBottom):
		m.arbiter.JumpToBottom()
		return m, nil
	}

	if !m.state.Connected {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the input text.
func (m *Model) submit() tea.Cmd {
	text := m.input.Value()
	if text == "" || !m.state.Connected {
		return nil
	}
	if m.state.IsStreaming {
		m.actionErr = conversation.ErrStreamInProgress.Error()
		return nil
	}
	m.input.Reset()
	m.actionErr = ""
	m.awaiting = true
	return m.run(actionSend, func(ctx context.Context) error {
		return m.ctrl.Send(ctx, text)
	})
}

// =============================================================================
// ACTION RESULTS
// =============================================================================

func (m *Model) handleActionDone(msg actionDoneMsg) {
	if msg.Kind == actionSelect {
		// Switching answers leaves any in-flight send alone.
		m.actionErr = ""
		if msg.Err != nil {
			m.actionErr = msg.Err.Error()
		}
		return
	}
	if msg.Err == nil {
		if msg.Kind != actionSend {
			m.awaiting = false
		}
		m.actionErr = ""
		return
	}

	log.Printf("ACTION_FAILED | action=%s err=%v", msg.Kind, msg.Err)
	m.awaiting = false
	if errors.Is(msg.Err, conversation.ErrUnauthenticated) {
		m.loginRequired = true
		m.arbiter.Reset()
	}
	m.actionErr = msg.Err.Error()
}

func (m *Model) applyConfig(msg ConfigChangedMsg) {
	if msg.Theme != "" && msg.Theme != m.theme.Name {
		m.theme = styles.NamedTheme(msg.Theme)
		m.header = components.NewHeader(m.theme)
		m.status = components.NewStatusBar(m.theme)
	}
	m.list.ShowMetadata = msg.ShowMetadata
	m.list.Compact = msg.Compact
	m.compact = msg.Compact
	m.layout()
}

// =============================================================================
// REFRESH
// =============================================================================

// refresh re-reads the conversation and updates every component. The
// scroll arbiter is consulted only when the rendered transcript or the
// streaming state changed.
func (m *Model) refresh() {
	prevStreaming, prevID := m.state.IsStreaming, m.state.StreamingID
	m.state = m.ctrl.Store().Snapshot()

	if m.state.Connected {
		m.input.Placeholder = "Ask a legal question..."
		m.input.Focus()
	} else {
		m.input.Placeholder = "Reconnecting..."
		m.input.Blur()
	}
	if m.awaiting && (m.state.IsStreaming || lastIsBot(m.state.Messages) || m.state.LastError != "") {
		m.awaiting = false
	}
	if m.identity().Authenticated(timeNow()) {
		m.loginRequired = false
	}

	content := m.list.View(components.Transcript{
		Messages:  m.state.Messages,
		Metadata:  m.state.Metadata,
		Displayed: m.ctrl.Displayed,
		Spinner:   m.spinner.View(),
	})
	streamChanged := prevStreaming != m.state.IsStreaming || prevID != m.state.StreamingID
	if content == m.content && !streamChanged {
		return
	}
	if content != m.content {
		m.content = content
		m.viewport.SetContent(content)
	}
	m.arbiter.OnMessagesChanged(m.state.IsStreaming, m.state.StreamingID)
}

func lastIsBot(messages []model.ChatMessage) bool {
	return len(messages) > 0 && messages[len(messages)-1].IsBot()
}
