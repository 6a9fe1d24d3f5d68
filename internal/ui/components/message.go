// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"log"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/lexchat-tui/internal/model"
	"github.com/jeranaias/lexchat-tui/internal/render"
	"github.com/jeranaias/lexchat-tui/internal/ui/styles"
)

// IncompleteNotice is shown under an answer whose stream was abandoned.
const IncompleteNotice = "Answer incomplete. Press ctrl+r to regenerate."

// =============================================================================
// MESSAGE LIST COMPONENT - Renders the transcript
// =============================================================================

// MessageList renders a conversation into a single string for the viewport.
type MessageList struct {
	Width        int
	ShowMetadata bool
	Compact      bool
	theme        *styles.Theme
	renderer     *render.Renderer
}

// NewMessageList creates a new MessageList.
func NewMessageList(theme *styles.Theme, renderer *render.Renderer) *MessageList {
	return &MessageList{
		Width:        80,
		ShowMetadata: true,
		theme:        theme,
		renderer:     renderer,
	}
}

// SetWidth sets the list width and rewraps markdown to fit.
func (ml *MessageList) SetWidth(width int) {
	ml.Width = width
	if err := ml.renderer.SetWidth(width - 4); err != nil {
		log.Printf("RENDER_WIDTH_FAILED | width=%d err=%v", width, err)
	}
}

// Transcript is everything the list needs for one render.
type Transcript struct {
	Messages []model.ChatMessage
	Metadata model.Metadata
	// Displayed returns the revealed text of a bot message's visible
	// response.
	Displayed func(model.ChatMessage) string
	// Spinner is the current spinner frame, shown while an answer has not
	// revealed any text yet.
	Spinner string
}

// View renders all messages.
func (ml *MessageList) View(t Transcript) string {
	if len(t.Messages) == 0 {
		return lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Italic(true).
			Width(ml.Width).
			Align(lipgloss.Center).
			Padding(2, 0).
			Render("Ask a question about your legal situation to get started.")
	}

	lastBot := model.LastBotMessage(t.Messages)
	blocks := make([]string, 0, len(t.Messages)+1)
	for i, msg := range t.Messages {
		if !msg.IsBot() {
			blocks = append(blocks, ml.renderUser(msg))
			continue
		}
		displayed := ""
		if t.Displayed != nil {
			displayed = t.Displayed(msg)
		}
		blocks = append(blocks, ml.renderBot(msg, displayed, t.Spinner))

		if i == lastBot && !msg.IsStreaming && ml.ShowMetadata && !t.Metadata.IsEmpty() {
			blocks = append(blocks, ml.renderMetadata(t.Metadata))
		}
	}

	separator := "\n\n"
	if ml.Compact {
		separator = "\n"
	}
	return strings.Join(blocks, separator)
}

// ==========================================================================
// USER MESSAGE
// ==========================================================================

func (ml *MessageList) renderUser(msg model.ChatMessage) string {
	label := ml.theme.RoleLabel.Render(msg.Sender.DisplayName())
	bubble := ml.theme.UserBubble.Width(maxInt(ml.Width-8, 20)).Render(msg.Content)
	return lipgloss.JoinVertical(lipgloss.Left, label, bubble)
}

// ==========================================================================
// BOT MESSAGE
// ==========================================================================

func (ml *MessageList) renderBot(msg model.ChatMessage, displayed, spinner string) string {
	header := ml.theme.RoleLabel.Render(msg.Sender.DisplayName())
	if n := msg.ResponseCount(); n > 1 {
		header += " " + ml.theme.ResponseCounter.Render("< "+fmtCounter(msg.SelectedIndex(), n)+" >")
	}

	body := ml.renderer.Message(msg, displayed)
	if body == "" {
		if msg.ShowsStreamingResponse() {
			body = ml.theme.Spinner.Render(strings.TrimSpace(spinner))
		}
		if body == "" {
			body = ml.theme.Muted.Render("...")
		}
	}

	lines := []string{header, ml.theme.AssistantBubble.Render(body)}
	switch {
	case msg.IsStreaming && !msg.ShowsStreamingResponse():
		lines = append(lines, ml.theme.Muted.Render("A new answer is being written. Press alt+> to view it."))
	case msg.Incomplete && !msg.IsStreaming:
		lines = append(lines, ml.theme.Incomplete.Render(IncompleteNotice))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// ==========================================================================
// METADATA FOOTER
// ==========================================================================

func (ml *MessageList) renderMetadata(meta model.Metadata) string {
	var lines []string
	if meta.AIConfidence != 0 {
		lines = append(lines, "Confidence: "+fmtPercent(meta.ConfidencePercent()))
	}
	lines = append(lines, ml.renderCitations("References", meta.References)...)
	lines = append(lines, ml.renderCitations("Cases", meta.Cases)...)
	if meta.LegalContext != "" {
		lines = append(lines, "Context: "+string(meta.LegalContext))
	}
	if meta.QuickAction != "" {
		lines = append(lines, "Next step: "+string(meta.QuickAction))
	}
	return ml.theme.MetadataFooter.Width(maxInt(ml.Width-2, 20)).Render(strings.Join(lines, "\n"))
}

func (ml *MessageList) renderCitations(title string, cites []model.Citation) []string {
	if len(cites) == 0 {
		return nil
	}
	lines := []string{title + ":"}
	for _, c := range cites {
		lines = append(lines, "  - "+ml.theme.Citation.Render(c.String()))
	}
	return lines
}
