// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// SENDER TYPE
// =============================================================================

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// String returns the string representation of the sender.
func (s Sender) String() string {
	return string(s)
}

// DisplayName returns a human-readable name for the sender.
func (s Sender) DisplayName() string {
	switch s {
	case SenderUser:
		return "You"
	case SenderBot:
		return "Legal Assistant"
	default:
		return string(s)
	}
}

// HistoryRole maps the sender onto the role used in outbound history entries.
func (s Sender) HistoryRole() string {
	if s == SenderBot {
		return "assistant"
	}
	return "user"
}

// =============================================================================
// RESPONSE TYPE
// =============================================================================

// ResponseTypeText is the type of a plain markdown answer.
const ResponseTypeText = "text"

// Response is one alternative answer held by a bot message.
// Index 0 is the original answer; regenerations append.
type Response struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// =============================================================================
// CHAT MESSAGE TYPE
// =============================================================================

// ChatMessage represents a single turn in a conversation.
type ChatMessage struct {
	// Identity
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	CreatedAt time.Time `json:"createdAt"`

	// Content is the ground truth text of the newest response. It may still
	// be growing while IsStreaming is set.
	Content string `json:"content"`

	// Streaming state of the newest response.
	IsStreaming bool `json:"isStreaming"`

	// Responses holds the alternatives for bot messages. Selected is the index
	// currently shown.
	Responses []Response `json:"responses,omitempty"`
	Selected  int        `json:"selected"`

	// ReplyTo is the id of the user turn a bot message answers.
	ReplyTo string `json:"replyTo,omitempty"`

	// Incomplete is set when the stream was abandoned before the server
	// declared it finished.
	Incomplete bool `json:"incomplete,omitempty"`
}

// NewUserMessage creates a user message with a client generated id.
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{
		ID:        generateID(),
		Sender:    SenderUser,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// NewBotMessage creates a streaming bot message announced by the server.
func NewBotMessage(id, content string, streaming bool) ChatMessage {
	return ChatMessage{
		ID:          id,
		Sender:      SenderBot,
		Content:     content,
		IsStreaming: streaming,
		Responses:   []Response{{Type: ResponseTypeText, Content: content}},
		CreatedAt:   time.Now(),
	}
}

// =============================================================================
// RESPONSE NAVIGATION
// =============================================================================

// IsBot reports whether the message was produced by the assistant.
func (m ChatMessage) IsBot() bool {
	return m.Sender == SenderBot
}

// ResponseList returns the alternatives of the message. A message without
// explicit responses is treated as a single implicit response holding Content.
func (m ChatMessage) ResponseList() []Response {
	if len(m.Responses) > 0 {
		return m.Responses
	}
	return []Response{{Type: ResponseTypeText, Content: m.Content}}
}

// ResponseCount returns the number of alternatives.
func (m ChatMessage) ResponseCount() int {
	return len(m.ResponseList())
}

// LatestResponse returns the index of the newest response, the only one that
// can be streaming.
func (m ChatMessage) LatestResponse() int {
	return m.ResponseCount() - 1
}

// SelectedIndex returns the clamped index of the response being shown.
func (m ChatMessage) SelectedIndex() int {
	n := m.ResponseCount()
	if m.Selected < 0 {
		return 0
	}
	if m.Selected >= n {
		return n - 1
	}
	return m.Selected
}

// SelectedContent returns the content of the response being shown.
func (m ChatMessage) SelectedContent() string {
	return m.ResponseList()[m.SelectedIndex()].Content
}

// ShowsStreamingResponse reports whether the visible response is the one
// still receiving chunks.
func (m ChatMessage) ShowsStreamingResponse() bool {
	return m.IsStreaming && m.SelectedIndex() == m.LatestResponse()
}

// Clone returns a deep copy safe to hand to another goroutine.
func (m ChatMessage) Clone() ChatMessage {
	c := m
	if m.Responses != nil {
		c.Responses = make([]Response, len(m.Responses))
		copy(c.Responses, m.Responses)
	}
	return c
}

// Preview returns a truncated preview of the visible content.
// Uses rune-based truncation to handle Unicode correctly.
func (m ChatMessage) Preview(maxLen int) string {
	runes := []rune(m.SelectedContent())
	if len(runes) <= maxLen || maxLen < 4 {
		return string(runes)
	}
	return string(runes[:maxLen-3]) + "..."
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateID creates a unique client-side message ID.
func generateID() string {
	return "msg_" + uuid.New().String()
}
