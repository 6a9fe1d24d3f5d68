// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

// =============================================================================
// EVENT NAMES
// =============================================================================

// Inbound events (server to client).
const (
	EventSessionStarted    = "model:session-started"
	EventMessageStream     = "model:message-stream"
	EventBotMessageUpdated = "model:bot-message-updated"
	EventMetadataGenerated = "model:metadata-generated"
	EventMetadataLoaded    = "model:metadata-loaded"
	EventError             = "model:error"
)

// Outbound events (client to server).
const (
	EventStartChat          = "startChat"
	EventChatMessage        = "chatMessage"
	EventRegenerateResponse = "regenerateResponse"
	EventAbortChat          = "abort_chat"
)

// =============================================================================
// INBOUND PAYLOADS
// =============================================================================

// SessionStarted acknowledges a startChat request.
type SessionStarted struct {
	SessionID string `json:"sessionId"`
}

// MessageChunk carries the cumulative content of a bot message.
type MessageChunk struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Done    bool   `json:"done"`
}

// ServerError reports a failure of the in-flight turn.
type ServerError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// =============================================================================
// OUTBOUND PAYLOADS
// =============================================================================

// StartChat requests a new session for a user.
type StartChat struct {
	UserID string `json:"userId"`
}

// ChatMessagePayload sends one user turn with its history.
type ChatMessagePayload struct {
	SessionID  string         `json:"sessionId"`
	History    []HistoryEntry `json:"history"`
	NewMessage string         `json:"newMessage"`
}

// RegenerateResponse asks for an alternative answer to a prior user turn.
type RegenerateResponse struct {
	SessionID     string         `json:"sessionId"`
	UserMessageID string         `json:"userMessageId"`
	History       []HistoryEntry `json:"history"`
}

// AbortChat cancels the in-flight generation of a session.
type AbortChat struct {
	SessionID string `json:"sessionId,omitempty"`
}
