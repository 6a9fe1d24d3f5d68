// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"strings"
)

// MaxHistoryEntries caps the number of prior turns sent with a new message.
// Older turns are dropped from the front so the newest context survives.
const MaxHistoryEntries = 200

// =============================================================================
// HISTORY ENTRY TYPE
// =============================================================================

// HistoryEntry is one prior turn as sent to the backend.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// =============================================================================
// HISTORY COMPOSITION
// =============================================================================

// ComposeHistory encodes messages as alternating user/assistant entries.
//
// Bot turns contribute the response currently selected. Empty turns are
// skipped; consecutive user turns are merged and consecutive assistant turns
// keep only the latest, so the result always alternates. The result never
// opens with an assistant entry, including after the MaxHistoryEntries cap.
func ComposeHistory(messages []ChatMessage) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(messages))

	for _, msg := range messages {
		content := msg.Content
		if msg.IsBot() {
			content = msg.SelectedContent()
		}
		if strings.TrimSpace(content) == "" {
			continue
		}

		role := msg.Sender.HistoryRole()
		if n := len(entries); n > 0 && entries[n-1].Role == role {
			if role == "user" {
				entries[n-1].Content += "\n\n" + content
			} else {
				entries[n-1].Content = content
			}
			continue
		}

		entries = append(entries, HistoryEntry{Role: role, Content: content})
	}

	if len(entries) > MaxHistoryEntries {
		entries = entries[len(entries)-MaxHistoryEntries:]
	}
	if len(entries) > 0 && entries[0].Role != SenderUser.HistoryRole() {
		entries = entries[1:]
	}
	return entries
}

// HistoryBefore composes the history of every message preceding the one
// with the given id. It returns false when the id is unknown.
func HistoryBefore(messages []ChatMessage, id string) ([]HistoryEntry, bool) {
	for i, msg := range messages {
		if msg.ID == id {
			return ComposeHistory(messages[:i]), true
		}
	}
	return nil, false
}

// =============================================================================
// LOOKUP HELPERS
// =============================================================================

// IndexOf returns the position of the message with the given id, or -1.
func IndexOf(messages []ChatMessage, id string) int {
	for i, msg := range messages {
		if msg.ID == id {
			return i
		}
	}
	return -1
}

// AnswerTo returns the index of the bot message answering the user turn
// with the given id, or -1 when there is none yet.
func AnswerTo(messages []ChatMessage, userMessageID string) int {
	for i, msg := range messages {
		if msg.IsBot() && msg.ReplyTo == userMessageID {
			return i
		}
	}

	// Fall back to adjacency for bot messages announced without ReplyTo.
	idx := IndexOf(messages, userMessageID)
	if idx >= 0 && idx+1 < len(messages) && messages[idx+1].IsBot() {
		return idx + 1
	}
	return -1
}

// LastUserMessage returns the index of the most recent user turn, or -1.
func LastUserMessage(messages []ChatMessage) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Sender == SenderUser {
			return i
		}
	}
	return -1
}

// LastBotMessage returns the index of the most recent bot turn, or -1.
func LastBotMessage(messages []ChatMessage) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].IsBot() {
			return i
		}
	}
	return -1
}
