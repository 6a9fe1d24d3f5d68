// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types shared by the store, the stream
// reconciler and the view layer.
//
// # Key Types
//
//   - ChatMessage: one turn, with alternative Responses for bot answers
//   - Response: a single alternative answer ({type, content})
//   - HistoryEntry: a prior turn as sent to the backend (role/content)
//   - Metadata: confidence, references, cases and legal context enrichment
//   - BotMessagePatch: out-of-band merge patch for a bot message
//
// # Usage
//
// Compose the history for an outgoing turn:
//
//	history := model.ComposeHistory(state.Messages)
//
// Show the alternative a user picked:
//
//	text := msg.SelectedContent()
package model
