// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

// =============================================================================
// MESSAGES
// =============================================================================

// refreshMsg asks the model to re-read the conversation. Store and reveal
// notifications are coalesced into at most one pending refreshMsg.
type refreshMsg struct{}

// actionKind names a user action that ran off the update loop.
type actionKind int

const (
	actionSend actionKind = iota
	actionAbort
	actionRegenerate
	actionNewChat
	actionSelect
)

func (k actionKind) String() string {
	switch k {
	case actionSend:
		return "send"
	case actionAbort:
		return "abort"
	case actionRegenerate:
		return "regenerate"
	case actionNewChat:
		return "new_chat"
	case actionSelect:
		return "select"
	default:
		return "unknown"
	}
}

// actionDoneMsg reports the outcome of a user action.
type actionDoneMsg struct {
	Kind actionKind
	Err  error
}

// ConfigChangedMsg carries settings that can change while running.
type ConfigChangedMsg struct {
	Theme        string
	ShowMetadata bool
	Compact      bool
}
