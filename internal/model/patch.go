// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrPatchMissingID is returned when a bot message patch carries no _id.
var ErrPatchMissingID = errors.New("bot message patch has no _id")

// =============================================================================
// BOT MESSAGE PATCH
// =============================================================================

// BotMessagePatch is an out-of-band merge patch for a bot message. Only the
// fields present in the payload are applied.
type BotMessagePatch struct {
	ID          string      `json:"_id"`
	Content     *string     `json:"content,omitempty"`
	IsStreaming *bool       `json:"isStreaming,omitempty"`
	Responses   *[]Response `json:"responses,omitempty"`
	Metadata    *Metadata   `json:"-"`
}

// ParseBotMessagePatch decodes a patch payload. Metadata fields sent flat on
// the patch are collected into Metadata.
func ParseBotMessagePatch(data []byte) (BotMessagePatch, error) {
	var p BotMessagePatch
	if err := json.Unmarshal(data, &p); err != nil {
		return BotMessagePatch{}, fmt.Errorf("decode bot message patch: %w", err)
	}
	if p.ID == "" {
		return BotMessagePatch{}, ErrPatchMissingID
	}

	var present map[string]json.RawMessage
	if err := json.Unmarshal(data, &present); err != nil {
		return BotMessagePatch{}, fmt.Errorf("decode bot message patch: %w", err)
	}
	for _, key := range []string{"aiConfidence", "references", "cases", "legalContext", "quickAction"} {
		if _, ok := present[key]; ok {
			var meta Metadata
			if err := json.Unmarshal(data, &meta); err != nil {
				return BotMessagePatch{}, fmt.Errorf("decode bot message metadata: %w", err)
			}
			p.Metadata = &meta
			break
		}
	}

	return p, nil
}

// Apply returns msg with the patch merged in. A settled message is never
// reopened: IsStreaming may only go from true to false.
func (p BotMessagePatch) Apply(msg ChatMessage) ChatMessage {
	out := msg.Clone()

	if p.Responses != nil && len(*p.Responses) > 0 {
		out.Responses = make([]Response, len(*p.Responses))
		copy(out.Responses, *p.Responses)
		out.Content = out.Responses[len(out.Responses)-1].Content
	}

	if p.Content != nil {
		out.Content = *p.Content
		if len(out.Responses) == 0 {
			out.Responses = []Response{{Type: ResponseTypeText, Content: *p.Content}}
		} else {
			out.Responses[len(out.Responses)-1].Content = *p.Content
		}
	}

	if p.IsStreaming != nil && !*p.IsStreaming {
		out.IsStreaming = false
	}

	return out
}

// EndsStream reports whether the patch explicitly clears the streaming flag.
func (p BotMessagePatch) EndsStream() bool {
	return p.IsStreaming != nil && !*p.IsStreaming
}
