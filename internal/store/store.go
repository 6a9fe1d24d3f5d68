// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the conversation state shared by the transport
// handlers, the stream reconciler and the view layer.
package store

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/jeranaias/lexchat-tui/internal/model"
)

// Errors returned by store actions.
var (
	ErrUnknownMessage = errors.New("unknown message")
	ErrResponseIndex  = errors.New("response index out of range")
	ErrNotBotMessage  = errors.New("message is not a bot message")
)

// =============================================================================
// STATE
// =============================================================================

// State is an immutable snapshot of the conversation.
type State struct {
	// Version increases on every mutation. Subscribers may drop snapshots
	// older than one they already rendered.
	Version uint64

	SessionID string
	Messages  []model.ChatMessage

	// IsStreaming is true while a bot response is open. StreamingID names the
	// message holding it.
	IsStreaming bool
	StreamingID string

	Metadata  model.Metadata
	Connected bool

	// LastError is the most recent call-site failure shown to the user.
	LastError string
}

// Message returns the message with the given id.
func (s State) Message(id string) (model.ChatMessage, bool) {
	if idx := model.IndexOf(s.Messages, id); idx >= 0 {
		return s.Messages[idx], true
	}
	return model.ChatMessage{}, false
}

func (s State) clone() State {
	c := s
	c.Messages = make([]model.ChatMessage, len(s.Messages))
	for i, msg := range s.Messages {
		c.Messages[i] = msg.Clone()
	}
	return c
}

// =============================================================================
// STORE
// =============================================================================

// Store is the injectable state container. All mutations are serialized;
// subscribers are notified outside the lock with a snapshot.
type Store struct {
	mu    sync.Mutex
	state State

	subs   map[int]func(State)
	nextID int
}

// New creates an empty store.
func New() *Store {
	return &Store{subs: make(map[int]func(State))}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn for state changes and returns a function that
// removes it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// mutate runs fn under the lock and publishes the result when fn reports a
// change.
func (s *Store) mutate(fn func(st *State) (bool, error)) error {
	s.mu.Lock()
	changed, err := fn(&s.state)
	if !changed {
		s.mu.Unlock()
		return err
	}
	s.state.Version++
	snap := s.state.clone()
	subs := make([]func(State), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snap)
	}
	return err
}

// =============================================================================
// MESSAGE ACTIONS
// =============================================================================

// AddUserMessage appends a user turn.
func (s *Store) AddUserMessage(msg model.ChatMessage) {
	msg.Sender = model.SenderUser
	_ = s.mutate(func(st *State) (bool, error) {
		st.Messages = append(st.Messages, msg.Clone())
		st.LastError = ""
		return true, nil
	})
}

// RemoveMessage drops a message that never reached the server, such as a
// first-message draft replaced before the session was acknowledged.
func (s *Store) RemoveMessage(id string) error {
	return s.mutate(func(st *State) (bool, error) {
		idx := model.IndexOf(st.Messages, id)
		if idx < 0 {
			return false, fmt.Errorf("remove %s: %w", id, ErrUnknownMessage)
		}
		if st.StreamingID == id {
			st.IsStreaming = false
			st.StreamingID = ""
		}
		st.Messages = append(st.Messages[:idx:idx], st.Messages[idx+1:]...)
		return true, nil
	})
}

// UpdateStreamingMessage records cumulative content for the open response of
// a bot message, creating the message when the server announces a new id.
//
// It returns false when the chunk was ignored because the response already
// settled; a settled response never reopens.
func (s *Store) UpdateStreamingMessage(id, content string, done bool) bool {
	applied := false
	_ = s.mutate(func(st *State) (bool, error) {
		idx := model.IndexOf(st.Messages, id)
		if idx < 0 {
			msg := model.NewBotMessage(id, content, !done)
			if u := model.LastUserMessage(st.Messages); u >= 0 {
				msg.ReplyTo = st.Messages[u].ID
			}
			st.Messages = append(st.Messages, msg)
		} else {
			msg := &st.Messages[idx]
			if !msg.IsBot() || !msg.IsStreaming {
				return false, nil
			}
			setLatestContent(msg, content)
			if done {
				msg.IsStreaming = false
			}
		}

		applied = true
		if done {
			if st.StreamingID == id {
				st.IsStreaming = false
				st.StreamingID = ""
			}
		} else {
			st.IsStreaming = true
			st.StreamingID = id
		}
		return true, nil
	})
	return applied
}

// UpdateBotMessage merges an out-of-band patch into a bot message.
func (s *Store) UpdateBotMessage(patch model.BotMessagePatch) error {
	return s.mutate(func(st *State) (bool, error) {
		idx := model.IndexOf(st.Messages, patch.ID)
		if idx < 0 {
			return false, fmt.Errorf("update bot message %s: %w", patch.ID, ErrUnknownMessage)
		}
		if !st.Messages[idx].IsBot() {
			return false, fmt.Errorf("update bot message %s: %w", patch.ID, ErrNotBotMessage)
		}

		st.Messages[idx] = patch.Apply(st.Messages[idx])
		if patch.Metadata != nil {
			st.Metadata = st.Metadata.Merge(*patch.Metadata)
		}
		if patch.EndsStream() && st.StreamingID == patch.ID {
			st.IsStreaming = false
			st.StreamingID = ""
		}
		return true, nil
	})
}

// SetIsStreaming sets the global streaming flag. Clearing it also settles
// the message that was streaming.
func (s *Store) SetIsStreaming(streaming bool) {
	_ = s.mutate(func(st *State) (bool, error) {
		if st.IsStreaming == streaming {
			return false, nil
		}
		st.IsStreaming = streaming
		if !streaming {
			if idx := model.IndexOf(st.Messages, st.StreamingID); idx >= 0 {
				st.Messages[idx].IsStreaming = false
			}
			st.StreamingID = ""
		}
		return true, nil
	})
}

// SetChatMetadata merges side-channel enrichment for the conversation.
func (s *Store) SetChatMetadata(meta model.Metadata) {
	_ = s.mutate(func(st *State) (bool, error) {
		st.Metadata = st.Metadata.Merge(meta)
		return true, nil
	})
}

// BeginResponse opens a new, empty response on a bot message for a
// regeneration and selects it. It returns the new response index.
func (s *Store) BeginResponse(botID string) (int, error) {
	index := -1
	err := s.mutate(func(st *State) (bool, error) {
		idx := model.IndexOf(st.Messages, botID)
		if idx < 0 {
			return false, fmt.Errorf("begin response %s: %w", botID, ErrUnknownMessage)
		}
		msg := &st.Messages[idx]
		if !msg.IsBot() {
			return false, fmt.Errorf("begin response %s: %w", botID, ErrNotBotMessage)
		}

		msg.Responses = append(msg.ResponseList(), model.Response{Type: model.ResponseTypeText})
		msg.Selected = len(msg.Responses) - 1
		msg.Content = ""
		msg.IsStreaming = true
		msg.Incomplete = false

		st.IsStreaming = true
		st.StreamingID = botID
		index = msg.Selected
		return true, nil
	})
	return index, err
}

// SelectResponse switches the response shown for a bot message.
func (s *Store) SelectResponse(id string, index int) error {
	return s.mutate(func(st *State) (bool, error) {
		idx := model.IndexOf(st.Messages, id)
		if idx < 0 {
			return false, fmt.Errorf("select response %s: %w", id, ErrUnknownMessage)
		}
		msg := &st.Messages[idx]
		if index < 0 || index >= msg.ResponseCount() {
			return false, fmt.Errorf("select response %s[%d]: %w", id, index, ErrResponseIndex)
		}
		if msg.SelectedIndex() == index {
			return false, nil
		}
		msg.Selected = index
		return true, nil
	})
}

// MarkIncomplete settles a message whose stream was abandoned.
func (s *Store) MarkIncomplete(id string) error {
	return s.mutate(func(st *State) (bool, error) {
		idx := model.IndexOf(st.Messages, id)
		if idx < 0 {
			return false, fmt.Errorf("mark incomplete %s: %w", id, ErrUnknownMessage)
		}
		st.Messages[idx].IsStreaming = false
		st.Messages[idx].Incomplete = true
		if st.StreamingID == id {
			st.IsStreaming = false
			st.StreamingID = ""
		}
		log.Printf("STREAM_INCOMPLETE | id=%s", id)
		return true, nil
	})
}

// =============================================================================
// SESSION ACTIONS
// =============================================================================

// SetSessionID records the session id of the conversation.
func (s *Store) SetSessionID(id string) {
	_ = s.mutate(func(st *State) (bool, error) {
		if st.SessionID == id {
			return false, nil
		}
		st.SessionID = id
		return true, nil
	})
}

// SetConnected records the transport state.
func (s *Store) SetConnected(connected bool) {
	_ = s.mutate(func(st *State) (bool, error) {
		if st.Connected == connected {
			return false, nil
		}
		st.Connected = connected
		return true, nil
	})
}

// SetError records a call-site failure. An empty message clears it.
func (s *Store) SetError(msg string) {
	_ = s.mutate(func(st *State) (bool, error) {
		if st.LastError == msg {
			return false, nil
		}
		st.LastError = msg
		return true, nil
	})
}

// Reset clears the conversation for a new chat. The connection state is kept.
func (s *Store) Reset() {
	_ = s.mutate(func(st *State) (bool, error) {
		*st = State{Version: st.Version, Connected: st.Connected}
		return true, nil
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// setLatestContent writes content into the newest response of msg.
func setLatestContent(msg *model.ChatMessage, content string) {
	msg.Content = content
	if len(msg.Responses) == 0 {
		msg.Responses = []model.Response{{Type: model.ResponseTypeText, Content: content}}
		return
	}
	msg.Responses[len(msg.Responses)-1].Content = content
}
