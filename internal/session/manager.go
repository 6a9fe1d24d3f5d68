// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session bootstraps and tracks the chat session of a conversation.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/lexchat-tui/internal/model"
)

// Errors returned by the manager.
var (
	ErrDisconnected = errors.New("not connected to the chat server")
	ErrNoSession    = errors.New("no chat session")
	ErrAckTimeout   = errors.New("chat server did not acknowledge the new session")
)

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager owns the session handle of the conversation and makes sure exactly
// one session-creation round trip happens before the first message is sent.
//
// The first message waits in a single pending continuation identified by a
// request token. A newer first message replaces it; the acknowledgement
// resolves it at most once.
type Manager struct {
	mu sync.Mutex

	emitter Emitter
	routes  RouteRecorder

	// Session handle; empty until acknowledged or resumed.
	sessionID string
	startTime time.Time

	pending    *continuation
	ackTimeout time.Duration

	// Callbacks
	onSessionStarted func(sessionID string)
	onFailure        func(err error)
}

// continuation is the first message waiting for the session acknowledgement.
type continuation struct {
	token   string
	userID  string
	history []model.HistoryEntry
	text    string
	timer   *time.Timer
}

// Config holds configuration for the session manager.
type Config struct {
	// AckTimeout bounds the wait for the session acknowledgement
	// (default: 30 seconds). Zero waits forever.
	AckTimeout time.Duration
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		AckTimeout: 30 * time.Second,
	}
}

// NewManager creates a session manager. routes may be nil.
func NewManager(emitter Emitter, routes RouteRecorder, cfg Config) *Manager {
	return &Manager{
		emitter:    emitter,
		routes:     routes,
		ackTimeout: cfg.AckTimeout,
	}
}

// =============================================================================
// SESSION STATE
// =============================================================================

// SessionID returns the current session id, or "" before the first
// acknowledgement.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// HasSession reports whether a session id is known.
func (m *Manager) HasSession() bool {
	return m.SessionID() != ""
}

// Pending reports whether a first message waits for its acknowledgement.
func (m *Manager) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending != nil
}

// =============================================================================
// CALLBACKS
// =============================================================================

// SetSessionCallback sets the function called when a session id is assigned.
func (m *Manager) SetSessionCallback(fn func(sessionID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSessionStarted = fn
}

// SetFailureCallback sets the function called when a pending first message
// is abandoned.
func (m *Manager) SetFailureCallback(fn func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFailure = fn
}

// =============================================================================
// SENDING
// =============================================================================

// Send delivers a user turn, bootstrapping a session first when none exists.
func (m *Manager) Send(ctx context.Context, userID string, history []model.HistoryEntry, text string) error {
	if sessionID := m.SessionID(); sessionID != "" {
		return m.SendSubsequentMessage(ctx, sessionID, history, text)
	}
	return m.SendFirstMessage(ctx, userID, history, text)
}

// SendFirstMessage requests a new session and queues the message until the
// server acknowledges it. Calling it again before the acknowledgement
// replaces the queued message.
func (m *Manager) SendFirstMessage(ctx context.Context, userID string, history []model.HistoryEntry, text string) error {
	if !m.emitter.Connected() {
		return ErrDisconnected
	}

	m.mu.Lock()
	if m.sessionID != "" {
		sessionID := m.sessionID
		m.mu.Unlock()
		return m.SendSubsequentMessage(ctx, sessionID, history, text)
	}

	if m.pending != nil {
		m.stopPendingLocked()
		log.Printf("BOOTSTRAP_REPLACED | user=%s", userID)
	}

	c := &continuation{
		token:   uuid.New().String(),
		userID:  userID,
		history: history,
		text:    text,
	}
	if m.ackTimeout > 0 {
		token := c.token
		c.timer = time.AfterFunc(m.ackTimeout, func() {
			m.expire(token)
		})
	}
	m.pending = c
	m.mu.Unlock()

	log.Printf("BOOTSTRAP_START | user=%s token=%s", userID, c.token)
	if err := m.emitter.Emit(ctx, model.EventStartChat, model.StartChat{UserID: userID}); err != nil {
		m.clearPending(c.token)
		return fmt.Errorf("start chat: %w", err)
	}
	return nil
}

// SendSubsequentMessage emits a chat message for a known session.
func (m *Manager) SendSubsequentMessage(ctx context.Context, sessionID string, history []model.HistoryEntry, text string) error {
	if sessionID == "" {
		return ErrNoSession
	}
	if !m.emitter.Connected() {
		return ErrDisconnected
	}
	return m.emitChatMessage(ctx, sessionID, history, text)
}

// HandleSessionStarted consumes the session acknowledgement. It records the
// session id, mirrors it into the route and sends the queued message. It
// reports false when nothing was pending, so a duplicate acknowledgement
// never sends twice.
func (m *Manager) HandleSessionStarted(ctx context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	c := m.pending
	if c == nil {
		m.mu.Unlock()
		log.Printf("BOOTSTRAP_ACK_IGNORED | session=%s", sessionID)
		return false, nil
	}
	m.stopPendingLocked()
	m.sessionID = sessionID
	m.startTime = time.Now()
	onSessionStarted := m.onSessionStarted
	m.mu.Unlock()

	log.Printf("BOOTSTRAP_ACK | session=%s token=%s", sessionID, c.token)

	if m.routes != nil {
		if err := m.routes.ReplaceRoute(ctx, sessionID); err != nil {
			log.Printf("ROUTE_ERROR | session=%s err=%v", sessionID, err)
		}
	}
	if onSessionStarted != nil {
		onSessionStarted(sessionID)
	}

	if err := m.emitChatMessage(ctx, sessionID, c.history, c.text); err != nil {
		return true, err
	}
	return true, nil
}

// CancelPending drops the queued first message, if any.
func (m *Manager) CancelPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return false
	}
	m.stopPendingLocked()
	return true
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Reset forgets the session for a new chat.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopPendingLocked()
	m.sessionID = ""
	m.startTime = time.Time{}
}

// Resume restores a known session without a bootstrap round trip.
func (m *Manager) Resume(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopPendingLocked()
	m.sessionID = sessionID
	m.startTime = time.Now()
	log.Printf("SESSION_RESUMED | session=%s", sessionID)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func (m *Manager) emitChatMessage(ctx context.Context, sessionID string, history []model.HistoryEntry, text string) error {
	payload := model.ChatMessagePayload{
		SessionID:  sessionID,
		History:    history,
		NewMessage: text,
	}
	if err := m.emitter.Emit(ctx, model.EventChatMessage, payload); err != nil {
		return fmt.Errorf("send chat message: %w", err)
	}
	return nil
}

// stopPendingLocked clears the continuation (caller must hold lock).
func (m *Manager) stopPendingLocked() {
	if m.pending == nil {
		return
	}
	if m.pending.timer != nil {
		m.pending.timer.Stop()
	}
	m.pending = nil
}

// clearPending drops the continuation if it still carries token.
func (m *Manager) clearPending(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil || m.pending.token != token {
		return false
	}
	m.stopPendingLocked()
	return true
}

// expire abandons a continuation whose acknowledgement never came.
func (m *Manager) expire(token string) {
	if !m.clearPending(token) {
		return
	}

	m.mu.Lock()
	onFailure := m.onFailure
	m.mu.Unlock()

	log.Printf("BOOTSTRAP_TIMEOUT | token=%s", token)
	if onFailure != nil {
		onFailure(ErrAckTimeout)
	}
}

// =============================================================================
// SESSION STATUS
// =============================================================================

// Status represents the current session status.
type Status struct {
	SessionID string
	StartTime time.Time
	Duration  time.Duration
	Pending   bool
}

// GetStatus returns the current session status.
func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Status{
		SessionID: m.sessionID,
		StartTime: m.startTime,
		Pending:   m.pending != nil,
	}
	if !m.startTime.IsZero() {
		s.Duration = time.Since(m.startTime)
	}
	return s
}
