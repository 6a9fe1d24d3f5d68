// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation wires the chat server's events to the conversation
// store, the stream reconciler and the session manager, and exposes the
// user actions of the chat screen.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/lexchat-tui/internal/auth"
	"github.com/jeranaias/lexchat-tui/internal/model"
	"github.com/jeranaias/lexchat-tui/internal/session"
	"github.com/jeranaias/lexchat-tui/internal/store"
	"github.com/jeranaias/lexchat-tui/internal/stream"
	"github.com/jeranaias/lexchat-tui/internal/transport"
)

// Errors returned by controller actions.
var (
	ErrUnauthenticated  = errors.New("sign in to start a conversation")
	ErrDisconnected     = session.ErrDisconnected
	ErrStreamInProgress = errors.New("a response is still streaming")
	ErrEmptyMessage     = errors.New("message is empty")
)

// handlerTimeout bounds emits made from inbound event handlers.
const handlerTimeout = 15 * time.Second

// titleLength is the length of the session title taken from the first
// user message.
const titleLength = 60

// =============================================================================
// COLLABORATORS
// =============================================================================

// Transport is the named-event channel to the chat server.
type Transport interface {
	Emit(ctx context.Context, event string, payload any) error
	Connected() bool
	On(event string, h transport.Handler) (off func())
	OnStateChange(fn func(connected bool))
}

// RouteStore remembers the session route across restarts.
type RouteStore interface {
	ReplaceRoute(ctx context.Context, sessionID string) error
	ClearRoute(ctx context.Context) error
	SetTitle(ctx context.Context, sessionID, title string) error
}

// Options configures a Controller.
type Options struct {
	// Routes may be nil.
	Routes RouteStore

	// Identity returns the signed-in user. Nil means signed out.
	Identity func() auth.Identity

	// LoginURL is passed to OnAuthRequired.
	LoginURL string

	// OnAuthRequired is called when a signed-out user tries to send.
	OnAuthRequired func(loginURL string)

	RevealInterval time.Duration
	StallTimeout   time.Duration
	AckTimeout     time.Duration
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns one conversation.
type Controller struct {
	transport Transport
	routes    RouteStore
	opts      Options

	store    *store.Store
	recon    *stream.Reconciler
	watchdog *stream.Watchdog
	sessions *session.Manager

	mu   sync.Mutex
	offs []func()
}

// New creates a controller and registers its handlers on t.
func New(t Transport, opts Options) *Controller {
	if opts.Identity == nil {
		opts.Identity = func() auth.Identity { return auth.Identity{} }
	}
	if opts.RevealInterval <= 0 {
		opts.RevealInterval = stream.DefaultRevealInterval
	}

	c := &Controller{
		transport: t,
		routes:    opts.Routes,
		opts:      opts,
		store:     store.New(),
		recon:     stream.NewReconciler(opts.RevealInterval),
	}

	var recorder session.RouteRecorder
	if opts.Routes != nil {
		recorder = opts.Routes
	}
	c.sessions = session.NewManager(t, recorder, session.Config{AckTimeout: opts.AckTimeout})
	c.sessions.SetSessionCallback(c.sessionStarted)
	c.sessions.SetFailureCallback(c.bootstrapFailed)
	c.watchdog = stream.NewWatchdog(opts.StallTimeout, c.stalled)

	c.offs = []func(){
		t.On(model.EventSessionStarted, c.handleSessionStarted),
		t.On(model.EventMessageStream, c.handleMessageStream),
		t.On(model.EventBotMessageUpdated, c.handleBotMessageUpdated),
		t.On(model.EventMetadataGenerated, c.handleMetadata),
		t.On(model.EventMetadataLoaded, c.handleMetadata),
		t.On(model.EventError, c.handleServerError),
	}
	t.OnStateChange(c.store.SetConnected)
	c.store.SetConnected(t.Connected())

	return c
}

// Store returns the conversation store.
func (c *Controller) Store() *store.Store { return c.store }

// Reconciler returns the stream reconciler feeding the displayed text.
func (c *Controller) Reconciler() *stream.Reconciler { return c.recon }

// Sessions returns the session manager.
func (c *Controller) Sessions() *session.Manager { return c.sessions }

// Displayed returns the text to show for the visible response of msg.
func (c *Controller) Displayed(msg model.ChatMessage) string {
	if !msg.IsBot() {
		return msg.Content
	}
	if text, ok := c.recon.Displayed(stream.Key{MessageID: msg.ID, Response: msg.SelectedIndex()}); ok {
		return text
	}
	return msg.SelectedContent()
}

// Close unregisters the handlers and stops every reveal and timer.
func (c *Controller) Close() {
	c.mu.Lock()
	offs := c.offs
	c.offs = nil
	c.mu.Unlock()

	for _, off := range offs {
		off()
	}
	c.watchdog.StopAll()
	c.sessions.CancelPending()
	c.recon.Close()
}

// =============================================================================
// USER ACTIONS
// =============================================================================

// Send submits a user turn. A signed-out user gets a fresh, empty
// conversation and the login hook instead of a queued message.
func (c *Controller) Send(ctx context.Context, text string) error {
	text = norm.NFC.String(strings.TrimSpace(text))
	if text == "" {
		return ErrEmptyMessage
	}

	id := c.opts.Identity()
	if !id.Authenticated(time.Now()) {
		log.Printf("AUTH_REQUIRED | action=send")
		if err := c.NewChat(ctx); err != nil {
			log.Printf("ROUTE_ERROR | action=clear err=%v", err)
		}
		if c.opts.OnAuthRequired != nil {
			c.opts.OnAuthRequired(auth.LoginURL(c.opts.LoginURL, ""))
		}
		return ErrUnauthenticated
	}
	if !c.transport.Connected() {
		return ErrDisconnected
	}

	snap := c.store.Snapshot()
	if snap.IsStreaming {
		return ErrStreamInProgress
	}

	messages := snap.Messages
	if c.sessions.Pending() {
		// The unacknowledged draft is superseded, not a prior turn.
		if idx := model.LastUserMessage(messages); idx >= 0 {
			draft := messages[idx].ID
			if err := c.store.RemoveMessage(draft); err == nil {
				log.Printf("DRAFT_REPLACED | message=%s", draft)
			}
			messages = append(messages[:idx:idx], messages[idx+1:]...)
		}
	}

	history := model.ComposeHistory(messages)
	c.store.AddUserMessage(model.NewUserMessage(text))

	if err := c.sessions.Send(ctx, id.UserID, history, text); err != nil {
		c.store.SetError(err.Error())
		return err
	}
	return nil
}

// Regenerate asks for an alternative answer to a prior user turn. Only one
// response streams at a time.
func (c *Controller) Regenerate(ctx context.Context, userMessageID string) error {
	snap := c.store.Snapshot()
	if snap.IsStreaming {
		return ErrStreamInProgress
	}
	if snap.SessionID == "" {
		return session.ErrNoSession
	}
	if !c.transport.Connected() {
		return ErrDisconnected
	}

	history, ok := model.HistoryBefore(snap.Messages, userMessageID)
	if !ok {
		return fmt.Errorf("regenerate %s: %w", userMessageID, store.ErrUnknownMessage)
	}
	if user, _ := snap.Message(userMessageID); user.IsBot() {
		return fmt.Errorf("regenerate %s: not a user message", userMessageID)
	}

	botID := ""
	if idx := model.AnswerTo(snap.Messages, userMessageID); idx >= 0 {
		botID = snap.Messages[idx].ID
		index, err := c.store.BeginResponse(botID)
		if err != nil {
			return err
		}
		c.watchdog.Touch(botID)
		log.Printf("REGENERATE | message=%s response=%d", botID, index)
	}

	payload := model.RegenerateResponse{
		SessionID:     snap.SessionID,
		UserMessageID: userMessageID,
		History:       history,
	}
	if err := c.transport.Emit(ctx, model.EventRegenerateResponse, payload); err != nil {
		if botID != "" {
			c.watchdog.Stop(botID)
			c.store.SetIsStreaming(false)
		}
		c.store.SetError(err.Error())
		return fmt.Errorf("regenerate: %w", err)
	}
	return nil
}

// RegenerateLast regenerates the answer to the most recent user turn.
func (c *Controller) RegenerateLast(ctx context.Context) error {
	snap := c.store.Snapshot()
	idx := model.LastUserMessage(snap.Messages)
	if idx < 0 {
		return fmt.Errorf("regenerate: %w", store.ErrUnknownMessage)
	}
	return c.Regenerate(ctx, snap.Messages[idx].ID)
}

// Abort cancels the in-flight generation. The open response settles locally
// with what has arrived so far, whether or not the server hears the request.
func (c *Controller) Abort(ctx context.Context) error {
	snap := c.store.Snapshot()
	cancelled := c.sessions.CancelPending()
	if !snap.IsStreaming && !cancelled {
		return nil
	}

	if id := snap.StreamingID; id != "" {
		c.watchdog.Stop(id)
		c.recon.SettleMessage(id)
	}
	c.store.SetIsStreaming(false)
	log.Printf("ABORT | session=%s message=%s", snap.SessionID, snap.StreamingID)

	if !c.transport.Connected() {
		return nil
	}
	if err := c.transport.Emit(ctx, model.EventAbortChat, model.AbortChat{SessionID: snap.SessionID}); err != nil {
		return fmt.Errorf("abort: %w", err)
	}
	return nil
}

// SelectResponse switches the visible response of a bot message. The
// response still streaming keeps recording while hidden and resumes when
// shown again; any other response is shown settled.
func (c *Controller) SelectResponse(messageID string, index int) error {
	msg, ok := c.store.Snapshot().Message(messageID)
	if !ok {
		return fmt.Errorf("select response %s: %w", messageID, store.ErrUnknownMessage)
	}
	old := msg.SelectedIndex()
	if err := c.store.SelectResponse(messageID, index); err != nil {
		return err
	}
	if old == index {
		return nil
	}

	latest := msg.LatestResponse()
	if msg.IsStreaming && old == latest {
		c.recon.Suspend(stream.Key{MessageID: messageID, Response: old})
	}

	key := stream.Key{MessageID: messageID, Response: index}
	if msg.IsStreaming && index == latest {
		c.recon.Resume(key)
		return nil
	}
	c.recon.Seed(key, msg.ResponseList()[index].Content)
	return nil
}

// CycleResponse moves the visible response of the last bot message by delta.
func (c *Controller) CycleResponse(delta int) error {
	snap := c.store.Snapshot()
	idx := model.LastBotMessage(snap.Messages)
	if idx < 0 {
		return nil
	}
	msg := snap.Messages[idx]
	next := msg.SelectedIndex() + delta
	if next < 0 || next >= msg.ResponseCount() {
		return nil
	}
	return c.SelectResponse(msg.ID, next)
}

// NewChat discards the conversation and forgets the session route.
func (c *Controller) NewChat(ctx context.Context) error {
	c.sessions.Reset()
	c.watchdog.StopAll()
	c.recon.Reset()
	c.store.Reset()
	log.Printf("NEW_CHAT")

	if c.routes == nil {
		return nil
	}
	return c.routes.ClearRoute(ctx)
}

// Resume continues a known session without a bootstrap round trip.
func (c *Controller) Resume(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return session.ErrNoSession
	}
	c.sessions.Resume(sessionID)
	c.store.SetSessionID(sessionID)

	if c.routes == nil {
		return nil
	}
	return c.routes.ReplaceRoute(ctx, sessionID)
}

// =============================================================================
// INBOUND EVENTS
// =============================================================================

func (c *Controller) handleSessionStarted(data json.RawMessage) {
	var ev model.SessionStarted
	if !decode(model.EventSessionStarted, data, &ev) {
		return
	}
	if ev.SessionID == "" {
		log.Printf("EVENT_INVALID | event=%s reason=empty_session", model.EventSessionStarted)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	if _, err := c.sessions.HandleSessionStarted(ctx, ev.SessionID); err != nil {
		c.store.SetError(err.Error())
	}
}

func (c *Controller) handleMessageStream(data json.RawMessage) {
	var chunk model.MessageChunk
	if !decode(model.EventMessageStream, data, &chunk) {
		return
	}
	if chunk.ID == "" {
		log.Printf("EVENT_INVALID | event=%s reason=empty_id", model.EventMessageStream)
		return
	}

	if !c.store.UpdateStreamingMessage(chunk.ID, chunk.Content, chunk.Done) {
		return
	}
	msg, ok := c.store.Snapshot().Message(chunk.ID)
	if !ok {
		return
	}

	key := stream.Key{MessageID: chunk.ID, Response: msg.LatestResponse()}
	c.recon.Apply(key, chunk.Content, chunk.Done)
	if !chunk.Done && msg.SelectedIndex() != key.Response {
		c.recon.Suspend(key)
	}

	if chunk.Done {
		c.watchdog.Stop(chunk.ID)
	} else {
		c.watchdog.Touch(chunk.ID)
	}
}

func (c *Controller) handleBotMessageUpdated(data json.RawMessage) {
	patch, err := model.ParseBotMessagePatch(data)
	if err != nil {
		log.Printf("EVENT_DECODE_ERROR | event=%s err=%v", model.EventBotMessageUpdated, err)
		return
	}
	if err := c.store.UpdateBotMessage(patch); err != nil {
		log.Printf("EVENT_IGNORED | event=%s err=%v", model.EventBotMessageUpdated, err)
		return
	}

	msg, ok := c.store.Snapshot().Message(patch.ID)
	if !ok {
		return
	}
	latest := stream.Key{MessageID: patch.ID, Response: msg.LatestResponse()}

	if msg.IsStreaming {
		if patch.Content != nil {
			c.recon.Apply(latest, *patch.Content, false)
			c.watchdog.Touch(patch.ID)
		}
		return
	}

	c.watchdog.Stop(patch.ID)
	c.recon.Settle(latest, msg.ResponseList()[latest.Response].Content)
	if visible := msg.SelectedIndex(); visible != latest.Response {
		c.recon.Seed(stream.Key{MessageID: patch.ID, Response: visible}, msg.SelectedContent())
	}
}

func (c *Controller) handleMetadata(data json.RawMessage) {
	var meta model.Metadata
	if !decode("model:metadata", data, &meta) {
		return
	}
	c.store.SetChatMetadata(meta)
}

func (c *Controller) handleServerError(data json.RawMessage) {
	var ev model.ServerError
	if !decode(model.EventError, data, &ev) {
		return
	}
	log.Printf("SERVER_ERROR | code=%s message=%s", ev.Code, ev.Message)

	c.sessions.CancelPending()
	snap := c.store.Snapshot()
	if id := snap.StreamingID; id != "" {
		c.watchdog.Stop(id)
		c.recon.SettleMessage(id)
	}
	c.store.SetIsStreaming(false)

	msg := ev.Message
	if msg == "" {
		msg = "the chat server reported an error"
	}
	c.store.SetError(msg)
}

// =============================================================================
// CALLBACKS
// =============================================================================

// sessionStarted records a newly acknowledged session and names it after the
// first user message.
func (c *Controller) sessionStarted(sessionID string) {
	c.store.SetSessionID(sessionID)
	if c.routes == nil {
		return
	}

	snap := c.store.Snapshot()
	idx := -1
	for i, msg := range snap.Messages {
		if msg.Sender == model.SenderUser {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	title := snap.Messages[idx].Preview(titleLength)
	if err := c.routes.SetTitle(ctx, sessionID, title); err != nil {
		log.Printf("ROUTE_ERROR | session=%s err=%v", sessionID, err)
	}
}

// bootstrapFailed unsticks the UI when the session was never acknowledged.
func (c *Controller) bootstrapFailed(err error) {
	c.store.SetIsStreaming(false)
	c.store.SetError(err.Error())
}

// stalled gives up on a stream that went silent.
func (c *Controller) stalled(messageID string) {
	c.recon.SettleMessage(messageID)
	if err := c.store.MarkIncomplete(messageID); err != nil {
		log.Printf("STREAM_STALL_IGNORED | id=%s err=%v", messageID, err)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func decode(event string, data json.RawMessage, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Printf("EVENT_DECODE_ERROR | event=%s err=%v", event, err)
		return false
	}
	return true
}
