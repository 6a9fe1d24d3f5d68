// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport implements the named-event channel to the chat backend.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tmaxmax/go-sse"
	"golang.org/x/time/rate"

	"github.com/jeranaias/lexchat-tui/internal/util"
)

// Default endpoint paths.
const (
	DefaultEventsPath = "/socket/events"
	DefaultEmitPath   = "/socket/emit"
)

// maxEventSize bounds one inbound event. Chunks carry the cumulative text
// of an answer, so they grow with it.
const maxEventSize = 4 << 20

// Errors returned by the client.
var (
	ErrDisconnected = errors.New("event stream is not connected")
	ErrUnauthorized = errors.New("chat server rejected the credentials")
	ErrRejected     = errors.New("chat server rejected the event")
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds the connection settings.
type Config struct {
	// URL is the base URL of the chat server.
	URL string

	EventsPath string
	EmitPath   string

	// Token is sent as a bearer token on every request. May be empty.
	Token string

	// ConnectTimeout bounds the wait for the event stream response headers
	// and for each emit.
	ConnectTimeout time.Duration

	// ReconnectDelay is the pause between event stream attempts.
	ReconnectDelay time.Duration

	// EmitRate and EmitBurst throttle outbound events.
	EmitRate  float64
	EmitBurst int
}

func (c *Config) fillDefaults() {
	if c.EventsPath == "" {
		c.EventsPath = DefaultEventsPath
	}
	if c.EmitPath == "" {
		c.EmitPath = DefaultEmitPath
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 2 * time.Second
	}
	if c.EmitRate <= 0 {
		c.EmitRate = 10
	}
	if c.EmitBurst <= 0 {
		c.EmitBurst = 5
	}
}

// Handler receives the JSON payload of an inbound event.
type Handler func(data json.RawMessage)

// envelope is the body of an outbound event.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client reads inbound events from a server-sent event stream and posts
// outbound events over HTTP.
//
// Handlers run on the reader goroutine in arrival order.
type Client struct {
	cfg      Config
	clientID string

	streamHTTP *http.Client
	emitHTTP   *http.Client
	limiter    *rate.Limiter

	mu       sync.RWMutex
	handlers map[string]map[int]Handler
	nextID   int
	onState  []func(connected bool)

	connected atomic.Bool
}

// New creates a client. Nothing connects until Run is called.
func New(cfg Config) *Client {
	cfg.fillDefaults()

	streamTransport := http.DefaultTransport.(*http.Transport).Clone()
	streamTransport.ResponseHeaderTimeout = cfg.ConnectTimeout

	return &Client{
		cfg:        cfg,
		clientID:   uuid.New().String(),
		streamHTTP: &http.Client{Transport: streamTransport},
		emitHTTP:   &http.Client{Timeout: cfg.ConnectTimeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.EmitRate), cfg.EmitBurst),
		handlers:   make(map[string]map[int]Handler),
	}
}

// ClientID returns the id this client presents to the server.
func (c *Client) ClientID() string {
	return c.clientID
}

// Connected reports whether the event stream is open.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// On registers h for event and returns a function removing it.
func (c *Client) On(event string, h Handler) (off func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handlers[event] == nil {
		c.handlers[event] = make(map[int]Handler)
	}
	id := c.nextID
	c.nextID++
	c.handlers[event][id] = h

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers[event], id)
	}
}

// OnStateChange registers fn for connection state changes.
func (c *Client) OnStateChange(fn func(connected bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = append(c.onState, fn)
}

// =============================================================================
// OUTBOUND
// =============================================================================

// Emit posts a named event. It fails with ErrDisconnected while the event
// stream is down, since replies could not be delivered.
func (c *Client) Emit(ctx context.Context, event string, payload any) error {
	if !c.Connected() {
		return ErrDisconnected
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}

	body, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		return fmt.Errorf("emit %s: encode: %w", event, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.cfg.EmitPath), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.emitHTTP.Do(req)
	if err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("emit %s: %w", event, ErrUnauthorized)
	case resp.StatusCode >= 300:
		return fmt.Errorf("emit %s: status %d: %w", event, resp.StatusCode, ErrRejected)
	}

	util.Debugf("EMIT | event=%s bytes=%d", event, len(body))
	return nil
}

// =============================================================================
// INBOUND
// =============================================================================

// Run keeps the event stream open until ctx ends, reconnecting after
// failures. It returns ErrUnauthorized when the server refuses the
// credentials and nil when ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	for {
		err := c.stream(ctx)
		c.setConnected(false)

		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrUnauthorized) {
			log.Printf("STREAM_AUTH_FAILED | url=%s", c.cfg.URL)
			return err
		}
		log.Printf("STREAM_DISCONNECTED | err=%v retry_in=%s", err, c.cfg.ReconnectDelay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

// stream reads one event stream connection to its end.
func (c *Client) stream(ctx context.Context) error {
	u := c.endpoint(c.cfg.EventsPath) + "?client_id=" + url.QueryEscape(c.clientID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	c.authorize(req)

	resp, err := c.streamHTTP.Do(req)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("connect: status %d", resp.StatusCode)
	}

	log.Printf("STREAM_CONNECTED | client=%s", c.clientID)
	c.setConnected(true)

	for ev, err := range sse.Read(resp.Body, &sse.ReadConfig{MaxEventSize: maxEventSize}) {
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if ev.Type == "" {
			continue
		}
		c.dispatch(ev.Type, json.RawMessage(ev.Data))
	}
	return io.EOF
}

// dispatch runs the handlers of event in registration order.
func (c *Client) dispatch(event string, data json.RawMessage) {
	c.mu.RLock()
	ids := make([]int, 0, len(c.handlers[event]))
	for id := range c.handlers[event] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, c.handlers[event][id])
	}
	c.mu.RUnlock()

	if len(handlers) == 0 {
		util.Debugf("EVENT_UNHANDLED | event=%s", event)
		return
	}
	for _, h := range handlers {
		h(data)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func (c *Client) setConnected(connected bool) {
	if c.connected.Swap(connected) == connected {
		return
	}

	c.mu.RLock()
	fns := make([]func(bool), len(c.onState))
	copy(fns, c.onState)
	c.mu.RUnlock()

	for _, fn := range fns {
		fn(connected)
	}
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	req.Header.Set("X-Client-ID", c.clientID)
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.cfg.URL, "/") + "/" + strings.TrimLeft(path, "/")
}
