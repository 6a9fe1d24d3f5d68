// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transporttest provides an in-process chat backend for tests.
package transporttest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tmaxmax/go-sse"
)

// Emitted is one outbound event received by the fake backend.
type Emitted struct {
	ClientID string
	Token    string
	Event    string
	Data     json.RawMessage
}

// Decode unmarshals the event payload into v.
func (e Emitted) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

type frame struct {
	event string
	data  string
}

// Server is a fake chat backend speaking the event stream protocol.
type Server struct {
	*httptest.Server

	EventsPath string
	EmitPath   string

	mu        sync.Mutex
	clients   map[chan frame]string
	emitted   []Emitted
	onEmit    func(Emitted)
	token     string
	connected chan string
}

// NewServer starts a fake backend that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		EventsPath: "/socket/events",
		EmitPath:   "/socket/emit",
		clients:    make(map[chan frame]string),
		connected:  make(chan string, 16),
	}

	r := chi.NewRouter()
	r.Get(s.EventsPath, s.handleEvents)
	r.Post(s.EmitPath, s.handleEmit)

	s.Server = httptest.NewServer(r)
	t.Cleanup(func() {
		s.DropClients()
		s.Server.Close()
	})
	return s
}

// RequireToken makes the backend reject requests without this bearer token.
func (s *Server) RequireToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// OnEmit registers fn to script replies to outbound events. fn runs on the
// request goroutine after the event is recorded.
func (s *Server) OnEmit(fn func(Emitted)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEmit = fn
}

// Send broadcasts an event to every connected client.
func (s *Server) Send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.clients {
		ch <- frame{event: event, data: string(data)}
	}
	return nil
}

// Emitted returns the outbound events received so far.
func (s *Server) Emitted() []Emitted {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Emitted, len(s.emitted))
	copy(out, s.emitted)
	return out
}

// EmittedEvents returns the outbound events with the given name.
func (s *Server) EmittedEvents(event string) []Emitted {
	var out []Emitted
	for _, e := range s.Emitted() {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// WaitConnected waits for a client to open the event stream and returns its
// client id.
func (s *Server) WaitConnected(timeout time.Duration) (string, bool) {
	select {
	case id := <-s.connected:
		return id, true
	case <-time.After(timeout):
		return "", false
	}
}

// Clients returns the number of open event streams.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// DropClients closes every open event stream.
func (s *Server) DropClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.clients {
		close(ch)
		delete(s.clients, ch)
	}
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) authorized(r *http.Request) bool {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	return token == "" || bearer(r) == token
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	clientID := r.URL.Query().Get("client_id")
	ch := make(chan frame, 256)

	s.mu.Lock()
	s.clients[ch] = clientID
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if _, ok := s.clients[ch]; ok {
			delete(s.clients, ch)
		}
		s.mu.Unlock()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	select {
	case s.connected <- clientID:
	default:
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case f, ok := <-ch:
			if !ok {
				return
			}
			msg := &sse.Message{Type: sse.Type(f.event)}
			msg.AppendData(f.data)
			if _, err := msg.WriteTo(w); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleEmit(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Event == "" {
		http.Error(w, "bad event", http.StatusBadRequest)
		return
	}

	e := Emitted{
		ClientID: r.Header.Get("X-Client-ID"),
		Token:    bearer(r),
		Event:    body.Event,
		Data:     body.Data,
	}

	s.mu.Lock()
	s.emitted = append(s.emitted, e)
	onEmit := s.onEmit
	s.mu.Unlock()

	w.WriteHeader(http.StatusAccepted)
	if onEmit != nil {
		onEmit(e)
	}
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}
