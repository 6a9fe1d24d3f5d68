// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package scroll decides whether the chat viewport follows new content or
// stays where the user scrolled to.
package scroll

import (
	"log"
	"sync"
)

// DefaultThreshold is how far from the bottom, in lines, a user scroll must
// end before it counts as leaving live view.
const DefaultThreshold = 2

// Viewport is the scrollable surface the arbiter drives.
type Viewport interface {
	ScrollToBottom()
	// DistanceFromBottom returns how many lines lie below the visible area.
	DistanceFromBottom() int
}

// State is a snapshot of the arbiter.
type State struct {
	AutoScroll      bool
	LastStreamingID string
	Streaming       bool
}

// =============================================================================
// ARBITER
// =============================================================================

// Arbiter keeps the viewport pinned to the newest content unless the user
// scrolled away during a stream.
//
// AutoScroll is forced on whenever a stream ends or a new streaming message
// appears, and turned off only by a user scroll away from the bottom while
// streaming.
type Arbiter struct {
	mu        sync.Mutex
	viewport  Viewport
	threshold int
	state     State
}

// NewArbiter creates an arbiter for vp. A negative threshold selects
// DefaultThreshold.
func NewArbiter(vp Viewport, threshold int) *Arbiter {
	if threshold < 0 {
		threshold = DefaultThreshold
	}
	return &Arbiter{
		viewport:  vp,
		threshold: threshold,
		state:     State{AutoScroll: true},
	}
}

// OnMessagesChanged is called after every message list mutation with the
// current streaming state. It reports whether it scrolled to the bottom.
func (a *Arbiter) OnMessagesChanged(streaming bool, streamingID string) bool {
	a.mu.Lock()

	if streaming && streamingID != "" && streamingID != a.state.LastStreamingID {
		if !a.state.AutoScroll {
			log.Printf("SCROLL_REPIN | reason=new_stream id=%s", streamingID)
		}
		a.state.AutoScroll = true
		a.state.LastStreamingID = streamingID
	}

	if a.state.Streaming && !streaming {
		a.state.AutoScroll = true
	}
	a.state.Streaming = streaming

	scroll := a.state.AutoScroll || !streaming
	a.mu.Unlock()

	if scroll {
		a.viewport.ScrollToBottom()
	}
	return scroll
}

// OnUserScroll is called after the user moved the viewport. While streaming,
// ending further than the threshold from the bottom leaves live view.
func (a *Arbiter) OnUserScroll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.state.Streaming || !a.state.AutoScroll {
		return
	}
	if a.viewport.DistanceFromBottom() > a.threshold {
		a.state.AutoScroll = false
	}
}

// JumpToBottom scrolls to the newest content and returns to live view.
func (a *Arbiter) JumpToBottom() {
	a.mu.Lock()
	a.state.AutoScroll = true
	a.mu.Unlock()

	a.viewport.ScrollToBottom()
}

// ShowJumpControl reports whether the "jump to bottom" control is visible.
func (a *Arbiter) ShowJumpControl() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.state.AutoScroll
}

// State returns a snapshot of the arbiter state.
func (a *Arbiter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Reset returns to the initial pinned state, as for a new chat.
func (a *Arbiter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = State{AutoScroll: true}
}
