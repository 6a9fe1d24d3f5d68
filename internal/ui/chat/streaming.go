// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// defaultMaxFPS caps transcript redraws. The reconciler reveals a
// character per millisecond; rendering each one would be wasted work.
const defaultMaxFPS = 30

// =============================================================================
// REFRESH NOTIFIER
// =============================================================================

// notifier turns store and reconciler callbacks, which run on their own
// goroutines, into refresh messages for the Bubble Tea loop. At most one
// refresh is pending at any time.
type notifier struct {
	pending atomic.Bool
	send    atomic.Pointer[func(tea.Msg)]
}

// attach sets the function used to deliver messages, usually Program.Send.
func (n *notifier) attach(send func(tea.Msg)) {
	n.send.Store(&send)
}

// notify schedules a refresh unless one is already pending. Delivery runs
// on its own goroutine: Program.Send blocks until the update loop reads the
// message, and notify may be called from inside Update.
func (n *notifier) notify() {
	send := n.send.Load()
	if send == nil {
		return
	}
	if n.pending.CompareAndSwap(false, true) {
		go (*send)(refreshMsg{})
	}
}

// consumed marks the pending refresh as handled.
func (n *notifier) consumed() {
	n.pending.Store(false)
}

// =============================================================================
// FRAME LIMITER
// =============================================================================

// frameLimiter spaces redraws to at most maxFPS per second.
type frameLimiter struct {
	minInterval time.Duration
	lastFrame   time.Time
	now         func() time.Time
}

func newFrameLimiter(maxFPS int) *frameLimiter {
	if maxFPS <= 0 || maxFPS > 60 {
		maxFPS = defaultMaxFPS
	}
	return &frameLimiter{
		minInterval: time.Second / time.Duration(maxFPS),
		now:         time.Now,
	}
}

// wait returns how long to hold off before the next frame. Zero means draw
// now, and records the frame.
func (f *frameLimiter) wait() time.Duration {
	now := f.now()
	if remaining := f.minInterval - now.Sub(f.lastFrame); remaining > 0 {
		return remaining
	}
	f.lastFrame = now
	return 0
}

// frameTickCmd delivers a deferred refresh once the frame interval passed.
func frameTickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}
