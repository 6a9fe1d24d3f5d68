// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"log"
	"sync"
	"time"
)

// =============================================================================
// STALL WATCHDOG
// =============================================================================

// Watchdog reports streams that went silent without being declared done.
// Each Touch re-arms the timer of a message; when no chunk arrives within
// the timeout the stall callback fires once.
type Watchdog struct {
	mu      sync.Mutex
	timeout time.Duration
	timers  map[string]*time.Timer
	gen     map[string]uint64
	onStall func(messageID string)
}

// NewWatchdog creates a watchdog. A non-positive timeout disables it.
func NewWatchdog(timeout time.Duration, onStall func(messageID string)) *Watchdog {
	return &Watchdog{
		timeout: timeout,
		timers:  make(map[string]*time.Timer),
		gen:     make(map[string]uint64),
		onStall: onStall,
	}
}

// Touch records activity on a streaming message and re-arms its timer.
func (w *Watchdog) Touch(messageID string) {
	if w.timeout <= 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[messageID]; ok {
		t.Stop()
	}
	w.gen[messageID]++
	gen := w.gen[messageID]
	w.timers[messageID] = time.AfterFunc(w.timeout, func() {
		w.fire(messageID, gen)
	})
}

// Stop disarms the timer of a message.
func (w *Watchdog) Stop(messageID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked(messageID)
}

// StopAll disarms every timer.
func (w *Watchdog) StopAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id := range w.timers {
		w.stopLocked(id)
	}
}

// Armed reports whether a timer is pending for the message.
func (w *Watchdog) Armed(messageID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.timers[messageID]
	return ok
}

func (w *Watchdog) stopLocked(messageID string) {
	if t, ok := w.timers[messageID]; ok {
		t.Stop()
		delete(w.timers, messageID)
	}
	// A timer that already fired must not report after Stop.
	w.gen[messageID]++
}

func (w *Watchdog) fire(messageID string, gen uint64) {
	w.mu.Lock()
	if w.gen[messageID] != gen {
		w.mu.Unlock()
		return
	}
	delete(w.timers, messageID)
	delete(w.gen, messageID)
	onStall := w.onStall
	w.mu.Unlock()

	log.Printf("STREAM_STALL | id=%s timeout=%s", messageID, w.timeout)
	if onStall != nil {
		onStall(messageID)
	}
}
