// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRevealInterval is the pace of the character reveal.
const DefaultRevealInterval = time.Millisecond

// =============================================================================
// TYPES
// =============================================================================

// Key identifies the buffer of one response of one message.
type Key struct {
	MessageID string
	Response  int
}

// Update is published whenever the displayed text or state of a key changes.
type Update struct {
	Key       Key
	Displayed string
	State     State
}

// revealTask is the cancellable reveal loop of one key.
type revealTask struct {
	cancel context.CancelFunc
	wake   chan struct{}
}

// =============================================================================
// RECONCILER
// =============================================================================

// Reconciler turns cumulative chunks into a constant-rate character reveal.
//
// Each streaming key owns one reveal goroutine. A task is always cancelled
// before another starts for the same key, and no character is revealed
// after its task was cancelled.
//
// Subscribers are called in publication order and must not call back into
// the Reconciler synchronously.
type Reconciler struct {
	mu       sync.Mutex
	interval time.Duration

	buffers   map[Key]*Buffer
	tasks     map[Key]*revealTask
	suspended map[Key]bool

	subs    map[int]func(Update)
	nextSub int
	closed  bool

	// pubMu is taken before mu is released so updates reach subscribers in
	// the order they were produced.
	pubMu sync.Mutex
}

// NewReconciler creates a reconciler revealing one character per interval.
// A non-positive interval selects DefaultRevealInterval.
func NewReconciler(interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = DefaultRevealInterval
	}
	return &Reconciler{
		interval:  interval,
		buffers:   make(map[Key]*Buffer),
		tasks:     make(map[Key]*revealTask),
		suspended: make(map[Key]bool),
		subs:      make(map[int]func(Update)),
	}
}

// Subscribe registers fn for updates and returns a function removing it.
func (r *Reconciler) Subscribe(fn func(Update)) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

// =============================================================================
// CHUNK HANDLING
// =============================================================================

// Apply feeds the cumulative content of a chunk. done snaps the displayed
// text to content and stops the reveal before Apply returns.
func (r *Reconciler) Apply(key Key, content string, done bool) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	b, ok := r.buffers[key]
	if ok && !b.Open() {
		// Settled responses never reopen.
		r.mu.Unlock()
		return
	}
	if !ok {
		b = NewBuffer()
		r.buffers[key] = b
	}

	if done {
		b.Snap(content)
		r.cancelLocked(key)
		r.publishLocked(key, b)
		return
	}

	before := b.State()
	reset := b.Apply(content)
	if reset {
		log.Printf("STREAM_RESET | id=%s response=%d", key.MessageID, key.Response)
	}

	if r.suspended[key] {
		r.mu.Unlock()
		return
	}

	r.startLocked(key)
	if t := r.tasks[key]; t != nil {
		select {
		case t.wake <- struct{}{}:
		default:
		}
	}

	if !ok || reset || b.State() != before {
		r.publishLocked(key, b)
		return
	}
	r.mu.Unlock()
}

// Settle snaps the key to content and stops its reveal. It creates a settled
// buffer when the key was idle.
func (r *Reconciler) Settle(key Key, content string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	b, ok := r.buffers[key]
	if !ok {
		b = NewBuffer()
		r.buffers[key] = b
	}
	b.Snap(content)
	r.cancelLocked(key)
	delete(r.suspended, key)
	r.publishLocked(key, b)
}

// SettleMessage settles every open response of a message to the content
// it has received so far. It returns the keys it settled.
func (r *Reconciler) SettleMessage(messageID string) []Key {
	r.mu.Lock()
	var keys []Key
	for key, b := range r.buffers {
		if key.MessageID == messageID && b.Open() {
			keys = append(keys, key)
		}
	}
	contents := make([]string, len(keys))
	for i, key := range keys {
		contents[i] = r.buffers[key].Cumulative()
	}
	r.mu.Unlock()

	for i, key := range keys {
		r.Settle(key, contents[i])
	}
	return keys
}

// =============================================================================
// RESPONSE NAVIGATION
// =============================================================================

// Seed installs a settled buffer showing content, replacing whatever the key
// held. It is used when the visible response switches to one that is not
// streaming.
func (r *Reconciler) Seed(key Key, content string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.cancelLocked(key)
	delete(r.suspended, key)
	b := NewSettledBuffer(content)
	r.buffers[key] = b
	r.publishLocked(key, b)
}

// Suspend stops the reveal of a key that is no longer visible. Chunks keep
// being recorded while suspended.
func (r *Reconciler) Suspend(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.buffers[key]; ok && b.Open() {
		r.suspended[key] = true
		r.cancelLocked(key)
	}
}

// Resume makes a suspended key visible again. Everything received while it
// was hidden is shown at once and the reveal continues from there.
func (r *Reconciler) Resume(key Key) {
	r.mu.Lock()
	b, ok := r.buffers[key]
	if r.closed || !ok || !r.suspended[key] {
		r.mu.Unlock()
		return
	}
	delete(r.suspended, key)
	b.Flush()
	if b.Open() {
		r.startLocked(key)
	}
	r.publishLocked(key, b)
}

// Drop cancels the reveal of a key and forgets its buffer.
func (r *Reconciler) Drop(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelLocked(key)
	delete(r.buffers, key)
	delete(r.suspended, key)
}

// Reset drops every buffer, as for a new chat.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.tasks {
		r.cancelLocked(key)
	}
	r.buffers = make(map[Key]*Buffer)
	r.suspended = make(map[Key]bool)
}

// Close cancels every reveal task. The reconciler ignores further input.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.tasks {
		r.cancelLocked(key)
	}
	r.subs = make(map[int]func(Update))
	r.closed = true
}

// =============================================================================
// QUERIES
// =============================================================================

// Displayed returns the text shown for key.
func (r *Reconciler) Displayed(key Key) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buffers[key]
	if !ok {
		return "", false
	}
	return b.Displayed(), true
}

// State returns the reveal state of key.
func (r *Reconciler) State(key Key) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buffers[key]
	if !ok {
		return Idle
	}
	return b.State()
}

// Active returns the number of running reveal tasks.
func (r *Reconciler) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// =============================================================================
// REVEAL TASK
// =============================================================================

// startLocked starts the reveal task of key unless one is running.
func (r *Reconciler) startLocked(key Key) {
	if _, ok := r.tasks[key]; ok {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &revealTask{cancel: cancel, wake: make(chan struct{}, 1)}
	r.tasks[key] = t
	go r.reveal(ctx, key, t.wake)
}

// cancelLocked cancels the reveal task of key, if any.
func (r *Reconciler) cancelLocked(key Key) {
	if t, ok := r.tasks[key]; ok {
		t.cancel()
		delete(r.tasks, key)
	}
}

// reveal pops one character per tick while characters are pending and idles
// on wake while the queue is empty.
func (r *Reconciler) reveal(ctx context.Context, key Key, wake <-chan struct{}) {
	limiter := rate.NewLimiter(rate.Every(r.interval), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		r.mu.Lock()
		if ctx.Err() != nil {
			r.mu.Unlock()
			return
		}
		b, ok := r.buffers[key]
		if !ok {
			r.mu.Unlock()
			return
		}
		if b.Step() {
			r.publishLocked(key, b)
			continue
		}
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-wake:
		}
	}
}

// publishLocked sends the current view of b to subscribers. It must be
// called with mu held and releases it.
func (r *Reconciler) publishLocked(key Key, b *Buffer) {
	upd := Update{Key: key, Displayed: b.Displayed(), State: b.State()}
	subs := make([]func(Update), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}

	r.pubMu.Lock()
	r.mu.Unlock()
	defer r.pubMu.Unlock()

	for _, fn := range subs {
		fn(upd)
	}
}
