// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"strings"
)

// =============================================================================
// STATE
// =============================================================================

// State is the reveal state of one response.
type State int

const (
	// Idle means no buffer exists for the key.
	Idle State = iota
	// Accumulating means the stream is open and every received character is
	// already shown. The reveal task idles until the next chunk.
	Accumulating
	// Draining means the stream is open and characters are pending.
	Draining
	// Settled means the response is final and fully shown.
	Settled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Accumulating:
		return "accumulating"
	case Draining:
		return "draining"
	case Settled:
		return "settled"
	default:
		return "unknown"
	}
}

// =============================================================================
// BUFFER
// =============================================================================

// Buffer splits the cumulative content of one response into the part shown
// and the part still to be revealed.
//
// While open, displayed + pending == cumulative.
//
// Buffer is not safe for concurrent use; the Reconciler guards it.
type Buffer struct {
	displayed  strings.Builder
	pending    []rune
	cumulative string
	open       bool
}

// NewBuffer creates an open, empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{open: true}
}

// NewSettledBuffer creates a buffer that already shows content in full.
func NewSettledBuffer(content string) *Buffer {
	b := &Buffer{}
	b.displayed.WriteString(content)
	b.cumulative = content
	return b
}

// Apply records new cumulative content. When content extends what was
// recorded before, only the new suffix is queued. Otherwise the buffer is
// cleared and the whole content is queued from empty; Apply then returns
// true.
//
// Apply on a settled buffer is ignored.
func (b *Buffer) Apply(content string) (reset bool) {
	if !b.open {
		return false
	}

	if strings.HasPrefix(content, b.cumulative) {
		b.pending = append(b.pending, []rune(content[len(b.cumulative):])...)
		b.cumulative = content
		return false
	}

	b.displayed.Reset()
	b.pending = []rune(content)
	b.cumulative = content
	return true
}

// Step reveals one pending character. It returns false when nothing was
// pending.
func (b *Buffer) Step() bool {
	if len(b.pending) == 0 {
		return false
	}
	b.displayed.WriteRune(b.pending[0])
	b.pending = b.pending[1:]
	return true
}

// Snap shows content in full and closes the buffer.
func (b *Buffer) Snap(content string) {
	b.displayed.Reset()
	b.displayed.WriteString(content)
	b.pending = nil
	b.cumulative = content
	b.open = false
}

// Flush reveals everything received so far without closing the buffer.
func (b *Buffer) Flush() {
	if len(b.pending) == 0 {
		return
	}
	b.displayed.WriteString(string(b.pending))
	b.pending = nil
}

// Displayed returns the text currently shown.
func (b *Buffer) Displayed() string {
	return b.displayed.String()
}

// Cumulative returns the last recorded content.
func (b *Buffer) Cumulative() string {
	return b.cumulative
}

// Pending returns the number of characters not yet revealed.
func (b *Buffer) Pending() int {
	return len(b.pending)
}

// Open reports whether more chunks are expected.
func (b *Buffer) Open() bool {
	return b.open
}

// State returns the reveal state.
func (b *Buffer) State() State {
	switch {
	case !b.open:
		return Settled
	case len(b.pending) > 0:
		return Draining
	default:
		return Accumulating
	}
}
