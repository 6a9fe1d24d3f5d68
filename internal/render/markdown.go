// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns answer text into styled terminal output.
package render

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/lexchat-tui/internal/model"
)

// maxCacheEntries bounds the rendered-text cache. Settled answers are
// rendered once per width; streaming text changes every tick and is never
// cached.
const maxCacheEntries = 256

// =============================================================================
// MARKDOWN RENDERER
// =============================================================================

// Renderer renders markdown with glamour, falling back to the raw text when
// rendering fails.
type Renderer struct {
	mu    sync.Mutex
	style string
	width int
	tr    *glamour.TermRenderer
	cache map[string]string
}

// New creates a renderer. style is "auto", "dark", "light" or "notty".
func New(style string, width int) (*Renderer, error) {
	r := &Renderer{style: style}
	if err := r.SetWidth(width); err != nil {
		return nil, err
	}
	return r, nil
}

// SetWidth rebuilds the renderer for a new wrap width.
func (r *Renderer) SetWidth(width int) error {
	if width < 20 {
		width = 20
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tr != nil && width == r.width {
		return nil
	}

	styleOpt := glamour.WithStandardStyle(r.style)
	if r.style == "" || r.style == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}
	tr, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return err
	}

	r.tr = tr
	r.width = width
	r.cache = make(map[string]string)
	return nil
}

// Width returns the current wrap width.
func (r *Renderer) Width() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width
}

// Markdown renders text. Results for settled text are cached.
func (r *Renderer) Markdown(text string, settled bool) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if settled {
		if out, ok := r.cache[text]; ok {
			return out
		}
	}

	out, err := r.tr.Render(text)
	if err != nil {
		return text
	}
	out = strings.Trim(out, "\n")

	if settled {
		if len(r.cache) >= maxCacheEntries {
			r.cache = make(map[string]string)
		}
		r.cache[text] = out
	}
	return out
}

// Message renders the visible response of a bot message. displayed is the
// revealed prefix and is used while that response is streaming; otherwise
// the settled content is rendered.
func (r *Renderer) Message(msg model.ChatMessage, displayed string) string {
	if msg.ShowsStreamingResponse() {
		return r.Markdown(displayed, false)
	}
	return r.Markdown(msg.SelectedContent(), true)
}

// cached reports how many settled renders are cached.
func (r *Renderer) cached() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}
