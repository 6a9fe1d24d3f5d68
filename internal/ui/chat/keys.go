// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat screen. Printable keys
// go to the input, so navigation uses non-printing keys only.
type KeyMap struct {
	Up           key.Binding
	Down         key.Binding
	PageUp       key.Binding
	PageDown     key.Binding
	Home         key.Binding
	JumpToBottom key.Binding
	Submit       key.Binding
	Abort        key.Binding
	Regenerate   key.Binding
	PrevAnswer   key.Binding
	NextAnswer   key.Binding
	NewChat      key.Binding
	Quit         key.Binding
}

// DefaultKeyMap returns the default key bindings for the chat screen.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("up", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("down", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "page down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home"),
			key.WithHelp("Home", "go to top"),
		),
		JumpToBottom: key.NewBinding(
			key.WithKeys("end", "ctrl+g"),
			key.WithHelp("End/C-g", "jump to newest"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		Abort: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "stop answer"),
		),
		Regenerate: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "regenerate answer"),
		),
		PrevAnswer: key.NewBinding(
			key.WithKeys("alt+left", "alt+<", "alt+,"),
			key.WithHelp("alt+<", "previous answer"),
		),
		NextAnswer: key.NewBinding(
			key.WithKeys("alt+right", "alt+>", "alt+."),
			key.WithHelp("alt+>", "next answer"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new conversation"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c", "quit"),
		),
	}
}

// ShortHelp returns the most commonly used shortcuts.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Abort, k.Regenerate, k.Quit}
}

// FullHelp returns all bindings grouped for the help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Home, k.JumpToBottom},
		{k.Submit, k.Abort, k.Regenerate, k.PrevAnswer, k.NextAnswer},
		{k.NewChat, k.Quit},
	}
}
