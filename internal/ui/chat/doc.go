// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat implements the lexchat chat screen as a Bubble Tea model.

The model renders a conversation.Controller. Store and reveal callbacks run
on their own goroutines; they are coalesced into refresh messages and
delivered through Program.Send, capped at 30 frames per second:

	m := chat.New(chat.Options{Controller: ctrl, Theme: theme, Renderer: r})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	m.Attach(p.Send)
	_, err := p.Run()

Following new content is left to scroll.Arbiter: every change of the
rendered transcript is reported to it, and every user scroll (keys or
mouse wheel) goes through OnUserScroll.

# Keys

	Enter       send the question
	Esc         stop the answer
	Ctrl+R      regenerate the last answer
	Alt+< / >   switch between answers
	Ctrl+N      new conversation
	Up/Down     scroll a line
	PgUp/PgDn   scroll a page
	End, Ctrl+G jump to the newest content
	Ctrl+C      quit

The input is disabled while the chat server is unreachable.
*/
package chat
