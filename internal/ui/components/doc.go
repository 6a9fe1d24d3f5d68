// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the lexchat TUI building blocks.

# Components

Header (header.go) - Brand, signed-in user and session title.
MessageList (message.go) - Renders the transcript, including the response
counter, the incomplete-answer notice and the metadata footer.
ChatViewport (viewport.go) - Scrollable transcript area. It satisfies
scroll.Viewport so the scroll arbiter decides when it follows new content.
StatusBar (statusbar.go) - Connection state, session and shortcut hints.

# Usage

	vp := components.NewChatViewport(width, height)
	arbiter := scroll.NewArbiter(vp, cfg.Scroll.ThresholdLines)

	list := components.NewMessageList(theme, renderer)
	vp.SetContent(list.View(components.Transcript{Messages: st.Messages}))
	arbiter.OnMessagesChanged(st.IsStreaming, st.StreamingID)
*/
package components
