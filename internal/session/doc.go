// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session bootstraps and tracks the chat session of a conversation.
//
// A new conversation has no session id. The first message triggers a
// startChat request; the message itself waits in a pending continuation
// until the server answers with model:session-started, then goes out as a
// chatMessage tagged with the new id. Later messages are sent directly.
//
// # Key Types
//
//   - Manager: session handle plus the pending first-message continuation
//   - Emitter: the outbound half of the event channel
//   - RouteRecorder: receives the session id for reload recovery
//
// # Usage
//
//	mgr := session.NewManager(client, routes, session.DefaultConfig())
//	mgr.SetFailureCallback(func(err error) { ... })
//
//	// on user submit
//	err := mgr.Send(ctx, userID, history, text)
//
//	// on model:session-started
//	mgr.HandleSessionStarted(ctx, ack.SessionID)
//
// Starting a new chat clears the handle:
//
//	mgr.Reset()
package session
