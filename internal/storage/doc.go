// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists the conversation route for reload recovery.
//
// The chat server owns the messages. The client only remembers which
// session it was routed to, so a restart can resume it, and a short list
// of recent sessions for the sessions command.
//
// # Key Types
//
//   - RouteStore: sqlite-backed route and session list
//   - SessionRecord: one row of the recent sessions listing
//
// # Usage
//
//	routes, err := storage.Open(path)
//	defer routes.Close()
//
//	err = routes.ReplaceRoute(ctx, sessionID)
//	sessionID, err := routes.CurrentRoute(ctx)
package storage
