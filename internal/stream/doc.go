// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream reconciles cumulative message chunks into a smooth,
// constant-rate character reveal.
//
// The server sends the whole text of a response on every chunk. The
// Reconciler diffs each chunk against the last one it recorded for the same
// (message, response) key, queues only the new suffix and reveals it one
// character per tick. A chunk that does not extend the previous content
// restarts the reveal from empty. A done chunk shows the full content at
// once.
//
// # Usage
//
//	r := stream.NewReconciler(time.Millisecond)
//	defer r.Close()
//	r.Subscribe(func(u stream.Update) { program.Send(u) })
//
//	key := stream.Key{MessageID: "m1"}
//	r.Apply(key, "He", false)
//	r.Apply(key, "Hello", true) // displayed == "Hello"
//
// The Watchdog complements the reveal by reporting streams that stopped
// sending chunks without ever being declared done.
package stream
