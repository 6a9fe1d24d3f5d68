// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions for lexchat.
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe string truncation with ellipsis
//   - TruncateWidth, PadRight: display-width helpers for
//     terminal layout, backed by go-runewidth
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//
// Logging:
//   - SetDebug, Debugf: log lines gated by logging.debug
//
// # Usage
//
//	title := util.TruncateWidth(sessionTitle, 40)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
