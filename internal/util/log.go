// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"log"
	"sync/atomic"
)

var debugEnabled atomic.Bool

// SetDebug turns Debugf output on or off (logging.debug).
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// Debugf logs like log.Printf when debug logging is on.
func Debugf(format string, args ...any) {
	if debugEnabled.Load() {
		log.Printf(format, args...)
	}
}
