// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:generate mockgen -destination=mock_contract_test.go -package=${GOPACKAGE} -source=contract.go
package session

import (
	"context"
)

// Emitter sends named events to the backend.
type Emitter interface {
	Emit(ctx context.Context, event string, payload any) error
	Connected() bool
}

// RouteRecorder mirrors the session id into the navigable route so a
// restart can resume the conversation.
type RouteRecorder interface {
	ReplaceRoute(ctx context.Context, sessionID string) error
}
