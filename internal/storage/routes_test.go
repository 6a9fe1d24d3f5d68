// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *RouteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "routes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	// Deterministic, increasing clock.
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return s
}

func TestRouteStore_ReplaceAndCurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	current, err := s.CurrentRoute(ctx)
	require.NoError(t, err)
	assert.Empty(t, current)

	require.NoError(t, s.ReplaceRoute(ctx, "sess-1"))
	require.NoError(t, s.ReplaceRoute(ctx, "sess-2"))

	current, err = s.CurrentRoute(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sess-2", current)
}

func TestRouteStore_ClearRoute(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceRoute(ctx, "sess-1"))
	require.NoError(t, s.ClearRoute(ctx))

	current, err := s.CurrentRoute(ctx)
	require.NoError(t, err)
	assert.Empty(t, current)

	// Replacing with an empty id clears as well.
	require.NoError(t, s.ReplaceRoute(ctx, "sess-1"))
	require.NoError(t, s.ReplaceRoute(ctx, ""))
	current, err = s.CurrentRoute(ctx)
	require.NoError(t, err)
	assert.Empty(t, current)
}

func TestRouteStore_RecentSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceRoute(ctx, "sess-1"))
	require.NoError(t, s.ReplaceRoute(ctx, "sess-2"))
	require.NoError(t, s.ReplaceRoute(ctx, "sess-1"))
	require.NoError(t, s.SetTitle(ctx, "sess-1", "Security deposit dispute"))
	require.NoError(t, s.SetTitle(ctx, "sess-1", "ignored second title"))

	records, err := s.RecentSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "sess-1", records[0].SessionID)
	assert.Equal(t, "Security deposit dispute", records[0].Title)
	assert.True(t, records[0].LastSeenTime().After(records[1].LastSeenTime()))
	assert.Less(t, records[0].FirstSeen, records[0].LastSeen)

	limited, err := s.RecentSessions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRouteStore_ForgetSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceRoute(ctx, "sess-1"))
	require.NoError(t, s.ForgetSession(ctx, "sess-1"))

	current, err := s.CurrentRoute(ctx)
	require.NoError(t, err)
	assert.Empty(t, current)

	records, err := s.RecentSessions(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, records)

	assert.ErrorIs(t, s.ForgetSession(ctx, "sess-1"), ErrSessionNotFound)
}

func TestRouteStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "routes.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.ReplaceRoute(ctx, "sess-9"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	current, err := s.CurrentRoute(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sess-9", current)
}
