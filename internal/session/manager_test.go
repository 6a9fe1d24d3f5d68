// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/lexchat-tui/internal/model"
)

var testHistory = []model.HistoryEntry{
	{Role: "user", Content: "Can I break my lease early?"},
	{Role: "assistant", Content: "It depends on the termination clause."},
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.AckTimeout != 30*time.Second {
		t.Errorf("Default AckTimeout = %v, want 30s", cfg.AckTimeout)
	}
}

func TestManager_FirstMessageWaitsForAck(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	emitter := NewMockEmitter(ctrl)
	routes := NewMockRouteRecorder(ctrl)
	ctx := context.Background()

	emitter.EXPECT().Connected().Return(true).AnyTimes()
	gomock.InOrder(
		emitter.EXPECT().Emit(gomock.Any(), model.EventStartChat, model.StartChat{UserID: "user-1"}).Return(nil),
		routes.EXPECT().ReplaceRoute(gomock.Any(), "sess-1").Return(nil),
		emitter.EXPECT().Emit(gomock.Any(), model.EventChatMessage, model.ChatMessagePayload{
			SessionID:  "sess-1",
			History:    testHistory,
			NewMessage: "What notice do I owe?",
		}).Return(nil),
	)

	m := NewManager(emitter, routes, DefaultConfig())

	var started string
	m.SetSessionCallback(func(id string) { started = id })

	require.NoError(t, m.Send(ctx, "user-1", testHistory, "What notice do I owe?"))
	assert.True(t, m.Pending())
	assert.False(t, m.HasSession())

	resolved, err := m.HandleSessionStarted(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, resolved)
	assert.Equal(t, "sess-1", m.SessionID())
	assert.Equal(t, "sess-1", started)
	assert.False(t, m.Pending())
}

func TestManager_AtMostOnceBootstrap(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	emitter := NewMockEmitter(ctrl)
	routes := NewMockRouteRecorder(ctrl)
	ctx := context.Background()

	emitter.EXPECT().Connected().Return(true).AnyTimes()
	emitter.EXPECT().Emit(gomock.Any(), model.EventStartChat, gomock.Any()).Return(nil).Times(5)
	routes.EXPECT().ReplaceRoute(gomock.Any(), "sess-1").Return(nil).Times(1)

	// Exactly one chat message, carrying the latest submission.
	emitter.EXPECT().Emit(gomock.Any(), model.EventChatMessage, model.ChatMessagePayload{
		SessionID:  "sess-1",
		NewMessage: "attempt 5",
	}).Return(nil).Times(1)

	m := NewManager(emitter, routes, DefaultConfig())
	for _, text := range []string{"attempt 1", "attempt 2", "attempt 3", "attempt 4", "attempt 5"} {
		require.NoError(t, m.SendFirstMessage(ctx, "user-1", nil, text))
	}

	first, err := m.HandleSessionStarted(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := m.HandleSessionStarted(ctx, "sess-2")
	require.NoError(t, err)
	assert.False(t, second, "duplicate ack must not resolve again")
	assert.Equal(t, "sess-1", m.SessionID())
}

func TestManager_SubsequentMessageSkipsBootstrap(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	emitter := NewMockEmitter(ctrl)
	emitter.EXPECT().Connected().Return(true).AnyTimes()
	emitter.EXPECT().Emit(gomock.Any(), model.EventChatMessage, model.ChatMessagePayload{
		SessionID:  "sess-9",
		History:    testHistory,
		NewMessage: "And the deposit?",
	}).Return(nil)

	m := NewManager(emitter, nil, DefaultConfig())
	m.Resume("sess-9")

	require.NoError(t, m.Send(context.Background(), "user-1", testHistory, "And the deposit?"))
	assert.False(t, m.Pending())
}

func TestManager_DisconnectedDoesNotQueue(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	emitter := NewMockEmitter(ctrl)
	emitter.EXPECT().Connected().Return(false).AnyTimes()

	m := NewManager(emitter, nil, DefaultConfig())

	err := m.Send(context.Background(), "user-1", nil, "hello")
	assert.ErrorIs(t, err, ErrDisconnected)
	assert.False(t, m.Pending())

	m.Resume("sess-1")
	err = m.Send(context.Background(), "user-1", nil, "hello")
	assert.ErrorIs(t, err, ErrDisconnected)
}

func TestManager_SubsequentWithoutSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := NewManager(NewMockEmitter(ctrl), nil, DefaultConfig())
	err := m.SendSubsequentMessage(context.Background(), "", nil, "hello")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManager_AckTimeoutAbandonsPending(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	emitter := NewMockEmitter(ctrl)
	emitter.EXPECT().Connected().Return(true).AnyTimes()
	emitter.EXPECT().Emit(gomock.Any(), model.EventStartChat, gomock.Any()).Return(nil)

	m := NewManager(emitter, nil, Config{AckTimeout: 20 * time.Millisecond})

	failures := make(chan error, 1)
	m.SetFailureCallback(func(err error) { failures <- err })

	require.NoError(t, m.SendFirstMessage(context.Background(), "user-1", nil, "hello"))

	select {
	case err := <-failures:
		assert.ErrorIs(t, err, ErrAckTimeout)
	case <-time.After(time.Second):
		t.Fatal("ack timeout did not fire")
	}
	assert.False(t, m.Pending())

	// A late ack finds nothing to resolve and sends nothing.
	resolved, err := m.HandleSessionStarted(context.Background(), "sess-late")
	require.NoError(t, err)
	assert.False(t, resolved)
	assert.False(t, m.HasSession())
}

func TestManager_StartChatEmitFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	emitter := NewMockEmitter(ctrl)
	emitter.EXPECT().Connected().Return(true).AnyTimes()
	emitter.EXPECT().Emit(gomock.Any(), model.EventStartChat, gomock.Any()).Return(errors.New("503"))

	m := NewManager(emitter, nil, DefaultConfig())

	err := m.SendFirstMessage(context.Background(), "user-1", nil, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start chat")
	assert.False(t, m.Pending())
}

func TestManager_RouteErrorDoesNotBlockMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	emitter := NewMockEmitter(ctrl)
	routes := NewMockRouteRecorder(ctrl)

	emitter.EXPECT().Connected().Return(true).AnyTimes()
	emitter.EXPECT().Emit(gomock.Any(), model.EventStartChat, gomock.Any()).Return(nil)
	routes.EXPECT().ReplaceRoute(gomock.Any(), "sess-1").Return(errors.New("disk full"))
	emitter.EXPECT().Emit(gomock.Any(), model.EventChatMessage, gomock.Any()).Return(nil)

	m := NewManager(emitter, routes, DefaultConfig())
	require.NoError(t, m.SendFirstMessage(context.Background(), "user-1", nil, "hello"))

	resolved, err := m.HandleSessionStarted(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.True(t, resolved)
}

func TestManager_ResetAndCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	emitter := NewMockEmitter(ctrl)
	emitter.EXPECT().Connected().Return(true).AnyTimes()
	emitter.EXPECT().Emit(gomock.Any(), model.EventStartChat, gomock.Any()).Return(nil).Times(2)

	m := NewManager(emitter, nil, DefaultConfig())

	require.NoError(t, m.SendFirstMessage(context.Background(), "user-1", nil, "one"))
	assert.True(t, m.CancelPending())
	assert.False(t, m.CancelPending())

	require.NoError(t, m.SendFirstMessage(context.Background(), "user-1", nil, "two"))
	m.Reset()

	status := m.GetStatus()
	assert.Empty(t, status.SessionID)
	assert.False(t, status.Pending)
	assert.Zero(t, status.Duration)
}
