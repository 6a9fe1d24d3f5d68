// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/lexchat-tui/internal/model"
	"github.com/jeranaias/lexchat-tui/internal/render"
	"github.com/jeranaias/lexchat-tui/internal/scroll"
	"github.com/jeranaias/lexchat-tui/internal/ui/styles"
)

var _ scroll.Viewport = (*ChatViewport)(nil)

func numberedLines(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i)
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// VIEWPORT TESTS
// =============================================================================

func TestChatViewport_DistanceFromBottom(t *testing.T) {
	vp := NewChatViewport(40, 10)
	vp.SetContent(numberedLines(30))

	assert.Equal(t, 20, vp.DistanceFromBottom(), "starts at the top")

	vp.ScrollToBottom()
	assert.Equal(t, 0, vp.DistanceFromBottom())
	assert.True(t, vp.AtBottom())

	vp.ScrollUp(3)
	assert.Equal(t, 3, vp.DistanceFromBottom())

	vp.ScrollDown(1)
	assert.Equal(t, 2, vp.DistanceFromBottom())
}

func TestChatViewport_ShortContent(t *testing.T) {
	vp := NewChatViewport(40, 10)
	vp.SetContent(numberedLines(3))
	assert.Equal(t, 0, vp.DistanceFromBottom())
}

func TestChatViewport_ContentGrowthKeepsOffset(t *testing.T) {
	vp := NewChatViewport(40, 10)
	vp.SetContent(numberedLines(30))
	vp.ScrollToBottom()
	vp.ScrollUp(5)
	offset := vp.YOffset()

	vp.SetContent(numberedLines(40))
	assert.Equal(t, offset, vp.YOffset())
	assert.Equal(t, 15, vp.DistanceFromBottom())
}

func TestChatViewport_WithArbiter(t *testing.T) {
	vp := NewChatViewport(40, 10)
	arb := scroll.NewArbiter(vp, 2)

	vp.SetContent(numberedLines(30))
	arb.OnMessagesChanged(true, "bot-1")
	assert.Equal(t, 0, vp.DistanceFromBottom())

	vp.PageUp()
	arb.OnUserScroll()
	assert.True(t, arb.ShowJumpControl())

	vp.SetContent(numberedLines(35))
	arb.OnMessagesChanged(true, "bot-1")
	assert.Greater(t, vp.DistanceFromBottom(), 2, "stays where the user scrolled")

	arb.OnMessagesChanged(false, "")
	assert.Equal(t, 0, vp.DistanceFromBottom(), "stream end re-pins")
}

// =============================================================================
// MESSAGE LIST TESTS
// =============================================================================

func newTestList(t *testing.T) *MessageList {
	t.Helper()
	r, err := render.New("notty", 60)
	require.NoError(t, err)
	ml := NewMessageList(styles.NamedTheme("notty"), r)
	ml.SetWidth(80)
	return ml
}

func TestMessageList_Empty(t *testing.T) {
	ml := newTestList(t)
	assert.Contains(t, ml.View(Transcript{}), "get started")
}

func TestMessageList_StreamingUsesDisplayed(t *testing.T) {
	ml := newTestList(t)
	user := model.NewUserMessage("Can my landlord keep the deposit?")
	bot := model.NewBotMessage("b1", "Generally no, unless", true)

	out := ml.View(Transcript{
		Messages:  []model.ChatMessage{user, bot},
		Displayed: func(model.ChatMessage) string { return "Generally" },
	})
	assert.Contains(t, out, "landlord")
	assert.Contains(t, out, "Generally")
	assert.NotContains(t, out, "unless")
}

func TestMessageList_SpinnerBeforeFirstReveal(t *testing.T) {
	ml := newTestList(t)
	bot := model.NewBotMessage("b1", "", true)

	out := ml.View(Transcript{
		Messages:  []model.ChatMessage{bot},
		Displayed: func(model.ChatMessage) string { return "" },
		Spinner:   "..",
	})
	assert.Contains(t, out, "..")
}

func TestMessageList_ResponseCounterAndIncomplete(t *testing.T) {
	ml := newTestList(t)
	bot := model.NewBotMessage("b1", "second", false)
	bot.Responses = []model.Response{
		{Type: model.ResponseTypeText, Content: "first"},
		{Type: model.ResponseTypeText, Content: "second"},
	}
	bot.Selected = 1
	bot.Incomplete = true

	out := ml.View(Transcript{Messages: []model.ChatMessage{bot}})
	assert.Contains(t, out, "2/2")
	assert.Contains(t, out, IncompleteNotice)
}

func TestMessageList_MetadataFooter(t *testing.T) {
	ml := newTestList(t)
	bot := model.NewBotMessage("b1", "Answer", false)
	meta := model.Metadata{
		AIConfidence: 0.87,
		References:   []model.Citation{{Title: "Civil Code", Citation: "1950.5"}},
		QuickAction:  "Send a demand letter",
	}

	out := ml.View(Transcript{Messages: []model.ChatMessage{bot}, Metadata: meta})
	assert.Contains(t, out, "Confidence: 87%")
	assert.Contains(t, out, "Civil Code (1950.5)")
	assert.Contains(t, out, "demand letter")

	ml.ShowMetadata = false
	assert.NotContains(t, ml.View(Transcript{Messages: []model.ChatMessage{bot}, Metadata: meta}), "Confidence")

	ml.ShowMetadata = true
	bot.IsStreaming = true
	assert.NotContains(t, ml.View(Transcript{Messages: []model.ChatMessage{bot}, Metadata: meta}), "Confidence",
		"footer waits for the stream to end")
}

// =============================================================================
// HEADER AND STATUS BAR TESTS
// =============================================================================

func TestHeader_View(t *testing.T) {
	h := NewHeader(styles.NamedTheme("notty"))
	h.SetWidth(80)
	assert.Contains(t, h.View(), "New conversation")

	h.SessionTitle = "Security deposit question"
	h.User = "Dana"
	out := h.View()
	assert.Contains(t, out, "lexchat")
	assert.Contains(t, out, "Dana")
	assert.Contains(t, out, "Security deposit question")
	assert.Contains(t, h.ViewCompact(), "Security deposit")
}

func TestStatusBar_View(t *testing.T) {
	s := NewStatusBar(styles.NamedTheme("notty"))
	s.SetWidth(120)

	assert.Contains(t, s.View(), "offline")

	s.Connected = true
	s.Status = StatusStreaming
	s.SessionID = "sess-1234567890"
	out := s.View()
	assert.Contains(t, out, "online")
	assert.Contains(t, out, "Answering")
	assert.Contains(t, out, "sess-...")
	assert.Contains(t, out, "regenerate")

	s.SetWidth(50)
	assert.NotContains(t, s.View(), "regenerate")
}
