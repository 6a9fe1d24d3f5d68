// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scroll

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeViewport records scroll calls.
type fakeViewport struct {
	scrolls  int
	distance int
}

func (f *fakeViewport) ScrollToBottom() {
	f.scrolls++
	f.distance = 0
}

func (f *fakeViewport) DistanceFromBottom() int {
	return f.distance
}

func TestArbiter_PinnedScrollsOnEveryMutation(t *testing.T) {
	vp := &fakeViewport{}
	a := NewArbiter(vp, 2)

	a.OnMessagesChanged(false, "")
	a.OnMessagesChanged(true, "b1")
	a.OnMessagesChanged(true, "b1")

	assert.Equal(t, 3, vp.scrolls)
	assert.False(t, a.ShowJumpControl())
}

func TestArbiter_UserScrollDuringStreamUnpins(t *testing.T) {
	vp := &fakeViewport{}
	a := NewArbiter(vp, 2)

	a.OnMessagesChanged(true, "b1")
	vp.distance = 10
	a.OnUserScroll()

	assert.True(t, a.ShowJumpControl())

	before := vp.scrolls
	for i := 0; i < 5; i++ {
		assert.False(t, a.OnMessagesChanged(true, "b1"))
	}
	assert.Equal(t, before, vp.scrolls, "unpinned viewport must not be scrolled")
}

func TestArbiter_SmallScrollStaysPinned(t *testing.T) {
	vp := &fakeViewport{}
	a := NewArbiter(vp, 2)

	a.OnMessagesChanged(true, "b1")
	vp.distance = 2
	a.OnUserScroll()

	assert.True(t, a.State().AutoScroll)
}

func TestArbiter_UserScrollWithoutStreamKeepsAutoScroll(t *testing.T) {
	vp := &fakeViewport{}
	a := NewArbiter(vp, 2)

	vp.distance = 50
	a.OnUserScroll()

	assert.True(t, a.State().AutoScroll)
}

func TestArbiter_StreamEndRepins(t *testing.T) {
	vp := &fakeViewport{}
	a := NewArbiter(vp, 2)

	a.OnMessagesChanged(true, "b1")
	vp.distance = 10
	a.OnUserScroll()
	is := assert.New(t)
	is.False(a.State().AutoScroll)

	is.True(a.OnMessagesChanged(false, ""))
	is.True(a.State().AutoScroll)
	is.False(a.ShowJumpControl())
}

func TestArbiter_NewStreamRepins(t *testing.T) {
	vp := &fakeViewport{}
	a := NewArbiter(vp, 2)

	a.OnMessagesChanged(true, "b1")
	vp.distance = 10
	a.OnUserScroll()
	assert.False(t, a.State().AutoScroll)

	assert.True(t, a.OnMessagesChanged(true, "b2"))

	st := a.State()
	assert.True(t, st.AutoScroll)
	assert.Equal(t, "b2", st.LastStreamingID)
}

func TestArbiter_JumpToBottom(t *testing.T) {
	vp := &fakeViewport{}
	a := NewArbiter(vp, 2)

	a.OnMessagesChanged(true, "b1")
	vp.distance = 10
	a.OnUserScroll()
	before := vp.scrolls

	a.JumpToBottom()

	assert.Equal(t, before+1, vp.scrolls)
	assert.True(t, a.State().AutoScroll)
	assert.True(t, a.OnMessagesChanged(true, "b1"))
}

func TestArbiter_NegativeThresholdUsesDefault(t *testing.T) {
	a := NewArbiter(&fakeViewport{}, -1)
	assert.Equal(t, DefaultThreshold, a.threshold)

	a.Reset()
	assert.Equal(t, State{AutoScroll: true}, a.State())
}
