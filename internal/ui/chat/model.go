// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/lexchat-tui/internal/auth"
	"github.com/jeranaias/lexchat-tui/internal/conversation"
	"github.com/jeranaias/lexchat-tui/internal/render"
	"github.com/jeranaias/lexchat-tui/internal/scroll"
	"github.com/jeranaias/lexchat-tui/internal/store"
	"github.com/jeranaias/lexchat-tui/internal/stream"
	"github.com/jeranaias/lexchat-tui/internal/ui/components"
	"github.com/jeranaias/lexchat-tui/internal/ui/styles"
)

// actionTimeout bounds one user action, including its network emit.
const actionTimeout = 20 * time.Second

// maxInputLength caps a single question.
const maxInputLength = 4000

// timeNow is replaced in tests.
var timeNow = time.Now

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures the chat screen.
type Options struct {
	Controller *conversation.Controller
	Theme      *styles.Theme
	Renderer   *render.Renderer

	// Identity returns the signed-in user for the header.
	Identity func() auth.Identity

	// LoginURL is shown when a signed-out user tries to send.
	LoginURL string

	ScrollThreshold int
	ShowMetadata    bool
	Compact         bool
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctrl     *conversation.Controller
	theme    *styles.Theme
	identity func() auth.Identity
	loginURL string
	compact  bool

	// Dimensions
	width  int
	height int

	// UI Components
	header   *components.Header
	status   *components.StatusBar
	list     *components.MessageList
	viewport *components.ChatViewport
	arbiter  *scroll.Arbiter
	input    textinput.Model
	spinner  spinner.Model
	keyMap   KeyMap

	// Conversation view
	state    store.State
	content  string
	awaiting bool

	// Feedback
	actionErr     string
	loginRequired bool

	// Refresh plumbing
	notify *notifier
	frames *frameLimiter
	unsubs []func()
}

// New creates the chat screen model.
func New(opts Options) *Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}
	identity := opts.Identity
	if identity == nil {
		identity = func() auth.Identity { return auth.Identity{} }
	}

	input := textinput.New()
	input.Prompt = "> "
	input.PromptStyle = theme.InputPrompt
	input.PlaceholderStyle = theme.InputPlaceholder
	input.CharLimit = maxInputLength
	input.Focus()

	sp := spinner.New()
	sp.Spinner = styles.DotsSpinner.Bubble()
	sp.Style = theme.Spinner

	vp := components.NewChatViewport(80, 20)
	list := components.NewMessageList(theme, opts.Renderer)
	list.ShowMetadata = opts.ShowMetadata
	list.Compact = opts.Compact

	m := &Model{
		ctrl:     opts.Controller,
		theme:    theme,
		identity: identity,
		loginURL: opts.LoginURL,
		compact:  opts.Compact,
		width:    80,
		height:   24,
		header:   components.NewHeader(theme),
		status:   components.NewStatusBar(theme),
		list:     list,
		viewport: vp,
		arbiter:  scroll.NewArbiter(vp, opts.ScrollThreshold),
		input:    input,
		spinner:  sp,
		keyMap:   DefaultKeyMap(),
		notify:   &notifier{},
		frames:   newFrameLimiter(defaultMaxFPS),
	}

	m.unsubs = []func(){
		m.ctrl.Store().Subscribe(func(store.State) { m.notify.notify() }),
		m.ctrl.Reconciler().Subscribe(func(_ stream.Update) { m.notify.notify() }),
	}
	m.layout()
	return m
}

// Attach connects the model to the running program. Store and reveal
// updates reach the update loop through send, normally Program.Send.
func (m *Model) Attach(send func(tea.Msg)) {
	m.notify.attach(send)
	m.notify.notify()
}

// Close unsubscribes from the conversation.
func (m *Model) Close() {
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, func() tea.Msg { return refreshMsg{} })
}

// =============================================================================
// LAYOUT
// =============================================================================

// chrome returns the lines used outside the transcript: header, notice
// line, input (with its top border) and status bar.
func (m *Model) chrome() int {
	header := 2
	if m.compact || m.width < 60 {
		header = 1
	}
	return header + 1 + 2 + 1
}

// layout sizes every component for the current window.
func (m *Model) layout() {
	m.theme.SetSize(m.width, m.height)
	m.header.SetWidth(m.width)
	m.status.SetWidth(m.width)
	m.list.SetWidth(m.width)
	m.input.Width = m.width - 6
	m.viewport.SetSize(m.width, m.height-m.chrome())
	m.content = ""
}

// =============================================================================
// ACTIONS
// =============================================================================

// run executes a controller action off the update loop.
func (m *Model) run(kind actionKind, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg{Kind: kind, Err: fn(ctx)}
	}
}
