// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode chat.
//
// Command: chat
//
// Used when stdin or stdout is not a terminal, or with --plain. Answers are
// printed as they are revealed.
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /new                Start a new conversation
//   /regen, /r          Regenerate the last answer
//   /prev, /next        Show the previous or next alternative answer
//   /quit, /q           Exit chat
//   Ctrl+C              Stop the current answer
//   Ctrl+D              Exit chat
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterh/liner"

	"github.com/jeranaias/lexchat-tui/internal/config"
	"github.com/jeranaias/lexchat-tui/internal/conversation"
	"github.com/jeranaias/lexchat-tui/internal/model"
	"github.com/jeranaias/lexchat-tui/internal/store"
	"github.com/jeranaias/lexchat-tui/internal/stream"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for line-mode chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI with history kept in the config directory.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// ANSWER PRINTER
// =============================================================================

// answerPrinter writes the revealed text of one response as it grows.
type answerPrinter struct {
	out io.Writer

	mu      sync.Mutex
	key     stream.Key
	active  bool
	shown   string
	settled chan struct{}
}

// begin arms the printer for the next response and returns a channel that
// closes when it settles.
func (p *answerPrinter) begin() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = false
	p.shown = ""
	p.settled = make(chan struct{})
	return p.settled
}

// disarm stops printing without waiting for the response.
func (p *answerPrinter) disarm() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settled != nil && p.active {
		fmt.Fprintln(p.out)
	}
	p.settled = nil
}

func (p *answerPrinter) onUpdate(u stream.Update) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.settled == nil {
		return
	}
	if !p.active {
		p.key = u.Key
		p.active = true
	} else if u.Key != p.key {
		return
	}

	switch {
	case strings.HasPrefix(u.Displayed, p.shown):
		fmt.Fprint(p.out, u.Displayed[len(p.shown):])
	default:
		// The server restarted the answer.
		fmt.Fprint(p.out, "\n"+u.Displayed)
	}
	p.shown = u.Displayed

	if u.State == stream.Settled {
		fmt.Fprintln(p.out)
		close(p.settled)
		p.settled = nil
	}
}

// =============================================================================
// CHAT SESSION
// =============================================================================

// ChatSession runs line-mode chat on a conversation controller.
type ChatSession struct {
	ctrl         *conversation.Controller
	out          io.Writer
	printer      *answerPrinter
	showMetadata bool
	unsub        func()
}

// NewChatSession creates a line-mode session writing to out. Call Close
// when done.
func NewChatSession(ctrl *conversation.Controller, out io.Writer, showMetadata bool) *ChatSession {
	s := &ChatSession{
		ctrl:         ctrl,
		out:          out,
		printer:      &answerPrinter{out: out},
		showMetadata: showMetadata,
	}
	s.unsub = ctrl.Reconciler().Subscribe(s.printer.onUpdate)
	return s
}

// Close stops printing revealed text.
func (s *ChatSession) Close() {
	s.unsub()
}

// HandleChatCommand runs the read-eval-print loop until EOF or /quit.
func HandleChatCommand(ctx context.Context, s *ChatSession) error {
	useColorProfile()
	input := NewChatCLI()
	defer input.Close()

	fmt.Fprintln(s.out, titleStyle.Render("lexchat")+" "+infoStyle.Render("Ask a legal question. /help for commands."))

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := input.ReadInput(promptStyle.Render("you> "))
		if err != nil {
			// Ctrl+C at the prompt or Ctrl+D both leave.
			fmt.Fprintln(s.out)
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := s.slashCommand(ctx, line)
			if err != nil {
				fmt.Fprintf(s.out, "%s %v\n", errorStyle.Render("[Error]"), err)
			}
			if quit {
				return nil
			}
			continue
		}

		if err := s.Ask(ctx, line); err != nil {
			fmt.Fprintf(s.out, "%s %v\n", errorStyle.Render("[Error]"), err)
			if errors.Is(err, conversation.ErrUnauthenticated) {
				return err
			}
		}
	}
}

// Ask sends a question and prints the answer as it arrives.
func (s *ChatSession) Ask(ctx context.Context, text string) error {
	return s.await(ctx, func(ctx context.Context) error {
		return s.ctrl.Send(ctx, text)
	})
}

// Regenerate asks for another answer to the last question.
func (s *ChatSession) Regenerate(ctx context.Context) error {
	return s.await(ctx, s.ctrl.RegenerateLast)
}

// await runs start and prints the resulting answer. Ctrl+C stops the
// answer instead of exiting.
func (s *ChatSession) await(ctx context.Context, start func(context.Context) error) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	failed := make(chan string, 1)
	prevErr := s.ctrl.Store().Snapshot().LastError
	unsub := s.ctrl.Store().Subscribe(func(st store.State) {
		if st.LastError != "" && st.LastError != prevErr {
			select {
			case failed <- st.LastError:
			default:
			}
		}
	})
	defer unsub()

	settled := s.printer.begin()
	fmt.Fprint(s.out, labelStyle.Render(model.SenderBot.DisplayName()+": "))

	if err := start(ctx); err != nil {
		s.printer.disarm()
		fmt.Fprintln(s.out)
		return err
	}

	select {
	case <-settled:
		s.printMetadata()
		return nil
	case msg := <-failed:
		s.printer.disarm()
		return errors.New(msg)
	case <-ctx.Done():
		s.printer.disarm()
		fmt.Fprintln(s.out, warningStyle.Render("[Stopped]"))
		return s.ctrl.Abort(context.Background())
	}
}

func (s *ChatSession) printMetadata() {
	if !s.showMetadata {
		return
	}
	meta := s.ctrl.Store().Snapshot().Metadata
	if meta.IsEmpty() {
		return
	}
	if meta.AIConfidence > 0 {
		fmt.Fprintf(s.out, "%s %d%%\n", mutedStyle.Render("Confidence:"), meta.ConfidencePercent())
	}
	for _, c := range meta.Cases {
		fmt.Fprintf(s.out, "%s %s\n", mutedStyle.Render("Case:"), c.String())
	}
	for _, ref := range meta.References {
		fmt.Fprintf(s.out, "%s %s\n", mutedStyle.Render("Reference:"), ref.String())
	}
}

// showSelected prints the visible answer of the last bot message.
func (s *ChatSession) showSelected() {
	snap := s.ctrl.Store().Snapshot()
	idx := model.LastBotMessage(snap.Messages)
	if idx < 0 {
		return
	}
	msg := snap.Messages[idx]
	fmt.Fprintf(s.out, "%s %s\n%s\n",
		labelStyle.Render(model.SenderBot.DisplayName()),
		mutedStyle.Render(fmt.Sprintf("(%d/%d)", msg.SelectedIndex()+1, msg.ResponseCount())),
		msg.SelectedContent())
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// slashCommand runs one /command and reports whether chat should exit.
func (s *ChatSession) slashCommand(ctx context.Context, line string) (bool, error) {
	cmd := strings.ToLower(strings.Fields(line)[0])

	switch cmd {
	case "/quit", "/q", "/exit":
		return true, nil
	case "/help", "/h":
		fmt.Fprintln(s.out, infoStyle.Render("/new  /regen  /prev  /next  /quit"))
	case "/new":
		if err := s.ctrl.NewChat(ctx); err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, successStyle.Render("Started a new conversation."))
	case "/regen", "/r":
		return false, s.Regenerate(ctx)
	case "/prev", "/next":
		delta := 1
		if cmd == "/prev" {
			delta = -1
		}
		if err := s.ctrl.CycleResponse(delta); err != nil {
			return false, err
		}
		s.showSelected()
	default:
		return false, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
	return false, nil
}
