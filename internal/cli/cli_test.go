// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/lexchat-tui/internal/auth"
	"github.com/jeranaias/lexchat-tui/internal/config"
	"github.com/jeranaias/lexchat-tui/internal/conversation"
	"github.com/jeranaias/lexchat-tui/internal/model"
	"github.com/jeranaias/lexchat-tui/internal/session"
	"github.com/jeranaias/lexchat-tui/internal/storage"
	"github.com/jeranaias/lexchat-tui/internal/stream"
	"github.com/jeranaias/lexchat-tui/internal/transport"
)

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		bools    []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"list"},
			wantSub: "list",
		},
		{
			name:    "subcommand with flag",
			args:    []string{"list", "--limit", "50"},
			wantSub: "list",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("limit") != "50" {
					t.Errorf("Flag(limit) = %q, want %q", p.Flag("limit"), "50")
				}
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"list", "--limit=5"},
			wantSub: "list",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("limit") != "5" {
					t.Errorf("Flag(limit) = %q, want %q", p.Flag("limit"), "5")
				}
			},
		},
		{
			name:    "declared boolean does not swallow positional",
			args:    []string{"--json", "list"},
			bools:   []string{"json"},
			wantSub: "list",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("json") {
					t.Error("BoolFlag(json) should be true")
				}
			},
		},
		{
			name:    "explicit boolean value",
			args:    []string{"init", "--force=false"},
			bools:   []string{"force"},
			wantSub: "init",
			validate: func(t *testing.T, p *ArgParser) {
				if p.BoolFlag("force") {
					t.Error("BoolFlag(force) should be false")
				}
			},
		},
		{
			name:    "multi-word value",
			args:    []string{"set", "auth.login_url", "https://lex.example/login"},
			wantSub: "set",
			validate: func(t *testing.T, p *ArgParser) {
				joined := strings.Join(p.PositionalFrom(1), " ")
				if joined != "auth.login_url https://lex.example/login" {
					t.Errorf("PositionalFrom(1) joined = %q", joined)
				}
			},
		},
		{
			name:    "double dash ends flags",
			args:    []string{"forget", "--", "--odd-id"},
			wantSub: "forget",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Positional(1) != "--odd-id" {
					t.Errorf("Positional(1) = %q, want %q", p.Positional(1), "--odd-id")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewArgParser(tt.args, tt.bools...)
			if parser.Subcommand() != tt.wantSub {
				t.Errorf("Subcommand() = %q, want %q", parser.Subcommand(), tt.wantSub)
			}
			if tt.validate != nil {
				tt.validate(t, parser)
			}
		})
	}
}

func TestArgParser_IntFlag(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    int
		wantErr bool
	}{
		{"flag present", []string{"list", "--limit", "10"}, 10, false},
		{"flag missing uses default", []string{"list"}, 20, false},
		{"not a number", []string{"list", "--limit", "abc"}, 0, true},
		{"not positive", []string{"list", "--limit=0"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewArgParser(tt.args).IntFlag("limit", 20)
			if tt.wantErr {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, "limit", verr.Field)
				assert.Equal(t, ExitUsageError, GetExitCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArgParser_EmptyArgs(t *testing.T) {
	p := NewArgParser(nil)
	assert.Empty(t, p.Subcommand())
	assert.Empty(t, p.Positional(0))
	assert.Empty(t, p.PositionalFrom(1))
	assert.Empty(t, p.Flag("missing"))
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"true", "YES", "y", "1", "on"} {
		got, err := ParseBoolString(s)
		require.NoError(t, err, s)
		assert.True(t, got, s)
	}
	for _, s := range []string{"false", "No", "n", "0", "off"} {
		got, err := ParseBoolString(s)
		require.NoError(t, err, s)
		assert.False(t, got, s)
	}
	_, err := ParseBoolString("maybe")
	assert.Error(t, err)
}

func TestParseIntWithValidation(t *testing.T) {
	v, err := ParseIntWithValidation("7", "limit")
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	for _, bad := range []string{"", "x", "0", "-2"} {
		_, err := ParseIntWithValidation(bad, "limit")
		assert.Error(t, err, bad)
	}
}

// =============================================================================
// COMMAND PARSING TESTS (cli.go)
// =============================================================================

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		wantCmd Command
		check   func(*testing.T, Args)
	}{
		{"no args opens the tui", nil, CmdTUI, nil},
		{"chat", []string{"chat"}, CmdChat, nil},
		{
			name:    "global flags before command",
			argv:    []string{"--config", "/tmp/lex.toml", "--new", "--server=https://lex.example", "sessions", "list"},
			wantCmd: CmdSessions,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "/tmp/lex.toml", a.ConfigPath)
				assert.True(t, a.New)
				assert.Equal(t, "https://lex.example", a.Server)
				assert.Equal(t, "list", a.Subcommand)
				assert.Equal(t, []string{"list"}, a.Raw)
			},
		},
		{
			name:    "session flag",
			argv:    []string{"--session", "abc123"},
			wantCmd: CmdTUI,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "abc123", a.Session)
			},
		},
		{
			name:    "flags after command",
			argv:    []string{"version", "--json"},
			wantCmd: CmdVersion,
			check: func(t *testing.T, a Args) {
				assert.True(t, a.JSON)
			},
		},
		{"session alias", []string{"session"}, CmdSessions, nil},
		{"help flag", []string{"--help"}, CmdHelp, nil},
		{
			name:    "unknown command shows help",
			argv:    []string{"frobnicate"},
			wantCmd: CmdHelp,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "frobnicate", a.Unknown)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := ParseArgs(tt.argv)
			assert.Equal(t, tt.wantCmd, cmd, "got %s", cmd)
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestHandleVersion_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, HandleVersion(&buf, Args{JSON: true}))

	var resp struct {
		Success bool        `json:"success"`
		Command string      `json:"command"`
		Data    VersionData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "version", resp.Command)
	assert.Equal(t, Version, resp.Data.Version)
	assert.NotEmpty(t, resp.Data.GoVersion)
}

func TestHandleHelp(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, HandleHelp(&buf, Args{}))
	assert.Contains(t, buf.String(), "lexchat [flags] [command]")

	buf.Reset()
	err := HandleHelp(&buf, Args{Unknown: "frobnicate"})
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

// =============================================================================
// ERROR TESTS (errors.go)
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{errors.New("boom"), ExitGeneralError},
		{ErrMissingArgument("session id", "lexchat sessions forget ID"), ExitUsageError},
		{&NotFoundError{Resource: "session", ID: "x"}, ExitNotFoundError},
		{fmt.Errorf("send: %w", conversation.ErrUnauthenticated), ExitAuthError},
		{transport.ErrUnauthorized, ExitAuthError},
		{session.ErrAckTimeout, ExitTimeoutError},
		{transport.ErrDisconnected, ExitNetworkError},
		{fmt.Errorf("invalid config: %w", config.ValidateErrors{{Field: "ui.theme", Message: "bad"}}), ExitConfigError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GetExitCode(tt.err), "%v", tt.err)
	}
}

// =============================================================================
// CONFIG COMMAND TESTS (config.go)
// =============================================================================

func TestHandleConfig_InitSetPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	args := Args{ConfigPath: path}
	var buf bytes.Buffer

	args.Raw = []string{"path"}
	require.NoError(t, HandleConfig(&buf, args))
	assert.Equal(t, path+"\n", buf.String())

	args.Raw = []string{"init"}
	require.NoError(t, HandleConfig(&buf, args))
	_, err := os.Stat(path)
	require.NoError(t, err)

	// A second init refuses to overwrite.
	assert.Error(t, HandleConfig(&buf, args))

	args.Raw = []string{"set", "scroll.threshold_lines", "6"}
	require.NoError(t, HandleConfig(&buf, args))
	cfg, err := config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Scroll.ThresholdLines)

	args.Raw = []string{"set", "ui.theme", "neon"}
	assert.Error(t, HandleConfig(&buf, args))

	args.Raw = []string{"set", "no.such.key", "1"}
	assert.Equal(t, ExitUsageError, GetExitCode(HandleConfig(&buf, args)))

	args.Raw = []string{"bogus"}
	assert.Equal(t, ExitUsageError, GetExitCode(HandleConfig(&buf, args)))
}

func TestHandleConfig_ShowRedactsToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := config.Default()
	cfg.Auth.Token = "secret-token"
	require.NoError(t, config.SaveTOML(cfg, path))

	var buf bytes.Buffer
	require.NoError(t, HandleConfig(&buf, Args{ConfigPath: path, JSON: true, Raw: []string{"show"}}))
	assert.NotContains(t, buf.String(), "secret-token")
	assert.Contains(t, buf.String(), "[REDACTED]")
}

func TestHandleConfig_GetAndKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := config.Default()
	cfg.Scroll.ThresholdLines = 5
	cfg.Auth.Token = "secret-token"
	require.NoError(t, config.SaveTOML(cfg, path))

	var buf bytes.Buffer
	require.NoError(t, HandleConfig(&buf, Args{ConfigPath: path, Raw: []string{"get", "scroll.threshold_lines"}}))
	assert.Equal(t, "5\n", buf.String())

	buf.Reset()
	require.NoError(t, HandleConfig(&buf, Args{ConfigPath: path, Raw: []string{"get", "auth.token"}}))
	assert.Equal(t, "[REDACTED]\n", buf.String())

	err := HandleConfig(&buf, Args{ConfigPath: path, Raw: []string{"get", "scroll.nope"}})
	assert.Equal(t, ExitUsageError, GetExitCode(err))
	assert.Equal(t, ExitUsageError, GetExitCode(HandleConfig(&buf, Args{ConfigPath: path, Raw: []string{"get"}})))

	buf.Reset()
	require.NoError(t, HandleConfig(&buf, Args{ConfigPath: path, Raw: []string{"keys"}}))
	keys := strings.Fields(buf.String())
	assert.Equal(t, config.Keys(), keys)
	assert.Contains(t, keys, "scroll.threshold_lines")
}

func TestLoadConfig_ServerOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, config.SaveTOML(config.Default(), path))

	cfg, err := LoadConfig(Args{ConfigPath: path, Server: "https://lex.example", Verbose: true})
	require.NoError(t, err)
	assert.Equal(t, "https://lex.example", cfg.Server.URL)
	assert.True(t, cfg.Logging.Debug)

	_, err = LoadConfig(Args{ConfigPath: path, Server: "not a url"})
	assert.Error(t, err)
}

// =============================================================================
// SESSIONS COMMAND TESTS (sessions.go)
// =============================================================================

func TestHandleSessions_ListAndForget(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "routes.db")

	routes, err := storage.Open(cfg.Storage.Path)
	require.NoError(t, err)
	require.NoError(t, routes.ReplaceRoute(ctx, "sess-old"))
	require.NoError(t, routes.SetTitle(ctx, "sess-old", "Security deposit"))
	require.NoError(t, routes.ReplaceRoute(ctx, "sess-new"))
	require.NoError(t, routes.Close())

	var buf bytes.Buffer
	require.NoError(t, HandleSessions(ctx, &buf, Args{JSON: true}, cfg))

	var resp struct {
		Data []SessionData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	byID := map[string]SessionData{}
	for _, d := range resp.Data {
		byID[d.SessionID] = d
	}
	assert.True(t, byID["sess-new"].Current)
	assert.False(t, byID["sess-old"].Current)
	assert.Equal(t, "Security deposit", byID["sess-old"].Title)

	buf.Reset()
	require.NoError(t, HandleSessions(ctx, &buf, Args{Raw: []string{"forget", "sess-new"}}, cfg))
	assert.Contains(t, buf.String(), "sess-new")

	routes, err = storage.Open(cfg.Storage.Path)
	require.NoError(t, err)
	defer routes.Close()
	current, err := routes.CurrentRoute(ctx)
	require.NoError(t, err)
	assert.Empty(t, current)

	err = HandleSessions(ctx, &buf, Args{Raw: []string{"forget"}}, cfg)
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	err = HandleSessions(ctx, &buf, Args{Raw: []string{"forget", "sess-missing"}}, cfg)
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))
}

// =============================================================================
// LINE-MODE CHAT TESTS (chat.go)
// =============================================================================

// syncBuffer is written by the reveal goroutine and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAnswerPrinter_PrintsGrowthOnce(t *testing.T) {
	var out bytes.Buffer
	p := &answerPrinter{out: &out}
	key := stream.Key{MessageID: "b1"}

	// Nothing prints until armed.
	p.onUpdate(stream.Update{Key: key, Displayed: "stale", State: stream.Settled})
	assert.Empty(t, out.String())

	settled := p.begin()
	p.onUpdate(stream.Update{Key: key, Displayed: "The", State: stream.Draining})
	p.onUpdate(stream.Update{Key: stream.Key{MessageID: "other"}, Displayed: "noise", State: stream.Draining})
	p.onUpdate(stream.Update{Key: key, Displayed: "The deposit", State: stream.Draining})
	p.onUpdate(stream.Update{Key: key, Displayed: "The deposit is due.", State: stream.Settled})

	select {
	case <-settled:
	default:
		t.Fatal("settled channel not closed")
	}
	assert.Equal(t, "The deposit is due.\n", out.String())
}

func TestAnswerPrinter_RestartedAnswer(t *testing.T) {
	var out bytes.Buffer
	p := &answerPrinter{out: &out}
	key := stream.Key{MessageID: "b1"}

	p.begin()
	p.onUpdate(stream.Update{Key: key, Displayed: "Draft", State: stream.Draining})
	p.onUpdate(stream.Update{Key: key, Displayed: "Final", State: stream.Settled})
	assert.Equal(t, "Draft\nFinal\n", out.String())
}

type chatTransport struct {
	mu       sync.Mutex
	handlers map[string]transport.Handler
	emitted  []string
}

func (f *chatTransport) Emit(_ context.Context, event string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitted = append(f.emitted, event)
	return nil
}

func (f *chatTransport) Connected() bool { return true }

func (f *chatTransport) On(event string, h transport.Handler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[event] = h
	return func() {}
}

func (f *chatTransport) OnStateChange(func(bool)) {}

func (f *chatTransport) sent(event string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.emitted {
		if e == event {
			return true
		}
	}
	return false
}

func (f *chatTransport) deliver(t *testing.T, event string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	f.mu.Lock()
	h := f.handlers[event]
	f.mu.Unlock()
	require.NotNil(t, h)
	h(data)
}

func TestChatSession_AskPrintsAnswer(t *testing.T) {
	tr := &chatTransport{handlers: make(map[string]transport.Handler)}
	ctrl := conversation.New(tr, conversation.Options{
		Identity:       func() auth.Identity { return auth.Identity{UserID: "user-1"} },
		RevealInterval: time.Millisecond,
	})
	defer ctrl.Close()
	require.NoError(t, ctrl.Resume(context.Background(), "sess-1"))

	var out syncBuffer
	s := NewChatSession(ctrl, &out, false)
	defer s.Close()

	errc := make(chan error, 1)
	go func() { errc <- s.Ask(context.Background(), "Can my landlord keep the deposit?") }()

	require.Eventually(t, func() bool { return tr.sent(model.EventChatMessage) }, 2*time.Second, 5*time.Millisecond)
	tr.deliver(t, model.EventMessageStream, model.MessageChunk{ID: "b1", Content: "Usually not", Done: false})
	tr.deliver(t, model.EventMessageStream, model.MessageChunk{ID: "b1", Content: "Usually not without itemized damages.", Done: true})

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Ask did not return")
	}
	assert.Contains(t, out.String(), "Usually not without itemized damages.\n")
	assert.Equal(t, 1, strings.Count(out.String(), "itemized"))
}

// =============================================================================
// TERMINAL TESTS (terminal.go)
// =============================================================================

func resetColorDetection(t *testing.T) {
	t.Helper()
	colorsEnabledOnce = sync.Once{}
	t.Cleanup(func() { colorsEnabledOnce = sync.Once{} })
}

func TestRenderStyle_NoColor(t *testing.T) {
	resetColorDetection(t)
	t.Setenv("NO_COLOR", "1")
	t.Setenv("FORCE_COLOR", "1")

	assert.False(t, ColorsEnabled())
	assert.Equal(t, "notty", RenderStyle("dark"))
	assert.Equal(t, "notty", RenderStyle(""))
}

func TestRenderStyle_ForceColor(t *testing.T) {
	resetColorDetection(t)
	t.Setenv("NO_COLOR", "")
	t.Setenv("FORCE_COLOR", "1")

	require.True(t, ColorsEnabled())
	if GetColorProfile() == termenv.Ascii {
		t.Skip("environment reports no color support")
	}
	assert.Equal(t, "light", RenderStyle("light"))
	assert.Equal(t, "auto", RenderStyle(""))
}
