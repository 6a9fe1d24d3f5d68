// lexchat - terminal client for the legal assistant chat.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/lexchat-tui/internal/auth"
	"github.com/jeranaias/lexchat-tui/internal/cli"
	"github.com/jeranaias/lexchat-tui/internal/config"
	"github.com/jeranaias/lexchat-tui/internal/conversation"
	"github.com/jeranaias/lexchat-tui/internal/render"
	"github.com/jeranaias/lexchat-tui/internal/storage"
	"github.com/jeranaias/lexchat-tui/internal/transport"
	"github.com/jeranaias/lexchat-tui/internal/ui/chat"
	"github.com/jeranaias/lexchat-tui/internal/ui/styles"
	"github.com/jeranaias/lexchat-tui/internal/util"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	err := run(ctx, cmd, args)
	stop()

	if err != nil {
		cli.DisplayError(cmd.String(), err, args.JSON)
		os.Exit(cli.GetExitCode(err))
	}
}

func run(ctx context.Context, cmd cli.Command, args cli.Args) error {
	switch cmd {
	case cli.CmdVersion:
		return cli.HandleVersion(os.Stdout, args)
	case cli.CmdHelp:
		return cli.HandleHelp(os.Stdout, args)
	case cli.CmdConfig:
		return cli.HandleConfig(os.Stdout, args)
	}

	cfg, err := cli.LoadConfig(args)
	if err != nil {
		return err
	}
	util.SetDebug(cfg.Logging.Debug)

	switch cmd {
	case cli.CmdSessions:
		return cli.HandleSessions(ctx, os.Stdout, args, cfg)
	case cli.CmdChat:
		return runChat(ctx, args, cfg)
	default:
		if args.Plain || !cli.CanRunTUI() {
			return runChat(ctx, args, cfg)
		}
		return runTUI(ctx, args, cfg)
	}
}

// =============================================================================
// SHARED WIRING
// =============================================================================

// app holds the pieces both chat modes share.
type app struct {
	cfg      *config.Config
	routes   *storage.RouteStore
	identity auth.Identity
	client   *transport.Client
	ctrl     *conversation.Controller
	logFile  io.Closer
}

// newApp wires the transport, route store and controller. onAuthRequired
// receives the login URL when a signed-out user tries to send.
func newApp(cfg *config.Config, onAuthRequired func(string)) (*app, error) {
	a := &app{cfg: cfg}

	logFile, err := openLog(cfg.Logging.File)
	if err != nil {
		return nil, err
	}
	a.logFile = logFile

	identity, err := auth.Load(cfg.Auth.Token, cfg.Auth.TokenFile)
	if err != nil {
		log.Printf("AUTH_LOAD_FAILED | err=%v", err)
	}
	a.identity = identity
	log.Printf("STARTUP | version=%s server=%s signed_in=%t", Version, cfg.Server.URL, identity.UserID != "")

	opts := conversation.Options{
		Identity:       func() auth.Identity { return a.identity },
		LoginURL:       cfg.Auth.LoginURL,
		OnAuthRequired: onAuthRequired,
		RevealInterval: cfg.RevealInterval(),
		StallTimeout:   cfg.StallTimeout(),
		AckTimeout:     cfg.AckTimeout(),
	}

	// The chat works without remembered routes.
	if routes, err := storage.Open(cfg.Storage.Path); err != nil {
		log.Printf("ROUTE_STORE_UNAVAILABLE | path=%s err=%v", cfg.Storage.Path, err)
	} else {
		a.routes = routes
		opts.Routes = routes
	}

	a.client = transport.New(transport.Config{
		URL:            cfg.Server.URL,
		EventsPath:     cfg.Server.EventsPath,
		EmitPath:       cfg.Server.EmitPath,
		Token:          identity.Token,
		ConnectTimeout: cfg.ConnectTimeout(),
		ReconnectDelay: cfg.ReconnectDelay(),
		EmitRate:       cfg.Server.EmitRatePerSec,
		EmitBurst:      cfg.Server.EmitBurst,
	})
	a.ctrl = conversation.New(a.client, opts)
	return a, nil
}

// openLog sends the standard logger to path so log lines never draw over
// the interface.
func openLog(path string) (io.Closer, error) {
	if path == "" {
		log.SetOutput(io.Discard)
		return io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := tea.LogToFile(path, "lexchat")
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// resume picks the conversation to continue: --new, --session, or the
// stored route.
func (a *app) resume(ctx context.Context, args cli.Args) {
	var err error
	switch {
	case args.New:
		err = a.ctrl.NewChat(ctx)
	case args.Session != "":
		err = a.ctrl.Resume(ctx, args.Session)
	case a.routes != nil:
		var id string
		if id, err = a.routes.CurrentRoute(ctx); err == nil && id != "" {
			err = a.ctrl.Resume(ctx, id)
		}
	}
	if err != nil {
		log.Printf("ROUTE_ERROR | action=resume err=%v", err)
	}
}

// runTransport keeps the event stream connected until ctx is done. A
// rejected token ends the stream but not the session, so the user can still
// read the transcript.
func (a *app) runTransport(ctx context.Context) error {
	err := a.client.Run(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return nil
	case errors.Is(err, transport.ErrUnauthorized):
		a.ctrl.Store().SetError("The chat server rejected your sign-in. Sign in again at " + a.cfg.Auth.LoginURL)
		return nil
	default:
		return err
	}
}

func (a *app) close() {
	a.ctrl.Close()
	if a.routes != nil {
		if err := a.routes.Close(); err != nil {
			log.Printf("ROUTE_STORE_CLOSE_FAILED | err=%v", err)
		}
	}
	a.logFile.Close()
}

// =============================================================================
// FULL-SCREEN CHAT
// =============================================================================

func runTUI(ctx context.Context, args cli.Args, cfg *config.Config) error {
	a, err := newApp(cfg, func(loginURL string) {
		log.Printf("LOGIN_REQUIRED | url=%s", loginURL)
	})
	if err != nil {
		return err
	}
	defer a.close()
	a.resume(ctx, args)

	theme := styles.NamedTheme(cli.RenderStyle(cfg.UI.Theme))
	renderer, err := render.New(theme.Name, cli.GetTerminalWidth()-4)
	if err != nil {
		return err
	}

	m := chat.New(chat.Options{
		Controller:      a.ctrl,
		Theme:           theme,
		Renderer:        renderer,
		Identity:        func() auth.Identity { return a.identity },
		LoginURL:        cfg.Auth.LoginURL,
		ScrollThreshold: cfg.Scroll.ThresholdLines,
		ShowMetadata:    cfg.UI.ShowMetadata,
		Compact:         cfg.UI.Compact,
	})
	defer m.Close()

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	m.Attach(p.Send)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.runTransport(gctx) })

	if path, ok := watchedConfig(args); ok {
		g.Go(func() error {
			return config.Watch(gctx, path, config.DefaultWatchDebounce, func(c *config.Config) {
				p.Send(chat.ConfigChangedMsg{
					Theme:        c.UI.Theme,
					ShowMetadata: c.UI.ShowMetadata,
					Compact:      c.UI.Compact,
				})
			})
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		p.Quit()
		return nil
	})

	g.Go(func() error {
		defer cancel()
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("error running lexchat: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// watchedConfig returns the config file to hot-reload, if one exists.
func watchedConfig(args cli.Args) (string, bool) {
	path := args.ConfigPath
	if path == "" {
		var err error
		if path, err = config.ConfigPathTOML(); err != nil {
			return "", false
		}
	}
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// =============================================================================
// LINE-MODE CHAT
// =============================================================================

func runChat(ctx context.Context, args cli.Args, cfg *config.Config) error {
	a, err := newApp(cfg, func(loginURL string) {
		fmt.Fprintf(os.Stdout, "Sign in to continue: %s\n", loginURL)
	})
	if err != nil {
		return err
	}
	defer a.close()
	a.resume(ctx, args)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.runTransport(gctx) })

	g.Go(func() error {
		defer cancel()
		s := cli.NewChatSession(a.ctrl, os.Stdout, cfg.UI.ShowMetadata)
		defer s.Close()
		return cli.HandleChatCommand(gctx, s)
	})

	return g.Wait()
}
