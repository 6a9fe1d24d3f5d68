// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions.go - Remembered conversation routes.
//
// Command: sessions [subcommand]
// Aliases: session
//
// Subcommands:
//   list (default)      List recent conversations (--limit N, default 20)
//   forget <id>         Forget a conversation; clears the route if current
//
// The conversations themselves live on the chat server. Only the route to
// them is stored locally.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/lexchat-tui/internal/config"
	"github.com/jeranaias/lexchat-tui/internal/storage"
	"github.com/jeranaias/lexchat-tui/internal/util"
)

const (
	sessionsUsage       = "lexchat sessions [list [--limit N]|forget ID]"
	defaultSessionLimit = 20
)

// HandleSessions handles "lexchat sessions".
func HandleSessions(ctx context.Context, w io.Writer, args Args, cfg *config.Config) error {
	parser := NewArgParser(args.Raw, "json")

	routes, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer routes.Close()

	switch sub := parser.Subcommand(); sub {
	case "", "list", "ls":
		limit, err := parser.IntFlag("limit", defaultSessionLimit)
		if err != nil {
			return err
		}
		return listSessions(ctx, w, routes, limit, args.JSON || parser.BoolFlag("json"))

	case "forget", "rm":
		id := parser.Positional(1)
		if id == "" {
			return ErrMissingArgument("session id", "lexchat sessions forget 3f2a...")
		}
		return forgetSession(ctx, w, routes, id)

	default:
		return ErrUnknownSubcommand("sessions", sub, sessionsUsage)
	}
}

func listSessions(ctx context.Context, w io.Writer, routes *storage.RouteStore, limit int, jsonMode bool) error {
	records, err := routes.RecentSessions(ctx, limit)
	if err != nil {
		return err
	}
	current, err := routes.CurrentRoute(ctx)
	if err != nil {
		return err
	}

	if jsonMode {
		data := make([]SessionData, 0, len(records))
		for _, r := range records {
			data = append(data, SessionData{
				SessionID: r.SessionID,
				Title:     r.Title,
				LastSeen:  r.LastSeenTime().UTC(),
				Current:   r.SessionID == current,
			})
		}
		return NewJSONResponse("sessions", data).Write(w)
	}

	if len(records) == 0 {
		fmt.Fprintln(w, infoStyle.Render("No conversations yet."))
		return nil
	}

	fmt.Fprintln(w, titleStyle.Render("Recent conversations"))
	for _, r := range records {
		marker := "  "
		if r.SessionID == current {
			marker = successStyle.Render("* ")
		}
		title := r.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(w, "%s%s  %s  %s\n",
			marker,
			labelStyle.Render(r.SessionID),
			mutedStyle.Render(r.LastSeenTime().Format("2006-01-02 15:04")),
			util.TruncateWidth(title, 50))
	}
	return nil
}

func forgetSession(ctx context.Context, w io.Writer, routes *storage.RouteStore, id string) error {
	if err := routes.ForgetSession(ctx, id); err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return &NotFoundError{Resource: "session", ID: id}
		}
		return err
	}
	fmt.Fprintf(w, "%s %s\n", successStyle.Render("Forgot"), id)
	return nil
}
