// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the non-TUI commands of
// lexchat.
//
// # Key Types
//
//   - Command: the available commands
//   - Args: parsed global flags plus the command's own arguments
//   - ArgParser: flag and positional parsing shared by subcommands
//   - ChatSession: line-mode chat on a conversation controller
//
// # Usage
//
//	cmd, args := cli.Parse()
//	switch cmd {
//	case cli.CmdSessions:
//	    err = cli.HandleSessions(ctx, os.Stdout, args, cfg)
//	case cli.CmdConfig:
//	    err = cli.HandleConfig(os.Stdout, args)
//	}
//
// Commands that support --json print a JSONResponse envelope. Errors map to
// exit codes through GetExitCode.
package cli
