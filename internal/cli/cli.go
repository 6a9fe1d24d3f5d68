// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// =============================================================================
// VERSION INFO
// =============================================================================

// Version information (set via ldflags at build time).
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// COMMANDS
// =============================================================================

// Command represents a CLI command.
type Command int

const (
	// CmdTUI launches the full-screen chat (default).
	CmdTUI Command = iota
	// CmdChat starts the line-mode chat.
	CmdChat
	// CmdSessions lists or forgets remembered sessions.
	CmdSessions
	// CmdConfig shows or writes the configuration.
	CmdConfig
	// CmdVersion shows version information.
	CmdVersion
	// CmdHelp shows help information.
	CmdHelp
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdChat:
		return "chat"
	case CmdSessions:
		return "sessions"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Args holds the parsed command-line arguments.
type Args struct {
	// ConfigPath overrides the default ~/.lexchat/config.toml
	ConfigPath string

	// Session resumes a specific session instead of the stored route
	Session string

	// New starts a fresh conversation and clears the stored route
	New bool

	// Server overrides server.url
	Server string

	// Plain forces line mode even on a terminal
	Plain bool

	Verbose bool
	JSON    bool

	// Unknown is set when the first argument named no command.
	Unknown string

	// Subcommand and Raw are the command's own arguments.
	Subcommand string
	Raw        []string
}

// =============================================================================
// USAGE
// =============================================================================

const usageText = `lexchat - terminal client for the legal assistant chat

Usage:
  lexchat [flags] [command]

Commands:
  (none), tui              Open the full-screen chat
  chat                     Line-mode chat (used automatically when piped)
  sessions [list]          List remembered conversations
  sessions forget ID       Forget a remembered conversation
  config [show]            Show the effective configuration
  config path              Print the config file path
  config init              Write a default config file
  config get KEY           Print one setting
  config set KEY VALUE     Change one setting
  config keys              List setting keys
  config env               List environment overrides
  version                  Show version information
  help                     Show this help

Flags:
  -c, --config PATH        Use a specific config file
      --session ID         Resume a specific conversation
      --new                Start a new conversation
      --server URL         Chat server base URL
      --plain              Use line mode even on a terminal
  -v, --verbose            Debug logging
      --json               JSON output (version, sessions, config)

Chat keys:
  enter send, esc stop, ctrl+r regenerate, alt+left/right switch answers,
  end jump to newest, ctrl+n new conversation, ctrl+c quit

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses command-line arguments and returns the command and args.
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining
	if len(remaining) > 0 {
		parsedArgs.Subcommand = strings.ToLower(remaining[0])
	}

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs
	case "chat":
		return CmdChat, parsedArgs
	case "sessions", "session":
		return CmdSessions, parsedArgs
	case "config":
		return CmdConfig, parsedArgs
	case "version", "--version":
		return CmdVersion, parsedArgs
	case "help", "-h", "--help":
		return CmdHelp, parsedArgs
	default:
		parsedArgs.Unknown = cmd
		return CmdHelp, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsed Args

	value := func(i *int, arg, name string) (string, bool) {
		if v, ok := strings.CutPrefix(arg, name+"="); ok {
			return v, true
		}
		if arg == name && *i+1 < len(args) {
			*i++
			return args[*i], true
		}
		return "", false
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "--new":
			parsed.New = true
			continue
		case "--plain":
			parsed.Plain = true
			continue
		case "-v", "--verbose":
			parsed.Verbose = true
			continue
		case "--json":
			parsed.JSON = true
			continue
		}

		if v, ok := value(&i, arg, "--config"); ok {
			parsed.ConfigPath = v
		} else if v, ok := value(&i, arg, "-c"); ok {
			parsed.ConfigPath = v
		} else if v, ok := value(&i, arg, "--session"); ok {
			parsed.Session = v
		} else if v, ok := value(&i, arg, "--server"); ok {
			parsed.Server = v
		} else {
			remaining = append(remaining, arg)
		}
	}

	return remaining, parsed
}

// =============================================================================
// SIMPLE HANDLERS
// =============================================================================

// HandleVersion prints version information, as JSON when requested.
func HandleVersion(w io.Writer, args Args) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Write(w)
	}
	fmt.Fprintf(w, "lexchat version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	return nil
}

// HandleHelp prints usage and reports an unknown command.
func HandleHelp(w io.Writer, args Args) error {
	PrintUsage(w)
	if args.Unknown != "" {
		return ErrUnknownSubcommand("lexchat", args.Unknown, "lexchat help")
	}
	return nil
}
