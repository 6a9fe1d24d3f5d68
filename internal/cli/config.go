// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command implementation.
//
// Command: config [subcommand]
//
// Subcommands:
//   show (default)      Display the effective configuration
//   path                Show the configuration file path
//   init                Write a default config file
//   get <key>           Print one effective value
//   set <key> <value>   Set a value and save the file
//   keys                List the keys accepted by get and set
//   env                 List environment overrides
package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/jeranaias/lexchat-tui/internal/config"
)

const configUsage = "lexchat config [show|path|init|get KEY|set KEY VALUE|keys|env]"

// LoadConfig loads the configuration named by --config, or the default
// file, and applies the command-line overrides.
func LoadConfig(args Args) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg, err = config.Load()
		if cfg == nil {
			return nil, err
		}
		if err != nil {
			log.Printf("CONFIG_FALLBACK | err=%v", err)
		}
	}

	if args.Server != "" {
		cfg.Server.URL = args.Server
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid --server: %w", err)
		}
	}
	if args.Verbose {
		cfg.Logging.Debug = true
	}
	return cfg, nil
}

// configPath returns the file the config command reads and writes.
func configPath(args Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	return config.ConfigPathTOML()
}

// HandleConfig handles "lexchat config".
func HandleConfig(w io.Writer, args Args) error {
	parser := NewArgParser(args.Raw, "json", "force")
	path, err := configPath(args)
	if err != nil {
		return err
	}

	switch sub := parser.Subcommand(); sub {
	case "", "show":
		cfg, err := LoadConfig(args)
		if err != nil {
			return err
		}
		if args.JSON || parser.BoolFlag("json") {
			safe := cfg.Clone()
			if safe.Auth.Token != "" {
				safe.Auth.Token = "[REDACTED]"
			}
			return NewJSONResponse("config", safe).Write(w)
		}
		fmt.Fprintln(w, titleStyle.Render("Configuration"))
		fmt.Fprintln(w, mutedStyle.Render(path))
		fmt.Fprintln(w, cfg.String())
		return nil

	case "path":
		fmt.Fprintln(w, path)
		return nil

	case "init":
		if _, err := os.Stat(path); err == nil && !parser.BoolFlag("force") {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		}
		if err := config.SaveTOML(config.Default(), path); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s %s\n", successStyle.Render("Wrote"), path)
		return nil

	case "get":
		key := parser.Positional(1)
		if key == "" {
			return ErrMissingArgument("key", "lexchat config get scroll.threshold_lines")
		}
		cfg, err := LoadConfig(args)
		if err != nil {
			return err
		}
		value, err := cfg.Get(key)
		if err != nil {
			return &ValidationError{Field: "key", Value: key, Reason: err.Error(), Example: "lexchat config keys"}
		}
		if key == "auth.token" && value != "" {
			value = "[REDACTED]"
		}
		if args.JSON || parser.BoolFlag("json") {
			return NewJSONResponse("config", map[string]any{key: value}).Write(w)
		}
		fmt.Fprintln(w, value)
		return nil

	case "keys":
		for _, key := range config.Keys() {
			fmt.Fprintln(w, key)
		}
		return nil

	case "set":
		key, value := parser.Positional(1), strings.Join(parser.PositionalFrom(2), " ")
		if key == "" || value == "" {
			return ErrMissingArgument("key and value", "lexchat config set scroll.threshold_lines 3")
		}
		return setConfigValue(w, path, key, value)

	case "env":
		fmt.Fprintln(w, config.EnvHelp())
		return nil

	default:
		return ErrUnknownSubcommand("config", sub, configUsage)
	}
}

// setConfigValue updates one key in the file at path, creating it from
// defaults when missing. Environment overrides are not written back.
func setConfigValue(w io.Writer, path, key, value string) error {
	load, save := config.LoadTOML, config.SaveTOML
	if strings.HasSuffix(path, ".json") {
		load, save = config.LoadJSON, config.SaveJSON
	}

	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if err := load(cfg, path); err != nil {
			return err
		}
	}

	if err := cfg.Set(key, value); err != nil {
		return &ValidationError{Field: "key", Value: key, Reason: err.Error(), Example: "lexchat config keys"}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := save(cfg, path); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s %s = %s\n", successStyle.Render("Set"), key, value)
	return nil
}
