// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for lexchat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, validation and hot reload.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ServerConfig: Chat server endpoints and outbound throttling
//   - StreamConfig: Reveal pacing, stall watchdog and session ack timeout
//   - ScrollConfig: Auto-scroll pinning threshold
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (LEXCHAT_*)
//   - ~/.lexchat/config.toml
//   - ~/.lexchat/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Follow edits to the file:
//
//	go config.Watch(ctx, path, 0, func(cfg *config.Config) {
//	    p.Send(themeChanged(cfg.UI.Theme))
//	})
//
// Read or change one setting by its dot-notation key (see Keys):
//
//	v, _ := cfg.Get("scroll.threshold_lines")
//	err := cfg.Set("ui.theme", "light")
package config
