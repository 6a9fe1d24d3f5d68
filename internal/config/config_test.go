// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConfig_Default tests that Default() returns a valid config with defaults.
func TestConfig_Default(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/socket/events", cfg.Server.EventsPath)
	assert.Equal(t, time.Millisecond, cfg.RevealInterval())
	assert.Equal(t, 30*time.Second, cfg.AckTimeout())
	assert.Equal(t, 2, cfg.Scroll.ThresholdLines)
	assert.Equal(t, 2*time.Second, cfg.ReconnectDelay())
}

// TestConfig_Validate tests configuration validation.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		field  string
	}{
		{"valid default config", func(c *Config) {}, ""},
		{"relative server url", func(c *Config) { c.Server.URL = "localhost:8080" }, "server.url"},
		{"unsupported scheme", func(c *Config) { c.Server.URL = "ftp://chat.example" }, "server.url"},
		{"events path without slash", func(c *Config) { c.Server.EventsPath = "events" }, "server.events_path"},
		{"negative reconnect delay", func(c *Config) { c.Server.ReconnectDelayMs = -1 }, "server.reconnect_delay_ms"},
		{"reveal interval too slow", func(c *Config) { c.Stream.RevealIntervalMs = 5000 }, "stream.reveal_interval_ms"},
		{"negative stall timeout", func(c *Config) { c.Stream.StallTimeoutSecs = -1 }, "stream.stall_timeout_secs"},
		{"stall watchdog disabled", func(c *Config) { c.Stream.StallTimeoutSecs = 0 }, ""},
		{"negative threshold", func(c *Config) { c.Scroll.ThresholdLines = -3 }, "scroll.threshold_lines"},
		{"invalid theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(c)
			err := c.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs), "expected ValidateErrors, got %v", err)
			var fields []string
			for _, v := range verrs {
				fields = append(fields, v.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestConfig_LoadTOMLFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
url = "https://chat.example"

[stream]
stall_timeout_secs = 0

[scroll]
threshold_lines = 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "https://chat.example", cfg.Server.URL)
	assert.Equal(t, "/socket/emit", cfg.Server.EmitPath)
	assert.Equal(t, 5, cfg.Scroll.ThresholdLines)
	assert.Equal(t, time.Duration(0), cfg.StallTimeout())
	assert.Equal(t, 30*time.Second, cfg.AckTimeout())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfig_LoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[ui]
show_metadata = false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.False(t, cfg.UI.ShowMetadata)
	assert.Equal(t, "auto", cfg.UI.Theme)
	assert.Equal(t, 60*time.Second, cfg.StallTimeout())
	assert.Equal(t, 2, cfg.Scroll.ThresholdLines)
}

func TestConfig_LoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ui]\ntheme = \"neon\"\n"), 0600))

	_, err := LoadFromPath(path)
	require.Error(t, err)
	var verrs ValidateErrors
	assert.True(t, errors.As(err, &verrs))
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("LEXCHAT_SERVER_URL", "https://env.example")
	t.Setenv("LEXCHAT_TOKEN", "tok")
	t.Setenv("LEXCHAT_SCROLL_THRESHOLD", "7")
	t.Setenv("LEXCHAT_DEBUG", "true")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnvOverrides())

	assert.Equal(t, "https://env.example", cfg.Server.URL)
	assert.Equal(t, "tok", cfg.Auth.Token)
	assert.Equal(t, 7, cfg.Scroll.ThresholdLines)
	assert.True(t, cfg.Logging.Debug)
	// Unset variables leave values alone.
	assert.Equal(t, "/socket/events", cfg.Server.EventsPath)
	assert.Equal(t, 30, cfg.Stream.AckTimeoutSecs)
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Server.URL = "https://saved.example"
	cfg.UI.Compact = true

	tomlPath := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveTOML(cfg, tomlPath))
	info, err := os.Stat(tomlPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFromPath(tomlPath)
	require.NoError(t, err)
	assert.Equal(t, "https://saved.example", loaded.Server.URL)
	assert.True(t, loaded.UI.Compact)

	jsonPath := filepath.Join(dir, "config.json")
	require.NoError(t, SaveJSON(cfg, jsonPath))
	loaded, err = LoadFromPath(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "https://saved.example", loaded.Server.URL)
}

// TestConfig_GetSet tests Get and Set methods with dot notation.
func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	val, err := cfg.Get("stream.reveal_interval_ms")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if val != 1 {
		t.Errorf("Get('stream.reveal_interval_ms') = %v, want 1", val)
	}

	if err := cfg.Set("scroll.threshold_lines", "4"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if cfg.Scroll.ThresholdLines != 4 {
		t.Errorf("threshold after Set = %d, want 4", cfg.Scroll.ThresholdLines)
	}

	if err := cfg.Set("ui.show_metadata", "no"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if cfg.UI.ShowMetadata {
		t.Error("show_metadata should be false after Set")
	}
	assert.Error(t, cfg.Set("ui.show_metadata", "maybe"))
	assert.Error(t, cfg.Set("scroll.threshold_lines", "two"))
	assert.Equal(t, 4, cfg.Scroll.ThresholdLines)
	require.NoError(t, cfg.Set("server.emit_rate_per_sec", "2.5"))
	assert.Equal(t, 2.5, cfg.Server.EmitRatePerSec)

	if _, err := cfg.Get("invalid.key"); err == nil {
		t.Error("Get() with invalid key should return error")
	}
	if _, err := cfg.Get("server.url.host"); err == nil {
		t.Error("Get() through a non-struct should return error")
	}

	keys := Keys()
	assert.Len(t, keys, 21)
	assert.Equal(t, "version", keys[0])
	assert.Contains(t, keys, "server.emit_rate_per_sec")
	assert.Contains(t, keys, "logging.debug")
	for _, key := range keys {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("Keys lists %q but Get fails: %v", key, err)
		}
	}
}

func TestConfig_StringRedactsToken(t *testing.T) {
	cfg := Default()
	cfg.Auth.Token = "secret-token"

	out := cfg.String()
	assert.NotContains(t, out, "secret-token")
	assert.Contains(t, out, "[REDACTED]")
	assert.Equal(t, "secret-token", cfg.Auth.Token)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, SaveTOML(Default(), path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 20*time.Millisecond, func(c *Config) { changes <- c })
	}()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	cfg := Default()
	cfg.Scroll.ThresholdLines = 9
	require.NoError(t, SaveTOML(cfg, path))

	// Wait for the reload that carries the new value.
	deadline := time.After(3 * time.Second)
	for reloaded := false; !reloaded; {
		select {
		case c := <-changes:
			reloaded = c.Scroll.ThresholdLines == 9
		case <-deadline:
			t.Fatal("no reload after write")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
