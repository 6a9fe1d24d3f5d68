// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for lexchat.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/jeranaias/lexchat-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the main configuration structure for lexchat.
type Config struct {
	// Version of the config format
	Version string `toml:"version" json:"version"`

	Server  ServerConfig  `toml:"server" json:"server"`
	Auth    AuthConfig    `toml:"auth" json:"auth"`
	Stream  StreamConfig  `toml:"stream" json:"stream"`
	Scroll  ScrollConfig  `toml:"scroll" json:"scroll"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	Logging LoggingConfig `toml:"logging" json:"logging"`
}

// ServerConfig locates the chat server's event endpoints.
type ServerConfig struct {
	// URL is the chat server base URL
	URL string `toml:"url" json:"url" env:"LEXCHAT_SERVER_URL"`

	// EventsPath is the long-lived inbound event stream
	EventsPath string `toml:"events_path" json:"events_path" env:"LEXCHAT_EVENTS_PATH"`

	// EmitPath receives outbound events
	EmitPath string `toml:"emit_path" json:"emit_path" env:"LEXCHAT_EMIT_PATH"`

	ConnectTimeoutSecs int `toml:"connect_timeout_secs" json:"connect_timeout_secs" env:"LEXCHAT_CONNECT_TIMEOUT_SECS"`
	ReconnectDelayMs   int `toml:"reconnect_delay_ms" json:"reconnect_delay_ms" env:"LEXCHAT_RECONNECT_DELAY_MS"`

	// Outbound throttling (token bucket)
	EmitRatePerSec float64 `toml:"emit_rate_per_sec" json:"emit_rate_per_sec" env:"LEXCHAT_EMIT_RATE"`
	EmitBurst      int     `toml:"emit_burst" json:"emit_burst" env:"LEXCHAT_EMIT_BURST"`
}

// AuthConfig holds the bearer token issued by the platform login flow.
type AuthConfig struct {
	// Token takes precedence over TokenFile
	Token     string `toml:"token" json:"token,omitempty" env:"LEXCHAT_TOKEN"`
	TokenFile string `toml:"token_file" json:"token_file" env:"LEXCHAT_TOKEN_FILE"`

	// LoginURL is shown when the user is not signed in
	LoginURL string `toml:"login_url" json:"login_url" env:"LEXCHAT_LOGIN_URL"`
}

// StreamConfig controls how streamed answers are revealed.
type StreamConfig struct {
	// RevealIntervalMs is the delay between revealed characters
	RevealIntervalMs int `toml:"reveal_interval_ms" json:"reveal_interval_ms" env:"LEXCHAT_REVEAL_INTERVAL_MS"`

	// StallTimeoutSecs marks a stream incomplete after this long without a
	// chunk. Zero disables the watchdog.
	StallTimeoutSecs int `toml:"stall_timeout_secs" json:"stall_timeout_secs" env:"LEXCHAT_STALL_TIMEOUT_SECS"`

	// AckTimeoutSecs bounds the wait for a session to be created
	AckTimeoutSecs int `toml:"ack_timeout_secs" json:"ack_timeout_secs" env:"LEXCHAT_ACK_TIMEOUT_SECS"`
}

// ScrollConfig controls auto-scroll pinning.
type ScrollConfig struct {
	// ThresholdLines is how far from the bottom a user scroll must land
	// before auto-scroll is released
	ThresholdLines int `toml:"threshold_lines" json:"threshold_lines" env:"LEXCHAT_SCROLL_THRESHOLD"`
}

// UIConfig contains UI-related settings.
type UIConfig struct {
	Theme        string `toml:"theme" json:"theme" env:"LEXCHAT_THEME"`
	ShowMetadata bool   `toml:"show_metadata" json:"show_metadata" env:"LEXCHAT_SHOW_METADATA"`
	Compact      bool   `toml:"compact" json:"compact" env:"LEXCHAT_COMPACT"`
}

// StorageConfig locates the local route database.
type StorageConfig struct {
	Path string `toml:"path" json:"path" env:"LEXCHAT_STORAGE_PATH"`
}

// LoggingConfig controls the log file used while the TUI owns the terminal.
type LoggingConfig struct {
	File  string `toml:"file" json:"file" env:"LEXCHAT_LOG_FILE"`
	Debug bool   `toml:"debug" json:"debug" env:"LEXCHAT_DEBUG"`
}

// =============================================================================
// DEFAULT VALUES
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	dir, _ := ConfigDir()

	return &Config{
		Version: "1.0.0",

		Server: ServerConfig{
			URL:                "http://127.0.0.1:8080",
			EventsPath:         "/socket/events",
			EmitPath:           "/socket/emit",
			ConnectTimeoutSecs: 10,
			ReconnectDelayMs:   2000,
			EmitRatePerSec:     10,
			EmitBurst:          5,
		},

		Auth: AuthConfig{
			TokenFile: filepath.Join(dir, "token"),
			LoginURL:  "http://127.0.0.1:8080/login",
		},

		Stream: StreamConfig{
			RevealIntervalMs: 1,
			StallTimeoutSecs: 60,
			AckTimeoutSecs:   30,
		},

		Scroll: ScrollConfig{
			ThresholdLines: 2,
		},

		UI: UIConfig{
			Theme:        "auto",
			ShowMetadata: true,
			Compact:      false,
		},

		Storage: StorageConfig{
			Path: filepath.Join(dir, "routes.db"),
		},

		Logging: LoggingConfig{
			File:  filepath.Join(dir, "lexchat.log"),
			Debug: false,
		},
	}
}

// =============================================================================
// DURATION ACCESSORS
// =============================================================================

// ConnectTimeout returns server.connect_timeout_secs as a duration.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Server.ConnectTimeoutSecs) * time.Second
}

// ReconnectDelay returns server.reconnect_delay_ms as a duration.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Server.ReconnectDelayMs) * time.Millisecond
}

// RevealInterval returns stream.reveal_interval_ms as a duration.
func (c *Config) RevealInterval() time.Duration {
	return time.Duration(c.Stream.RevealIntervalMs) * time.Millisecond
}

// StallTimeout returns stream.stall_timeout_secs as a duration. Zero means
// the watchdog is off.
func (c *Config) StallTimeout() time.Duration {
	return time.Duration(c.Stream.StallTimeoutSecs) * time.Second
}

// AckTimeout returns stream.ack_timeout_secs as a duration.
func (c *Config) AckTimeout() time.Duration {
	return time.Duration(c.Stream.AckTimeoutSecs) * time.Second
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir is ~/.lexchat. The route database and log file default there too.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".lexchat"), nil
}

// ConfigPathTOML is where "lexchat config init" and "config set" write.
func ConfigPathTOML() (string, error) { return inConfigDir("config.toml") }

func inConfigDir(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// tightenPermissions makes sure a config file, which may hold a token, is
// readable by its owner only. Failure is logged, not fatal.
func tightenPermissions(path string) {
	info, err := os.Stat(path)
	if err != nil || info.Mode().Perm() == 0600 {
		return
	}
	if err := os.Chmod(path, 0600); err != nil {
		log.Printf("CONFIG_PERMISSIONS | path=%s mode=%o err=%v", path, info.Mode().Perm(), err)
	}
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads ~/.lexchat/config.toml, else config.json, else the defaults,
// then applies environment overrides. When a file exists but cannot be
// used, the defaults are returned together with that error.
func Load() (*Config, error) {
	var loadErr error
	for _, name := range []string{"config.toml", "config.json"} {
		path, err := inConfigDir(name)
		if err != nil {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg, err := LoadFromPath(path)
		if err == nil {
			return cfg, nil
		}
		loadErr = err
	}

	cfg, err := finish(Default())
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// LoadTOML decodes a TOML file into cfg. Keys missing from the file keep
// the values cfg already holds, so callers pass Default() to get defaults.
func LoadTOML(cfg *Config, path string) error {
	tightenPermissions(path)
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON is LoadTOML for JSON files.
func LoadJSON(cfg *Config, path string) error {
	tightenPermissions(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads the file at path over the defaults, applies
// environment overrides and validates the result. The format follows the
// file extension.
func LoadFromPath(path string) (*Config, error) {
	load := LoadTOML
	if strings.HasSuffix(path, ".json") {
		load = LoadJSON
	}
	cfg := Default()
	if err := load(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes the configuration to a TOML file with 0600 permissions,
// since it may hold a token.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# lexchat configuration file\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file with an atomic write.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Server
	if u, err := url.Parse(c.Server.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "server.url",
			Message: fmt.Sprintf("invalid URL '%s', must be an absolute http(s) URL", c.Server.URL),
		})
	}
	for field, path := range map[string]string{
		"server.events_path": c.Server.EventsPath,
		"server.emit_path":   c.Server.EmitPath,
	} {
		if !strings.HasPrefix(path, "/") {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("path '%s' must start with '/'", path),
			})
		}
	}
	if c.Server.ConnectTimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "server.connect_timeout_secs", Message: "must not be negative"})
	}
	if c.Server.ReconnectDelayMs < 0 {
		errs = append(errs, ValidationError{Field: "server.reconnect_delay_ms", Message: "must not be negative"})
	}
	if c.Server.EmitRatePerSec < 0 {
		errs = append(errs, ValidationError{Field: "server.emit_rate_per_sec", Message: "must not be negative"})
	}
	if c.Server.EmitBurst < 0 {
		errs = append(errs, ValidationError{Field: "server.emit_burst", Message: "must not be negative"})
	}

	// Auth
	if c.Auth.LoginURL != "" {
		if _, err := url.Parse(c.Auth.LoginURL); err != nil {
			errs = append(errs, ValidationError{
				Field:   "auth.login_url",
				Message: fmt.Sprintf("invalid URL '%s'", c.Auth.LoginURL),
			})
		}
	}

	// Stream
	if c.Stream.RevealIntervalMs < 0 || c.Stream.RevealIntervalMs > 1000 {
		errs = append(errs, ValidationError{
			Field:   "stream.reveal_interval_ms",
			Message: fmt.Sprintf("value %d out of range, must be between 0 and 1000", c.Stream.RevealIntervalMs),
		})
	}
	if c.Stream.StallTimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "stream.stall_timeout_secs", Message: "must not be negative (0 disables)"})
	}
	if c.Stream.AckTimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "stream.ack_timeout_secs", Message: "must not be negative"})
	}

	// Scroll
	if c.Scroll.ThresholdLines < 0 {
		errs = append(errs, ValidationError{Field: "scroll.threshold_lines", Message: "must not be negative"})
	}

	// UI
	validThemes := map[string]bool{"auto": true, "dark": true, "light": true, "notty": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light, notty", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies LEXCHAT_* environment variables over the loaded
// values. Unset variables leave the field alone. See the env tags on the
// config structs for the full list, e.g.:
//   - LEXCHAT_SERVER_URL: overrides server.url
//   - LEXCHAT_TOKEN: overrides auth.token
//   - LEXCHAT_STALL_TIMEOUT_SECS: overrides stream.stall_timeout_secs
func (c *Config) ApplyEnvOverrides() error {
	if err := cleanenv.ReadEnv(c); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	return nil
}

// EnvHelp returns a description of the supported environment variables.
func EnvHelp() string {
	help, err := cleanenv.GetDescription(&Config{}, nil)
	if err != nil {
		return ""
	}
	return help
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "stream.reveal_interval_ms").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "scroll.threshold_lines").
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup resolves a dot-notation key against the toml tags.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i], "."))
		}
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return v, nil
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if tomlName(t.Field(i)) == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func tomlName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
	return name
}

// setFieldValue assigns value to field. Strings, as typed on the command
// line, are parsed for the field's kind; other values must be assignable or
// numerically convertible.
func setFieldValue(field reflect.Value, value interface{}) error {
	if text, ok := value.(string); ok && field.Kind() != reflect.String {
		return parseInto(field, text)
	}

	val := reflect.ValueOf(value)
	switch {
	case !val.IsValid():
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	case val.Type().AssignableTo(field.Type()):
		field.Set(val)
	case val.Kind() != reflect.String && val.Type().ConvertibleTo(field.Type()):
		field.Set(val.Convert(field.Type()))
	default:
		return fmt.Errorf("cannot assign %T to %s", value, field.Type())
	}
	return nil
}

func parseInto(field reflect.Value, text string) error {
	text = strings.TrimSpace(text)
	switch field.Kind() {
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return fmt.Errorf("%q is not a whole number", text)
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return fmt.Errorf("%q is not a number", text)
		}
		field.SetFloat(f)
	case reflect.Bool:
		switch strings.ToLower(text) {
		case "1", "true", "yes", "on":
			field.SetBool(true)
		case "0", "false", "no", "off":
			field.SetBool(false)
		default:
			return fmt.Errorf("%q is not true or false", text)
		}
	default:
		return fmt.Errorf("cannot set %s from text", field.Type())
	}
	return nil
}

// Keys returns every settable key in dot notation, in declaration order.
func Keys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := tomlName(f)
			if name == "" || name == "-" {
				continue
			}
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type, prefix+name+".")
				continue
			}
			keys = append(keys, prefix+name)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return keys
}

// Clone creates a copy of the configuration. Config holds only value types.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the config for debugging with
// the token redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Auth.Token != "" {
		safe.Auth.Token = "[REDACTED]"
	}

	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
