// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/jeranaias/cradle-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete cradle configuration.
type Config struct {
	Server    ServerConfig    `toml:"server" json:"server"`
	Stream    StreamConfig    `toml:"stream" json:"stream"`
	Playback  PlaybackConfig  `toml:"playback" json:"playback"`
	Directory DirectoryConfig `toml:"directory" json:"directory"`
	UI        UIConfig        `toml:"ui" json:"ui"`
	Log       LogConfig       `toml:"log" json:"log"`
}

// ServerConfig describes the chat service.
type ServerConfig struct {
	// BaseURL is the service root, e.g. https://cradle.example.com
	BaseURL string `toml:"base_url" json:"base_url"`
	// Token is the bearer token sent with every request.
	Token string `toml:"token" json:"token"`
	// Timeout bounds non-streaming requests.
	Timeout Duration `toml:"timeout" json:"timeout"`
}

// StreamConfig controls the framed reply path.
type StreamConfig struct {
	// Enabled lets the client try incremental replies. When false every
	// send uses the plain JSON request.
	Enabled bool `toml:"enabled" json:"enabled"`
}

// PlaybackConfig controls pacing of assistant text.
type PlaybackConfig struct {
	// CharDelay is the delay between revealed characters.
	CharDelay Duration `toml:"char_delay" json:"char_delay"`
}

// DirectoryConfig controls the conversation list.
type DirectoryConfig struct {
	// RefreshInterval is the minimum spacing between list fetches.
	RefreshInterval Duration `toml:"refresh_interval" json:"refresh_interval"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// Theme is "dark", "light" or "auto".
	Theme string `toml:"theme" json:"theme"`
	// ShowSidebar shows the conversation list next to the transcript.
	ShowSidebar bool `toml:"show_sidebar" json:"show_sidebar"`
	// Markdown renders assistant replies with glamour.
	Markdown bool `toml:"markdown" json:"markdown"`
}

// LogConfig controls diagnostics.
type LogConfig struct {
	// Level is a zerolog level name: trace, debug, info, warn, error.
	Level string `toml:"level" json:"level"`
	// File is the TUI log file (empty = ~/.cradle/cradle.log).
	File string `toml:"file" json:"file"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with all default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL: "http://127.0.0.1:8080",
			Timeout: Duration(60 * time.Second),
		},
		Stream: StreamConfig{
			Enabled: true,
		},
		Playback: PlaybackConfig{
			CharDelay: Duration(20 * time.Millisecond),
		},
		Directory: DirectoryConfig{
			RefreshInterval: Duration(2 * time.Second),
		},
		UI: UIConfig{
			Theme:       "auto",
			ShowSidebar: true,
			Markdown:    true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// HomeEnv relocates the configuration directory.
const HomeEnv = "CRADLE_HOME"

// ConfigDir returns the cradle configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".cradle"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LogPath returns the log file for cfg.
func LogPath(cfg *Config) (string, error) {
	if cfg != nil && cfg.Log.File != "" {
		return cfg.Log.File, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cradle.log"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions tightens a config file to 0600; it holds a token.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default config file, falling back to
// defaults when it does not exist. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPathTOML()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr == nil {
		return LoadFromPath(path)
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes the TOML file at path on top of cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		// Not fatal; some filesystems ignore chmod.
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	return nil
}

// LoadFromPath loads configuration from a specific file with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SetDefaults fills zero values that would make the config unusable.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Server.BaseURL == "" {
		c.Server.BaseURL = defaults.Server.BaseURL
	}
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")
	if c.Server.Timeout == 0 {
		c.Server.Timeout = defaults.Server.Timeout
	}
	if c.Playback.CharDelay == 0 {
		c.Playback.CharDelay = defaults.Playback.CharDelay
	}
	if c.Directory.RefreshInterval == 0 {
		c.Directory.RefreshInterval = defaults.Directory.RefreshInterval
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# cradle configuration file")
	fmt.Fprintln(&buf, "# Generated by cradle - edit with care")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
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
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Playback delay bounds. Faster than minCharDelay is indistinguishable from
// no pacing; slower than maxCharDelay is unusable.
const (
	minCharDelay = time.Millisecond
	maxCharDelay = time.Second
)

// Validate validates the configuration and returns ValidateErrors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.Server.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, ValidationError{
			Field:   "server.base_url",
			Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host[:port]", c.Server.BaseURL),
		})
	}
	if c.Server.Timeout.Std() <= 0 {
		errs = append(errs, ValidationError{Field: "server.timeout", Message: "must be positive"})
	}

	if d := c.Playback.CharDelay.Std(); d < minCharDelay || d > maxCharDelay {
		errs = append(errs, ValidationError{
			Field:   "playback.char_delay",
			Message: fmt.Sprintf("%s out of range, must be between %s and %s", d, minCharDelay, maxCharDelay),
		})
	}

	if c.Directory.RefreshInterval.Std() < 100*time.Millisecond {
		errs = append(errs, ValidationError{Field: "directory.refresh_interval", Message: "must be at least 100ms"})
	}

	switch strings.ToLower(c.UI.Theme) {
	case "dark", "light", "auto":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s'", c.Log.Level),
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

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - CRADLE_URL: overrides server.base_url
//   - CRADLE_TOKEN: overrides server.token
//   - CRADLE_NO_STREAM: set to "1" or "true" to disable streaming
//   - CRADLE_CHAR_DELAY: overrides playback.char_delay ("20ms" or "20")
//   - CRADLE_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CRADLE_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("CRADLE_TOKEN"); v != "" {
		c.Server.Token = v
	}
	if v := os.Getenv("CRADLE_NO_STREAM"); v != "" {
		if off, err := strconv.ParseBool(v); err == nil && off {
			c.Stream.Enabled = false
		}
	}
	if v := os.Getenv("CRADLE_CHAR_DELAY"); v != "" {
		var d Duration
		if err := d.UnmarshalText([]byte(v)); err == nil {
			c.Playback.CharDelay = d
		}
	}
	if v := os.Getenv("CRADLE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g. "playback.char_delay").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
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

// lookup resolves a dotted key against the toml tags.
func (c *Config) lookup(key string) (reflect.Value, error) {
	parts := strings.Split(strings.TrimSpace(key), ".")
	if len(parts) == 0 || parts[0] == "" {
		return reflect.Value{}, errors.New("empty key")
	}

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
	if v.Kind() == reflect.Struct && v.Type() != reflect.TypeOf(Duration(0)) {
		return reflect.Value{}, fmt.Errorf("'%s' is a section, not a value", key)
	}
	return v, nil
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	name = strings.ReplaceAll(strings.ToLower(name), "-", "_")
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("toml"), ",")[0]
		if tag == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		if field.CanAddr() && field.Addr().Type().Implements(textUnmarshalerType) {
			return field.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(strVal))
		}
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strVal)
			if err != nil {
				return fmt.Errorf("invalid boolean value: %v", err)
			}
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Keys returns all configuration keys in dot notation, sorted.
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		prefix := section.Tag.Get("toml")
		for j := 0; j < section.Type.NumField(); j++ {
			keys = append(keys, prefix+"."+section.Type.Field(j).Tag.Get("toml"))
		}
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy of the config. Config holds only values, so a
// shallow copy is deep.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the config as indented JSON with the token redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Server.Token != "" {
		safe.Server.Token = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
