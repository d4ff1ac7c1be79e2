// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for cradle.
//
// Configuration is TOML with sensible defaults, environment variable
// overrides, validation, and live reload.
//
// # Key Types
//
//   - Config: main configuration structure with all settings
//   - ServerConfig: service URL, token and request timeout
//   - PlaybackConfig: pacing of streamed replies
//   - Duration: time.Duration that reads and writes as "20ms"
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (CRADLE_*)
//   - ~/.cradle/config.toml (or $CRADLE_HOME/config.toml)
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
// Reload on change:
//
//	err := config.Watch(ctx, path, func(cfg *config.Config, err error) {
//	    sched.SetDelay(cfg.Playback.CharDelay.Std())
//	})
package config
