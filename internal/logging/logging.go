// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zerolog loggers used by cradle.
//
// The TUI owns the terminal, so in that mode log lines go to a file
// (~/.cradle/cradle.log by default). The REPL and one-shot commands log
// human-readable lines to stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/cradle-tui/internal/config"
)

// Mode selects where log output goes.
type Mode int

const (
	// ModeConsole writes colorized lines to stderr.
	ModeConsole Mode = iota
	// ModeFile writes JSON lines to the configured log file.
	ModeFile
	// ModeDiscard drops everything.
	ModeDiscard
)

func (m Mode) String() string {
	switch m {
	case ModeConsole:
		return "console"
	case ModeFile:
		return "file"
	case ModeDiscard:
		return "discard"
	default:
		return "unknown"
	}
}

// ParseLevel maps a config level name to a zerolog level. Unknown names
// fall back to info.
func ParseLevel(name string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Setup returns a logger for mode and a closer for any file it opened.
// The closer is never nil.
func Setup(cfg *config.Config, mode Mode) (zerolog.Logger, io.Closer, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	level := ParseLevel(cfg.Log.Level)

	switch mode {
	case ModeDiscard:
		return zerolog.Nop(), nopCloser{}, nil

	case ModeFile:
		path, err := config.LogPath(cfg)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("open log file: %w", err)
		}
		return New(f, level), f, nil

	default:
		w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		return New(w, level), nopCloser{}, nil
	}
}

// New returns a timestamped logger writing to w at level.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Component returns a child logger tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
