// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/cradle-tui/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"trace", zerolog.TraceLevel},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	l := Component(New(&buf, zerolog.DebugLevel), "playback")
	l.Debug().Int("n", 3).Msg("tick")

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "playback", rec["component"])
	assert.Equal(t, "tick", rec["message"])
	assert.Contains(t, rec, "time")
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, zerolog.WarnLevel)
	l.Info().Msg("hidden")
	assert.Zero(t, buf.Len())
	l.Warn().Msg("shown")
	assert.NotZero(t, buf.Len())
}

func TestSetup_File(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Log.File = filepath.Join(dir, "logs", "cradle.log")
	cfg.Log.Level = "debug"

	l, closer, err := Setup(cfg, ModeFile)
	require.NoError(t, err)
	l.Debug().Msg("hello file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(cfg.Log.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
}

func TestSetup_Discard(t *testing.T) {
	l, closer, err := Setup(nil, ModeDiscard)
	require.NoError(t, err)
	assert.NotNil(t, closer)
	assert.Equal(t, zerolog.Disabled, l.GetLevel())
}
