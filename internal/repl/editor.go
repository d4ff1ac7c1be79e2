// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package repl

import (
	"os"
	"strings"

	"github.com/peterh/liner"
)

// =============================================================================
// LINE EDITOR
// =============================================================================

// LineEditor reads prompts with history and line editing.
type LineEditor struct {
	line        *liner.State
	historyFile string
}

// NewLineEditor opens the terminal for line editing. Input history is
// loaded from historyFile when it is set.
func NewLineEditor(historyFile string) *LineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	e := &LineEditor{line: line, historyFile: historyFile}
	e.loadHistory()
	return e
}

func (e *LineEditor) loadHistory() {
	if e.historyFile == "" {
		return
	}
	if f, err := os.Open(e.historyFile); err == nil {
		e.line.ReadHistory(f)
		f.Close()
	}
}

// Prompt reads one line. Non-empty input is added to history.
func (e *LineEditor) Prompt(prompt string) (string, error) {
	input, err := e.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history and restores the terminal.
func (e *LineEditor) Close() error {
	if e.historyFile != "" {
		if f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			e.line.WriteHistory(f)
			f.Close()
		}
	}
	return e.line.Close()
}
