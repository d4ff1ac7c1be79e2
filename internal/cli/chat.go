// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/cradle-tui/internal/config"
	"github.com/jeranaias/cradle-tui/internal/logging"
	"github.com/jeranaias/cradle-tui/internal/repl"
)

func newChatCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start a line-oriented chat session",
		Long: `Chat one line at a time. Replies are printed at the playback pace.
Type /help for commands; Ctrl+D leaves.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.runChat(cmd.Context(), nil)
		},
	}
}

// runChat runs a REPL session. A nil in reads from the terminal with line
// editing, or from o.in when it is not a terminal.
func (o *options) runChat(ctx context.Context, in repl.Input) error {
	log, closer, err := logging.Setup(o.cfg, logging.ModeFile)
	if err != nil {
		return commandError("chat", "logging", err)
	}
	defer closer.Close()

	if in == nil {
		if isTerminal() {
			editor := repl.NewLineEditor(historyFile())
			defer editor.Close()
			in = editor
		} else {
			in = newLineReader(o.in)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st := o.newStack(ctx, log)
	go st.loop.Run(ctx)

	sess := repl.New(st.ctrl, st.loop, in, repl.Options{Out: o.out, Logger: &log})
	if err := sess.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return commandError("chat", "", err)
	}
	return nil
}

func historyFile() string {
	if err := config.EnsureConfigDir(); err != nil {
		return ""
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "chat_history")
}

// lineReader is a repl.Input over a plain stream.
type lineReader struct {
	r *bufio.Reader
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReader(r)}
}

func (l *lineReader) Prompt(string) (string, error) {
	line, err := l.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
