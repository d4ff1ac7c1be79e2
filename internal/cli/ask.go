// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/cradle-tui/internal/logging"
	"github.com/jeranaias/cradle-tui/internal/model"
	"github.com/jeranaias/cradle-tui/internal/repl"
)

type askFlags struct {
	conversation string
	json         bool
}

// askResult is the --json output of ask.
type askResult struct {
	ConversationID model.ID `json:"conversationId"`
	Title          string   `json:"title,omitempty"`
	Reply          string   `json:"reply"`
}

func newAskCommand(o *options) *cobra.Command {
	var f askFlags
	cmd := &cobra.Command{
		Use:   "ask [message...]",
		Short: "Send one message and print the reply",
		Long: `Send one message and print the reply as it plays back.
With no message, or "-", the message is read from stdin.`,
		Example: `  cradle ask "how long should a newborn nap?"
  echo "is this rash normal?" | cradle ask
  cradle ask -C c_12 "and at six months?"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runAsk(cmd.Context(), f, args)
		},
	}
	cmd.Flags().StringVarP(&f.conversation, "conversation", "C", "", "continue a saved conversation")
	cmd.Flags().BoolVar(&f.json, "json", false, "print the result as JSON")
	return cmd
}

func (o *options) runAsk(ctx context.Context, f askFlags, args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" || text == "-" {
		data, err := io.ReadAll(o.in)
		if err != nil {
			return commandError("ask", "read", err)
		}
		text = strings.TrimSpace(string(data))
	}
	if text == "" {
		return usageError{"ask: no message given"}
	}

	log, closer, err := logging.Setup(o.cfg, logging.ModeConsole)
	if err != nil {
		return commandError("ask", "logging", err)
	}
	defer closer.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st := o.newStack(ctx, log)
	go st.loop.Run(ctx)

	out := o.out
	if f.json {
		out = io.Discard
	}
	sess := repl.New(st.ctrl, st.loop, nil, repl.Options{Out: out, Logger: &log})
	if err := sess.Attach(ctx); err != nil {
		return err
	}
	if f.conversation != "" {
		if _, err := sess.Open(ctx, model.ID(f.conversation)); err != nil {
			return commandError("ask", "open", err)
		}
	}

	res, err := sess.Ask(ctx, text)
	if err != nil {
		return commandError("ask", "", err)
	}
	if f.json {
		enc := json.NewEncoder(o.out)
		enc.SetIndent("", "  ")
		return enc.Encode(askResult{
			ConversationID: res.ConversationID,
			Title:          res.Title,
			Reply:          res.Reply,
		})
	}
	return nil
}
