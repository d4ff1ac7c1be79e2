// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jeranaias/cradle-tui/internal/app"
	"github.com/jeranaias/cradle-tui/internal/chatapi"
	"github.com/jeranaias/cradle-tui/internal/directory"
	"github.com/jeranaias/cradle-tui/internal/eventloop"
)

// stack is one wired chat session.
type stack struct {
	loop *eventloop.Loop
	ctrl *app.Controller
	dir  *directory.Client
}

// newStack wires clients, loop and controller from o.cfg. Network calls
// are bounded by ctx. The loop is not started.
func (o *options) newStack(ctx context.Context, log zerolog.Logger) *stack {
	cfg := o.cfg
	tokens := chatapi.StaticToken(cfg.Server.Token)

	cc := chatapi.DefaultConfig()
	cc.BaseURL = cfg.Server.BaseURL
	cc.Timeout = cfg.Server.Timeout.Std()
	cc.Tokens = tokens
	cc.Logger = &log
	if !cfg.Stream.Enabled {
		cc.StreamSupport = chatapi.Never
	}

	dir := directory.NewClient(directory.Config{
		BaseURL: cfg.Server.BaseURL,
		Timeout: cfg.Server.Timeout.Std(),
		Tokens:  tokens,
	})

	loop := eventloop.New(log)
	ctrl := app.New(app.Options{
		Runtime:         loop,
		Context:         ctx,
		Sender:          chatapi.NewClientWithConfig(cc),
		Directory:       dir,
		CharDelay:       cfg.Playback.CharDelay.Std(),
		RefreshInterval: cfg.Directory.RefreshInterval.Std(),
		Logger:          &log,
	})
	return &stack{loop: loop, ctrl: ctrl, dir: dir}
}
