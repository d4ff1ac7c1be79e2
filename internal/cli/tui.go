// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/cradle-tui/internal/config"
	"github.com/jeranaias/cradle-tui/internal/logging"
	"github.com/jeranaias/cradle-tui/internal/ui"
	"github.com/jeranaias/cradle-tui/internal/ui/chat"
	"github.com/jeranaias/cradle-tui/internal/ui/styles"
)

// runTUI runs the loop, the full-screen program and the config watcher
// until the program exits.
func (o *options) runTUI(ctx context.Context) error {
	// The screen is owned by the program, so logs go to a file.
	log, closer, err := logging.Setup(o.cfg, logging.ModeFile)
	if err != nil {
		return commandError("tui", "logging", err)
	}
	defer closer.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st := o.newStack(ctx, log)
	theme := styles.NewTheme(o.cfg.UI.Theme)
	log.Info().Str("url", o.cfg.Server.BaseURL).Msg("starting tui")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return st.loop.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return ui.Run(gctx, st.ctrl, st.loop, theme, chat.Options{
			ShowSidebar: o.cfg.UI.ShowSidebar,
			Markdown:    o.cfg.UI.Markdown,
			Logger:      &log,
		})
	})
	if path, err := o.configFile(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			g.Go(func() error {
				watchConfig(gctx, path, st, log)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// watchConfig applies playback changes from the config file while the
// session runs. Other settings take effect on the next start.
func watchConfig(ctx context.Context, path string, st *stack, log zerolog.Logger) {
	err := config.Watch(ctx, path, func(cfg *config.Config, err error) {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("config reload failed")
			return
		}
		delay := cfg.Playback.CharDelay.Std()
		log.Info().Dur("char_delay", delay).Msg("config reloaded")
		st.loop.Post(func() { st.ctrl.SetCharDelay(delay) })
	})
	if err != nil {
		log.Warn().Err(err).Msg("config watch stopped")
	}
}
