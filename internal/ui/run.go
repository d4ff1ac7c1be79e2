// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui runs the full-screen chat program.
package ui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/cradle-tui/internal/app"
	"github.com/jeranaias/cradle-tui/internal/eventloop"
	"github.com/jeranaias/cradle-tui/internal/reconcile"
	"github.com/jeranaias/cradle-tui/internal/ui/chat"
	"github.com/jeranaias/cradle-tui/internal/ui/styles"
)

// Sender is the part of *tea.Program the bridge needs.
type Sender interface {
	Send(msg tea.Msg)
}

// Bridge forwards controller updates to the program. It must run on the
// controller's loop; Send is safe from any goroutine except Update.
func Bridge(ctrl *app.Controller, p Sender) {
	ctrl.OnChange(func(s app.Snapshot) { p.Send(chat.SnapshotMsg{Snapshot: s}) })
	ctrl.OnSettled(func(s reconcile.Settlement) { p.Send(chat.SettledMsg{Settlement: s}) })
}

// Run shows the chat view until the user quits or ctx ends.
func Run(ctx context.Context, ctrl *app.Controller, loop eventloop.Runtime, theme *styles.Theme, opts chat.Options) error {
	m := chat.New(ctrl, loop, theme, opts)
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	ready := make(chan struct{})
	loop.Post(func() {
		Bridge(ctrl, p)
		close(ready)
	})
	select {
	case <-ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
