// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/cradle-tui/internal/app"
	"github.com/jeranaias/cradle-tui/internal/reconcile"
)

// SnapshotMsg carries the controller state after a change.
type SnapshotMsg struct {
	Snapshot app.Snapshot
}

// SettledMsg reports the outcome of a submission.
type SettledMsg struct {
	Settlement reconcile.Settlement
}

// StatusMsg shows a transient line in the status bar.
type StatusMsg string
