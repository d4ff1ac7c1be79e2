// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view for cradle.
//
// The view owns no chat state. It forwards user actions to an
// app.Controller by posting closures onto the controller's event loop and
// renders the app.Snapshot values the controller sends back as
// SnapshotMsg.
//
// # Keys
//
//   - Enter: send the message, or run a slash command
//   - Ctrl+N: new conversation
//   - Alt+Left / Alt+Right: history back / forward
//   - Tab: focus the conversation sidebar (Up/Down/Enter to open)
//   - PgUp / PgDn: scroll the transcript
//   - Ctrl+C: quit
//
// # Slash Commands
//
//	/new            start a new conversation
//	/back, /forward move through history
//	/go <fragment>  navigate to a fragment such as #chat/c_12
//	/open <n|id>    open a conversation by list position or id
//	/list           toggle the sidebar
//	/refresh        reload the conversation list
//	/delay <dur>    change the playback pace (e.g. 10ms)
//	/help           toggle the key help
//	/quit           exit
package chat
