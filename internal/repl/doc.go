// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package repl is the line-oriented front end for cradle.
//
// A Session drives an app.Controller from a prompt loop. Replies are
// printed as the playback scheduler reveals them, so the pacing matches
// the full-screen view. Lines starting with "/" are commands:
//
//	/new              start a new conversation
//	/back, /forward   move through history
//	/go <fragment>    navigate to a fragment, e.g. #chat/c_12
//	/open <n|id>      open a conversation and print it
//	/list             show saved conversations
//	/refresh          reload the conversation list
//	/delay <dur>      change the playback pace
//	/help             show commands
//	/quit             leave
package repl
