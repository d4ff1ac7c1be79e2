// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types shared by the chat controller:
// messages, the ordered message list of the active conversation, and the
// server-assigned identifiers that name conversations.
//
// # Key Types
//
//   - Message: single message with id, role, content and timestamp
//   - MessageList: insertion-ordered list of messages for one conversation
//   - IDSequence: session-local generator of strictly increasing message ids
//   - ID: server-assigned identifier; the zero value means "not yet created"
//
// # Usage
//
//	var ids model.IDSequence
//	var list model.MessageList
//	list.Append(model.NewMessage(ids.Next(), model.RoleUser, "Hello"))
package model
