// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes saved conversations to files.
//
// # Formats
//
//   - Markdown: human-readable, with optional YAML frontmatter
//   - JSON: the conversation as loaded from the service
//
// # Usage
//
//	conv := export.Conversation{ID: id, Title: title, Messages: msgs}
//	path, err := export.ToFile(conv, export.NewMarkdownExporter(nil), nil)
package export
