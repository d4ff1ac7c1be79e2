// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the cradle packages.
//
// # Key Functions
//
// Text:
//   - TruncateWidth: cut a string to a display width, CJK aware
//   - PadWidth: right-pad a string to a display width
//   - StringWidth: display width in terminal cells
//
// Files:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	title := util.TruncateWidth(conv.Title, 24)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
