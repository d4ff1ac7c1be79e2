// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the cradle command line.
//
// Commands:
//
//	cradle                    full-screen chat (line chat when not a terminal)
//	cradle chat               line chat with history and slash commands
//	cradle ask <message>      send one message and print the reply
//	cradle conversations      list saved conversations
//	cradle config <sub>       show, path, init, get or set configuration
//	cradle version            print version information
//
// Global flags override the configuration file and CRADLE_* variables.
package cli
