// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reconcile owns the message list of the active conversation and
// keeps it consistent while replies stream in.
//
// Submit inserts the user message and an empty assistant placeholder right
// away, then sends in the background. Fragments are paced through a
// playback.Scheduler. A failed send removes both messages again; a
// successful one adopts the server's conversation id and title.
//
// # Generations
//
// Every reset of the list (welcome, new conversation, selection) bumps a
// generation counter. Results tagged with an older generation are dropped,
// so a reply that arrives after the user navigated away never writes into
// the new list.
//
// # Threading
//
// A Reconciler must only be used from its eventloop.Runtime. Network calls
// run on their own goroutines and post their results back to the loop.
package reconcile
