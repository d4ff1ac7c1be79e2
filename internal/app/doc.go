// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app wires the chat controller together: the message reconciler,
// the playback scheduler, the navigation machine over an in-memory
// history, and the conversation directory.
//
// A Controller and everything it owns live on one eventloop.Runtime. Front
// ends (the Bubble Tea UI, the line REPL, one-shot commands) call its
// methods through Runtime.Post and receive a Snapshot after every change.
//
// # Usage
//
//	loop := eventloop.New(logger)
//	ctrl := app.New(app.Options{Runtime: loop, Context: ctx, Sender: client})
//	ctrl.OnChange(func(s app.Snapshot) { render(s) })
//	go loop.Run(ctx)
//	loop.Post(func() { ctrl.Submit("hello") })
package app
