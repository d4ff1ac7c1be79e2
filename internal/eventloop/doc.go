// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package eventloop provides the single logical task queue that the chat
// controller runs on.
//
// Every piece of controller state (the message list, playback cursors, the
// navigation state) is read and written only from closures executed by a
// Runtime. Network goroutines never touch that state directly; they Post
// their results back onto the loop. Because exactly one closure runs at a
// time, the controller needs no locks.
//
// # Key Types
//
//   - Runtime: the interface core components depend on (Post, AfterFunc)
//   - Loop: a goroutine-backed Runtime driven by Run
//   - Manual: a virtual-clock Runtime driven by hand, for tests
//
// # Usage
//
//	loop := eventloop.New(logger)
//	go loop.Run(ctx)
//	loop.Post(func() { ctrl.Submit("Tell me about night wakings") })
//
// Timers scheduled with AfterFunc deliver their callback on the loop too:
//
//	stop := loop.AfterFunc(20*time.Millisecond, tick)
//	defer stop()
package eventloop
