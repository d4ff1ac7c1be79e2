// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatapi provides the HTTP client for the cradle chat service.
//
// It sends one user message and consumes the reply as a framed stream of
// "data: " records, falling back once to a plain JSON request when the
// framed path breaks. The reply is exposed two ways that share one
// implementation:
//
//   - Stream: a channel of Fragment events ending in exactly one Done or
//     Error event
//   - Send: drains Stream and reports cumulative text through a callback
//
// # Error Handling
//
// Errors are *Error values with a Kind:
//
//   - KindTransport: connection failures and broken framing; recovered once
//     by the non-streaming fallback
//   - KindServer: explicit error records and non-2xx replies; never retried
//   - KindParse: a single unparsable record; logged and skipped
//
// Use IsTransport, IsServer and IsParse to classify.
//
// # Usage
//
//	client := chatapi.NewClientWithConfig(&chatapi.ClientConfig{
//	    BaseURL: "https://cradle.example.com",
//	    Tokens:  chatapi.StaticToken(token),
//	})
//	res, err := client.Send(ctx, chatapi.Request{Message: "Tell me about night wakings"},
//	    func(text string) { fmt.Print("\r", text) })
package chatapi
