// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package directory lists saved conversations and their messages.
package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/cradle-tui/internal/chatapi"
	"github.com/jeranaias/cradle-tui/internal/model"
)

// =============================================================================
// TYPES
// =============================================================================

// Conversation is one row of the conversation list.
type Conversation struct {
	ID        model.ID  `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DisplayTitle returns the title, or a placeholder for untitled rows.
func (c Conversation) DisplayTitle() string {
	if t := strings.TrimSpace(c.Title); t != "" {
		return t
	}
	return "Untitled conversation"
}

// storedMessage is the wire form of a saved message.
type storedMessage struct {
	ID        model.ID   `json:"id"`
	Role      model.Role `json:"role"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Config holds directory client options.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Tokens     chatapi.TokenSource
	HTTPClient *http.Client
}

// Client talks to the conversation endpoints.
type Client struct {
	baseURL    string
	tokens     chatapi.TokenSource
	httpClient *http.Client
}

// NewClient creates a directory client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		tokens:     cfg.Tokens,
		httpClient: httpClient,
	}
}

// Conversations returns the saved conversations, most recent first.
func (c *Client) Conversations(ctx context.Context) ([]Conversation, error) {
	var out []Conversation
	if err := c.get(ctx, "/api/conversations", &out); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Messages returns the stored messages of conversation id in order.
func (c *Client) Messages(ctx context.Context, id model.ID) ([]model.Message, error) {
	var wire []storedMessage
	path := "/api/conversations/" + url.PathEscape(id.String()) + "/messages"
	if err := c.get(ctx, path, &wire); err != nil {
		return nil, err
	}

	msgs := make([]model.Message, 0, len(wire))
	for _, w := range wire {
		if !w.Role.Valid() {
			continue
		}
		msgs = append(msgs, model.Message{
			ID:        w.ID.String(),
			Role:      w.Role,
			Content:   w.Content,
			Timestamp: w.Timestamp,
		})
	}
	return msgs, nil
}

func (c *Client) get(ctx context.Context, path string, into any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return chatapi.TransportError("failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if err := chatapi.Authorize(ctx, req, c.tokens); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return chatapi.TransportError("directory request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return chatapi.StatusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return chatapi.TransportError("failed to decode response", err)
	}
	return nil
}
