// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/cradle-tui/internal/model"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

const (
	defaultBaseURL = "http://127.0.0.1:8080"
	defaultTimeout = 60 * time.Second
	readChunkSize  = 4096
	eventBuffer    = 16
)

// ClientConfig holds configuration options for the chat client.
type ClientConfig struct {
	// BaseURL is the service root (default: http://127.0.0.1:8080)
	BaseURL string

	// Timeout for non-streaming requests (default: 60s). The framed path
	// is bounded by the caller's context only.
	Timeout time.Duration

	// Tokens supplies the bearer token. Nil sends no Authorization header.
	Tokens TokenSource

	// StreamSupport is consulted before every send (default: EnvProbe).
	StreamSupport StreamSupport

	// MaxLineSize caps a single framed record (default: MaxLineSize).
	MaxLineSize int

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client

	// Logger receives ParseError and fallback diagnostics.
	Logger *zerolog.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:       defaultBaseURL,
		Timeout:       defaultTimeout,
		StreamSupport: EnvProbe,
		MaxLineSize:   MaxLineSize,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client sends chat messages to the cradle service.
//
// The Client is safe for concurrent use; each send owns its own stream
// state.
type Client struct {
	config       *ClientConfig
	httpClient   *http.Client
	streamClient *http.Client
	log          zerolog.Logger
}

// NewClient creates a new client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.StreamSupport == nil {
		config.StreamSupport = EnvProbe
	}
	if config.MaxLineSize <= 0 {
		config.MaxLineSize = MaxLineSize
	}

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	c := &Client{
		config: config,
		log:    logger.With().Str("component", "chatapi").Logger(),
	}
	if config.HTTPClient != nil {
		c.httpClient = config.HTTPClient
		c.streamClient = config.HTTPClient
	} else {
		c.httpClient = &http.Client{Timeout: config.Timeout}
		// Streaming replies can outlive any fixed timeout; the context bounds them.
		c.streamClient = &http.Client{}
	}
	return c
}

// GetConfig returns the client configuration.
func (c *Client) GetConfig() *ClientConfig {
	return c.config
}

// =============================================================================
// SEND
// =============================================================================

// Send delivers req and blocks until the reply completes. onProgress, if
// non-nil, receives the cumulative text once per fragment on the calling
// goroutine. Errors are KindTransport or KindServer.
func (c *Client) Send(ctx context.Context, req Request, onProgress ProgressFunc) (Result, error) {
	var (
		final    *Result
		finalErr error
	)
	for ev := range c.Stream(ctx, req) {
		switch ev.Kind {
		case EventFragment:
			if onProgress != nil {
				onProgress(ev.Text)
			}
		case EventDone:
			final = ev.Result
		case EventError:
			finalErr = ev.Err
		}
	}

	switch {
	case finalErr != nil:
		return Result{}, finalErr
	case final != nil:
		return *final, nil
	default:
		// Channel closed without a terminal event: the context ended first.
		return Result{}, transportError("send aborted", ctx.Err())
	}
}

// =============================================================================
// STREAM
// =============================================================================

// Stream delivers req and returns a channel of reply events. The channel
// carries zero or more EventFragment values followed by exactly one
// EventDone or EventError, then closes. If ctx ends while the consumer is
// not reading, the terminal event may be dropped; the channel still closes.
func (c *Client) Stream(ctx context.Context, req Request) <-chan Event {
	ch := make(chan Event, eventBuffer)

	go func() {
		defer close(ch)

		p := &producer{ctx: ctx, ch: ch}
		res, err := c.produce(ctx, req, p)
		if err != nil {
			p.emit(Event{Kind: EventError, Err: err})
			return
		}
		p.emit(Event{
			Kind:           EventDone,
			Text:           res.Text,
			ConversationID: res.ConversationID,
			Title:          res.Title,
			Result:         &res,
		})
	}()

	return ch
}

// producer tracks what has been emitted so fragments carry correct deltas.
type producer struct {
	ctx  context.Context
	ch   chan<- Event
	last string
}

// emit sends ev unless the context has ended. It reports whether the event
// was delivered.
func (p *producer) emit(ev Event) bool {
	select {
	case p.ch <- ev:
		return true
	case <-p.ctx.Done():
		return false
	}
}

// fragment emits the cumulative text as an EventFragment.
func (p *producer) fragment(text string) bool {
	ev := Event{Kind: EventFragment, Text: text}
	if strings.HasPrefix(text, p.last) {
		ev.Delta = text[len(p.last):]
	} else {
		ev.Delta = text
		ev.Replaced = true
	}
	p.last = text
	return p.emit(ev)
}

// produce runs the probe, the framed attempt and the single fallback.
func (c *Client) produce(ctx context.Context, req Request, p *producer) (Result, error) {
	if strings.TrimSpace(req.Message) == "" {
		return Result{}, ErrEmptyMessage
	}

	requestID := uuid.NewString()
	log := c.log.With().Str("request_id", requestID).Logger()

	if !c.config.StreamSupport() {
		log.Debug().Msg("streaming unsupported, using plain request")
		return c.sendPlain(ctx, req, requestID, p)
	}

	res, err := c.sendFramed(ctx, req, requestID, p, log)
	if err == nil {
		return res, nil
	}
	if !IsTransport(err) || ctx.Err() != nil {
		return Result{}, err
	}

	log.Warn().Err(err).Msg("framed stream failed, retrying without streaming")
	res, err = c.sendPlain(ctx, req, requestID, p)
	if err != nil {
		return Result{}, err
	}
	res.FellBack = true
	return res, nil
}

// =============================================================================
// FRAMED PATH
// =============================================================================

// streamState is the per-send state of the framed path.
type streamState struct {
	framer         *Framer
	text           strings.Builder
	conversationID model.ID
	title          string
	terminal       bool
}

func (c *Client) sendFramed(ctx context.Context, req Request, requestID string, p *producer, log zerolog.Logger) (Result, error) {
	httpReq, err := c.newChatRequest(ctx, req, true, requestID)
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return Result{}, transportError("stream request failed", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, statusError(resp)
	}

	st := &streamState{framer: NewFramer(c.config.MaxLineSize)}
	buf := make([]byte, readChunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			lines, ferr := st.framer.Feed(buf[:n])
			for _, line := range lines {
				if done, err := c.apply(st, line, p, log); err != nil || done {
					return c.finish(st, req, err)
				}
			}
			if ferr != nil {
				return Result{}, ferr
			}
		}

		if readErr == nil {
			continue
		}
		if errors.Is(readErr, io.EOF) {
			if last := st.framer.Flush(); last != "" {
				if done, err := c.apply(st, last, p, log); err != nil || done {
					return c.finish(st, req, err)
				}
			}
			return Result{}, ErrStreamIncomplete
		}
		return Result{}, transportError("stream read failed", readErr)
	}
}

// apply folds one line into st. It reports done on a completion record.
func (c *Client) apply(st *streamState, line string, p *producer, log zerolog.Logger) (bool, error) {
	rec, ok, err := parseRecord(line)
	if err != nil {
		log.Warn().Err(err).Int("bytes", len(line)).Msg("skipping stream record")
		return false, nil
	}
	if !ok {
		return false, nil
	}

	if rec.Error != "" {
		return false, serverError(string(rec.Error), 0)
	}
	if !rec.ConversationID.IsZero() {
		st.conversationID = rec.ConversationID
	}
	if rec.Title != "" {
		st.title = rec.Title
	}
	if rec.Content != "" {
		st.text.WriteString(rec.Content)
		if !p.fragment(st.text.String()) {
			return false, transportError("stream aborted", p.ctx.Err())
		}
	}
	if rec.Done {
		st.terminal = true
		return true, nil
	}
	return false, nil
}

func (c *Client) finish(st *streamState, req Request, err error) (Result, error) {
	if err != nil {
		return Result{}, err
	}
	res := Result{
		Text:           st.text.String(),
		ConversationID: st.conversationID,
		Title:          st.title,
		Streamed:       true,
	}
	if res.ConversationID.IsZero() {
		res.ConversationID = req.ConversationID
	}
	return res, nil
}

// =============================================================================
// PLAIN PATH
// =============================================================================

func (c *Client) sendPlain(ctx context.Context, req Request, requestID string, p *producer) (Result, error) {
	httpReq, err := c.newChatRequest(ctx, req, false, requestID)
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, transportError("chat request failed", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, statusError(resp)
	}

	var body chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{}, transportError("failed to decode response", err)
	}
	if body.Error != "" {
		return Result{}, serverError(string(body.Error), resp.StatusCode)
	}

	if !p.fragment(body.Response) {
		return Result{}, transportError("send aborted", ctx.Err())
	}

	res := Result{
		Text:           body.Response,
		ConversationID: body.ConversationID,
		Title:          body.Title,
	}
	if res.ConversationID.IsZero() {
		res.ConversationID = req.ConversationID
	}
	return res, nil
}

// =============================================================================
// HTTP HELPERS
// =============================================================================

func (c *Client) newChatRequest(ctx context.Context, req Request, stream bool, requestID string) (*http.Request, error) {
	body, err := json.Marshal(chatRequest{
		Message:        req.Message,
		ConversationID: req.ConversationID,
		Stream:         stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, transportError("failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)

	if err := Authorize(ctx, httpReq, c.config.Tokens); err != nil {
		return nil, err
	}
	return httpReq, nil
}

// Authorize sets the bearer header from tokens. Nil tokens or an empty
// token leave the request unauthenticated.
func Authorize(ctx context.Context, req *http.Request, tokens TokenSource) error {
	if tokens == nil {
		return nil
	}
	token, err := tokens.Token(ctx)
	if err != nil {
		return transportError("failed to obtain token", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

// statusError builds a KindServer error from a non-2xx reply, preferring the
// server's own {"error": "..."} message.
func statusError(resp *http.Response) *Error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Error errorField `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return serverError(string(body.Error), resp.StatusCode)
	}
	text := http.StatusText(resp.StatusCode)
	if text == "" {
		text = resp.Status
	}
	return serverError(text, resp.StatusCode)
}

// StatusError is statusError for sibling API clients.
func StatusError(resp *http.Response) error {
	return statusError(resp)
}

// TransportError wraps cause as a KindTransport error.
func TransportError(msg string, cause error) error {
	return transportError(msg, cause)
}

// drainAndClose lets the connection be reused.
func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, io.LimitReader(r, 64<<10))
	r.Close()
}
