// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/cradle-tui/internal/model"
)

// =============================================================================
// TEST SERVER
// =============================================================================

// fakeService records requests and answers framed and plain calls with the
// configured handlers.
type fakeService struct {
	mu       sync.Mutex
	requests []chatRequest
	headers  []http.Header

	framed func(w http.ResponseWriter, f http.Flusher)
	plain  func(w http.ResponseWriter)
}

func (s *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.headers = append(s.headers, r.Header.Clone())
	s.mu.Unlock()

	if req.Stream && s.framed != nil {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		s.framed(w, w.(http.Flusher))
		return
	}
	if s.plain != nil {
		s.plain(w)
		return
	}
	http.Error(w, "unexpected request", http.StatusTeapot)
}

func (s *fakeService) calls() []chatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chatRequest(nil), s.requests...)
}

// writeLines writes each string as its own flushed read.
func writeLines(w http.ResponseWriter, f http.Flusher, parts ...string) {
	for _, p := range parts {
		fmt.Fprint(w, p)
		f.Flush()
	}
}

func newTestClient(t *testing.T, svc *fakeService, probe StreamSupport) *Client {
	t.Helper()
	server := httptest.NewServer(svc)
	t.Cleanup(server.Close)

	return NewClientWithConfig(&ClientConfig{
		BaseURL:       server.URL,
		Timeout:       5 * time.Second,
		Tokens:        StaticToken("tok-123"),
		StreamSupport: probe,
	})
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// =============================================================================
// FRAMED PATH TESTS
// =============================================================================

func TestSend_StreamedFragments(t *testing.T) {
	svc := &fakeService{
		framed: func(w http.ResponseWriter, f http.Flusher) {
			writeLines(w, f,
				"data: {\"content\":\"Night \"}\n",
				"data: {\"content\":\"wakings",
				" are\"}\ndata: {\"content\":\" normal.\"}\n",
				"data: {\"done\":true,\"conversationId\":\"c_7\",\"title\":\"Night wakings\"}\n",
			)
		},
	}
	client := newTestClient(t, svc, Always)

	var trace []string
	res, err := client.Send(testContext(t), Request{Message: "Tell me about night wakings"}, func(text string) {
		trace = append(trace, text)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Night ", "Night wakings are", "Night wakings are normal."}, trace)
	assert.Equal(t, "Night wakings are normal.", res.Text)
	assert.Equal(t, model.ID("c_7"), res.ConversationID)
	assert.Equal(t, "Night wakings", res.Title)
	assert.True(t, res.Streamed)
	assert.False(t, res.FellBack)
	assert.Len(t, svc.calls(), 1)
}

func TestSend_MalformedLineSkipped(t *testing.T) {
	svc := &fakeService{
		framed: func(w http.ResponseWriter, f http.Flusher) {
			writeLines(w, f,
				"data: {\"content\":\"A\"}\n",
				"data: {not json}\n",
				"data: {\"content\":\"B\"}\n",
				"data: [DONE]\n",
			)
		},
	}
	client := newTestClient(t, svc, Always)

	var trace []string
	res, err := client.Send(testContext(t), Request{Message: "hi", ConversationID: "c_1"}, func(text string) {
		trace = append(trace, text)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "AB"}, trace)
	assert.Equal(t, "AB", res.Text)
	// No id in the stream: the caller's id is kept.
	assert.Equal(t, model.ID("c_1"), res.ConversationID)
}

func TestSend_CompletionWithoutTrailingNewline(t *testing.T) {
	svc := &fakeService{
		framed: func(w http.ResponseWriter, f http.Flusher) {
			writeLines(w, f, "data: {\"content\":\"ok\"}\n", "data: {\"done\":true}")
		},
	}
	client := newTestClient(t, svc, Always)

	res, err := client.Send(testContext(t), Request{Message: "hi"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
}

func TestSend_ServerErrorRecordNotRetried(t *testing.T) {
	svc := &fakeService{
		framed: func(w http.ResponseWriter, f http.Flusher) {
			writeLines(w, f, "data: {\"content\":\"par\"}\n", "data: {\"error\":\"model overloaded\"}\n")
		},
		plain: func(w http.ResponseWriter) {
			t.Error("plain path must not be used after a server error")
		},
	}
	client := newTestClient(t, svc, Always)

	_, err := client.Send(testContext(t), Request{Message: "hi"}, nil)
	require.Error(t, err)
	assert.True(t, IsServer(err))
	assert.Contains(t, err.Error(), "model overloaded")
	assert.Len(t, svc.calls(), 1)
}

func TestSend_HTTPErrorStatus(t *testing.T) {
	svc := &fakeService{
		framed: nil,
		plain: func(w http.ResponseWriter) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"database unavailable"}`))
		},
	}
	client := newTestClient(t, svc, Never)

	_, err := client.Send(testContext(t), Request{Message: "hi"}, nil)
	require.Error(t, err)

	var clientErr *Error
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, KindServer, clientErr.Kind)
	assert.Equal(t, http.StatusInternalServerError, clientErr.Status)
	assert.Equal(t, "database unavailable", clientErr.Message)
}

// =============================================================================
// FALLBACK TESTS
// =============================================================================

func TestSend_FallbackAfterIncompleteStream(t *testing.T) {
	svc := &fakeService{
		framed: func(w http.ResponseWriter, f http.Flusher) {
			// Body ends without a completion record.
		},
		plain: func(w http.ResponseWriter) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"response":"Hello world","conversationId":"c_9","title":"Greeting"}`))
		},
	}
	client := newTestClient(t, svc, Always)

	var trace []int
	res, err := client.Send(testContext(t), Request{Message: "hi"}, func(text string) {
		trace = append(trace, len(text))
	})
	require.NoError(t, err)

	assert.Equal(t, []int{11}, trace, "fallback reports the full text exactly once")
	assert.Equal(t, "Hello world", res.Text)
	assert.Equal(t, model.ID("c_9"), res.ConversationID)
	assert.True(t, res.FellBack)

	calls := svc.calls()
	require.Len(t, calls, 2)
	assert.True(t, calls[0].Stream)
	assert.False(t, calls[1].Stream)
}

func TestSend_SecondFailurePropagates(t *testing.T) {
	svc := &fakeService{
		framed: func(w http.ResponseWriter, f http.Flusher) {
			writeLines(w, f, "data: {\"content\":\"Hel\"}\n")
		},
		plain: func(w http.ResponseWriter) {
			w.Write([]byte(`{"response":`))
		},
	}
	client := newTestClient(t, svc, Always)

	_, err := client.Send(testContext(t), Request{Message: "hi"}, nil)
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Len(t, svc.calls(), 2, "exactly one fallback attempt")
}

func TestSend_ProbeRejectedUsesPlainOnly(t *testing.T) {
	svc := &fakeService{
		plain: func(w http.ResponseWriter) {
			w.Write([]byte(`{"response":"Hello world"}`))
		},
	}
	client := newTestClient(t, svc, Never)

	res, err := client.Send(testContext(t), Request{Message: "hi", ConversationID: "c_2"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", res.Text)
	assert.Equal(t, model.ID("c_2"), res.ConversationID)
	assert.False(t, res.FellBack)
	assert.False(t, res.Streamed)

	calls := svc.calls()
	require.Len(t, calls, 1)
	assert.False(t, calls[0].Stream)
}

// =============================================================================
// STREAM CHANNEL TESTS
// =============================================================================

func TestStream_ExactlyOneTerminalEvent(t *testing.T) {
	svc := &fakeService{
		framed: func(w http.ResponseWriter, f http.Flusher) {
			writeLines(w, f, "data: {\"content\":\"a\"}\n", "data: {\"content\":\"b\"}\n", "data: [DONE]\n")
		},
	}
	client := newTestClient(t, svc, Always)

	var events []Event
	for ev := range client.Stream(testContext(t), Request{Message: "hi"}) {
		events = append(events, ev)
	}
	require.Len(t, events, 3)

	assert.Equal(t, EventFragment, events[0].Kind)
	assert.Equal(t, "a", events[0].Delta)
	assert.Equal(t, "b", events[1].Delta)
	assert.Equal(t, "ab", events[1].Text)
	assert.Equal(t, EventDone, events[2].Kind)
	require.NotNil(t, events[2].Result)
	assert.Equal(t, "ab", events[2].Result.Text)

	terminals := 0
	for _, ev := range events {
		if ev.Terminal() {
			terminals++
		}
	}
	assert.Equal(t, 1, terminals)
}

func TestStream_FallbackMarksReplacedText(t *testing.T) {
	svc := &fakeService{
		framed: func(w http.ResponseWriter, f http.Flusher) {
			writeLines(w, f, "data: {\"content\":\"Hi th\"}\n")
		},
		plain: func(w http.ResponseWriter) {
			w.Write([]byte(`{"response":"Hello there"}`))
		},
	}
	client := newTestClient(t, svc, Always)

	var fragments []Event
	for ev := range client.Stream(testContext(t), Request{Message: "hi"}) {
		if ev.Kind == EventFragment {
			fragments = append(fragments, ev)
		}
	}
	require.Len(t, fragments, 2)
	assert.False(t, fragments[0].Replaced)
	assert.True(t, fragments[1].Replaced)
	assert.Equal(t, "Hello there", fragments[1].Delta)
}

func TestStream_EmptyMessage(t *testing.T) {
	client := NewClientWithConfig(&ClientConfig{BaseURL: "http://127.0.0.1:1"})

	var last Event
	for ev := range client.Stream(context.Background(), Request{Message: "   "}) {
		last = ev
	}
	assert.Equal(t, EventError, last.Kind)
	assert.ErrorIs(t, last.Err, ErrEmptyMessage)
}

// =============================================================================
// HEADER TESTS
// =============================================================================

func TestSend_RequestHeaders(t *testing.T) {
	svc := &fakeService{
		framed: func(w http.ResponseWriter, f http.Flusher) {
			writeLines(w, f, "data: [DONE]\n")
		},
	}
	client := newTestClient(t, svc, Always)

	_, err := client.Send(testContext(t), Request{Message: "hi"}, nil)
	require.NoError(t, err)

	svc.mu.Lock()
	h := svc.headers[0]
	svc.mu.Unlock()

	assert.Equal(t, "Bearer tok-123", h.Get("Authorization"))
	assert.Equal(t, "text/event-stream", h.Get("Accept"))
	_, err = uuid.Parse(h.Get("X-Request-ID"))
	assert.NoError(t, err, "X-Request-ID should be a uuid")
}

func TestEnvProbe(t *testing.T) {
	t.Setenv(NoStreamEnv, "")
	assert.True(t, EnvProbe())

	t.Setenv(NoStreamEnv, "1")
	assert.False(t, EnvProbe())

	t.Setenv(NoStreamEnv, "false")
	assert.True(t, EnvProbe())
}
