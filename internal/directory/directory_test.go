// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/cradle-tui/internal/chatapi"
	"github.com/jeranaias/cradle-tui/internal/eventloop"
	"github.com/jeranaias/cradle-tui/internal/model"
)

// =============================================================================
// CLIENT TESTS
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/conversations", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"not signed in"}`))
			return
		}
		w.Write([]byte(`[
			{"id": 1, "title": "Teething", "updatedAt": "2025-01-01T10:00:00Z"},
			{"id": "c_2", "title": "", "updatedAt": "2025-03-01T10:00:00Z"}
		]`))
	})
	mux.HandleFunc("/api/conversations/c_2/messages", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id": 10, "role": "user", "content": "Tell me about night wakings", "timestamp": "2025-03-01T10:00:00Z"},
			{"id": 11, "role": "assistant", "content": "They are normal.", "timestamp": "2025-03-01T10:00:05Z"},
			{"id": 12, "role": "system", "content": "hidden", "timestamp": "2025-03-01T10:00:06Z"}
		]`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestClient_Conversations(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(Config{BaseURL: server.URL + "/", Tokens: chatapi.StaticToken("tok")})

	convs, err := client.Conversations(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 2)

	assert.Equal(t, model.ID("c_2"), convs[0].ID, "most recent first")
	assert.Equal(t, "Untitled conversation", convs[0].DisplayTitle())
	assert.Equal(t, model.ID("1"), convs[1].ID)
	assert.Equal(t, "Teething", convs[1].DisplayTitle())
}

func TestClient_ConversationsUnauthorized(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(Config{BaseURL: server.URL})

	_, err := client.Conversations(context.Background())
	require.Error(t, err)
	assert.True(t, chatapi.IsServer(err))
	assert.Contains(t, err.Error(), "not signed in")
}

func TestClient_Messages(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(Config{BaseURL: server.URL})

	msgs, err := client.Messages(context.Background(), "c_2")
	require.NoError(t, err)
	require.Len(t, msgs, 2, "unknown roles are skipped")
	assert.Equal(t, "10", msgs[0].ID)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.False(t, msgs[1].Pending)
}

func TestClient_TransportError(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	_, err := client.Conversations(context.Background())
	assert.True(t, chatapi.IsTransport(err))
}

// =============================================================================
// REFRESHER TESTS
// =============================================================================

type blockingLister struct {
	mu      sync.Mutex
	release chan struct{}
	calls   atomic.Int32
}

func (l *blockingLister) Conversations(ctx context.Context) ([]Conversation, error) {
	l.calls.Add(1)
	l.mu.Lock()
	ch := l.release
	l.mu.Unlock()
	if ch != nil {
		<-ch
	}
	return []Conversation{{ID: "c_1"}}, nil
}

func TestRefresher_CoalescesWhileRunning(t *testing.T) {
	rt := eventloop.NewManual()
	lister := &blockingLister{release: make(chan struct{})}
	r := NewRefresher(context.Background(), rt, lister, time.Millisecond, nil)

	var results int
	r.OnResult(func(convs []Conversation, err error) {
		assert.NoError(t, err)
		results++
	})

	r.Refresh()
	r.Refresh()
	r.Refresh()
	assert.True(t, r.Running())
	assert.Equal(t, 1, r.Fetches())

	// Let the first fetch and the single follow-up complete.
	lister.mu.Lock()
	close(lister.release)
	lister.release = nil
	lister.mu.Unlock()

	require.True(t, rt.RunUntil(func() bool { return results == 2 && !r.Running() }, 2*time.Second))
	assert.Equal(t, 2, r.Fetches())
	assert.Equal(t, int32(2), lister.calls.Load())
}

func TestRefresher_RateLimited(t *testing.T) {
	rt := eventloop.NewManual()
	lister := &blockingLister{}
	r := NewRefresher(context.Background(), rt, lister, 100*time.Millisecond, nil)

	var at []time.Time
	r.OnResult(func([]Conversation, error) { at = append(at, time.Now()) })

	r.Refresh()
	require.True(t, rt.RunUntil(func() bool { return len(at) == 1 }, 2*time.Second))
	r.Refresh()
	require.True(t, rt.RunUntil(func() bool { return len(at) == 2 }, 2*time.Second))

	assert.GreaterOrEqual(t, at[1].Sub(at[0]), 80*time.Millisecond)
}

func TestRefresher_CancelledContext(t *testing.T) {
	rt := eventloop.NewManual()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewRefresher(ctx, rt, &blockingLister{}, time.Second, nil)

	var gotErr error
	done := false
	r.OnResult(func(_ []Conversation, err error) { gotErr, done = err, true })
	r.Refresh()

	require.True(t, rt.RunUntil(func() bool { return done }, 2*time.Second))
	assert.Error(t, gotErr)
}
