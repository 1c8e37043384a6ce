package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	calls   atomic.Int32
	handler http.HandlerFunc

	mu      sync.Mutex
	lastReq map[string]any
}

func (fp *fakeProvider) last() map[string]any {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.lastReq
}

func newFakeProvider(t *testing.T, handler http.HandlerFunc) (*fakeProvider, *httptest.Server) {
	t.Helper()
	fp := &fakeProvider{handler: handler}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fp.calls.Add(1)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		fp.mu.Lock()
		fp.lastReq = body
		fp.mu.Unlock()
		fp.handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return fp, srv
}

func replyWith(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "gpt-3.5-turbo",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"}},
		})
	}
}

func failWith(status int, code, typ, msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": msg, "type": typ, "code": code},
		})
	}
}

func testClient(srv *httptest.Server, key string) *OpenAIClient {
	return NewOpenAIClient(Config{
		APIKey:      key,
		BaseURL:     srv.URL + "/v1",
		MaxTokens:   500,
		Temperature: 0.7,
		Timeout:     2 * time.Second,
	}, zerolog.Nop())
}

func TestComplete_Success(t *testing.T) {
	fp, srv := newFakeProvider(t, replyWith("Take Data Structures next term."))
	c := testClient(srv, "sk-test")

	out := c.Complete(context.Background(), []Message{
		{Role: RoleSystem, Text: "You are CampusAI."},
		{Role: RoleUser, Text: "What courses should I take?"},
	})

	require.True(t, out.OK())
	assert.Equal(t, "Take Data Structures next term.", out.Text())
	assert.Equal(t, int32(1), fp.calls.Load())

	req := fp.last()
	assert.Equal(t, "gpt-3.5-turbo", req["model"])
	assert.EqualValues(t, 500, req["max_tokens"])
	assert.InDelta(t, 0.7, req["temperature"], 0.0001)
	msgs, ok := req["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "What courses should I take?", msgs[1].(map[string]any)["content"])
}

func TestComplete_UnconfiguredNeverCallsProvider(t *testing.T) {
	fp, srv := newFakeProvider(t, replyWith("should not happen"))
	c := testClient(srv, "   ")

	require.False(t, c.Configured())
	for i := 0; i < 3; i++ {
		out := c.Complete(context.Background(), []Message{{Role: RoleUser, Text: "hi"}})
		require.False(t, out.OK())
		assert.Equal(t, KindUnconfigured, out.Kind())
		assert.Equal(t, KindUnconfigured.Message(), out.Text())
	}
	assert.Equal(t, int32(0), fp.calls.Load())
}

func TestComplete_ProviderFailuresAreClassified(t *testing.T) {
	const rawText = "secret-internal-provider-detail"

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    FailureKind
	}{
		{"rate limited", failWith(http.StatusTooManyRequests, "rate_limit_exceeded", "requests", rawText), KindRateLimited},
		{"quota", failWith(http.StatusTooManyRequests, "insufficient_quota", "insufficient_quota", rawText), KindQuotaExceeded},
		{"bad key", failWith(http.StatusUnauthorized, "invalid_api_key", "invalid_request_error", rawText), KindBadCredential},
		{"401 without code", failWith(http.StatusUnauthorized, "", "invalid_request_error", rawText), KindBadCredential},
		{"server error", failWith(http.StatusInternalServerError, "server_error", "server_error", rawText), KindUnknown},
		{"non-json body", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(rawText))
		}, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := newFakeProvider(t, tt.handler)
			c := testClient(srv, "sk-test")

			out := c.Complete(context.Background(), []Message{{Role: RoleUser, Text: "hi"}})

			require.False(t, out.OK())
			assert.Equal(t, tt.want, out.Kind())
			assert.Equal(t, tt.want.Message(), out.Text())
			assert.NotContains(t, out.Text(), rawText)
		})
	}
}

func TestComplete_RateLimitMessageVerbatim(t *testing.T) {
	_, srv := newFakeProvider(t, failWith(http.StatusTooManyRequests, "rate_limit_exceeded", "requests", "Rate limit reached"))
	c := testClient(srv, "sk-test")

	out := c.Complete(context.Background(), []Message{{Role: RoleUser, Text: "hi"}})

	assert.Equal(t, KindRateLimited, out.Kind())
	assert.Equal(t, "I'm receiving too many requests right now. Please wait a moment and try again.", out.Text())
}

func TestComplete_TimeoutIsUnknown(t *testing.T) {
	_, srv := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	c := NewOpenAIClient(Config{
		APIKey:  "sk-test",
		BaseURL: srv.URL + "/v1",
		Timeout: 50 * time.Millisecond,
	}, zerolog.Nop())

	out := c.Complete(context.Background(), []Message{{Role: RoleUser, Text: "hi"}})

	assert.Equal(t, KindUnknown, out.Kind())
}

func TestComplete_EmptyChoicesIsUnknown(t *testing.T) {
	_, srv := newFakeProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	})
	c := testClient(srv, "sk-test")

	out := c.Complete(context.Background(), []Message{{Role: RoleUser, Text: "hi"}})

	assert.Equal(t, KindUnknown, out.Kind())
}

func TestPing(t *testing.T) {
	fp, srv := newFakeProvider(t, replyWith("Test successful"))
	c := testClient(srv, "sk-test")

	text, kind := c.Ping(context.Background())

	assert.Empty(t, kind)
	assert.Equal(t, "Test successful", text)
	assert.EqualValues(t, 10, fp.last()["max_tokens"])

	unconfigured := testClient(srv, "")
	_, kind = unconfigured.Ping(context.Background())
	assert.Equal(t, KindUnconfigured, kind)
	assert.Equal(t, int32(1), fp.calls.Load())
}
