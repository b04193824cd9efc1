package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samuel/go-metrics/metrics"
	"github.com/tecnotop/backend/libs/errors"
	"github.com/tecnotop/backend/test"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cli := NewClient(Config{
		APIKey:     "sk-test",
		BaseURL:    srv.URL,
		RetryDelay: time.Millisecond,
	}, metrics.NewRegistry())
	return srv, cli
}

func TestChatCompletion(t *testing.T) {
	_, cli := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		test.Equals(t, "/chat/completions", r.URL.Path)
		test.Equals(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req ChatCompletionRequest
		test.OK(t, json.NewDecoder(r.Body).Decode(&req))
		test.Equals(t, "gpt-4o-mini", req.Model)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    "chatcmpl-1",
			"model": req.Model,
			"choices": []map[string]interface{}{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": "SELECT 1"}, "finish_reason": "stop"},
			},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13},
		})
	})

	res, err := cli.ChatCompletion(context.Background(), &ChatCompletionRequest{
		Model:       "gpt-4o-mini",
		Messages:    []Message{{Role: "user", Content: "oi"}},
		Temperature: 0.1,
	})
	test.OK(t, err)
	test.Equals(t, "SELECT 1", res.Content())
	test.Equals(t, 13, res.Usage.TotalTokens)
}

func TestChatCompletionRetries(t *testing.T) {
	var calls int64
	_, cli := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit_error"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "ok"}},
			},
		})
	})

	res, err := cli.ChatCompletion(context.Background(), &ChatCompletionRequest{
		Model:    "gpt-4o-mini",
		Messages: []Message{{Role: "user", Content: "oi"}},
	})
	test.OK(t, err)
	test.Equals(t, "ok", res.Content())
	test.Equals(t, int64(3), atomic.LoadInt64(&calls))
}

func TestChatCompletionAuthErrorNotRetried(t *testing.T) {
	var calls int64
	_, cli := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error","code":"invalid_api_key"}}`))
	})

	_, err := cli.ChatCompletion(context.Background(), &ChatCompletionRequest{
		Model:    "gpt-4o-mini",
		Messages: []Message{{Role: "user", Content: "oi"}},
	})
	test.Assert(t, err != nil, "expected error")
	var ae *APIError
	test.Assert(t, errors.As(err, &ae), "expected APIError, got %T", err)
	test.Equals(t, http.StatusUnauthorized, ae.StatusCode)
	test.Equals(t, int64(1), atomic.LoadInt64(&calls))
}
