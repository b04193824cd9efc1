package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/samuel/go-metrics/metrics"
	"github.com/tecnotop/backend/libs/errors"
	"github.com/tecnotop/backend/libs/golog"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the request body for the chat completions endpoint.
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Choice is one completion candidate.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage reports token consumption for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionResponse is the response body for the chat completions endpoint.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Content returns the text of the first choice.
func (r *ChatCompletionResponse) Content() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// APIError is an error response from the API.
type APIError struct {
	StatusCode int
	Message    string `json:"message"`
	Type       string `json:"type"`
	Code       string `json:"code"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openai: %s (type %s, code %s, status %d)", e.Message, e.Type, e.Code, e.StatusCode)
}

// Retryable reports whether the request that produced the error may
// succeed when retried.
func (e *APIError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Client is the interface for the chat completions API.
type Client interface {
	ChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)
	Ping(ctx context.Context) error
}

// Config configures a client.
type Config struct {
	APIKey  string
	BaseURL string
	// Model used for Ping probes.
	PingModel string
	// MaxRetries is the number of additional attempts on retryable
	// failures. Defaults to 3.
	MaxRetries int
	// RetryDelay is the base delay between attempts, scaled linearly by
	// the attempt number. Defaults to 1s.
	RetryDelay time.Duration
	HTTPClient *http.Client
}

type client struct {
	apiKey     string
	baseURL    string
	pingModel  string
	maxRetries int
	retryDelay time.Duration
	httpClient *http.Client

	statCompletionSucceeded *metrics.Counter
	statCompletionFailed    *metrics.Counter
	statLatency             metrics.Histogram
}

// NewClient returns a chat completions client.
func NewClient(cfg Config, metricsRegistry metrics.Registry) Client {
	c := &client{
		apiKey:                  cfg.APIKey,
		baseURL:                 cfg.BaseURL,
		pingModel:               cfg.PingModel,
		maxRetries:              cfg.MaxRetries,
		retryDelay:              cfg.RetryDelay,
		httpClient:              cfg.HTTPClient,
		statCompletionSucceeded: metrics.NewCounter(),
		statCompletionFailed:    metrics.NewCounter(),
		statLatency:             metrics.NewUnbiasedHistogram(),
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.pingModel == "" {
		c.pingModel = "gpt-4o-mini"
	}
	if c.maxRetries == 0 {
		c.maxRetries = 3
	}
	if c.retryDelay == 0 {
		c.retryDelay = time.Second
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: time.Second * 60}
	}
	if metricsRegistry != nil {
		metricsRegistry.Add("completion/succeeded", c.statCompletionSucceeded)
		metricsRegistry.Add("completion/failed", c.statCompletionFailed)
		metricsRegistry.Add("completion/latency", c.statLatency)
	}
	return c
}

func (c *client) ChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	var res ChatCompletionResponse
	var err error
	for attempt := 1; ; attempt++ {
		startTime := time.Now()
		err = c.post(ctx, "/chat/completions", req, &res)
		c.statLatency.Update(time.Since(startTime).Nanoseconds() / 1e6)
		if err == nil {
			c.statCompletionSucceeded.Inc(1)
			return &res, nil
		}
		var ae *APIError
		if attempt > c.maxRetries || !errors.As(err, &ae) || !ae.Retryable() {
			break
		}
		golog.Warningf("Completion attempt %d failed, retrying: %s", attempt, err)
		select {
		case <-ctx.Done():
			return nil, errors.Trace(ctx.Err())
		case <-time.After(c.retryDelay * time.Duration(attempt)):
		}
	}
	c.statCompletionFailed.Inc(1)
	return nil, errors.Trace(err)
}

// Ping runs a minimal completion to verify connectivity and credentials.
func (c *client) Ping(ctx context.Context) error {
	_, err := c.ChatCompletion(ctx, &ChatCompletionRequest{
		Model:     c.pingModel,
		Messages:  []Message{{Role: "user", Content: "ping"}},
		MaxTokens: 1,
	})
	return errors.Trace(err)
}

func (c *client) post(ctx context.Context, path string, req, res interface{}) error {
	body, err := json.Marshal(req)
	if err != nil {
		return errors.Trace(err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Trace(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return errors.Trace(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var e struct {
			Error APIError `json:"error"`
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&e); err != nil {
			return &APIError{StatusCode: resp.StatusCode, Message: "failed to decode error response"}
		}
		e.Error.StatusCode = resp.StatusCode
		return &e.Error
	}
	return errors.Trace(json.NewDecoder(resp.Body).Decode(res))
}
