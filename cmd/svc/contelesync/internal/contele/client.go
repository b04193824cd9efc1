package contele

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samuel/go-metrics/metrics"
	"github.com/tecnotop/backend/libs/errors"
	"github.com/tecnotop/backend/libs/golog"
	"github.com/tecnotop/backend/libs/ratelimit"
)

const userAgent = "TecnoTop-ConteleSync/1.0"

// ErrPermissionDenied is returned when the API rejects our credentials.
var ErrPermissionDenied = errors.New("contele: permission denied")

// TasksClient pages through the V2 tasks endpoint.
type TasksClient interface {
	// Tasks calls fn for every task in the period. It stops early when fn
	// returns an error.
	Tasks(ctx context.Context, since, to, timezone string, fn func(*Task) error) error
}

// FormsClient fetches filled-in forms linked to a task.
type FormsClient interface {
	ListFormsByTask(ctx context.Context, taskID string) (*FormsResponse, error)
}

// Config configures the API clients.
type Config struct {
	V2BaseURL       string
	V2Authorization string
	V2APIKey        string
	FormsBaseURL    string
	FormsBearer     string
	PerPage         int
	// MaxRetries is the number of GET attempts on retryable statuses.
	// Defaults to 4.
	MaxRetries int
	// RetryBackoff is the base delay, doubled on each attempt. Defaults
	// to 800ms.
	RetryBackoff time.Duration
	// RateLimiter paces API requests. Nil disables pacing.
	RateLimiter ratelimit.RateLimiter
	HTTPClient  *http.Client
}

type client struct {
	cfg Config

	statRequestSucceeded *metrics.Counter
	statRequestFailed    *metrics.Counter
	statRetries          *metrics.Counter
}

// NewClient returns a client for both the V2 and the forms APIs.
func NewClient(cfg Config, metricsRegistry metrics.Registry) interface {
	TasksClient
	FormsClient
} {
	if cfg.PerPage <= 0 {
		cfg.PerPage = 100
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 4
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 800 * time.Millisecond
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: time.Second * 60}
	}
	cfg.V2BaseURL = strings.TrimRight(cfg.V2BaseURL, "/")
	cfg.FormsBaseURL = strings.TrimRight(cfg.FormsBaseURL, "/")
	c := &client{
		cfg:                  cfg,
		statRequestSucceeded: metrics.NewCounter(),
		statRequestFailed:    metrics.NewCounter(),
		statRetries:          metrics.NewCounter(),
	}
	if metricsRegistry != nil {
		metricsRegistry.Add("request/succeeded", c.statRequestSucceeded)
		metricsRegistry.Add("request/failed", c.statRequestFailed)
		metricsRegistry.Add("request/retries", c.statRetries)
	}
	return c
}

type tasksPage struct {
	Items []json.RawMessage `json:"items"`
	Data  []json.RawMessage `json:"data"`
	Tasks []json.RawMessage `json:"tasks"`
	Total int               `json:"total"`
}

func (p *tasksPage) items() []json.RawMessage {
	if len(p.Items) != 0 {
		return p.Items
	}
	if len(p.Data) != 0 {
		return p.Data
	}
	return p.Tasks
}

func (c *client) Tasks(ctx context.Context, since, to, timezone string, fn func(*Task) error) error {
	for page := 1; ; page++ {
		params := url.Values{
			"page":      []string{strconv.Itoa(page)},
			"perPage":   []string{strconv.Itoa(c.cfg.PerPage)},
			"sinceDate": []string{since},
			"toDate":    []string{to},
			"timezone":  []string{timezone},
			"expand":    []string{"assignee"},
		}
		var res tasksPage
		if err := c.get(ctx, c.cfg.V2BaseURL+"/tasks", c.v2Headers(), params, &res); err != nil {
			return errors.Trace(err)
		}
		items := res.items()
		for _, raw := range items {
			var item map[string]interface{}
			if err := json.Unmarshal(raw, &item); err != nil {
				golog.Warningf("Skipping malformed task item: %s", err)
				continue
			}
			t := taskFromItem(item)
			if t.TaskID == "" {
				continue
			}
			if err := fn(t); err != nil {
				return errors.Trace(err)
			}
		}
		if res.Total > 0 && c.cfg.PerPage > 0 {
			lastPage := (res.Total + c.cfg.PerPage - 1) / c.cfg.PerPage
			if page >= lastPage {
				return nil
			}
		} else if len(items) == 0 || len(items) < c.cfg.PerPage {
			return nil
		}
	}
}

func (c *client) ListFormsByTask(ctx context.Context, taskID string) (*FormsResponse, error) {
	params := url.Values{
		"linked_urns":                          []string{"v0:cge:task:" + taskID},
		"page":                                 []string{"1"},
		"per_page":                             []string{"100"},
		"add_templates_information_to_form":    []string{"true"},
		"add_pois_information_to_form":         []string{"true"},
		"add_tasks_information_to_form":        []string{"true"},
		"add_users_information_to_form":        []string{"true"},
		"only_forms_with_answers":              []string{"true"},
	}
	var res FormsResponse
	if err := c.get(ctx, c.cfg.FormsBaseURL+"/api/v1/list-forms", c.formsHeaders(), params, &res); err != nil {
		return nil, errors.Trace(err)
	}
	return &res, nil
}

func (c *client) v2Headers() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.cfg.V2Authorization)
	h.Set("x-api-key", c.cfg.V2APIKey)
	h.Set("Accept", "application/json")
	h.Set("User-Agent", userAgent)
	return h
}

func (c *client) formsHeaders() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.cfg.FormsBearer)
	h.Set("Accept", "application/json")
	h.Set("User-Agent", userAgent)
	return h
}

// waitForSlot blocks until the rate limiter admits another request. A
// failing limiter lets the request through.
func (c *client) waitForSlot(ctx context.Context) error {
	if c.cfg.RateLimiter == nil {
		return nil
	}
	for {
		ok, err := c.cfg.RateLimiter.Check(1)
		if err != nil {
			golog.Warningf("Rate limit check failed: %s", err)
			return nil
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Trace(ctx.Err())
		case <-time.After(250 * time.Millisecond):
		}
	}
}

func (c *client) get(ctx context.Context, rawURL string, headers http.Header, params url.Values, out interface{}) error {
	for attempt := 0; ; attempt++ {
		if err := c.waitForSlot(ctx); err != nil {
			return errors.Trace(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL+"?"+params.Encode(), nil)
		if err != nil {
			return errors.Trace(err)
		}
		req.Header = headers
		resp, err := c.cfg.HTTPClient.Do(req)
		if err != nil {
			c.statRequestFailed.Inc(1)
			return errors.Trace(err)
		}
		switch {
		case resp.StatusCode == http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				c.statRequestFailed.Inc(1)
				return errors.Trace(err)
			}
			c.statRequestSucceeded.Inc(1)
			return nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			drain(resp)
			c.statRequestFailed.Inc(1)
			return errors.Annotatef(errors.Trace(ErrPermissionDenied), "GET %s => %d", rawURL, resp.StatusCode)
		case retryableStatus(resp.StatusCode) && attempt < c.cfg.MaxRetries-1:
			drain(resp)
			wait := c.cfg.RetryBackoff * (1 << uint(attempt))
			golog.Warningf("GET %s => %d. Retrying in %s", rawURL, resp.StatusCode, wait)
			c.statRetries.Inc(1)
			select {
			case <-ctx.Done():
				return errors.Trace(ctx.Err())
			case <-time.After(wait):
			}
		default:
			drain(resp)
			c.statRequestFailed.Inc(1)
			return errors.Errorf("contele: GET %s returned status %d", rawURL, resp.StatusCode)
		}
	}
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()
}

// taskFromItem normalizes a task item tolerating the field name variants the
// API is known to produce.
func taskFromItem(item map[string]interface{}) *Task {
	t := &Task{
		TaskID: firstString(item, "id", "taskId"),
		OS:     firstString(item, "os", "order", "number"),
		Title:  stringValue(item["title"]),
		Status: stringValue(item["status"]),
	}
	if poi, ok := item["poi"].(map[string]interface{}); ok {
		t.POI = stringValue(poi["name"])
	} else {
		t.POI = firstString(item, "poi_name", "poiName")
	}
	if assignee, ok := item["assignee"].(map[string]interface{}); ok {
		t.AssigneeName = stringValue(assignee["name"])
		t.AssigneeID = stringValue(assignee["id"])
	} else {
		t.AssigneeName = stringValue(item["assignee_name"])
		t.AssigneeID = stringValue(item["assignee_id"])
	}
	t.CreatedAt = firstString(item, "created_at", "createdAt")
	t.FinishedAt = firstString(item, "finished_at", "finishedAt")
	t.UpdatedAt = firstString(item, "updated_at", "updatedAt")
	if t.UpdatedAt == "" {
		t.UpdatedAt = t.CreatedAt
	}
	return t
}

func firstString(item map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s := stringValue(item[k]); s != "" {
			return s
		}
	}
	return ""
}

func stringValue(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
