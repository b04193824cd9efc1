package contele

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samuel/go-metrics/metrics"
	"github.com/tecnotop/backend/libs/errors"
	"github.com/tecnotop/backend/test"
)

func newTasksServer(t *testing.T, handler http.HandlerFunc) (TasksClient, FormsClient) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cli := NewClient(Config{
		V2BaseURL:       srv.URL,
		V2Authorization: "v2-token",
		V2APIKey:        "v2-key",
		FormsBaseURL:    srv.URL,
		FormsBearer:     "forms-token",
		PerPage:         2,
		RetryBackoff:    time.Millisecond,
	}, metrics.NewRegistry())
	return cli, cli
}

func TestTasksPagination(t *testing.T) {
	pages := map[string][]map[string]interface{}{
		"1": {
			{"id": "t1", "os": "100", "poi": map[string]interface{}{"name": "ACME"}, "title": "Visita", "status": "Concluída",
				"assignee": map[string]interface{}{"id": 7, "name": "Maria"}, "createdAt": "2025-02-01T12:00:00Z"},
			{"taskId": "t2", "order": "101", "poi_name": "Beta Ltda", "assignee_name": "João", "created_at": "2025-02-02T12:00:00Z", "updated_at": "2025-02-03T12:00:00Z"},
		},
		"2": {
			{"id": "t3", "number": "102"},
		},
	}
	cli, _ := newTasksServer(t, func(w http.ResponseWriter, r *http.Request) {
		test.Equals(t, "/tasks", r.URL.Path)
		test.Equals(t, "Bearer v2-token", r.Header.Get("Authorization"))
		test.Equals(t, "v2-key", r.Header.Get("x-api-key"))
		test.Equals(t, "assignee", r.URL.Query().Get("expand"))
		page := r.URL.Query().Get("page")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"items": pages[page],
			"total": 3,
		})
	})

	var got []*Task
	err := cli.Tasks(context.Background(), "2025-01-01", "2025-12-31", "America/Sao_Paulo", func(tk *Task) error {
		got = append(got, tk)
		return nil
	})
	test.OK(t, err)
	test.Equals(t, 3, len(got))

	test.Equals(t, "t1", got[0].TaskID)
	test.Equals(t, "100", got[0].OS)
	test.Equals(t, "ACME", got[0].POI)
	test.Equals(t, "Maria", got[0].AssigneeName)
	test.Equals(t, "7", got[0].AssigneeID)
	// updated_at falls back to created_at
	test.Equals(t, "2025-02-01T12:00:00Z", got[0].UpdatedAt)

	test.Equals(t, "t2", got[1].TaskID)
	test.Equals(t, "101", got[1].OS)
	test.Equals(t, "Beta Ltda", got[1].POI)
	test.Equals(t, "João", got[1].AssigneeName)
	test.Equals(t, "2025-02-03T12:00:00Z", got[1].UpdatedAt)

	test.Equals(t, "t3", got[2].TaskID)
	test.Equals(t, "102", got[2].OS)
}

func TestTasksShortPageStop(t *testing.T) {
	var calls int64
	cli, _ := newTasksServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		// No total returned, one item with perPage=2 means last page.
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{{"id": "t1"}},
		})
	})
	var n int
	err := cli.Tasks(context.Background(), "2025-01-01", "2025-12-31", "UTC", func(tk *Task) error {
		n++
		return nil
	})
	test.OK(t, err)
	test.Equals(t, 1, n)
	test.Equals(t, int64(1), atomic.LoadInt64(&calls))
}

func TestTasksRetryOnServerError(t *testing.T) {
	var calls int64
	cli, _ := newTasksServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"items": []map[string]interface{}{{"id": "t1"}},
		})
	})
	err := cli.Tasks(context.Background(), "2025-01-01", "2025-12-31", "UTC", func(tk *Task) error { return nil })
	test.OK(t, err)
	test.Equals(t, int64(3), atomic.LoadInt64(&calls))
}

type countingRateLimiter struct {
	checks int64
}

func (c *countingRateLimiter) Check(cost int) (bool, error) {
	atomic.AddInt64(&c.checks, 1)
	return true, nil
}

func TestTasksPacing(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"items": []map[string]interface{}{{"id": "t1"}, {"id": "t2"}},
			"total": 3,
		})
	}))
	defer srv.Close()

	rl := &countingRateLimiter{}
	cli := NewClient(Config{
		V2BaseURL:   srv.URL,
		PerPage:     2,
		RateLimiter: rl,
	}, nil)
	err := cli.Tasks(context.Background(), "2025-01-01", "2025-12-31", "UTC", func(tk *Task) error { return nil })
	test.OK(t, err)
	// Every request consults the limiter exactly once when it allows.
	test.Equals(t, atomic.LoadInt64(&calls), atomic.LoadInt64(&rl.checks))
}

func TestTasksPermissionDenied(t *testing.T) {
	cli, _ := newTasksServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	err := cli.Tasks(context.Background(), "2025-01-01", "2025-12-31", "UTC", func(tk *Task) error { return nil })
	test.Assert(t, errors.Is(err, ErrPermissionDenied), "expected permission denied, got %v", err)
}

func TestListFormsByTask(t *testing.T) {
	_, cli := newTasksServer(t, func(w http.ResponseWriter, r *http.Request) {
		test.Equals(t, "/api/v1/list-forms", r.URL.Path)
		test.Equals(t, "Bearer forms-token", r.Header.Get("Authorization"))
		test.Equals(t, "v0:cge:task:t1", r.URL.Query().Get("linked_urns"))
		test.Equals(t, "true", r.URL.Query().Get("only_forms_with_answers"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"forms": []map[string]interface{}{
				{
					"template": map[string]interface{}{
						"title": "Relatório de Visita Padrão",
						"segments": []map[string]interface{}{
							{"id": "q1", "title": "Qual objetivo da visita?", "options": []map[string]interface{}{
								{"id": "opt1", "label": "Prospecção"},
							}},
						},
					},
					"answers": []map[string]interface{}{
						{"form_question_id": "q1", "answer": "opt1", "created_at": "2025-02-01T13:00:00Z"},
					},
					"users": []map[string]interface{}{{"id": 9, "name": "Maria"}},
				},
			},
		})
	})

	res, err := cli.ListFormsByTask(context.Background(), "t1")
	test.OK(t, err)
	test.Equals(t, 1, len(res.Forms))
	form := res.Forms[0]
	optIndex, titleIndex, formTitle := BuildOptionIndex(form)
	test.Equals(t, "Relatório de Visita Padrão", formTitle)
	test.Equals(t, "Qual objetivo da visita?", titleIndex["q1"])
	test.Equals(t, "Prospecção", HumanizeAnswer("q1", form.Answers[0].Answer, optIndex))
}

func TestHumanizeAnswer(t *testing.T) {
	optIndex := OptionIndex{
		"q1": {"a": "Sim", "b": "Não"},
	}
	test.Equals(t, "Sim, Não", HumanizeAnswer("q1", "a, b", optIndex))
	// unknown option IDs pass through
	test.Equals(t, "Sim, zz", HumanizeAnswer("q1", "a,zz", optIndex))
	// non-option questions are stringified untouched
	test.Equals(t, "texto livre", HumanizeAnswer("q2", "texto livre", optIndex))
	test.Equals(t, "42", HumanizeAnswer("q2", 42, optIndex))
	test.Equals(t, "", HumanizeAnswer("q1", nil, optIndex))
}

func TestStringValue(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{"abc", "abc"},
		{float64(7), "7"},
		{7.5, "7.5"},
		{true, "true"},
	}
	for i, c := range cases {
		if got := stringValue(c.in); got != c.want {
			t.Errorf("case %s: expected %q got %q", strconv.Itoa(i), c.want, got)
		}
	}
}
