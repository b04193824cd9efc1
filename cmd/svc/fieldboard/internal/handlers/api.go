package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/tecnotop/backend/cmd/svc/fieldboard/internal/dal"
	"github.com/tecnotop/backend/libs/golog"
	"github.com/tecnotop/backend/libs/httputil"
)

const (
	queryCacheTTL  = time.Minute
	columnProbeTTL = 5 * time.Minute
	rollupLimit    = 15
	visitsLimit    = 200
)

// cached runs fetch through the query cache. A truthy refresh param
// forces a refetch, matching the dashboard's update button.
func (h *handlers) cached(r *http.Request, key string, fetch func() (interface{}, error)) (interface{}, error) {
	if httputil.ParseBool(r.FormValue("refresh")) {
		h.cache.Forget(key)
	}
	return h.cache.Do(key, queryCacheTTL, fetch)
}

// columnExists caches the information_schema probe so the visit listing
// does not pay for it on every request.
func (h *handlers) columnExists(ctx context.Context, schema, table, column string) (bool, error) {
	v, err := h.cache.Do("column/"+schema+"."+table+"."+column, columnProbeTTL, func() (interface{}, error) {
		return h.dal.ColumnExists(ctx, schema, table, column)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (h *handlers) serveSummary(w http.ResponseWriter, r *http.Request) {
	f, err := h.parseFilters(r)
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	v, err := h.cached(r, cacheKey("summary", f), func() (interface{}, error) {
		return h.dal.Summary(r.Context(), f)
	})
	if err != nil {
		h.internalError(w, err)
		return
	}
	httputil.JSONResponse(w, http.StatusOK, v)
}

func (h *handlers) serveSellers(w http.ResponseWriter, r *http.Request) {
	f, err := h.parseFilters(r)
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	v, err := h.cached(r, cacheKey("sellers", f), func() (interface{}, error) {
		return h.dal.SellerRollup(r.Context(), f, rollupLimit)
	})
	if err != nil {
		h.internalError(w, err)
		return
	}
	httputil.JSONResponse(w, http.StatusOK, struct {
		Sellers interface{} `json:"sellers"`
	}{v})
}

func (h *handlers) serveClients(w http.ResponseWriter, r *http.Request) {
	f, err := h.parseFilters(r)
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	v, err := h.cached(r, cacheKey("clients", f), func() (interface{}, error) {
		return h.dal.ClientRollup(r.Context(), f, rollupLimit)
	})
	if err != nil {
		h.internalError(w, err)
		return
	}
	httputil.JSONResponse(w, http.StatusOK, struct {
		Clients interface{} `json:"clients"`
	}{v})
}

func (h *handlers) serveTimeline(w http.ResponseWriter, r *http.Request) {
	f, err := h.parseFilters(r)
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	v, err := h.cached(r, cacheKey("timeline", f), func() (interface{}, error) {
		return h.dal.MonthlyTimeline(r.Context(), f)
	})
	if err != nil {
		h.internalError(w, err)
		return
	}
	httputil.JSONResponse(w, http.StatusOK, struct {
		Months interface{} `json:"months"`
	}{v})
}

func (h *handlers) serveTypes(w http.ResponseWriter, r *http.Request) {
	f, err := h.parseFilters(r)
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	v, err := h.cached(r, cacheKey("types", f), func() (interface{}, error) {
		return h.dal.VisitTypeDistribution(r.Context(), f)
	})
	if err != nil {
		h.internalError(w, err)
		return
	}
	httputil.JSONResponse(w, http.StatusOK, struct {
		Types interface{} `json:"types"`
	}{v})
}

func (h *handlers) serveVisits(w http.ResponseWriter, r *http.Request) {
	f, err := h.parseFilters(r)
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	withFinished, err := h.columnExists(r.Context(), "contele", "contele_os", "finished_at")
	if err != nil {
		h.internalError(w, err)
		return
	}
	v, err := h.cached(r, cacheKey("visits", f), func() (interface{}, error) {
		return h.dal.Visits(r.Context(), f, visitsLimit, withFinished)
	})
	if err != nil {
		h.internalError(w, err)
		return
	}
	httputil.JSONResponse(w, http.StatusOK, struct {
		Visits interface{} `json:"visits"`
	}{v})
}

func (h *handlers) serveVisitAnswers(w http.ResponseWriter, r *http.Request) {
	taskID := r.FormValue("taskId")
	if taskID == "" {
		httputil.JSONError(w, http.StatusBadRequest, "taskId is required")
		return
	}
	answers, err := h.dal.VisitAnswers(r.Context(), taskID)
	if err != nil {
		h.internalError(w, err)
		return
	}
	httputil.JSONResponse(w, http.StatusOK, struct {
		Answers []*dal.VisitAnswer `json:"answers"`
	}{answers})
}

func (h *handlers) serveFilterOptions(w http.ResponseWriter, r *http.Request) {
	v, err := h.cached(r, "filter-options", func() (interface{}, error) {
		return h.dal.FilterOptions(r.Context())
	})
	if err != nil {
		h.internalError(w, err)
		return
	}
	httputil.JSONResponse(w, http.StatusOK, v)
}

func (h *handlers) serveHealth(w http.ResponseWriter, r *http.Request) {
	report := h.assistant.Integrity(r.Context())
	code := http.StatusOK
	if report.OpenAI != "ok" || report.Database != "ok" {
		code = http.StatusServiceUnavailable
	}
	httputil.JSONResponse(w, code, report)
}

func (h *handlers) internalError(w http.ResponseWriter, err error) {
	golog.Errorf("fieldboard: %s", err)
	httputil.JSONError(w, http.StatusInternalServerError, "internal error")
}
