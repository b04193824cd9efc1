package httputil

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/samuel/go-metrics/metrics"
)

type metricsHandler struct {
	h http.Handler

	statLatency metrics.Histogram

	mu           sync.Mutex
	statResponse map[int]*metrics.Counter
	registry     metrics.Registry
}

// MetricsHandler wraps a handler to provide per status code response counters
// and a latency histogram under the provided registry.
func MetricsHandler(h http.Handler, registry metrics.Registry) http.Handler {
	m := &metricsHandler{
		h:            h,
		statLatency:  metrics.NewUnbiasedHistogram(),
		statResponse: make(map[int]*metrics.Counter),
		registry:     registry,
	}
	registry.Add("requests/latency", m.statLatency)
	return m
}

func (m *metricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logrw := &loggingResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
	startTime := time.Now()
	defer func() {
		m.statLatency.Update(time.Since(startTime).Nanoseconds() / 1e3)
		m.counterForStatus(logrw.statusCode).Inc(1)
	}()
	m.h.ServeHTTP(logrw, r)
}

func (m *metricsHandler) counterForStatus(code int) *metrics.Counter {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.statResponse[code]
	if c == nil {
		c = metrics.NewCounter()
		m.statResponse[code] = c
		m.registry.Add("requests/response/"+strconv.Itoa(code), c)
	}
	return c
}
