// Package handlers wires the dashboard pages and the JSON API.
package handlers

import (
	"net/http"

	"github.com/rs/cors"
	"github.com/samuel/go-metrics/metrics"

	"github.com/tecnotop/backend/cmd/svc/fieldboard/internal/assistant"
	"github.com/tecnotop/backend/cmd/svc/fieldboard/internal/auth"
	"github.com/tecnotop/backend/cmd/svc/fieldboard/internal/cache"
	"github.com/tecnotop/backend/cmd/svc/fieldboard/internal/dal"
	"github.com/tecnotop/backend/libs/clock"
	"github.com/tecnotop/backend/libs/httputil"
	"github.com/tecnotop/backend/libs/ratelimit"
)

type Config struct {
	DAL       dal.DAL
	Auth      *auth.Authenticator
	Assistant *assistant.Assistant
	Cache     *cache.Cache
	Clock     clock.Clock

	// LoginRateLimiter throttles password attempts per remote address.
	LoginRateLimiter ratelimit.KeyedRateLimiter
	MetricsRegistry  metrics.Registry
	// CORSOrigins are the origins allowed on /api/. Empty disables CORS.
	CORSOrigins []string
	BehindProxy bool
}

type handlers struct {
	dal       dal.DAL
	auth      *auth.Authenticator
	assistant *assistant.Assistant
	cache     *cache.Cache
	clk       clock.Clock
}

// New builds the full routing table for the service.
func New(cfg Config) http.Handler {
	h := &handlers{
		dal:       cfg.DAL,
		auth:      cfg.Auth,
		assistant: cfg.Assistant,
		cache:     cfg.Cache,
		clk:       cfg.Clock,
	}

	api := http.NewServeMux()
	api.Handle("/api/summary", httputil.SupportedMethods(http.HandlerFunc(h.serveSummary), "GET"))
	api.Handle("/api/sellers", httputil.SupportedMethods(http.HandlerFunc(h.serveSellers), "GET"))
	api.Handle("/api/clients", httputil.SupportedMethods(http.HandlerFunc(h.serveClients), "GET"))
	api.Handle("/api/timeline", httputil.SupportedMethods(http.HandlerFunc(h.serveTimeline), "GET"))
	api.Handle("/api/types", httputil.SupportedMethods(http.HandlerFunc(h.serveTypes), "GET"))
	api.Handle("/api/visits", httputil.SupportedMethods(http.HandlerFunc(h.serveVisits), "GET"))
	api.Handle("/api/visits/answers", httputil.SupportedMethods(http.HandlerFunc(h.serveVisitAnswers), "GET"))
	api.Handle("/api/filters", httputil.SupportedMethods(http.HandlerFunc(h.serveFilterOptions), "GET"))
	api.Handle("/api/chat", httputil.SupportedMethods(http.HandlerFunc(h.serveChat), "POST"))
	api.Handle("/api/health", httputil.SupportedMethods(http.HandlerFunc(h.serveHealth), "GET"))

	var apiHandler http.Handler = h.requireAPIAuth(api)
	if len(cfg.CORSOrigins) != 0 {
		apiHandler = cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type"},
			AllowCredentials: true,
		}).Handler(apiHandler)
	}

	var loginHandler http.Handler = httputil.SupportedMethods(http.HandlerFunc(h.serveLogin), "GET", "POST")
	if cfg.LoginRateLimiter != nil {
		loginHandler = ratelimit.RemoteAddrHandler(loginHandler, cfg.LoginRateLimiter, "login", cfg.BehindProxy, cfg.MetricsRegistry)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/login", loginHandler)
	mux.Handle("/logout", httputil.SupportedMethods(http.HandlerFunc(h.serveLogout), "GET"))
	mux.Handle("/visits", h.requirePageAuth(httputil.SupportedMethods(http.HandlerFunc(h.serveVisitsPage), "GET")))
	mux.Handle("/chat", h.requirePageAuth(httputil.SupportedMethods(http.HandlerFunc(h.serveChatPage), "GET")))
	mux.Handle("/", h.requirePageAuth(httputil.SupportedMethods(http.HandlerFunc(h.serveDashboardPage), "GET")))
	return mux
}

// requirePageAuth redirects browsers without a session to the login
// page, carrying the original URL in next.
func (h *handlers) requirePageAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.auth.ValidateRequest(r); err != nil {
			http.Redirect(w, r, "/login?next="+r.URL.Path, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAPIAuth rejects API calls without a session. The health
// endpoint stays open for probes.
func (h *handlers) requireAPIAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			if err := h.auth.ValidateRequest(r); err != nil {
				httputil.JSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
