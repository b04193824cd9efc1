package ratelimit

import (
	"net"
	"net/http"

	"github.com/samuel/go-metrics/metrics"
	"github.com/tecnotop/backend/libs/golog"
	"github.com/tecnotop/backend/libs/httputil"
)

type remoteAddrHandler struct {
	h           http.Handler
	rl          KeyedRateLimiter
	prefix      string
	behindProxy bool
	statDenied  *metrics.Counter
}

// RemoteAddrHandler wraps a handler to rate limit requests keyed on the
// client address. The port is stripped so reconnecting does not reset
// the count, and behindProxy resolves the address from X-Forwarded-For.
// A denied request receives StatusForbidden. If the rate limiter itself
// fails the request is let through.
func RemoteAddrHandler(h http.Handler, rl KeyedRateLimiter, prefix string, behindProxy bool, statsRegistry metrics.Registry) http.Handler {
	statDenied := metrics.NewCounter()
	if statsRegistry != nil {
		statsRegistry.Add("ratelimit/denied", statDenied)
	}
	return &remoteAddrHandler{
		h:           h,
		rl:          rl,
		prefix:      prefix,
		behindProxy: behindProxy,
		statDenied:  statDenied,
	}
}

func (rh *remoteAddrHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	addr := httputil.RemoteAddrFromRequest(r, rh.behindProxy)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	ok, err := rh.rl.Check(rh.prefix+":"+addr, 1)
	if err != nil {
		golog.Errorf("Rate limit check failed: %s", err)
	} else if !ok {
		rh.statDenied.Inc(1)
		http.Error(w, "Rate limit exceeded", http.StatusForbidden)
		return
	}
	rh.h.ServeHTTP(w, r)
}
