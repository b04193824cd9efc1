package httputil

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tecnotop/backend/libs/golog"
)

var requestEventPool = sync.Pool{
	New: func() interface{} {
		return &RequestEvent{}
	},
}

var loggingResponseWriterPool = sync.Pool{
	New: func() interface{} {
		return &loggingResponseWriter{}
	},
}

var hostname string

func init() {
	var err error
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
		golog.Errorf("Failed to get hostname: %s", err.Error())
	}
}

type requestIDContextKey struct{}

// RequestEvent is a request/response log event
type RequestEvent struct {
	Timestamp       time.Time
	ResponseTime    time.Duration
	ServerHostname  string
	StatusCode      int
	ResponseHeaders http.Header
	Request         *http.Request
	// URL is provided separate from the request as it was copied before calling sub
	// handlers as they might change the URL (e.g. http.StripPrefix)
	URL *url.URL
	// RemoteAddr is a normalized version of r.RemoteAddr that removes any port number
	RemoteAddr string
	// Panic and StackTrace are set if a sub handler panics
	Panic      interface{}
	StackTrace []byte
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (w *loggingResponseWriter) WriteHeader(status int) {
	w.statusCode = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *loggingResponseWriter) Write(bytes []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(bytes)
}

// RequestID returns the request ID for an HTTP request. RequestIDHandler
// must be used to guarantee that a request ID exists. If a request ID does
// not exist because a handler has not been wrapped with RequestIDHandler then
// this returns the empty string.
func RequestID(ctx context.Context) string {
	reqID, _ := ctx.Value(requestIDContextKey{}).(string)
	return reqID
}

// CtxWithRequestID adds a request ID to the context
func CtxWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

type requestIDHandler struct {
	h http.Handler
}

// RequestIDHandler wraps a handler to provide generation of a unique
// request ID per request. The ID is available by calling RequestID(ctx).
func RequestIDHandler(h http.Handler) http.Handler {
	return &requestIDHandler{h: h}
}

func (h *requestIDHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	w.Header().Set("X-Request-ID", requestID)
	h.h.ServeHTTP(w, r.WithContext(CtxWithRequestID(r.Context(), requestID)))
}

// LogFunc is a function that logs http request events. The RequestEvent object is only
// valid during the call and should not be kept after it returns.
type LogFunc func(context.Context, *RequestEvent)

type loggingHandler struct {
	h           http.Handler
	appName     string
	behindProxy bool
	alog        LogFunc
}

// LoggingHandler wraps a handler to provide request logging. alog is optional, but
// if provided it overrides the default logging to golog.
func LoggingHandler(h http.Handler, appName string, behindProxy bool, alog LogFunc) http.Handler {
	return &loggingHandler{
		h:           h,
		behindProxy: behindProxy,
		appName:     appName,
		alog:        alog,
	}
}

func (h *loggingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logrw := loggingResponseWriterPool.Get().(*loggingResponseWriter)
	*logrw = loggingResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}

	startTime := time.Now()

	ctx := r.Context()

	// Save the URL here in case it gets mangled by the time
	// the defer gets called. This can happen when using http.StripPrefix
	// such as for static file serving.
	earl := *r.URL
	defer func() {
		rerr := recover()

		ev := requestEventPool.Get().(*RequestEvent)
		*ev = RequestEvent{
			Timestamp:       startTime,
			StatusCode:      logrw.statusCode,
			ResponseHeaders: logrw.Header(),
			Request:         r,
			URL:             &earl,
			RemoteAddr:      RemoteAddrFromRequest(r, h.behindProxy),
			ResponseTime:    time.Since(startTime),
			ServerHostname:  hostname,
		}
		if rerr != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			ev.Panic = rerr
			ev.StackTrace = buf
			if !logrw.wroteHeader {
				w.WriteHeader(http.StatusInternalServerError)
			}
			ev.StatusCode = http.StatusInternalServerError
		} else if ev.StatusCode == 0 {
			ev.StatusCode = http.StatusOK
		}

		if h.alog != nil {
			h.alog(ctx, ev)
		} else {
			log := golog.Context(
				"App", h.appName,
				"Method", ev.Request.Method,
				"URL", ev.URL.String(),
				"UserAgent", ev.Request.UserAgent(),
				"RequestID", RequestID(ctx),
				"RemoteAddr", ev.RemoteAddr,
				"StatusCode", ev.StatusCode,
				"ResponseTime", float64(ev.ResponseTime.Nanoseconds())/1e3,
			)
			if ev.Panic != nil {
				log.Criticalf("http: panic: %v\n%s", ev.Panic, ev.StackTrace)
			} else {
				log.Infof(h.appName + " httprequest")
			}
		}

		*ev = RequestEvent{}
		requestEventPool.Put(ev)
		logrw.ResponseWriter = nil
		loggingResponseWriterPool.Put(logrw)
	}()

	h.h.ServeHTTP(logrw, r.WithContext(ctx))
}
