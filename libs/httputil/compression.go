package httputil

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/tecnotop/backend/libs/golog"
)

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		return gzip.NewWriter(nil)
	},
}

type decompressHandler struct {
	h http.Handler
}

// DecompressRequest wraps a handler to take care of decoding a request body
// that declares a gzip Content-Encoding.
func DecompressRequest(h http.Handler) http.Handler {
	return &decompressHandler{h: h}
}

func (dh *decompressHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Content-Encoding") == "gzip" {
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			http.Error(w, "Malformed gzip request body", http.StatusBadRequest)
			return
		}
		defer zr.Close()
		r.Body = io.NopCloser(zr)
		r.Header.Del("Content-Encoding")
		r.ContentLength = -1
	}
	dh.h.ServeHTTP(w, r)
}

type compressHandler struct {
	h http.Handler
}

// CompressResponse wraps a handler to gzip the response body when the
// client declares support for it.
func CompressResponse(h http.Handler) http.Handler {
	return &compressHandler{h: h}
}

type gzipResponseWriter struct {
	http.ResponseWriter
	zw *gzip.Writer
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", http.DetectContentType(b))
	}
	return w.zw.Write(b)
}

func (ch *compressHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		ch.h.ServeHTTP(w, r)
		return
	}

	w.Header().Set("Content-Encoding", "gzip")
	w.Header().Add("Vary", "Accept-Encoding")

	zw := gzipWriterPool.Get().(*gzip.Writer)
	zw.Reset(w)
	defer func() {
		if err := zw.Close(); err != nil {
			golog.Errorf("Failed to close gzip response writer: %s", err)
		}
		gzipWriterPool.Put(zw)
	}()

	ch.h.ServeHTTP(&gzipResponseWriter{ResponseWriter: w, zw: zw}, r)
}
