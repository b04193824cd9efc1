package httputil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/samuel/go-metrics/metrics"
)

func TestMetricsHandler(t *testing.T) {
	reg := metrics.NewRegistry()
	h := MetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}), reg)
	r, err := http.NewRequest("GET", "/", nil)
	if err != nil {
		t.Fatal(err)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected %d got %d", http.StatusForbidden, w.Code)
	}
	err = reg.Do(func(name string, value interface{}) error {
		t.Logf("%s %+v", name, value)
		switch name {
		case "requests/response/403":
			if v := value.(*metrics.Counter).Count(); v != 1 {
				return fmt.Errorf("403 response count should be 1 got %d", v)
			}
		case "requests/latency":
			if v := value.(metrics.Histogram).Distribution().Count; v != 1 {
				return fmt.Errorf("histogram count should be 1 got %d", v)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSupportedMethods(t *testing.T) {
	h := SupportedMethods(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), "GET", "POST")

	r, err := http.NewRequest("DELETE", "/", nil)
	if err != nil {
		t.Fatal(err)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("Expected %d got %d", http.StatusMethodNotAllowed, w.Code)
	}
	if allow := w.Header().Get("Allow"); allow != "GET, POST" {
		t.Fatalf("Expected 'GET, POST' got '%s'", allow)
	}

	r, err = http.NewRequest("GET", "/", nil)
	if err != nil {
		t.Fatal(err)
	}
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected %d got %d", http.StatusOK, w.Code)
	}
}
