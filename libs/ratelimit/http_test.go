package ratelimit

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/samuel/go-metrics/metrics"
)

type stubKeyedRateLimiter struct{}

func (stubKeyedRateLimiter) Check(key string, cost int) (bool, error) {
	if key == ":limited" {
		return false, nil
	}
	return true, nil
}

func TestRemoteAddrHandler(t *testing.T) {
	h := RemoteAddrHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), stubKeyedRateLimiter{}, "", false, metrics.NewRegistry())

	req, _ := http.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	req.RemoteAddr = "not-limited"
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected %d, got %d", http.StatusOK, rec.Code)
	}

	rec = httptest.NewRecorder()
	req.RemoteAddr = "limited"
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("Expected %d, got %d", http.StatusForbidden, rec.Code)
	}
}

func TestRemoteAddrHandlerStripsPort(t *testing.T) {
	h := RemoteAddrHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), NewLocalKeyed(2, 60), "login", false, nil)

	// Reconnecting from new ephemeral ports must not reset the count.
	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusForbidden} {
		req, _ := http.NewRequest("GET", "/", nil)
		req.RemoteAddr = fmt.Sprintf("10.0.0.1:%d", 50001+i)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("Request %d: expected %d, got %d", i, want, rec.Code)
		}
	}

	// A different client keeps its own count.
	req, _ := http.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.2:50001"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected %d for a different address, got %d", http.StatusOK, rec.Code)
	}
}

func TestRemoteAddrHandlerBehindProxy(t *testing.T) {
	h := RemoteAddrHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), NewLocalKeyed(1, 60), "login", true, nil)

	// All connections come from the proxy; the key must follow the
	// forwarded client address instead.
	for i, want := range []int{http.StatusOK, http.StatusForbidden} {
		req, _ := http.NewRequest("GET", "/", nil)
		req.RemoteAddr = "172.16.0.1:40001"
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 172.16.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("Request %d: expected %d, got %d", i, want, rec.Code)
		}
	}

	req, _ := http.NewRequest("GET", "/", nil)
	req.RemoteAddr = "172.16.0.1:40002"
	req.Header.Set("X-Forwarded-For", "203.0.113.10")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected %d for a different forwarded client, got %d", http.StatusOK, rec.Code)
	}
}

func TestLocalKeyed(t *testing.T) {
	rl := NewLocalKeyed(2, 60)
	for i := 0; i < 2; i++ {
		ok, err := rl.Check("a", 1)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("Expected check %d to be allowed", i)
		}
	}
	ok, err := rl.Check("a", 1)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("Expected third check to be denied")
	}
	// Separate keys keep separate counts.
	ok, err = rl.Check("b", 1)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("Expected check for different key to be allowed")
	}
}

func TestSingle(t *testing.T) {
	rl := NewSingle(NewLocalKeyed(1, 60), "api")
	ok, err := rl.Check(1)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("Expected first check to be allowed")
	}
	ok, err = rl.Check(1)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("Expected second check to be denied")
	}
}

func TestNullKeyed(t *testing.T) {
	rl := NullKeyed{}
	for i := 0; i < 100; i++ {
		ok, err := rl.Check("a", 1)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatal("Expected null limiter to always allow")
		}
	}
}
