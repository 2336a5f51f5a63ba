package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"soundcrate/internal/circuitbreaker"
	"soundcrate/internal/config"
	"soundcrate/internal/metrics"
)

// Shared metrics instance to avoid duplicate Prometheus registration
var sharedMetrics = metrics.New()

func newTestBreaker(t *testing.T) *circuitbreaker.Breaker {
	t.Helper()
	cfg := &config.Config{
		CircuitBreakerThreshold:   100,
		CircuitBreakerTimeout:     time.Second,
		CircuitBreakerMaxRequests: 1,
	}
	return circuitbreaker.New(t.Name(), cfg, sharedMetrics)
}

func TestHTTPProviderOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("audio bytes"))
	}))
	defer srv.Close()

	p := NewHTTPProvider(5*time.Second, 2, time.Millisecond, sharedMetrics, newTestBreaker(t))

	body, total, err := p.Open(context.Background(), srv.URL+"/preview.ogg")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer body.Close()

	if total != 11 {
		t.Errorf("total = %d, want 11", total)
	}
	data, _ := io.ReadAll(body)
	if string(data) != "audio bytes" {
		t.Errorf("body = %q", data)
	}
}

func TestHTTPProviderRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	p := NewHTTPProvider(5*time.Second, 3, time.Millisecond, sharedMetrics, newTestBreaker(t))

	body, _, err := p.Open(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Open() error = %v after retries", err)
	}
	body.Close()

	if got := calls.Load(); got != 3 {
		t.Errorf("server calls = %d, want 3", got)
	}
}

func TestHTTPProviderClientErrorFailsFast(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewHTTPProvider(5*time.Second, 3, time.Millisecond, sharedMetrics, newTestBreaker(t))

	if _, _, err := p.Open(context.Background(), srv.URL); err == nil {
		t.Fatal("Open() should fail on 404")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server calls = %d, want 1 (no retry on client errors)", got)
	}
}

func TestHTTPProviderExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewHTTPProvider(5*time.Second, 2, time.Millisecond, sharedMetrics, newTestBreaker(t))

	if _, _, err := p.Open(context.Background(), srv.URL); err == nil {
		t.Fatal("Open() should fail after exhausting retries")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server calls = %d, want 3 (initial + 2 retries)", got)
	}
}

func TestHTTPProviderContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	p := NewHTTPProvider(5*time.Second, 2, time.Millisecond, sharedMetrics, newTestBreaker(t))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if _, _, err := p.Open(ctx, srv.URL); err == nil {
		t.Fatal("Open() should fail when the context is cancelled")
	}
}

func TestFetcherDispatch(t *testing.T) {
	cfg := &config.Config{FetchTimeout: time.Second, FetchMaxRetries: 1, FetchRetryDelay: time.Millisecond}
	f, err := New(context.Background(), cfg, sharedMetrics, newTestBreaker(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, _, err := f.Open(context.Background(), "ftp://example.com/file"); err == nil {
		t.Error("Open() should reject unsupported schemes")
	}
	if _, _, err := f.Open(context.Background(), "s3://bucket/key"); err == nil {
		t.Error("Open() should reject s3 urls when no s3 provider is configured")
	}
	if err := f.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}
