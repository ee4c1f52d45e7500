package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"esgrec/internal/matrix"
	"esgrec/internal/services"
	"esgrec/internal/storage/memory"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	opts := matrix.SourceOptions{TTL: time.Minute}
	accounts := matrix.NewCachedAccounts(store, opts)
	src := matrix.NewCachedMatrix(store, opts)
	saver := matrix.NewSaver(store, store, 0)

	matrixSvc := services.NewMatrixService(accounts, src, saver, store, nil)
	accountSvc := services.NewAccountService(store, accounts)

	srv := NewServer(Config{Port: "0", RequestsPerMinute: 10000}, matrixSvc, accountSvc, nil)
	t.Cleanup(func() { srv.limiter.Stop() })
	return srv, store
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s = %d, want 200", path, rec.Code)
		}
	}
}

func TestReadinessFailure(t *testing.T) {
	store := memory.NewStore()
	opts := matrix.SourceOptions{TTL: time.Minute}
	accounts := matrix.NewCachedAccounts(store, opts)
	src := matrix.NewCachedMatrix(store, opts)
	saver := matrix.NewSaver(store, store, 0)
	matrixSvc := services.NewMatrixService(accounts, src, saver, store, nil)
	accountSvc := services.NewAccountService(store, accounts)

	srv := NewServer(Config{Port: "0", RequestsPerMinute: 10000}, matrixSvc, accountSvc,
		func(context.Context) error { return errors.New("db down") })
	defer srv.limiter.Stop()

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz = %d, want 503", rec.Code)
	}
}

func TestSecurityAndTraceHeaders(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("X-Frame-Options = %q", got)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing X-Request-ID header")
	}
}

func TestRateLimitExceeded(t *testing.T) {
	store := memory.NewStore()
	opts := matrix.SourceOptions{TTL: time.Minute}
	accounts := matrix.NewCachedAccounts(store, opts)
	src := matrix.NewCachedMatrix(store, opts)
	saver := matrix.NewSaver(store, store, 0)
	matrixSvc := services.NewMatrixService(accounts, src, saver, store, nil)
	accountSvc := services.NewAccountService(store, accounts)

	srv := NewServer(Config{Port: "0", RequestsPerMinute: 2}, matrixSvc, accountSvc, nil)
	defer srv.limiter.Stop()

	var last int
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		srv.Handler.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", last)
	}

	// The rejection shows up in the limiter metrics exposed on /metricz.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metricz", nil)
	req.RemoteAddr = "10.0.0.10:1234"
	srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("metricz = %d, want 200", rec.Code)
	}
	var snap metricsSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	if snap.RateLimitedHits < 1 {
		t.Fatalf("RateLimitedHits = %d, want at least 1", snap.RateLimitedHits)
	}
	if snap.TotalRequests < 4 {
		t.Fatalf("TotalRequests = %d, want at least 4", snap.TotalRequests)
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown route = %d, want 404", rec.Code)
	}
}
