package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MrSnakeDoc/catalogd/internal/logger"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, r *http.Request) int {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec.Code
}

func TestRateLimitBucketsByTenant(t *testing.T) {
	h := RateLimit(RateLimitConfig{Burst: 1, RefillPerMin: 1, Key: ClientTenantKey})(ok)

	req := func(tenant string) *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/api/courses", nil)
		r.Header.Set(TenantHeader, tenant)
		return r
	}

	if got := serve(h, req("acme")); got != http.StatusOK {
		t.Errorf("first acme request = %d, want 200", got)
	}
	if got := serve(h, req("acme")); got != http.StatusTooManyRequests {
		t.Errorf("second acme request = %d, want 429", got)
	}
	if got := serve(h, req("globex")); got != http.StatusOK {
		t.Errorf("first globex request = %d, want 200", got)
	}
}

func TestRateLimitDefaultsToClientIP(t *testing.T) {
	h := RateLimit(RateLimitConfig{Burst: 1, RefillPerMin: 1})(ok)

	a := httptest.NewRequest(http.MethodPost, "/", nil)
	a.RemoteAddr = "10.0.0.1:1234"
	b := httptest.NewRequest(http.MethodPost, "/", nil)
	b.RemoteAddr = "10.0.0.2:1234"

	serve(h, a)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, a)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Errorf("repeat request = %d (Retry-After %q), want 429 with Retry-After", rec.Code, rec.Header().Get("Retry-After"))
	}
	if got := serve(h, b); got != http.StatusOK {
		t.Errorf("other client = %d, want 200", got)
	}
}

func TestRateLimitRefills(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	h := RateLimit(RateLimitConfig{Burst: 2, RefillPerMin: 60, Now: func() time.Time { return now }})(ok)
	req := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/jobs/J1", nil))
		return rec
	}

	if rec := req(); rec.Header().Get("X-RateLimit-Remaining") != "1" {
		t.Errorf("X-RateLimit-Remaining = %q, want 1", rec.Header().Get("X-RateLimit-Remaining"))
	}
	req()
	if rec := req(); rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "1" {
		t.Errorf("empty bucket = %d (Retry-After %q), want 429 after 1s", rec.Code, rec.Header().Get("Retry-After"))
	}

	now = now.Add(time.Second)
	if rec := req(); rec.Code != http.StatusOK {
		t.Errorf("after refill = %d, want 200", rec.Code)
	}
}

func TestMatchHost(t *testing.T) {
	tests := []struct {
		host, pattern string
		want          bool
	}{
		{"catalog.example.com", "catalog.example.com", true},
		{"api.example.com", "*.example.com", true},
		{"example.com", "*.example.com", false},
		{"evil.com", "catalog.example.com", false},
	}
	for _, tt := range tests {
		if got := matchHost(tt.host, tt.pattern); got != tt.want {
			t.Errorf("matchHost(%q, %q) = %v, want %v", tt.host, tt.pattern, got, tt.want)
		}
	}
}

func TestAllowOnlyCIDRS(t *testing.T) {
	h := AllowOnlyCIDRS([]string{"10.0.0.0/8"}, true, logger.NewNop())(ok)

	inside := httptest.NewRequest(http.MethodGet, "/infra", nil)
	inside.RemoteAddr = "10.1.2.3:5000"
	if got := serve(h, inside); got != http.StatusOK {
		t.Errorf("inside = %d, want 200", got)
	}

	proxied := httptest.NewRequest(http.MethodGet, "/infra", nil)
	proxied.RemoteAddr = "10.1.2.3:5000"
	proxied.Header.Set("X-Forwarded-For", "203.0.113.7")
	if got := serve(h, proxied); got != http.StatusForbidden {
		t.Errorf("proxied outsider = %d, want 403", got)
	}

	open := AllowOnlyCIDRS(nil, false, logger.NewNop())(ok)
	if got := serve(open, proxied); got != http.StatusOK {
		t.Errorf("empty allow list = %d, want 200", got)
	}
}

func TestEnforceHost(t *testing.T) {
	h := EnforceHost([]string{"Catalog.example.com", "*.internal"}, logger.NewNop())(ok)

	tests := []struct {
		host string
		want int
	}{
		{"catalog.example.com", http.StatusOK},
		{"CATALOG.example.com:8080", http.StatusOK},
		{"api.internal", http.StatusOK},
		{"other.example.com", http.StatusForbidden},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/api/courses", nil)
		r.Host = tt.host
		if got := serve(h, r); got != tt.want {
			t.Errorf("EnforceHost(%q) = %d, want %d", tt.host, got, tt.want)
		}
	}
}

func TestLogLevelFollowsStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := Log(logger.FromZap(zap.New(core)))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/boom":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			_, _ = w.Write([]byte("ok"))
		}
	}))

	for _, p := range []string{"/ok", "/missing", "/boom"} {
		r := httptest.NewRequest(http.MethodGet, p, nil)
		r.Header.Set(TenantHeader, "acme")
		serve(h, r)
	}

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("logged %d entries, want 3", len(entries))
	}
	want := []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, e := range entries {
		if e.Level != want[i] {
			t.Errorf("entry %d level = %v, want %v", i, e.Level, want[i])
		}
		if e.ContextMap()["tenant"] != "acme" {
			t.Errorf("entry %d tenant = %v, want acme", i, e.ContextMap()["tenant"])
		}
	}
	if got := entries[0].ContextMap()["bytes"]; got != int64(2) {
		t.Errorf("bytes = %v, want 2", got)
	}
}
