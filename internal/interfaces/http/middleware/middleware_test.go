package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"manuscript-editor-api/internal/infrastructure/persistence/redis"
	"manuscript-editor-api/internal/interfaces/http/dto"
	apperrors "manuscript-editor-api/pkg/errors"
	"manuscript-editor-api/pkg/metrics"
)

type countingLimiter struct {
	limit int
	seen  map[string]int
	err   error
}

func (l *countingLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (redis.Decision, error) {
	if l.err != nil {
		return redis.Decision{}, l.err
	}
	l.seen[key]++
	if l.seen[key] > l.limit {
		return redis.Decision{Limit: limit, RetryAfter: 1500 * time.Millisecond}, nil
	}
	return redis.Decision{Allowed: true, Limit: limit, Remaining: l.limit - l.seen[key]}, nil
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })
	r.GET("/boom", func(c *gin.Context) { panic("boom") })
	return r
}

func TestRateLimitPerClient(t *testing.T) {
	limiter := &countingLimiter{limit: 2, seen: map[string]int{}}
	r := newEngine(RateLimit(RateLimitConfig{Enabled: true, Scope: "api", Limit: 2}, limiter))

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(last, req)
		codes = append(codes, last.Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
	if got := last.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("Retry-After = %q, want 2", got)
	}
	if got := last.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("X-RateLimit-Remaining = %q, want 0", got)
	}
	if _, ok := limiter.seen["ratelimit:api:10.0.0.1"]; !ok {
		t.Fatalf("unexpected limiter keys: %v", limiter.seen)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	limiter := &countingLimiter{err: errors.New("redis down")}
	r := newEngine(RateLimit(RateLimitConfig{Enabled: true, Limit: 1}, limiter))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	r.ServeHTTP(w, req)
	if w.Body.String() != "req-123" || w.Header().Get(RequestIDHeader) != "req-123" {
		t.Fatalf("request id not propagated: body=%q header=%q", w.Body.String(), w.Header().Get(RequestIDHeader))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if len(w.Header().Get(RequestIDHeader)) != 36 {
		t.Fatalf("generated request id = %q", w.Header().Get(RequestIDHeader))
	}
}

func TestRecovery(t *testing.T) {
	r := newEngine(Recovery())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d, want 500", w.Code)
	}
	var body dto.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error == nil || body.Error.ErrorCode != string(apperrors.CodeInternalError) {
		t.Fatalf("error detail = %+v", body.Error)
	}
}

func TestMetricsUsesRouteTemplateAndSkipsProbes(t *testing.T) {
	r := newEngine(Metrics("/live"))
	r.GET("/live", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/items/:id", "200"))
	probesBefore := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/live", "200"))

	for _, p := range []string{"/items/1", "/items/2", "/live"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	if got := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/items/:id", "200")) - before; got != 2 {
		t.Fatalf("templated requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/live", "200")) - probesBefore; got != 0 {
		t.Fatalf("probe requests counted: %v", got)
	}
}
