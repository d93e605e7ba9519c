package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func TestReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ok := checkerFunc(func(context.Context) error { return nil })
	down := checkerFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		pg, redis  HealthChecker
		wantCode   int
		wantRedis  string
		wantStatus string
	}{
		{"all up", ok, ok, http.StatusOK, "ok", "ok"},
		{"redis down", ok, down, http.StatusServiceUnavailable, "error", "not_ready"},
		{"redis missing", ok, nil, http.StatusServiceUnavailable, "missing", "not_ready"},
	}
	for _, tt := range tests {
		h := NewHealthHandler("test", tt.pg, tt.redis)
		r := gin.New()
		r.GET("/ready", h.Ready)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		if w.Code != tt.wantCode {
			t.Fatalf("%s: code = %d, want %d", tt.name, w.Code, tt.wantCode)
		}
		var resp ReadinessResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: decode: %v", tt.name, err)
		}
		if resp.Status != tt.wantStatus || resp.Checks["redis"].Status != tt.wantRedis || resp.Checks["postgres"].Status != "ok" {
			t.Errorf("%s: resp = %+v", tt.name, resp)
		}
	}
}
