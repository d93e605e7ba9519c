package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const readyTimeout = 2 * time.Second

// HealthChecker 依赖健康检查
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type dependency struct {
	name    string
	checker HealthChecker
}

// HealthHandler 存活、就绪与版本探针
type HealthHandler struct {
	version string
	deps    []dependency
}

// NewHealthHandler postgres 与 redis 均为必需依赖
func NewHealthHandler(version string, pg, redis HealthChecker) *HealthHandler {
	return &HealthHandler{
		version: version,
		deps:    []dependency{{"postgres", pg}, {"redis", redis}},
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// DependencyStatus 单个依赖的就绪结果
type DependencyStatus struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// ReadinessResponse 就绪检查响应
type ReadinessResponse struct {
	Status string                      `json:"status"`
	Checks map[string]DependencyStatus `json:"checks"`
}

// Health 进程状态与版本
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

// Ready 并发探测全部依赖，任一失败返回 503
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} ReadinessResponse
// @Failure 503 {object} ReadinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	results := make([]DependencyStatus, len(h.deps))
	var g errgroup.Group
	for i, dep := range h.deps {
		g.Go(func() error {
			results[i] = probe(ctx, dep.checker)
			return nil
		})
	}
	_ = g.Wait()

	resp := ReadinessResponse{Status: "ok", Checks: make(map[string]DependencyStatus, len(h.deps))}
	for i, dep := range h.deps {
		resp.Checks[dep.name] = results[i]
		if results[i].Status != "ok" {
			resp.Status = "not_ready"
		}
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}

func probe(ctx context.Context, checker HealthChecker) DependencyStatus {
	if checker == nil {
		return DependencyStatus{Status: "missing", Error: "client not configured"}
	}
	start := time.Now()
	err := checker.HealthCheck(ctx)
	st := DependencyStatus{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		st.Status, st.Error = "error", err.Error()
	}
	return st
}

// Live 存活探针，不检查依赖
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
