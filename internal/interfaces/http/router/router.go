// Package router 提供 HTTP 路由配置
package router

import (
	"time"

	"manuscript-editor-api/internal/config"
	"manuscript-editor-api/internal/interfaces/http/handler"
	"manuscript-editor-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterHandlers 路由依赖的处理器集合
type RouterHandlers struct {
	Health   *handler.HealthHandler
	Projects *handler.ProjectHandler
	Chapters *handler.ChapterHandler
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	limiter  middleware.RateLimiter
	handlers RouterHandlers
}

// NewWithDeps 创建带完整依赖的路由器
func NewWithDeps(cfg *config.Config, limiter middleware.RateLimiter, handlers RouterHandlers) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:   gin.New(),
		cfg:      cfg,
		limiter:  limiter,
		handlers: handlers,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics("/health", "/ready", "/live", r.metricsPath()))
	}
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	if h := r.handlers.Health; h != nil {
		r.engine.GET("/health", h.Health)
		r.engine.GET("/ready", h.Ready)
		r.engine.GET("/live", h.Live)
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.metricsPath(), gin.WrapH(promhttp.Handler()))
	}

	rl := r.cfg.Security.RateLimit
	v1 := r.engine.Group("/api/v1")
	v1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Enabled: rl.Enabled,
		Scope:   "api",
		Limit:   rl.RequestsPerSecond,
		Window:  time.Second,
	}, r.limiter))

	uploadLimit := middleware.RateLimit(middleware.RateLimitConfig{
		Enabled: rl.Enabled,
		Scope:   "upload",
		Limit:   rl.UploadsPerMinute,
		Window:  time.Minute,
	}, r.limiter)

	RegisterV1Routes(v1, r.handlers.Projects, r.handlers.Chapters, uploadLimit)
}

func (r *Router) metricsPath() string {
	if p := r.cfg.Observability.Metrics.Path; p != "" {
		return p
	}
	return "/metrics"
}
