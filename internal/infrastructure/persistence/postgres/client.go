// Package postgres 提供 PostgreSQL 数据库访问层实现
package postgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"manuscript-editor-api/internal/config"
	"manuscript-editor-api/pkg/logger"
	"manuscript-editor-api/pkg/metrics"
)

var tracer = otel.Tracer("postgres")

// connectAttempts 启动时等待数据库就绪的重试次数（间隔 1s）
const connectAttempts = 30

// Client PostgreSQL 客户端（GORM 版本）
type Client struct {
	db     *gorm.DB
	config *config.PostgresConfig
}

// NewClient 创建 PostgreSQL 客户端，数据库未就绪时按固定间隔重试
func NewClient(cfg *config.PostgresConfig) (*Client, error) {
	gormLogger := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  parseGormLogLevel(cfg.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	ctx, cancel := context.WithTimeout(context.Background(), connectAttempts*2*time.Second)
	defer cancel()

	var db *gorm.DB
	err := retry.Do(
		func() error {
			opened, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{Logger: gormLogger})
			if err != nil {
				return err
			}
			sqlDB, err := opened.DB()
			if err != nil {
				return err
			}
			pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
			defer pingCancel()
			if err := sqlDB.PingContext(pingCtx); err != nil {
				_ = sqlDB.Close()
				return err
			}
			db = opened
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(connectAttempts),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn(ctx, "postgres not ready, retrying", "attempt", n+1, "error", err.Error())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return &Client{
		db:     db,
		config: cfg,
	}, nil
}

func parseGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// DB 获取 GORM DB 实例
func (c *Client) DB() *gorm.DB {
	return c.db
}

// Close 关闭数据库连接
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// recordError 记录 span 错误并累加 db 错误计数
func recordError(span trace.Span, operation string, err error) {
	span.RecordError(err)
	metrics.DBErrors.WithLabelValues(operation).Inc()
}

// HealthCheck 健康检查
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "postgres.HealthCheck")
	defer span.End()

	var result int
	err := c.db.WithContext(ctx).Raw("SELECT 1").Scan(&result).Error
	if err != nil {
		recordError(span, "health_check", err)
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
