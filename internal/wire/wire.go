//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"manuscript-editor-api/internal/application/analysis"
	"manuscript-editor-api/internal/application/catalog"
	"manuscript-editor-api/internal/application/quota"
	"manuscript-editor-api/internal/application/upload"
	"manuscript-editor-api/internal/config"
	"manuscript-editor-api/internal/domain/repository"
	"manuscript-editor-api/internal/domain/service"
	"manuscript-editor-api/internal/infrastructure/llm"
	"manuscript-editor-api/internal/infrastructure/persistence/postgres"
	"manuscript-editor-api/internal/infrastructure/persistence/redis"
	"manuscript-editor-api/internal/interfaces/http/handler"
	"manuscript-editor-api/internal/interfaces/http/middleware"
	"manuscript-editor-api/internal/interfaces/http/router"
	"manuscript-editor-api/internal/workflow/prompt"
)

// InitializePostgresOnly 仅初始化 PostgreSQL 数据层（用于 bootstrap）
func InitializePostgresOnly(ctx context.Context, cfg *config.Config) (*PostgresOnlyDataLayer, func(), error) {
	wire.Build(
		PostgresSet,
		wire.Struct(new(PostgresOnlyDataLayer), "*"),
	)
	return nil, nil, nil
}

// InitializeWorker 初始化分析 worker 依赖
func InitializeWorker(ctx context.Context, cfg *config.Config) (*Worker, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MessagingSet,
		AnalysisSet,
		wire.Struct(new(Worker), "*"),
	)
	return nil, nil, nil
}

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MessagingSet,
		AnalysisSet,
		QueueSet,
		RouterSet,
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewProjectRepository,
	postgres.NewBookRepository,
	postgres.NewChapterRepository,
	postgres.NewFeedbackRepository,
	postgres.NewSummaryRepository,
	postgres.NewLLMUsageEventRepository,
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
	wire.Bind(new(analysis.ContextCache), new(*redis.Cache)),
	wire.Bind(new(catalog.ContextInvalidator), new(*redis.Cache)),
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
)

// AnalysisSet 章节分析编排
var AnalysisSet = wire.NewSet(
	llm.NewEinoFactory,
	llm.NewEinoCompleter,
	wire.Bind(new(llm.Completer), new(*llm.EinoCompleter)),
	prompt.NewRegistry,
	prompt.NewBuilder,
	quota.NewLLMUsageRecorder,
	wire.Bind(new(service.LLMUsageRecorder), new(*quota.LLMUsageRecorder)),
	ProvideContextLoader,
	ProvideOrchestrator,
)

// QueueSet 任务队列与提交
var QueueSet = wire.NewSet(
	ProvideAnalysisQueue,
	ProvideSubmitter,
	ProvideUploadService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	catalog.NewService,
	handler.NewProjectHandler,
	handler.NewChapterHandler,
	ProvideHealthHandler,
	wire.Bind(new(handler.ChapterUploader), new(*upload.Service)),
	wire.Bind(new(handler.ChapterReanalyzer), new(*analysis.Submitter)),
	wire.Bind(new(handler.UsageReader), new(*quota.LLMUsageRecorder)),
	wire.Struct(new(router.RouterHandlers), "*"),
	router.NewWithDeps,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.ProjectRepository), new(*postgres.ProjectRepository)),
	wire.Bind(new(repository.BookRepository), new(*postgres.BookRepository)),
	wire.Bind(new(repository.ChapterRepository), new(*postgres.ChapterRepository)),
	wire.Bind(new(repository.FeedbackRepository), new(*postgres.FeedbackRepository)),
	wire.Bind(new(repository.SummaryRepository), new(*postgres.SummaryRepository)),
	wire.Bind(new(repository.LLMUsageEventRepository), new(*postgres.LLMUsageEventRepository)),
)
