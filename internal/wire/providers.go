package wire

import (
	"context"
	"fmt"
	"time"

	"manuscript-editor-api/internal/application/analysis"
	"manuscript-editor-api/internal/application/upload"
	"manuscript-editor-api/internal/config"
	"manuscript-editor-api/internal/domain/repository"
	"manuscript-editor-api/internal/domain/service"
	"manuscript-editor-api/internal/infrastructure/llm"
	"manuscript-editor-api/internal/infrastructure/messaging"
	"manuscript-editor-api/internal/infrastructure/persistence/postgres"
	"manuscript-editor-api/internal/infrastructure/persistence/redis"
	"manuscript-editor-api/internal/interfaces/http/handler"
	"manuscript-editor-api/internal/workflow/prompt"
	"manuscript-editor-api/pkg/logger"
)

// poolDrainTimeout 进程内队列关闭时等待在途分析的上限
const poolDrainTimeout = 30 * time.Second

// PostgresOnlyDataLayer 仅包含 PostgreSQL 的数据层（用于 bootstrap）
type PostgresOnlyDataLayer struct {
	PgClient     *postgres.Client
	TxManager    *postgres.TxManager
	ProjectRepo  *postgres.ProjectRepository
	BookRepo     *postgres.BookRepository
	ChapterRepo  *postgres.ChapterRepository
	FeedbackRepo *postgres.FeedbackRepository
	SummaryRepo  *postgres.SummaryRepository
	LLMUsageRepo *postgres.LLMUsageEventRepository
}

// Worker analysis-worker 进程依赖
type Worker struct {
	Orchestrator *analysis.Orchestrator
	RedisClient  *redis.Client
	Producer     *messaging.Producer
	ChapterRepo  *postgres.ChapterRepository
	BookRepo     *postgres.BookRepository
	FeedbackRepo *postgres.FeedbackRepository
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	return messaging.NewProducer(redisClient.Redis(), cfg.Messaging.RedisStream.Stream, cfg.Messaging.RedisStream.MaxLen)
}

// ProvideContextLoader 分析上下文加载，头信息经 Redis 缓存
func ProvideContextLoader(cfg *config.Config, books repository.BookRepository, chapters repository.ChapterRepository, cache analysis.ContextCache) *analysis.ContextLoader {
	return analysis.NewContextLoader(books, chapters, cache, cfg.Cache.ProjectContextTTL)
}

// ProvideOrchestrator 提供分析编排器
func ProvideOrchestrator(
	cfg *config.Config,
	chapters repository.ChapterRepository,
	feedback repository.FeedbackRepository,
	summaries repository.SummaryRepository,
	loader *analysis.ContextLoader,
	completer llm.Completer,
	prompts *prompt.Builder,
	usage service.LLMUsageRecorder,
) *analysis.Orchestrator {
	return analysis.NewOrchestrator(chapters, feedback, summaries, loader, completer, prompts, usage, analysis.Config{
		FeedbackModel:     cfg.LLM.FeedbackModel,
		SummaryModel:      cfg.LLM.SummaryModel,
		FeedbackMaxTokens: cfg.LLM.FeedbackMaxTokens,
		Provider:          cfg.LLM.DefaultProvider,
		LeaseTTL:          cfg.Analysis.LeaseTTL,
		RunTimeout:        cfg.Analysis.RunTimeout,
	})
}

// ProvideAnalysisQueue 按 analysis.queue_driver 选择任务队列
//
// memory 驱动在本进程内运行分析，关闭时等待在途任务。
func ProvideAnalysisQueue(ctx context.Context, cfg *config.Config, producer *messaging.Producer, orch *analysis.Orchestrator) (analysis.Queue, func(), error) {
	switch cfg.Analysis.QueueDriver {
	case config.QueueDriverMemory:
		pool := analysis.NewWorkerPool(cfg.Analysis.Workers, analysis.Handler(orch))
		logger.Info(ctx, "analysis queue uses in-process worker pool", "workers", cfg.Analysis.Workers)
		cleanup := func() {
			drainCtx, cancel := context.WithTimeout(context.Background(), poolDrainTimeout)
			defer cancel()
			if err := pool.Shutdown(drainCtx); err != nil {
				logger.Warn(drainCtx, "analysis worker pool did not drain", "error", err.Error())
			}
		}
		return pool, cleanup, nil
	case config.QueueDriverRedisStream, "":
		return producer, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown analysis queue driver %q", cfg.Analysis.QueueDriver)
	}
}

// ProvideSubmitter 提供分析任务提交器
func ProvideSubmitter(
	cfg *config.Config,
	chapters repository.ChapterRepository,
	books repository.BookRepository,
	feedback repository.FeedbackRepository,
	queue analysis.Queue,
) *analysis.Submitter {
	return analysis.NewSubmitter(chapters, books, feedback, queue, cfg.Analysis.LeaseTTL)
}

// ProvideUploadService 提供章节上传服务
func ProvideUploadService(cfg *config.Config, books repository.BookRepository, chapters repository.ChapterRepository, submitter *analysis.Submitter) *upload.Service {
	return upload.NewService(books, chapters, submitter, cfg.Upload.MaxBytes)
}

// ProvideHealthHandler 就绪检查依赖 Postgres 与 Redis
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, rc *redis.Client) *handler.HealthHandler {
	return handler.NewHealthHandler(cfg.App.Version, pg, rc)
}
