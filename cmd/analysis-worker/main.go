// Package main 章节分析 worker 入口：消费 Redis Stream 中的分析任务
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"manuscript-editor-api/internal/application/analysis"
	"manuscript-editor-api/internal/config"
	"manuscript-editor-api/internal/infrastructure/messaging"
	einoobs "manuscript-editor-api/internal/observability/eino"
	"manuscript-editor-api/internal/wire"
	"manuscript-editor-api/pkg/logger"
	"manuscript-editor-api/pkg/tracer"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName:    "analysis-worker",
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Env,
		Endpoint:       cfg.Observability.Tracing.Endpoint,
		SampleRate:     cfg.Observability.Tracing.SampleRate,
		Enabled:        cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	einoobs.Init()

	worker, cleanup, err := wire.InitializeWorker(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize worker", err)
	}
	defer cleanup()

	streamCfg := cfg.Messaging.RedisStream
	handle := analysis.Handler(worker.Orchestrator)
	base := hostnameConsumerName()
	n := max(cfg.Analysis.Workers, 1)

	// 每个 consumer 串行处理，并发度等于 consumer 数
	g, gctx := errgroup.WithContext(ctx)
	for i := range n {
		consumer := messaging.NewConsumer(worker.RedisClient.Redis(), messaging.ConsumerConfig{
			Stream:        streamCfg.Stream,
			Group:         streamCfg.ConsumerGroup,
			Name:          fmt.Sprintf("%s-%d", base, i),
			Block:         streamCfg.BlockTimeout,
			AdoptInterval: streamCfg.ClaimInterval,
			AdoptIdle:     streamCfg.ClaimMinIdle,
			MaxDeliveries: int64(streamCfg.RetryLimit),
			Backoff:       messaging.Backoff(streamCfg.RetryBackoff),
		}, handle)
		g.Go(func() error {
			return consumer.Run(gctx)
		})
	}

	logger.Info(ctx, "analysis-worker started",
		"consumers", n,
		"stream", streamCfg.Stream,
		"group", streamCfg.ConsumerGroup,
	)

	<-gctx.Done()
	logger.Info(ctx, "analysis-worker shutting down")
	if err := g.Wait(); err != nil {
		logger.Error(ctx, "consumer exited with error", err)
	}
}

// hostnameConsumerName 同一主机多进程时用随机后缀区分
func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}
