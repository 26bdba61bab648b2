// Package main 连续创作运行事件审计消费者入口
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"inkflow-ai-api/internal/config"
	"inkflow-ai-api/internal/infrastructure/messaging"
	"inkflow-ai-api/internal/infrastructure/persistence/redis"
	"inkflow-ai-api/pkg/logger"
	"inkflow-ai-api/pkg/tracer"
)

// 审计消费的运行事件类型
var auditedEvents = []string{
	"start", "progress", "chapter_done", "chapter_error",
	"complete", "stopped", "error",
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx := context.Background()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "run-audit-worker",
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(ctx) }()

	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Fatal(ctx, "failed to init redis", err)
	}
	defer func() { _ = redisClient.Close() }()

	consumer := messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:       messaging.StreamRunEvents,
		Group:        messaging.ConsumerGroupRunAudit,
		ConsumerName: hostnameConsumerName(),
		BlockTimeout: cfg.Messaging.RedisStream.BlockTimeout,
		RetryLimit:   cfg.Messaging.RedisStream.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    cfg.Messaging.RedisStream.RetryBackoff.Initial,
			Max:        cfg.Messaging.RedisStream.RetryBackoff.Max,
			Multiplier: cfg.Messaging.RedisStream.RetryBackoff.Multiplier,
		},
	})

	for _, eventType := range auditedEvents {
		consumer.RegisterHandler(eventType, auditRunEvent)
	}

	if err := consumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}

	log := logger.FromContext(ctx)
	log.Info("run-audit-worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("run-audit-worker shutting down")
	consumer.Stop()
}

// auditRunEvent 把运行事件写入结构化审计日志
func auditRunEvent(ctx context.Context, msg *messaging.Message) error {
	var ev messaging.RunEventMessage
	if err := msg.UnmarshalPayload(&ev); err != nil {
		return err
	}

	logger.Info(ctx, "creation run event",
		"run_id", ev.RunID,
		"project_id", ev.ProjectID,
		"event", ev.Event,
		"chapter_number", ev.ChapterNumber,
		"stage", ev.Stage,
	)
	return nil
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
