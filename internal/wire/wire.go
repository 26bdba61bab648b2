// Package wire 手工装配应用依赖
package wire

import (
	"context"

	"inkflow-ai-api/internal/application/usage"
	"inkflow-ai-api/internal/application/writer"
	"inkflow-ai-api/internal/config"
	"inkflow-ai-api/internal/infrastructure/embedding"
	"inkflow-ai-api/internal/infrastructure/llm"
	"inkflow-ai-api/internal/infrastructure/messaging"
	"inkflow-ai-api/internal/infrastructure/persistence/milvus"
	"inkflow-ai-api/internal/infrastructure/persistence/postgres"
	redisinfra "inkflow-ai-api/internal/infrastructure/persistence/redis"
	"inkflow-ai-api/internal/interfaces/http/handler"
	"inkflow-ai-api/internal/interfaces/http/router"
	einoobs "inkflow-ai-api/internal/observability/eino"
	"inkflow-ai-api/pkg/logger"

	einoembedding "github.com/cloudwego/eino/components/embedding"
)

// App 装配完成的应用
type App struct {
	Router   *router.Router
	Service  *writer.Service
	Driver   *writer.Driver
	Registry *llm.Registry
}

// InitializeApp 构建整个应用, 返回清理函数
// Milvus 与 Embedding 不可用时降级运行: 上下文检索与向量摄取被禁用,
// 核心的生成-评审-重写循环不受影响
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// 数据层
	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanups = append(cleanups, func() { _ = pgClient.Close() })

	redisClient, err := redisinfra.NewClient(&cfg.Cache.Redis)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	cleanups = append(cleanups, func() { _ = redisClient.Close() })

	var vectorRepo *milvus.Repository
	milvusClient, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		logger.Warn(ctx, "milvus unavailable, vector retrieval disabled", "error", err)
	} else {
		cleanups = append(cleanups, func() { _ = milvusClient.Close() })
		vectorRepo = milvus.NewRepository(milvusClient)
	}

	var embedder einoembedding.Embedder
	if e, err := embedding.NewEinoEmbedder(ctx, &cfg.Embedding); err != nil {
		logger.Warn(ctx, "embedder unavailable, vector retrieval disabled", "error", err)
	} else {
		embedder = e
	}

	// 仓储
	projectRepo := postgres.NewProjectRepository(pgClient)
	chapterRepo := postgres.NewChapterRepository(pgClient)
	versionRepo := postgres.NewChapterVersionRepository(pgClient)
	evalRepo := postgres.NewEvaluationRepository(pgClient)
	outlineRepo := postgres.NewOutlineRepository(pgClient)
	settingRepo := postgres.NewSettingRepository(pgClient)
	usageRepo := postgres.NewLLMUsageEventRepository(pgClient)

	// Eino 全局 callbacks: 指标, 追踪与调用流水
	einoobs.Init(usage.NewRecorder(usageRepo))

	// LLM 注册表与工作流适配
	factory := llm.NewEinoFactory(cfg)
	registry := llm.NewRegistry(cfg, factory)

	// 运行互斥, 读穿缓存与消息流
	guard := redisinfra.NewRunGuard(redisClient, cfg.Writer.CreationLockTTL)
	contextCache := redisinfra.NewCache(redisClient)
	producer := messaging.NewProducer(redisClient.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))

	// 向量存取走接口注入, Milvus 缺席时保持 nil 接口值
	var vectorStore writer.VectorStore
	if vectorRepo != nil {
		vectorStore = vectorRepo
	}

	// 章节创作服务
	service := writer.NewService(writer.ServiceDeps{
		Config:      cfg,
		ProjectRepo: projectRepo,
		ChapterRepo: chapterRepo,
		VersionRepo: versionRepo,
		EvalRepo:    evalRepo,
		OutlineRepo: outlineRepo,
		SettingRepo: settingRepo,
		Models:      registry,
		Drafter:     writer.NewDrafter(registry),
		Judge:       writer.NewJudge(registry),
		Summarizer:  writer.NewSummarizer(registry),
		Assembler:   writer.NewContextAssembler(chapterRepo, vectorStore, embedder, contextCache),
		Ingester:    writer.NewIngester(vectorStore, embedder, producer),
		Guard:       guard,
	})

	driver := writer.NewDriver(cfg, service, guard, outlineRepo, projectRepo, producer)

	// HTTP 层
	handlers := router.Handlers{
		Health:     handler.NewHealthHandler(pgClient, redisClient, milvusClient),
		Project:    handler.NewProjectHandler(projectRepo),
		Outline:    handler.NewOutlineHandler(outlineRepo, projectRepo, postgres.NewTxManager(pgClient)),
		Chapter:    handler.NewChapterHandler(chapterRepo),
		Writer:     handler.NewWriterHandler(service),
		AutoCreate: handler.NewAutoCreateHandler(driver),
		Provider:   handler.NewProviderHandler(registry, settingRepo),
	}

	app := &App{
		Router:   router.New(cfg, handlers, redisinfra.NewRateLimiter(redisClient)),
		Service:  service,
		Driver:   driver,
		Registry: registry,
	}
	return app, cleanup, nil
}
