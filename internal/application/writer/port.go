package writer

import (
	"context"
	"time"

	"inkflow-ai-api/internal/domain/entity"
	"inkflow-ai-api/internal/infrastructure/llm"
	"inkflow-ai-api/internal/infrastructure/messaging"
	"inkflow-ai-api/internal/infrastructure/persistence/milvus"
	redisinfra "inkflow-ai-api/internal/infrastructure/persistence/redis"
	wfmodel "inkflow-ai-api/internal/workflow/model"
)

// WritingModelSource 写作模型清单来源, 列表顺序即版本槽位顺序
type WritingModelSource interface {
	WritingModels() ([]llm.WritingModel, error)
}

// ChapterDrafter 单槽位章节草稿生成
type ChapterDrafter interface {
	// Draft 生成初稿
	Draft(ctx context.Context, wm llm.WritingModel, in *wfmodel.ChapterWriteInput) (string, error)

	// Revise 基于累积评审反馈重写
	Revise(ctx context.Context, wm llm.WritingModel, in *wfmodel.ChapterReviseInput) (string, error)
}

// ChapterJudge 多版本评审
type ChapterJudge interface {
	// Evaluate 返回结构化裁决与模型原始输出
	Evaluate(ctx context.Context, in *wfmodel.ChapterEvaluateInput) (*entity.ChapterReviewResult, string, error)
}

// ChapterSummarizer 定稿章节摘要生成
type ChapterSummarizer interface {
	Summarize(ctx context.Context, chapterNumber int, content string) (string, error)
}

// ContextCache 上下文素材的读穿缓存, 实现负责并发请求合并
type ContextCache interface {
	GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (interface{}, error)) ([]byte, error)
	InvalidateProject(ctx context.Context, projectID string) error
}

// VectorStore 章节向量存取
type VectorStore interface {
	EnsureChapterChunksCollection(ctx context.Context) error
	CreatePartition(ctx context.Context, collection, projectID string) error
	SearchChunks(ctx context.Context, params *milvus.SearchParams) ([]*milvus.SearchResult, error)
	InsertChunks(ctx context.Context, projectID string, chunks []*milvus.ChapterChunk) error
	DeleteChunksByChapter(ctx context.Context, projectID, chapterID string) error
}

// RunLocker 项目级创作互斥与协作式停止
type RunLocker interface {
	Acquire(ctx context.Context, projectID, runID string, mode redisinfra.RunMode) (*redisinfra.RunLock, bool, error)
	Refresh(ctx context.Context, projectID, runID string) error
	Release(ctx context.Context, projectID, runID string) error
	RequestStop(ctx context.Context, projectID string) error
	StopRequested(ctx context.Context, projectID string) (bool, error)
	Current(ctx context.Context, projectID string) (*redisinfra.RunLock, error)
}

// EventPublisher 运行事件与摄取消息的流发布
type EventPublisher interface {
	PublishRunEvent(ctx context.Context, ev *messaging.RunEventMessage) (string, error)
	PublishChapterIngest(ctx context.Context, ingest *messaging.ChapterIngestMessage) (string, error)
}
