package writer

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/google/uuid"

	"inkflow-ai-api/internal/domain/entity"
	"inkflow-ai-api/internal/infrastructure/messaging"
	"inkflow-ai-api/internal/infrastructure/persistence/milvus"
	"inkflow-ai-api/pkg/logger"
)

const (
	defaultChunkSizeRunes    = 500
	defaultChunkOverlapRunes = 80
	defaultEmbeddingBatch    = 16
)

// Ingester 定稿章节摄取: 切片, 向量化, 写入检索库并发布摄取消息
type Ingester struct {
	vector   VectorStore
	embedder embedding.Embedder
	producer EventPublisher

	chunkSizeRunes    int
	chunkOverlapRunes int
	embeddingBatch    int
}

// NewIngester 创建摄取器
func NewIngester(vector VectorStore, embedder embedding.Embedder, producer EventPublisher) *Ingester {
	return &Ingester{
		vector:            vector,
		embedder:          embedder,
		producer:          producer,
		chunkSizeRunes:    defaultChunkSizeRunes,
		chunkOverlapRunes: defaultChunkOverlapRunes,
		embeddingBatch:    defaultEmbeddingBatch,
	}
}

// Enabled 向量摄取是否可用
func (i *Ingester) Enabled() bool {
	return i != nil && i.vector != nil && i.embedder != nil
}

// IngestChapter 把定稿章节写入向量检索库
// 先删后插, 重复摄取同一章节是幂等的
func (i *Ingester) IngestChapter(ctx context.Context, chapter *entity.Chapter) error {
	if chapter == nil || strings.TrimSpace(chapter.ID) == "" {
		return fmt.Errorf("chapter is required")
	}
	if !i.Enabled() {
		return nil
	}
	if err := i.vector.EnsureChapterChunksCollection(ctx); err != nil {
		return err
	}
	if err := i.vector.CreatePartition(ctx, milvus.CollectionChapterChunks, chapter.ProjectID); err != nil {
		return err
	}
	if err := i.vector.DeleteChunksByChapter(ctx, chapter.ProjectID, chapter.ID); err != nil {
		return err
	}

	content := strings.TrimSpace(chapter.ContentText)
	if content == "" {
		return nil
	}

	texts := chunkByRunes(content, i.chunkSizeRunes, i.chunkOverlapRunes)
	if len(texts) == 0 {
		return nil
	}

	embedTexts := make([]string, len(texts))
	for idx, t := range texts {
		embedText := t
		if title := strings.TrimSpace(chapter.Title); title != "" {
			embedText = "章节标题：" + title + "\n" + embedText
		}
		embedTexts[idx] = embedText
	}

	vectors, err := i.embedBatch(ctx, embedTexts)
	if err != nil {
		return err
	}

	chunks := make([]*milvus.ChapterChunk, len(texts))
	for idx, t := range texts {
		chunks[idx] = &milvus.ChapterChunk{
			ID:            uuid.NewString(),
			Vector:        vectors[idx],
			ProjectID:     chapter.ProjectID,
			ChapterID:     chapter.ID,
			ChapterNumber: int64(chapter.ChapterNumber),
			ChunkIndex:    int64(idx),
			TextContent:   t,
		}
	}
	if err := i.vector.InsertChunks(ctx, chapter.ProjectID, chunks); err != nil {
		return err
	}

	i.publishIngest(ctx, chapter)
	return nil
}

// publishIngest 摄取消息发布失败只记日志
func (i *Ingester) publishIngest(ctx context.Context, chapter *entity.Chapter) {
	if i.producer == nil {
		return
	}
	_, err := i.producer.PublishChapterIngest(ctx, &messaging.ChapterIngestMessage{
		ProjectID:     chapter.ProjectID,
		ChapterID:     chapter.ID,
		ChapterNumber: chapter.ChapterNumber,
		Content:       chapter.ContentText,
		Summary:       chapter.Summary,
	})
	if err != nil {
		logger.Warn(ctx, "failed to publish chapter ingest message",
			"chapter_id", chapter.ID,
			"error", err.Error(),
		)
	}
}

func (i *Ingester) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += i.embeddingBatch {
		end := start + i.embeddingBatch
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := i.embedder.EmbedStrings(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(vectors), end-start)
		}
		for _, v := range vectors {
			out = append(out, toFloat32(v))
		}
	}
	return out, nil
}

// chunkByRunes 按字数切片, 相邻片带重叠
func chunkByRunes(s string, maxRunes, overlapRunes int) []string {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return nil
	}
	if maxRunes <= 0 {
		return []string{raw}
	}
	if overlapRunes < 0 {
		overlapRunes = 0
	}
	runes := []rune(raw)
	if len(runes) <= maxRunes {
		return []string{raw}
	}
	step := maxRunes - overlapRunes
	if step <= 0 {
		step = maxRunes
	}

	out := make([]string, 0, (len(runes)/step)+1)
	for start := 0; start < len(runes); start += step {
		end := start + maxRunes
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end >= len(runes) {
			break
		}
	}
	return out
}
