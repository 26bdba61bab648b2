// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"inkflow-ai-api/pkg/metrics"
)

// Repository 章节向量仓储
type Repository struct {
	client *Client
}

// NewRepository 创建章节向量仓储
func NewRepository(client *Client) *Repository {
	return &Repository{client: client}
}

// SearchParams 检索参数
type SearchParams struct {
	ProjectID     string
	QueryVector   []float32
	TopK          int
	BeforeChapter int
}

// SearchResult 检索结果
type SearchResult struct {
	ID            string
	Score         float32
	TextContent   string
	ChapterID     string
	ChapterNumber int64
}

// CreateCollection 创建集合
func (r *Repository) CreateCollection(ctx context.Context, schema *entity.Schema) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.CreateCollection",
		trace.WithAttributes(attribute.String("collection", schema.CollectionName)))
	defer span.End()

	collName := r.client.CollectionName(schema.CollectionName)
	schema.CollectionName = collName

	err := r.client.milvus.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// CreateIndex 创建 HNSW 索引
func (r *Repository) CreateIndex(ctx context.Context, collection string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.CreateIndex",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	collName := r.client.CollectionName(collection)

	idx, err := entity.NewIndexHNSW(
		entity.COSINE,
		r.client.config.HNSWM,
		r.client.config.HNSWEfConstruction,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = r.client.milvus.CreateIndex(ctx, collName, "vector", idx, false)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// CreatePartition 创建项目分区
func (r *Repository) CreatePartition(ctx context.Context, collection, projectID string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.CreatePartition",
		trace.WithAttributes(
			attribute.String("collection", collection),
			attribute.String("partition", PartitionName(projectID)),
		))
	defer span.End()

	collName := r.client.CollectionName(collection)
	return r.client.milvus.CreatePartition(ctx, collName, PartitionName(projectID))
}

// SearchChunks 语义检索章节分块
func (r *Repository) SearchChunks(ctx context.Context, params *SearchParams) ([]*SearchResult, error) {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return nil, fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.SearchChunks",
		trace.WithAttributes(
			attribute.String("project_id", params.ProjectID),
			attribute.Int("top_k", params.TopK),
		))
	defer span.End()

	start := time.Now()
	collName := r.client.CollectionName(CollectionChapterChunks)
	partitionName := PartitionName(params.ProjectID)

	// 分区尚未创建时（新项目）直接返回空结果
	if has, err := r.client.milvus.HasPartition(ctx, collName, partitionName); err != nil {
		span.RecordError(err)
		metrics.MilvusSearchTotal.WithLabelValues(CollectionChapterChunks, "error").Inc()
		return nil, fmt.Errorf("failed to check partition: %w", err)
	} else if !has {
		return []*SearchResult{}, nil
	}

	filter := fmt.Sprintf(`project_id == "%s"`, params.ProjectID)
	// 排除当前及之后的章节, 避免检索到未定稿内容
	if params.BeforeChapter > 0 {
		filter += fmt.Sprintf(` && chapter_number < %d`, params.BeforeChapter)
	}

	sp, err := entity.NewIndexHNSWSearchParam(128)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	results, err := r.client.milvus.Search(ctx,
		collName,
		[]string{partitionName},
		filter,
		[]string{"id", "text_content", "chapter_id", "chapter_number"},
		[]entity.Vector{entity.FloatVector(params.QueryVector)},
		"vector",
		entity.COSINE,
		params.TopK,
		sp,
	)
	if err != nil {
		span.RecordError(err)
		metrics.MilvusSearchTotal.WithLabelValues(CollectionChapterChunks, "error").Inc()
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var searchResults []*SearchResult
	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			sr := &SearchResult{
				Score: result.Scores[i],
			}

			if idCol, ok := result.Fields.GetColumn("id").(*entity.ColumnVarChar); ok {
				sr.ID = idCol.Data()[i]
			}
			if textCol, ok := result.Fields.GetColumn("text_content").(*entity.ColumnVarChar); ok {
				sr.TextContent = textCol.Data()[i]
			}
			if chapterCol, ok := result.Fields.GetColumn("chapter_id").(*entity.ColumnVarChar); ok {
				sr.ChapterID = chapterCol.Data()[i]
			}
			if numCol, ok := result.Fields.GetColumn("chapter_number").(*entity.ColumnInt64); ok {
				sr.ChapterNumber = numCol.Data()[i]
			}

			searchResults = append(searchResults, sr)
		}
	}

	metrics.MilvusSearchDuration.WithLabelValues(CollectionChapterChunks).Observe(time.Since(start).Seconds())
	metrics.MilvusSearchTotal.WithLabelValues(CollectionChapterChunks, "success").Inc()
	span.SetAttributes(attribute.Int("result_count", len(searchResults)))
	return searchResults, nil
}

// InsertChunks 插入章节分块
func (r *Repository) InsertChunks(ctx context.Context, projectID string, chunks []*ChapterChunk) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.InsertChunks",
		trace.WithAttributes(
			attribute.String("project_id", projectID),
			attribute.Int("count", len(chunks)),
		))
	defer span.End()

	if len(chunks) == 0 {
		return nil
	}

	collName := r.client.CollectionName(CollectionChapterChunks)
	partitionName := PartitionName(projectID)

	has, _ := r.client.milvus.HasPartition(ctx, collName, partitionName)
	if !has {
		if err := r.CreatePartition(ctx, CollectionChapterChunks, projectID); err != nil {
			return err
		}
	}

	ids := make([]string, len(chunks))
	vectors := make([][]float32, len(chunks))
	projectIDs := make([]string, len(chunks))
	chapterIDs := make([]string, len(chunks))
	chapterNums := make([]int64, len(chunks))
	chunkIndexes := make([]int64, len(chunks))
	textContents := make([]string, len(chunks))

	for i, chunk := range chunks {
		ids[i] = chunk.ID
		vectors[i] = chunk.Vector
		projectIDs[i] = chunk.ProjectID
		chapterIDs[i] = chunk.ChapterID
		chapterNums[i] = chunk.ChapterNumber
		chunkIndexes[i] = chunk.ChunkIndex
		textContents[i] = chunk.TextContent
	}

	idCol := entity.NewColumnVarChar("id", ids)
	vectorCol := entity.NewColumnFloatVector("vector", VectorDimension, vectors)
	projectCol := entity.NewColumnVarChar("project_id", projectIDs)
	chapterCol := entity.NewColumnVarChar("chapter_id", chapterIDs)
	numCol := entity.NewColumnInt64("chapter_number", chapterNums)
	indexCol := entity.NewColumnInt64("chunk_index", chunkIndexes)
	textCol := entity.NewColumnVarChar("text_content", textContents)

	_, err := r.client.milvus.Insert(ctx, collName, partitionName,
		idCol, vectorCol, projectCol, chapterCol, numCol, indexCol, textCol)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert chunks: %w", err)
	}

	return nil
}

// DeleteChunksByChapter 删除章节的所有分块, 重新入库前调用
func (r *Repository) DeleteChunksByChapter(ctx context.Context, projectID, chapterID string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.DeleteChunksByChapter",
		trace.WithAttributes(attribute.String("chapter_id", chapterID)))
	defer span.End()

	collName := r.client.CollectionName(CollectionChapterChunks)
	partitionName := PartitionName(projectID)

	if has, err := r.client.milvus.HasPartition(ctx, collName, partitionName); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check partition: %w", err)
	} else if !has {
		return nil
	}

	filter := fmt.Sprintf(`chapter_id == "%s"`, chapterID)
	if err := r.client.milvus.Delete(ctx, collName, partitionName, filter); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete chunks: %w", err)
	}

	return nil
}

// EnsureChapterChunksCollection 确保集合与索引可用, 不存在则创建
// 不做 drop/rebuild 等破坏性操作
func (r *Repository) EnsureChapterChunksCollection(ctx context.Context) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}

	exists, err := r.client.HasCollection(ctx, CollectionChapterChunks)
	if err != nil {
		return err
	}
	if !exists {
		if err := r.CreateCollection(ctx, ChapterChunksSchema()); err != nil {
			return err
		}
		// 新建集合时创建索引, 失败留给运维介入
		_ = r.CreateIndex(ctx, CollectionChapterChunks)
	}

	return r.client.LoadCollection(ctx, CollectionChapterChunks)
}
