// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionChapterChunks 章节正文分块集合
	CollectionChapterChunks = "chapter_chunks"

	// VectorDimension 向量维度
	VectorDimension = 1536
)

// ChapterChunksSchema 章节分块 Collection Schema
func ChapterChunksSchema() *entity.Schema {
	return &entity.Schema{
		CollectionName: CollectionChapterChunks,
		Description:    "Chapter content chunks for semantic retrieval",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": "1536",
				},
			},
			{
				Name:     "project_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "chapter_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "chapter_number",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "chunk_index",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "text_content",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
		},
	}
}

// ChapterChunk 章节分块数据结构
type ChapterChunk struct {
	ID            string    `json:"id"`
	Vector        []float32 `json:"vector"`
	ProjectID     string    `json:"project_id"`
	ChapterID     string    `json:"chapter_id"`
	ChapterNumber int64     `json:"chapter_number"`
	ChunkIndex    int64     `json:"chunk_index"`
	TextContent   string    `json:"text_content"`
}

// PartitionName 生成分区名称
func PartitionName(projectID string) string {
	return "proj_" + projectID
}
