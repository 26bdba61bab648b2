// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"inkflow-ai-api/internal/domain/entity"
)

// ChapterFilter 章节过滤条件
type ChapterFilter struct {
	Status entity.ChapterStatus
}

// ChapterRepository 章节仓储接口
type ChapterRepository interface {
	// Create 创建章节
	Create(ctx context.Context, chapter *entity.Chapter) error

	// GetByID 根据 ID 获取章节
	GetByID(ctx context.Context, id string) (*entity.Chapter, error)

	// GetByNumber 根据项目和章节号获取章节
	GetByNumber(ctx context.Context, projectID string, chapterNumber int) (*entity.Chapter, error)

	// Update 更新章节
	Update(ctx context.Context, chapter *entity.Chapter) error

	// Delete 删除章节
	Delete(ctx context.Context, id string) error

	// ListByProject 获取项目章节列表
	ListByProject(ctx context.Context, projectID string, filter *ChapterFilter, pagination Pagination) (*PagedResult[*entity.Chapter], error)

	// UpdateStatus 更新章节状态
	UpdateStatus(ctx context.Context, id string, status entity.ChapterStatus) error

	// GetLatestSuccessful 获取项目最近一个已定稿的章节
	GetLatestSuccessful(ctx context.Context, projectID string) (*entity.Chapter, error)

	// GetRecentSummaries 按章节号倒序获取最近 limit 章的摘要
	GetRecentSummaries(ctx context.Context, projectID string, beforeChapter, limit int) ([]*entity.Chapter, error)

	// NextChapterNumber 获取下一个待创作的章节号
	NextChapterNumber(ctx context.Context, projectID string) (int, error)
}

// ChapterVersionRepository 章节候选版本仓储接口
type ChapterVersionRepository interface {
	// ReplaceForAttempt 替换某章节某轮的全部候选版本
	ReplaceForAttempt(ctx context.Context, chapterID string, attempt int, versions []*entity.ChapterVersion) error

	// ListByChapter 获取某章节最近一轮的候选版本, 按槽位排序
	ListByChapter(ctx context.Context, chapterID string) ([]*entity.ChapterVersion, error)

	// GetByIndex 获取某章节指定槽位的版本
	GetByIndex(ctx context.Context, chapterID string, versionIndex int) (*entity.ChapterVersion, error)

	// DeleteByChapter 删除某章节全部候选版本
	DeleteByChapter(ctx context.Context, chapterID string) error
}

// EvaluationRepository 章节评审记录仓储接口
type EvaluationRepository interface {
	// Create 保存一轮评审记录
	Create(ctx context.Context, eval *entity.ChapterEvaluation) error

	// ListByChapter 按轮次升序获取章节全部评审记录
	ListByChapter(ctx context.Context, chapterID string) ([]*entity.ChapterEvaluation, error)

	// GetLatest 获取章节最近一轮评审记录
	GetLatest(ctx context.Context, chapterID string) (*entity.ChapterEvaluation, error)

	// DeleteByChapter 删除某章节全部评审记录
	DeleteByChapter(ctx context.Context, chapterID string) error
}
