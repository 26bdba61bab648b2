// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"inkflow-ai-api/internal/domain/entity"
)

// OutlineRepository 章节大纲仓储接口
type OutlineRepository interface {
	// Create 创建章节大纲
	Create(ctx context.Context, outline *entity.ChapterOutline) error

	// GetByNumber 根据项目和章节号获取大纲
	GetByNumber(ctx context.Context, projectID string, chapterNumber int) (*entity.ChapterOutline, error)

	// Update 更新章节大纲
	Update(ctx context.Context, outline *entity.ChapterOutline) error

	// Delete 删除章节大纲
	Delete(ctx context.Context, id string) error

	// ListByProject 按章节号升序获取项目全部大纲
	ListByProject(ctx context.Context, projectID string) ([]*entity.ChapterOutline, error)

	// MaxChapterNumber 获取项目已有大纲的最大章节号, 无大纲返回 0
	MaxChapterNumber(ctx context.Context, projectID string) (int, error)
}
