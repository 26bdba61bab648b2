// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"inkflow-ai-api/internal/domain/entity"
	"inkflow-ai-api/internal/domain/repository"
)

// ChapterRepository 章节仓储实现
type ChapterRepository struct {
	client *Client
}

// NewChapterRepository 创建章节仓储
func NewChapterRepository(client *Client) *ChapterRepository {
	return &ChapterRepository{client: client}
}

// Create 创建章节
func (r *ChapterRepository) Create(ctx context.Context, chapter *entity.Chapter) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(chapter).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create chapter: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取章节
func (r *ChapterRepository) GetByID(ctx context.Context, id string) (*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapter entity.Chapter
	if err := db.First(&chapter, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	return &chapter, nil
}

// GetByNumber 根据项目和章节号获取章节
func (r *ChapterRepository) GetByNumber(ctx context.Context, projectID string, chapterNumber int) (*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.GetByNumber")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapter entity.Chapter
	if err := db.Where("project_id = ? AND chapter_number = ?", projectID, chapterNumber).
		First(&chapter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get chapter by number: %w", err)
	}
	return &chapter, nil
}

// Update 更新章节
func (r *ChapterRepository) Update(ctx context.Context, chapter *entity.Chapter) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(chapter).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update chapter: %w", err)
	}
	return nil
}

// Delete 删除章节
func (r *ChapterRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.Chapter{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete chapter: %w", err)
	}
	return nil
}

// ListByProject 获取项目的章节列表
func (r *ChapterRepository) ListByProject(ctx context.Context, projectID string, filter *repository.ChapterFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Chapter], error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.Chapter{}).Where("project_id = ?", projectID)

	if filter != nil && filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count chapters: %w", err)
	}

	var chapters []*entity.Chapter
	if err := query.Order("chapter_number ASC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&chapters).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}

	return repository.NewPagedResult(chapters, total, pagination), nil
}

// UpdateStatus 更新章节状态
func (r *ChapterRepository) UpdateStatus(ctx context.Context, id string, status entity.ChapterStatus) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.UpdateStatus")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Chapter{}).Where("id = ?", id).Update("status", status).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update chapter status: %w", err)
	}
	return nil
}

// GetLatestSuccessful 获取项目最近一个已定稿的章节
func (r *ChapterRepository) GetLatestSuccessful(ctx context.Context, projectID string) (*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.GetLatestSuccessful")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapter entity.Chapter
	if err := db.Where("project_id = ? AND status = ?", projectID, entity.ChapterStatusSuccessful).
		Order("chapter_number DESC").
		First(&chapter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get latest successful chapter: %w", err)
	}
	return &chapter, nil
}

// GetRecentSummaries 按章节号倒序获取最近 limit 章的摘要
func (r *ChapterRepository) GetRecentSummaries(ctx context.Context, projectID string, beforeChapter, limit int) ([]*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.GetRecentSummaries")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapters []*entity.Chapter
	if err := db.Select("id", "chapter_number", "title", "summary").
		Where("project_id = ? AND chapter_number < ? AND status = ?", projectID, beforeChapter, entity.ChapterStatusSuccessful).
		Order("chapter_number DESC").
		Limit(limit).
		Find(&chapters).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get recent summaries: %w", err)
	}
	return chapters, nil
}

// NextChapterNumber 获取下一个待创作的章节号
func (r *ChapterRepository) NextChapterNumber(ctx context.Context, projectID string) (int, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.NextChapterNumber")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var maxNum *int
	if err := db.Model(&entity.Chapter{}).
		Where("project_id = ? AND status = ?", projectID, entity.ChapterStatusSuccessful).
		Select("MAX(chapter_number)").
		Scan(&maxNum).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to get max chapter number: %w", err)
	}

	if maxNum == nil {
		return 1, nil
	}
	return *maxNum + 1, nil
}
