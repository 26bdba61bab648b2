package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"inkflow-ai-api/internal/domain/entity"
)

// OutlineRepository 章节大纲仓储实现
type OutlineRepository struct {
	client *Client
}

// NewOutlineRepository 创建章节大纲仓储
func NewOutlineRepository(client *Client) *OutlineRepository {
	return &OutlineRepository{client: client}
}

// Create 创建章节大纲
func (r *OutlineRepository) Create(ctx context.Context, outline *entity.ChapterOutline) error {
	ctx, span := tracer.Start(ctx, "postgres.OutlineRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(outline).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create outline: %w", err)
	}
	return nil
}

// GetByNumber 根据项目和章节号获取大纲
func (r *OutlineRepository) GetByNumber(ctx context.Context, projectID string, chapterNumber int) (*entity.ChapterOutline, error) {
	ctx, span := tracer.Start(ctx, "postgres.OutlineRepository.GetByNumber")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var outline entity.ChapterOutline
	if err := db.Where("project_id = ? AND chapter_number = ?", projectID, chapterNumber).
		First(&outline).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get outline: %w", err)
	}
	return &outline, nil
}

// Update 更新章节大纲
func (r *OutlineRepository) Update(ctx context.Context, outline *entity.ChapterOutline) error {
	ctx, span := tracer.Start(ctx, "postgres.OutlineRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(outline).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update outline: %w", err)
	}
	return nil
}

// Delete 删除章节大纲
func (r *OutlineRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.OutlineRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.ChapterOutline{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete outline: %w", err)
	}
	return nil
}

// ListByProject 按章节号升序获取项目全部大纲
func (r *OutlineRepository) ListByProject(ctx context.Context, projectID string) ([]*entity.ChapterOutline, error) {
	ctx, span := tracer.Start(ctx, "postgres.OutlineRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var outlines []*entity.ChapterOutline
	if err := db.Where("project_id = ?", projectID).
		Order("chapter_number ASC").
		Find(&outlines).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list outlines: %w", err)
	}
	return outlines, nil
}

// MaxChapterNumber 获取项目已有大纲的最大章节号, 无大纲返回 0
func (r *OutlineRepository) MaxChapterNumber(ctx context.Context, projectID string) (int, error) {
	ctx, span := tracer.Start(ctx, "postgres.OutlineRepository.MaxChapterNumber")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var maxNum *int
	if err := db.Model(&entity.ChapterOutline{}).
		Where("project_id = ?", projectID).
		Select("MAX(chapter_number)").
		Scan(&maxNum).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to get max outline number: %w", err)
	}

	if maxNum == nil {
		return 0, nil
	}
	return *maxNum, nil
}
