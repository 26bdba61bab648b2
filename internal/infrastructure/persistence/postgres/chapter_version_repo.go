package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"inkflow-ai-api/internal/domain/entity"
)

// ChapterVersionRepository 章节候选版本仓储实现
type ChapterVersionRepository struct {
	client *Client
}

// NewChapterVersionRepository 创建章节候选版本仓储
func NewChapterVersionRepository(client *Client) *ChapterVersionRepository {
	return &ChapterVersionRepository{client: client}
}

// ReplaceForAttempt 替换某章节某轮的全部候选版本
// 每轮重写覆盖上一轮的候选集, 只保留最新一轮
func (r *ChapterVersionRepository) ReplaceForAttempt(ctx context.Context, chapterID string, attempt int, versions []*entity.ChapterVersion) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterVersionRepository.ReplaceForAttempt")
	defer span.End()

	db := getDB(ctx, r.client.db)
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&entity.ChapterVersion{}, "chapter_id = ?", chapterID).Error; err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to clear chapter versions: %w", err)
		}
		for _, v := range versions {
			v.ChapterID = chapterID
			v.Attempt = attempt
		}
		if len(versions) > 0 {
			if err := tx.Create(&versions).Error; err != nil {
				span.RecordError(err)
				return fmt.Errorf("failed to insert chapter versions: %w", err)
			}
		}
		return nil
	})
}

// ListByChapter 获取某章节最近一轮的候选版本, 按槽位排序
func (r *ChapterVersionRepository) ListByChapter(ctx context.Context, chapterID string) ([]*entity.ChapterVersion, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterVersionRepository.ListByChapter")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var versions []*entity.ChapterVersion
	if err := db.Where("chapter_id = ?", chapterID).
		Order("version_index ASC").
		Find(&versions).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chapter versions: %w", err)
	}
	return versions, nil
}

// GetByIndex 获取某章节指定槽位的版本
func (r *ChapterVersionRepository) GetByIndex(ctx context.Context, chapterID string, versionIndex int) (*entity.ChapterVersion, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterVersionRepository.GetByIndex")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var version entity.ChapterVersion
	if err := db.Where("chapter_id = ? AND version_index = ?", chapterID, versionIndex).
		First(&version).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get chapter version: %w", err)
	}
	return &version, nil
}

// DeleteByChapter 删除某章节全部候选版本
func (r *ChapterVersionRepository) DeleteByChapter(ctx context.Context, chapterID string) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterVersionRepository.DeleteByChapter")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.ChapterVersion{}, "chapter_id = ?", chapterID).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete chapter versions: %w", err)
	}
	return nil
}
