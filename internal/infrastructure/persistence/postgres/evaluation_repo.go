package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"inkflow-ai-api/internal/domain/entity"
)

// EvaluationRepository 章节评审记录仓储实现
type EvaluationRepository struct {
	client *Client
}

// NewEvaluationRepository 创建章节评审记录仓储
func NewEvaluationRepository(client *Client) *EvaluationRepository {
	return &EvaluationRepository{client: client}
}

// Create 保存一轮评审记录
func (r *EvaluationRepository) Create(ctx context.Context, eval *entity.ChapterEvaluation) error {
	ctx, span := tracer.Start(ctx, "postgres.EvaluationRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(eval).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create evaluation: %w", err)
	}
	return nil
}

// ListByChapter 按轮次升序获取章节全部评审记录
func (r *EvaluationRepository) ListByChapter(ctx context.Context, chapterID string) ([]*entity.ChapterEvaluation, error) {
	ctx, span := tracer.Start(ctx, "postgres.EvaluationRepository.ListByChapter")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var evals []*entity.ChapterEvaluation
	if err := db.Where("chapter_id = ?", chapterID).
		Order("attempt ASC").
		Find(&evals).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	return evals, nil
}

// GetLatest 获取章节最近一轮评审记录
func (r *EvaluationRepository) GetLatest(ctx context.Context, chapterID string) (*entity.ChapterEvaluation, error) {
	ctx, span := tracer.Start(ctx, "postgres.EvaluationRepository.GetLatest")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var eval entity.ChapterEvaluation
	if err := db.Where("chapter_id = ?", chapterID).
		Order("attempt DESC").
		First(&eval).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get latest evaluation: %w", err)
	}
	return &eval, nil
}

// DeleteByChapter 删除某章节全部评审记录
func (r *EvaluationRepository) DeleteByChapter(ctx context.Context, chapterID string) error {
	ctx, span := tracer.Start(ctx, "postgres.EvaluationRepository.DeleteByChapter")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.ChapterEvaluation{}, "chapter_id = ?", chapterID).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete evaluations: %w", err)
	}
	return nil
}
