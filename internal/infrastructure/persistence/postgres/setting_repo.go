package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "inkflow-ai-api/pkg/errors"

	"inkflow-ai-api/internal/domain/entity"
)

// SettingRepository 系统配置仓储实现
type SettingRepository struct {
	client *Client
}

// NewSettingRepository 创建系统配置仓储
func NewSettingRepository(client *Client) *SettingRepository {
	return &SettingRepository{client: client}
}

// Get 读取配置项
func (r *SettingRepository) Get(ctx context.Context, key string) (*entity.SystemSetting, error) {
	ctx, span := tracer.Start(ctx, "postgres.SettingRepository.Get")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var setting entity.SystemSetting
	if err := db.First(&setting, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound.WithDetail(key)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return &setting, nil
}

// GetInt 读取整型配置项, 不存在或非法时返回 fallback
func (r *SettingRepository) GetInt(ctx context.Context, key string, fallback int) (int, error) {
	setting, err := r.Get(ctx, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fallback, nil
		}
		return fallback, err
	}

	n, convErr := strconv.Atoi(setting.Value)
	if convErr != nil {
		return fallback, nil
	}
	return n, nil
}

// Set 写入配置项 (upsert)
func (r *SettingRepository) Set(ctx context.Context, key, value string) error {
	ctx, span := tracer.Start(ctx, "postgres.SettingRepository.Set")
	defer span.End()

	db := getDB(ctx, r.client.db)
	setting := entity.SystemSetting{Key: key, Value: value}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

// List 按 key 前缀列出配置项
func (r *SettingRepository) List(ctx context.Context, prefix string) ([]*entity.SystemSetting, error) {
	ctx, span := tracer.Start(ctx, "postgres.SettingRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var settings []*entity.SystemSetting
	query := db.Model(&entity.SystemSetting{})
	if prefix != "" {
		query = query.Where("key LIKE ?", prefix+"%")
	}
	if err := query.Order("key ASC").Find(&settings).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return settings, nil
}
