// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"inkflow-ai-api/internal/domain/entity"
)

// SettingRepository 系统配置仓储接口
type SettingRepository interface {
	// Get 读取配置项, 不存在时返回 ErrNotFound
	Get(ctx context.Context, key string) (*entity.SystemSetting, error)

	// GetInt 读取整型配置项, 不存在或非法时返回 fallback
	GetInt(ctx context.Context, key string, fallback int) (int, error)

	// Set 写入配置项 (upsert)
	Set(ctx context.Context, key, value string) error

	// List 按 key 前缀列出配置项
	List(ctx context.Context, prefix string) ([]*entity.SystemSetting, error)
}
