// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"time"

	"inkflow-ai-api/internal/domain/entity"
)

// LLMUsageEventRepository LLM 调用流水仓储接口
type LLMUsageEventRepository interface {
	// Create 记录一次 LLM 调用流水
	Create(ctx context.Context, event *entity.LLMUsageEvent) error

	// GetTokenUsage 统计某工作流在时间窗口内的 token 总消耗, workflow 为空统计全部
	GetTokenUsage(ctx context.Context, workflow string, startInclusive, endExclusive time.Time) (int64, error)
}
