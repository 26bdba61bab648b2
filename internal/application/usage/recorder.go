// Package usage 记录 LLM 调用流水
package usage

import (
	"context"

	"inkflow-ai-api/internal/domain/entity"
	"inkflow-ai-api/internal/domain/repository"
	"inkflow-ai-api/internal/domain/service"
	"inkflow-ai-api/pkg/logger"
)

// Recorder 将 LLM 调用流水落库, 失败只记日志不影响主流程
type Recorder struct {
	repo repository.LLMUsageEventRepository
}

// NewRecorder 创建流水记录器
func NewRecorder(repo repository.LLMUsageEventRepository) *Recorder {
	return &Recorder{repo: repo}
}

// Record 实现 service.LLMUsageRecorder
func (r *Recorder) Record(ctx context.Context, in service.LLMUsageInput) error {
	if r == nil || r.repo == nil {
		return nil
	}
	err := r.repo.Create(ctx, &entity.LLMUsageEvent{
		Workflow:         in.Workflow,
		Provider:         in.Provider,
		Model:            in.Model,
		TokensPrompt:     in.PromptTokens,
		TokensCompletion: in.CompletionTokens,
		DurationMs:       in.DurationMs,
	})
	if err != nil {
		logger.Warn(ctx, "failed to record llm usage",
			"workflow", in.Workflow, "provider", in.Provider, "error", err)
	}
	return nil
}
