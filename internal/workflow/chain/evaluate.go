package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"inkflow-ai-api/internal/domain/entity"
	llmctx "inkflow-ai-api/internal/domain/service"
	wfmodel "inkflow-ai-api/internal/workflow/model"
	wfnode "inkflow-ai-api/internal/workflow/node"
	workflowprompt "inkflow-ai-api/internal/workflow/prompt"
	apperrors "inkflow-ai-api/pkg/errors"
	"inkflow-ai-api/pkg/logger"
)

// evaluateParseRetries 解析失败后的额外重试次数
const evaluateParseRetries = 2

// EvaluateChain 多版本章节评审链
// 输出强制 JSON, 不支持 response_format 的模型降级为纯提示词约束
type EvaluateChain struct{}

// NewEvaluateChain 创建评审链
func NewEvaluateChain() *EvaluateChain {
	return &EvaluateChain{}
}

// Evaluate 对候选版本进行评审, 返回结构化裁决和模型原始输出
func (c *EvaluateChain) Evaluate(ctx context.Context, chatModel model.BaseChatModel, in *wfmodel.ChapterEvaluateInput) (*entity.ChapterReviewResult, string, error) {
	if chatModel == nil {
		return nil, "", fmt.Errorf("chat model is nil")
	}
	if in == nil {
		return nil, "", fmt.Errorf("input is nil")
	}
	if strings.TrimSpace(in.Versions) == "" {
		return nil, "", fmt.Errorf("no candidate versions to evaluate")
	}

	ctx = llmctx.WithWorkflowProvider(ctx, "chapter_evaluate", in.Provider)

	tpl, err := writerPromptRegistry.ChatTemplate(workflowprompt.PromptChapterEvaluateV1)
	if err != nil {
		return nil, "", err
	}
	msgs, err := tpl.Format(ctx, map[string]any{
		"blueprint":          strings.TrimSpace(in.Blueprint),
		"previous_summaries": orPlaceholder(in.PreviousSummaries, "（本章为开篇, 无前文）"),
		"chapter_number":     in.ChapterNumber,
		"outline":            strings.TrimSpace(in.Outline),
		"versions":           in.Versions,
	})
	if err != nil {
		return nil, "", err
	}

	var (
		raw     string
		lastErr error
	)
	for attempt := 0; attempt <= evaluateParseRetries; attempt++ {
		outMsg, genErr := c.generate(ctx, chatModel, msgs, in)
		if genErr != nil {
			return nil, "", apperrors.Wrap(genErr, apperrors.CodeLLMCallFailed, "evaluation call failed")
		}
		raw = outMsg.Content

		result, parseErr := parseReviewResult(raw)
		if parseErr == nil {
			return result, raw, nil
		}
		lastErr = parseErr
		logger.Warn(ctx, "evaluation output not parseable, retrying",
			"provider", in.Provider,
			"attempt", attempt+1,
			"error", parseErr.Error(),
		)
	}
	return nil, raw, apperrors.ErrEvaluationParse.WithDetail(lastErr.Error())
}

func (c *EvaluateChain) generate(ctx context.Context, chatModel model.BaseChatModel, msgs []*schema.Message, in *wfmodel.ChapterEvaluateInput) (*schema.Message, error) {
	outMsg, err := chatModel.Generate(ctx, msgs, buildEvaluateModelOptions(in, true)...)
	if err != nil && wfnode.IsResponseFormatUnsupportedError(err) {
		logger.Warn(ctx, "llm json_object not supported, fallback to prompt-only",
			"provider", in.Provider,
			"model", in.Model,
			"error", err.Error(),
		)
		outMsg, err = chatModel.Generate(ctx, msgs, buildEvaluateModelOptions(in, false)...)
	}
	if err != nil {
		return nil, err
	}
	if outMsg == nil {
		return nil, fmt.Errorf("empty llm response")
	}
	return outMsg, nil
}

func buildEvaluateModelOptions(in *wfmodel.ChapterEvaluateInput, enableJSONMode bool) []model.Option {
	opts := make([]model.Option, 0, 2)
	if strings.TrimSpace(in.Model) != "" {
		opts = append(opts, model.WithModel(strings.TrimSpace(in.Model)))
	}
	if enableJSONMode {
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{"type": "json_object"},
		}))
	}
	return opts
}

// parseReviewResult 清理模型输出并解析为结构化评审结果
// best_choice 缺失或越界时回退到得分最高的版本
func parseReviewResult(raw string) (*entity.ChapterReviewResult, error) {
	cleaned := wfnode.CleanModelJSON(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("no JSON object found in output")
	}

	var result entity.ChapterReviewResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("unmarshal review result: %w", err)
	}
	if len(result.Versions) == 0 {
		return nil, fmt.Errorf("review result has no versions")
	}

	for i := range result.Versions {
		if result.Versions[i].Score < 0 {
			result.Versions[i].Score = 0
		}
		if result.Versions[i].Score > 100 {
			result.Versions[i].Score = 100
		}
	}

	if result.BestReview() == nil {
		best := 0
		for i := range result.Versions {
			if result.Versions[i].Score > result.Versions[best].Score {
				best = i
			}
		}
		result.BestChoice = result.Versions[best].VersionIndex
	}
	return &result, nil
}
