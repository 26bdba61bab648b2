package writer

import (
	"context"
	"fmt"
	"strings"

	"inkflow-ai-api/internal/domain/entity"
	"inkflow-ai-api/internal/infrastructure/llm"
	workflowchain "inkflow-ai-api/internal/workflow/chain"
	wfmodel "inkflow-ai-api/internal/workflow/model"
	"inkflow-ai-api/internal/workflow/node"
)

// NodeEvaluation 评审功能节点名
const NodeEvaluation = "evaluation"

// NodeSummary 摘要功能节点名
const NodeSummary = "summary"

// Drafter 写作链适配器: 按槽位温度解析 ChatModel 后调用写作链
type Drafter struct {
	registry *llm.Registry
	chain    *workflowchain.WriteChain
}

// NewDrafter 创建写作适配器
func NewDrafter(registry *llm.Registry) *Drafter {
	return &Drafter{
		registry: registry,
		chain:    workflowchain.NewWriteChain(),
	}
}

// Draft 生成初稿
func (d *Drafter) Draft(ctx context.Context, wm llm.WritingModel, in *wfmodel.ChapterWriteInput) (string, error) {
	chatModel, err := d.registry.ResolveWriting(ctx, wm, false)
	if err != nil {
		return "", err
	}
	in.Provider = wm.Provider
	in.Model = wm.Model

	outMsg, err := d.chain.Write(ctx, chatModel, in)
	if err != nil {
		return "", err
	}
	content := strings.TrimSpace(node.RemoveThinkTags(outMsg.Content))
	if content == "" {
		return "", fmt.Errorf("empty chapter content")
	}
	return content, nil
}

// Revise 使用重写温度解析 ChatModel 后重写
func (d *Drafter) Revise(ctx context.Context, wm llm.WritingModel, in *wfmodel.ChapterReviseInput) (string, error) {
	chatModel, err := d.registry.ResolveWriting(ctx, wm, true)
	if err != nil {
		return "", err
	}
	in.Provider = wm.Provider
	in.Model = wm.Model

	outMsg, err := d.chain.Revise(ctx, chatModel, in)
	if err != nil {
		return "", err
	}
	content := strings.TrimSpace(node.RemoveThinkTags(outMsg.Content))
	if content == "" {
		return "", fmt.Errorf("empty chapter content")
	}
	return content, nil
}

// Judge 评审链适配器: 绑定 evaluation 功能节点
type Judge struct {
	registry *llm.Registry
	chain    *workflowchain.EvaluateChain
}

// NewJudge 创建评审适配器
func NewJudge(registry *llm.Registry) *Judge {
	return &Judge{
		registry: registry,
		chain:    workflowchain.NewEvaluateChain(),
	}
}

// Evaluate 调用评审节点绑定的模型
func (j *Judge) Evaluate(ctx context.Context, in *wfmodel.ChapterEvaluateInput) (*entity.ChapterReviewResult, string, error) {
	chatModel, err := j.registry.ResolveNode(ctx, NodeEvaluation)
	if err != nil {
		return nil, "", err
	}
	in.Provider = j.registry.NodeProvider(NodeEvaluation)
	in.Model = j.registry.ProviderModel(in.Provider)
	return j.chain.Evaluate(ctx, chatModel, in)
}

// Summarizer 摘要链适配器: 绑定 summary 功能节点
type Summarizer struct {
	registry *llm.Registry
	chain    *workflowchain.SummaryChain
}

// NewSummarizer 创建摘要适配器
func NewSummarizer(registry *llm.Registry) *Summarizer {
	return &Summarizer{
		registry: registry,
		chain:    workflowchain.NewSummaryChain(),
	}
}

// Summarize 生成供后续章节引用的摘要
func (s *Summarizer) Summarize(ctx context.Context, chapterNumber int, content string) (string, error) {
	chatModel, err := s.registry.ResolveNode(ctx, NodeSummary)
	if err != nil {
		return "", err
	}
	return s.chain.Summarize(ctx, chatModel, &wfmodel.ChapterSummaryInput{
		Provider:      s.registry.NodeProvider(NodeSummary),
		ChapterNumber: chapterNumber,
		Content:       content,
	})
}
