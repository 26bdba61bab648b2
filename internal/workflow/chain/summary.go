package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"

	llmctx "inkflow-ai-api/internal/domain/service"
	wfmodel "inkflow-ai-api/internal/workflow/model"
	wfnode "inkflow-ai-api/internal/workflow/node"
	workflowprompt "inkflow-ai-api/internal/workflow/prompt"
)

// SummaryChain 章节定稿后的摘要生成链
type SummaryChain struct{}

// NewSummaryChain 创建摘要链
func NewSummaryChain() *SummaryChain {
	return &SummaryChain{}
}

// Summarize 为定稿章节生成供后续章节引用的摘要
func (c *SummaryChain) Summarize(ctx context.Context, chatModel model.BaseChatModel, in *wfmodel.ChapterSummaryInput) (string, error) {
	if chatModel == nil {
		return "", fmt.Errorf("chat model is nil")
	}
	if in == nil {
		return "", fmt.Errorf("input is nil")
	}
	if strings.TrimSpace(in.Content) == "" {
		return "", fmt.Errorf("chapter content is empty")
	}

	ctx = llmctx.WithWorkflowProvider(ctx, "chapter_summary", in.Provider)

	tpl, err := writerPromptRegistry.ChatTemplate(workflowprompt.PromptChapterSummaryV1)
	if err != nil {
		return "", err
	}
	msgs, err := tpl.Format(ctx, map[string]any{
		"chapter_number": in.ChapterNumber,
		"content":        in.Content,
	})
	if err != nil {
		return "", err
	}

	outMsg, err := chatModel.Generate(ctx, msgs)
	if err != nil {
		return "", err
	}
	if outMsg == nil {
		return "", fmt.Errorf("empty llm response")
	}
	summary := wfnode.RemoveThinkTags(outMsg.Content)
	if summary == "" {
		return "", fmt.Errorf("empty summary")
	}
	return summary, nil
}
