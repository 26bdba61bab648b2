package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	llmctx "inkflow-ai-api/internal/domain/service"
	wfmodel "inkflow-ai-api/internal/workflow/model"
	workflowprompt "inkflow-ai-api/internal/workflow/prompt"
)

var writerPromptRegistry = workflowprompt.NewRegistry()

// WriteChain 章节初稿/重写链
// ChatModel 由调用方解析后传入, 同一条链服务所有写作槽位
type WriteChain struct{}

// NewWriteChain 创建写作链
func NewWriteChain() *WriteChain {
	return &WriteChain{}
}

// Write 生成章节初稿
func (c *WriteChain) Write(ctx context.Context, chatModel model.BaseChatModel, in *wfmodel.ChapterWriteInput) (*schema.Message, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is nil")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	if strings.TrimSpace(in.Outline) == "" {
		return nil, fmt.Errorf("chapter outline is required")
	}

	ctx = llmctx.WithWorkflowProvider(ctx, "chapter_write", in.Provider)

	tpl, err := writerPromptRegistry.ChatTemplate(workflowprompt.PromptChapterWriteV1)
	if err != nil {
		return nil, err
	}
	msgs, err := tpl.Format(ctx, map[string]any{
		"blueprint":          strings.TrimSpace(in.Blueprint),
		"previous_summaries": orPlaceholder(in.PreviousSummaries, "（本章为开篇, 无前文）"),
		"last_chapter_tail":  orPlaceholder(in.LastChapterTail, "（无）"),
		"retrieved_context":  orPlaceholder(in.RetrievedContext, "（无）"),
		"chapter_number":     in.ChapterNumber,
		"outline":            strings.TrimSpace(in.Outline),
		"min_words":          in.MinWords,
		"max_words":          in.MaxWords,
	})
	if err != nil {
		return nil, err
	}

	outMsg, err := chatModel.Generate(ctx, msgs, buildWriterModelOptions(in.Temperature, in.MaxTokens, in.Model)...)
	if err != nil {
		return nil, err
	}
	if outMsg == nil {
		return nil, fmt.Errorf("empty llm response")
	}
	return outMsg, nil
}

// Revise 根据评审反馈重写章节
func (c *WriteChain) Revise(ctx context.Context, chatModel model.BaseChatModel, in *wfmodel.ChapterReviseInput) (*schema.Message, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is nil")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	if strings.TrimSpace(in.Outline) == "" {
		return nil, fmt.Errorf("chapter outline is required")
	}

	ctx = llmctx.WithWorkflowProvider(ctx, "chapter_revise", in.Provider)

	tpl, err := writerPromptRegistry.ChatTemplate(workflowprompt.PromptChapterReviseV1)
	if err != nil {
		return nil, err
	}
	msgs, err := tpl.Format(ctx, map[string]any{
		"blueprint":          strings.TrimSpace(in.Blueprint),
		"previous_summaries": orPlaceholder(in.PreviousSummaries, "（本章为开篇, 无前文）"),
		"chapter_number":     in.ChapterNumber,
		"outline":            strings.TrimSpace(in.Outline),
		"last_content_tail":  orPlaceholder(in.LastContentTail, "（无）"),
		"weaknesses":         orPlaceholder(in.Weaknesses, "（无具体问题, 整体提升质量）"),
		"pros":               orPlaceholder(in.Pros, "（无）"),
		"min_words":          in.MinWords,
		"max_words":          in.MaxWords,
	})
	if err != nil {
		return nil, err
	}

	outMsg, err := chatModel.Generate(ctx, msgs, buildWriterModelOptions(in.Temperature, in.MaxTokens, in.Model)...)
	if err != nil {
		return nil, err
	}
	if outMsg == nil {
		return nil, fmt.Errorf("empty llm response")
	}
	return outMsg, nil
}

func buildWriterModelOptions(temperature *float32, maxTokens *int, modelName string) []model.Option {
	opts := make([]model.Option, 0, 3)
	if temperature != nil {
		opts = append(opts, model.WithTemperature(*temperature))
	}
	if maxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*maxTokens))
	}
	if strings.TrimSpace(modelName) != "" {
		opts = append(opts, model.WithModel(strings.TrimSpace(modelName)))
	}
	return opts
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return strings.TrimSpace(s)
}
