package writer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"inkflow-ai-api/internal/domain/entity"
	"inkflow-ai-api/internal/infrastructure/llm"
	wfmodel "inkflow-ai-api/internal/workflow/model"
	"inkflow-ai-api/internal/workflow/node"
	apperrors "inkflow-ai-api/pkg/errors"
	"inkflow-ai-api/pkg/logger"
	"inkflow-ai-api/pkg/metrics"
)

// lastContentTailRunes 重写提示词中上一稿结尾节选的长度
const lastContentTailRunes = 600

// FanOut 并发生成器: 每个写作模型占一个固定槽位
// 槽位顺序由写作模型清单决定, 与完成顺序无关
type FanOut struct {
	drafter ChapterDrafter
}

// NewFanOut 创建并发生成器
func NewFanOut(drafter ChapterDrafter) *FanOut {
	return &FanOut{drafter: drafter}
}

// FanOutRequest 一轮并发生成的输入
type FanOutRequest struct {
	ChapterNumber int
	Outline       string
	Context       *PromptContext
	MinWords      int
	MaxWords      int
	Attempt       int

	// Feedback 非 nil 时本轮为重写
	Feedback *RewriteFeedback
	// PrevVersions 上一轮候选版本, 按槽位取上一稿结尾
	PrevVersions []*entity.ChapterVersion
}

// Generate 并发执行全部槽位, 返回按槽位有序的候选版本
// 部分槽位失败时保留错误继续, 全部失败才返回 ErrGenerationFailed
func (f *FanOut) Generate(ctx context.Context, models []llm.WritingModel, req *FanOutRequest) ([]*entity.ChapterVersion, error) {
	if len(models) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "no writing models configured")
	}

	versions := make([]*entity.ChapterVersion, len(models))
	var wg sync.WaitGroup
	for i, wm := range models {
		wg.Add(1)
		go func(slot int, wm llm.WritingModel) {
			defer wg.Done()
			versions[slot] = f.generateSlot(ctx, slot, wm, req)
		}(i, wm)
	}
	wg.Wait()

	succeeded := 0
	failures := make([]string, 0, len(versions))
	for _, v := range versions {
		if v.Succeeded() {
			succeeded++
			metrics.ChapterWordCount.WithLabelValues(v.Provider).Observe(float64(v.WordCount))
		} else {
			failures = append(failures, fmt.Sprintf("%s: %s", v.Provider, v.GenerateError))
		}
	}
	if succeeded == 0 {
		return versions, apperrors.ErrGenerationFailed.WithDetail(strings.Join(failures, "; "))
	}
	return versions, nil
}

func (f *FanOut) generateSlot(ctx context.Context, slot int, wm llm.WritingModel, req *FanOutRequest) *entity.ChapterVersion {
	// 对外的版本编号从 1 开始, 评审与选择都用这个编号
	index := slot + 1
	version := &entity.ChapterVersion{
		VersionIndex: index,
		Provider:     wm.Provider,
		Model:        wm.Model,
		Attempt:      req.Attempt,
	}

	content, err := f.produce(ctx, index, wm, req)
	if err != nil {
		logger.Warn(ctx, "chapter slot generation failed",
			"version_index", index,
			"provider", wm.Provider,
			"chapter_number", req.ChapterNumber,
			"attempt", req.Attempt,
			"error", err.Error(),
		)
		version.GenerateError = err.Error()
		return version
	}

	version.ContentText = content
	version.WordCount = len([]rune(content))
	return version
}

// produce 首轮或上一稿缺失时写初稿, 否则按累积反馈重写自己的上一稿
func (f *FanOut) produce(ctx context.Context, index int, wm llm.WritingModel, req *FanOutRequest) (string, error) {
	prev := prevSlotVersion(req.PrevVersions, index)
	if req.Feedback == nil || prev == nil || !prev.Succeeded() {
		return f.drafter.Draft(ctx, wm, &wfmodel.ChapterWriteInput{
			ChapterNumber:     req.ChapterNumber,
			Blueprint:         req.Context.Blueprint,
			Outline:           req.Outline,
			PreviousSummaries: req.Context.PreviousSummaries,
			LastChapterTail:   req.Context.LastChapterTail,
			RetrievedContext:  req.Context.RetrievedContext,
			MinWords:          req.MinWords,
			MaxWords:          req.MaxWords,
		})
	}

	return f.drafter.Revise(ctx, wm, &wfmodel.ChapterReviseInput{
		ChapterNumber:     req.ChapterNumber,
		Blueprint:         req.Context.Blueprint,
		Outline:           req.Outline,
		PreviousSummaries: req.Context.PreviousSummaries,
		LastContentTail:   node.TailExcerpt(prev.ContentText, lastContentTailRunes),
		Weaknesses:        req.Feedback.WeaknessText(index),
		Pros:              req.Feedback.ProsText(index),
		MinWords:          req.MinWords,
		MaxWords:          req.MaxWords,
	})
}

func prevSlotVersion(versions []*entity.ChapterVersion, index int) *entity.ChapterVersion {
	for _, v := range versions {
		if v != nil && v.VersionIndex == index {
			return v
		}
	}
	return nil
}
