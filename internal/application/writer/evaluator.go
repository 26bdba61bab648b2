package writer

import (
	"context"
	"fmt"
	"strings"

	"inkflow-ai-api/internal/domain/entity"
	"inkflow-ai-api/internal/domain/repository"
	wfmodel "inkflow-ai-api/internal/workflow/model"
	apperrors "inkflow-ai-api/pkg/errors"
	"inkflow-ai-api/pkg/logger"
	"inkflow-ai-api/pkg/metrics"
)

// Evaluator 候选版本评审: 调用评审节点并持久化每轮裁决
type Evaluator struct {
	judge    ChapterJudge
	evalRepo repository.EvaluationRepository
}

// NewEvaluator 创建评审器
func NewEvaluator(judge ChapterJudge, evalRepo repository.EvaluationRepository) *Evaluator {
	return &Evaluator{judge: judge, evalRepo: evalRepo}
}

// EvaluateRound 评审一轮候选版本并记录评审历史
// 只有生成成功的版本参与评审, 版本编号从 1 开始
func (e *Evaluator) EvaluateRound(ctx context.Context, chapter *entity.Chapter, versions []*entity.ChapterVersion, pctx *PromptContext, outline string, attempt int) (*entity.ChapterReviewResult, error) {
	in := &wfmodel.ChapterEvaluateInput{
		ChapterNumber:     chapter.ChapterNumber,
		Blueprint:         pctx.Blueprint,
		Outline:           outline,
		PreviousSummaries: pctx.PreviousSummaries,
		Versions:          RenderVersionsForReview(versions),
	}
	review, raw, err := e.judge.Evaluate(ctx, in)
	if err != nil {
		metrics.EvaluationTotal.WithLabelValues(NodeEvaluation, "error").Inc()
		if raw != "" {
			e.persist(ctx, chapter.ID, attempt, nil, raw, in)
		}
		return nil, err
	}

	// 裁决必须落在真实候选上, 对不上的按解析失败处理
	if err := alignReviewToVersions(review, versions); err != nil {
		metrics.EvaluationTotal.WithLabelValues(NodeEvaluation, "error").Inc()
		e.persist(ctx, chapter.ID, attempt, nil, raw, in)
		return nil, err
	}

	metrics.EvaluationTotal.WithLabelValues(NodeEvaluation, "success").Inc()
	metrics.EvaluationScore.WithLabelValues(NodeEvaluation).Observe(float64(review.BestScore()))

	e.persist(ctx, chapter.ID, attempt, review, raw, in)
	return review, nil
}

// alignReviewToVersions 校验 best_choice 指向一个真实的可用候选
// 未命中时回退到评审中得分最高且确实存在的版本, 完全无交集视为裁决不可用
func alignReviewToVersions(review *entity.ChapterReviewResult, versions []*entity.ChapterVersion) error {
	usable := make(map[int]bool, len(versions))
	for _, v := range versions {
		if v != nil && v.Succeeded() {
			usable[v.VersionIndex] = true
		}
	}

	if best := review.BestReview(); best != nil && usable[best.VersionIndex] {
		return nil
	}

	fallback, fallbackScore := 0, -1
	for _, vr := range review.Versions {
		if usable[vr.VersionIndex] && vr.Score > fallbackScore {
			fallback, fallbackScore = vr.VersionIndex, vr.Score
		}
	}
	if fallbackScore < 0 {
		return apperrors.ErrEvaluationParse.WithDetail(
			fmt.Sprintf("best_choice %d 未命中任何可用候选版本", review.BestChoice))
	}
	review.BestChoice = fallback
	return nil
}

// persist 评审记录落库失败不阻断循环, 只记日志
func (e *Evaluator) persist(ctx context.Context, chapterID string, attempt int, review *entity.ChapterReviewResult, raw string, in *wfmodel.ChapterEvaluateInput) {
	if e.evalRepo == nil {
		return
	}
	eval := &entity.ChapterEvaluation{
		ChapterID:     chapterID,
		Attempt:       attempt,
		RawOutput:     raw,
		JudgeProvider: in.Provider,
		JudgeModel:    in.Model,
	}
	if review != nil {
		eval.Result = *review
	}
	if err := e.evalRepo.Create(ctx, eval); err != nil {
		logger.Warn(ctx, "failed to persist evaluation record",
			"chapter_id", chapterID,
			"attempt", attempt,
			"error", err.Error(),
		)
	}
}

// RenderVersionsForReview 把候选版本拼接成带编号的评审文本
func RenderVersionsForReview(versions []*entity.ChapterVersion) string {
	var b strings.Builder
	for _, v := range versions {
		if v == nil || !v.Succeeded() {
			continue
		}
		fmt.Fprintf(&b, "===== 版本 %d (%s) =====\n%s\n\n", v.VersionIndex, v.Provider, v.ContentText)
	}
	return strings.TrimSpace(b.String())
}
