package writer

import (
	"context"
	"time"

	"inkflow-ai-api/internal/domain/entity"
	"inkflow-ai-api/internal/infrastructure/llm"
	apperrors "inkflow-ai-api/pkg/errors"
	"inkflow-ai-api/pkg/logger"
	"inkflow-ai-api/pkg/metrics"
)

// 生成调用模式, 同时作为指标标签
const (
	ModeManual = "manual"
	ModeAuto   = "auto"
)

// generationTask 一次单章生成调用的全部上下文
type generationTask struct {
	Project *entity.Project
	Chapter *entity.Chapter
	Outline string
	Opts    *GenerateOptions
	Mode    string
	RunID   string
	Sink    EventSink
	// Stop 协作式停止探测, 在各阶段边界检查; nil 表示永不停止
	Stop func(ctx context.Context) bool
}

func (t *generationTask) emit(stage string, attempt int) {
	if t.Sink == nil {
		return
	}
	t.Sink(&RunEvent{
		Type:          EventProgress,
		RunID:         t.RunID,
		ProjectID:     t.Project.ID,
		ChapterNumber: t.Chapter.ChapterNumber,
		Stage:         stage,
		Attempt:       attempt,
	})
}

func (t *generationTask) stopRequested(ctx context.Context) bool {
	return t.Stop != nil && t.Stop(ctx)
}

// runGeneration 执行生成-评审-重写循环
// 分数线在循环开始时快照, 过程中的后台配置变更不影响本次调用
func (s *Service) runGeneration(ctx context.Context, task *generationTask) (*GenerationSummary, error) {
	start := time.Now()
	summary, err := s.runGenerationLoop(ctx, task)

	status := "success"
	if err != nil || summary == nil || !summary.Success {
		status = "failed"
	}
	if summary != nil && summary.Stopped {
		status = "stopped"
	}
	metrics.ChapterGenerationTotal.WithLabelValues(task.Mode, status).Inc()
	metrics.ChapterGenerationDuration.WithLabelValues(task.Mode).Observe(time.Since(start).Seconds())
	return summary, err
}

func (s *Service) runGenerationLoop(ctx context.Context, task *generationTask) (*GenerationSummary, error) {
	chapter := task.Chapter
	opts := task.Opts

	if err := s.prepareChapter(ctx, chapter); err != nil {
		return nil, err
	}

	thresholds, err := s.loadThresholds(ctx)
	if err != nil {
		return nil, err
	}
	threshold := thresholds.ForChapter(chapter.ChapterNumber)
	if opts.ScoreThreshold != nil {
		threshold = *opts.ScoreThreshold
	}
	maxAttempts := thresholds.MaxAttempts
	if opts.MaxAttempts != nil {
		maxAttempts = *opts.MaxAttempts
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	models, err := s.selectModels(opts.Provider)
	if err != nil {
		s.markFailed(ctx, chapter)
		return nil, err
	}

	outline := joinOutlineNotes(task.Outline, opts.WritingNotes)
	pctx, err := s.assembler.Assemble(ctx, task.Project, chapter.ChapterNumber, outline)
	if err != nil {
		s.markFailed(ctx, chapter)
		return nil, err
	}

	feedback := NewRewriteFeedback()
	best := &bestCandidate{}
	var history []*entity.ChapterReviewResult
	var prevVersions []*entity.ChapterVersion

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		stage := StageGenerating
		if attempt > 1 {
			stage = StageRewriting
		}
		task.emit(stage, attempt)

		req := &FanOutRequest{
			ChapterNumber: chapter.ChapterNumber,
			Outline:       outline,
			Context:       pctx,
			MinWords:      s.cfg.Writer.MinWords,
			MaxWords:      s.cfg.Writer.MaxWords,
			Attempt:       attempt,
			PrevVersions:  prevVersions,
		}
		if attempt > 1 {
			req.Feedback = feedback
		}

		versions, genErr := s.fanOut.Generate(ctx, models, req)
		if genErr != nil {
			// 全部槽位失败, 循环提前终止
			s.markFailed(ctx, chapter)
			return &GenerationSummary{
				AttemptsUsed:  attempt,
				Status:        entity.ChapterStatusFailed,
				ReviewHistory: history,
			}, genErr
		}

		if err := s.versionRepo.ReplaceForAttempt(ctx, chapter.ID, attempt, versions); err != nil {
			s.markFailed(ctx, chapter)
			return nil, err
		}
		chapter.RewriteAttempt = attempt
		prevVersions = versions

		usable := usableVersions(versions)
		metrics.ChapterVersionsGenerated.WithLabelValues(task.Mode).Observe(float64(len(usable)))

		if task.stopRequested(ctx) {
			return s.abandonForStop(ctx, task, attempt, history)
		}

		// 仅一个可用版本时跳过评审直接采纳
		if len(usable) == 1 {
			sel := usable[0]
			if err := s.commitContent(ctx, task, sel.ContentText, sel.VersionIndex); err != nil {
				return nil, err
			}
			return &GenerationSummary{
				Success:          true,
				AttemptsUsed:     attempt,
				BestVersionIndex: sel.VersionIndex,
				Status:           chapter.Status,
				Message:          "仅一个可用版本, 已自动采纳",
				ReviewHistory:    history,
			}, nil
		}

		if opts.SkipEvaluation {
			s.transitionAndSave(ctx, chapter, entity.ChapterStatusWaitingConfirm)
			return &GenerationSummary{
				Success:       true,
				AttemptsUsed:  attempt,
				Status:        chapter.Status,
				Message:       "已跳过评审, 等待人工选择",
				ReviewHistory: history,
			}, nil
		}

		task.emit(StageEvaluating, attempt)
		s.transitionAndSave(ctx, chapter, entity.ChapterStatusEvaluating)

		review, evalErr := s.evaluator.EvaluateRound(ctx, chapter, versions, pctx, outline, attempt)
		if evalErr != nil {
			s.transitionAndSave(ctx, chapter, entity.ChapterStatusEvaluationFailed)
			return &GenerationSummary{
				AttemptsUsed:  attempt,
				Status:        chapter.Status,
				ReviewHistory: history,
			}, evalErr
		}

		history = append(history, review)
		best.update(attempt, review, versions)
		feedback.Absorb(review)
		score := review.BestScore()

		logger.Info(ctx, "chapter evaluation round finished",
			"chapter_number", chapter.ChapterNumber,
			"attempt", attempt,
			"score", score,
			"threshold", threshold,
			"best_choice", review.BestChoice,
		)

		if task.stopRequested(ctx) {
			return s.abandonForStop(ctx, task, attempt, history)
		}

		if score >= threshold {
			metrics.RewriteAttempts.WithLabelValues("passed").Observe(float64(attempt))
			return s.finishPassed(ctx, task, best, review, attempt, score, history)
		}

		if attempt < maxAttempts {
			s.transitionAndSave(ctx, chapter, entity.ChapterStatusGenerating)
		}
	}

	// 轮数耗尽: 提交历史最优版本, 不丢弃进度, 但结果标记未达标
	metrics.RewriteAttempts.WithLabelValues("exhausted").Observe(float64(maxAttempts))
	if best.Content == "" {
		s.markFailed(ctx, chapter)
		return &GenerationSummary{
			AttemptsUsed:  maxAttempts,
			Status:        chapter.Status,
			ReviewHistory: history,
		}, apperrors.ErrGenerationFailed.WithDetail("no usable version across attempts")
	}
	if err := s.commitContent(ctx, task, best.Content, best.VersionIndex); err != nil {
		return nil, err
	}
	return &GenerationSummary{
		Success:          false,
		FinalScore:       best.Score,
		AttemptsUsed:     maxAttempts,
		BestVersionIndex: best.VersionIndex,
		Status:           chapter.Status,
		Message:          "重写轮数耗尽, 已提交历史最高分版本",
		ReviewHistory:    history,
	}, nil
}

// finishPassed 达标收尾: 自动提交或转入待确认
func (s *Service) finishPassed(ctx context.Context, task *generationTask, best *bestCandidate, review *entity.ChapterReviewResult, attempt, score int, history []*entity.ChapterReviewResult) (*GenerationSummary, error) {
	chapter := task.Chapter

	if task.Opts.AutoSelectBest {
		// 空内容绝不定稿
		if best.Content == "" {
			s.markFailed(ctx, chapter)
			return &GenerationSummary{
				AttemptsUsed:  attempt,
				Status:        chapter.Status,
				ReviewHistory: history,
			}, apperrors.ErrGenerationFailed.WithDetail("best version has no content")
		}
		if err := s.commitContent(ctx, task, best.Content, best.VersionIndex); err != nil {
			return nil, err
		}
	} else {
		s.transitionAndSave(ctx, chapter, entity.ChapterStatusWaitingConfirm)
	}

	return &GenerationSummary{
		Success:          true,
		FinalScore:       score,
		AttemptsUsed:     attempt,
		BestVersionIndex: review.BestChoice,
		Status:           chapter.Status,
		ReviewHistory:    history,
	}, nil
}

// abandonForStop 停止信号下干净放弃在途章节: 留在可重新生成的 failed 状态
func (s *Service) abandonForStop(ctx context.Context, task *generationTask, attempt int, history []*entity.ChapterReviewResult) (*GenerationSummary, error) {
	s.markFailed(ctx, task.Chapter)
	return &GenerationSummary{
		AttemptsUsed:  attempt,
		Status:        task.Chapter.Status,
		Stopped:       true,
		Message:       "收到停止信号, 已放弃在途章节",
		ReviewHistory: history,
	}, nil
}

// prepareChapter 把章节推进到 generating
// 在途状态视为上次运行残留, 直接复位
func (s *Service) prepareChapter(ctx context.Context, chapter *entity.Chapter) error {
	switch chapter.Status {
	case entity.ChapterStatusGenerating, entity.ChapterStatusEvaluating, entity.ChapterStatusSelecting:
		logger.Warn(ctx, "chapter left in transient status, resetting",
			"chapter_id", chapter.ID,
			"status", string(chapter.Status),
		)
		chapter.Status = entity.ChapterStatusGenerating
	default:
		if !chapter.TransitionTo(entity.ChapterStatusGenerating) {
			return apperrors.ErrInvalidChapterState.WithDetail(string(chapter.Status))
		}
	}
	chapter.RewriteAttempt = 0
	return s.chapterRepo.Update(ctx, chapter)
}

func (s *Service) markFailed(ctx context.Context, chapter *entity.Chapter) {
	s.transitionAndSave(ctx, chapter, entity.ChapterStatusFailed)
}

// transitionAndSave 状态迁移并落库, 非法迁移与落库失败都只记日志
func (s *Service) transitionAndSave(ctx context.Context, chapter *entity.Chapter, to entity.ChapterStatus) {
	if !chapter.TransitionTo(to) {
		logger.Warn(ctx, "illegal chapter status transition skipped",
			"chapter_id", chapter.ID,
			"from", string(chapter.Status),
			"to", string(to),
		)
		return
	}
	if err := s.chapterRepo.Update(ctx, chapter); err != nil {
		logger.Error(ctx, "failed to persist chapter status", err,
			"chapter_id", chapter.ID,
			"status", string(to),
		)
	}
}

// selectModels 返回参与生成的写作模型, 可限定单一提供商用于定向修复
func (s *Service) selectModels(provider string) ([]llm.WritingModel, error) {
	models, err := s.models.WritingModels()
	if err != nil {
		return nil, err
	}
	if provider == "" {
		return models, nil
	}
	for _, wm := range models {
		if wm.Provider == provider {
			return []llm.WritingModel{wm}, nil
		}
	}
	return nil, apperrors.ErrProviderNotFound.WithDetail(provider)
}

func usableVersions(versions []*entity.ChapterVersion) []*entity.ChapterVersion {
	out := make([]*entity.ChapterVersion, 0, len(versions))
	for _, v := range versions {
		if v != nil && v.Succeeded() {
			out = append(out, v)
		}
	}
	return out
}
