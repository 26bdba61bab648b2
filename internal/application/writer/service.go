package writer

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"inkflow-ai-api/internal/config"
	"inkflow-ai-api/internal/domain/entity"
	"inkflow-ai-api/internal/domain/repository"
	redisinfra "inkflow-ai-api/internal/infrastructure/persistence/redis"
	apperrors "inkflow-ai-api/pkg/errors"
	"inkflow-ai-api/pkg/logger"
)

// Service 章节创作应用服务
type Service struct {
	cfg *config.Config

	projectRepo repository.ProjectRepository
	chapterRepo repository.ChapterRepository
	versionRepo repository.ChapterVersionRepository
	evalRepo    repository.EvaluationRepository
	outlineRepo repository.OutlineRepository
	settingRepo repository.SettingRepository

	models     WritingModelSource
	fanOut     *FanOut
	evaluator  *Evaluator
	summarizer ChapterSummarizer
	assembler  *ContextAssembler
	ingester   *Ingester
	guard      RunLocker
}

// ServiceDeps 服务依赖
type ServiceDeps struct {
	Config      *config.Config
	ProjectRepo repository.ProjectRepository
	ChapterRepo repository.ChapterRepository
	VersionRepo repository.ChapterVersionRepository
	EvalRepo    repository.EvaluationRepository
	OutlineRepo repository.OutlineRepository
	SettingRepo repository.SettingRepository
	Models      WritingModelSource
	Drafter     ChapterDrafter
	Judge       ChapterJudge
	Summarizer  ChapterSummarizer
	Assembler   *ContextAssembler
	Ingester    *Ingester
	Guard       RunLocker
}

// NewService 创建章节创作服务
func NewService(deps ServiceDeps) *Service {
	return &Service{
		cfg:         deps.Config,
		projectRepo: deps.ProjectRepo,
		chapterRepo: deps.ChapterRepo,
		versionRepo: deps.VersionRepo,
		evalRepo:    deps.EvalRepo,
		outlineRepo: deps.OutlineRepo,
		settingRepo: deps.SettingRepo,
		models:      deps.Models,
		fanOut:      NewFanOut(deps.Drafter),
		evaluator:   NewEvaluator(deps.Judge, deps.EvalRepo),
		summarizer:  deps.Summarizer,
		assembler:   deps.Assembler,
		ingester:    deps.Ingester,
		guard:       deps.Guard,
	}
}

// GenerateChapter 手动触发单章生成
// 与连续创作互斥: 同一项目同一时刻只允许一个创作运行
func (s *Service) GenerateChapter(ctx context.Context, projectID string, chapterNumber int, opts *GenerateOptions) (*GenerationSummary, error) {
	if opts == nil {
		opts = &GenerateOptions{}
	}

	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperrors.ErrProjectNotFound.WithDetail(projectID)
	}

	runID := uuid.NewString()
	holder, ok, err := s.guard.Acquire(ctx, projectID, runID, redisinfra.RunModeManual)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, runConflictError(holder)
	}
	defer func() {
		if err := s.guard.Release(ctx, projectID, runID); err != nil {
			logger.Warn(ctx, "failed to release creation run lock", "project_id", projectID, "error", err.Error())
		}
	}()

	outline, err := s.outlineRepo.GetByNumber(ctx, projectID, chapterNumber)
	if err != nil {
		return nil, err
	}
	if outline == nil {
		return nil, apperrors.ErrOutlineNotFound.WithDetail(projectID)
	}

	if err := s.ensurePreviousCommitted(ctx, projectID, chapterNumber); err != nil {
		return nil, err
	}

	chapter, err := s.ensureChapter(ctx, projectID, chapterNumber, outline.Title)
	if err != nil {
		return nil, err
	}

	return s.runGeneration(ctx, &generationTask{
		Project: project,
		Chapter: chapter,
		Outline: outline.Content,
		Opts:    opts,
		Mode:    ModeManual,
		RunID:   runID,
		Sink:    nopSink,
	})
}

// SelectVersion 人工选定候选版本为章节定稿
// 同一版本重复选择是幂等的
func (s *Service) SelectVersion(ctx context.Context, projectID string, chapterNumber, versionIndex int) (*entity.Chapter, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperrors.ErrProjectNotFound.WithDetail(projectID)
	}
	chapter, err := s.chapterRepo.GetByNumber(ctx, projectID, chapterNumber)
	if err != nil {
		return nil, err
	}
	if chapter == nil {
		return nil, apperrors.ErrChapterNotFound.WithDetail(projectID)
	}

	if chapter.Status == entity.ChapterStatusSuccessful &&
		chapter.SelectedIndex != nil && *chapter.SelectedIndex == versionIndex {
		return chapter, nil
	}
	if !chapter.Status.CanTransition(entity.ChapterStatusSelecting) {
		return nil, apperrors.ErrInvalidChapterState.WithDetail(string(chapter.Status))
	}

	version, err := s.versionRepo.GetByIndex(ctx, chapter.ID, versionIndex)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, apperrors.ErrVersionNotFound.WithDetail(chapter.ID)
	}
	if !version.Succeeded() {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "selected version has no content")
	}

	if err := s.commitContent(ctx, &generationTask{
		Project: project,
		Chapter: chapter,
		Opts:    &GenerateOptions{},
		Mode:    ModeManual,
		Sink:    nopSink,
	}, version.ContentText, versionIndex); err != nil {
		return nil, err
	}
	return chapter, nil
}

// EvaluateVersions 对已有候选版本单独发起一轮评审
// 用于跳过评审生成后补评, 或评审解析失败后重试
func (s *Service) EvaluateVersions(ctx context.Context, projectID string, chapterNumber int) (*GenerationSummary, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperrors.ErrProjectNotFound.WithDetail(projectID)
	}
	chapter, err := s.chapterRepo.GetByNumber(ctx, projectID, chapterNumber)
	if err != nil {
		return nil, err
	}
	if chapter == nil {
		return nil, apperrors.ErrChapterNotFound.WithDetail(projectID)
	}
	if !chapter.Status.CanTransition(entity.ChapterStatusEvaluating) {
		return nil, apperrors.ErrInvalidChapterState.WithDetail(string(chapter.Status))
	}

	versions, err := s.versionRepo.ListByChapter(ctx, chapter.ID)
	if err != nil {
		return nil, err
	}
	usable := usableVersions(versions)
	if len(usable) == 0 {
		return nil, apperrors.ErrVersionNotFound.WithDetail(chapter.ID)
	}

	outline, err := s.outlineRepo.GetByNumber(ctx, projectID, chapterNumber)
	if err != nil {
		return nil, err
	}
	outlineText := ""
	if outline != nil {
		outlineText = outline.Content
	}
	pctx, err := s.assembler.Assemble(ctx, project, chapterNumber, outlineText)
	if err != nil {
		return nil, err
	}

	s.transitionAndSave(ctx, chapter, entity.ChapterStatusEvaluating)

	attempt := chapter.RewriteAttempt
	if attempt < 1 {
		attempt = 1
	}
	review, evalErr := s.evaluator.EvaluateRound(ctx, chapter, versions, pctx, outlineText, attempt)
	if evalErr != nil {
		s.transitionAndSave(ctx, chapter, entity.ChapterStatusEvaluationFailed)
		return &GenerationSummary{
			AttemptsUsed: attempt,
			Status:       chapter.Status,
		}, evalErr
	}

	s.transitionAndSave(ctx, chapter, entity.ChapterStatusWaitingConfirm)
	return &GenerationSummary{
		Success:          true,
		FinalScore:       review.BestScore(),
		AttemptsUsed:     attempt,
		BestVersionIndex: review.BestChoice,
		Status:           chapter.Status,
		ReviewHistory:    []*entity.ChapterReviewResult{review},
	}, nil
}

// CancelEvaluation 取消评审, 候选版本不带评分直接进入待确认
func (s *Service) CancelEvaluation(ctx context.Context, projectID string, chapterNumber int) (*entity.Chapter, error) {
	chapter, err := s.chapterRepo.GetByNumber(ctx, projectID, chapterNumber)
	if err != nil {
		return nil, err
	}
	if chapter == nil {
		return nil, apperrors.ErrChapterNotFound.WithDetail(projectID)
	}
	if !chapter.TransitionTo(entity.ChapterStatusWaitingConfirm) {
		return nil, apperrors.ErrInvalidChapterState.WithDetail(string(chapter.Status))
	}
	if err := s.chapterRepo.Update(ctx, chapter); err != nil {
		return nil, err
	}
	return chapter, nil
}

// ListVersions 返回章节最近一轮候选版本与最近一轮评审
func (s *Service) ListVersions(ctx context.Context, projectID string, chapterNumber int) ([]*entity.ChapterVersion, *entity.ChapterEvaluation, error) {
	chapter, err := s.chapterRepo.GetByNumber(ctx, projectID, chapterNumber)
	if err != nil {
		return nil, nil, err
	}
	if chapter == nil {
		return nil, nil, apperrors.ErrChapterNotFound.WithDetail(projectID)
	}
	versions, err := s.versionRepo.ListByChapter(ctx, chapter.ID)
	if err != nil {
		return nil, nil, err
	}
	eval, err := s.evalRepo.GetLatest(ctx, chapter.ID)
	if err != nil {
		return nil, nil, err
	}
	return versions, eval, nil
}

// ReviewHistory 返回章节全部评审轮次
func (s *Service) ReviewHistory(ctx context.Context, projectID string, chapterNumber int) ([]*entity.ChapterEvaluation, error) {
	chapter, err := s.chapterRepo.GetByNumber(ctx, projectID, chapterNumber)
	if err != nil {
		return nil, err
	}
	if chapter == nil {
		return nil, apperrors.ErrChapterNotFound.WithDetail(projectID)
	}
	return s.evalRepo.ListByChapter(ctx, chapter.ID)
}

// StopRun 设置协作式停止信号
func (s *Service) StopRun(ctx context.Context, projectID string) (*redisinfra.RunLock, error) {
	lock, err := s.guard.Current(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if lock == nil {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "no active creation run")
	}
	if err := s.guard.RequestStop(ctx, projectID); err != nil {
		return nil, err
	}
	return lock, nil
}

// RunStatus 返回当前创作运行与停止信号状态
func (s *Service) RunStatus(ctx context.Context, projectID string) (*redisinfra.RunLock, bool, error) {
	lock, err := s.guard.Current(ctx, projectID)
	if err != nil {
		return nil, false, err
	}
	if lock == nil {
		return nil, false, nil
	}
	stopped, err := s.guard.StopRequested(ctx, projectID)
	if err != nil {
		return lock, false, err
	}
	return lock, stopped, nil
}

// loadThresholds 快照分数线配置: 优先读系统配置表, 缺失回落到文件配置
func (s *Service) loadThresholds(ctx context.Context) (Thresholds, error) {
	early, err := s.settingRepo.GetInt(ctx, entity.SettingScoreThresholdEarly, s.cfg.Writer.ScoreThresholdEarly)
	if err != nil {
		return Thresholds{}, err
	}
	normal, err := s.settingRepo.GetInt(ctx, entity.SettingScoreThresholdNormal, s.cfg.Writer.ScoreThresholdNormal)
	if err != nil {
		return Thresholds{}, err
	}
	maxAttempts, err := s.settingRepo.GetInt(ctx, entity.SettingMaxRewriteAttempts, s.cfg.Writer.MaxRewriteAttempts)
	if err != nil {
		return Thresholds{}, err
	}
	return Thresholds{Early: early, Normal: normal, MaxAttempts: maxAttempts}, nil
}

// ensureChapter 章节在首次生成时惰性创建
func (s *Service) ensureChapter(ctx context.Context, projectID string, chapterNumber int, title string) (*entity.Chapter, error) {
	chapter, err := s.chapterRepo.GetByNumber(ctx, projectID, chapterNumber)
	if err != nil {
		return nil, err
	}
	if chapter != nil {
		return chapter, nil
	}

	chapter = entity.NewChapter(projectID, chapterNumber)
	chapter.Title = strings.TrimSpace(title)
	if err := s.chapterRepo.Create(ctx, chapter); err != nil {
		return nil, err
	}
	return chapter, nil
}

// ensurePreviousCommitted 手动生成第 N 章前要求第 N-1 章已定稿
func (s *Service) ensurePreviousCommitted(ctx context.Context, projectID string, chapterNumber int) error {
	if chapterNumber <= 1 {
		return nil
	}
	prev, err := s.chapterRepo.GetByNumber(ctx, projectID, chapterNumber-1)
	if err != nil {
		return err
	}
	if prev == nil || prev.Status != entity.ChapterStatusSuccessful {
		return apperrors.ErrPreviousChapterPending.WithDetail(
			fmt.Sprintf("chapter %d is not finalized", chapterNumber-1))
	}
	return nil
}

// runConflictError 锁被占用时的冲突错误, 持有者信息可能因锁过期而缺失
func runConflictError(holder *redisinfra.RunLock) error {
	mode := "unknown"
	if holder != nil {
		mode = string(holder.Mode)
	}
	return apperrors.ErrRunAlreadyActive.WithDetail(mode)
}

// commitContent 提交选定内容: 定稿, 摘要, 字数统计与检索摄取
func (s *Service) commitContent(ctx context.Context, task *generationTask, content string, versionIndex int) error {
	chapter := task.Chapter
	task.emit(StageSelecting, chapter.RewriteAttempt)

	if chapter.Status != entity.ChapterStatusWaitingConfirm {
		s.transitionAndSave(ctx, chapter, entity.ChapterStatusWaitingConfirm)
	}
	s.transitionAndSave(ctx, chapter, entity.ChapterStatusSelecting)

	oldWords := chapter.WordCount
	chapter.SetContent(content)
	chapter.SelectedIndex = &versionIndex

	// 摘要失败不阻断定稿, 后续章节容忍缺失的前文摘要
	if summary, err := s.summarizer.Summarize(ctx, chapter.ChapterNumber, content); err != nil {
		logger.Warn(ctx, "chapter summary generation failed",
			"chapter_id", chapter.ID,
			"error", err.Error(),
		)
	} else {
		chapter.Summary = summary
	}

	if !chapter.TransitionTo(entity.ChapterStatusSuccessful) {
		return apperrors.ErrInvalidChapterState.WithDetail(string(chapter.Status))
	}
	if err := s.chapterRepo.Update(ctx, chapter); err != nil {
		return err
	}

	if err := s.projectRepo.AddWordCount(ctx, task.Project.ID, chapter.WordCount-oldWords); err != nil {
		logger.Warn(ctx, "failed to update project word count",
			"project_id", task.Project.ID,
			"error", err.Error(),
		)
	}

	task.emit(StageIngesting, chapter.RewriteAttempt)
	if err := s.ingester.IngestChapter(ctx, chapter); err != nil {
		logger.Warn(ctx, "chapter retrieval ingest failed",
			"chapter_id", chapter.ID,
			"error", err.Error(),
		)
	}

	// 定稿改变了后续章节的前文素材
	s.assembler.Invalidate(ctx, task.Project.ID)
	return nil
}
