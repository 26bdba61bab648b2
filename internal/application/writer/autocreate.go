package writer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"inkflow-ai-api/internal/config"
	"inkflow-ai-api/internal/domain/entity"
	"inkflow-ai-api/internal/domain/repository"
	"inkflow-ai-api/internal/infrastructure/messaging"
	redisinfra "inkflow-ai-api/internal/infrastructure/persistence/redis"
	apperrors "inkflow-ai-api/pkg/errors"
	"inkflow-ai-api/pkg/logger"
	"inkflow-ai-api/pkg/metrics"
)

// 大纲缺口处理策略
const (
	GapPolicyAbort = "abort"
	GapPolicySkip  = "skip"
)

// AutoCreateOptions 连续创作参数
type AutoCreateOptions struct {
	// StartChapter 起始章节号, 0 表示从下一个待创作章节开始
	StartChapter int
	// EndChapter 结束章节号(含), 0 表示写到大纲耗尽
	EndChapter int
	// WritingNotes 追加到每章大纲之后的写作指示
	WritingNotes string
	// AutoStopOnError 单章不可恢复失败时终止整个运行
	AutoStopOnError bool
}

// Driver 连续创作驱动: 顺序驱动多章生成并推送进度事件
type Driver struct {
	cfg         *config.Config
	service     *Service
	guard       RunLocker
	outlineRepo repository.OutlineRepository
	projectRepo repository.ProjectRepository
	producer    EventPublisher
}

// NewDriver 创建连续创作驱动
func NewDriver(cfg *config.Config, service *Service, guard RunLocker, outlineRepo repository.OutlineRepository, projectRepo repository.ProjectRepository, producer EventPublisher) *Driver {
	return &Driver{
		cfg:         cfg,
		service:     service,
		guard:       guard,
		outlineRepo: outlineRepo,
		projectRepo: projectRepo,
		producer:    producer,
	}
}

// Run 执行一次连续创作
// 每章开始和各阶段边界检查停止信号, 停止时完成或干净放弃在途章节后退出
func (d *Driver) Run(ctx context.Context, projectID string, opts *AutoCreateOptions, sink EventSink) error {
	if opts == nil {
		opts = &AutoCreateOptions{}
	}
	if sink == nil {
		sink = nopSink
	}

	project, err := d.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return apperrors.ErrProjectNotFound.WithDetail(projectID)
	}

	runID := uuid.NewString()
	holder, ok, err := d.guard.Acquire(ctx, projectID, runID, redisinfra.RunModeAuto)
	if err != nil {
		return err
	}
	if !ok {
		return runConflictError(holder)
	}
	metrics.ActiveCreationRuns.Inc()
	defer func() {
		metrics.ActiveCreationRuns.Dec()
		if err := d.guard.Release(ctx, projectID, runID); err != nil {
			logger.Warn(ctx, "failed to release creation run lock", "project_id", projectID, "error", err.Error())
		}
	}()

	start, end, err := d.resolveRange(ctx, projectID, opts)
	if err != nil {
		d.emit(ctx, sink, &RunEvent{Type: EventError, RunID: runID, ProjectID: projectID, Message: err.Error()})
		return err
	}

	total := end - start + 1
	d.emit(ctx, sink, &RunEvent{
		Type: EventStart, RunID: runID, ProjectID: projectID,
		ChapterNumber: start, Total: total,
	})

	completed := 0
	for num := start; num <= end; num++ {
		stopped, err := d.guard.StopRequested(ctx, projectID)
		if err != nil {
			logger.Warn(ctx, "stop flag check failed", "project_id", projectID, "error", err.Error())
		}
		if stopped {
			d.emit(ctx, sink, &RunEvent{
				Type: EventStopped, RunID: runID, ProjectID: projectID,
				Completed: completed, Message: fmt.Sprintf("已完成 %d 章后停止", completed),
			})
			return nil
		}
		if err := d.guard.Refresh(ctx, projectID, runID); err != nil {
			logger.Warn(ctx, "run lock refresh failed", "project_id", projectID, "error", err.Error())
		}

		outline, err := d.outlineRepo.GetByNumber(ctx, projectID, num)
		if err == nil && outline == nil {
			err = apperrors.ErrOutlineNotFound.WithDetail(fmt.Sprintf("chapter %d", num))
		}
		if err != nil {
			if d.gapPolicy() == GapPolicySkip {
				d.emit(ctx, sink, &RunEvent{
					Type: EventChapterError, RunID: runID, ProjectID: projectID,
					ChapterNumber: num, Message: "缺少大纲, 已跳过",
				})
				continue
			}
			d.emit(ctx, sink, &RunEvent{
				Type: EventError, RunID: runID, ProjectID: projectID,
				ChapterNumber: num, Message: "缺少大纲, 运行终止",
			})
			return err
		}

		summary, err := d.runChapter(ctx, project, outline, opts, runID, sink)
		if summary != nil && summary.Stopped {
			d.emit(ctx, sink, &RunEvent{
				Type: EventStopped, RunID: runID, ProjectID: projectID,
				ChapterNumber: num, Completed: completed,
				Message: fmt.Sprintf("已完成 %d 章后停止", completed),
			})
			return nil
		}
		if err != nil {
			metrics.AutoCreateChaptersTotal.WithLabelValues("failed").Inc()
			if opts.AutoStopOnError {
				d.emit(ctx, sink, &RunEvent{
					Type: EventError, RunID: runID, ProjectID: projectID,
					ChapterNumber: num, Completed: completed, Message: err.Error(),
				})
				return err
			}
			d.emit(ctx, sink, &RunEvent{
				Type: EventChapterError, RunID: runID, ProjectID: projectID,
				ChapterNumber: num, Message: err.Error(),
			})
			continue
		}

		metrics.AutoCreateChaptersTotal.WithLabelValues("success").Inc()
		completed++
		d.emit(ctx, sink, &RunEvent{
			Type: EventChapterDone, RunID: runID, ProjectID: projectID,
			ChapterNumber: num, Score: summary.FinalScore,
			Attempt: summary.AttemptsUsed, Completed: completed,
		})
	}

	d.emit(ctx, sink, &RunEvent{
		Type: EventComplete, RunID: runID, ProjectID: projectID,
		Completed: completed, Total: total,
	})
	return nil
}

// Stop 设置停止信号
func (d *Driver) Stop(ctx context.Context, projectID string) (*redisinfra.RunLock, error) {
	return d.service.StopRun(ctx, projectID)
}

// runChapter 驱动单章的完整流水线, 自动采纳最优版本
func (d *Driver) runChapter(ctx context.Context, project *entity.Project, outline *entity.ChapterOutline, opts *AutoCreateOptions, runID string, sink EventSink) (*GenerationSummary, error) {
	chapter, err := d.service.ensureChapter(ctx, project.ID, outline.ChapterNumber, outline.Title)
	if err != nil {
		return nil, err
	}
	if chapter.Status == entity.ChapterStatusSuccessful && chapter.SelectedIndex != nil {
		// 已定稿章节不重写
		return &GenerationSummary{Success: true, Status: chapter.Status}, nil
	}

	return d.service.runGeneration(ctx, &generationTask{
		Project: project,
		Chapter: chapter,
		Outline: outline.Content,
		Opts: &GenerateOptions{
			WritingNotes:   opts.WritingNotes,
			AutoSelectBest: true,
		},
		Mode:  ModeAuto,
		RunID: runID,
		Sink:  sink,
		Stop: func(ctx context.Context) bool {
			stopped, err := d.guard.StopRequested(ctx, project.ID)
			return err == nil && stopped
		},
	})
}

// resolveRange 推导本次运行的章节区间
func (d *Driver) resolveRange(ctx context.Context, projectID string, opts *AutoCreateOptions) (int, int, error) {
	start := opts.StartChapter
	if start <= 0 {
		next, err := d.service.chapterRepo.NextChapterNumber(ctx, projectID)
		if err != nil {
			return 0, 0, err
		}
		start = next
	}

	end := opts.EndChapter
	if end <= 0 {
		max, err := d.outlineRepo.MaxChapterNumber(ctx, projectID)
		if err != nil {
			return 0, 0, err
		}
		end = max
	}
	if end < start {
		return 0, 0, apperrors.New(apperrors.CodeInvalidParam, "no chapters to create in range")
	}
	return start, end, nil
}

func (d *Driver) gapPolicy() string {
	if d.cfg.Writer.OutlineGapPolicy == GapPolicySkip {
		return GapPolicySkip
	}
	return GapPolicyAbort
}

// emit 推给 SSE 消费者, 主要事件同时写入运行事件流供审计
func (d *Driver) emit(ctx context.Context, sink EventSink, ev *RunEvent) {
	sink(ev)

	if d.producer == nil || ev.Type == EventProgress {
		return
	}
	_, err := d.producer.PublishRunEvent(ctx, &messaging.RunEventMessage{
		RunID:         ev.RunID,
		ProjectID:     ev.ProjectID,
		Event:         string(ev.Type),
		ChapterNumber: ev.ChapterNumber,
		Stage:         ev.Stage,
		Detail: map[string]interface{}{
			"score":     ev.Score,
			"completed": ev.Completed,
			"message":   ev.Message,
		},
	})
	if err != nil {
		logger.Warn(ctx, "failed to publish run event", "run_id", ev.RunID, "error", err.Error())
	}
}
