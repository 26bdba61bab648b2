package writer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkflow-ai-api/internal/domain/entity"
	"inkflow-ai-api/internal/infrastructure/llm"
	wfmodel "inkflow-ai-api/internal/workflow/model"
	apperrors "inkflow-ai-api/pkg/errors"
)

func TestGenerateChapterPassesOnThirdAttempt(t *testing.T) {
	env := newTestEnv(60, 75, 95)
	env.seedCommitted(3)
	env.outlines.put("project-1", 4, "第四章大纲")

	summary, err := env.service.GenerateChapter(context.Background(), "project-1", 4, nil)
	require.NoError(t, err)

	assert.True(t, summary.Success)
	assert.Equal(t, 95, summary.FinalScore)
	assert.Equal(t, 3, summary.AttemptsUsed)
	assert.Equal(t, entity.ChapterStatusWaitingConfirm, summary.Status)
	assert.Len(t, summary.ReviewHistory, 3)

	// 锁已释放
	lock, err := env.guard.Current(context.Background(), "project-1")
	require.NoError(t, err)
	assert.Nil(t, lock)
}

func TestGenerateChapterExhaustedCommitsBest(t *testing.T) {
	env := newTestEnv(50, 60)
	env.seedCommitted(3)
	env.outlines.put("project-1", 4, "第四章大纲")

	maxAttempts := 2
	summary, err := env.service.GenerateChapter(context.Background(), "project-1", 4, &GenerateOptions{
		MaxAttempts: &maxAttempts,
	})
	require.NoError(t, err)

	// 轮数耗尽: 提交最高分版本但结果未达标
	assert.False(t, summary.Success)
	assert.Equal(t, 60, summary.FinalScore)
	assert.Equal(t, 2, summary.AttemptsUsed)
	assert.Equal(t, entity.ChapterStatusSuccessful, summary.Status)

	chapter, err := env.chapters.GetByNumber(context.Background(), "project-1", 4)
	require.NoError(t, err)
	require.NotNil(t, chapter)
	assert.Equal(t, entity.ChapterStatusSuccessful, chapter.Status)
	assert.Equal(t, "重写稿-openai", chapter.ContentText)
	require.NotNil(t, chapter.SelectedIndex)
	assert.Equal(t, 1, *chapter.SelectedIndex)
	assert.NotEmpty(t, chapter.Summary)
}

func TestGenerateChapterEarlyThreshold(t *testing.T) {
	// 前三章用更高的分数线: 92 分对第一章不达标
	env := newTestEnv(92, 92, 96)
	env.outlines.put("project-1", 1, "第一章大纲")

	summary, err := env.service.GenerateChapter(context.Background(), "project-1", 1, nil)
	require.NoError(t, err)

	assert.True(t, summary.Success)
	assert.Equal(t, 96, summary.FinalScore)
	assert.Equal(t, 3, summary.AttemptsUsed)
}

func TestGenerateChapterThresholdFromSettings(t *testing.T) {
	// 系统配置表覆盖文件配置
	env := newTestEnv(85)
	env.seedCommitted(3)
	env.outlines.put("project-1", 4, "第四章大纲")
	require.NoError(t, env.settings.Set(context.Background(), entity.SettingScoreThresholdNormal, "80"))

	summary, err := env.service.GenerateChapter(context.Background(), "project-1", 4, nil)
	require.NoError(t, err)
	assert.True(t, summary.Success)
	assert.Equal(t, 1, summary.AttemptsUsed)
}

func TestGenerateChapterSingleUsableVersionAutoSelected(t *testing.T) {
	env := newTestEnv(99)
	env.seedCommitted(3)
	env.outlines.put("project-1", 4, "第四章大纲")
	env.drafter.draft = func(wm llm.WritingModel, _ *wfmodel.ChapterWriteInput) (string, error) {
		if wm.Provider != "qwen" {
			return "", errors.New("unavailable")
		}
		return "唯一可用稿", nil
	}

	summary, err := env.service.GenerateChapter(context.Background(), "project-1", 4, nil)
	require.NoError(t, err)

	// 仅一个可用版本: 跳过评审直接定稿
	assert.True(t, summary.Success)
	assert.Equal(t, entity.ChapterStatusSuccessful, summary.Status)
	assert.Equal(t, 3, summary.BestVersionIndex)
	assert.Equal(t, 0, env.judge.calls)

	chapter, _ := env.chapters.GetByNumber(context.Background(), "project-1", 4)
	assert.Equal(t, "唯一可用稿", chapter.ContentText)
}

func TestGenerateChapterAllProvidersFailed(t *testing.T) {
	env := newTestEnv(99)
	env.seedCommitted(3)
	env.outlines.put("project-1", 4, "第四章大纲")
	env.drafter.draft = func(wm llm.WritingModel, _ *wfmodel.ChapterWriteInput) (string, error) {
		return "", errors.New("provider down")
	}

	summary, err := env.service.GenerateChapter(context.Background(), "project-1", 4, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrGenerationFailed))
	require.NotNil(t, summary)
	assert.Equal(t, entity.ChapterStatusFailed, summary.Status)

	chapter, _ := env.chapters.GetByNumber(context.Background(), "project-1", 4)
	assert.Equal(t, entity.ChapterStatusFailed, chapter.Status)
}

func TestGenerateChapterEvaluationFailure(t *testing.T) {
	env := newTestEnv()
	env.seedCommitted(3)
	env.outlines.put("project-1", 4, "第四章大纲")
	failingJudge := &failingJudgeStub{}
	env.service.evaluator = NewEvaluator(failingJudge, env.evals)

	summary, err := env.service.GenerateChapter(context.Background(), "project-1", 4, nil)
	require.Error(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, entity.ChapterStatusEvaluationFailed, summary.Status)

	// 候选版本保留, 等待人工选择
	chapter, _ := env.chapters.GetByNumber(context.Background(), "project-1", 4)
	versions, _ := env.versions.ListByChapter(context.Background(), chapter.ID)
	assert.Len(t, versions, 3)
}

func TestGenerateChapterRunLockConflict(t *testing.T) {
	env := newTestEnv(95)
	env.outlines.put("project-1", 4, "第四章大纲")

	_, ok, err := env.guard.Acquire(context.Background(), "project-1", "other-run", "auto")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = env.service.GenerateChapter(context.Background(), "project-1", 4, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrRunAlreadyActive))
}

func TestGenerateChapterMissingOutline(t *testing.T) {
	env := newTestEnv(95)

	_, err := env.service.GenerateChapter(context.Background(), "project-1", 7, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrOutlineNotFound))
}

func TestGenerateChapterFeedbackAccumulatesAcrossRounds(t *testing.T) {
	env := newTestEnv(60, 75, 95)
	env.seedCommitted(3)
	env.outlines.put("project-1", 4, "第四章大纲")

	var weaknesses []string
	env.drafter.revise = func(wm llm.WritingModel, in *wfmodel.ChapterReviseInput) (string, error) {
		if wm.Provider == "openai" {
			weaknesses = append(weaknesses, in.Weaknesses)
		}
		return "重写稿-" + wm.Provider, nil
	}

	_, err := env.service.GenerateChapter(context.Background(), "project-1", 4, nil)
	require.NoError(t, err)

	require.Len(t, weaknesses, 2)
	// 第二轮重写携带前两轮的累积问题
	assert.Contains(t, weaknesses[1], "第1轮问题")
	assert.Contains(t, weaknesses[1], "第2轮问题")
}

func TestSelectVersionIdempotent(t *testing.T) {
	env := newTestEnv(95)
	env.seedCommitted(3)
	env.outlines.put("project-1", 4, "第四章大纲")

	summary, err := env.service.GenerateChapter(context.Background(), "project-1", 4, nil)
	require.NoError(t, err)
	require.Equal(t, entity.ChapterStatusWaitingConfirm, summary.Status)

	first, err := env.service.SelectVersion(context.Background(), "project-1", 4, 1)
	require.NoError(t, err)
	assert.Equal(t, entity.ChapterStatusSuccessful, first.Status)
	content := first.ContentText

	second, err := env.service.SelectVersion(context.Background(), "project-1", 4, 1)
	require.NoError(t, err)
	assert.Equal(t, content, second.ContentText)
}

func TestSelectVersionInvalidState(t *testing.T) {
	env := newTestEnv(95)
	chapter := entity.NewChapter("project-1", 2)
	require.NoError(t, env.chapters.Create(context.Background(), chapter))

	_, err := env.service.SelectVersion(context.Background(), "project-1", 2, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidChapterState))
}

func TestEvaluateVersionsAfterSkippedEvaluation(t *testing.T) {
	env := newTestEnv(93)
	env.seedCommitted(3)
	env.outlines.put("project-1", 4, "第四章大纲")

	summary, err := env.service.GenerateChapter(context.Background(), "project-1", 4, &GenerateOptions{
		SkipEvaluation: true,
	})
	require.NoError(t, err)
	require.Equal(t, entity.ChapterStatusWaitingConfirm, summary.Status)
	require.Equal(t, 0, env.judge.calls)

	result, err := env.service.EvaluateVersions(context.Background(), "project-1", 4)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 93, result.FinalScore)
	assert.Equal(t, 1, env.judge.calls)
	assert.Equal(t, entity.ChapterStatusWaitingConfirm, result.Status)

	// 评审记录落库, 并带上裁决模型信息
	chapter, _ := env.chapters.GetByNumber(context.Background(), "project-1", 4)
	evals, _ := env.evals.ListByChapter(context.Background(), chapter.ID)
	require.Len(t, evals, 1)
	assert.Equal(t, "judge-prov", evals[0].JudgeProvider)
	assert.Equal(t, "judge-model", evals[0].JudgeModel)
}

func TestEvaluateVersionsRetryAfterParseFailure(t *testing.T) {
	env := newTestEnv(88)
	env.seedCommitted(3)
	env.outlines.put("project-1", 4, "第四章大纲")
	env.service.evaluator = NewEvaluator(&failingJudgeStub{}, env.evals)

	_, err := env.service.GenerateChapter(context.Background(), "project-1", 4, nil)
	require.Error(t, err)

	chapter, _ := env.chapters.GetByNumber(context.Background(), "project-1", 4)
	require.Equal(t, entity.ChapterStatusEvaluationFailed, chapter.Status)

	// 评审节点恢复后补评成功
	env.service.evaluator = NewEvaluator(env.judge, env.evals)
	result, err := env.service.EvaluateVersions(context.Background(), "project-1", 4)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, entity.ChapterStatusWaitingConfirm, result.Status)
}

func TestEvaluateVersionsWithoutVersions(t *testing.T) {
	env := newTestEnv(90)
	chapter := entity.NewChapter("project-1", 5)
	chapter.Status = entity.ChapterStatusWaitingConfirm
	require.NoError(t, env.chapters.Create(context.Background(), chapter))

	_, err := env.service.EvaluateVersions(context.Background(), "project-1", 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrVersionNotFound))
}

func TestEvaluateVersionsInvalidState(t *testing.T) {
	env := newTestEnv(90)
	chapter := entity.NewChapter("project-1", 6)
	require.NoError(t, env.chapters.Create(context.Background(), chapter))

	_, err := env.service.EvaluateVersions(context.Background(), "project-1", 6)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidChapterState))
}

func TestCancelEvaluation(t *testing.T) {
	env := newTestEnv()
	chapter := entity.NewChapter("project-1", 3)
	chapter.Status = entity.ChapterStatusEvaluationFailed
	require.NoError(t, env.chapters.Create(context.Background(), chapter))

	updated, err := env.service.CancelEvaluation(context.Background(), "project-1", 3)
	require.NoError(t, err)
	assert.Equal(t, entity.ChapterStatusWaitingConfirm, updated.Status)
}

func TestGenerateChapterRequiresPreviousCommitted(t *testing.T) {
	env := newTestEnv(95)
	env.outlines.put("project-1", 1, "第一章大纲")
	env.outlines.put("project-1", 2, "第二章大纲")

	// 第一章尚未定稿, 第二章不允许生成
	_, err := env.service.GenerateChapter(context.Background(), "project-1", 2, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrPreviousChapterPending))

	env.seedCommitted(1)
	summary, err := env.service.GenerateChapter(context.Background(), "project-1", 2, nil)
	require.NoError(t, err)
	assert.True(t, summary.Success)
}

func TestGenerateChapterJudgeIndexMismatch(t *testing.T) {
	env := newTestEnv()
	env.seedCommitted(3)
	env.outlines.put("project-1", 4, "第四章大纲")
	env.service.evaluator = NewEvaluator(&mismatchedJudgeStub{}, env.evals)

	summary, err := env.service.GenerateChapter(context.Background(), "project-1", 4, &GenerateOptions{
		AutoSelectBest: true,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrEvaluationParse))
	require.NotNil(t, summary)
	assert.Equal(t, entity.ChapterStatusEvaluationFailed, summary.Status)

	// 裁决对不上任何候选时绝不能落一个空定稿
	chapter, _ := env.chapters.GetByNumber(context.Background(), "project-1", 4)
	assert.NotEqual(t, entity.ChapterStatusSuccessful, chapter.Status)
	assert.Empty(t, chapter.ContentText)
}

func TestGenerateChapterBestChoiceOutOfRangeFallsBack(t *testing.T) {
	env := newTestEnv()
	env.seedCommitted(3)
	env.outlines.put("project-1", 4, "第四章大纲")
	env.service.evaluator = NewEvaluator(&wildBestChoiceJudgeStub{}, env.evals)

	summary, err := env.service.GenerateChapter(context.Background(), "project-1", 4, &GenerateOptions{
		AutoSelectBest: true,
	})
	require.NoError(t, err)

	// best_choice 越界时回退到评审中得分最高的真实版本
	assert.True(t, summary.Success)
	assert.Equal(t, 2, summary.BestVersionIndex)

	chapter, _ := env.chapters.GetByNumber(context.Background(), "project-1", 4)
	assert.Equal(t, entity.ChapterStatusSuccessful, chapter.Status)
	assert.Equal(t, "初稿-deepseek", chapter.ContentText)
}

func TestGenerateChapterLockHolderExpired(t *testing.T) {
	env := newTestEnv(95)
	env.outlines.put("project-1", 1, "第一章大纲")
	env.guard.expireHolder = true

	// 抢锁失败且持有者信息恰好过期: 仍报冲突而不是崩溃
	_, err := env.service.GenerateChapter(context.Background(), "project-1", 1, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrRunAlreadyActive))
}

type failingJudgeStub struct{}

func (failingJudgeStub) Evaluate(context.Context, *wfmodel.ChapterEvaluateInput) (*entity.ChapterReviewResult, string, error) {
	return nil, "not json", apperrors.ErrEvaluationParse
}

// mismatchedJudgeStub 裁决引用一个不存在的版本编号
type mismatchedJudgeStub struct{}

func (mismatchedJudgeStub) Evaluate(context.Context, *wfmodel.ChapterEvaluateInput) (*entity.ChapterReviewResult, string, error) {
	return &entity.ChapterReviewResult{
		BestChoice: 0,
		Versions: []entity.VersionReview{
			{VersionIndex: 0, Score: 97},
		},
	}, "{}", nil
}

// wildBestChoiceJudgeStub best_choice 越界但版本评审本身有效
type wildBestChoiceJudgeStub struct{}

func (wildBestChoiceJudgeStub) Evaluate(context.Context, *wfmodel.ChapterEvaluateInput) (*entity.ChapterReviewResult, string, error) {
	return &entity.ChapterReviewResult{
		BestChoice: 9,
		Versions: []entity.VersionReview{
			{VersionIndex: 1, Score: 91},
			{VersionIndex: 2, Score: 96},
		},
	}, "{}", nil
}
