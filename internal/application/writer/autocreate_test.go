package writer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkflow-ai-api/internal/domain/entity"
	"inkflow-ai-api/internal/infrastructure/llm"
	wfmodel "inkflow-ai-api/internal/workflow/model"
	apperrors "inkflow-ai-api/pkg/errors"
)

type eventRecorder struct {
	events []*RunEvent
}

func (r *eventRecorder) sink() EventSink {
	return func(ev *RunEvent) { r.events = append(r.events, ev) }
}

func (r *eventRecorder) ofType(t EventType) []*RunEvent {
	var out []*RunEvent
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (r *eventRecorder) last() *RunEvent {
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

func TestDriverRunCompletes(t *testing.T) {
	env := newTestEnv(95)
	for n := 1; n <= 3; n++ {
		env.outlines.put("project-1", n, fmt.Sprintf("第%d章大纲", n))
	}

	rec := &eventRecorder{}
	err := env.newDriver().Run(context.Background(), "project-1", &AutoCreateOptions{}, rec.sink())
	require.NoError(t, err)

	assert.Len(t, rec.ofType(EventStart), 1)
	assert.Len(t, rec.ofType(EventChapterDone), 3)
	require.Len(t, rec.ofType(EventComplete), 1)
	assert.Equal(t, 3, rec.last().Completed)

	// 每章定稿且摘要就位
	for n := 1; n <= 3; n++ {
		ch, _ := env.chapters.GetByNumber(context.Background(), "project-1", n)
		require.NotNil(t, ch, "chapter %d", n)
		assert.Equal(t, entity.ChapterStatusSuccessful, ch.Status)
		assert.NotEmpty(t, ch.Summary)
	}

	// 运行结束后锁被释放
	lock, _ := env.guard.Current(context.Background(), "project-1")
	assert.Nil(t, lock)
}

func TestDriverStopMidRun(t *testing.T) {
	env := newTestEnv(95)
	for n := 1; n <= 5; n++ {
		env.outlines.put("project-1", n, fmt.Sprintf("第%d章大纲", n))
	}

	rec := &eventRecorder{}
	sink := func(ev *RunEvent) {
		rec.events = append(rec.events, ev)
		// 第二章完成后设置停止信号
		if ev.Type == EventChapterDone && ev.Completed == 2 {
			_ = env.guard.RequestStop(context.Background(), "project-1")
		}
	}

	err := env.newDriver().Run(context.Background(), "project-1", &AutoCreateOptions{}, sink)
	require.NoError(t, err)

	stopped := rec.ofType(EventStopped)
	require.Len(t, stopped, 1)
	assert.Equal(t, 2, stopped[0].Completed)
	assert.Empty(t, rec.ofType(EventComplete))

	// 第三章未被触碰, 处于一致状态
	ch3, _ := env.chapters.GetByNumber(context.Background(), "project-1", 3)
	assert.Nil(t, ch3)
}

func TestDriverOutlineGapAbort(t *testing.T) {
	env := newTestEnv(95)
	env.outlines.put("project-1", 1, "第一章大纲")
	env.outlines.put("project-1", 3, "第三章大纲")

	rec := &eventRecorder{}
	err := env.newDriver().Run(context.Background(), "project-1", &AutoCreateOptions{}, rec.sink())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrOutlineNotFound))

	errs := rec.ofType(EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, 2, errs[0].ChapterNumber)
	assert.Len(t, rec.ofType(EventChapterDone), 1)
}

func TestDriverOutlineGapSkip(t *testing.T) {
	env := newTestEnv(95)
	env.cfg.Writer.OutlineGapPolicy = GapPolicySkip
	env.outlines.put("project-1", 1, "第一章大纲")
	env.outlines.put("project-1", 3, "第三章大纲")

	rec := &eventRecorder{}
	err := env.newDriver().Run(context.Background(), "project-1", &AutoCreateOptions{}, rec.sink())
	require.NoError(t, err)

	assert.Len(t, rec.ofType(EventChapterDone), 2)
	chapterErrs := rec.ofType(EventChapterError)
	require.Len(t, chapterErrs, 1)
	assert.Equal(t, 2, chapterErrs[0].ChapterNumber)
	require.Len(t, rec.ofType(EventComplete), 1)
	assert.Equal(t, 2, rec.last().Completed)
}

func TestDriverAutoStopOnError(t *testing.T) {
	env := newTestEnv(95)
	for n := 1; n <= 3; n++ {
		env.outlines.put("project-1", n, fmt.Sprintf("第%d章大纲", n))
	}
	env.drafter.draft = func(wm llm.WritingModel, in *wfmodel.ChapterWriteInput) (string, error) {
		if in.ChapterNumber == 2 {
			return "", errors.New("provider down")
		}
		return "初稿-" + wm.Provider, nil
	}

	rec := &eventRecorder{}
	err := env.newDriver().Run(context.Background(), "project-1", &AutoCreateOptions{AutoStopOnError: true}, rec.sink())
	require.Error(t, err)

	assert.Len(t, rec.ofType(EventChapterDone), 1)
	errs := rec.ofType(EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, 2, errs[0].ChapterNumber)
	assert.Equal(t, 1, errs[0].Completed)
}

func TestDriverContinuesOnChapterError(t *testing.T) {
	env := newTestEnv(95)
	for n := 1; n <= 3; n++ {
		env.outlines.put("project-1", n, fmt.Sprintf("第%d章大纲", n))
	}
	env.drafter.draft = func(wm llm.WritingModel, in *wfmodel.ChapterWriteInput) (string, error) {
		if in.ChapterNumber == 2 {
			return "", errors.New("provider down")
		}
		return "初稿-" + wm.Provider, nil
	}

	rec := &eventRecorder{}
	err := env.newDriver().Run(context.Background(), "project-1", &AutoCreateOptions{}, rec.sink())
	require.NoError(t, err)

	assert.Len(t, rec.ofType(EventChapterDone), 2)
	assert.Len(t, rec.ofType(EventChapterError), 1)
	require.Len(t, rec.ofType(EventComplete), 1)
	assert.Equal(t, 2, rec.last().Completed)

	// 失败章节可重新生成
	ch2, _ := env.chapters.GetByNumber(context.Background(), "project-1", 2)
	require.NotNil(t, ch2)
	assert.Equal(t, entity.ChapterStatusFailed, ch2.Status)
}

func TestDriverRunConflict(t *testing.T) {
	env := newTestEnv(95)
	env.outlines.put("project-1", 1, "第一章大纲")

	_, ok, err := env.guard.Acquire(context.Background(), "project-1", "other", "manual")
	require.NoError(t, err)
	require.True(t, ok)

	err = env.newDriver().Run(context.Background(), "project-1", &AutoCreateOptions{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrRunAlreadyActive))
}

func TestDriverNoOutlines(t *testing.T) {
	env := newTestEnv(95)
	err := env.newDriver().Run(context.Background(), "project-1", &AutoCreateOptions{}, nil)
	assert.Error(t, err)
}

func TestDriverExplicitRange(t *testing.T) {
	env := newTestEnv(95)
	for n := 1; n <= 5; n++ {
		env.outlines.put("project-1", n, fmt.Sprintf("第%d章大纲", n))
	}

	rec := &eventRecorder{}
	err := env.newDriver().Run(context.Background(), "project-1", &AutoCreateOptions{StartChapter: 2, EndChapter: 3}, rec.sink())
	require.NoError(t, err)

	done := rec.ofType(EventChapterDone)
	require.Len(t, done, 2)
	assert.Equal(t, 2, done[0].ChapterNumber)
	assert.Equal(t, 3, done[1].ChapterNumber)
}
