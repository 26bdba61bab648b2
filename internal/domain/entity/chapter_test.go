package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChapterStatusCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from ChapterStatus
		to   ChapterStatus
		want bool
	}{
		{"未生成可进入生成中", ChapterStatusNotGenerated, ChapterStatusGenerating, true},
		{"生成中可进入评审中", ChapterStatusGenerating, ChapterStatusEvaluating, true},
		{"生成中可跳过评审直接待确认", ChapterStatusGenerating, ChapterStatusWaitingConfirm, true},
		{"生成中可失败", ChapterStatusGenerating, ChapterStatusFailed, true},
		{"评审中可进入待确认", ChapterStatusEvaluating, ChapterStatusWaitingConfirm, true},
		{"评审中可回到生成中重写", ChapterStatusEvaluating, ChapterStatusGenerating, true},
		{"评审中可进入评审失败", ChapterStatusEvaluating, ChapterStatusEvaluationFailed, true},
		{"待确认可进入选择中", ChapterStatusWaitingConfirm, ChapterStatusSelecting, true},
		{"选择中可定稿", ChapterStatusSelecting, ChapterStatusSuccessful, true},
		{"评审失败可取消评审转待确认", ChapterStatusEvaluationFailed, ChapterStatusWaitingConfirm, true},
		{"评审失败可直接选择", ChapterStatusEvaluationFailed, ChapterStatusSelecting, true},
		{"失败后可重新生成", ChapterStatusFailed, ChapterStatusGenerating, true},
		{"定稿后可重新生成", ChapterStatusSuccessful, ChapterStatusGenerating, true},

		{"未生成不能直接定稿", ChapterStatusNotGenerated, ChapterStatusSuccessful, false},
		{"生成中不能直接选择", ChapterStatusGenerating, ChapterStatusSelecting, false},
		{"评审中不能直接定稿", ChapterStatusEvaluating, ChapterStatusSuccessful, false},
		{"定稿后不能直接选择", ChapterStatusSuccessful, ChapterStatusSelecting, false},
		{"待确认不能直接失败", ChapterStatusWaitingConfirm, ChapterStatusFailed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestChapterTransitionTo(t *testing.T) {
	ch := NewChapter("project-1", 1)
	assert.Equal(t, ChapterStatusNotGenerated, ch.Status)

	assert.True(t, ch.TransitionTo(ChapterStatusGenerating))
	assert.Equal(t, ChapterStatusGenerating, ch.Status)

	// 非法迁移不改变状态
	assert.False(t, ch.TransitionTo(ChapterStatusSuccessful))
	assert.Equal(t, ChapterStatusGenerating, ch.Status)

	assert.True(t, ch.TransitionTo(ChapterStatusEvaluating))
	assert.True(t, ch.TransitionTo(ChapterStatusWaitingConfirm))
	assert.True(t, ch.TransitionTo(ChapterStatusSelecting))
	assert.True(t, ch.TransitionTo(ChapterStatusSuccessful))
}

func TestChapterSetContent(t *testing.T) {
	ch := NewChapter("project-1", 1)
	ch.SetContent("这是一段中文内容")
	assert.Equal(t, 8, ch.WordCount)
}

func TestChapterVersionSucceeded(t *testing.T) {
	tests := []struct {
		name    string
		version ChapterVersion
		want    bool
	}{
		{"有内容无错误", ChapterVersion{ContentText: "正文"}, true},
		{"有错误", ChapterVersion{ContentText: "正文", GenerateError: "timeout"}, false},
		{"无内容", ChapterVersion{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.version.Succeeded())
		})
	}
}

func TestChapterStatusIsTerminal(t *testing.T) {
	assert.True(t, ChapterStatusSuccessful.IsTerminal())
	assert.True(t, ChapterStatusFailed.IsTerminal())
	assert.False(t, ChapterStatusEvaluating.IsTerminal())
	assert.False(t, ChapterStatusWaitingConfirm.IsTerminal())
}
