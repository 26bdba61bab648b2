package writer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"inkflow-ai-api/internal/domain/entity"
)

func TestRewriteFeedbackAccumulates(t *testing.T) {
	fb := NewRewriteFeedback()

	fb.Absorb(&entity.ChapterReviewResult{
		Versions: []entity.VersionReview{
			{VersionIndex: 1, Cons: []string{"节奏拖沓", "对白生硬"}},
			{VersionIndex: 2, Cons: []string{"结尾仓促"}},
		},
	})
	fb.Absorb(&entity.ChapterReviewResult{
		Versions: []entity.VersionReview{
			{VersionIndex: 1, Cons: []string{"节奏拖沓", "场景描写单薄"}},
		},
	})

	// 跨轮累积且去重
	assert.Equal(t, "1. 节奏拖沓\n2. 对白生硬\n3. 场景描写单薄", fb.WeaknessText(1))
	assert.Equal(t, "1. 结尾仓促", fb.WeaknessText(2))
	assert.True(t, fb.HasFeedback(1))
	assert.False(t, fb.HasFeedback(3))
	assert.Equal(t, "", fb.WeaknessText(3))
}

func TestRewriteFeedbackWeaknessFormatting(t *testing.T) {
	fb := NewRewriteFeedback()
	fb.Absorb(&entity.ChapterReviewResult{
		Versions: []entity.VersionReview{
			{
				VersionIndex: 1,
				Weaknesses: []entity.DetailedWeakness{
					{Location: "第三段", Issue: "视角跳跃", Suggestion: "固定主角视角"},
					{Issue: "用词重复"},
				},
			},
		},
	})

	assert.Equal(t, "1. 位置: 第三段; 问题: 视角跳跃; 建议: 固定主角视角\n2. 问题: 用词重复", fb.WeaknessText(1))
}

func TestRewriteFeedbackProsKeepsLatestRound(t *testing.T) {
	fb := NewRewriteFeedback()
	fb.Absorb(&entity.ChapterReviewResult{
		Versions: []entity.VersionReview{{VersionIndex: 1, Pros: []string{"文笔好"}}},
	})
	fb.Absorb(&entity.ChapterReviewResult{
		Versions: []entity.VersionReview{{VersionIndex: 1, Pros: []string{"冲突紧凑", "人物鲜活"}}},
	})

	assert.Equal(t, "- 冲突紧凑\n- 人物鲜活", fb.ProsText(1))
}

func TestRewriteFeedbackIgnoresBlankItems(t *testing.T) {
	fb := NewRewriteFeedback()
	fb.Absorb(&entity.ChapterReviewResult{
		Versions: []entity.VersionReview{{VersionIndex: 1, Cons: []string{"", "  ", "真问题"}}},
	})
	assert.Equal(t, "1. 真问题", fb.WeaknessText(1))
}

func TestRewriteFeedbackDedupIgnoresCase(t *testing.T) {
	fb := NewRewriteFeedback()
	fb.Absorb(&entity.ChapterReviewResult{
		Versions: []entity.VersionReview{{VersionIndex: 1, Cons: []string{"Pacing too slow"}}},
	})
	fb.Absorb(&entity.ChapterReviewResult{
		Versions: []entity.VersionReview{{VersionIndex: 1, Cons: []string{"pacing too slow", "结尾仓促"}}},
	})

	// 同一条问题仅大小写不同视为重复, 保留首次出现的写法
	assert.Equal(t, "1. Pacing too slow\n2. 结尾仓促", fb.WeaknessText(1))
}

func TestRewriteFeedbackNilReview(t *testing.T) {
	fb := NewRewriteFeedback()
	fb.Absorb(nil)
	assert.False(t, fb.HasFeedback(1))
}
