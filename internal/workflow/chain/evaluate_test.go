package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReviewResult(t *testing.T) {
	raw := "```json\n" + `{
		"best_choice": 2,
		"reason_for_choice": "节奏更好",
		"versions": [
			{"version_index": 1, "score": 78, "pros": ["文笔流畅"], "cons": ["节奏拖沓"], "overall_review": "中规中矩"},
			{"version_index": 2, "score": 92, "pros": ["冲突紧凑"], "cons": [],
			 "detailed_weaknesses": [{"location": "开头", "issue": "铺垫略长", "suggestion": "压缩前两段"}],
			 "overall_review": "整体优秀"}
		]
	}` + "\n```"

	result, err := parseReviewResult(raw)
	require.NoError(t, err)
	assert.Equal(t, 2, result.BestChoice)
	assert.Equal(t, 92, result.BestScore())
	require.Len(t, result.Versions, 2)
	assert.Equal(t, "铺垫略长", result.Versions[1].Weaknesses[0].Issue)
}

func TestParseReviewResultWithThinkTags(t *testing.T) {
	raw := `<think>对比两个版本</think>{"best_choice": 1, "reason_for_choice": "ok", "versions": [{"version_index": 1, "score": 85, "overall_review": "好"}]}`

	result, err := parseReviewResult(raw)
	require.NoError(t, err)
	assert.Equal(t, 1, result.BestChoice)
	assert.Equal(t, 85, result.BestScore())
}

func TestParseReviewResultScoreClamped(t *testing.T) {
	raw := `{"best_choice": 1, "versions": [{"version_index": 1, "score": 120, "overall_review": ""}, {"version_index": 2, "score": -5, "overall_review": ""}]}`

	result, err := parseReviewResult(raw)
	require.NoError(t, err)
	assert.Equal(t, 100, result.Versions[0].Score)
	assert.Equal(t, 0, result.Versions[1].Score)
}

func TestParseReviewResultBestChoiceFallback(t *testing.T) {
	// best_choice 指向不存在的版本时回退到最高分
	raw := `{"best_choice": 9, "versions": [{"version_index": 1, "score": 70}, {"version_index": 2, "score": 88}]}`

	result, err := parseReviewResult(raw)
	require.NoError(t, err)
	assert.Equal(t, 2, result.BestChoice)
	assert.Equal(t, 88, result.BestScore())
}

func TestParseReviewResultErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"空输出", ""},
		{"纯文本", "这不是 JSON"},
		{"无版本", `{"best_choice": 1, "versions": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseReviewResult(tt.raw)
			assert.Error(t, err)
		})
	}
}
