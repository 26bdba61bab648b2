package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoveThinkTags(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"无标签原样返回", "正文内容", "正文内容"},
		{"闭合标签被移除", "<think>推理过程</think>正文", "正文"},
		{"多个闭合标签", "<think>a</think>正文<think>b</think>尾部", "正文尾部"},
		{"跨行标签", "<think>第一行\n第二行</think>正文", "正文"},
		{"未闭合标签截断", "正文<think>未完的思考", "正文"},
		{"空输入", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RemoveThinkTags(tt.input))
		})
	}
}

func TestUnwrapMarkdownJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"json 围栏", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"无语言围栏", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"大写 JSON 围栏", "```JSON\n{\"a\":1}\n```", `{"a":1}`},
		{"无围栏原样返回", `{"a":1}`, `{"a":1}`},
		{"围栏外有空白", "  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UnwrapMarkdownJSON(tt.input))
		})
	}
}

func TestSanitizeJSONLikeText(t *testing.T) {
	assert.Equal(t, `{"k":\"引号\"}`, SanitizeJSONLikeText(`{"k":“引号”}`))
	assert.Equal(t, `{"k":"a b"}`, SanitizeJSONLikeText("{\"k\":\"a\tb\"}"))
	// 控制字符被去除, 换行保留
	assert.Equal(t, "a\nb", SanitizeJSONLikeText("a\n\x01b"))
}

func TestCleanModelJSON(t *testing.T) {
	input := "<think>先想一想</think>评审结果如下:\n```json\n{\"best_choice\": 1}\n```\n以上。"
	assert.Equal(t, `{"best_choice": 1}`, CleanModelJSON(input))
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"纯对象", `{"a":1}`, `{"a":1}`},
		{"前后夹杂文本", `结果: {"a":1} 完毕`, `{"a":1}`},
		{"数组", `[1,2,3]`, `[1,2,3]`},
		{"空输入", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSONObject(tt.input))
		})
	}
}

func TestTailExcerpt(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxRunes int
		want     string
	}{
		{"短于上限原样返回", "abc", 10, "abc"},
		{"截取末尾", "一二三四五", 2, "四五"},
		{"零上限返回空", "abc", 0, ""},
		{"恰好等长", "abc", 3, "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TailExcerpt(tt.input, tt.maxRunes))
		})
	}
}
