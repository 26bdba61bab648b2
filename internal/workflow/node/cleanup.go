package node

import (
	"regexp"
	"strings"
)

var thinkTagRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// RemoveThinkTags 去掉推理模型输出中的 <think>...</think> 片段
// 未闭合的 think 标签视为全部内容都是思考过程, 只保留标签之前的文本
func RemoveThinkTags(s string) string {
	cleaned := thinkTagRe.ReplaceAllString(s, "")
	if idx := strings.Index(cleaned, "<think>"); idx >= 0 {
		cleaned = cleaned[:idx]
	}
	return strings.TrimSpace(cleaned)
}

var markdownFenceRe = regexp.MustCompile("(?s)^```(?:json|JSON)?\\s*\\n?(.*?)\\n?```$")

// UnwrapMarkdownJSON 去掉 ```json ... ``` 围栏, 没有围栏时原样返回
func UnwrapMarkdownJSON(s string) string {
	trimmed := strings.TrimSpace(s)
	if m := markdownFenceRe.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}

// SanitizeJSONLikeText 清理 JSON 文本中模型常见的非法字符:
// 全角引号替换为转义引号, 裸换行收敛, 去除控制字符
func SanitizeJSONLikeText(s string) string {
	replacer := strings.NewReplacer(
		"“", `\"`,
		"”", `\"`,
		"‘", "'",
		"’", "'",
		"\t", " ",
	)
	cleaned := replacer.Replace(s)

	var b strings.Builder
	b.Grow(len(cleaned))
	for _, r := range cleaned {
		if r < 0x20 && r != '\n' && r != '\r' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CleanModelJSON 按固定顺序执行模型 JSON 输出的清理链
func CleanModelJSON(s string) string {
	cleaned := RemoveThinkTags(s)
	cleaned = UnwrapMarkdownJSON(cleaned)
	cleaned = SanitizeJSONLikeText(cleaned)
	return ExtractJSONObject(cleaned)
}
