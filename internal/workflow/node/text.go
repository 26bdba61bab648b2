package node

import "unicode/utf8"

func TruncateByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

// TailExcerpt 取文本末尾 maxRunes 个字符, 用于重写时回看上一稿结尾
func TailExcerpt(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	total := utf8.RuneCountInString(s)
	if total <= maxRunes {
		return s
	}
	skip := total - maxRunes
	n := 0
	for i := range s {
		if n == skip {
			return s[i:]
		}
		n++
	}
	return s
}
