package writer

import (
	"fmt"
	"strings"

	"inkflow-ai-api/internal/domain/entity"
)

// RewriteFeedback 跨轮累积的评审反馈
// 每轮评审后把各槽位的问题追加进来, 重写提示词引用累积后的清单
type RewriteFeedback struct {
	// slots 槽位 -> 去重后的问题条目 (保持首次出现顺序)
	slots map[int][]string
	// pros 槽位 -> 最近一轮评审认可的优点
	pros map[int][]string
	seen map[int]map[string]struct{}
}

// NewRewriteFeedback 创建空反馈
func NewRewriteFeedback() *RewriteFeedback {
	return &RewriteFeedback{
		slots: make(map[int][]string),
		pros:  make(map[int][]string),
		seen:  make(map[int]map[string]struct{}),
	}
}

// Absorb 吸收一轮评审: 问题累积去重, 优点只保留最近一轮
func (f *RewriteFeedback) Absorb(review *entity.ChapterReviewResult) {
	if review == nil {
		return
	}
	for _, vr := range review.Versions {
		idx := vr.VersionIndex
		for _, con := range vr.Cons {
			f.add(idx, con)
		}
		for _, w := range vr.Weaknesses {
			f.add(idx, formatWeakness(w))
		}
		if len(vr.Pros) > 0 {
			f.pros[idx] = append([]string(nil), vr.Pros...)
		}
	}
}

func (f *RewriteFeedback) add(slot int, item string) {
	item = strings.TrimSpace(item)
	if item == "" {
		return
	}
	// 去重忽略大小写, 保留首次出现的原文
	key := strings.ToLower(item)
	if f.seen[slot] == nil {
		f.seen[slot] = make(map[string]struct{})
	}
	if _, ok := f.seen[slot][key]; ok {
		return
	}
	f.seen[slot][key] = struct{}{}
	f.slots[slot] = append(f.slots[slot], item)
}

// WeaknessText 槽位累积问题的编号清单文本, 无反馈返回空串
func (f *RewriteFeedback) WeaknessText(slot int) string {
	items := f.slots[slot]
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ProsText 槽位最近一轮获认可的优点文本
func (f *RewriteFeedback) ProsText(slot int) string {
	items := f.pros[slot]
	if len(items) == 0 {
		return ""
	}
	return "- " + strings.Join(items, "\n- ")
}

// HasFeedback 槽位是否存在累积问题
func (f *RewriteFeedback) HasFeedback(slot int) bool {
	return len(f.slots[slot]) > 0
}

func formatWeakness(w entity.DetailedWeakness) string {
	parts := make([]string, 0, 3)
	if s := strings.TrimSpace(w.Location); s != "" {
		parts = append(parts, "位置: "+s)
	}
	if s := strings.TrimSpace(w.Issue); s != "" {
		parts = append(parts, "问题: "+s)
	}
	if s := strings.TrimSpace(w.Suggestion); s != "" {
		parts = append(parts, "建议: "+s)
	}
	return strings.Join(parts, "; ")
}
