// Package writer 实现章节创作编排: 并发生成, 评审, 重写循环与连续创作
package writer

import (
	"strings"

	"inkflow-ai-api/internal/domain/entity"
)

// Thresholds 一次生成调用开始时快照的分数线配置
// 循环执行期间不感知后台配置变更
type Thresholds struct {
	Early       int
	Normal      int
	MaxAttempts int
}

// ForChapter 前三章使用 Early 分数线, 之后使用 Normal
func (t Thresholds) ForChapter(chapterNumber int) int {
	if chapterNumber <= 3 {
		return t.Early
	}
	return t.Normal
}

// GenerateOptions 单章生成参数
type GenerateOptions struct {
	// WritingNotes 用户临时写作指示, 追加到大纲之后
	WritingNotes string
	// Provider 非空时只用该提供商生成 (定向修复某个版本)
	Provider string
	// ScoreThreshold 显式分数线, 覆盖按章节号推导的默认值
	ScoreThreshold *int
	// MaxAttempts 覆盖本次调用的最大生成轮数
	MaxAttempts *int
	// AutoSelectBest 达标或轮数耗尽后自动提交最优版本
	AutoSelectBest bool
	// SkipEvaluation 跳过评审, 生成后直接进入待确认
	SkipEvaluation bool
}

// GenerationSummary 一次生成调用的结果汇总
// Success 为 false 且 FinalScore > 0 时表示轮数耗尽未达标 (ThresholdNotMet)
type GenerationSummary struct {
	Success          bool                          `json:"success"`
	FinalScore       int                           `json:"final_score"`
	AttemptsUsed     int                           `json:"attempts_used"`
	BestVersionIndex int                           `json:"best_version_index"`
	Status           entity.ChapterStatus          `json:"status"`
	Stopped          bool                          `json:"stopped,omitempty"`
	Message          string                        `json:"message,omitempty"`
	ReviewHistory    []*entity.ChapterReviewResult `json:"review_history,omitempty"`
}

// PromptContext 注入写作与评审提示词的上下文素材
type PromptContext struct {
	Blueprint         string
	PreviousSummaries string
	LastChapterTail   string
	RetrievedContext  string
}

// bestCandidate 跨轮保留的最优候选, 轮数耗尽时提交它而不是丢弃进度
type bestCandidate struct {
	Attempt      int
	VersionIndex int
	Score        int
	Provider     string
	Model        string
	Content      string
}

func (b *bestCandidate) update(attempt int, review *entity.ChapterReviewResult, versions []*entity.ChapterVersion) {
	if review == nil {
		return
	}
	best := review.BestReview()
	if best == nil {
		return
	}
	if b.Content != "" && best.Score <= b.Score {
		return
	}
	for _, v := range versions {
		if v.VersionIndex == best.VersionIndex && v.Succeeded() {
			b.Attempt = attempt
			b.VersionIndex = v.VersionIndex
			b.Score = best.Score
			b.Provider = v.Provider
			b.Model = v.Model
			b.Content = v.ContentText
			return
		}
	}
}

// joinOutlineNotes 拼接大纲正文与用户写作指示
func joinOutlineNotes(outline, notes string) string {
	outline = strings.TrimSpace(outline)
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return outline
	}
	if outline == "" {
		return notes
	}
	return outline + "\n\n【本章写作指示】\n" + notes
}
