package entity

import (
	"time"
)

// DetailedWeakness 评审给出的具体问题定位
type DetailedWeakness struct {
	Location   string `json:"location"`
	Issue      string `json:"issue"`
	Suggestion string `json:"suggestion"`
}

// VersionReview 单个候选版本的评审结果
type VersionReview struct {
	VersionIndex  int                `json:"version_index"`
	Score         int                `json:"score"`
	Pros          []string           `json:"pros"`
	Cons          []string           `json:"cons"`
	Weaknesses    []DetailedWeakness `json:"detailed_weaknesses,omitempty"`
	OverallReview string             `json:"overall_review"`
}

// ChapterReviewResult 一轮评审的完整裁决
type ChapterReviewResult struct {
	BestChoice      int             `json:"best_choice"`
	ReasonForChoice string          `json:"reason_for_choice"`
	Versions        []VersionReview `json:"versions"`
}

// BestReview 返回被裁定为最优的版本评审, 不存在时返回 nil
func (r *ChapterReviewResult) BestReview() *VersionReview {
	for i := range r.Versions {
		if r.Versions[i].VersionIndex == r.BestChoice {
			return &r.Versions[i]
		}
	}
	return nil
}

// BestScore 最优版本的分数, 缺失时返回 0
func (r *ChapterReviewResult) BestScore() int {
	if best := r.BestReview(); best != nil {
		return best.Score
	}
	return 0
}

// ChapterEvaluation 持久化的一轮评审记录
type ChapterEvaluation struct {
	ID        string              `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChapterID string              `json:"chapter_id" gorm:"type:uuid;index;not null"`
	Attempt   int                 `json:"attempt" gorm:"not null"`
	Result    ChapterReviewResult `json:"result" gorm:"type:jsonb;serializer:json"`
	RawOutput string              `json:"raw_output,omitempty" gorm:"type:text"`
	// 本轮裁决由哪个评审模型给出
	JudgeProvider string    `json:"judge_provider,omitempty" gorm:"type:varchar(32)"`
	JudgeModel    string    `json:"judge_model,omitempty" gorm:"type:varchar(64)"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (ChapterEvaluation) TableName() string {
	return "chapter_evaluations"
}
