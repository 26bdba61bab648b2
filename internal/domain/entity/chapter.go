// Package entity 定义领域实体
package entity

import (
	"time"
)

// ChapterStatus 章节状态
type ChapterStatus string

const (
	ChapterStatusNotGenerated     ChapterStatus = "not_generated"
	ChapterStatusGenerating       ChapterStatus = "generating"
	ChapterStatusEvaluating       ChapterStatus = "evaluating"
	ChapterStatusWaitingConfirm   ChapterStatus = "waiting_for_confirm"
	ChapterStatusSelecting        ChapterStatus = "selecting"
	ChapterStatusSuccessful       ChapterStatus = "successful"
	ChapterStatusFailed           ChapterStatus = "failed"
	ChapterStatusEvaluationFailed ChapterStatus = "evaluation_failed"
)

// chapterTransitions 状态机合法迁移表
var chapterTransitions = map[ChapterStatus][]ChapterStatus{
	ChapterStatusNotGenerated:     {ChapterStatusGenerating},
	ChapterStatusGenerating:       {ChapterStatusEvaluating, ChapterStatusWaitingConfirm, ChapterStatusFailed},
	ChapterStatusEvaluating:       {ChapterStatusWaitingConfirm, ChapterStatusGenerating, ChapterStatusEvaluationFailed, ChapterStatusFailed},
	ChapterStatusWaitingConfirm:   {ChapterStatusSelecting, ChapterStatusGenerating, ChapterStatusEvaluating},
	ChapterStatusSelecting:        {ChapterStatusSuccessful, ChapterStatusFailed},
	ChapterStatusEvaluationFailed: {ChapterStatusEvaluating, ChapterStatusGenerating, ChapterStatusSelecting, ChapterStatusWaitingConfirm},
	ChapterStatusFailed:           {ChapterStatusGenerating},
	ChapterStatusSuccessful:       {ChapterStatusGenerating},
}

// CanTransition 判断状态迁移是否合法
func (s ChapterStatus) CanTransition(to ChapterStatus) bool {
	for _, next := range chapterTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal 判断是否为本轮生成的终态
func (s ChapterStatus) IsTerminal() bool {
	return s == ChapterStatusSuccessful || s == ChapterStatusFailed
}

// Chapter 章节实体
type Chapter struct {
	ID             string        `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID      string        `json:"project_id" gorm:"type:uuid;index;not null"`
	ChapterNumber  int           `json:"chapter_number" gorm:"not null;uniqueIndex:idx_project_chapter"`
	Title          string        `json:"title,omitempty" gorm:"type:varchar(255)"`
	ContentText    string        `json:"content_text,omitempty" gorm:"type:text"`
	Summary        string        `json:"summary,omitempty" gorm:"type:text"`
	WordCount      int           `json:"word_count" gorm:"default:0"`
	Status         ChapterStatus `json:"status" gorm:"type:varchar(50);default:'not_generated'"`
	SelectedIndex  *int          `json:"selected_index,omitempty"`
	RewriteAttempt int           `json:"rewrite_attempt" gorm:"default:0"`
	CreatedAt      time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Chapter) TableName() string {
	return "chapters"
}

// NewChapter 创建新章节
func NewChapter(projectID string, chapterNumber int) *Chapter {
	now := time.Now()
	return &Chapter{
		ProjectID:     projectID,
		ChapterNumber: chapterNumber,
		Status:        ChapterStatusNotGenerated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// TransitionTo 执行状态迁移, 非法迁移返回 false 且不改变状态
func (c *Chapter) TransitionTo(to ChapterStatus) bool {
	if !c.Status.CanTransition(to) {
		return false
	}
	c.Status = to
	c.UpdatedAt = time.Now()
	return true
}

// SetContent 设置章节正文
func (c *Chapter) SetContent(content string) {
	c.ContentText = content
	c.WordCount = len([]rune(content))
	c.UpdatedAt = time.Now()
}

// ChapterVersion 同一章节一轮生成中的候选版本
type ChapterVersion struct {
	ID            string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChapterID     string    `json:"chapter_id" gorm:"type:uuid;index;not null"`
	VersionIndex  int       `json:"version_index" gorm:"not null"`
	Provider      string    `json:"provider" gorm:"type:varchar(64)"`
	Model         string    `json:"model" gorm:"type:varchar(128)"`
	ContentText   string    `json:"content_text" gorm:"type:text"`
	WordCount     int       `json:"word_count" gorm:"default:0"`
	Attempt       int       `json:"attempt" gorm:"default:1"`
	GenerateError string    `json:"generate_error,omitempty" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (ChapterVersion) TableName() string {
	return "chapter_versions"
}

// Succeeded 该版本是否生成成功
func (v *ChapterVersion) Succeeded() bool {
	return v.GenerateError == "" && v.ContentText != ""
}
