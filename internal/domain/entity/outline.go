package entity

import (
	"time"
)

// ChapterOutline 章节大纲, 连续创作按章节号逐条消费
type ChapterOutline struct {
	ID            string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID     string    `json:"project_id" gorm:"type:uuid;index;not null"`
	ChapterNumber int       `json:"chapter_number" gorm:"not null;uniqueIndex:idx_project_outline"`
	Title         string    `json:"title,omitempty" gorm:"type:varchar(255)"`
	Content       string    `json:"content" gorm:"type:text;not null"`
	KeyEvents     []string  `json:"key_events,omitempty" gorm:"type:jsonb;serializer:json"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (ChapterOutline) TableName() string {
	return "chapter_outlines"
}
