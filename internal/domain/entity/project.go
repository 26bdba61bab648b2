// Package entity 定义领域实体
package entity

import (
	"time"
)

// ProjectStatus 项目状态
type ProjectStatus string

const (
	ProjectStatusDraft     ProjectStatus = "draft"
	ProjectStatusWriting   ProjectStatus = "writing"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusArchived  ProjectStatus = "archived"
)

// Blueprint 作品蓝图, 写作提示词的固定素材
type Blueprint struct {
	Genre         string   `json:"genre,omitempty"`
	Synopsis      string   `json:"synopsis,omitempty"`
	WorldSetting  string   `json:"world_setting,omitempty"`
	MainCharacter string   `json:"main_character,omitempty"`
	Characters    []string `json:"characters,omitempty"`
	StyleGuide    string   `json:"style_guide,omitempty"`
}

// Project 小说项目实体
type Project struct {
	ID               string        `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title            string        `json:"title" gorm:"type:varchar(255);not null"`
	Description      string        `json:"description,omitempty" gorm:"type:text"`
	Blueprint        *Blueprint    `json:"blueprint,omitempty" gorm:"type:jsonb;serializer:json"`
	CurrentWordCount int           `json:"current_word_count" gorm:"default:0"`
	ChapterCount     int           `json:"chapter_count" gorm:"default:0"`
	Status           ProjectStatus `json:"status" gorm:"type:varchar(50);default:'draft'"`
	CreatedAt        time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Project) TableName() string {
	return "projects"
}

// NewProject 创建新项目
func NewProject(title string) *Project {
	now := time.Now()
	return &Project{
		Title:     title,
		Blueprint: &Blueprint{},
		Status:    ProjectStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsEditable 检查项目是否可编辑
func (p *Project) IsEditable() bool {
	return p.Status == ProjectStatusDraft || p.Status == ProjectStatusWriting
}

// UpdateWordCount 更新字数统计
func (p *Project) UpdateWordCount(delta int) {
	p.CurrentWordCount += delta
	p.UpdatedAt = time.Now()
}
