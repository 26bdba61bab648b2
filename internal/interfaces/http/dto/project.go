// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"inkflow-ai-api/internal/domain/entity"
)

// BlueprintRequest 作品蓝图请求
type BlueprintRequest struct {
	Genre         string   `json:"genre,omitempty" binding:"max=50"`
	Synopsis      string   `json:"synopsis,omitempty" binding:"max=10000"`
	WorldSetting  string   `json:"world_setting,omitempty" binding:"max=20000"`
	MainCharacter string   `json:"main_character,omitempty" binding:"max=10000"`
	Characters    []string `json:"characters,omitempty"`
	StyleGuide    string   `json:"style_guide,omitempty" binding:"max=10000"`
}

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Title       string            `json:"title" binding:"required,max=255"`
	Description string            `json:"description" binding:"max=5000"`
	Blueprint   *BlueprintRequest `json:"blueprint,omitempty"`
}

// UpdateProjectRequest 更新项目请求
type UpdateProjectRequest struct {
	Title       *string           `json:"title,omitempty" binding:"omitempty,max=255"`
	Description *string           `json:"description,omitempty" binding:"omitempty,max=5000"`
	Status      *string           `json:"status,omitempty"`
	Blueprint   *BlueprintRequest `json:"blueprint,omitempty"`
}

// ProjectResponse 项目响应
type ProjectResponse struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	Description      string            `json:"description,omitempty"`
	Blueprint        *entity.Blueprint `json:"blueprint,omitempty"`
	CurrentWordCount int               `json:"current_word_count"`
	ChapterCount     int               `json:"chapter_count"`
	Status           string            `json:"status"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// ProjectListResponse 项目列表响应
type ProjectListResponse struct {
	Projects []*ProjectResponse `json:"projects"`
}

// ToProjectResponse 将领域实体转换为响应 DTO
func ToProjectResponse(p *entity.Project) *ProjectResponse {
	if p == nil {
		return nil
	}
	return &ProjectResponse{
		ID:               p.ID,
		Title:            p.Title,
		Description:      p.Description,
		Blueprint:        p.Blueprint,
		CurrentWordCount: p.CurrentWordCount,
		ChapterCount:     p.ChapterCount,
		Status:           string(p.Status),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

// ToProjectListResponse 将领域实体列表转换为响应 DTO
func ToProjectListResponse(projects []*entity.Project) *ProjectListResponse {
	resp := &ProjectListResponse{
		Projects: make([]*ProjectResponse, 0, len(projects)),
	}
	for _, p := range projects {
		resp.Projects = append(resp.Projects, ToProjectResponse(p))
	}
	return resp
}

// ToBlueprint 将蓝图请求转换为领域对象
func (r *BlueprintRequest) ToBlueprint() *entity.Blueprint {
	if r == nil {
		return nil
	}
	return &entity.Blueprint{
		Genre:         r.Genre,
		Synopsis:      r.Synopsis,
		WorldSetting:  r.WorldSetting,
		MainCharacter: r.MainCharacter,
		Characters:    r.Characters,
		StyleGuide:    r.StyleGuide,
	}
}

// ToProjectEntity 将请求 DTO 转换为领域实体
func (r *CreateProjectRequest) ToProjectEntity() *entity.Project {
	project := entity.NewProject(r.Title)
	project.Description = r.Description
	if bp := r.Blueprint.ToBlueprint(); bp != nil {
		project.Blueprint = bp
	}
	return project
}

// ApplyToProject 将更新请求应用到项目实体
func (r *UpdateProjectRequest) ApplyToProject(p *entity.Project) {
	if r.Title != nil {
		p.Title = *r.Title
	}
	if r.Description != nil {
		p.Description = *r.Description
	}
	if r.Status != nil {
		p.Status = entity.ProjectStatus(*r.Status)
	}
	if bp := r.Blueprint.ToBlueprint(); bp != nil {
		p.Blueprint = bp
	}
	p.UpdatedAt = time.Now()
}
