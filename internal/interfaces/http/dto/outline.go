package dto

import (
	"time"

	"inkflow-ai-api/internal/domain/entity"
)

// OutlineItemRequest 单条章节大纲
type OutlineItemRequest struct {
	ChapterNumber int      `json:"chapter_number" binding:"required,gte=1"`
	Title         string   `json:"title" binding:"max=255"`
	Content       string   `json:"content" binding:"required,max=20000"`
	KeyEvents     []string `json:"key_events,omitempty"`
}

// CreateOutlinesRequest 批量创建章节大纲请求
type CreateOutlinesRequest struct {
	Outlines []OutlineItemRequest `json:"outlines" binding:"required,min=1,dive"`
}

// UpdateOutlineRequest 更新章节大纲请求
type UpdateOutlineRequest struct {
	Title     *string  `json:"title,omitempty" binding:"omitempty,max=255"`
	Content   *string  `json:"content,omitempty" binding:"omitempty,max=20000"`
	KeyEvents []string `json:"key_events,omitempty"`
}

// OutlineResponse 章节大纲响应
type OutlineResponse struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	ChapterNumber int       `json:"chapter_number"`
	Title         string    `json:"title,omitempty"`
	Content       string    `json:"content"`
	KeyEvents     []string  `json:"key_events,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OutlineListResponse 章节大纲列表响应
type OutlineListResponse struct {
	Outlines []*OutlineResponse `json:"outlines"`
}

// ToOutlineEntity 将单条大纲请求转换为领域实体
func (r *OutlineItemRequest) ToOutlineEntity(projectID string) *entity.ChapterOutline {
	return &entity.ChapterOutline{
		ProjectID:     projectID,
		ChapterNumber: r.ChapterNumber,
		Title:         r.Title,
		Content:       r.Content,
		KeyEvents:     r.KeyEvents,
	}
}

// ApplyToOutline 将更新请求应用到大纲实体
func (r *UpdateOutlineRequest) ApplyToOutline(o *entity.ChapterOutline) {
	if r.Title != nil {
		o.Title = *r.Title
	}
	if r.Content != nil {
		o.Content = *r.Content
	}
	if r.KeyEvents != nil {
		o.KeyEvents = r.KeyEvents
	}
	o.UpdatedAt = time.Now()
}

// ToOutlineResponse 将大纲实体转换为响应 DTO
func ToOutlineResponse(o *entity.ChapterOutline) *OutlineResponse {
	if o == nil {
		return nil
	}
	return &OutlineResponse{
		ID:            o.ID,
		ProjectID:     o.ProjectID,
		ChapterNumber: o.ChapterNumber,
		Title:         o.Title,
		Content:       o.Content,
		KeyEvents:     o.KeyEvents,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

// ToOutlineListResponse 将大纲实体列表转换为响应 DTO
func ToOutlineListResponse(outlines []*entity.ChapterOutline) *OutlineListResponse {
	resp := &OutlineListResponse{
		Outlines: make([]*OutlineResponse, 0, len(outlines)),
	}
	for _, o := range outlines {
		resp.Outlines = append(resp.Outlines, ToOutlineResponse(o))
	}
	return resp
}
