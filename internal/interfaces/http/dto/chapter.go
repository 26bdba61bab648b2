package dto

import (
	"time"

	"inkflow-ai-api/internal/domain/entity"
)

// ChapterResponse 章节响应
type ChapterResponse struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"project_id"`
	ChapterNumber  int       `json:"chapter_number"`
	Title          string    `json:"title,omitempty"`
	ContentText    string    `json:"content_text,omitempty"`
	Summary        string    `json:"summary,omitempty"`
	WordCount      int       `json:"word_count"`
	Status         string    `json:"status"`
	SelectedIndex  *int      `json:"selected_index,omitempty"`
	RewriteAttempt int       `json:"rewrite_attempt"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ChapterBriefResponse 章节列表项, 不携带正文
type ChapterBriefResponse struct {
	ID            string    `json:"id"`
	ChapterNumber int       `json:"chapter_number"`
	Title         string    `json:"title,omitempty"`
	Summary       string    `json:"summary,omitempty"`
	WordCount     int       `json:"word_count"`
	Status        string    `json:"status"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ChapterListResponse 章节列表响应
type ChapterListResponse struct {
	Chapters []*ChapterBriefResponse `json:"chapters"`
}

// VersionResponse 章节候选版本响应
type VersionResponse struct {
	VersionIndex  int       `json:"version_index"`
	Provider      string    `json:"provider"`
	Model         string    `json:"model"`
	ContentText   string    `json:"content_text,omitempty"`
	WordCount     int       `json:"word_count"`
	Attempt       int       `json:"attempt"`
	GenerateError string    `json:"generate_error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// VersionListResponse 候选版本列表响应, 附带最近一轮评审
type VersionListResponse struct {
	Versions   []*VersionResponse  `json:"versions"`
	Evaluation *EvaluationResponse `json:"evaluation,omitempty"`
}

// EvaluationResponse 一轮评审记录响应
type EvaluationResponse struct {
	ID        string                     `json:"id"`
	Attempt   int                        `json:"attempt"`
	Result    entity.ChapterReviewResult `json:"result"`
	CreatedAt time.Time                  `json:"created_at"`
}

// EvaluationListResponse 评审历史响应
type EvaluationListResponse struct {
	Evaluations []*EvaluationResponse `json:"evaluations"`
}

// ToChapterResponse 将领域实体转换为响应 DTO
func ToChapterResponse(c *entity.Chapter) *ChapterResponse {
	if c == nil {
		return nil
	}
	return &ChapterResponse{
		ID:             c.ID,
		ProjectID:      c.ProjectID,
		ChapterNumber:  c.ChapterNumber,
		Title:          c.Title,
		ContentText:    c.ContentText,
		Summary:        c.Summary,
		WordCount:      c.WordCount,
		Status:         string(c.Status),
		SelectedIndex:  c.SelectedIndex,
		RewriteAttempt: c.RewriteAttempt,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// ToChapterListResponse 将领域实体列表转换为列表响应
func ToChapterListResponse(chapters []*entity.Chapter) *ChapterListResponse {
	resp := &ChapterListResponse{
		Chapters: make([]*ChapterBriefResponse, 0, len(chapters)),
	}
	for _, c := range chapters {
		resp.Chapters = append(resp.Chapters, &ChapterBriefResponse{
			ID:            c.ID,
			ChapterNumber: c.ChapterNumber,
			Title:         c.Title,
			Summary:       c.Summary,
			WordCount:     c.WordCount,
			Status:        string(c.Status),
			UpdatedAt:     c.UpdatedAt,
		})
	}
	return resp
}

// ToVersionResponse 将候选版本实体转换为响应 DTO
func ToVersionResponse(v *entity.ChapterVersion) *VersionResponse {
	if v == nil {
		return nil
	}
	return &VersionResponse{
		VersionIndex:  v.VersionIndex,
		Provider:      v.Provider,
		Model:         v.Model,
		ContentText:   v.ContentText,
		WordCount:     v.WordCount,
		Attempt:       v.Attempt,
		GenerateError: v.GenerateError,
		CreatedAt:     v.CreatedAt,
	}
}

// ToEvaluationResponse 将评审记录实体转换为响应 DTO
func ToEvaluationResponse(e *entity.ChapterEvaluation) *EvaluationResponse {
	if e == nil {
		return nil
	}
	return &EvaluationResponse{
		ID:        e.ID,
		Attempt:   e.Attempt,
		Result:    e.Result,
		CreatedAt: e.CreatedAt,
	}
}

// ToVersionListResponse 组装候选版本与最近评审的复合响应
func ToVersionListResponse(versions []*entity.ChapterVersion, eval *entity.ChapterEvaluation) *VersionListResponse {
	resp := &VersionListResponse{
		Versions:   make([]*VersionResponse, 0, len(versions)),
		Evaluation: ToEvaluationResponse(eval),
	}
	for _, v := range versions {
		resp.Versions = append(resp.Versions, ToVersionResponse(v))
	}
	return resp
}

// ToEvaluationListResponse 将评审历史转换为响应 DTO
func ToEvaluationListResponse(evals []*entity.ChapterEvaluation) *EvaluationListResponse {
	resp := &EvaluationListResponse{
		Evaluations: make([]*EvaluationResponse, 0, len(evals)),
	}
	for _, e := range evals {
		resp.Evaluations = append(resp.Evaluations, ToEvaluationResponse(e))
	}
	return resp
}
