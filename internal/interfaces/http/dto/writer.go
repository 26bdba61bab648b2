package dto

import (
	"time"

	"inkflow-ai-api/internal/application/writer"
	redisinfra "inkflow-ai-api/internal/infrastructure/persistence/redis"
)

// GenerateChapterRequest 手动生成章节请求
type GenerateChapterRequest struct {
	ChapterNumber  int    `json:"chapter_number" binding:"required,gte=1"`
	WritingNotes   string `json:"writing_notes,omitempty" binding:"max=5000"`
	Provider       string `json:"provider,omitempty" binding:"max=64"`
	ScoreThreshold *int   `json:"score_threshold,omitempty" binding:"omitempty,gte=0,lte=100"`
	MaxAttempts    *int   `json:"max_attempts,omitempty" binding:"omitempty,gte=1,lte=10"`
	AutoSelectBest bool   `json:"auto_select_best,omitempty"`
	SkipEvaluation bool   `json:"skip_evaluation,omitempty"`
}

// ToGenerateOptions 将请求转换为生成选项
func (r *GenerateChapterRequest) ToGenerateOptions() *writer.GenerateOptions {
	return &writer.GenerateOptions{
		WritingNotes:   r.WritingNotes,
		Provider:       r.Provider,
		ScoreThreshold: r.ScoreThreshold,
		MaxAttempts:    r.MaxAttempts,
		AutoSelectBest: r.AutoSelectBest,
		SkipEvaluation: r.SkipEvaluation,
	}
}

// EvaluateVersionsRequest 补评已有候选版本请求
type EvaluateVersionsRequest struct {
	ChapterNumber int `json:"chapter_number" binding:"required,gte=1"`
}

// SelectVersionRequest 选择候选版本请求
type SelectVersionRequest struct {
	ChapterNumber int  `json:"chapter_number" binding:"required,gte=1"`
	VersionIndex  *int `json:"version_index" binding:"required,gte=1"`
}

// AutoCreateRequest 连续创作请求
type AutoCreateRequest struct {
	StartChapter    int    `json:"start_chapter,omitempty" binding:"gte=0"`
	EndChapter      int    `json:"end_chapter,omitempty" binding:"gte=0"`
	WritingNotes    string `json:"writing_notes,omitempty" binding:"max=5000"`
	AutoStopOnError bool   `json:"auto_stop_on_error,omitempty"`
}

// ToAutoCreateOptions 将请求转换为连续创作选项
func (r *AutoCreateRequest) ToAutoCreateOptions() *writer.AutoCreateOptions {
	return &writer.AutoCreateOptions{
		StartChapter:    r.StartChapter,
		EndChapter:      r.EndChapter,
		WritingNotes:    r.WritingNotes,
		AutoStopOnError: r.AutoStopOnError,
	}
}

// GenerationSummaryResponse 一次章节生成的执行结果
type GenerationSummaryResponse struct {
	Success          bool   `json:"success"`
	FinalScore       int    `json:"final_score"`
	AttemptsUsed     int    `json:"attempts_used"`
	BestVersionIndex int    `json:"best_version_index"`
	Status           string `json:"status"`
	Stopped          bool   `json:"stopped,omitempty"`
	Message          string `json:"message,omitempty"`
}

// RunStatusResponse 创作运行状态响应
type RunStatusResponse struct {
	Active        bool      `json:"active"`
	RunID         string    `json:"run_id,omitempty"`
	Mode          string    `json:"mode,omitempty"`
	StartedAt     time.Time `json:"started_at,omitempty"`
	StopRequested bool      `json:"stop_requested,omitempty"`
}

// StopRunResponse 停止创作响应
type StopRunResponse struct {
	RunID   string `json:"run_id"`
	Mode    string `json:"mode"`
	Stopped bool   `json:"stopped"`
}

// ToGenerationSummaryResponse 将执行结果转换为响应 DTO
func ToGenerationSummaryResponse(s *writer.GenerationSummary) *GenerationSummaryResponse {
	if s == nil {
		return nil
	}
	return &GenerationSummaryResponse{
		Success:          s.Success,
		FinalScore:       s.FinalScore,
		AttemptsUsed:     s.AttemptsUsed,
		BestVersionIndex: s.BestVersionIndex,
		Status:           string(s.Status),
		Stopped:          s.Stopped,
		Message:          s.Message,
	}
}

// ToRunStatusResponse 将运行锁状态转换为响应 DTO
func ToRunStatusResponse(lock *redisinfra.RunLock, stopRequested bool) *RunStatusResponse {
	if lock == nil {
		return &RunStatusResponse{Active: false}
	}
	return &RunStatusResponse{
		Active:        true,
		RunID:         lock.RunID,
		Mode:          string(lock.Mode),
		StartedAt:     lock.StartedAt,
		StopRequested: stopRequested,
	}
}
