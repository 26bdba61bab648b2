package handler

import (
	"inkflow-ai-api/internal/application/writer"
	"inkflow-ai-api/internal/interfaces/http/dto"
	"inkflow-ai-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// WriterHandler 章节创作处理器: 生成, 评审, 版本确认与运行控制
type WriterHandler struct {
	service *writer.Service
}

// NewWriterHandler 创建章节创作处理器
func NewWriterHandler(service *writer.Service) *WriterHandler {
	return &WriterHandler{
		service: service,
	}
}

// Generate 单轮生成: 所有写作模型各出一版, 不评审, 直接进入待确认
// @Summary 单轮生成章节候选版本
// @Tags Writer
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.GenerateChapterRequest true "生成参数"
// @Success 200 {object} dto.Response[dto.GenerationSummaryResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/chapters/generate [post]
func (h *WriterHandler) Generate(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("pid")

	var req dto.GenerateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	opts := req.ToGenerateOptions()
	one := 1
	opts.MaxAttempts = &one
	opts.SkipEvaluation = true

	summary, err := h.service.GenerateChapter(ctx, projectID, req.ChapterNumber, opts)
	if err != nil {
		logger.Warn(ctx, "chapter generation failed",
			"project_id", projectID, "chapter_number", req.ChapterNumber, "error", err)
		replyError(c, err)
		return
	}

	dto.Success(c, dto.ToGenerationSummaryResponse(summary))
}

// GenerateWithReview 同步执行完整的生成-评审-重写循环后返回结果汇总
// @Summary 生成章节并自动评审重写
// @Tags Writer
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.GenerateChapterRequest true "生成参数"
// @Success 200 {object} dto.Response[dto.GenerationSummaryResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/chapters/generate-with-review [post]
func (h *WriterHandler) GenerateWithReview(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("pid")

	var req dto.GenerateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	summary, err := h.service.GenerateChapter(ctx, projectID, req.ChapterNumber, req.ToGenerateOptions())
	if err != nil {
		logger.Warn(ctx, "chapter generation failed",
			"project_id", projectID, "chapter_number", req.ChapterNumber, "error", err)
		replyError(c, err)
		return
	}

	dto.Success(c, dto.ToGenerationSummaryResponse(summary))
}

// EvaluateVersions 对已有候选版本单独发起一轮评审
// @Summary 评审已有候选版本
// @Tags Writer
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.EvaluateVersionsRequest true "章节号"
// @Success 200 {object} dto.Response[dto.GenerationSummaryResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/chapters/evaluate [post]
func (h *WriterHandler) EvaluateVersions(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("pid")

	var req dto.EvaluateVersionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	summary, err := h.service.EvaluateVersions(ctx, projectID, req.ChapterNumber)
	if err != nil {
		logger.Warn(ctx, "chapter evaluation failed",
			"project_id", projectID, "chapter_number", req.ChapterNumber, "error", err)
		replyError(c, err)
		return
	}

	dto.Success(c, dto.ToGenerationSummaryResponse(summary))
}

// SelectVersion 确认选择某个候选版本为章节定稿
// @Summary 选择候选版本
// @Tags Writer
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.SelectVersionRequest true "章节号与版本槽位"
// @Success 200 {object} dto.Response[dto.ChapterResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/chapters/select [post]
func (h *WriterHandler) SelectVersion(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("pid")

	var req dto.SelectVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	chapter, err := h.service.SelectVersion(ctx, projectID, req.ChapterNumber, *req.VersionIndex)
	if err != nil {
		replyError(c, err)
		return
	}

	dto.Success(c, dto.ToChapterResponse(chapter))
}

// CancelEvaluation 放弃失败的评审, 回到人工挑选版本
// @Summary 取消评审转人工确认
// @Tags Writer
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.EvaluateVersionsRequest true "章节号"
// @Success 200 {object} dto.Response[dto.ChapterResponse]
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/chapters/evaluate/cancel [post]
func (h *WriterHandler) CancelEvaluation(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("pid")

	var req dto.EvaluateVersionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	chapter, err := h.service.CancelEvaluation(ctx, projectID, req.ChapterNumber)
	if err != nil {
		replyError(c, err)
		return
	}

	dto.Success(c, dto.ToChapterResponse(chapter))
}

// ListVersions 获取章节最近一轮候选版本与评审
// @Summary 获取候选版本列表
// @Tags Writer
// @Produce json
// @Param pid path string true "项目 ID"
// @Param num path int true "章节号"
// @Success 200 {object} dto.Response[dto.VersionListResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/chapters/{num}/versions [get]
func (h *WriterHandler) ListVersions(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("pid")

	number, ok := bindChapterNumber(c)
	if !ok {
		return
	}

	versions, eval, err := h.service.ListVersions(ctx, projectID, number)
	if err != nil {
		replyError(c, err)
		return
	}

	dto.Success(c, dto.ToVersionListResponse(versions, eval))
}

// ReviewHistory 获取章节全部评审历史
// @Summary 获取评审历史
// @Tags Writer
// @Produce json
// @Param pid path string true "项目 ID"
// @Param num path int true "章节号"
// @Success 200 {object} dto.Response[dto.EvaluationListResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/chapters/{num}/reviews [get]
func (h *WriterHandler) ReviewHistory(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("pid")

	number, ok := bindChapterNumber(c)
	if !ok {
		return
	}

	evals, err := h.service.ReviewHistory(ctx, projectID, number)
	if err != nil {
		replyError(c, err)
		return
	}

	dto.Success(c, dto.ToEvaluationListResponse(evals))
}

// StopRun 请求停止当前创作运行
// @Summary 停止创作运行
// @Tags Writer
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.StopRunResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/writer/stop [post]
func (h *WriterHandler) StopRun(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("pid")

	lock, err := h.service.StopRun(ctx, projectID)
	if err != nil {
		replyError(c, err)
		return
	}

	dto.Success(c, &dto.StopRunResponse{
		RunID:   lock.RunID,
		Mode:    string(lock.Mode),
		Stopped: true,
	})
}

// RunStatus 查询当前创作运行状态
// @Summary 查询创作运行状态
// @Tags Writer
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.RunStatusResponse]
// @Router /v1/projects/{pid}/writer/status [get]
func (h *WriterHandler) RunStatus(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("pid")

	lock, stopRequested, err := h.service.RunStatus(ctx, projectID)
	if err != nil {
		replyError(c, err)
		return
	}

	dto.Success(c, dto.ToRunStatusResponse(lock, stopRequested))
}
