package handler

import (
	"inkflow-ai-api/internal/domain/entity"
	"inkflow-ai-api/internal/domain/repository"
	"inkflow-ai-api/internal/interfaces/http/dto"
	"inkflow-ai-api/pkg/errors"
	"inkflow-ai-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ChapterHandler 章节查询处理器
type ChapterHandler struct {
	chapterRepo repository.ChapterRepository
}

// NewChapterHandler 创建章节查询处理器
func NewChapterHandler(chapterRepo repository.ChapterRepository) *ChapterHandler {
	return &ChapterHandler{
		chapterRepo: chapterRepo,
	}
}

// ListChapters 获取项目章节列表
// @Summary 获取项目章节列表
// @Tags Chapters
// @Produce json
// @Param pid path string true "项目 ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Param status query string false "按状态过滤"
// @Success 200 {object} dto.Response[dto.ChapterListResponse]
// @Router /v1/projects/{pid}/chapters [get]
func (h *ChapterHandler) ListChapters(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("pid")
	pageReq := dto.BindPage(c)

	var filter *repository.ChapterFilter
	if status := c.Query("status"); status != "" {
		filter = &repository.ChapterFilter{Status: entity.ChapterStatus(status)}
	}

	result, err := h.chapterRepo.ListByProject(ctx, projectID, filter, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		logger.Error(ctx, "failed to list chapters", err, "project_id", projectID)
		dto.InternalError(c, "failed to list chapters")
		return
	}

	resp := dto.ToChapterListResponse(result.Items)
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, resp, meta)
}

// GetChapter 获取章节详情 (含正文)
// @Summary 获取章节详情
// @Tags Chapters
// @Produce json
// @Param pid path string true "项目 ID"
// @Param num path int true "章节号"
// @Success 200 {object} dto.Response[dto.ChapterResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/chapters/{num} [get]
func (h *ChapterHandler) GetChapter(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("pid")

	number, ok := bindChapterNumber(c)
	if !ok {
		return
	}

	chapter, err := h.chapterRepo.GetByNumber(ctx, projectID, number)
	if err != nil {
		replyError(c, err)
		return
	}
	if chapter == nil {
		replyError(c, errors.ErrChapterNotFound)
		return
	}

	dto.Success(c, dto.ToChapterResponse(chapter))
}
