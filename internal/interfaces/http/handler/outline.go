package handler

import (
	"context"

	"inkflow-ai-api/internal/domain/entity"
	"inkflow-ai-api/internal/domain/repository"
	"inkflow-ai-api/internal/interfaces/http/dto"
	"inkflow-ai-api/pkg/errors"
	"inkflow-ai-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// OutlineHandler 章节大纲处理器
type OutlineHandler struct {
	outlineRepo repository.OutlineRepository
	projectRepo repository.ProjectRepository
	tx          repository.Transactor
}

// NewOutlineHandler 创建章节大纲处理器
func NewOutlineHandler(outlineRepo repository.OutlineRepository, projectRepo repository.ProjectRepository, tx repository.Transactor) *OutlineHandler {
	return &OutlineHandler{
		outlineRepo: outlineRepo,
		projectRepo: projectRepo,
		tx:          tx,
	}
}

// ListOutlines 获取项目大纲列表
// @Summary 获取项目大纲列表
// @Tags Outlines
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.OutlineListResponse]
// @Router /v1/projects/{pid}/outlines [get]
func (h *OutlineHandler) ListOutlines(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("pid")

	outlines, err := h.outlineRepo.ListByProject(ctx, projectID)
	if err != nil {
		logger.Error(ctx, "failed to list outlines", err, "project_id", projectID)
		dto.InternalError(c, "failed to list outlines")
		return
	}

	dto.Success(c, dto.ToOutlineListResponse(outlines))
}

// CreateOutlines 批量创建章节大纲
// 同一章节号已存在大纲时覆盖其内容, 整批在一个事务中提交
// @Summary 批量创建章节大纲
// @Tags Outlines
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.CreateOutlinesRequest true "大纲列表"
// @Success 201 {object} dto.Response[dto.OutlineListResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/outlines [post]
func (h *OutlineHandler) CreateOutlines(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("pid")

	var req dto.CreateOutlinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	project, err := h.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		replyError(c, err)
		return
	}
	if project == nil {
		replyError(c, errors.ErrProjectNotFound)
		return
	}

	created := make([]*entity.ChapterOutline, 0, len(req.Outlines))
	err = h.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		for i := range req.Outlines {
			item := &req.Outlines[i]

			existing, err := h.outlineRepo.GetByNumber(txCtx, projectID, item.ChapterNumber)
			if err != nil {
				return err
			}
			if existing != nil {
				existing.Title = item.Title
				existing.Content = item.Content
				existing.KeyEvents = item.KeyEvents
				if err := h.outlineRepo.Update(txCtx, existing); err != nil {
					return err
				}
				created = append(created, existing)
				continue
			}

			outline := item.ToOutlineEntity(projectID)
			if err := h.outlineRepo.Create(txCtx, outline); err != nil {
				return err
			}
			created = append(created, outline)
		}
		return nil
	})
	if err != nil {
		logger.Error(ctx, "failed to save outlines", err, "project_id", projectID)
		dto.InternalError(c, "failed to save outlines")
		return
	}

	dto.Created(c, dto.ToOutlineListResponse(created))
}

// UpdateOutline 更新指定章节的大纲
// @Summary 更新章节大纲
// @Tags Outlines
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param num path int true "章节号"
// @Param body body dto.UpdateOutlineRequest true "更新内容"
// @Success 200 {object} dto.Response[dto.OutlineResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/outlines/{num} [put]
func (h *OutlineHandler) UpdateOutline(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("pid")

	number, ok := bindChapterNumber(c)
	if !ok {
		return
	}

	var req dto.UpdateOutlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	outline, err := h.outlineRepo.GetByNumber(ctx, projectID, number)
	if err != nil {
		replyError(c, err)
		return
	}
	if outline == nil {
		replyError(c, errors.ErrOutlineNotFound)
		return
	}

	req.ApplyToOutline(outline)
	if err := h.outlineRepo.Update(ctx, outline); err != nil {
		logger.Error(ctx, "failed to update outline", err, "project_id", projectID, "chapter_number", number)
		dto.InternalError(c, "failed to update outline")
		return
	}

	dto.Success(c, dto.ToOutlineResponse(outline))
}

// DeleteOutline 删除指定章节的大纲
// @Summary 删除章节大纲
// @Tags Outlines
// @Param pid path string true "项目 ID"
// @Param num path int true "章节号"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/outlines/{num} [delete]
func (h *OutlineHandler) DeleteOutline(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("pid")

	number, ok := bindChapterNumber(c)
	if !ok {
		return
	}

	outline, err := h.outlineRepo.GetByNumber(ctx, projectID, number)
	if err != nil {
		replyError(c, err)
		return
	}
	if outline == nil {
		replyError(c, errors.ErrOutlineNotFound)
		return
	}

	if err := h.outlineRepo.Delete(ctx, outline.ID); err != nil {
		logger.Error(ctx, "failed to delete outline", err, "project_id", projectID, "chapter_number", number)
		dto.InternalError(c, "failed to delete outline")
		return
	}

	dto.NoContent(c)
}
