// Package handler 提供 HTTP 请求处理器
package handler

import (
	"inkflow-ai-api/internal/domain/entity"
	"inkflow-ai-api/internal/domain/repository"
	"inkflow-ai-api/internal/interfaces/http/dto"
	"inkflow-ai-api/pkg/errors"
	"inkflow-ai-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ProjectHandler 项目处理器
type ProjectHandler struct {
	projectRepo repository.ProjectRepository
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(projectRepo repository.ProjectRepository) *ProjectHandler {
	return &ProjectHandler{
		projectRepo: projectRepo,
	}
}

// ListProjects 获取项目列表
// @Summary 获取项目列表
// @Tags Projects
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Param status query string false "按状态过滤"
// @Success 200 {object} dto.Response[dto.ProjectListResponse]
// @Router /v1/projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	ctx := c.Request.Context()
	pageReq := dto.BindPage(c)

	var filter *repository.ProjectFilter
	if status := c.Query("status"); status != "" {
		filter = &repository.ProjectFilter{Status: entity.ProjectStatus(status)}
	}

	result, err := h.projectRepo.List(ctx, filter, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		logger.Error(ctx, "failed to list projects", err)
		dto.InternalError(c, "failed to list projects")
		return
	}

	resp := dto.ToProjectListResponse(result.Items)
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, resp, meta)
}

// CreateProject 创建项目
// @Summary 创建项目
// @Tags Projects
// @Accept json
// @Produce json
// @Param body body dto.CreateProjectRequest true "项目信息"
// @Success 201 {object} dto.Response[dto.ProjectResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	project := req.ToProjectEntity()
	if err := h.projectRepo.Create(ctx, project); err != nil {
		logger.Error(ctx, "failed to create project", err, "title", req.Title)
		dto.InternalError(c, "failed to create project")
		return
	}

	dto.Created(c, dto.ToProjectResponse(project))
}

// GetProject 获取项目详情
// @Summary 获取项目详情
// @Tags Projects
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.ProjectResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("pid")

	project, err := h.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		replyError(c, err)
		return
	}
	if project == nil {
		replyError(c, errors.ErrProjectNotFound)
		return
	}

	dto.Success(c, dto.ToProjectResponse(project))
}

// UpdateProject 更新项目
// @Summary 更新项目
// @Tags Projects
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.UpdateProjectRequest true "更新内容"
// @Success 200 {object} dto.Response[dto.ProjectResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid} [put]
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("pid")

	var req dto.UpdateProjectRequest
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

	req.ApplyToProject(project)
	if err := h.projectRepo.Update(ctx, project); err != nil {
		logger.Error(ctx, "failed to update project", err, "project_id", projectID)
		dto.InternalError(c, "failed to update project")
		return
	}

	dto.Success(c, dto.ToProjectResponse(project))
}

// DeleteProject 删除项目
// @Summary 删除项目
// @Tags Projects
// @Param pid path string true "项目 ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid} [delete]
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("pid")

	project, err := h.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		replyError(c, err)
		return
	}
	if project == nil {
		replyError(c, errors.ErrProjectNotFound)
		return
	}

	if err := h.projectRepo.Delete(ctx, projectID); err != nil {
		logger.Error(ctx, "failed to delete project", err, "project_id", projectID)
		dto.InternalError(c, "failed to delete project")
		return
	}

	dto.NoContent(c)
}
