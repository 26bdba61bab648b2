package handler

import (
	"inkflow-ai-api/internal/domain/repository"
	"inkflow-ai-api/internal/infrastructure/llm"
	"inkflow-ai-api/internal/interfaces/http/dto"
	"inkflow-ai-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ProviderHandler 提供商注册表与系统配置处理器
type ProviderHandler struct {
	registry    *llm.Registry
	settingRepo repository.SettingRepository
}

// NewProviderHandler 创建提供商处理器
func NewProviderHandler(registry *llm.Registry, settingRepo repository.SettingRepository) *ProviderHandler {
	return &ProviderHandler{
		registry:    registry,
		settingRepo: settingRepo,
	}
}

// GetRegistry 获取提供商注册表视图
// @Summary 获取提供商注册表
// @Tags Providers
// @Produce json
// @Success 200 {object} dto.Response[dto.RegistryResponse]
// @Router /v1/providers [get]
func (h *ProviderHandler) GetRegistry(c *gin.Context) {
	dto.Success(c, dto.ToRegistryResponse(h.registry.Snapshot()))
}

// TestProvider 测试某提供商的连通性
// @Summary 测试提供商连通性
// @Tags Providers
// @Produce json
// @Param name path string true "提供商名称"
// @Success 200 {object} dto.Response[dto.TestProviderResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/providers/{name}/test [post]
func (h *ProviderHandler) TestProvider(c *gin.Context) {
	ctx := c.Request.Context()
	name := c.Param("name")

	latency, err := h.registry.TestProvider(ctx, name)
	if err != nil {
		logger.Warn(ctx, "provider test failed", "provider", name, "error", err)
		replyError(c, err)
		return
	}

	dto.Success(c, &dto.TestProviderResponse{
		Provider:  name,
		Model:     h.registry.ProviderModel(name),
		LatencyMs: latency.Milliseconds(),
	})
}

// SetNodeBinding 修改功能节点的提供商绑定
// @Summary 修改节点提供商绑定
// @Tags Providers
// @Accept json
// @Produce json
// @Param node path string true "功能节点"
// @Param body body dto.SetNodeBindingRequest true "目标提供商"
// @Success 200 {object} dto.Response[dto.RegistryResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/providers/nodes/{node} [put]
func (h *ProviderHandler) SetNodeBinding(c *gin.Context) {
	node := c.Param("node")

	var req dto.SetNodeBindingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if err := h.registry.SetNodeBinding(node, req.Provider); err != nil {
		replyError(c, err)
		return
	}

	dto.Success(c, dto.ToRegistryResponse(h.registry.Snapshot()))
}

// ListSettings 按前缀列出系统配置项
// @Summary 列出系统配置项
// @Tags Settings
// @Produce json
// @Param prefix query string false "key 前缀" default(writer.)
// @Success 200 {object} dto.Response[dto.SettingListResponse]
// @Router /v1/settings [get]
func (h *ProviderHandler) ListSettings(c *gin.Context) {
	ctx := c.Request.Context()

	prefix := c.DefaultQuery("prefix", "writer.")
	settings, err := h.settingRepo.List(ctx, prefix)
	if err != nil {
		logger.Error(ctx, "failed to list settings", err, "prefix", prefix)
		dto.InternalError(c, "failed to list settings")
		return
	}

	dto.Success(c, dto.ToSettingListResponse(settings))
}

// SetSetting 写入单个系统配置项
// 分数线与重写轮数等配置在下一次生成调用开始时生效
// @Summary 写入系统配置项
// @Tags Settings
// @Accept json
// @Produce json
// @Param key path string true "配置项 key"
// @Param body body dto.SetSettingRequest true "配置值"
// @Success 200 {object} dto.Response[dto.SettingResponse]
// @Router /v1/settings/{key} [put]
func (h *ProviderHandler) SetSetting(c *gin.Context) {
	ctx := c.Request.Context()
	key := c.Param("key")

	var req dto.SetSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if err := h.settingRepo.Set(ctx, key, req.Value); err != nil {
		logger.Error(ctx, "failed to set setting", err, "key", key)
		dto.InternalError(c, "failed to set setting")
		return
	}

	setting, err := h.settingRepo.Get(ctx, key)
	if err != nil {
		replyError(c, err)
		return
	}

	dto.Success(c, dto.ToSettingResponse(setting))
}
