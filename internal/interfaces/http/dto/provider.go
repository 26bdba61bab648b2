package dto

import (
	"time"

	"inkflow-ai-api/internal/domain/entity"
	"inkflow-ai-api/internal/infrastructure/llm"
)

// SetNodeBindingRequest 修改功能节点的提供商绑定请求
type SetNodeBindingRequest struct {
	Provider string `json:"provider" binding:"required,max=64"`
}

// TestProviderResponse 提供商连通性测试响应
type TestProviderResponse struct {
	Provider  string `json:"provider"`
	Model     string `json:"model,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// SetSettingRequest 写入系统配置项请求
type SetSettingRequest struct {
	Value string `json:"value" binding:"required,max=4096"`
}

// SettingResponse 系统配置项响应
type SettingResponse struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Remark    string    `json:"remark,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SettingListResponse 系统配置项列表响应
type SettingListResponse struct {
	Settings []*SettingResponse `json:"settings"`
}

// RegistryResponse 提供商注册表只读视图响应
type RegistryResponse struct {
	DefaultProvider string             `json:"default_provider"`
	Providers       []string           `json:"providers"`
	Nodes           []llm.NodeBinding  `json:"nodes"`
	WritingModels   []llm.WritingModel `json:"writing_models"`
}

// ToRegistryResponse 将注册表快照转换为响应 DTO
func ToRegistryResponse(snap llm.RegistrySnapshot) *RegistryResponse {
	return &RegistryResponse{
		DefaultProvider: snap.DefaultProvider,
		Providers:       snap.Providers,
		Nodes:           snap.Nodes,
		WritingModels:   snap.WritingModels,
	}
}

// ToSettingResponse 将配置项实体转换为响应 DTO
func ToSettingResponse(s *entity.SystemSetting) *SettingResponse {
	if s == nil {
		return nil
	}
	return &SettingResponse{
		Key:       s.Key,
		Value:     s.Value,
		Remark:    s.Remark,
		UpdatedAt: s.UpdatedAt,
	}
}

// ToSettingListResponse 将配置项列表转换为响应 DTO
func ToSettingListResponse(settings []*entity.SystemSetting) *SettingListResponse {
	resp := &SettingListResponse{
		Settings: make([]*SettingResponse, 0, len(settings)),
	}
	for _, s := range settings {
		resp.Settings = append(resp.Settings, ToSettingResponse(s))
	}
	return resp
}
