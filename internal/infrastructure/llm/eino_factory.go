package llm

import (
	"context"
	"fmt"
	"sync"

	"inkflow-ai-api/internal/config"
	"inkflow-ai-api/pkg/errors"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// EinoFactory 管理多个 Eino ChatModel 客户端实例
type EinoFactory struct {
	config *config.LLMConfig
	models map[string]model.BaseChatModel
	mu     sync.RWMutex
}

// NewEinoFactory 创建 Eino LLM 工厂
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return &EinoFactory{
		config: &cfg.LLM,
		models: make(map[string]model.BaseChatModel),
	}
}

// Get 获取指定名称的 ChatModel，如果未指定则返回默认客户端
func (f *EinoFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	if name == "" {
		name = f.config.DefaultProvider
	}

	providerCfg, ok := f.config.Providers[name]
	if !ok {
		return nil, errors.ErrProviderNotFound.WithDetail(name)
	}
	return f.build(ctx, name, providerCfg.Temperature)
}

// GetWithTemperature 获取指定温度的 ChatModel, 写作初稿与重写使用不同温度
func (f *EinoFactory) GetWithTemperature(ctx context.Context, name string, temperature float64) (model.BaseChatModel, error) {
	if name == "" {
		name = f.config.DefaultProvider
	}

	if _, ok := f.config.Providers[name]; !ok {
		return nil, errors.ErrProviderNotFound.WithDetail(name)
	}
	return f.build(ctx, name, temperature)
}

// build 惰性构建并缓存 ChatModel, 温度不同的实例分开缓存
func (f *EinoFactory) build(ctx context.Context, name string, temperature float64) (model.BaseChatModel, error) {
	key := fmt.Sprintf("%s@%.2f", name, temperature)

	f.mu.RLock()
	m, ok := f.models[key]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// 再次检查防止竞态
	if m, ok = f.models[key]; ok {
		return m, nil
	}

	providerCfg := f.config.Providers[name]

	// 使用 Eino 的 OpenAI 适配器
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      providerCfg.APIKey,
		BaseURL:     providerCfg.BaseURL,
		Model:       providerCfg.Model,
		MaxTokens:   &providerCfg.MaxTokens,
		Temperature: ptrFloat32(float32(temperature)),
		Timeout:     providerCfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", name, err)
	}

	f.models[key] = chatModel
	return chatModel, nil
}

// Default 返回默认 ChatModel
func (f *EinoFactory) Default(ctx context.Context) (model.BaseChatModel, error) {
	return f.Get(ctx, "")
}

func ptrFloat32(f float32) *float32 {
	return &f
}
