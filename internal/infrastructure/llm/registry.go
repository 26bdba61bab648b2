package llm

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"

	"inkflow-ai-api/internal/config"
	"inkflow-ai-api/pkg/errors"

	"github.com/cloudwego/eino/components/model"
)

// WritingModel 参与章节并发生成的写作模型
// 写作模型列表的顺序即版本槽位顺序
type WritingModel struct {
	Provider            string  `json:"provider"`
	Model               string  `json:"model"`
	Temperature         float64 `json:"temperature"`
	RevisionTemperature float64 `json:"revision_temperature"`
}

// NodeBinding 功能节点到提供商的绑定
type NodeBinding struct {
	Node     string `json:"node"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// RegistrySnapshot 注册表的只读视图
type RegistrySnapshot struct {
	DefaultProvider string         `json:"default_provider"`
	Providers       []string       `json:"providers"`
	Nodes           []NodeBinding  `json:"nodes"`
	WritingModels   []WritingModel `json:"writing_models"`
}

// Registry 提供商注册表: 功能节点与写作模型到具体提供商的解析
type Registry struct {
	factory *EinoFactory
	config  *config.LLMConfig

	mu    sync.RWMutex
	nodes map[string]string
}

// NewRegistry 创建提供商注册表
func NewRegistry(cfg *config.Config, factory *EinoFactory) *Registry {
	nodes := make(map[string]string, len(cfg.LLM.Nodes))
	for node, provider := range cfg.LLM.Nodes {
		nodes[node] = provider
	}
	return &Registry{
		factory: factory,
		config:  &cfg.LLM,
		nodes:   nodes,
	}
}

// Resolve 按提供商名称解析 ChatModel, 空名称回落到默认提供商
func (r *Registry) Resolve(ctx context.Context, provider string) (model.BaseChatModel, error) {
	return r.factory.Get(ctx, provider)
}

// ResolveNode 解析功能节点绑定的 ChatModel, 未绑定时回落到默认提供商
func (r *Registry) ResolveNode(ctx context.Context, node string) (model.BaseChatModel, error) {
	r.mu.RLock()
	provider := r.nodes[node]
	r.mu.RUnlock()

	return r.factory.Get(ctx, provider)
}

// NodeProvider 返回功能节点当前绑定的提供商名称
func (r *Registry) NodeProvider(node string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.nodes[node]; ok && p != "" {
		return p
	}
	return r.config.DefaultProvider
}

// SetNodeBinding 运行时重绑定功能节点, 提供商必须已配置
func (r *Registry) SetNodeBinding(node, provider string) error {
	if _, ok := r.config.Providers[provider]; !ok {
		return errors.ErrProviderNotFound.WithDetail(provider)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[node] = provider
	return nil
}

// WritingModels 返回写作模型清单, 顺序即版本槽位顺序
func (r *Registry) WritingModels() ([]WritingModel, error) {
	if len(r.config.WritingModels) == 0 {
		return nil, errors.New(errors.CodeInvalidParam, "no writing models configured")
	}

	models := make([]WritingModel, 0, len(r.config.WritingModels))
	for _, wm := range r.config.WritingModels {
		providerCfg, ok := r.config.Providers[wm.Provider]
		if !ok {
			return nil, errors.ErrProviderNotFound.WithDetail(wm.Provider)
		}

		temperature := wm.Temperature
		if temperature <= 0 {
			temperature = providerCfg.Temperature
		}
		revisionTemp := wm.RevisionTemperature
		if revisionTemp <= 0 {
			revisionTemp = temperature
		}

		models = append(models, WritingModel{
			Provider:            wm.Provider,
			Model:               providerCfg.Model,
			Temperature:         temperature,
			RevisionTemperature: revisionTemp,
		})
	}
	return models, nil
}

// ResolveWriting 解析写作模型的 ChatModel, revision 为真时使用重写温度
func (r *Registry) ResolveWriting(ctx context.Context, wm WritingModel, revision bool) (model.BaseChatModel, error) {
	temperature := wm.Temperature
	if revision {
		temperature = wm.RevisionTemperature
	}
	return r.factory.GetWithTemperature(ctx, wm.Provider, temperature)
}

// ProviderModel 返回提供商配置的模型名
func (r *Registry) ProviderModel(provider string) string {
	if cfg, ok := r.config.Providers[provider]; ok {
		return cfg.Model
	}
	return ""
}

// Snapshot 导出注册表的只读视图
func (r *Registry) Snapshot() RegistrySnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]string, 0, len(r.config.Providers))
	for name := range r.config.Providers {
		providers = append(providers, name)
	}
	sort.Strings(providers)

	nodes := make([]NodeBinding, 0, len(r.nodes))
	for node, provider := range r.nodes {
		nodes = append(nodes, NodeBinding{
			Node:     node,
			Provider: provider,
			Model:    r.ProviderModel(provider),
		})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Node < nodes[j].Node })

	models, _ := r.WritingModels()

	return RegistrySnapshot{
		DefaultProvider: r.config.DefaultProvider,
		Providers:       providers,
		Nodes:           nodes,
		WritingModels:   models,
	}
}

// TestProvider 对提供商发起一次最小调用验证连通性
func (r *Registry) TestProvider(ctx context.Context, provider string) (time.Duration, error) {
	chatModel, err := r.Resolve(ctx, provider)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	_, err = chatModel.Generate(ctx, []*schema.Message{
		schema.UserMessage("ping"),
	})
	if err != nil {
		return time.Since(start), errors.Wrap(err, errors.CodeLLMProviderError, "provider test call failed")
	}
	return time.Since(start), nil
}
