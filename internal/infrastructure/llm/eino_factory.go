// Package llm 封装 LLM 调用边界：按提供商惰性构建 Eino ChatModel 并提供单次补全接口
package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"manuscript-editor-api/internal/config"
)

// lazyModel 首次使用时构建，构建失败（多为配置错误）同样缓存
type lazyModel struct {
	once  sync.Once
	model model.BaseChatModel
	err   error
}

// EinoFactory 每个配置的提供商对应一个 OpenAI 兼容的 ChatModel
type EinoFactory struct {
	cfg    config.LLMConfig
	models map[string]*lazyModel
}

// NewEinoFactory 创建工厂，不发起任何网络请求
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	models := make(map[string]*lazyModel, len(cfg.LLM.Providers))
	for name := range cfg.LLM.Providers {
		models[name] = &lazyModel{}
	}
	return &EinoFactory{cfg: cfg.LLM, models: models}
}

// ProviderName 空值取默认提供商
func (f *EinoFactory) ProviderName(name string) string {
	if name == "" {
		return f.cfg.DefaultProvider
	}
	return name
}

// Provider 返回提供商配置
func (f *EinoFactory) Provider(name string) (config.ProviderConfig, bool) {
	p, ok := f.cfg.Providers[f.ProviderName(name)]
	return p, ok
}

// Get 返回提供商的 ChatModel，name 为空时取默认提供商
func (f *EinoFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	name = f.ProviderName(name)
	lm, ok := f.models[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not found in LLM config", name)
	}

	lm.once.Do(func() {
		p := f.cfg.Providers[name]
		if p.APIKey == "" {
			lm.err = fmt.Errorf("provider %q has no api_key", name)
			return
		}
		lm.model, lm.err = openai.NewChatModel(ctx, chatModelConfig(p))
		if lm.err != nil {
			lm.err = fmt.Errorf("failed to create chat model for %s: %w", name, lm.err)
		}
	})
	return lm.model, lm.err
}

// chatModelConfig 零值的 max_tokens 与 temperature 不下发，由请求级参数决定
func chatModelConfig(p config.ProviderConfig) *openai.ChatModelConfig {
	c := &openai.ChatModelConfig{
		APIKey:  p.APIKey,
		BaseURL: p.BaseURL,
		Model:   p.Model,
		Timeout: p.Timeout,
	}
	if p.MaxTokens > 0 {
		maxTokens := p.MaxTokens
		c.MaxTokens = &maxTokens
	}
	if p.Temperature > 0 {
		temp := float32(p.Temperature)
		c.Temperature = &temp
	}
	return c
}
