package llm

import (
	"github.com/docqa/backend/internal/domain/qa"
	"github.com/docqa/backend/internal/infrastructure/config"
)

// NewGenerator 按配置创建回答生成服务
func NewGenerator(cfg *config.Config, keys KeySource) qa.Generator {
	opts := Options{
		BaseURL:     cfg.LLM.URL,
		Model:       cfg.LLM.Model,
		System:      cfg.Prompts.System,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Keys:        keys,
		KeyName:     cfg.LLM.SecretName,
	}

	switch cfg.LLM.Provider {
	case "anthropic":
		// 默认 URL 指向 OpenAI，此处交给 SDK 决定
		if opts.BaseURL == config.DefaultLLMURL {
			opts.BaseURL = ""
		}
		return NewAnthropicGenerator(opts)
	case "gemini":
		return NewGeminiGenerator(opts)
	default:
		return NewClient(opts)
	}
}
