package embedding

import (
	"github.com/docqa/backend/internal/domain/document"
	"github.com/docqa/backend/internal/infrastructure/config"
)

// NewEmbedder 按配置创建向量化服务
func NewEmbedder(cfg *config.Config, keys KeySource) document.Embedder {
	ec := cfg.Embedding
	dim := cfg.RAG.EmbeddingDimension

	var e document.Embedder
	switch ec.Provider {
	case "openai":
		e = NewClient(ClientOptions{
			BaseURL:   ec.URL,
			Model:     ec.Model,
			Keys:      keys,
			KeyName:   ec.SecretName,
			BatchSize: ec.BatchSize,
			Dimension: dim,
		})
	case "gemini":
		e = NewGeminiEmbedder(ec.Model, dim, keys, ec.SecretName)
	default:
		e = NewLocalEmbedder(dim)
	}
	return WithRateLimit(e, ec.RateLimit, ec.Burst)
}
