package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/docqa/backend/internal/domain/document"
	"github.com/docqa/backend/internal/infrastructure/log"
	"google.golang.org/genai"
)

// GeminiEmbedder 基于 Gemini API 的向量化
// API Key 变化时重新创建底层客户端
type GeminiEmbedder struct {
	model     string
	dimension int
	keys      KeySource
	keyName   string

	mu     sync.Mutex
	client *genai.Client
	key    string
	logger *slog.Logger
}

var _ document.Embedder = (*GeminiEmbedder)(nil)

// NewGeminiEmbedder 创建 Gemini 向量化服务
func NewGeminiEmbedder(model string, dimension int, keys KeySource, keyName string) *GeminiEmbedder {
	if model == "" {
		model = "text-embedding-004"
	}
	return &GeminiEmbedder{
		model:     model,
		dimension: dimension,
		keys:      keys,
		keyName:   keyName,
		logger:    log.NewModuleLogger("embedding", "gemini"),
	}
}

// Dimension 实现 Embedder 接口
func (g *GeminiEmbedder) Dimension() int {
	return g.dimension
}

func (g *GeminiEmbedder) getClient(ctx context.Context) (*genai.Client, error) {
	apiKey, err := g.keys.Get(ctx, g.keyName)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil && g.key == apiKey {
		return g.client, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}
	g.client = client
	g.key = apiKey
	g.logger.Info("Gemini embedding client initialized", "model", g.model, "api_key", log.MaskSecret(apiKey))
	return client, nil
}

// Embed 批量向量化
func (g *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	var cfg *genai.EmbedContentConfig
	if g.dimension > 0 {
		dim := int32(g.dimension)
		cfg = &genai.EmbedContentConfig{OutputDimensionality: &dim}
	}

	result, err := client.Models.EmbedContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}
	if result == nil || len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings from gemini", len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, e := range result.Embeddings {
		if e == nil {
			return nil, fmt.Errorf("empty embedding at %d", i)
		}
		vectors[i] = e.Values
	}
	return vectors, nil
}
