package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/docqa/backend/internal/domain/qa"
	"github.com/docqa/backend/internal/infrastructure/log"
	"google.golang.org/genai"
)

// DefaultGeminiModel 未配置模型时使用
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiGenerator 基于 Gemini API 的回答生成
// API Key 变化时重新创建底层客户端
type GeminiGenerator struct {
	opts Options

	mu     sync.Mutex
	client *genai.Client
	key    string
	logger *slog.Logger
}

var _ qa.Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator 创建 Gemini 回答生成服务
func NewGeminiGenerator(opts Options) *GeminiGenerator {
	if opts.Model == "" {
		opts.Model = DefaultGeminiModel
	}
	return &GeminiGenerator{
		opts:   opts,
		logger: log.NewModuleLogger("llm", "gemini"),
	}
}

func (g *GeminiGenerator) getClient(ctx context.Context) (*genai.Client, error) {
	apiKey, err := resolveKey(ctx, g.opts.Keys, g.opts.KeyName)
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
	g.logger.Info("Gemini client initialized", "model", g.opts.Model, "api_key", log.MaskSecret(apiKey))
	return client, nil
}

// Generate 实现 Generator 接口
func (g *GeminiGenerator) Generate(ctx context.Context, req qa.GenerateRequest) (string, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return "", err
	}

	prompt := BuildPrompt(g.opts.System, req)
	contents := make([]*genai.Content, 0, len(prompt.Turns))
	for _, t := range prompt.Turns {
		role := genai.RoleUser
		if t.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Content, genai.Role(role)))
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(g.opts.Temperature)),
		SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
	}
	if g.opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(g.opts.MaxTokens)
	}

	resp, err := client.Models.GenerateContent(ctx, g.opts.Model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil {
				sb.WriteString(part.Text)
			}
		}
		// 只取第一个候选
		break
	}
	return nonEmpty(sb.String())
}
