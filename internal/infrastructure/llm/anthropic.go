package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/docqa/backend/internal/domain/qa"
	"github.com/docqa/backend/internal/infrastructure/log"
)

// DefaultAnthropicModel 未配置模型时使用
const DefaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicGenerator 基于 Claude Messages API 的回答生成
type AnthropicGenerator struct {
	opts   Options
	logger *slog.Logger
}

var _ qa.Generator = (*AnthropicGenerator)(nil)

// NewAnthropicGenerator 创建 Claude 回答生成服务
func NewAnthropicGenerator(opts Options) *AnthropicGenerator {
	if opts.Model == "" {
		opts.Model = DefaultAnthropicModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}
	return &AnthropicGenerator{
		opts:   opts,
		logger: log.NewModuleLogger("llm", "anthropic"),
	}
}

// Generate 实现 Generator 接口
func (g *AnthropicGenerator) Generate(ctx context.Context, req qa.GenerateRequest) (string, error) {
	apiKey, err := resolveKey(ctx, g.opts.Keys, g.opts.KeyName)
	if err != nil {
		return "", err
	}

	// 客户端很轻，每次调用按当前 Key 创建
	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if g.opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(g.opts.BaseURL))
	}
	client := anthropic.NewClient(clientOpts...)

	prompt := BuildPrompt(g.opts.System, req)
	messages := make([]anthropic.MessageParam, 0, len(prompt.Turns))
	for _, t := range prompt.Turns {
		block := anthropic.NewTextBlock(t.Content)
		if t.Role == RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(g.opts.Model),
		MaxTokens:   int64(g.opts.MaxTokens),
		System:      []anthropic.TextBlockParam{{Text: prompt.System}},
		Messages:    messages,
		Temperature: anthropic.Float(g.opts.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("claude request failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	answer, err := nonEmpty(sb.String())
	if err != nil {
		return "", err
	}
	g.logger.Info("Claude completion successful",
		"model", g.opts.Model,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)
	return answer, nil
}
