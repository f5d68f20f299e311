package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/docqa/backend/internal/domain/qa"
	"github.com/docqa/backend/internal/infrastructure/log"
)

// Client OpenAI 兼容的 Chat 客户端
type Client struct {
	baseURL     string
	model       string
	system      string
	temperature float64
	maxTokens   int
	keys        KeySource
	keyName     string
	httpClient  *http.Client
	logger      *slog.Logger
}

var _ qa.Generator = (*Client)(nil)

// ChatRequest Chat API 请求
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Message Chat 消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse Chat API 响应
type ChatResponse struct {
	ID      string `json:"id,omitempty"`
	Model   string `json:"model,omitempty"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Options 生成服务通用参数
type Options struct {
	BaseURL     string
	Model       string
	System      string
	Temperature float64
	MaxTokens   int
	Keys        KeySource
	KeyName     string
}

// NewClient 创建 Chat 客户端
func NewClient(opts Options) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		model:       opts.Model,
		system:      opts.System,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		keys:        opts.Keys,
		keyName:     opts.KeyName,
		// 超时由调用方的 context 控制
		httpClient: &http.Client{},
		logger:     log.NewModuleLogger("llm", "client"),
	}
}

// Generate 实现 Generator 接口
func (c *Client) Generate(ctx context.Context, req qa.GenerateRequest) (string, error) {
	apiKey, err := resolveKey(ctx, c.keys, c.keyName)
	if err != nil {
		return "", err
	}

	prompt := BuildPrompt(c.system, req)
	messages := make([]Message, 0, len(prompt.Turns)+1)
	messages = append(messages, Message{Role: "system", Content: prompt.System})
	for _, t := range prompt.Turns {
		messages = append(messages, Message{Role: string(t.Role), Content: t.Content})
	}

	jsonData, err := json.Marshal(ChatRequest{
		Messages:    messages,
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", apiKey))

	c.logger.Debug("Sending chat request",
		"url", url,
		"model", c.model,
		"context_passages", len(req.Context),
		"history_turns", len(req.History),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("LLM API request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := c.readResponseBody(resp)
		return "", fmt.Errorf("LLM API returned status %d: %s", resp.StatusCode, body)
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode LLM response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("LLM API returned no choices")
	}

	answer, err := nonEmpty(chatResp.Choices[0].Message.Content)
	if err != nil {
		return "", err
	}

	c.logger.Info("Chat completion successful",
		"model", c.model,
		"tokens", chatResp.Usage.TotalTokens,
		"duration", time.Since(start),
	)
	return answer, nil
}

// readResponseBody 读取错误响应体，最多 4KB
func (c *Client) readResponseBody(resp *http.Response) (string, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
