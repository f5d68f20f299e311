// Package embedding 提供文本向量化服务的实现
package embedding

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

	"github.com/docqa/backend/internal/domain/document"
	"github.com/docqa/backend/internal/infrastructure/log"
)

// KeySource 按名称读取 API Key，每次调用都重新读取以支持运行时更新
type KeySource interface {
	Get(ctx context.Context, name string) (string, error)
}

// Client OpenAI 兼容的 Embedding API 客户端
type Client struct {
	baseURL    string
	model      string
	keys       KeySource
	keyName    string
	batchSize  int
	dimension  int
	maxRetries int
	backoff    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

var _ document.Embedder = (*Client)(nil)

// ClientOptions 客户端参数
type ClientOptions struct {
	BaseURL   string
	Model     string
	Keys      KeySource
	KeyName   string
	BatchSize int
	Dimension int
}

// NewClient 创建 Embedding 客户端
func NewClient(opts ClientOptions) *Client {
	batch := opts.BatchSize
	if batch <= 0 || batch > 2048 {
		// OpenAI embeddings API 每次最多 2048 个文本
		batch = 2048
	}
	return &Client{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		model:      opts.Model,
		keys:       opts.Keys,
		keyName:    opts.KeyName,
		batchSize:  batch,
		dimension:  opts.Dimension,
		maxRetries: 3,
		backoff:    time.Second,
		httpClient: &http.Client{},
		logger:     log.NewModuleLogger("embedding", "client"),
	}
}

// buildEmbeddingURL 构建 Embedding API URL
// 支持 host、host/v1 和完整路径三种写法
func buildEmbeddingURL(baseURL string) string {
	switch {
	case strings.Contains(baseURL, "/embeddings"):
		return baseURL
	case strings.HasSuffix(baseURL, "/v1"):
		return baseURL + "/embeddings"
	default:
		return baseURL + "/v1/embeddings"
	}
}

// EmbeddingRequest Embedding 请求
type EmbeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

// EmbeddingResponse Embedding 响应
type EmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// Dimension 实现 Embedder 接口
func (c *Client) Dimension() int {
	return c.dimension
}

// Embed 批量向量化文本
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts cannot be empty")
	}

	apiKey := ""
	if c.keys != nil {
		key, err := c.keys.Get(ctx, c.keyName)
		if err == nil {
			apiKey = key
		}
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += c.batchSize {
		end := min(i+c.batchSize, len(texts))

		vectors, err := c.embedWithRetry(ctx, texts[i:end], apiKey)
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch %d: %w", i/c.batchSize+1, err)
		}
		all = append(all, vectors...)
	}
	return all, nil
}

// embedWithRetry 带重试的单批次请求，递增退避，服务端 4xx 不重试
func (c *Client) embedWithRetry(ctx context.Context, texts []string, apiKey string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}

		vectors, retryable, err := c.embedOnce(ctx, texts, apiKey)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			break
		}
		c.logger.WarnContext(ctx, "Embedding request failed, retrying",
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"error", err,
		)
	}
	return nil, lastErr
}

func (c *Client) embedOnce(ctx context.Context, texts []string, apiKey string) ([][]float32, bool, error) {
	body, err := json.Marshal(EmbeddingRequest{Model: c.model, Input: texts, Dimensions: c.dimension})
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := buildEmbeddingURL(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	c.logger.DebugContext(ctx, "Sending embedding request",
		"url", url,
		"batch_size", len(texts),
		"model", c.model,
		"api_key", log.MaskSecret(apiKey),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(msg))
	}

	var er EmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, false, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(er.Data) != len(texts) {
		return nil, false, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(er.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range er.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, false, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, false, nil
}
