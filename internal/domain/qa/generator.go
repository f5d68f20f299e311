// Package qa 定义问答生成相关的领域接口
package qa

import (
	"context"
	"errors"

	"github.com/docqa/backend/internal/domain/session"
)

var (
	// ErrGenerationFailure 回答生成失败或超时
	ErrGenerationFailure = errors.New("generation failure")
	// ErrEmptyQuestion 问题为空
	ErrEmptyQuestion = errors.New("question is required")
	// ErrMissingCredential 未配置生成服务的 API Key
	ErrMissingCredential = errors.New("api key not configured")
)

// GenerateRequest 生成请求
type GenerateRequest struct {
	Question string
	Context  []string       // 检索到的上下文片段，按相关度排序
	History  []session.Turn // 之前的对话，摘要和 FAQ 时为空
}

// Generator 回答生成服务
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Answer 问答结果
type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"sources,omitempty"`
}

// Source 回答引用的分块
type Source struct {
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
	Preview    string  `json:"preview"`
}
