package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/docqa/backend/internal/domain/document"
)

// DefaultLocalDimension 本地向量化默认维度
const DefaultLocalDimension = 256

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// LocalEmbedder 离线的词袋哈希向量化，无需外部服务
// 每个词按 FNV 哈希落到固定维度上，带符号位以减少碰撞偏差，结果做 L2 归一化
type LocalEmbedder struct {
	dimension int
}

var _ document.Embedder = (*LocalEmbedder)(nil)

// NewLocalEmbedder 创建本地向量化服务
func NewLocalEmbedder(dimension int) *LocalEmbedder {
	if dimension <= 0 {
		dimension = DefaultLocalDimension
	}
	return &LocalEmbedder{dimension: dimension}
}

// Dimension 实现 Embedder 接口
func (e *LocalEmbedder) Dimension() int {
	return e.dimension
}

// Embed 实现 Embedder 接口
func (e *LocalEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *LocalEmbedder) vector(text string) []float32 {
	vec := make([]float32, e.dimension)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dimension))
		if sum&(1<<63) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}
