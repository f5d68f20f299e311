// Package vector 提供单文档向量索引的构建和检索
package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/docqa/backend/internal/domain/document"
)

// embedBatchSize 构建时每次调用 Embedder 的分块数，每次调用单独计时
const embedBatchSize = 64

// embedChunks 向量化全部分块并校验结果
// 期望维度取 Embedder.Dimension()，为 0 时以第一个向量为准
func embedChunks(ctx context.Context, chunks []document.Chunk, embedder document.Embedder, timeout time.Duration) ([][]float32, int, error) {
	dim := embedder.Dimension()
	vectors := make([][]float32, 0, len(chunks))

	for i := 0; i < len(chunks); i += embedBatchSize {
		end := min(i+embedBatchSize, len(chunks))
		texts := make([]string, 0, end-i)
		for _, c := range chunks[i:end] {
			texts = append(texts, c.Text)
		}

		batch, err := embedWithTimeout(ctx, embedder, texts, timeout)
		if err != nil {
			return nil, 0, err
		}
		if len(batch) != len(texts) {
			return nil, 0, fmt.Errorf("%w: expected %d vectors, got %d", document.ErrEmbeddingFailure, len(texts), len(batch))
		}
		for j, v := range batch {
			if dim == 0 {
				dim = len(v)
			}
			if err := checkVector(v, dim); err != nil {
				return nil, 0, fmt.Errorf("%w: chunk %d: %v", document.ErrEmbeddingFailure, i+j, err)
			}
		}
		vectors = append(vectors, batch...)
	}
	return vectors, dim, nil
}

// embedQuery 向量化查询文本
func embedQuery(ctx context.Context, embedder document.Embedder, text string, dim int, timeout time.Duration) ([]float32, error) {
	out, err := embedWithTimeout(ctx, embedder, []string{text}, timeout)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%w: expected 1 vector, got %d", document.ErrEmbeddingFailure, len(out))
	}
	if err := checkVector(out[0], dim); err != nil {
		return nil, fmt.Errorf("%w: query: %v", document.ErrEmbeddingFailure, err)
	}
	return out[0], nil
}

func embedWithTimeout(ctx context.Context, embedder document.Embedder, texts []string, timeout time.Duration) ([][]float32, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	out, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", document.ErrEmbeddingFailure, err)
	}
	return out, nil
}

func checkVector(v []float32, dim int) error {
	if len(v) == 0 {
		return fmt.Errorf("empty vector")
	}
	if len(v) != dim {
		return fmt.Errorf("dimension %d, expected %d", len(v), dim)
	}
	for _, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return fmt.Errorf("vector contains NaN or Inf")
		}
	}
	return nil
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

// cosine 余弦相似度，任一向量为零向量时返回 0
func cosine(a []float32, an float64, b []float32, bn float64) float64 {
	if an == 0 || bn == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (an * bn)
}

type ranked struct {
	chunk document.Chunk
	score float64
}

// topK 按分数降序、序号升序排序后截取前 k 个
func topK(items []ranked, k int) []document.ScoredChunk {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score > items[j].score
		}
		return items[i].chunk.Index < items[j].chunk.Index
	})
	if k > len(items) {
		k = len(items)
	}
	out := make([]document.ScoredChunk, k)
	for i := 0; i < k; i++ {
		out[i] = document.ScoredChunk{Chunk: items[i].chunk, Score: float32(items[i].score)}
	}
	return out
}
