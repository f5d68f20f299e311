package document

import "context"

// Embedder 文本向量化服务
// 同一个实例返回的向量维度保持一致
type Embedder interface {
	// Embed 批量向量化，返回结果与输入一一对应
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension 期望的向量维度，0 表示由第一次返回结果决定
	Dimension() int
}

// Index 单个文档的只读向量索引
type Index interface {
	// Query 返回与 text 最相近的 k 个分块，按分数降序，同分按序号升序
	Query(ctx context.Context, text string, k int) ([]ScoredChunk, error)
	// Size 索引中的分块数量
	Size() int
	// Release 释放索引占用的资源，之后的查询返回 ErrIndexNotReady
	Release(ctx context.Context) error
}

// IndexBuilder 向量索引构建器
type IndexBuilder interface {
	// Build 原子地构建索引：要么返回完整可用的索引，要么返回错误
	Build(ctx context.Context, documentID string, chunks []Chunk, embedder Embedder) (Index, error)
}
