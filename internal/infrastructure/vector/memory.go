package vector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/docqa/backend/internal/domain/document"
	"github.com/docqa/backend/internal/infrastructure/log"
)

// MemoryBuilder 构建进程内的暴力检索索引
type MemoryBuilder struct {
	timeout time.Duration
	logger  *slog.Logger
}

var _ document.IndexBuilder = (*MemoryBuilder)(nil)

// NewMemoryBuilder 创建内存索引构建器，timeout 为每次 Embedder 调用的上限
func NewMemoryBuilder(timeout time.Duration) *MemoryBuilder {
	return &MemoryBuilder{
		timeout: timeout,
		logger:  log.NewModuleLogger("vector", "memory"),
	}
}

// Build 实现 IndexBuilder 接口
func (b *MemoryBuilder) Build(ctx context.Context, documentID string, chunks []document.Chunk, embedder document.Embedder) (document.Index, error) {
	if len(chunks) == 0 {
		return nil, document.ErrEmptyInput
	}

	vectors, dim, err := embedChunks(ctx, chunks, embedder, b.timeout)
	if err != nil {
		return nil, err
	}
	// 向量化完成后调用方可能已放弃
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries := make([]memoryEntry, len(chunks))
	for i, c := range chunks {
		entries[i] = memoryEntry{chunk: c, vector: vectors[i], norm: norm(vectors[i])}
	}

	b.logger.InfoContext(ctx, "memory index built",
		"document_id", documentID,
		"chunks", len(entries),
		"dimension", dim,
	)

	return &memoryIndex{
		entries:   entries,
		embedder:  embedder,
		dimension: dim,
		timeout:   b.timeout,
	}, nil
}

type memoryEntry struct {
	chunk  document.Chunk
	vector []float32
	norm   float64
}

type memoryIndex struct {
	mu        sync.RWMutex
	entries   []memoryEntry
	released  bool
	embedder  document.Embedder
	dimension int
	timeout   time.Duration
}

func (m *memoryIndex) Query(ctx context.Context, text string, k int) ([]document.ScoredChunk, error) {
	m.mu.RLock()
	released := m.released
	m.mu.RUnlock()
	if released {
		return nil, document.ErrIndexNotReady
	}
	if k <= 0 {
		return []document.ScoredChunk{}, nil
	}

	q, err := embedQuery(ctx, m.embedder, text, m.dimension, m.timeout)
	if err != nil {
		return nil, err
	}
	return m.search(q, k)
}

// search 对所有分块打分并返回前 k 个
func (m *memoryIndex) search(q []float32, k int) ([]document.ScoredChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.released {
		return nil, document.ErrIndexNotReady
	}
	if len(q) != m.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, expected %d", document.ErrEmbeddingFailure, len(q), m.dimension)
	}

	qn := norm(q)
	items := make([]ranked, len(m.entries))
	for i, e := range m.entries {
		items[i] = ranked{chunk: e.chunk, score: cosine(q, qn, e.vector, e.norm)}
	}
	return topK(items, k), nil
}

func (m *memoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *memoryIndex) Release(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = true
	m.entries = nil
	return nil
}
