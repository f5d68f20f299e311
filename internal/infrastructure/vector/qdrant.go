package vector

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/docqa/backend/internal/domain/document"
	"github.com/docqa/backend/internal/infrastructure/log"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const (
	collectionPrefix = "docqa_"
	upsertBatchSize  = 128
	// tieSlack 额外取回的结果数，用于在本地按序号稳定排序同分结果
	tieSlack = 16
)

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// ConnectQdrant 连接 Qdrant 并确认服务可用
func ConnectQdrant(ctx context.Context, host string, port int, readyTimeout time.Duration) (*qdrant.Client, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	deadline := time.Now().Add(readyTimeout)
	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err = client.ListCollections(pingCtx)
		cancel()
		if err == nil {
			return client, nil
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			client.Close()
			return nil, fmt.Errorf("qdrant not ready at %s:%d: %w", host, port, err)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

// qdrantAPI 索引用到的客户端方法
type qdrantAPI interface {
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	DeleteCollection(ctx context.Context, collectionName string) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
}

var _ qdrantAPI = (*qdrant.Client)(nil)

// QdrantBuilder 每次构建创建一个独立集合，构建失败时删除该集合
// 旧索引的集合不受影响，释放时才删除
type QdrantBuilder struct {
	client  qdrantAPI
	timeout time.Duration
	logger  *slog.Logger
}

var _ document.IndexBuilder = (*QdrantBuilder)(nil)

// NewQdrantBuilder 创建 Qdrant 索引构建器
func NewQdrantBuilder(client *qdrant.Client, timeout time.Duration) *QdrantBuilder {
	return newQdrantBuilder(client, timeout)
}

func newQdrantBuilder(client qdrantAPI, timeout time.Duration) *QdrantBuilder {
	return &QdrantBuilder{
		client:  client,
		timeout: timeout,
		logger:  log.NewModuleLogger("vector", "qdrant"),
	}
}

// collectionName 文档 ID 清洗后加上构建 ID，保证重建时新旧集合并存
func collectionName(documentID string) string {
	safe := unsafeName.ReplaceAllString(documentID, "_")
	if len(safe) > 64 {
		safe = safe[:64]
	}
	return collectionPrefix + safe + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Build 实现 IndexBuilder 接口
func (b *QdrantBuilder) Build(ctx context.Context, documentID string, chunks []document.Chunk, embedder document.Embedder) (document.Index, error) {
	if len(chunks) == 0 {
		return nil, document.ErrEmptyInput
	}

	vectors, dim, err := embedChunks(ctx, chunks, embedder, b.timeout)
	if err != nil {
		return nil, err
	}

	name := collectionName(documentID)
	if err := b.withTimeout(ctx, func(ctx context.Context) error {
		return b.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dim),
				Distance: qdrant.Distance_Cosine,
			}),
		})
	}); err != nil {
		return nil, fmt.Errorf("failed to create collection %s: %w", name, err)
	}

	if err := b.upsert(ctx, name, chunks, vectors); err != nil {
		b.dropCollection(name)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		b.dropCollection(name)
		return nil, err
	}

	b.logger.InfoContext(ctx, "qdrant index built",
		"document_id", documentID,
		"collection", name,
		"chunks", len(chunks),
		"dimension", dim,
	)

	return &qdrantIndex{
		client:     b.client,
		collection: name,
		size:       len(chunks),
		embedder:   embedder,
		dimension:  dim,
		timeout:    b.timeout,
		logger:     b.logger,
	}, nil
}

func (b *QdrantBuilder) upsert(ctx context.Context, name string, chunks []document.Chunk, vectors [][]float32) error {
	wait := true
	for i := 0; i < len(chunks); i += upsertBatchSize {
		end := min(i+upsertBatchSize, len(chunks))
		points := make([]*qdrant.PointStruct, 0, end-i)
		for j := i; j < end; j++ {
			c := chunks[j]
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDNum(uint64(c.Index)),
				Vectors: qdrant.NewVectors(vectors[j]...),
				Payload: qdrant.NewValueMap(map[string]any{
					"document_id": c.DocumentID,
					"chunk_index": c.Index,
					"start":       c.Start,
					"end":         c.End,
					"overlap":     c.Overlap,
					"text":        c.Text,
				}),
			})
		}

		err := b.withTimeout(ctx, func(ctx context.Context) error {
			_, err := b.client.Upsert(ctx, &qdrant.UpsertPoints{
				CollectionName: name,
				Wait:           &wait,
				Points:         points,
			})
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to upsert points: %w", err)
		}
	}
	return nil
}

// dropCollection 清理失败构建的集合，不受调用方取消影响
func (b *QdrantBuilder) dropCollection(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := b.client.DeleteCollection(ctx, name); err != nil {
		b.logger.Warn("failed to drop collection", "collection", name, "error", err)
	}
}

func (b *QdrantBuilder) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	return fn(ctx)
}

type qdrantIndex struct {
	mu         sync.RWMutex
	client     qdrantAPI
	collection string
	size       int
	released   bool
	embedder   document.Embedder
	dimension  int
	timeout    time.Duration
	logger     *slog.Logger
}

func (q *qdrantIndex) Query(ctx context.Context, text string, k int) ([]document.ScoredChunk, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.released {
		return nil, document.ErrIndexNotReady
	}
	if k <= 0 {
		return []document.ScoredChunk{}, nil
	}

	vec, err := embedQuery(ctx, q.embedder, text, q.dimension, q.timeout)
	if err != nil {
		return nil, err
	}

	limit := uint64(min(q.size, k+tieSlack))
	qctx := ctx
	if q.timeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}
	hits, err := q.client.Query(qctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant query failed: %w", err)
	}

	items := make([]ranked, 0, len(hits))
	for _, hit := range hits {
		items = append(items, ranked{chunk: chunkFromPayload(hit.GetPayload()), score: float64(hit.GetScore())})
	}
	return topK(items, k), nil
}

func chunkFromPayload(p map[string]*qdrant.Value) document.Chunk {
	return document.Chunk{
		DocumentID: p["document_id"].GetStringValue(),
		Index:      int(p["chunk_index"].GetIntegerValue()),
		Start:      int(p["start"].GetIntegerValue()),
		End:        int(p["end"].GetIntegerValue()),
		Overlap:    int(p["overlap"].GetIntegerValue()),
		Text:       p["text"].GetStringValue(),
	}
}

func (q *qdrantIndex) Size() int {
	return q.size
}

func (q *qdrantIndex) Release(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.released {
		return nil
	}
	q.released = true
	if err := q.client.DeleteCollection(ctx, q.collection); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", q.collection, err)
	}
	q.logger.Info("qdrant collection released", "collection", q.collection)
	return nil
}
