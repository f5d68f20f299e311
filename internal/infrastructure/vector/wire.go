package vector

import (
	"context"
	"time"

	"github.com/google/wire"

	"github.com/docqa/backend/internal/domain/document"
	"github.com/docqa/backend/internal/infrastructure/config"
	"github.com/docqa/backend/internal/infrastructure/log"
)

// ProviderSet 向量索引 ProviderSet
var ProviderSet = wire.NewSet(ProvideIndexBuilder)

// qdrantReadyTimeout 启动时等待 Qdrant 可用的时间
const qdrantReadyTimeout = 10 * time.Second

// ProvideIndexBuilder 按配置选择内存或 Qdrant 索引
func ProvideIndexBuilder(cfg *config.Config) (document.IndexBuilder, func(), error) {
	timeout := cfg.RAG.RequestTimeout()
	if cfg.Vector.Backend != "qdrant" {
		return NewMemoryBuilder(timeout), func() {}, nil
	}

	client, err := ConnectQdrant(context.Background(), cfg.Vector.QdrantHost, cfg.Vector.QdrantPort, qdrantReadyTimeout)
	if err != nil {
		return nil, nil, err
	}
	log.NewModuleLogger("vector", "provider").Info("Using qdrant index backend",
		"host", cfg.Vector.QdrantHost,
		"port", cfg.Vector.QdrantPort,
	)
	return NewQdrantBuilder(client, timeout), func() { client.Close() }, nil
}
