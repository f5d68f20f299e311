package secret

import (
	"github.com/google/wire"

	"github.com/docqa/backend/internal/infrastructure/config"
)

// ProviderSet 凭据库 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideStore,
	wire.Bind(new(Store), new(*FileStore)),
)

// ProvideStore 打开数据目录下的凭据库
// 库中没有生成服务的 Key 时回退读取环境变量
func ProvideStore(cfg *config.Config) (*FileStore, error) {
	store, err := NewFileStore(config.GetDataDir())
	if err != nil {
		return nil, err
	}
	store.WithEnvFallback(cfg.LLM.SecretName, "DOCQA_LLM_API_KEY", "OPENAI_API_KEY")
	if cfg.Embedding.SecretName != cfg.LLM.SecretName {
		store.WithEnvFallback(cfg.Embedding.SecretName, "DOCQA_EMBEDDING_API_KEY")
	}
	return store, nil
}
