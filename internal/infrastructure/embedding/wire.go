package embedding

import (
	"github.com/google/wire"

	"github.com/docqa/backend/internal/infrastructure/secret"
)

// ProviderSet 向量化服务 ProviderSet
var ProviderSet = wire.NewSet(
	NewEmbedder,
	wire.Bind(new(KeySource), new(*secret.FileStore)),
)
