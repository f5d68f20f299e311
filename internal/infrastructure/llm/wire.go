package llm

import (
	"github.com/google/wire"

	"github.com/docqa/backend/internal/infrastructure/secret"
)

// ProviderSet LLM 基础设施 ProviderSet
var ProviderSet = wire.NewSet(
	NewGenerator,
	wire.Bind(new(KeySource), new(*secret.FileStore)),
)
