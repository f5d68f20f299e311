package qa

import (
	"github.com/google/wire"

	"github.com/docqa/backend/internal/infrastructure/tokenizer"
)

// ProviderSet 问答编排 ProviderSet
var ProviderSet = wire.NewSet(
	OptionsFromConfig,
	NewOrchestrator,
	wire.Bind(new(ContextFitter), new(*tokenizer.Counter)),
)
