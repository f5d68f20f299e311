package document

import (
	"github.com/google/wire"

	"github.com/docqa/backend/internal/infrastructure/extractor"
)

// ProviderSet 文档服务 ProviderSet
var ProviderSet = wire.NewSet(
	OptionsFromConfig,
	NewService,
	wire.Bind(new(TextExtractor), new(*extractor.Extractor)),
)
