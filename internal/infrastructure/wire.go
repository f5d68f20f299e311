package infrastructure

import (
	"github.com/google/wire"

	"github.com/docqa/backend/internal/infrastructure/discovery"
	"github.com/docqa/backend/internal/infrastructure/embedding"
	"github.com/docqa/backend/internal/infrastructure/eventbus"
	"github.com/docqa/backend/internal/infrastructure/extractor"
	"github.com/docqa/backend/internal/infrastructure/llm"
	"github.com/docqa/backend/internal/infrastructure/secret"
	"github.com/docqa/backend/internal/infrastructure/storage"
	"github.com/docqa/backend/internal/infrastructure/tokenizer"
	"github.com/docqa/backend/internal/infrastructure/vector"
	"github.com/docqa/backend/internal/infrastructure/websocket"
)

// ProviderSet Infrastructure 层总 ProviderSet
var ProviderSet = wire.NewSet(
	storage.ProviderSet,
	eventbus.ProviderSet,
	websocket.ProviderSet,
	secret.ProviderSet,
	extractor.ProviderSet,
	embedding.ProviderSet,
	vector.ProviderSet,
	tokenizer.ProviderSet,
	llm.ProviderSet,
	discovery.ProviderSet,
)
