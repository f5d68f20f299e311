package application

import (
	"github.com/google/wire"

	"github.com/docqa/backend/internal/application/document"
	"github.com/docqa/backend/internal/application/qa"
	"github.com/docqa/backend/internal/application/session"
)

// ProviderSet Application 层总 ProviderSet
var ProviderSet = wire.NewSet(
	session.ProviderSet,
	document.ProviderSet,
	qa.ProviderSet,
)
