package storage

import "github.com/google/wire"

// ProviderSet Storage 基础设施层 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideDB,             // 数据库连接
	NewDocumentRepository, // 文档元数据仓储
	NewHistoryRepository,  // 对话历史仓储
)
