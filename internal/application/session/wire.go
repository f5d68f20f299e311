package session

import (
	"github.com/docqa/backend/internal/domain/events"
	domainSession "github.com/docqa/backend/internal/domain/session"
	"github.com/google/wire"
)

// ProviderSet 会话管理 ProviderSet
var ProviderSet = wire.NewSet(ProvideManager)

// ProvideManager 提供会话管理器，返回释放全部索引的清理函数
func ProvideManager(history domainSession.HistoryRepository, bus events.EventBus) (*Manager, func()) {
	m := NewManager(history, bus)
	return m, m.Close
}
