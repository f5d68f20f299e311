package websocket

import (
	"log/slog"
	"time"

	"github.com/docqa/backend/internal/domain/events"
	"github.com/docqa/backend/internal/infrastructure/log"
)

// Notification 推送给客户端的消息
type Notification struct {
	Type       events.EventType `json:"type"`
	DocumentID string           `json:"document_id"`
	Timestamp  time.Time        `json:"timestamp"`
	Data       any              `json:"data"`
}

// stateData 状态变化消息体
type stateData struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Reindexing bool   `json:"reindexing"`
	Reason     string `json:"reason,omitempty"`
}

// answerData 问答完成消息体
type answerData struct {
	Seq      int    `json:"seq"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Bridge 把事件总线上的会话事件转发到 Hub
type Bridge struct {
	hub    *Hub
	bus    events.EventBus
	unsub  func()
	logger *slog.Logger
}

// NewBridge 创建事件桥
func NewBridge(hub *Hub, bus events.EventBus) *Bridge {
	return &Bridge{
		hub:    hub,
		bus:    bus,
		logger: log.NewModuleLogger("websocket", "bridge"),
	}
}

// Start 订阅会话事件
func (b *Bridge) Start() {
	b.unsub = b.bus.Subscribe(events.HandlerFunc(b.HandleEvent),
		events.SessionStateChanged, events.QuestionAnswered)
}

// Stop 取消订阅
func (b *Bridge) Stop() {
	if b.unsub != nil {
		b.unsub()
	}
}

// HandleEvent 把领域事件转换为推送消息
func (b *Bridge) HandleEvent(event events.Event) error {
	var n Notification
	switch e := event.(type) {
	case *events.SessionStateEvent:
		n = Notification{
			DocumentID: e.DocumentID,
			Data: stateData{
				From:       string(e.From),
				To:         string(e.To),
				Reindexing: e.Reindexing,
				Reason:     e.Reason,
			},
		}
	case *events.QuestionAnsweredEvent:
		n = Notification{
			DocumentID: e.DocumentID,
			Data: answerData{
				Seq:      e.Seq,
				Question: e.Turn.Question,
				Answer:   e.Turn.Answer,
			},
		}
	default:
		return nil
	}
	n.Type = event.Type()
	n.Timestamp = event.Timestamp()

	if b.hub.Subscribers(n.DocumentID) == 0 {
		return nil
	}
	b.logger.Debug("Forwarding event", "type", n.Type, "document_id", n.DocumentID)
	return b.hub.BroadcastToDocument(n.DocumentID, n)
}
