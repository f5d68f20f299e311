package events

// Handler 事件处理器
type Handler interface {
	// HandleEvent 处理事件，返回的错误只记录日志
	HandleEvent(event Event) error
}

// HandlerFunc 函数适配器
type HandlerFunc func(event Event) error

// HandleEvent 实现 Handler 接口
func (f HandlerFunc) HandleEvent(event Event) error {
	return f(event)
}

// EventBus 进程内事件总线
type EventBus interface {
	// Subscribe 订阅一种或多种事件，返回取消订阅函数
	Subscribe(handler Handler, eventTypes ...EventType) (unsubscribe func())

	// Publish 异步发布事件，总线关闭后发布的事件被丢弃
	Publish(event Event)

	// Close 停止接收新事件并等待已分发的事件处理完成
	Close()
}
