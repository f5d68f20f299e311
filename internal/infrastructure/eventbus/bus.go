// Package eventbus 提供进程内的异步事件分发
package eventbus

import (
	"log/slog"
	"sync"

	"github.com/docqa/backend/internal/domain/events"
	"github.com/docqa/backend/internal/infrastructure/log"
)

type subscription struct {
	id      uint64
	handler events.Handler
}

// eventBusImpl EventBus 的实现
type eventBusImpl struct {
	// handlers 按事件类型存储的订阅列表
	handlers map[events.EventType][]subscription
	mu       sync.RWMutex
	nextID   uint64
	logger   *slog.Logger
	closed   bool
	// wg 等待所有事件处理完成
	wg sync.WaitGroup
}

// NewEventBus 创建新的事件总线实例
func NewEventBus() events.EventBus {
	return &eventBusImpl{
		handlers: make(map[events.EventType][]subscription),
		logger:   log.NewModuleLogger("eventbus", "bus"),
	}
}

// ProvideEventBus 提供事件总线实例，返回关闭函数
func ProvideEventBus() (events.EventBus, func()) {
	bus := NewEventBus()
	return bus, bus.Close
}

// Subscribe 订阅一种或多种事件
func (b *eventBusImpl) Subscribe(handler events.Handler, eventTypes ...events.EventType) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	for _, eventType := range eventTypes {
		b.handlers[eventType] = append(b.handlers[eventType], subscription{id: id, handler: handler})
	}

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(id, eventTypes) })
	}
}

// unsubscribe 按订阅 ID 移除
func (b *eventBusImpl) unsubscribe(id uint64, eventTypes []events.EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, eventType := range eventTypes {
		subs := b.handlers[eventType]
		kept := make([]subscription, 0, len(subs))
		for _, s := range subs {
			if s.id != id {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(b.handlers, eventType)
		} else {
			b.handlers[eventType] = kept
		}
	}
}

// Publish 异步发布事件
func (b *eventBusImpl) Publish(event events.Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}

	// 复制订阅列表，避免长时间持有锁
	subs := make([]subscription, len(b.handlers[event.Type()]))
	copy(subs, b.handlers[event.Type()])
	// 在读锁内 Add，保证 Close 的 Wait 能看到
	b.wg.Add(len(subs))
	b.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	b.logger.Debug("Publishing event",
		"type", event.Type(),
		"handlers_count", len(subs),
	)

	for _, s := range subs {
		go b.dispatchToHandler(event, s.handler)
	}
}

// dispatchToHandler 分发事件到单个处理器
func (b *eventBusImpl) dispatchToHandler(event events.Event, handler events.Handler) {
	defer b.wg.Done()

	// 单个处理器 panic 不影响其他处理器
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Handler panicked",
				"type", event.Type(),
				"panic", r,
			)
		}
	}()

	if err := handler.HandleEvent(event); err != nil {
		b.logger.Error("Handler returned error",
			"type", event.Type(),
			"error", err,
		)
	}
}

// Close 关闭事件总线
func (b *eventBusImpl) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.wg.Wait()
	b.logger.Info("Event bus closed")
}
