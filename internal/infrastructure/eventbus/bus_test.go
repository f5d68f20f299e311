package eventbus

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/docqa/backend/internal/domain/events"
	"github.com/docqa/backend/internal/domain/session"
	"github.com/stretchr/testify/assert"
)

func stateEvent(id string) *events.SessionStateEvent {
	return &events.SessionStateEvent{
		DocumentID: id,
		From:       session.StateBuilding,
		To:         session.StateReady,
		EventTime:  time.Now(),
	}
}

func TestEventBus_Subscribe(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	var received atomic.Value
	unsub := bus.Subscribe(events.HandlerFunc(func(event events.Event) error {
		received.Store(event.(*events.SessionStateEvent).DocumentID)
		return nil
	}), events.SessionStateChanged)
	defer unsub()

	bus.Publish(stateEvent("doc-1"))

	assert.Eventually(t, func() bool {
		v, _ := received.Load().(string)
		return v == "doc-1"
	}, time.Second, 10*time.Millisecond)
}

func TestEventBus_MultipleTypes(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	var count atomic.Int32
	unsub := bus.Subscribe(events.HandlerFunc(func(event events.Event) error {
		count.Add(1)
		return nil
	}), events.SessionStateChanged, events.QuestionAnswered)
	defer unsub()

	bus.Publish(stateEvent("doc"))
	bus.Publish(&events.QuestionAnsweredEvent{DocumentID: "doc", EventTime: time.Now()})

	assert.Eventually(t, func() bool { return count.Load() == 2 }, time.Second, 10*time.Millisecond)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus()

	var first, second atomic.Int32
	unsubFirst := bus.Subscribe(events.HandlerFunc(func(events.Event) error {
		first.Add(1)
		return nil
	}), events.SessionStateChanged)
	unsubSecond := bus.Subscribe(events.HandlerFunc(func(events.Event) error {
		second.Add(1)
		return nil
	}), events.SessionStateChanged)
	defer unsubSecond()

	unsubFirst()
	unsubFirst()

	bus.Publish(stateEvent("doc"))
	bus.Close()

	assert.Equal(t, int32(0), first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestEventBus_HandlerFailuresIsolated(t *testing.T) {
	bus := NewEventBus()

	var ok atomic.Int32
	bus.Subscribe(events.HandlerFunc(func(events.Event) error {
		panic("boom")
	}), events.SessionStateChanged)
	bus.Subscribe(events.HandlerFunc(func(events.Event) error {
		return errors.New("failed")
	}), events.SessionStateChanged)
	bus.Subscribe(events.HandlerFunc(func(events.Event) error {
		ok.Add(1)
		return nil
	}), events.SessionStateChanged)

	bus.Publish(stateEvent("doc"))
	bus.Close()

	assert.Equal(t, int32(1), ok.Load())
}

func TestEventBus_PublishAfterClose(t *testing.T) {
	bus := NewEventBus()

	var count atomic.Int32
	bus.Subscribe(events.HandlerFunc(func(events.Event) error {
		count.Add(1)
		return nil
	}), events.SessionStateChanged)

	bus.Close()
	bus.Close()
	bus.Publish(stateEvent("doc"))

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), count.Load())
}
