package events

import (
	"time"

	"github.com/docqa/backend/internal/domain/session"
)

// SessionStateEvent 会话状态变化事件
type SessionStateEvent struct {
	DocumentID string
	// From 变化前状态
	From session.State
	// To 变化后状态
	To session.State
	// Reindexing Ready 状态下是否有重建在进行
	Reindexing bool
	// Reason 失败原因，成功时为空
	Reason    string
	EventTime time.Time
}

// Type 实现 Event 接口
func (e *SessionStateEvent) Type() EventType {
	return SessionStateChanged
}

// Timestamp 实现 Event 接口
func (e *SessionStateEvent) Timestamp() time.Time {
	return e.EventTime
}

// QuestionAnsweredEvent 问答完成事件
type QuestionAnsweredEvent struct {
	DocumentID string
	Seq        int
	Turn       session.Turn
	EventTime  time.Time
}

// Type 实现 Event 接口
func (e *QuestionAnsweredEvent) Type() EventType {
	return QuestionAnswered
}

// Timestamp 实现 Event 接口
func (e *QuestionAnsweredEvent) Timestamp() time.Time {
	return e.EventTime
}
