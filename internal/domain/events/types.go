// Package events 定义领域事件类型和接口
// 用于系统内部的事件驱动通信
package events

import "time"

// EventType 事件类型标识
type EventType string

// 会话相关事件类型
const (
	// SessionStateChanged 会话状态变化（构建开始、完成、失败、删除）
	SessionStateChanged EventType = "session.state.changed"
	// QuestionAnswered 一次问答完成并写入历史
	QuestionAnswered EventType = "session.question.answered"
)

// Event 领域事件接口
// 所有事件类型都必须实现此接口
type Event interface {
	// Type 返回事件类型
	Type() EventType
	// Timestamp 返回事件发生时间
	Timestamp() time.Time
}
