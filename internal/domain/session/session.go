// Package session 定义检索会话的状态和对话历史
package session

import (
	"context"
	"time"
)

// State 会话状态
type State string

const (
	// StateAbsent 不存在
	StateAbsent State = "absent"
	// StateBuilding 首次构建索引中
	StateBuilding State = "building"
	// StateReady 索引可用
	StateReady State = "ready"
	// StateDeleted 已删除
	StateDeleted State = "deleted"
)

// Turn 一轮问答
type Turn struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// Info 会话状态快照
type Info struct {
	DocumentID string    `json:"document_id"`
	State      State     `json:"state"`
	Reindexing bool      `json:"reindexing"` // Ready 状态下是否正在重建索引
	Chunks     int       `json:"chunks"`
	Turns      int       `json:"turns"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HistoryRepository 对话历史持久化
type HistoryRepository interface {
	// Append 追加一轮问答，seq 为该轮在会话中的序号（从 0 开始）
	Append(ctx context.Context, documentID string, seq int, turn Turn) error
	// List 按序号升序返回会话的全部历史
	List(ctx context.Context, documentID string) ([]Turn, error)
	// DeleteByDocument 删除会话的全部历史
	DeleteByDocument(ctx context.Context, documentID string) error
}
