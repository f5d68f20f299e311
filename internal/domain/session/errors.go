package session

import "errors"

var (
	// ErrConflict 同一文档已有构建在进行中
	ErrConflict = errors.New("build already in progress")
	// ErrNotFound 会话不存在或已删除
	ErrNotFound = errors.New("session not found")
	// ErrNotReady 会话首次构建尚未完成
	ErrNotReady = errors.New("session not ready")
	// ErrBuildFinished 构建已提交或已中止
	ErrBuildFinished = errors.New("build already finished")
)
