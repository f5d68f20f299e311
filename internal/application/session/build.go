package session

import (
	"context"
	"fmt"
	"time"

	"github.com/docqa/backend/internal/domain/document"
	domainSession "github.com/docqa/backend/internal/domain/session"
)

// Build 一次进行中的索引构建，必须以 Commit 或 Abort 结束
type Build struct {
	m         *Manager
	entry     *entry
	seq       uint64
	reindex   bool
	prevState domainSession.State
	existed   bool
	restore   bool
	onCommit  func(ctx context.Context)
	done      bool // 由 Manager.mu 保护
}

// DocumentID 构建的文档 ID
func (b *Build) DocumentID() string {
	return b.entry.id
}

// Reindex 是否是对已就绪会话的重建
func (b *Build) Reindex() bool {
	return b.reindex
}

// RestoreHistory 首次构建提交时从持久化存储恢复历史，而不是清空
// 用于重启后对已保存文档重建索引
func (b *Build) RestoreHistory() {
	b.restore = true
}

// OnCommit 注册提交成功后执行的回调
// 回调在持有会话轮次时运行，与问答和删除互斥
func (b *Build) OnCommit(fn func(ctx context.Context)) {
	b.onCommit = fn
}

// Commit 原子地启用新索引
// 首次构建清空历史（RestoreHistory 时改为恢复），重建保留历史；旧索引在切换后释放
func (b *Build) Commit(ctx context.Context, index document.Index) error {
	if index == nil {
		return fmt.Errorf("commit %s: nil index", b.entry.id)
	}
	e := b.entry

	// 等待旧索引上进行中的问答结束
	if err := e.acquire(ctx); err != nil {
		return err
	}
	defer e.release()

	m := b.m
	restoring := !b.reindex && b.restore && m.history != nil
	var restored []domainSession.Turn
	if restoring {
		turns, err := m.history.List(ctx, e.id)
		if err != nil {
			// 读取失败时从空历史开始，但保留持久化记录
			m.logger.Warn("Failed to restore persisted history", "document_id", e.id, "error", err)
		}
		restored = turns
	}

	m.mu.Lock()
	if b.done || e.buildSeq != b.seq {
		m.mu.Unlock()
		return domainSession.ErrBuildFinished
	}
	b.done = true

	from := e.state
	old := e.index
	e.index = index
	e.building = false
	e.state = domainSession.StateReady
	e.updatedAt = time.Now()
	if !b.reindex {
		e.history = restored
	}
	m.publishState(e, from, "")
	m.mu.Unlock()

	m.releaseIndex(e.id, old)
	if !b.reindex && !restoring && m.history != nil {
		// 清理同一 ID 之前会话遗留的持久化历史
		if err := m.history.DeleteByDocument(ctx, e.id); err != nil {
			m.logger.Warn("Failed to reset persisted history", "document_id", e.id, "error", err)
		}
	}

	if b.onCommit != nil {
		b.onCommit(ctx)
	}

	m.logger.Info("Build committed",
		"document_id", e.id,
		"reindex", b.reindex,
		"restored_turns", len(restored),
		"chunks", index.Size(),
	)
	return nil
}

// Abort 放弃构建
// 首次构建恢复到之前的状态，重建时旧会话保持不变
func (b *Build) Abort(reason string) error {
	m := b.m
	e := b.entry

	m.mu.Lock()
	defer m.mu.Unlock()

	if b.done || e.buildSeq != b.seq {
		return domainSession.ErrBuildFinished
	}
	b.done = true

	from := e.state
	e.building = false
	if !b.reindex {
		e.state = b.prevState
		if !b.existed {
			delete(m.sessions, e.id)
			e.state = domainSession.StateAbsent
		}
	}
	e.updatedAt = time.Now()
	m.publishState(e, from, reason)

	m.logger.Warn("Build aborted", "document_id", e.id, "reindex", b.reindex, "reason", reason)
	return nil
}
