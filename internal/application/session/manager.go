// Package session 管理每个文档的检索会话：索引构建、替换、删除和对话历史
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/docqa/backend/internal/domain/document"
	"github.com/docqa/backend/internal/domain/events"
	domainSession "github.com/docqa/backend/internal/domain/session"
	"github.com/docqa/backend/internal/infrastructure/log"
)

// releaseTimeout 释放旧索引的超时
const releaseTimeout = 10 * time.Second

// entry 单个文档的会话
// state/index/history/building 由 Manager.mu 保护
type entry struct {
	id        string
	state     domainSession.State
	building  bool
	buildSeq  uint64
	index     document.Index
	history   []domainSession.Turn
	updatedAt time.Time

	// turn 串行化同一会话上的问答，容量为 1 的信号量
	turn chan struct{}
}

func newEntry(id string) *entry {
	return &entry{
		id:    id,
		state: domainSession.StateAbsent,
		turn:  make(chan struct{}, 1),
	}
}

func (e *entry) acquire(ctx context.Context) error {
	select {
	case e.turn <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *entry) release() {
	<-e.turn
}

func (e *entry) info() domainSession.Info {
	chunks := 0
	if e.index != nil {
		chunks = e.index.Size()
	}
	return domainSession.Info{
		DocumentID: e.id,
		State:      e.state,
		Reindexing: e.state == domainSession.StateReady && e.building,
		Chunks:     chunks,
		Turns:      len(e.history),
		UpdatedAt:  e.updatedAt,
	}
}

// Session 就绪会话的只读快照
type Session struct {
	ID      string
	Index   document.Index
	History []domainSession.Turn
}

// Manager 会话管理器，唯一可以修改会话表的组件
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	nextSeq  uint64

	history domainSession.HistoryRepository
	bus     events.EventBus
	logger  *slog.Logger
}

// NewManager 创建会话管理器，history 可以为 nil
func NewManager(history domainSession.HistoryRepository, bus events.EventBus) *Manager {
	return &Manager{
		sessions: make(map[string]*entry),
		history:  history,
		bus:      bus,
		logger:   log.NewModuleLogger("session", "manager"),
	}
}

// BeginBuild 开始为文档构建索引
// Absent/Deleted 进入 Building；Ready 保持可用并在后台重建
func (m *Manager) BeginBuild(id string) (*Build, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		e = newEntry(id)
		m.sessions[id] = e
	}
	if e.building {
		return nil, fmt.Errorf("%w: %s", domainSession.ErrConflict, id)
	}

	m.nextSeq++
	b := &Build{
		m:         m,
		entry:     e,
		seq:       m.nextSeq,
		reindex:   e.state == domainSession.StateReady,
		prevState: e.state,
		existed:   ok,
	}

	from := e.state
	e.building = true
	e.buildSeq = b.seq
	if !b.reindex {
		e.state = domainSession.StateBuilding
	}
	e.updatedAt = time.Now()

	m.logger.Info("Build started", "document_id", id, "reindex", b.reindex)
	m.publishState(e, from, "")
	return b, nil
}

// Get 返回就绪会话的快照，重建期间返回旧会话
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.readyEntry(id)
	if err != nil {
		return nil, err
	}
	return snapshot(e), nil
}

// State 返回会话状态快照，未知文档返回 Absent
func (m *Manager) State(id string) domainSession.Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return domainSession.Info{DocumentID: id, State: domainSession.StateAbsent}
	}
	return e.info()
}

// List 返回所有已知会话的状态，按文档 ID 排序
func (m *Manager) List() []domainSession.Info {
	m.mu.Lock()
	infos := make([]domainSession.Info, 0, len(m.sessions))
	for _, e := range m.sessions {
		infos = append(infos, e.info())
	}
	m.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].DocumentID < infos[j].DocumentID })
	return infos
}

// WithSession 在会话的串行区内执行 fn
// 同一会话的 fn 依次执行，不同会话互不影响；fn 执行期间索引不会被替换或释放
func (m *Manager) WithSession(ctx context.Context, id string, fn func(s *Session) error) error {
	m.mu.Lock()
	e, err := m.readyEntry(id)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	if err := e.acquire(ctx); err != nil {
		return err
	}
	defer e.release()

	// 等待期间会话可能已被删除
	m.mu.Lock()
	if cur, ok := m.sessions[id]; !ok || cur != e || e.state != domainSession.StateReady {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", domainSession.ErrNotFound, id)
	}
	s := snapshot(e)
	m.mu.Unlock()

	return fn(s)
}

// AppendHistory 追加一轮问答并写入持久化存储
func (m *Manager) AppendHistory(ctx context.Context, id, question, answer string) (domainSession.Turn, error) {
	turn := domainSession.Turn{Question: question, Answer: answer, CreatedAt: time.Now()}

	m.mu.Lock()
	e, err := m.readyEntry(id)
	if err != nil {
		m.mu.Unlock()
		return domainSession.Turn{}, err
	}
	seq := len(e.history)
	e.history = append(e.history, turn)
	e.updatedAt = turn.CreatedAt
	m.mu.Unlock()

	if m.history != nil {
		// 持久化失败不影响本次问答
		if err := m.history.Append(ctx, id, seq, turn); err != nil {
			m.logger.Warn("Failed to persist turn", "document_id", id, "seq", seq, "error", err)
		}
	}
	if m.bus != nil {
		m.bus.Publish(&events.QuestionAnsweredEvent{
			DocumentID: id,
			Seq:        seq,
			Turn:       turn,
			EventTime:  turn.CreatedAt,
		})
	}
	return turn, nil
}

// History 返回会话历史的副本
func (m *Manager) History(id string) ([]domainSession.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.readyEntry(id)
	if err != nil {
		return nil, err
	}
	return cloneTurns(e.history), nil
}

// Delete 删除就绪会话并释放索引
// 构建进行中返回 ErrConflict，未知文档返回 ErrNotFound
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.DeleteWith(ctx, id, nil)
}

// DeleteWith 与 Delete 相同，但在持有会话轮次时先执行 cleanup
// cleanup 返回错误时会话保持不变
func (m *Manager) DeleteWith(ctx context.Context, id string, cleanup func(ctx context.Context) error) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domainSession.ErrNotFound, id)
	}

	// 等待进行中的问答结束
	if err := e.acquire(ctx); err != nil {
		return err
	}
	defer e.release()

	m.mu.Lock()
	if e.building {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", domainSession.ErrConflict, id)
	}
	if e.state != domainSession.StateReady {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", domainSession.ErrNotFound, id)
	}
	m.mu.Unlock()

	if cleanup != nil {
		if err := cleanup(ctx); err != nil {
			return err
		}
	}

	m.mu.Lock()
	from := e.state
	old := e.index
	e.index = nil
	e.history = nil
	e.state = domainSession.StateDeleted
	e.updatedAt = time.Now()
	m.publishState(e, from, "")
	m.mu.Unlock()

	m.releaseIndex(id, old)
	if m.history != nil {
		if err := m.history.DeleteByDocument(ctx, id); err != nil {
			m.logger.Warn("Failed to delete persisted history", "document_id", id, "error", err)
		}
	}
	m.logger.Info("Session deleted", "document_id", id)
	return nil
}

// Close 释放所有索引
func (m *Manager) Close() {
	m.mu.Lock()
	indexes := make(map[string]document.Index)
	for id, e := range m.sessions {
		if e.index != nil {
			indexes[id] = e.index
			e.index = nil
		}
	}
	m.mu.Unlock()

	for id, idx := range indexes {
		m.releaseIndex(id, idx)
	}
}

// readyEntry 调用方持有 m.mu
func (m *Manager) readyEntry(id string) (*entry, error) {
	e, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domainSession.ErrNotFound, id)
	}
	switch e.state {
	case domainSession.StateReady:
		return e, nil
	case domainSession.StateBuilding:
		return nil, fmt.Errorf("%w: %s", domainSession.ErrNotReady, id)
	default:
		return nil, fmt.Errorf("%w: %s", domainSession.ErrNotFound, id)
	}
}

func (m *Manager) releaseIndex(id string, idx document.Index) {
	if idx == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := idx.Release(ctx); err != nil {
		m.logger.Warn("Failed to release index", "document_id", id, "error", err)
	}
}

// publishState 调用方持有 m.mu
func (m *Manager) publishState(e *entry, from domainSession.State, reason string) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(&events.SessionStateEvent{
		DocumentID: e.id,
		From:       from,
		To:         e.state,
		Reindexing: e.state == domainSession.StateReady && e.building,
		Reason:     reason,
		EventTime:  e.updatedAt,
	})
}

func snapshot(e *entry) *Session {
	return &Session{
		ID:      e.id,
		Index:   e.index,
		History: cloneTurns(e.history),
	}
}

func cloneTurns(turns []domainSession.Turn) []domainSession.Turn {
	out := make([]domainSession.Turn, len(turns))
	copy(out, turns)
	return out
}
