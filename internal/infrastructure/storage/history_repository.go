package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/docqa/backend/internal/domain/session"
)

var _ session.HistoryRepository = (*HistoryRepositoryImpl)(nil)

// HistoryRepositoryImpl 对话历史仓库
type HistoryRepositoryImpl struct {
	db *sql.DB
}

// NewHistoryRepository 创建对话历史仓库
func NewHistoryRepository(db *sql.DB) session.HistoryRepository {
	return &HistoryRepositoryImpl{db: db}
}

// Append 追加一轮问答
func (r *HistoryRepositoryImpl) Append(ctx context.Context, documentID string, seq int, turn session.Turn) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversation_turns (document_id, seq, question, answer, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		documentID, seq, turn.Question, turn.Answer, turn.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to append turn %d for %s: %w", seq, documentID, err)
	}
	return nil
}

// List 按序号升序
func (r *HistoryRepositoryImpl) List(ctx context.Context, documentID string) ([]session.Turn, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT question, answer, created_at FROM conversation_turns
		WHERE document_id = ? ORDER BY seq ASC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list history for %s: %w", documentID, err)
	}
	defer rows.Close()

	turns := make([]session.Turn, 0)
	for rows.Next() {
		var (
			t         session.Turn
			createdAt int64
		)
		if err := rows.Scan(&t.Question, &t.Answer, &createdAt); err != nil {
			return nil, err
		}
		t.CreatedAt = time.UnixMilli(createdAt)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// DeleteByDocument 删除会话全部历史
func (r *HistoryRepositoryImpl) DeleteByDocument(ctx context.Context, documentID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM conversation_turns WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("failed to delete history for %s: %w", documentID, err)
	}
	return nil
}
