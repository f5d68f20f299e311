package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/docqa/backend/internal/domain/document"
	"github.com/docqa/backend/internal/domain/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DocumentRepositoryImpl {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &DocumentRepositoryImpl{db: db}
}

func TestOpenDB_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db1, err := OpenDB(path)
	require.NoError(t, err)
	require.NoError(t, db1.Close())

	db2, err := OpenDB(path)
	require.NoError(t, err)
	require.NoError(t, db2.Close())
}

func TestDocumentRepository(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)

	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, document.ErrDocumentNotFound)

	older := &document.Document{ID: "a", Filename: "a.pdf", Size: 10, Pages: 1, Chunks: 2, UploadedAt: time.UnixMilli(1_000)}
	newer := &document.Document{ID: "b", Filename: "b.pdf", Size: 20, Pages: 3, Chunks: 5, UploadedAt: time.UnixMilli(2_000)}
	require.NoError(t, repo.Save(ctx, older))
	require.NoError(t, repo.Save(ctx, newer))

	got, err := repo.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "b.pdf", got.Filename)
	assert.Equal(t, 5, got.Chunks)
	assert.Equal(t, int64(2_000), got.UploadedAt.UnixMilli())

	docs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[0].ID)
	assert.Equal(t, "a", docs[1].ID)

	// 重新上传覆盖
	older.Chunks = 9
	require.NoError(t, repo.Save(ctx, older))
	got, err = repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 9, got.Chunks)

	require.NoError(t, repo.Delete(ctx, "a"))
	_, err = repo.Get(ctx, "a")
	assert.ErrorIs(t, err, document.ErrDocumentNotFound)
}

func TestHistoryRepository(t *testing.T) {
	ctx := context.Background()
	docs := setupTestDB(t)
	repo := NewHistoryRepository(docs.db)

	turns, err := repo.List(ctx, "doc")
	require.NoError(t, err)
	assert.Empty(t, turns)

	now := time.UnixMilli(5_000)
	require.NoError(t, repo.Append(ctx, "doc", 0, session.Turn{Question: "q0", Answer: "a0", CreatedAt: now}))
	require.NoError(t, repo.Append(ctx, "doc", 1, session.Turn{Question: "q1", Answer: "a1", CreatedAt: now}))
	require.NoError(t, repo.Append(ctx, "other", 0, session.Turn{Question: "x", Answer: "y", CreatedAt: now}))

	assert.Error(t, repo.Append(ctx, "doc", 1, session.Turn{Question: "dup"}), "序号不能重复")

	turns, err = repo.List(ctx, "doc")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "q0", turns[0].Question)
	assert.Equal(t, "a1", turns[1].Answer)

	require.NoError(t, repo.DeleteByDocument(ctx, "doc"))
	turns, err = repo.List(ctx, "doc")
	require.NoError(t, err)
	assert.Empty(t, turns)

	other, err := repo.List(ctx, "other")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}
