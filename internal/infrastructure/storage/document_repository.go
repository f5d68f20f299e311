package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/docqa/backend/internal/domain/document"
)

var _ document.Repository = (*DocumentRepositoryImpl)(nil)

// DocumentRepositoryImpl 文档元数据仓库
type DocumentRepositoryImpl struct {
	db *sql.DB
}

// NewDocumentRepository 创建文档元数据仓库
func NewDocumentRepository(db *sql.DB) document.Repository {
	return &DocumentRepositoryImpl{db: db}
}

// Save 保存或覆盖
func (r *DocumentRepositoryImpl) Save(ctx context.Context, doc *document.Document) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO documents (id, filename, size, pages, chunks, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Filename, doc.Size, doc.Pages, doc.Chunks, doc.UploadedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", doc.ID, err)
	}
	return nil
}

// Get 按 ID 查询
func (r *DocumentRepositoryImpl) Get(ctx context.Context, id string) (*document.Document, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, filename, size, pages, chunks, uploaded_at
		FROM documents WHERE id = ?`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, document.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return doc, nil
}

// List 按上传时间倒序
func (r *DocumentRepositoryImpl) List(ctx context.Context) ([]*document.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, filename, size, pages, chunks, uploaded_at
		FROM documents ORDER BY uploaded_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]*document.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Delete 删除
func (r *DocumentRepositoryImpl) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*document.Document, error) {
	var (
		doc        document.Document
		uploadedAt int64
	)
	if err := s.Scan(&doc.ID, &doc.Filename, &doc.Size, &doc.Pages, &doc.Chunks, &uploadedAt); err != nil {
		return nil, err
	}
	doc.UploadedAt = time.UnixMilli(uploadedAt)
	return &doc, nil
}
