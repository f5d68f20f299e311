package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/docqa/backend/internal/infrastructure/config"
	_ "modernc.org/sqlite"
)

// schema 表结构，启动时幂等执行
var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		size INTEGER NOT NULL,
		pages INTEGER NOT NULL,
		chunks INTEGER NOT NULL,
		uploaded_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS conversation_turns (
		document_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (document_id, seq)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_documents_uploaded_at ON documents(uploaded_at);`,
}

// OpenDB 打开数据库连接并初始化表结构
func OpenDB(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc sqlite 单连接写入，避免 SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return db, nil
}

// ProvideDB 按配置打开数据库，返回关闭函数
func ProvideDB(cfg *config.Config) (*sql.DB, func(), error) {
	db, err := OpenDB(cfg.DatabasePath())
	if err != nil {
		return nil, nil, err
	}
	return db, func() { db.Close() }, nil
}
