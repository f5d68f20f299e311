// Package document 处理文档上传、重建索引、删除和查询
package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"

	appSession "github.com/docqa/backend/internal/application/session"
	domainDocument "github.com/docqa/backend/internal/domain/document"
	domainSession "github.com/docqa/backend/internal/domain/session"
	"github.com/docqa/backend/internal/infrastructure/chunker"
	"github.com/docqa/backend/internal/infrastructure/config"
	"github.com/docqa/backend/internal/infrastructure/extractor"
	"github.com/docqa/backend/internal/infrastructure/log"
)

// validID 允许的文档 ID
var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// TextExtractor 文本提取
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (*extractor.Result, error)
}

// UploadRequest 上传请求
type UploadRequest struct {
	DocumentID string // 为空时自动生成
	Filename   string
	Data       []byte
}

// UploadResult 上传结果
type UploadResult struct {
	Document *domainDocument.Document
	Reindex  bool
}

// View 文档元数据和会话状态
type View struct {
	*domainDocument.Document
	Session domainSession.Info `json:"session"`
}

// Options 文档服务参数
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	MaxBytes     int64
	UploadsDir   string
}

// OptionsFromConfig 从配置读取文档服务参数
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ChunkSize:    cfg.RAG.ChunkSize,
		ChunkOverlap: cfg.RAG.ChunkOverlap,
		MaxBytes:     int64(cfg.Server.MaxUploadMB) << 20,
		UploadsDir:   config.GetUploadsDir(),
	}
}

// Service 文档服务
type Service struct {
	extractor TextExtractor
	embedder  domainDocument.Embedder
	builder   domainDocument.IndexBuilder
	sessions  *appSession.Manager
	repo      domainDocument.Repository
	history   domainSession.HistoryRepository
	opts      Options
	logger    *slog.Logger
}

// NewService 创建文档服务
func NewService(
	extractor TextExtractor,
	embedder domainDocument.Embedder,
	builder domainDocument.IndexBuilder,
	sessions *appSession.Manager,
	repo domainDocument.Repository,
	history domainSession.HistoryRepository,
	opts Options,
) *Service {
	return &Service{
		extractor: extractor,
		embedder:  embedder,
		builder:   builder,
		sessions:  sessions,
		repo:      repo,
		history:   history,
		opts:      opts,
		logger:    log.NewModuleLogger("document", "service"),
	}
}

// Upload 提取、分块、构建索引并启用新会话
// 提取和分块在占用会话之前完成，失败时不留下任何状态
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	id := req.DocumentID
	if id == "" {
		id = uuid.NewString()
	}
	if !validID.MatchString(id) {
		return nil, fmt.Errorf("%w: %q", domainDocument.ErrInvalidDocumentID, id)
	}
	if s.opts.MaxBytes > 0 && int64(len(req.Data)) > s.opts.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes", domainDocument.ErrDocumentTooLarge, len(req.Data))
	}

	return s.index(log.WithDocumentID(ctx, id), id, req.Filename, req.Data, false)
}

// Reindex 使用已保存的文件重建索引
// 会话不在内存中时（例如重启后）从持久化存储恢复对话历史
func (s *Service) Reindex(ctx context.Context, id string) (*UploadResult, error) {
	meta, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.filePath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: stored file for %s", domainDocument.ErrDocumentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stored file: %w", err)
	}
	return s.index(log.WithDocumentID(ctx, id), id, meta.Filename, data, true)
}

func (s *Service) index(ctx context.Context, id, filename string, data []byte, restore bool) (*UploadResult, error) {
	start := time.Now()

	extracted, err := s.extractor.Extract(ctx, data)
	if err != nil {
		return nil, err
	}
	chunks, err := chunker.Split(id, extracted.Text, s.opts.ChunkSize, s.opts.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, domainDocument.ErrEmptyDocument
	}

	build, err := s.sessions.BeginBuild(id)
	if err != nil {
		return nil, err
	}
	if restore {
		build.RestoreHistory()
	}
	committed := false
	defer func() {
		if !committed {
			_ = build.Abort("upload failed")
		}
	}()

	idx, err := s.builder.Build(ctx, id, chunks, s.embedder)
	if err != nil {
		return nil, err
	}

	tmp, err := s.stageFile(id, data)
	if err != nil {
		_ = idx.Release(context.Background())
		return nil, err
	}
	defer os.Remove(tmp)

	doc := &domainDocument.Document{
		ID:         id,
		Filename:   filename,
		Size:       int64(len(data)),
		Pages:      extracted.Pages,
		Chunks:     len(chunks),
		UploadedAt: time.Now(),
	}
	// 文件和元数据在会话轮次内落盘，避免与并发删除交错
	build.OnCommit(func(ctx context.Context) {
		if err := os.Rename(tmp, s.filePath(id)); err != nil {
			s.logger.Warn("Failed to store uploaded file", "document_id", id, "error", err)
		}
		if err := s.repo.Save(ctx, doc); err != nil {
			s.logger.Warn("Failed to save document metadata", "document_id", id, "error", err)
		}
	})

	if err := build.Commit(ctx, idx); err != nil {
		_ = idx.Release(context.Background())
		return nil, err
	}
	committed = true

	s.logger.Info("Document indexed",
		"document_id", id,
		"filename", filename,
		"pages", extracted.Pages,
		"empty_pages", extracted.EmptyPages,
		"chunks", len(chunks),
		"reindex", build.Reindex(),
		"duration", time.Since(start),
	)
	return &UploadResult{Document: doc, Reindex: build.Reindex()}, nil
}

// stageFile 写入临时文件，提交成功后再替换正式文件
func (s *Service) stageFile(id string, data []byte) (string, error) {
	if err := os.MkdirAll(s.opts.UploadsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create uploads directory: %w", err)
	}
	f, err := os.CreateTemp(s.opts.UploadsDir, id+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to stage upload: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to stage upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to stage upload: %w", err)
	}
	return f.Name(), nil
}

func (s *Service) filePath(id string) string {
	return filepath.Join(s.opts.UploadsDir, id+".pdf")
}

// Delete 删除会话、元数据、历史和文件
// 元数据和文件在持有会话轮次时删除，与并发上传的提交互斥
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.sessions.DeleteWith(ctx, id, func(ctx context.Context) error {
		return s.removeStored(ctx, id)
	})
	if err == nil {
		s.logger.Info("Document deleted", "document_id", id)
		return nil
	}
	if !errors.Is(err, domainSession.ErrNotFound) {
		return err
	}

	// 重启后会话不在内存中，只剩元数据
	if _, getErr := s.repo.Get(ctx, id); getErr != nil {
		return err
	}
	if s.history != nil {
		if err := s.history.DeleteByDocument(ctx, id); err != nil {
			s.logger.Warn("Failed to delete history", "document_id", id, "error", err)
		}
	}
	if err := s.removeStored(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Document deleted", "document_id", id)
	return nil
}

// removeStored 删除元数据和保存的文件
func (s *Service) removeStored(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := os.Remove(s.filePath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("Failed to remove stored file", "document_id", id, "error", err)
	}
	return nil
}

// Get 返回文档元数据和会话状态
func (s *Service) Get(ctx context.Context, id string) (*View, error) {
	info := s.sessions.State(id)
	doc, err := s.repo.Get(ctx, id)
	if errors.Is(err, domainDocument.ErrDocumentNotFound) {
		if info.State != domainSession.StateBuilding {
			return nil, err
		}
		// 首次构建中，元数据尚未写入
		doc = &domainDocument.Document{ID: id}
	} else if err != nil {
		return nil, err
	}
	return &View{Document: doc, Session: info}, nil
}

// List 返回所有文档，包括首次构建中的
func (s *Service) List(ctx context.Context) ([]*View, error) {
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(docs))
	views := make([]*View, 0, len(docs))
	for _, doc := range docs {
		known[doc.ID] = true
		views = append(views, &View{Document: doc, Session: s.sessions.State(doc.ID)})
	}
	for _, info := range s.sessions.List() {
		if info.State == domainSession.StateBuilding && !known[info.DocumentID] {
			views = append(views, &View{
				Document: &domainDocument.Document{ID: info.DocumentID},
				Session:  info,
			})
		}
	}
	return views, nil
}
