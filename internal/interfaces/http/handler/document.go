package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	appDocument "github.com/docqa/backend/internal/application/document"
	"github.com/docqa/backend/internal/infrastructure/config"
	"github.com/docqa/backend/internal/infrastructure/log"
	"github.com/docqa/backend/internal/interfaces/http/response"
	"github.com/gin-gonic/gin"
)

// DocumentHandler 文档处理器
type DocumentHandler struct {
	documents *appDocument.Service
	maxBytes  int64
	logger    *slog.Logger
}

// NewDocumentHandler 创建文档处理器
func NewDocumentHandler(documents *appDocument.Service, cfg *config.Config) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		maxBytes:  int64(cfg.Server.MaxUploadMB) << 20,
		logger:    log.NewModuleLogger("document", "handler"),
	}
}

// UploadResponse 上传响应
type UploadResponse struct {
	Status     string `json:"status"`
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
	Pages      int    `json:"pages"`
	Reindex    bool   `json:"reindex"`
}

// Upload 上传 PDF 并构建索引
// POST /api/v1/documents
func (h *DocumentHandler) Upload(c *gin.Context) {
	// 预留 1MB 给 multipart 头部
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+1<<20)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodeTooLarge, "document too large")
			return
		}
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest, "file is required")
		return
	}
	if fileHeader.Size > h.maxBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeTooLarge, "document too large")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.ErrorWithDetail(c, http.StatusBadRequest, response.CodeInvalidRequest, "failed to read file", err.Error())
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.ErrorWithDetail(c, http.StatusBadRequest, response.CodeInvalidRequest, "failed to read file", err.Error())
		return
	}

	result, err := h.documents.Upload(c.Request.Context(), appDocument.UploadRequest{
		DocumentID: c.PostForm("document_id"),
		Filename:   fileHeader.Filename,
		Data:       data,
	})
	if err != nil {
		h.logger.Warn("Upload failed", "filename", fileHeader.Filename, "error", err)
		response.FromError(c, err, "")
		return
	}

	response.Success(c, UploadResponse{
		Status:     "success",
		DocumentID: result.Document.ID,
		Chunks:     result.Document.Chunks,
		Pages:      result.Document.Pages,
		Reindex:    result.Reindex,
	})
}

// Reindex 使用已保存的文件重建索引
// POST /api/v1/documents/:id/reindex
func (h *DocumentHandler) Reindex(c *gin.Context) {
	result, err := h.documents.Reindex(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err, "")
		return
	}
	response.Success(c, UploadResponse{
		Status:     "success",
		DocumentID: result.Document.ID,
		Chunks:     result.Document.Chunks,
		Pages:      result.Document.Pages,
		Reindex:    result.Reindex,
	})
}

// List 文档列表
// GET /api/v1/documents
func (h *DocumentHandler) List(c *gin.Context) {
	views, err := h.documents.List(c.Request.Context())
	if err != nil {
		response.FromError(c, err, "")
		return
	}
	response.Success(c, gin.H{
		"documents": views,
		"total":     len(views),
	})
}

// Get 文档详情
// GET /api/v1/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	view, err := h.documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err, "")
		return
	}
	response.Success(c, view)
}

// Delete 删除文档
// DELETE /api/v1/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.documents.Delete(c.Request.Context(), id); err != nil {
		response.FromError(c, err, "")
		return
	}
	response.Success(c, gin.H{
		"status":      "success",
		"document_id": id,
	})
}
