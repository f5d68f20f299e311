package handler

import (
	"context"
	"log/slog"
	"net/http"

	appQA "github.com/docqa/backend/internal/application/qa"
	"github.com/docqa/backend/internal/domain/qa"
	"github.com/docqa/backend/internal/infrastructure/log"
	"github.com/docqa/backend/internal/interfaces/http/response"
	"github.com/gin-gonic/gin"
)

// QAHandler 问答处理器
type QAHandler struct {
	qa     *appQA.Orchestrator
	logger *slog.Logger
}

// NewQAHandler 创建问答处理器
func NewQAHandler(orchestrator *appQA.Orchestrator) *QAHandler {
	return &QAHandler{
		qa:     orchestrator,
		logger: log.NewModuleLogger("qa", "handler"),
	}
}

// AskRequest 提问请求
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// Ask 提问
// POST /api/v1/documents/:id/ask
func (h *QAHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest, "invalid request: "+err.Error())
		return
	}

	id := c.Param("id")
	ctx := log.WithDocumentID(c.Request.Context(), id)
	answer, err := h.qa.Ask(ctx, id, req.Question)
	if err != nil {
		h.logger.Warn("Ask failed", "document_id", id, "error", err)
		response.FromError(c, err, response.NoDocumentMessage)
		return
	}
	response.Success(c, answer)
}

// Summarize 生成摘要
// GET /api/v1/documents/:id/summarize
func (h *QAHandler) Summarize(c *gin.Context) {
	h.report(c, "summary", h.qa.Summarize)
}

// FAQ 生成常见问题
// GET /api/v1/documents/:id/faq
func (h *QAHandler) FAQ(c *gin.Context) {
	h.report(c, "faq", h.qa.GenerateFAQ)
}

// History 对话历史
// GET /api/v1/documents/:id/history
func (h *QAHandler) History(c *gin.Context) {
	id := c.Param("id")
	turns, err := h.qa.History(id)
	if err != nil {
		response.FromError(c, err, response.NoDocumentMessage)
		return
	}
	response.Success(c, gin.H{
		"document_id": id,
		"history":     turns,
	})
}

func (h *QAHandler) report(c *gin.Context, key string, generate func(ctx context.Context, id string) (*qa.Answer, error)) {
	id := c.Param("id")
	answer, err := generate(log.WithDocumentID(c.Request.Context(), id), id)
	if err != nil {
		h.logger.Warn("Report failed", "document_id", id, "report", key, "error", err)
		response.FromError(c, err, response.NoDocumentMessage)
		return
	}
	response.Success(c, gin.H{key: answer.Text})
}
