package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/docqa/backend/internal/domain/document"
	"github.com/docqa/backend/internal/domain/qa"
	"github.com/docqa/backend/internal/domain/session"
	"github.com/gin-gonic/gin"
)

// 业务错误码
const (
	CodeInvalidRequest    = 1000
	CodeMalformedDocument = 1001
	CodeEmptyDocument     = 1002
	CodeEmptyInput        = 1003
	CodeEmbeddingFailure  = 1004
	CodeConflict          = 1005
	CodeNotFound          = 1006
	CodeNotReady          = 1007
	CodeIndexNotReady     = 1008
	CodeGenerationFailure = 1009
	CodeTooLarge          = 1010
	CodeTimeout           = 1011
	CodeInternal          = 1099
)

// NoDocumentMessage 会话不存在时提示用户先上传
const NoDocumentMessage = "Upload een document eerst"

type errorMapping struct {
	target   error
	status   int
	code     int
	message  string
	notFound bool
}

// errorTable 按顺序匹配，第一个命中的生效
var errorTable = []errorMapping{
	{target: qa.ErrEmptyQuestion, status: http.StatusBadRequest, code: CodeInvalidRequest, message: "question is required"},
	{target: document.ErrInvalidDocumentID, status: http.StatusBadRequest, code: CodeInvalidRequest, message: "invalid document id"},
	{target: document.ErrInvalidChunkParams, status: http.StatusBadRequest, code: CodeInvalidRequest, message: "invalid chunk parameters"},
	{target: document.ErrDocumentTooLarge, status: http.StatusRequestEntityTooLarge, code: CodeTooLarge, message: "document too large"},
	{target: document.ErrMalformedDocument, status: http.StatusUnprocessableEntity, code: CodeMalformedDocument, message: "document could not be parsed"},
	{target: document.ErrEmptyDocument, status: http.StatusUnprocessableEntity, code: CodeEmptyDocument, message: "document contains no extractable text"},
	{target: document.ErrEmptyInput, status: http.StatusUnprocessableEntity, code: CodeEmptyInput, message: "nothing to index"},
	{target: document.ErrEmbeddingFailure, status: http.StatusBadGateway, code: CodeEmbeddingFailure, message: "embedding service failed"},
	{target: session.ErrConflict, status: http.StatusConflict, code: CodeConflict, message: "document is being indexed"},
	{target: session.ErrNotReady, status: http.StatusConflict, code: CodeNotReady, message: "document is still being indexed"},
	{target: session.ErrNotFound, status: http.StatusNotFound, code: CodeNotFound, message: "document not found", notFound: true},
	{target: document.ErrDocumentNotFound, status: http.StatusNotFound, code: CodeNotFound, message: "document not found", notFound: true},
	{target: document.ErrIndexNotReady, status: http.StatusServiceUnavailable, code: CodeIndexNotReady, message: "index not available"},
	{target: qa.ErrGenerationFailure, status: http.StatusBadGateway, code: CodeGenerationFailure, message: "answer generation failed"},
	{target: context.DeadlineExceeded, status: http.StatusGatewayTimeout, code: CodeTimeout, message: "request timed out"},
}

// Status 返回错误对应的 HTTP 状态码和业务错误码
func Status(err error) (int, int) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

// FromError 把领域错误写成统一的错误响应
// notFoundMessage 非空时替换 404 的提示语
func FromError(c *gin.Context, err error, notFoundMessage string) {
	for _, m := range errorTable {
		if !errors.Is(err, m.target) {
			continue
		}
		message := m.message
		if m.notFound && notFoundMessage != "" {
			message = notFoundMessage
		}
		ErrorWithDetail(c, m.status, m.code, message, err.Error())
		return
	}
	ErrorWithDetail(c, http.StatusInternalServerError, CodeInternal, "internal error", err.Error())
}
