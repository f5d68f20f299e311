package log

import (
	"context"
	"log/slog"
)

type ctxKey string

const (
	// RequestContextID HTTP 请求 ID
	RequestContextID ctxKey = "request_id"
	// DocumentContextID 文档（会话）ID
	DocumentContextID ctxKey = "document_id"
)

// WithRequestID 在上下文中添加请求 ID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestContextID, requestID)
}

// WithDocumentID 在上下文中添加文档 ID
func WithDocumentID(ctx context.Context, documentID string) context.Context {
	return context.WithValue(ctx, DocumentContextID, documentID)
}

// LogCtxFromContext 从上下文中提取日志字段
func LogCtxFromContext(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	if v, ok := ctx.Value(RequestContextID).(string); ok && v != "" {
		attrs = append(attrs, slog.String(string(RequestContextID), v))
	}
	if v, ok := ctx.Value(DocumentContextID).(string); ok && v != "" {
		attrs = append(attrs, slog.String(string(DocumentContextID), v))
	}
	return attrs
}
