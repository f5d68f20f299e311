package mcp

import (
	"log/slog"
	"net/http"

	appDocument "github.com/docqa/backend/internal/application/document"
	appQA "github.com/docqa/backend/internal/application/qa"
	"github.com/docqa/backend/internal/infrastructure/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version 服务版本
const Version = "0.1.0"

// MCPServer MCP 服务器
type MCPServer struct {
	server    *mcp.Server
	handler   http.Handler
	documents *appDocument.Service
	qa        *appQA.Orchestrator
	logger    *slog.Logger
}

// NewServer 创建 MCP 服务器
func NewServer(documents *appDocument.Service, orchestrator *appQA.Orchestrator) *MCPServer {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "docqa",
			Version: Version,
		},
		nil, // 使用默认能力
	)

	s := &MCPServer{
		server:    server,
		documents: documents,
		qa:        orchestrator,
		logger:    log.NewModuleLogger("mcp", "server"),
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List uploaded documents with their index state. No parameters required. Returns: documents with id, filename, pages, chunks and session state (building/ready/deleted).",
	}, s.listDocumentsTool)

	mcp.AddTool(server, &mcp.Tool{
		Name: "ask_document",
		Description: `Ask a question about an uploaded document. The question and answer are appended to the document's conversation history, so follow-up questions can refer to earlier answers.

Parameters:
- document_id (string, required): Document ID returned by list_documents or the upload API
- question (string, required): Natural language question

Returns: answer text and the source passages used to answer.`,
	}, s.askDocumentTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "summarize_document",
		Description: "Generate a short summary of an uploaded document. Does not change the conversation history. Parameters: document_id (string, required). Returns: summary text.",
	}, s.summarizeDocumentTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_document_faq",
		Description: "Generate five frequently asked questions with answers about an uploaded document. Does not change the conversation history. Parameters: document_id (string, required). Returns: FAQ text.",
	}, s.generateFAQTool)

	s.handler = mcp.NewSSEHandler(
		func(r *http.Request) *mcp.Server {
			// 每个请求返回同一个服务器实例
			return server
		},
		nil,
	)
	return s
}

// GetHandler 获取 HTTP Handler（用于集成到 HTTP 服务器）
func (s *MCPServer) GetHandler() http.Handler {
	return s.handler
}
