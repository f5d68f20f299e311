package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docqa/backend/internal/domain/qa"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ListDocumentsInput 文档列表工具输入（空输入）
type ListDocumentsInput struct{}

// DocumentSummary 文档信息
type DocumentSummary struct {
	ID         string `json:"id" jsonschema:"Document ID"`
	Filename   string `json:"filename" jsonschema:"Original file name"`
	Pages      int    `json:"pages" jsonschema:"Number of pages"`
	Chunks     int    `json:"chunks" jsonschema:"Number of indexed chunks"`
	State      string `json:"state" jsonschema:"Session state: absent/building/ready/deleted"`
	Turns      int    `json:"turns" jsonschema:"Number of questions answered so far"`
	UploadedAt string `json:"uploaded_at,omitempty" jsonschema:"Upload time in RFC3339"`
}

// ListDocumentsOutput 文档列表工具输出
type ListDocumentsOutput struct {
	Documents []DocumentSummary `json:"documents" jsonschema:"Uploaded documents"`
	Total     int               `json:"total" jsonschema:"Number of documents"`
}

// AskDocumentInput 问答工具输入
type AskDocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"Document ID (required)"`
	Question   string `json:"question" jsonschema:"Question about the document (required)"`
}

// SourceOutput 回答引用的段落
type SourceOutput struct {
	ChunkIndex int     `json:"chunk_index" jsonschema:"Chunk position in the document"`
	Score      float32 `json:"score" jsonschema:"Cosine similarity to the question"`
	Preview    string  `json:"preview" jsonschema:"Beginning of the passage"`
}

// AskDocumentOutput 问答工具输出
type AskDocumentOutput struct {
	Answer  string         `json:"answer" jsonschema:"Generated answer"`
	Sources []SourceOutput `json:"sources" jsonschema:"Passages used as context"`
}

// DocumentInput 只需要文档 ID 的工具输入
type DocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"Document ID (required)"`
}

// ReportOutput 摘要和 FAQ 工具输出
type ReportOutput struct {
	DocumentID string `json:"document_id" jsonschema:"Document ID"`
	Text       string `json:"text" jsonschema:"Generated report"`
}

func (s *MCPServer) listDocumentsTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	output := ListDocumentsOutput{Documents: []DocumentSummary{}}

	views, err := s.documents.List(ctx)
	if err != nil {
		return nil, output, fmt.Errorf("failed to list documents: %w", err)
	}
	for _, v := range views {
		d := DocumentSummary{
			ID:       v.ID,
			Filename: v.Filename,
			Pages:    v.Pages,
			Chunks:   v.Chunks,
			State:    string(v.Session.State),
			Turns:    v.Session.Turns,
		}
		if !v.UploadedAt.IsZero() {
			d.UploadedAt = v.UploadedAt.Format(time.RFC3339)
		}
		output.Documents = append(output.Documents, d)
	}
	output.Total = len(output.Documents)
	return nil, output, nil
}

func (s *MCPServer) askDocumentTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input AskDocumentInput,
) (*mcp.CallToolResult, AskDocumentOutput, error) {
	output := AskDocumentOutput{Sources: []SourceOutput{}}

	if strings.TrimSpace(input.DocumentID) == "" {
		return nil, output, fmt.Errorf("document_id is required")
	}
	answer, err := s.qa.Ask(ctx, input.DocumentID, input.Question)
	if err != nil {
		return nil, output, err
	}

	output.Answer = answer.Text
	output.Sources = toSources(answer.Sources)
	s.logger.Info("MCP question answered", "document_id", input.DocumentID)
	return nil, output, nil
}

func (s *MCPServer) summarizeDocumentTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, ReportOutput, error) {
	return s.report(ctx, input, s.qa.Summarize)
}

func (s *MCPServer) generateFAQTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, ReportOutput, error) {
	return s.report(ctx, input, s.qa.GenerateFAQ)
}

func (s *MCPServer) report(
	ctx context.Context,
	input DocumentInput,
	generate func(context.Context, string) (*qa.Answer, error),
) (*mcp.CallToolResult, ReportOutput, error) {
	output := ReportOutput{DocumentID: input.DocumentID}
	if strings.TrimSpace(input.DocumentID) == "" {
		return nil, output, fmt.Errorf("document_id is required")
	}
	answer, err := generate(ctx, input.DocumentID)
	if err != nil {
		return nil, output, err
	}
	output.Text = answer.Text
	return nil, output, nil
}

func toSources(sources []qa.Source) []SourceOutput {
	out := make([]SourceOutput, len(sources))
	for i, src := range sources {
		out[i] = SourceOutput{ChunkIndex: src.ChunkIndex, Score: src.Score, Preview: src.Preview}
	}
	return out
}
