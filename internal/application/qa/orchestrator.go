// Package qa 编排检索增强问答：检索、组装上下文、生成、记录历史
package qa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	appSession "github.com/docqa/backend/internal/application/session"
	"github.com/docqa/backend/internal/domain/document"
	"github.com/docqa/backend/internal/domain/qa"
	domainSession "github.com/docqa/backend/internal/domain/session"
	"github.com/docqa/backend/internal/infrastructure/config"
	"github.com/docqa/backend/internal/infrastructure/log"
)

// maxAttempts 生成最多尝试次数
const maxAttempts = 2

// previewRunes 来源预览长度
const previewRunes = 200

// ContextFitter 按 Token 预算截取上下文
type ContextFitter interface {
	Fit(texts []string, budget int) []string
}

// Options 编排参数
type Options struct {
	TopK           int
	RequestTimeout time.Duration
	TokenBudget    int
	SummaryPrompt  string
	FAQPrompt      string
}

// OptionsFromConfig 从配置读取编排参数
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		TopK:           cfg.RAG.TopK,
		RequestTimeout: cfg.RAG.RequestTimeout(),
		TokenBudget:    cfg.RAG.ContextTokenBudget,
		SummaryPrompt:  cfg.Prompts.Summary,
		FAQPrompt:      cfg.Prompts.FAQ,
	}
}

// Orchestrator 问答编排
type Orchestrator struct {
	sessions  *appSession.Manager
	generator qa.Generator
	fitter    ContextFitter
	opts      Options
	logger    *slog.Logger
}

// NewOrchestrator 创建问答编排，fitter 为 nil 时不限制上下文长度
func NewOrchestrator(sessions *appSession.Manager, generator qa.Generator, fitter ContextFitter, opts Options) *Orchestrator {
	if opts.TopK <= 0 {
		opts.TopK = 4
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.SummaryPrompt == "" {
		opts.SummaryPrompt = config.DefaultSummaryPrompt
	}
	if opts.FAQPrompt == "" {
		opts.FAQPrompt = config.DefaultFAQPrompt
	}
	return &Orchestrator{
		sessions:  sessions,
		generator: generator,
		fitter:    fitter,
		opts:      opts,
		logger:    log.NewModuleLogger("qa", "orchestrator"),
	}
}

// Ask 回答问题并追加到会话历史
func (o *Orchestrator) Ask(ctx context.Context, documentID, question string) (*qa.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, qa.ErrEmptyQuestion
	}

	var answer *qa.Answer
	err := o.sessions.WithSession(ctx, documentID, func(s *appSession.Session) error {
		a, err := o.answer(ctx, s, question, s.History)
		if err != nil {
			return err
		}
		if _, err := o.sessions.AppendHistory(ctx, documentID, question, a.Text); err != nil {
			return err
		}
		answer = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.logger.Info("Question answered",
		"document_id", documentID,
		"sources", len(answer.Sources),
	)
	return answer, nil
}

// Summarize 生成文档摘要，不读写对话历史
func (o *Orchestrator) Summarize(ctx context.Context, documentID string) (*qa.Answer, error) {
	return o.canned(ctx, documentID, o.opts.SummaryPrompt)
}

// GenerateFAQ 生成常见问题，不读写对话历史
func (o *Orchestrator) GenerateFAQ(ctx context.Context, documentID string) (*qa.Answer, error) {
	return o.canned(ctx, documentID, o.opts.FAQPrompt)
}

// History 返回会话的对话历史
func (o *Orchestrator) History(documentID string) ([]domainSession.Turn, error) {
	return o.sessions.History(documentID)
}

func (o *Orchestrator) canned(ctx context.Context, documentID, prompt string) (*qa.Answer, error) {
	var answer *qa.Answer
	err := o.sessions.WithSession(ctx, documentID, func(s *appSession.Session) error {
		a, err := o.answer(ctx, s, prompt, nil)
		answer = a
		return err
	})
	if err != nil {
		return nil, err
	}
	return answer, nil
}

// answer 检索并生成
func (o *Orchestrator) answer(ctx context.Context, s *appSession.Session, question string, history []domainSession.Turn) (*qa.Answer, error) {
	hits, err := s.Index.Query(ctx, question, o.opts.TopK)
	if errors.Is(err, document.ErrIndexNotReady) {
		return nil, err
	}
	if err != nil {
		// 检索失败同样是无法生成回答
		return nil, fmt.Errorf("%w: retrieval: %v", qa.ErrGenerationFailure, err)
	}

	passages := make([]string, len(hits))
	for i, h := range hits {
		passages[i] = h.Chunk.Text
	}
	if o.fitter != nil {
		passages = o.fitter.Fit(passages, o.opts.TokenBudget)
	}

	text, err := o.generate(ctx, qa.GenerateRequest{
		Question: question,
		Context:  passages,
		History:  history,
	})
	if err != nil {
		return nil, err
	}

	sources := make([]qa.Source, len(passages))
	for i := range passages {
		sources[i] = qa.Source{
			ChunkIndex: hits[i].Chunk.Index,
			Score:      hits[i].Score,
			Preview:    preview(hits[i].Chunk.Text),
		}
	}
	return &qa.Answer{Text: text, Sources: sources}, nil
}

// generate 每次尝试单独计时，失败最多重试一次
func (o *Orchestrator) generate(ctx context.Context, req qa.GenerateRequest) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, o.opts.RequestTimeout)
		text, err := o.generator.Generate(attemptCtx, req)
		cancel()

		if err == nil {
			if strings.TrimSpace(text) != "" {
				return text, nil
			}
			err = errors.New("empty answer")
		}
		lastErr = err

		o.logger.Warn("Generation attempt failed",
			"attempt", attempt,
			"error", err,
		)
		if ctx.Err() != nil || errors.Is(err, qa.ErrMissingCredential) {
			break
		}
	}
	return "", fmt.Errorf("%w: %w", qa.ErrGenerationFailure, lastErr)
}

func preview(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewRunes]) + "…"
}
