package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	appSession "github.com/docqa/backend/internal/application/session"
	"github.com/docqa/backend/internal/domain/document"
	"github.com/docqa/backend/internal/domain/qa"
	domainSession "github.com/docqa/backend/internal/domain/session"
	"github.com/docqa/backend/internal/infrastructure/chunker"
	"github.com/docqa/backend/internal/infrastructure/config"
	"github.com/docqa/backend/internal/infrastructure/embedding"
	"github.com/docqa/backend/internal/infrastructure/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockGenerator 模拟 Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, req qa.GenerateRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// truncateFitter 只保留前 n 段
type truncateFitter struct{ n int }

func (f truncateFitter) Fit(texts []string, budget int) []string {
	if len(texts) > f.n {
		return texts[:f.n]
	}
	return texts
}

const corpus = "Solar panels convert sunlight into electricity. " +
	"Wind turbines convert wind into electricity. " +
	"The museum opens at nine in the morning. " +
	"Tickets for the museum cost twelve euros. "

func setupSession(t *testing.T, id string) *appSession.Manager {
	t.Helper()
	m := appSession.NewManager(nil, nil)
	t.Cleanup(m.Close)

	chunks, err := chunker.Split(id, corpus, 48, 8)
	require.NoError(t, err)
	idx, err := vector.NewMemoryBuilder(time.Second).Build(context.Background(), id, chunks, embedding.NewLocalEmbedder(64))
	require.NoError(t, err)

	b, err := m.BeginBuild(id)
	require.NoError(t, err)
	require.NoError(t, b.Commit(context.Background(), idx))
	return m
}

func newOrchestrator(m *appSession.Manager, g qa.Generator) *Orchestrator {
	return NewOrchestrator(m, g, nil, Options{TopK: 2, RequestTimeout: time.Second})
}

func TestOrchestrator_Ask(t *testing.T) {
	m := setupSession(t, "doc")
	gen := new(MockGenerator)
	o := newOrchestrator(m, gen)

	gen.On("Generate", mock.Anything, mock.MatchedBy(func(req qa.GenerateRequest) bool {
		return req.Question == "How much do museum tickets cost?" &&
			len(req.Context) == 2 && len(req.History) == 0
	})).Return("Twelve euros.", nil).Once()

	answer, err := o.Ask(context.Background(), "doc", "  How much do museum tickets cost?  ")
	require.NoError(t, err)
	assert.Equal(t, "Twelve euros.", answer.Text)
	require.Len(t, answer.Sources, 2)
	assert.GreaterOrEqual(t, answer.Sources[0].Score, answer.Sources[1].Score)
	assert.Contains(t, strings.ToLower(answer.Sources[0].Preview+answer.Sources[1].Preview), "museum")

	// 第二次问答带上历史
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(req qa.GenerateRequest) bool {
		return len(req.History) == 1 && req.History[0].Answer == "Twelve euros."
	})).Return("Nine.", nil).Once()

	_, err = o.Ask(context.Background(), "doc", "When does it open?")
	require.NoError(t, err)

	history, err := o.History("doc")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "How much do museum tickets cost?", history[0].Question)
	assert.Equal(t, "Nine.", history[1].Answer)
	gen.AssertExpectations(t)
}

func TestOrchestrator_AskErrors(t *testing.T) {
	m := setupSession(t, "doc")
	gen := new(MockGenerator)
	o := newOrchestrator(m, gen)

	_, err := o.Ask(context.Background(), "doc", "   ")
	assert.ErrorIs(t, err, qa.ErrEmptyQuestion)

	_, err = o.Ask(context.Background(), "missing", "question")
	assert.ErrorIs(t, err, domainSession.ErrNotFound)

	_, err = m.BeginBuild("building")
	require.NoError(t, err)
	_, err = o.Ask(context.Background(), "building", "question")
	assert.ErrorIs(t, err, domainSession.ErrNotReady)

	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestOrchestrator_RetryOnce(t *testing.T) {
	m := setupSession(t, "doc")
	gen := new(MockGenerator)
	o := newOrchestrator(m, gen)

	gen.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("503")).Once()
	gen.On("Generate", mock.Anything, mock.Anything).Return("Recovered.", nil).Once()

	answer, err := o.Ask(context.Background(), "doc", "What do solar panels do?")
	require.NoError(t, err)
	assert.Equal(t, "Recovered.", answer.Text)
	gen.AssertNumberOfCalls(t, "Generate", 2)
}

func TestOrchestrator_GenerationFailureLeavesHistory(t *testing.T) {
	m := setupSession(t, "doc")
	gen := new(MockGenerator)
	o := newOrchestrator(m, gen)

	gen.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("boom")).Twice()

	_, err := o.Ask(context.Background(), "doc", "question")
	assert.ErrorIs(t, err, qa.ErrGenerationFailure)
	gen.AssertNumberOfCalls(t, "Generate", 2)

	history, err := o.History("doc")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestOrchestrator_EmptyAnswerIsFailure(t *testing.T) {
	m := setupSession(t, "doc")
	gen := new(MockGenerator)
	o := newOrchestrator(m, gen)

	gen.On("Generate", mock.Anything, mock.Anything).Return("  ", nil)

	_, err := o.Ask(context.Background(), "doc", "question")
	assert.ErrorIs(t, err, qa.ErrGenerationFailure)
}

func TestOrchestrator_MissingCredentialNotRetried(t *testing.T) {
	m := setupSession(t, "doc")
	gen := new(MockGenerator)
	o := newOrchestrator(m, gen)

	gen.On("Generate", mock.Anything, mock.Anything).Return("", qa.ErrMissingCredential)

	_, err := o.Ask(context.Background(), "doc", "question")
	assert.ErrorIs(t, err, qa.ErrGenerationFailure)
	assert.ErrorIs(t, err, qa.ErrMissingCredential)
	gen.AssertNumberOfCalls(t, "Generate", 1)
}

func TestOrchestrator_AttemptTimeout(t *testing.T) {
	m := setupSession(t, "doc")
	gen := new(MockGenerator)
	o := NewOrchestrator(m, gen, nil, Options{TopK: 1, RequestTimeout: 20 * time.Millisecond})

	gen.On("Generate", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	}).Return("", context.DeadlineExceeded)

	start := time.Now()
	_, err := o.Ask(context.Background(), "doc", "question")
	assert.ErrorIs(t, err, qa.ErrGenerationFailure)
	assert.Less(t, time.Since(start), time.Second)
	gen.AssertNumberOfCalls(t, "Generate", 2)
}

func TestOrchestrator_CallerCancelNotRetried(t *testing.T) {
	m := setupSession(t, "doc")
	gen := new(MockGenerator)
	o := newOrchestrator(m, gen)

	ctx, cancel := context.WithCancel(context.Background())
	gen.On("Generate", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		cancel()
	}).Return("", context.Canceled)

	_, err := o.Ask(ctx, "doc", "question")
	assert.ErrorIs(t, err, qa.ErrGenerationFailure)
	gen.AssertNumberOfCalls(t, "Generate", 1)
}

func TestOrchestrator_CannedReportsSkipHistory(t *testing.T) {
	m := setupSession(t, "doc")
	gen := new(MockGenerator)
	o := newOrchestrator(m, gen)

	_, err := m.AppendHistory(context.Background(), "doc", "earlier", "answer")
	require.NoError(t, err)

	gen.On("Generate", mock.Anything, mock.MatchedBy(func(req qa.GenerateRequest) bool {
		return req.Question == config.DefaultSummaryPrompt && len(req.History) == 0
	})).Return("Samenvatting.", nil).Once()
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(req qa.GenerateRequest) bool {
		return req.Question == config.DefaultFAQPrompt && len(req.History) == 0
	})).Return("FAQ.", nil).Once()

	summary, err := o.Summarize(context.Background(), "doc")
	require.NoError(t, err)
	assert.Equal(t, "Samenvatting.", summary.Text)

	faq, err := o.GenerateFAQ(context.Background(), "doc")
	require.NoError(t, err)
	assert.Equal(t, "FAQ.", faq.Text)

	history, err := o.History("doc")
	require.NoError(t, err)
	assert.Len(t, history, 1)
	gen.AssertExpectations(t)

	_, err = o.Summarize(context.Background(), "missing")
	assert.ErrorIs(t, err, domainSession.ErrNotFound)
}

func TestOrchestrator_FitterLimitsContext(t *testing.T) {
	m := setupSession(t, "doc")
	gen := new(MockGenerator)
	o := NewOrchestrator(m, gen, truncateFitter{n: 1}, Options{TopK: 3, RequestTimeout: time.Second})

	gen.On("Generate", mock.Anything, mock.MatchedBy(func(req qa.GenerateRequest) bool {
		return len(req.Context) == 1
	})).Return("ok", nil)

	answer, err := o.Ask(context.Background(), "doc", "electricity")
	require.NoError(t, err)
	assert.Len(t, answer.Sources, 1)
}

func TestOrchestrator_ReleasedIndex(t *testing.T) {
	m := appSession.NewManager(nil, nil)
	gen := new(MockGenerator)
	o := newOrchestrator(m, gen)

	b, err := m.BeginBuild("doc")
	require.NoError(t, err)
	require.NoError(t, b.Commit(context.Background(), releasedIndex{}))

	_, err = o.Ask(context.Background(), "doc", "question")
	assert.ErrorIs(t, err, document.ErrIndexNotReady)
}

func TestOrchestrator_RetrievalFailureIsGenerationFailure(t *testing.T) {
	m := appSession.NewManager(nil, nil)
	t.Cleanup(m.Close)
	gen := new(MockGenerator)
	o := newOrchestrator(m, gen)

	b, err := m.BeginBuild("doc")
	require.NoError(t, err)
	require.NoError(t, b.Commit(context.Background(), failingIndex{}))

	_, err = o.Ask(context.Background(), "doc", "question")
	assert.ErrorIs(t, err, qa.ErrGenerationFailure)
	assert.NotErrorIs(t, err, document.ErrEmbeddingFailure)

	_, err = o.Summarize(context.Background(), "doc")
	assert.ErrorIs(t, err, qa.ErrGenerationFailure)

	turns, err := o.History("doc")
	require.NoError(t, err)
	assert.Empty(t, turns)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

// failingIndex 查询时向量服务不可用
type failingIndex struct{}

func (failingIndex) Query(context.Context, string, int) ([]document.ScoredChunk, error) {
	return nil, fmt.Errorf("%w: provider down", document.ErrEmbeddingFailure)
}
func (failingIndex) Size() int { return 1 }
func (failingIndex) Release(context.Context) error { return nil }

type releasedIndex struct{}

func (releasedIndex) Query(context.Context, string, int) ([]document.ScoredChunk, error) {
	return nil, document.ErrIndexNotReady
}
func (releasedIndex) Size() int { return 0 }
func (releasedIndex) Release(context.Context) error { return nil }

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("  short "))
	long := strings.Repeat("é", previewRunes+10)
	p := preview(long)
	assert.True(t, strings.HasSuffix(p, "…"))
	assert.Equal(t, previewRunes+1, len([]rune(p)))
}
