package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/docqa/backend/internal/domain/qa"
	"github.com/docqa/backend/internal/domain/session"
	"github.com/docqa/backend/internal/infrastructure/config"
	"github.com/docqa/backend/internal/infrastructure/secret"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticKeys map[string]string

func (k staticKeys) Get(_ context.Context, name string) (string, error) {
	v, ok := k[name]
	if !ok {
		return "", secret.ErrNotFound
	}
	return v, nil
}

func newTestClient(url string, keys KeySource) *Client {
	return NewClient(Options{
		BaseURL:   url,
		Model:     "test-model",
		MaxTokens: 64,
		Keys:      keys,
		KeyName:   "llm_api_key",
	})
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("", qa.GenerateRequest{
		Question: "What?",
		Context:  []string{" first ", "second"},
		History:  []session.Turn{{Question: "q1", Answer: "a1"}},
	})

	assert.Contains(t, p.System, DefaultSystemPrompt)
	assert.Contains(t, p.System, "[1] first")
	assert.Contains(t, p.System, "[2] second")
	require.Len(t, p.Turns, 3)
	assert.Equal(t, Turn{Role: RoleUser, Content: "q1"}, p.Turns[0])
	assert.Equal(t, Turn{Role: RoleAssistant, Content: "a1"}, p.Turns[1])
	assert.Equal(t, Turn{Role: RoleUser, Content: "What?"}, p.Turns[2])

	custom := BuildPrompt("Be brief.", qa.GenerateRequest{Question: "x"})
	assert.Equal(t, "Be brief.", custom.System)
	assert.Len(t, custom.Turns, 1)
}

func TestClient_Generate(t *testing.T) {
	var got ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"  42  "}}],"usage":{"total_tokens":10}}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL+"/", staticKeys{"llm_api_key": "sk-test"})
	answer, err := c.Generate(context.Background(), qa.GenerateRequest{
		Question: "Meaning of life?",
		Context:  []string{"The answer is 42."},
		History:  []session.Turn{{Question: "hi", Answer: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "42", answer)

	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, 64, got.MaxTokens)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "The answer is 42.")
	assert.Equal(t, "assistant", got.Messages[2].Role)
	assert.Equal(t, "Meaning of life?", got.Messages[3].Content)
}

func TestClient_GenerateFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"no choices", http.StatusOK, `{"choices":[]}`},
		{"empty answer", http.StatusOK, `{"choices":[{"message":{"content":"   "}}]}`},
		{"bad json", http.StatusOK, `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := newTestClient(server.URL, staticKeys{"llm_api_key": "sk"})
			_, err := c.Generate(context.Background(), qa.GenerateRequest{Question: "q"})
			assert.Error(t, err)
		})
	}
}

func TestClient_MissingKey(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1", staticKeys{})
	_, err := c.Generate(context.Background(), qa.GenerateRequest{Question: "q"})
	assert.ErrorIs(t, err, qa.ErrMissingCredential)

	c = newTestClient("http://127.0.0.1:1", staticKeys{"llm_api_key": " "})
	_, err = c.Generate(context.Background(), qa.GenerateRequest{Question: "q"})
	assert.ErrorIs(t, err, qa.ErrMissingCredential)
}

func TestClient_KeyReadPerCall(t *testing.T) {
	var auth []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = append(auth, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	keys := staticKeys{"llm_api_key": "first"}
	c := newTestClient(server.URL, keys)
	_, err := c.Generate(context.Background(), qa.GenerateRequest{Question: "q"})
	require.NoError(t, err)

	keys["llm_api_key"] = "second"
	_, err = c.Generate(context.Background(), qa.GenerateRequest{Question: "q"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer first", "Bearer second"}, auth)
}

func TestClient_ContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	c := newTestClient(server.URL, staticKeys{"llm_api_key": "sk"})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Generate(ctx, qa.GenerateRequest{Question: "q"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewGenerator(t *testing.T) {
	cfg := config.NewDefaultConfig()
	keys := staticKeys{}

	assert.IsType(t, &Client{}, NewGenerator(cfg, keys))

	cfg.LLM.Provider = "anthropic"
	g := NewGenerator(cfg, keys)
	require.IsType(t, &AnthropicGenerator{}, g)
	assert.Empty(t, g.(*AnthropicGenerator).opts.BaseURL)

	cfg.LLM.Provider = "gemini"
	assert.IsType(t, &GeminiGenerator{}, NewGenerator(cfg, keys))
}

func TestProviders_MissingKey(t *testing.T) {
	req := qa.GenerateRequest{Question: "q"}

	_, err := NewAnthropicGenerator(Options{Keys: staticKeys{}, KeyName: "k"}).Generate(context.Background(), req)
	assert.ErrorIs(t, err, qa.ErrMissingCredential)

	_, err = NewGeminiGenerator(Options{Keys: staticKeys{}, KeyName: "k"}).Generate(context.Background(), req)
	assert.ErrorIs(t, err, qa.ErrMissingCredential)
}
