package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvHTTPPort, EnvChunkSize, EnvChunkOverlap, EnvTopK, EnvEmbeddingDimension,
		EnvRequestTimeoutMs, EnvEmbeddingProvider, EnvEmbeddingURL, EnvEmbeddingModel,
		EnvLLMProvider, EnvLLMURL, EnvLLMModel, EnvVectorBackend, EnvQdrantHost, EnvQdrantPort,
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":19970", cfg.Server.HTTPPort)
	assert.Equal(t, 1000, cfg.RAG.ChunkSize)
	assert.Equal(t, 200, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 4, cfg.RAG.TopK)
	assert.Equal(t, 0, cfg.RAG.EmbeddingDimension)
	assert.Equal(t, 30*time.Second, cfg.RAG.RequestTimeout())
	assert.Equal(t, DefaultSummaryPrompt, cfg.Prompts.Summary)
	assert.Equal(t, DefaultFAQPrompt, cfg.Prompts.FAQ)
	assert.Equal(t, "memory", cfg.Vector.Backend)
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
rag:
  chunk_size: 500
  chunk_overlap: 50
llm:
  provider: anthropic
  model: claude-3-5-haiku-latest
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.RAG.ChunkSize)
	assert.Equal(t, 50, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 4, cfg.RAG.TopK, "未设置的字段应保留默认值")
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "claude-3-5-haiku-latest", cfg.LLM.Model)
}

func TestLoad_EnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvHTTPPort, ":29970")
	t.Setenv(EnvChunkSize, "800")
	t.Setenv(EnvTopK, "6")
	t.Setenv(EnvRequestTimeoutMs, "5000")
	t.Setenv(EnvVectorBackend, "qdrant")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":29970", cfg.Server.HTTPPort)
	assert.Equal(t, 800, cfg.RAG.ChunkSize)
	assert.Equal(t, 6, cfg.RAG.TopK)
	assert.Equal(t, 5*time.Second, cfg.RAG.RequestTimeout())
	assert.Equal(t, "qdrant", cfg.Vector.Backend)
}

func TestLoad_InvalidEnvNumber(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvChunkSize, "abc")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"overlap equal to size", map[string]string{EnvChunkSize: "100", EnvChunkOverlap: "100"}},
		{"negative overlap", map[string]string{EnvChunkOverlap: "-1"}},
		{"zero chunk size", map[string]string{EnvChunkSize: "0"}},
		{"zero top k", map[string]string{EnvTopK: "0"}},
		{"zero timeout", map[string]string{EnvRequestTimeoutMs: "0"}},
		{"unknown llm provider", map[string]string{EnvLLMProvider: "foo"}},
		{"unknown vector backend", map[string]string{EnvVectorBackend: "chroma"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rag: [oops"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDatabasePath(t *testing.T) {
	ResetDataDir()
	t.Cleanup(ResetDataDir)
	t.Setenv(EnvDataDir, "/data/docqa")

	cfg := NewDefaultConfig()
	assert.Equal(t, filepath.Join("/data/docqa", "docqa.db"), cfg.DatabasePath())

	cfg.Database.Path = "/tmp/custom.db"
	assert.Equal(t, "/tmp/custom.db", cfg.DatabasePath())
}
