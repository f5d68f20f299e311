package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// 环境变量名
const (
	EnvConfigFile         = "DOCQA_CONFIG"
	EnvHTTPPort           = "DOCQA_HTTP_PORT"
	EnvChunkSize          = "DOCQA_CHUNK_SIZE"
	EnvChunkOverlap       = "DOCQA_CHUNK_OVERLAP"
	EnvTopK               = "DOCQA_TOP_K"
	EnvEmbeddingDimension = "DOCQA_EMBEDDING_DIMENSION"
	EnvRequestTimeoutMs   = "DOCQA_REQUEST_TIMEOUT_MS"
	EnvEmbeddingProvider  = "DOCQA_EMBEDDING_PROVIDER"
	EnvEmbeddingURL       = "DOCQA_EMBEDDING_URL"
	EnvEmbeddingModel     = "DOCQA_EMBEDDING_MODEL"
	EnvLLMProvider        = "DOCQA_LLM_PROVIDER"
	EnvLLMURL             = "DOCQA_LLM_URL"
	EnvLLMModel           = "DOCQA_LLM_MODEL"
	EnvVectorBackend      = "DOCQA_VECTOR_BACKEND"
	EnvQdrantHost         = "DOCQA_QDRANT_HOST"
	EnvQdrantPort         = "DOCQA_QDRANT_PORT"
)

// DefaultLLMURL OpenAI 兼容接口的默认地址
const DefaultLLMURL = "https://api.openai.com/v1"

// 默认的摘要和 FAQ 提问
const (
	DefaultSummaryPrompt = "Maak een korte en duidelijke samenvatting van dit document."
	DefaultFAQPrompt     = "Genereer een lijst met 5 veel voorkomende vragen en antwoorden over dit document."
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	RAG       RAGConfig       `yaml:"rag"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Vector    VectorConfig    `yaml:"vector"`
	Prompts   PromptConfig    `yaml:"prompts"`
	Discovery DiscoveryConfig `yaml:"discovery"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTPPort    string `yaml:"http_port" validate:"required"` // 固定端口，同时用于单例锁
	MaxUploadMB int    `yaml:"max_upload_mb" validate:"gt=0"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Path string `yaml:"path"` // 空表示 <dataDir>/docqa.db
}

// RAGConfig 分块、检索和超时配置
type RAGConfig struct {
	ChunkSize          int `yaml:"chunk_size" validate:"gt=0"`
	ChunkOverlap       int `yaml:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`
	TopK               int `yaml:"top_k" validate:"gt=0"`
	EmbeddingDimension int `yaml:"embedding_dimension" validate:"gte=0"` // 0 表示由第一个向量决定
	RequestTimeoutMs   int `yaml:"request_timeout_ms" validate:"gt=0"`
	ContextTokenBudget int `yaml:"context_token_budget" validate:"gte=0"` // 0 表示不限制
}

// RequestTimeout 外部调用超时
func (c RAGConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// EmbeddingConfig 向量化服务配置
type EmbeddingConfig struct {
	Provider   string  `yaml:"provider" validate:"oneof=local openai gemini"`
	URL        string  `yaml:"url"`
	Model      string  `yaml:"model"`
	SecretName string  `yaml:"secret_name" validate:"required"` // 密钥库中 API Key 的名称
	BatchSize  int     `yaml:"batch_size" validate:"gt=0"`
	RateLimit  float64 `yaml:"rate_limit" validate:"gte=0"` // 每秒请求数，0 表示不限流
	Burst      int     `yaml:"burst" validate:"gte=1"`
}

// LLMConfig 回答生成服务配置
type LLMConfig struct {
	Provider    string  `yaml:"provider" validate:"oneof=openai anthropic gemini"`
	URL         string  `yaml:"url"`
	Model       string  `yaml:"model" validate:"required"`
	SecretName  string  `yaml:"secret_name" validate:"required"`
	Temperature float64 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `yaml:"max_tokens" validate:"gt=0"`
}

// VectorConfig 向量索引后端配置
type VectorConfig struct {
	Backend    string `yaml:"backend" validate:"oneof=memory qdrant"`
	QdrantHost string `yaml:"qdrant_host"`
	QdrantPort int    `yaml:"qdrant_port" validate:"gte=0,lte=65535"`
}

// PromptConfig 提示词配置
type PromptConfig struct {
	System  string `yaml:"system"`
	Summary string `yaml:"summary" validate:"required"`
	FAQ     string `yaml:"faq" validate:"required"`
}

// DiscoveryConfig 局域网 mDNS 广播配置
type DiscoveryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	InstanceName string `yaml:"instance_name"`
}

// NewDefaultConfig 默认配置
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:    ":19970",
			MaxUploadMB: 20,
		},
		RAG: RAGConfig{
			ChunkSize:          1000,
			ChunkOverlap:       200,
			TopK:               4,
			EmbeddingDimension: 0,
			RequestTimeoutMs:   30000,
			ContextTokenBudget: 3000,
		},
		Embedding: EmbeddingConfig{
			Provider:   "local",
			SecretName: "llm_api_key",
			BatchSize:  64,
			Burst:      1,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			URL:         DefaultLLMURL,
			Model:       "gpt-4o-mini",
			SecretName:  "llm_api_key",
			Temperature: 0,
			MaxTokens:   1024,
		},
		Vector: VectorConfig{
			Backend:    "memory",
			QdrantHost: "localhost",
			QdrantPort: 6334,
		},
		Prompts: PromptConfig{
			Summary: DefaultSummaryPrompt,
			FAQ:     DefaultFAQPrompt,
		},
		Discovery: DiscoveryConfig{
			InstanceName: "docqa",
		},
	}
}

// NewConfig 从默认位置加载配置
// 优先 DOCQA_CONFIG，其次 <dataDir>/config.yaml，文件不存在时使用默认值
func NewConfig() (*Config, error) {
	path := os.Getenv(EnvConfigFile)
	if path == "" {
		path = filepath.Join(GetDataDir(), "config.yaml")
	}
	return Load(path)
}

// Load 加载配置文件并应用环境变量覆盖
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DatabasePath 数据库文件路径
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(GetDataDir(), "docqa.db")
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		EnvHTTPPort:          &cfg.Server.HTTPPort,
		EnvEmbeddingProvider: &cfg.Embedding.Provider,
		EnvEmbeddingURL:      &cfg.Embedding.URL,
		EnvEmbeddingModel:    &cfg.Embedding.Model,
		EnvLLMProvider:       &cfg.LLM.Provider,
		EnvLLMURL:            &cfg.LLM.URL,
		EnvLLMModel:          &cfg.LLM.Model,
		EnvVectorBackend:     &cfg.Vector.Backend,
		EnvQdrantHost:        &cfg.Vector.QdrantHost,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		EnvChunkSize:          &cfg.RAG.ChunkSize,
		EnvChunkOverlap:       &cfg.RAG.ChunkOverlap,
		EnvTopK:               &cfg.RAG.TopK,
		EnvEmbeddingDimension: &cfg.RAG.EmbeddingDimension,
		EnvRequestTimeoutMs:   &cfg.RAG.RequestTimeoutMs,
		EnvQdrantPort:         &cfg.Vector.QdrantPort,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", key, v, err)
		}
		*dst = n
	}
	return nil
}
