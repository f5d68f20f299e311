package log

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo}, // 默认值
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Run("default config", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "")
		t.Setenv("LOG_FORMAT", "")
		t.Setenv("ENV", "")

		cfg := NewConfigFromEnv()
		if cfg.Level != "info" {
			t.Errorf("expected default level info, got %s", cfg.Level)
		}
		if cfg.Format != "text" {
			t.Errorf("expected default format text, got %s", cfg.Format)
		}
		if cfg.Output != "stdout" {
			t.Errorf("expected default output stdout, got %s", cfg.Output)
		}
	})

	t.Run("custom config", func(t *testing.T) {
		t.Setenv("ENV", "")
		t.Setenv("LOG_LEVEL", "warn")
		t.Setenv("LOG_FORMAT", "json")

		cfg := NewConfigFromEnv()
		if cfg.Level != "warn" {
			t.Errorf("expected level warn, got %s", cfg.Level)
		}
		if cfg.Format != "json" {
			t.Errorf("expected format json, got %s", cfg.Format)
		}
	})

	t.Run("development mode", func(t *testing.T) {
		t.Setenv("ENV", "development")
		t.Setenv("LOG_LEVEL", "error") // 应该被覆盖

		cfg := NewConfigFromEnv()
		if cfg.Level != "debug" {
			t.Errorf("expected debug in development, got %s", cfg.Level)
		}
		if !cfg.AddSource {
			t.Error("expected AddSource true in development")
		}
	})
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		defaultValue bool
		envValue     string
		expected     bool
	}{
		{"true value", false, "true", true},
		{"false value", true, "false", false},
		{"invalid value", true, "invalid", true},
		{"missing env", false, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DOCQA_TEST_BOOL", tt.envValue)
			if got := getEnvBool("DOCQA_TEST_BOOL", tt.defaultValue); got != tt.expected {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestInit(t *testing.T) {
	t.Run("init with defaults", func(t *testing.T) {
		Init(nil)
		if GetLogger() == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("debug level enables debug mode", func(t *testing.T) {
		Init(&Config{Level: "debug", Format: "json"})
		if !IsDebugMode() {
			t.Error("expected debug mode")
		}
		Init(&Config{Level: "info"})
		if IsDebugMode() {
			t.Error("expected debug mode off")
		}
	})

	t.Run("file output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		Init(&Config{Level: "info", Format: "json", Output: "file:" + path})
		NewModuleLogger("test", "file").Info("written to file")

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read log file: %v", err)
		}
		if !strings.Contains(string(data), "written to file") {
			t.Errorf("expected message in log file, got %s", data)
		}
		Init(&Config{Level: "info"})
	})
}

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&contextHandler{Handler: slog.NewTextHandler(&buf, nil)})

	ctx := WithDocumentID(WithRequestID(context.Background(), "req-1"), "doc-1")
	logger.InfoContext(ctx, "hello")

	out := buf.String()
	if !strings.Contains(out, "request_id=req-1") {
		t.Errorf("expected request_id in output: %s", out)
	}
	if !strings.Contains(out, "document_id=doc-1") {
		t.Errorf("expected document_id in output: %s", out)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "****"},
		{"short", "****"},
		{"sk-1234567890abcd", "sk-1****abcd"},
	}
	for _, tt := range tests {
		if got := MaskSecret(tt.in); got != tt.want {
			t.Errorf("MaskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
