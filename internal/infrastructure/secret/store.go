package secret

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/docqa/backend/internal/infrastructure/log"
)

// ErrNotFound 凭据不存在
var ErrNotFound = errors.New("secret not found")

// Store 凭据库
type Store interface {
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, value string) error
	Has(ctx context.Context, name string) bool
	Delete(ctx context.Context, name string) error
}

// fileFormat 落盘格式，值均为密文
type fileFormat struct {
	Version int               `json:"version"`
	Secrets map[string]string `json:"secrets"`
}

// FileStore 加密文件凭据库
// 内存中缓存解密后的值，文件被外部修改时通过 Reload 刷新
type FileStore struct {
	path   string
	cipher *Cipher
	env    map[string][]string // 库中没有时回退读取的环境变量

	mu     sync.RWMutex
	values map[string]string
	logger *slog.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore 打开 dir 下的凭据库（secrets.json + .secret_key）
func NewFileStore(dir string) (*FileStore, error) {
	c, err := NewCipher(filepath.Join(dir, ".secret_key"))
	if err != nil {
		return nil, err
	}

	s := &FileStore{
		path:   filepath.Join(dir, "secrets.json"),
		cipher: c,
		env:    make(map[string][]string),
		values: make(map[string]string),
		logger: log.NewModuleLogger("secret", "file_store"),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// WithEnvFallback 为某个凭据设置环境变量回退（只读）
func (s *FileStore) WithEnvFallback(name string, envVars ...string) *FileStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env[name] = append(s.env[name], envVars...)
	return s
}

// Path 凭据文件路径
func (s *FileStore) Path() string {
	return s.path
}

// Get 读取凭据，库中没有时依次查找回退环境变量
func (s *FileStore) Get(_ context.Context, name string) (string, error) {
	s.mu.RLock()
	v, ok := s.values[name]
	envVars := s.env[name]
	s.mu.RUnlock()

	if ok && v != "" {
		return v, nil
	}
	for _, key := range envVars {
		if ev := os.Getenv(key); ev != "" {
			return ev, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Has 是否存在可用的凭据
func (s *FileStore) Has(ctx context.Context, name string) bool {
	_, err := s.Get(ctx, name)
	return err == nil
}

// Set 加密保存凭据
func (s *FileStore) Set(_ context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]string, len(s.values)+1)
	for k, v := range s.values {
		next[k] = v
	}
	next[name] = value

	if err := s.persist(next); err != nil {
		return err
	}
	s.values = next
	s.logger.Info("secret updated", "name", name, "value", log.MaskSecret(value))
	return nil
}

// Delete 删除凭据
func (s *FileStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[name]; !ok {
		return nil
	}
	next := make(map[string]string, len(s.values))
	for k, v := range s.values {
		if k != name {
			next[k] = v
		}
	}
	if err := s.persist(next); err != nil {
		return err
	}
	s.values = next
	return nil
}

// Reload 从文件重新加载，文件不存在视为空库
func (s *FileStore) Reload() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.mu.Lock()
		s.values = make(map[string]string)
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read secrets: %w", err)
	}

	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return fmt.Errorf("failed to parse secrets: %w", err)
	}

	values := make(map[string]string, len(ff.Secrets))
	for name, enc := range ff.Secrets {
		plain, err := s.cipher.Decrypt(enc)
		if err != nil {
			return fmt.Errorf("secret %s: %w", name, err)
		}
		values[name] = plain
	}

	s.mu.Lock()
	s.values = values
	s.mu.Unlock()
	return nil
}

// persist 加密后先写临时文件再原子替换，调用方持有写锁
func (s *FileStore) persist(values map[string]string) error {
	ff := fileFormat{Version: 1, Secrets: make(map[string]string, len(values))}
	for name, v := range values {
		enc, err := s.cipher.Encrypt(v)
		if err != nil {
			return err
		}
		ff.Secrets[name] = enc
	}

	data, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create secret directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write secrets: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace secrets: %w", err)
	}
	return nil
}
