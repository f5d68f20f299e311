package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetDataDir_Default(t *testing.T) {
	ResetDataDir()
	t.Cleanup(ResetDataDir)
	t.Setenv(EnvDataDir, "")

	homeDir, err := os.UserHomeDir()
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(homeDir, ".docqa"), GetDataDir())
}

func TestGetDataDir_EnvOverride(t *testing.T) {
	ResetDataDir()
	t.Cleanup(ResetDataDir)
	t.Setenv(EnvDataDir, "/custom/data/path")

	assert.Equal(t, "/custom/data/path", GetDataDir())
	assert.Equal(t, filepath.Join("/custom/data/path", "uploads"), GetUploadsDir())
}

func TestGetDataDir_Cached(t *testing.T) {
	ResetDataDir()
	t.Cleanup(ResetDataDir)
	t.Setenv(EnvDataDir, "/first/path")
	assert.Equal(t, "/first/path", GetDataDir())

	t.Setenv(EnvDataDir, "/second/path")
	assert.Equal(t, "/first/path", GetDataDir(), "应该返回缓存值，不受环境变量修改影响")
}
