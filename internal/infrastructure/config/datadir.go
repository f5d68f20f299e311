package config

import (
	"os"
	"path/filepath"
	"sync"
)

const (
	// EnvDataDir 数据目录环境变量名
	EnvDataDir = "DOCQA_DATA_DIR"
	// DefaultDataDirName 默认数据目录名
	DefaultDataDirName = ".docqa"
)

var (
	dataDirOnce sync.Once
	dataDirPath string
)

// GetDataDir 获取数据根目录
// 优先读取 DOCQA_DATA_DIR，默认 ~/.docqa/
func GetDataDir() string {
	dataDirOnce.Do(func() {
		if dir := os.Getenv(EnvDataDir); dir != "" {
			dataDirPath = dir
			return
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			dataDirPath = DefaultDataDirName
			return
		}
		dataDirPath = filepath.Join(homeDir, DefaultDataDirName)
	})
	return dataDirPath
}

// GetUploadsDir 上传文件目录
func GetUploadsDir() string {
	return filepath.Join(GetDataDir(), "uploads")
}

// ResetDataDir 重置数据目录缓存（仅用于测试）
func ResetDataDir() {
	dataDirOnce = sync.Once{}
	dataDirPath = ""
}
