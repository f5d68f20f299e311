// Package tokenizer 统计文本的 Token 数量，用于控制提示词长度
package tokenizer

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// 在包初始化时设置离线加载器
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Counter 使用 cl100k_base 编码计数
type Counter struct {
	encoding *tiktoken.Tiktoken
	mu       sync.Mutex
}

var (
	counterInstance *Counter
	counterOnce     sync.Once
	counterErr      error
)

// GetCounter 获取 Counter 单例，编码文件只加载一次
func GetCounter() (*Counter, error) {
	counterOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			counterErr = err
			return
		}
		counterInstance = &Counter{encoding: enc}
	})

	if counterErr != nil {
		return nil, counterErr
	}
	return counterInstance, nil
}

// CountTokens 计算文本的 Token 数量
func (c *Counter) CountTokens(text string) int {
	if text == "" {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.encoding.Encode(text, nil, nil))
}

// Fit 返回在 budget 内能放下的最长前缀，budget <= 0 表示不限制
// 第一段即使超出预算也保留，保证生成时至少有一段上下文
func (c *Counter) Fit(texts []string, budget int) []string {
	if budget <= 0 || len(texts) == 0 {
		return texts
	}

	used := 0
	for i, t := range texts {
		used += c.CountTokens(t)
		if used > budget {
			if i == 0 {
				return texts[:1]
			}
			return texts[:i]
		}
	}
	return texts
}
