// Package llm 提供回答生成服务的实现
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/docqa/backend/internal/domain/qa"
	"github.com/docqa/backend/internal/infrastructure/secret"
)

// DefaultSystemPrompt 未配置系统提示词时使用
const DefaultSystemPrompt = `You answer questions about a single uploaded document.
Use only the numbered context passages below. If the answer is not in the context, say that the document does not contain it.
Answer in the language of the question.`

// KeySource 按名称读取 API Key
type KeySource interface {
	Get(ctx context.Context, name string) (string, error)
}

// Role 对话角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn 一条对话消息
type Turn struct {
	Role    Role
	Content string
}

// Prompt 与具体服务无关的提示词
type Prompt struct {
	System string
	Turns  []Turn // 最后一条总是当前问题
}

// BuildPrompt 把检索上下文、历史和问题组装成提示词
func BuildPrompt(system string, req qa.GenerateRequest) Prompt {
	if strings.TrimSpace(system) == "" {
		system = DefaultSystemPrompt
	}

	var sb strings.Builder
	sb.WriteString(system)
	if len(req.Context) > 0 {
		sb.WriteString("\n\nContext:\n")
		for i, c := range req.Context {
			fmt.Fprintf(&sb, "[%d] %s\n\n", i+1, strings.TrimSpace(c))
		}
	}

	turns := make([]Turn, 0, len(req.History)*2+1)
	for _, h := range req.History {
		turns = append(turns,
			Turn{Role: RoleUser, Content: h.Question},
			Turn{Role: RoleAssistant, Content: h.Answer},
		)
	}
	turns = append(turns, Turn{Role: RoleUser, Content: req.Question})

	return Prompt{System: strings.TrimRight(sb.String(), "\n"), Turns: turns}
}

// resolveKey 读取 API Key，缺失时返回 ErrMissingCredential
func resolveKey(ctx context.Context, keys KeySource, name string) (string, error) {
	if keys == nil {
		return "", qa.ErrMissingCredential
	}
	key, err := keys.Get(ctx, name)
	if errors.Is(err, secret.ErrNotFound) || (err == nil && strings.TrimSpace(key) == "") {
		return "", qa.ErrMissingCredential
	}
	if err != nil {
		return "", fmt.Errorf("failed to read api key: %w", err)
	}
	return key, nil
}

// nonEmpty 空回答视为失败
func nonEmpty(answer string) (string, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", errors.New("model returned an empty answer")
	}
	return answer, nil
}
