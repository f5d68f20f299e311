package embedding

import (
	"context"
	"fmt"

	"github.com/docqa/backend/internal/domain/document"
	"golang.org/x/time/rate"
)

// RateLimited 对下游 Embedder 做令牌桶限流
type RateLimited struct {
	next    document.Embedder
	limiter *rate.Limiter
}

var _ document.Embedder = (*RateLimited)(nil)

// WithRateLimit 包装限流，rps <= 0 时直接返回原实现
func WithRateLimit(next document.Embedder, rps float64, burst int) document.Embedder {
	if rps <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Dimension 实现 Embedder 接口
func (r *RateLimited) Dimension() int {
	return r.next.Dimension()
}

// Embed 等待令牌后调用下游，等待期间可被取消
func (r *RateLimited) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return r.next.Embed(ctx, texts)
}
