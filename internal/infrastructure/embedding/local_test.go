package embedding

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestLocalEmbedder(t *testing.T) {
	e := NewLocalEmbedder(0)
	assert.Equal(t, DefaultLocalDimension, e.Dimension())

	vectors, err := e.Embed(context.Background(), []string{
		"the cat sat on the mat",
		"The Cat sat on the mat!",
		"quarterly revenue grew by ten percent",
		"",
	})
	require.NoError(t, err)
	require.Len(t, vectors, 4)

	for _, v := range vectors {
		assert.Len(t, v, DefaultLocalDimension)
	}
	assert.InDelta(t, 1.0, cosine(vectors[0], vectors[1]), 1e-6, "大小写和标点不影响向量")
	assert.Less(t, cosine(vectors[0], vectors[2]), 0.5)

	var norm float64
	for _, x := range vectors[0] {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)

	for _, x := range vectors[3] {
		assert.Zero(t, x)
	}
}

func TestWithRateLimit(t *testing.T) {
	base := NewLocalEmbedder(8)

	assert.Same(t, base, WithRateLimit(base, 0, 1))

	limited := WithRateLimit(base, 1, 1)
	assert.Equal(t, 8, limited.Dimension())

	_, err := limited.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)

	// 令牌已用完，下一次需要等待约 1 秒，超时先到
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = limited.Embed(ctx, []string{"b"})
	assert.Error(t, err)
}
