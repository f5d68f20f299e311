package chunker

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/docqa/backend/internal/domain/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_3500Chars(t *testing.T) {
	text := strings.Repeat("abcdefghij", 350)

	chunks, err := Split("doc-1", text, 1000, 200)
	require.NoError(t, err)
	require.Len(t, chunks, 5)

	lengths := make([]int, len(chunks))
	for i, c := range chunks {
		lengths[i] = c.Len()
		assert.Equal(t, i, c.Index)
		assert.Equal(t, "doc-1", c.DocumentID)
	}
	assert.Equal(t, []int{1000, 1000, 1000, 1000, 300}, lengths)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 3500, chunks[4].End)
	assert.Equal(t, text, Join(chunks))
	assert.Equal(t, 5, Count(3500, 1000, 200))
}

func TestSplit_ShortText(t *testing.T) {
	chunks, err := Split("doc", "hello world", 1000, 200)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Overlap)
}

func TestSplit_ExactSize(t *testing.T) {
	chunks, err := Split("doc", strings.Repeat("x", 1000), 1000, 200)
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestSplit_EmptyText(t *testing.T) {
	chunks, err := Split("doc", "", 10, 2)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplit_InvalidParams(t *testing.T) {
	tests := []struct {
		name      string
		size, ovl int
	}{
		{"zero size", 0, 0},
		{"negative size", -5, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
		{"overlap larger than size", 10, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split("doc", "some text", tt.size, tt.ovl)
			assert.ErrorIs(t, err, document.ErrInvalidChunkParams)
		})
	}
}

func TestSplit_Unicode(t *testing.T) {
	text := "日本語のテキストと émojis 🚀🚀 mixed"

	chunks, err := Split("doc", text, 7, 3)
	require.NoError(t, err)
	for _, c := range chunks[:len(chunks)-1] {
		assert.Equal(t, 7, len([]rune(c.Text)))
	}
	assert.Equal(t, text, Join(chunks))
}

func TestSplit_OverlapShared(t *testing.T) {
	text := strings.Repeat("0123456789", 25)

	chunks, err := Split("doc", text, 40, 15)
	require.NoError(t, err)
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Text)
		cur := []rune(chunks[i].Text)
		assert.Equal(t, 15, chunks[i].Overlap)
		assert.Equal(t, string(prev[len(prev)-15:]), string(cur[:15]), "chunk %d", i)
		assert.Equal(t, chunks[i-1].End-15, chunks[i].Start)
	}
}

func TestSplit_ReconstructProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []rune("abcdef ghij\nklmñöü日本")

	for n := 0; n < 300; n++ {
		length := rng.Intn(2000)
		buf := make([]rune, length)
		for i := range buf {
			buf[i] = alphabet[rng.Intn(len(alphabet))]
		}
		text := string(buf)
		size := 1 + rng.Intn(300)
		overlap := rng.Intn(size)

		chunks, err := Split("doc", text, size, overlap)
		require.NoError(t, err)
		require.Equal(t, text, Join(chunks), "size=%d overlap=%d len=%d", size, overlap, length)
		require.Equal(t, Count(length, size, overlap), len(chunks))

		again, err := Split("doc", text, size, overlap)
		require.NoError(t, err)
		require.Equal(t, chunks, again, "split must be deterministic")
	}
}
