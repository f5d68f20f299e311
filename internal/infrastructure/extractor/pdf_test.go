package extractor

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/docqa/backend/internal/domain/document"
	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePages struct {
	texts []string
	errAt int
	panic bool
}

func (f *fakePages) NumPage() int { return len(f.texts) }

func (f *fakePages) PageText(n int) (string, error) {
	if f.panic {
		panic("broken content stream")
	}
	if f.errAt == n {
		return "", errors.New("bad page")
	}
	return f.texts[n-1], nil
}

func TestCollect_SkipsEmptyPages(t *testing.T) {
	res, err := collect(context.Background(), &fakePages{texts: []string{"first", "  \n", "", "second"}})
	require.NoError(t, err)

	assert.Equal(t, "first\nsecond", res.Text)
	assert.Equal(t, 4, res.Pages)
	assert.Equal(t, 2, res.EmptyPages)
}

func TestCollect_AllEmpty(t *testing.T) {
	_, err := collect(context.Background(), &fakePages{texts: []string{"", " "}})
	assert.ErrorIs(t, err, document.ErrEmptyDocument)

	_, err = collect(context.Background(), &fakePages{})
	assert.ErrorIs(t, err, document.ErrEmptyDocument)
}

func TestCollect_PageError(t *testing.T) {
	_, err := collect(context.Background(), &fakePages{texts: []string{"a", "b"}, errAt: 2})
	assert.ErrorIs(t, err, document.ErrMalformedDocument)
}

func TestCollect_PanicBecomesMalformed(t *testing.T) {
	_, err := collect(context.Background(), &fakePages{texts: []string{"a"}, panic: true})
	assert.ErrorIs(t, err, document.ErrMalformedDocument)
}

func TestCollect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := collect(ctx, &fakePages{texts: []string{"a"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtract_Malformed(t *testing.T) {
	e := NewExtractor()

	_, err := e.Extract(context.Background(), nil)
	assert.ErrorIs(t, err, document.ErrMalformedDocument)

	_, err = e.Extract(context.Background(), []byte("this is not a pdf"))
	assert.ErrorIs(t, err, document.ErrMalformedDocument)
}

func buildPDF(t *testing.T, pages ...string) []byte {
	t.Helper()
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	for _, text := range pages {
		doc.AddPage()
		if text != "" {
			doc.Cell(40, 10, text)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

func TestExtract_RealPDF(t *testing.T) {
	data := buildPDF(t, "Hello", "", "World")

	res, err := NewExtractor().Extract(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 1, res.EmptyPages)
	assert.Contains(t, res.Text, "Hello")
	assert.Contains(t, res.Text, "World")
}

func TestExtract_BlankPDF(t *testing.T) {
	data := buildPDF(t, "", "")

	_, err := NewExtractor().Extract(context.Background(), data)
	assert.ErrorIs(t, err, document.ErrEmptyDocument)
}

func TestOpenReader_DamagedTrailer(t *testing.T) {
	data := buildPDF(t, "Hello")

	// 把 trailer 中的 /Size 名字改成关键字，解析字典时会 panic
	i := bytes.LastIndex(data, []byte("/Size"))
	require.Positive(t, i)
	damaged := bytes.Clone(data)
	damaged[i] = ' '

	require.NotPanics(t, func() {
		_, err := openReader(damaged)
		assert.ErrorIs(t, err, document.ErrMalformedDocument)
	})
	require.NotPanics(t, func() {
		_, err := NewExtractor().Extract(context.Background(), damaged)
		assert.ErrorIs(t, err, document.ErrMalformedDocument)
	})
}

func TestExtract_CorruptedBytesNeverPanic(t *testing.T) {
	data := buildPDF(t, "Hello world")
	rng := rand.New(rand.NewSource(1))
	e := NewExtractor()

	for i := 0; i < 500; i++ {
		damaged := bytes.Clone(data)
		for n := 1 + rng.Intn(4); n > 0; n-- {
			damaged[rng.Intn(len(damaged))] = byte(rng.Intn(256))
		}

		require.NotPanics(t, func() {
			_, err := e.Extract(context.Background(), damaged)
			if err != nil && !errors.Is(err, document.ErrMalformedDocument) && !errors.Is(err, document.ErrEmptyDocument) {
				t.Errorf("iteration %d: unexpected error kind: %v", i, err)
			}
		}, "iteration %d", i)
	}
}
