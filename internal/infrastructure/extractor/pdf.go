// Package extractor 从 PDF 中提取纯文本
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docqa/backend/internal/domain/document"
	"github.com/docqa/backend/internal/infrastructure/log"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// pdfcpu 默认会在用户目录下创建配置文件
	api.DisableConfigDir()
}

// Result 提取结果
type Result struct {
	Text       string // 非空页面文本，按页序以换行连接
	Pages      int    // 总页数
	EmptyPages int    // 被跳过的空白页数
}

// Extractor PDF 文本提取器
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor 创建提取器
func NewExtractor() *Extractor {
	return &Extractor{
		logger: log.NewModuleLogger("extractor", "pdf"),
	}
}

// Extract 提取文档文本
// 无法解析时返回 ErrMalformedDocument，所有页面都没有文本时返回 ErrEmptyDocument
func (e *Extractor) Extract(ctx context.Context, data []byte) (*Result, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no content", document.ErrMalformedDocument)
	}

	pageCount, err := validate(data)
	if err != nil {
		return nil, err
	}

	r, err := openReader(data)
	if err != nil {
		return nil, err
	}

	res, err := collect(ctx, &pdfPages{reader: r})
	if err != nil {
		return nil, err
	}

	e.logger.DebugContext(ctx, "pdf text extracted",
		"pages", res.Pages,
		"validated_pages", pageCount,
		"empty_pages", res.EmptyPages,
		"chars", len(res.Text),
	)
	return res, nil
}

// openReader 打开文档，解析交叉引用表时的 panic 视为文档损坏
func openReader(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			r = nil
			err = fmt.Errorf("%w: %v", document.ErrMalformedDocument, p)
		}
	}()

	r, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", document.ErrMalformedDocument, err)
	}
	return r, nil
}

// validate 使用 pdfcpu 校验文档结构，返回页数
func validate(data []byte) (n int, err error) {
	defer func() {
		if p := recover(); p != nil {
			n = 0
			err = fmt.Errorf("%w: %v", document.ErrMalformedDocument, p)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pdfCtx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", document.ErrMalformedDocument, err)
	}
	if err := api.ValidateContext(pdfCtx); err != nil {
		return 0, fmt.Errorf("%w: %v", document.ErrMalformedDocument, err)
	}
	return pdfCtx.PageCount, nil
}

// pageSource 按页读取文本，页码从 1 开始
type pageSource interface {
	NumPage() int
	PageText(n int) (string, error)
}

// collect 逐页提取文本，跳过空白页
func collect(ctx context.Context, src pageSource) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("%w: %v", document.ErrMalformedDocument, r)
		}
	}()

	total := src.NumPage()
	parts := make([]string, 0, total)
	empty := 0

	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := src.PageText(n)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", document.ErrMalformedDocument, n, err)
		}

		text = strings.TrimSpace(text)
		if text == "" {
			empty++
			continue
		}
		parts = append(parts, text)
	}

	if len(parts) == 0 {
		return nil, document.ErrEmptyDocument
	}

	return &Result{
		Text:       strings.Join(parts, "\n"),
		Pages:      total,
		EmptyPages: empty,
	}, nil
}

type pdfPages struct {
	reader *pdf.Reader
}

func (p *pdfPages) NumPage() int {
	return p.reader.NumPage()
}

func (p *pdfPages) PageText(n int) (string, error) {
	page := p.reader.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
