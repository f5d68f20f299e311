// Package chunker 把文档文本切分为定长、相互重叠的分块
package chunker

import (
	"fmt"

	"github.com/docqa/backend/internal/domain/document"
)

// Split 按字符（rune）切分文本
// 第 i 个分块从 i*(chunkSize-overlap) 开始，长度为 chunkSize（末尾可更短），
// 分块到达文本末尾后停止。去掉每个分块前 Overlap 个字符后依次拼接即为原文。
func Split(documentID, text string, chunkSize, overlap int) ([]document.Chunk, error) {
	if chunkSize <= 0 || overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk_size=%d overlap=%d", document.ErrInvalidChunkParams, chunkSize, overlap)
	}

	runes := []rune(text)
	total := len(runes)
	if total == 0 {
		return nil, nil
	}

	step := chunkSize - overlap
	chunks := make([]document.Chunk, 0, estimateCount(total, chunkSize, step))

	for start, i := 0, 0; ; start, i = start+step, i+1 {
		end := min(start+chunkSize, total)

		ov := 0
		if i > 0 {
			ov = overlap
		}

		chunks = append(chunks, document.Chunk{
			DocumentID: documentID,
			Index:      i,
			Start:      start,
			End:        end,
			Overlap:    ov,
			Text:       string(runes[start:end]),
		})

		if end == total {
			break
		}
	}

	return chunks, nil
}

// Join 去掉重叠部分后拼接分块，用于校验和调试
func Join(chunks []document.Chunk) string {
	var out []rune
	for _, c := range chunks {
		r := []rune(c.Text)
		out = append(out, r[min(c.Overlap, len(r)):]...)
	}
	return string(out)
}

// Count 不实际切分，只计算分块数量
func Count(textLen, chunkSize, overlap int) int {
	if chunkSize <= 0 || overlap < 0 || overlap >= chunkSize || textLen <= 0 {
		return 0
	}
	return estimateCount(textLen, chunkSize, chunkSize-overlap)
}

func estimateCount(total, chunkSize, step int) int {
	if total <= chunkSize {
		return 1
	}
	return 1 + (total-chunkSize+step-1)/step
}
