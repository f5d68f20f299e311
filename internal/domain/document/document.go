// Package document 定义文档、分块和向量索引相关的领域模型
package document

import "time"

// Document 已上传的文档元数据
// 原始字节保存在数据目录下，这里只保留描述信息
type Document struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`        // 原始文件大小（字节）
	Pages      int       `json:"pages"`       // 页数
	Chunks     int       `json:"chunks"`      // 分块数量
	UploadedAt time.Time `json:"uploaded_at"` // 上传时间
}

// Chunk 文档文本的一个有序片段
// Start/End 为字符（rune）偏移，左闭右开
type Chunk struct {
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"`   // 在文档内的序号，从 0 开始
	Start      int    `json:"start"`   // 起始字符偏移
	End        int    `json:"end"`     // 结束字符偏移（不含）
	Overlap    int    `json:"overlap"` // 与前一个分块重叠的字符数
	Text       string `json:"text"`
}

// Len 分块字符长度
func (c Chunk) Len() int {
	return c.End - c.Start
}

// ScoredChunk 检索结果：分块及其相似度分数（越大越相近）
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float32 `json:"score"`
}
