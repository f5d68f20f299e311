package document

import "errors"

var (
	// ErrMalformedDocument 文档无法解析
	ErrMalformedDocument = errors.New("malformed document")
	// ErrEmptyDocument 文档中没有可提取的文本
	ErrEmptyDocument = errors.New("empty document")
	// ErrInvalidChunkParams 分块参数不合法
	ErrInvalidChunkParams = errors.New("invalid chunk parameters")
	// ErrEmptyInput 构建索引时没有任何分块
	ErrEmptyInput = errors.New("empty input")
	// ErrEmbeddingFailure 向量化服务不可用或返回了非法向量
	ErrEmbeddingFailure = errors.New("embedding failure")
	// ErrIndexNotReady 索引未构建或已释放
	ErrIndexNotReady = errors.New("index not ready")
	// ErrDocumentNotFound 文档元数据不存在
	ErrDocumentNotFound = errors.New("document not found")
	// ErrInvalidDocumentID 文档 ID 含非法字符或过长
	ErrInvalidDocumentID = errors.New("invalid document id")
	// ErrDocumentTooLarge 上传文件超过大小限制
	ErrDocumentTooLarge = errors.New("document too large")
)
