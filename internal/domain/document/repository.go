package document

import "context"

// Repository 文档元数据仓储
type Repository interface {
	// Save 保存或覆盖文档元数据
	Save(ctx context.Context, doc *Document) error
	// Get 按 ID 查询，不存在时返回 ErrDocumentNotFound
	Get(ctx context.Context, id string) (*Document, error)
	// List 按上传时间倒序列出
	List(ctx context.Context) ([]*Document, error)
	// Delete 删除文档元数据
	Delete(ctx context.Context, id string) error
}
