package repository

import "context"

// DocumentText 单个文档的全文
type DocumentText struct {
	ID         string
	Text       string
	ChunkCount int
}

// DocumentFetchResult 按 ID 批量取全文的结果。
// Errors 记录部分失败的条目，调用方自行决定是否降级。
type DocumentFetchResult struct {
	Documents []DocumentText
	Errors    map[string]string
}

// DocumentStore 文档/向量存储端口：按用户维度取一组文档的全文
type DocumentStore interface {
	FetchDocuments(ctx context.Context, userID string, ids []string) (*DocumentFetchResult, error)
}
