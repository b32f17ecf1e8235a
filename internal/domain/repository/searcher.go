// Package repository 定义仓储与外部协作方端口
package repository

import "context"

// SearchQuery 检索后端的统一入参
type SearchQuery struct {
	Query      string
	Collection string
	Limit      int
}

// RawResult 检索后端返回的原始结果。
// 不同后端字段命名不一致（title/name/source、content/snippet/excerpt/text、
// score/relevance/similarity），由归一化层容错映射。
type RawResult map[string]any

// Searcher 单个检索后端端口
type Searcher interface {
	// Source 返回后端标签，写入归一化结果与引用
	Source() string
	Search(ctx context.Context, q SearchQuery) ([]RawResult, error)
}
