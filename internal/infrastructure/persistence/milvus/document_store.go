package milvus

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gruenerator-assist-api/internal/domain/repository"
)

// DocumentStore 基于 user_documents 集合的文档全文读取。
// 分块按 chunk_index 重排后拼接，跨用户访问被过滤表达式挡住。
type DocumentStore struct {
	client *Client
}

var _ repository.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore 创建文档存储
func NewDocumentStore(client *Client) *DocumentStore {
	return &DocumentStore{client: client}
}

type documentChunk struct {
	index int64
	text  string
}

// FetchDocuments 按用户维度批量取文档全文，单个文档失败不影响其余
func (s *DocumentStore) FetchDocuments(ctx context.Context, userID string, ids []string) (*repository.DocumentFetchResult, error) {
	ctx, span := tracer.Start(ctx, "milvus.DocumentStore.FetchDocuments",
		trace.WithAttributes(attribute.Int("document_count", len(ids))))
	defer span.End()

	result := &repository.DocumentFetchResult{
		Errors: make(map[string]string),
	}

	for _, id := range ids {
		doc, err := s.fetchDocument(ctx, userID, id)
		if err != nil {
			span.RecordError(err)
			result.Errors[id] = err.Error()
			continue
		}
		result.Documents = append(result.Documents, *doc)
	}

	return result, nil
}

func (s *DocumentStore) fetchDocument(ctx context.Context, userID, docID string) (*repository.DocumentText, error) {
	collName := s.client.CollectionName(CollectionUserDocuments)
	expr := fmt.Sprintf(`user_id == "%s" && document_id == "%s"`, userID, docID)

	rs, err := s.client.milvus.Query(ctx, collName, nil, expr,
		[]string{"chunk_index", "text_content"})
	if err != nil {
		return nil, fmt.Errorf("failed to query document chunks: %w", err)
	}

	var indexCol *entity.ColumnInt64
	var textCol *entity.ColumnVarChar
	for _, col := range rs {
		switch col.Name() {
		case "chunk_index":
			indexCol, _ = col.(*entity.ColumnInt64)
		case "text_content":
			textCol, _ = col.(*entity.ColumnVarChar)
		}
	}
	if indexCol == nil || textCol == nil {
		return nil, fmt.Errorf("document %s: unexpected result columns", docID)
	}

	indexes := indexCol.Data()
	texts := textCol.Data()
	if len(indexes) == 0 || len(indexes) != len(texts) {
		return nil, fmt.Errorf("document %s not found", docID)
	}

	chunks := make([]documentChunk, len(indexes))
	for i := range indexes {
		chunks[i] = documentChunk{index: indexes[i], text: texts[i]}
	}
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].index < chunks[j].index
	})

	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.text
	}

	return &repository.DocumentText{
		ID:         docID,
		Text:       strings.Join(parts, "\n"),
		ChunkCount: len(chunks),
	}, nil
}
