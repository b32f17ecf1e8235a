package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gruenerator-assist-api/internal/domain/repository"
)

const defaultSearchLimit = 10

// Embedder 查询向量化端口
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// CollectionSearcher 基于单个 Milvus 集合的检索后端
type CollectionSearcher struct {
	client     *Client
	embedder   Embedder
	source     string
	collection string
	fields     []string
}

var _ repository.Searcher = (*CollectionSearcher)(nil)

// NewPartyDocumentSearcher 创建党内文件检索后端
func NewPartyDocumentSearcher(client *Client, embedder Embedder) *CollectionSearcher {
	return &CollectionSearcher{
		client:     client,
		embedder:   embedder,
		source:     "party-documents",
		collection: CollectionPartyDocuments,
		fields:     []string{"title", "source_url", "text_content"},
	}
}

// NewExampleSearcher 创建范例文本检索后端
func NewExampleSearcher(client *Client, embedder Embedder) *CollectionSearcher {
	return &CollectionSearcher{
		client:     client,
		embedder:   embedder,
		source:     "examples",
		collection: CollectionExamples,
		fields:     []string{"title", "example_type", "text_content"},
	}
}

// Source 返回后端标签
func (s *CollectionSearcher) Source() string {
	return s.source
}

// Search 向量化查询并在集合内做相似度检索
func (s *CollectionSearcher) Search(ctx context.Context, q repository.SearchQuery) ([]repository.RawResult, error) {
	ctx, span := tracer.Start(ctx, "milvus.CollectionSearcher.Search",
		trace.WithAttributes(
			attribute.String("collection", s.collection),
			attribute.Int("limit", q.Limit),
		))
	defer span.End()

	vectors, err := s.embedder.Embed(ctx, []string{q.Query})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vector")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	collection := s.collection
	if q.Collection != "" {
		collection = q.Collection
	}
	collName := s.client.CollectionName(collection)

	sp, err := entity.NewIndexHNSWSearchParam(128)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	results, err := s.client.milvus.Search(ctx,
		collName,
		nil,
		"",
		s.fields,
		[]entity.Vector{entity.FloatVector(vectors[0])},
		"vector",
		entity.COSINE,
		limit,
		sp,
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search %s: %w", collection, err)
	}

	var raws []repository.RawResult
	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			raw := repository.RawResult{
				"score": result.Scores[i],
			}
			for _, field := range s.fields {
				col := result.Fields.GetColumn(field)
				vc, ok := col.(*entity.ColumnVarChar)
				if !ok || i >= len(vc.Data()) {
					continue
				}
				raw[fieldAlias(field)] = vc.Data()[i]
			}
			raws = append(raws, raw)
		}
	}

	span.SetAttributes(attribute.Int("result_count", len(raws)))
	return raws, nil
}

// fieldAlias 把集合字段名映射为归一化层识别的别名
func fieldAlias(field string) string {
	switch field {
	case "text_content":
		return "text"
	case "source_url":
		return "url"
	default:
		return field
	}
}
