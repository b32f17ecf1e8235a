// Package search 提供外部检索后端适配器
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gruenerator-assist-api/internal/config"
	"gruenerator-assist-api/internal/domain/repository"
)

var tracer = otel.Tracer("search")

// WebSearcher 外部网页搜索后端
type WebSearcher struct {
	endpoint   string
	apiKey     string
	limit      int
	httpClient *http.Client
}

var _ repository.Searcher = (*WebSearcher)(nil)

type webSearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type webSearchResponse struct {
	Results []repository.RawResult `json:"results"`
}

// NewWebSearcher 创建网页搜索后端
func NewWebSearcher(cfg config.WebSearchConfig) *WebSearcher {
	limit := cfg.Limit
	if limit <= 0 {
		limit = 8
	}
	return &WebSearcher{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		limit:    limit,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Source 返回后端标签
func (s *WebSearcher) Source() string {
	return "web"
}

// Search 调用外部搜索服务
func (s *WebSearcher) Search(ctx context.Context, q repository.SearchQuery) ([]repository.RawResult, error) {
	ctx, span := tracer.Start(ctx, "search.WebSearcher.Search",
		trace.WithAttributes(attribute.Int("limit", q.Limit)))
	defer span.End()

	if s.endpoint == "" {
		return nil, fmt.Errorf("web search endpoint is not configured")
	}

	limit := q.Limit
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}

	reqBody, err := json.Marshal(&webSearchRequest{
		Query: q.Query,
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	httpResp, err := s.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("web search request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		err := fmt.Errorf("web search request failed: status=%d", httpResp.StatusCode)
		span.RecordError(err)
		return nil, err
	}

	var resp webSearchResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	span.SetAttributes(attribute.Int("result_count", len(resp.Results)))
	return resp.Results, nil
}
