// Package classify 实现请求意图分类：
// 先走廉价的规则级联，置信度不足时才调用 LLM 兜底。
package classify

import "strings"

// Intent 检索意图（封闭枚举）
type Intent string

const (
	IntentInformational   Intent = "informational-search"
	IntentPartyDocument   Intent = "party-document-search"
	IntentWebSearch       Intent = "web-search"
	IntentExampleSearch   Intent = "example-search"
	IntentDeepResearch    Intent = "deep-research"
	IntentImageGeneration Intent = "image-generation"
	IntentNoRetrieval     Intent = "no-retrieval"
)

// allIntents 按固定顺序列出全部意图，用于校验与文本嗅探
var allIntents = []Intent{
	IntentInformational,
	IntentPartyDocument,
	IntentWebSearch,
	IntentExampleSearch,
	IntentDeepResearch,
	IntentImageGeneration,
	IntentNoRetrieval,
}

// Valid 检查意图是否属于封闭枚举
func (i Intent) Valid() bool {
	for _, v := range allIntents {
		if i == v {
			return true
		}
	}
	return false
}

// NeedsRetrieval 该意图是否触发检索
func (i Intent) NeedsRetrieval() bool {
	switch i {
	case IntentNoRetrieval, IntentImageGeneration:
		return false
	default:
		return i.Valid()
	}
}

// Complexity 请求复杂度，独立于意图置信度的启发式评估
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// Result 分类结果
type Result struct {
	Intent      Intent   `json:"intent"`
	SearchQuery string   `json:"search_query,omitempty"`
	SubQueries  []string `json:"sub_queries,omitempty"`
	Reasoning   string   `json:"reasoning,omitempty"`
	Confidence  float64  `json:"confidence"`
}

// sanitize 维持不变式：不触发检索的意图不携带查询；子查询最多 3 条。
func sanitize(r *Result) *Result {
	if !r.Intent.NeedsRetrieval() {
		r.SearchQuery = ""
		r.SubQueries = nil
		return r
	}
	r.SearchQuery = strings.TrimSpace(r.SearchQuery)
	if len(r.SubQueries) > maxSubQueries {
		r.SubQueries = r.SubQueries[:maxSubQueries]
	}
	out := r.SubQueries[:0]
	for _, q := range r.SubQueries {
		q = strings.TrimSpace(q)
		if q != "" {
			out = append(out, q)
		}
	}
	r.SubQueries = out
	if len(r.SubQueries) == 0 {
		r.SubQueries = nil
	}
	return r
}

const maxSubQueries = 3
