package dto

import (
	"gruenerator-assist-api/internal/application/classify"
	"gruenerator-assist-api/internal/application/pipeline"
	"gruenerator-assist-api/internal/domain/entity"
)

// TurnRequest 单轮历史对话
type TurnRequest struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content" binding:"required"`
}

// AttachmentRequest 当前消息附件
type AttachmentRequest struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name" binding:"required"`
	Content    string `json:"content,omitempty"`
	Vectorized bool   `json:"vectorized,omitempty"`
}

// AttachmentSummaryRequest 历史附件摘要
type AttachmentSummaryRequest struct {
	Name    string `json:"name" binding:"required"`
	Summary string `json:"summary" binding:"required"`
}

// ContextRequest 上下文组装请求
type ContextRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	ThreadID string `json:"thread_id,omitempty"`
	Message  string `json:"message" binding:"required"`

	Turns               []TurnRequest              `json:"turns,omitempty"`
	Attachments         []AttachmentRequest        `json:"attachments,omitempty"`
	AttachmentSummaries []AttachmentSummaryRequest `json:"attachment_summaries,omitempty"`
	ReferencedDocIDs    []string                   `json:"referenced_document_ids,omitempty"`

	MemoryContext string `json:"memory_context,omitempty"`
	BaseRole      string `json:"base_role,omitempty"`
}

// ToPipelineRequest 转换为管线输入
func (r *ContextRequest) ToPipelineRequest() *pipeline.Request {
	req := &pipeline.Request{
		UserID:           r.UserID,
		ThreadID:         r.ThreadID,
		Message:          r.Message,
		ReferencedDocIDs: r.ReferencedDocIDs,
		MemoryContext:    r.MemoryContext,
		BaseRole:         r.BaseRole,
	}

	for _, t := range r.Turns {
		req.Turns = append(req.Turns, entity.ConversationTurn{
			Role:    t.Role,
			Content: t.Content,
		})
	}
	for _, a := range r.Attachments {
		req.Attachments = append(req.Attachments, entity.Attachment{
			ID:         a.ID,
			Name:       a.Name,
			Content:    a.Content,
			Vectorized: a.Vectorized,
		})
	}
	for _, s := range r.AttachmentSummaries {
		req.AttachmentSummaries = append(req.AttachmentSummaries, entity.AttachmentSummary{
			Name:    s.Name,
			Summary: s.Summary,
		})
	}

	return req
}

// CitationResponse 引用条目
type CitationResponse struct {
	Ordinal int    `json:"ordinal"`
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Snippet string `json:"snippet"`
}

// ContextResponse 上下文组装结果
type ContextResponse struct {
	Intent      string   `json:"intent"`
	Confidence  float64  `json:"confidence"`
	Method      string   `json:"method"`
	Complexity  string   `json:"complexity"`
	SearchQuery string   `json:"search_query,omitempty"`
	SubQueries  []string `json:"sub_queries,omitempty"`

	ResearchBrief string `json:"research_brief,omitempty"`

	Citations       []CitationResponse `json:"citations,omitempty"`
	Budget          int                `json:"budget,omitempty"`
	SummaryStrategy string             `json:"summary_strategy,omitempty"`

	Context string `json:"context"`

	StageTimingsMs map[string]int64  `json:"stage_timings_ms,omitempty"`
	Annotations    map[string]string `json:"annotations,omitempty"`
}

// ContextResponseFromState 把管线终态映射为响应
func ContextResponseFromState(state *pipeline.State) *ContextResponse {
	resp := &ContextResponse{
		Intent:          string(state.Classification.Intent),
		Confidence:      state.Classification.Confidence,
		Method:          state.Method,
		Complexity:      string(state.Complexity),
		SearchQuery:     state.Classification.SearchQuery,
		SubQueries:      state.Classification.SubQueries,
		ResearchBrief:   state.ResearchBrief,
		Budget:          state.Budget,
		SummaryStrategy: string(state.SummaryStrategy),
		Context:         state.Context,
	}

	for _, c := range state.Citations {
		resp.Citations = append(resp.Citations, CitationResponse{
			Ordinal: c.Ordinal,
			Title:   c.Title,
			URL:     c.URL,
			Snippet: c.Snippet,
		})
	}

	if len(state.StageDurations) > 0 {
		resp.StageTimingsMs = make(map[string]int64, len(state.StageDurations))
		for stage, d := range state.StageDurations {
			resp.StageTimingsMs[stage] = d.Milliseconds()
		}
	}
	if len(state.Annotations) > 0 {
		resp.Annotations = state.Annotations
	}

	return resp
}

// ClassifyRequest 意图分类请求
type ClassifyRequest struct {
	Message string `json:"message" binding:"required"`
}

// ClassifyResponse 意图分类结果
type ClassifyResponse struct {
	Intent      string   `json:"intent"`
	Confidence  float64  `json:"confidence"`
	Method      string   `json:"method"`
	Complexity  string   `json:"complexity"`
	SearchQuery string   `json:"search_query,omitempty"`
	SubQueries  []string `json:"sub_queries,omitempty"`
}

// ClassifyResponseFromResult 把分类结果映射为响应
func ClassifyResponseFromResult(res *classify.Result, method string, complexity classify.Complexity) *ClassifyResponse {
	return &ClassifyResponse{
		Intent:      string(res.Intent),
		Confidence:  res.Confidence,
		Method:      method,
		Complexity:  string(complexity),
		SearchQuery: res.SearchQuery,
		SubQueries:  res.SubQueries,
	}
}
