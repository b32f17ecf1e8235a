// Package pipeline 驱动整条请求管线：
// 分类 → 置信度门限 → 研究简报 → 检索归一化 → 预算/摘要 → 上下文组装。
package pipeline

import (
	"time"

	"github.com/google/uuid"

	"gruenerator-assist-api/internal/application/classify"
	"gruenerator-assist-api/internal/application/contextbuild"
	"gruenerator-assist-api/internal/application/summarize"
	"gruenerator-assist-api/internal/domain/entity"
	"gruenerator-assist-api/internal/domain/service"
)

// Request 一次管线调用的输入
type Request struct {
	UserID   string
	ThreadID string
	Message  string

	Turns               []entity.ConversationTurn
	Attachments         []entity.Attachment
	AttachmentSummaries []entity.AttachmentSummary
	ReferencedDocIDs    []string

	MemoryContext string
	BaseRole      string
}

// State 贯穿全部阶段的请求累加器。
// 字段只增不删：后续阶段只新增或覆盖具体字段。
// 随请求创建、随请求丢弃，绝不持久化。
type State struct {
	Request *Request

	Classification *classify.Result
	Method         string // heuristic / llm
	Complexity     classify.Complexity

	ResearchBrief string

	Results   []contextbuild.NormalizedResult
	Citations []contextbuild.Citation
	Budget    int

	SummarySource   summarize.SourceKind
	SummaryText     string
	SummaryStrategy summarize.Strategy

	Context string

	// StageDurations 各阶段耗时，阶段名 → 耗时
	StageDurations map[string]time.Duration

	// Annotations 非致命阶段错误的注记，阶段名 → 错误描述
	Annotations map[string]string

	events []*entity.UsageEvent
}

// NewState 创建请求状态
func NewState(req *Request) *State {
	return &State{
		Request:        req,
		StageDurations: make(map[string]time.Duration),
		Annotations:    make(map[string]string),
	}
}

// Observe 记录阶段耗时
func (s *State) Observe(stage string, d time.Duration) {
	s.StageDurations[stage] = d
}

// Annotate 记录非致命错误。阶段自己消化失败并继续，注记只用于回传与排障。
func (s *State) Annotate(stage string, err error) {
	if err != nil {
		s.Annotations[stage] = err.Error()
	}
}

// AddUsage 把一次 LLM 调用的 token 用量追加为用量事件
func (s *State) AddUsage(kind string, resp *service.ChatResponse, dur time.Duration) {
	if resp == nil {
		return
	}
	intent := ""
	if s.Classification != nil {
		intent = string(s.Classification.Intent)
	}
	s.events = append(s.events, &entity.UsageEvent{
		ID:               uuid.NewString(),
		UserID:           s.Request.UserID,
		Kind:             kind,
		Intent:           intent,
		Model:            resp.Model,
		TokensPrompt:     resp.PromptTokens,
		TokensCompletion: resp.CompletionTokens,
		DurationMs:       dur.Milliseconds(),
		CreatedAt:        time.Now(),
	})
}

// AddRetrievalEvent 记录一次检索后端调用
func (s *State) AddRetrievalEvent(source string, dur time.Duration) {
	intent := ""
	if s.Classification != nil {
		intent = string(s.Classification.Intent)
	}
	s.events = append(s.events, &entity.UsageEvent{
		ID:         uuid.NewString(),
		UserID:     s.Request.UserID,
		Kind:       entity.UsageKindRetrieval,
		Intent:     intent,
		Source:     source,
		DurationMs: dur.Milliseconds(),
		CreatedAt:  time.Now(),
	})
}

// DrainEvents 取走积累的用量事件。管线本身不做落库等副作用，
// 由调用方在阶段结束后统一分发。
func (s *State) DrainEvents() []*entity.UsageEvent {
	evts := s.events
	s.events = nil
	return evts
}
