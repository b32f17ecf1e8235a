package entity

import "time"

// 事件类型
const (
	UsageKindClassification = "classification"
	UsageKindBrief          = "brief"
	UsageKindSummarization  = "summarization"
	UsageKindSynthesis      = "synthesis"
	UsageKindRetrieval      = "retrieval"
)

// UsageEvent 管线产生的用量事件。
// 各阶段不直接落库，只把事件追加到请求状态，由调用方统一排空分发。
type UsageEvent struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Kind             string    `json:"kind"`
	Intent           string    `json:"intent,omitempty"`
	Model            string    `json:"model,omitempty"`
	Source           string    `json:"source,omitempty"`
	TokensPrompt     int       `json:"tokens_prompt"`
	TokensCompletion int       `json:"tokens_completion"`
	DurationMs       int64     `json:"duration_ms"`
	CreatedAt        time.Time `json:"created_at"`
}
