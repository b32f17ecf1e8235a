// Package entity 定义领域实体
package entity

// 对话角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn 单轮对话
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Attachment 当前消息携带的附件文本。
// Vectorized 表示该附件已被切分写入向量库，全文需通过文档存储按 ID 拉取。
type Attachment struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Content    string `json:"content,omitempty"`
	Vectorized bool   `json:"vectorized"`
}

// AttachmentSummary 历史线程中附件的既有摘要
type AttachmentSummary struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}
