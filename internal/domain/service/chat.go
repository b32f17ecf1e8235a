// Package service 定义领域服务端口
package service

import "context"

// ChatMessage 单条对话消息
type ChatMessage struct {
	Role    string
	Content string
}

// ChatRequest LLM 调用请求
type ChatRequest struct {
	System   string
	Messages []ChatMessage

	Model       string
	MaxTokens   int
	Temperature float32

	// JSONResponse 显式要求模型返回 JSON 对象
	JSONResponse bool
}

// ChatResponse LLM 调用响应
type ChatResponse struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// ChatService LLM 调用服务端口。
// 仅在服务本身不可达时返回错误；输出格式问题由调用方自行容错。
type ChatService interface {
	Generate(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}
