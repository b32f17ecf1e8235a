package llm

import (
	"context"
	"strings"
	"time"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"gruenerator-assist-api/internal/domain/service"
	"gruenerator-assist-api/pkg/errors"
	"gruenerator-assist-api/pkg/logger"
	"gruenerator-assist-api/pkg/metrics"
)

// ChatService service.ChatService 的 Eino 实现。
// JSON 响应约束优先走 response_format；提供商不支持时降级为纯 Prompt 约束。
type ChatService struct {
	factory  *EinoFactory
	provider string
}

// NewChatService 创建 LLM 调用服务
func NewChatService(factory *EinoFactory, provider string) *ChatService {
	return &ChatService{factory: factory, provider: provider}
}

var _ service.ChatService = (*ChatService)(nil)

// Generate 执行一次模型调用。
// 只在服务本身不可用时返回错误；输出内容的格式问题由调用方容错。
func (s *ChatService) Generate(ctx context.Context, req *service.ChatRequest) (*service.ChatResponse, error) {
	chatModel, err := s.factory.Get(ctx, s.provider)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeLLMProviderError, "llm provider unavailable")
	}

	msgs := buildMessages(req)
	start := time.Now()

	outMsg, err := chatModel.Generate(ctx, msgs, buildModelOptions(req, req.JSONResponse)...)
	if err != nil && req.JSONResponse && isResponseFormatUnsupportedError(err) {
		logger.Warn(ctx, "response_format 不被提供商支持，降级为纯 prompt 约束",
			"provider", s.provider, "model", req.Model, "error", err.Error())
		outMsg, err = chatModel.Generate(ctx, msgs, buildModelOptions(req, false)...)
	}

	modelName := req.Model
	metrics.LLMCallDuration.WithLabelValues(modelName, "generate").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues(modelName, "generate", "error").Inc()
		return nil, errors.Wrap(err, errors.CodeLLMCallFailed, "llm generate failed")
	}
	metrics.LLMCallTotal.WithLabelValues(modelName, "generate", "ok").Inc()

	resp := &service.ChatResponse{Content: outMsg.Content, Model: modelName}
	if outMsg.ResponseMeta != nil && outMsg.ResponseMeta.Usage != nil {
		resp.PromptTokens = outMsg.ResponseMeta.Usage.PromptTokens
		resp.CompletionTokens = outMsg.ResponseMeta.Usage.CompletionTokens
		metrics.LLMTokensUsed.WithLabelValues(modelName, "prompt").Add(float64(resp.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues(modelName, "completion").Add(float64(resp.CompletionTokens))
	}
	return resp, nil
}

func buildMessages(req *service.ChatRequest) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(req.Messages)+1)
	if strings.TrimSpace(req.System) != "" {
		msgs = append(msgs, schema.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case "assistant":
			msgs = append(msgs, schema.AssistantMessage(m.Content, nil))
		default:
			msgs = append(msgs, schema.UserMessage(m.Content))
		}
	}
	return msgs
}

func buildModelOptions(req *service.ChatRequest, enableJSON bool) []model.Option {
	opts := make([]model.Option, 0, 4)

	if strings.TrimSpace(req.Model) != "" {
		opts = append(opts, model.WithModel(strings.TrimSpace(req.Model)))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}
	opts = append(opts, model.WithTemperature(req.Temperature))

	if enableJSON {
		// 强约束 JSON 输出；不支持时由调用方降级重试
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{"type": "json_object"},
		}))
	}
	return opts
}

func isResponseFormatUnsupportedError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "response_format"):
		return true
	case strings.Contains(msg, "json_object"):
		return true
	case strings.Contains(msg, "unknown parameter") && strings.Contains(msg, "response"):
		return true
	case strings.Contains(msg, "invalid") && strings.Contains(msg, "response"):
		return true
	default:
		return false
	}
}
