package pipeline

import (
	"context"
	"strings"

	"gruenerator-assist-api/internal/application/classify"
	"gruenerator-assist-api/internal/domain/entity"
	"gruenerator-assist-api/internal/domain/service"
	"gruenerator-assist-api/pkg/logger"
)

const briefSystemPrompt = `Du verdichtest einen Gesprächsverlauf zu einem Rechercheauftrag.
Formuliere in 2-3 Sätzen, was die Person tatsächlich wissen will,
welche Einschränkungen gelten und entlang welcher Achsen verglichen werden soll.
Antworte nur mit dem Auftrag.`

// BriefCompressor 研究简报压缩器。
// 只在复杂度为 complex 且意图为深度研究时启用，把最近几轮对话和
// 分类出的查询压成一条简短指令。
type BriefCompressor struct {
	chat       service.ChatService
	model      string
	maxTokens  int
	turnWindow int
}

// NewBriefCompressor 构建简报压缩器
func NewBriefCompressor(chat service.ChatService, model string, maxTokens, turnWindow int) *BriefCompressor {
	return &BriefCompressor{chat: chat, model: model, maxTokens: maxTokens, turnWindow: turnWindow}
}

// Compress 生成研究简报。任何失败都静默跳过并返回空串，
// 下游退回使用原始分类查询。
func (b *BriefCompressor) Compress(ctx context.Context, turns []entity.ConversationTurn, res *classify.Result) (string, *service.ChatResponse) {
	var prompt strings.Builder

	if b.turnWindow > 0 && len(turns) > b.turnWindow {
		turns = turns[len(turns)-b.turnWindow:]
	}
	if len(turns) > 0 {
		prompt.WriteString("Gesprächsverlauf:\n")
		for _, t := range turns {
			prompt.WriteString(t.Role)
			prompt.WriteString(": ")
			prompt.WriteString(t.Content)
			prompt.WriteString("\n")
		}
		prompt.WriteString("\n")
	}

	prompt.WriteString("Klassifizierte Anfrage: ")
	prompt.WriteString(res.SearchQuery)
	if len(res.SubQueries) > 0 {
		prompt.WriteString("\nTeilfragen: ")
		prompt.WriteString(strings.Join(res.SubQueries, "; "))
	}

	resp, err := b.chat.Generate(ctx, &service.ChatRequest{
		System: briefSystemPrompt,
		Messages: []service.ChatMessage{
			{Role: "user", Content: prompt.String()},
		},
		Model:       b.model,
		MaxTokens:   b.maxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		logger.Warn(ctx, "研究简报生成失败，跳过该阶段", "error", err.Error())
		return "", nil
	}
	return strings.TrimSpace(resp.Content), resp
}
