package summarize

import (
	"context"
	"strings"

	"gruenerator-assist-api/internal/domain/entity"
	"gruenerator-assist-api/internal/domain/repository"
	"gruenerator-assist-api/pkg/logger"
)

// SourceKind 摘要素材的来源类别
type SourceKind string

const (
	SourceVectorizedAttachment SourceKind = "vectorized-attachment"
	SourceReferencedDocument   SourceKind = "referenced-document"
	SourceRawAttachment        SourceKind = "raw-attachment"
	SourceConversation         SourceKind = "conversation"
)

// Source 选中的摘要素材
type Source struct {
	Kind SourceKind
	Text string
}

// SourceSelector 按固定优先级挑选摘要素材：
// 已向量化的当前附件 → 对话中引用的文档 → 原始附件文本 → 最近对话轮次。
type SourceSelector struct {
	docs repository.DocumentStore

	// turnWindow 兜底时取最近几轮对话
	turnWindow int
}

// NewSourceSelector 构建素材选择器
func NewSourceSelector(docs repository.DocumentStore, turnWindow int) *SourceSelector {
	return &SourceSelector{docs: docs, turnWindow: turnWindow}
}

// Select 返回优先级最高的非空素材；什么都没有时返回 (nil, false)。
// 文档拉取失败只降级到下一优先级，不向上抛错。
func (s *SourceSelector) Select(ctx context.Context, userID string, attachments []entity.Attachment, referencedIDs []string, turns []entity.ConversationTurn) (*Source, bool) {
	var vectorizedIDs []string
	for _, att := range attachments {
		if att.Vectorized && att.ID != "" {
			vectorizedIDs = append(vectorizedIDs, att.ID)
		}
	}
	if text := s.fetchText(ctx, userID, vectorizedIDs); text != "" {
		return &Source{Kind: SourceVectorizedAttachment, Text: text}, true
	}

	if text := s.fetchText(ctx, userID, referencedIDs); text != "" {
		return &Source{Kind: SourceReferencedDocument, Text: text}, true
	}

	var raw []string
	for _, att := range attachments {
		if !att.Vectorized && strings.TrimSpace(att.Content) != "" {
			raw = append(raw, att.Content)
		}
	}
	if len(raw) > 0 {
		return &Source{Kind: SourceRawAttachment, Text: strings.Join(raw, "\n\n")}, true
	}

	if text := condenseTurns(turns, s.turnWindow); text != "" {
		return &Source{Kind: SourceConversation, Text: text}, true
	}

	return nil, false
}

// fetchText 从文档存储拉全文并拼接。部分失败的文档记日志后跳过。
func (s *SourceSelector) fetchText(ctx context.Context, userID string, ids []string) string {
	if len(ids) == 0 || s.docs == nil {
		return ""
	}
	res, err := s.docs.FetchDocuments(ctx, userID, ids)
	if err != nil {
		logger.Warn(ctx, "文档拉取失败，降级到下一素材来源", "error", err.Error(), "ids", len(ids))
		return ""
	}
	for id, msg := range res.Errors {
		logger.Warn(ctx, "单个文档拉取失败", "document_id", id, "error", msg)
	}

	parts := make([]string, 0, len(res.Documents))
	for _, doc := range res.Documents {
		if strings.TrimSpace(doc.Text) != "" {
			parts = append(parts, doc.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// condenseTurns 把最近的对话轮次压成可摘要的纯文本
func condenseTurns(turns []entity.ConversationTurn, window int) string {
	if window > 0 && len(turns) > window {
		turns = turns[len(turns)-window:]
	}
	var b strings.Builder
	for _, t := range turns {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		b.WriteString(t.Role)
		b.WriteString(": ")
		b.WriteString(t.Content)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
