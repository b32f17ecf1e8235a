package contextbuild

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"gruenerator-assist-api/internal/application/classify"
	"gruenerator-assist-api/internal/config"
	"gruenerator-assist-api/internal/domain/entity"
	"gruenerator-assist-api/internal/domain/service"
	"gruenerator-assist-api/pkg/logger"
)

const synthesisSystemPrompt = `Du fasst Rechercheergebnisse zu einem kohärenten Briefing zusammen.
Entferne Duplikate und Irrelevantes, behalte alle belegbaren Fakten und Zahlen.
Antworte nur mit dem Briefing-Text, ohne Einleitung.`

// Assembler 把所有上下文片段按固定顺序拼成下游生成调用的指令载荷。
// 研究综合清洗分支由能力开关控制：关闭时与简单路径共用同一实现。
type Assembler struct {
	chat service.ChatService
	cfg  config.AssemblerConfig

	model     string
	maxTokens int
}

// NewAssembler 构建组装器。chat 只在启用研究清洗时使用，可为 nil。
func NewAssembler(chat service.ChatService, cfg config.AssemblerConfig, model string, maxTokens int) *Assembler {
	return &Assembler{chat: chat, cfg: cfg, model: model, maxTokens: maxTokens}
}

// AssembleInput 组装所需的全部片段
type AssembleInput struct {
	BaseRole string
	Intent   classify.Intent

	MemoryContext       string
	AttachmentSummaries []entity.AttachmentSummary
	Attachments         []entity.Attachment

	Results     []NormalizedResult
	SummaryText string

	// ResearchSynthesis 复杂研究路径：用 LLM 把片段清洗成连贯综合
	ResearchSynthesis bool
	ResearchBrief     string
}

// Assemble 按固定顺序拼接：角色 → 行为提示 → 记忆 → 历史附件摘要 →
// 当前附件 → 文档摘要 → 检索上下文。
// 第二个返回值携带综合清洗调用的 token 用量，未调用或失败时为 nil。
func (a *Assembler) Assemble(ctx context.Context, in *AssembleInput) (string, *service.ChatResponse) {
	var b strings.Builder
	var usage *service.ChatResponse

	if in.BaseRole != "" {
		b.WriteString(in.BaseRole)
		b.WriteString("\n\n")
	}

	b.WriteString(a.behaviorHint(in.Intent))
	b.WriteString("\n")

	if in.MemoryContext != "" {
		b.WriteString("\n## Nutzerkontext\n")
		b.WriteString(in.MemoryContext)
		b.WriteString("\n")
	}

	if len(in.AttachmentSummaries) > 0 {
		b.WriteString("\n## Frühere Anhänge\n")
		for _, s := range in.AttachmentSummaries {
			fmt.Fprintf(&b, "- %s: %s\n", s.Name, s.Summary)
		}
	}

	if section := a.attachmentSection(in.Attachments); section != "" {
		b.WriteString("\n## Aktuelle Anhänge\n")
		b.WriteString(section)
	}

	if in.SummaryText != "" {
		b.WriteString("\n## Dokumentzusammenfassung\n")
		b.WriteString(in.SummaryText)
		b.WriteString("\n")
	}

	if len(in.Results) > 0 {
		b.WriteString("\n## Rechercheergebnisse\n")
		retrieval, u := a.retrievalSection(ctx, in)
		b.WriteString(retrieval)
		usage = u
	}

	return b.String(), usage
}

// behaviorHint 意图相关的行为提示
func (a *Assembler) behaviorHint(intent classify.Intent) string {
	if !intent.NeedsRetrieval() {
		return "Für diese Anfrage wurde kein Material recherchiert. Antworte aus deinem eigenen Wissen."
	}
	return "Stütze deine Antwort auf das unten bereitgestellte recherchierte Material und zitiere die Quellen."
}

// attachmentSection 当前回合附件，双层预算：单文档 AttachmentChars，总量 AttachmentTotal
func (a *Assembler) attachmentSection(attachments []entity.Attachment) string {
	var b strings.Builder
	remaining := a.cfg.AttachmentTotal
	for _, att := range attachments {
		if remaining <= 0 {
			break
		}
		if att.Content == "" {
			continue
		}
		quota := a.cfg.AttachmentChars
		if quota > remaining {
			quota = remaining
		}
		text := SmartTruncate(att.Content, quota)
		remaining -= utf8.RuneCountInString(text)
		fmt.Fprintf(&b, "### %s\n%s\n", att.Name, text)
	}
	return b.String()
}

// retrievalSection 检索上下文：简单路径直接拼预算片段；
// 复杂研究路径先走一次 LLM 综合清洗，失败时退回原始片段。
func (a *Assembler) retrievalSection(ctx context.Context, in *AssembleInput) (string, *service.ChatResponse) {
	raw := a.rawSnippets(in.Results)

	if !a.cfg.ResearchCleaning || !in.ResearchSynthesis || a.chat == nil {
		return raw, nil
	}

	prompt := raw
	if in.ResearchBrief != "" {
		prompt = "Rechercheauftrag: " + in.ResearchBrief + "\n\n" + raw
	}
	resp, err := a.chat.Generate(ctx, &service.ChatRequest{
		System: synthesisSystemPrompt,
		Messages: []service.ChatMessage{
			{Role: "user", Content: prompt},
		},
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Temperature: 0.2,
	})
	if err != nil {
		logger.Warn(ctx, "研究综合清洗失败，退回原始片段", "error", err.Error())
		return raw, nil
	}

	synthesis := strings.TrimSpace(resp.Content)
	if synthesis == "" {
		return raw, resp
	}
	return headRunes(synthesis, a.cfg.SynthesisChars), resp
}

// rawSnippets 把预算裁剪后的结果拼成编号列表
func (a *Assembler) rawSnippets(results []NormalizedResult) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s (%s)\n%s\n\n", i+1, r.Title, r.Source, r.Content)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
