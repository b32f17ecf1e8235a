package classify

import (
	"context"
	"encoding/json"
	"strings"

	"gruenerator-assist-api/internal/domain/service"
	"gruenerator-assist-api/pkg/logger"
)

// llmConfidence LLM 兜底分类结果的统一置信度。
// 模型自己不输出可靠的置信值，这里取一个高于门限的固定值，
// 使同一请求不会二次触发兜底。
const llmConfidence = 0.88

const classifierSystemPrompt = `Du bist ein Intent-Klassifizierer für einen politischen Assistenten.
Analysiere die Nutzernachricht und antworte ausschließlich mit einem JSON-Objekt:
{
  "intent": "informational-search" | "party-document-search" | "web-search" | "example-search" | "deep-research" | "image-generation" | "no-retrieval",
  "search_query": "optimierte Suchanfrage oder leer",
  "sub_queries": ["höchstens 3 Teilfragen bei Mehrthemen-Anfragen"],
  "reasoning": "kurze Begründung"
}
Regeln:
- "no-retrieval" für Begrüßungen, Dank und reine Kreativaufgaben ohne Faktenbedarf.
- "party-document-search" wenn nach Programmen, Beschlüssen oder Positionen der Partei gefragt wird.
- "deep-research" für Aufgaben, die belegbare Fakten aus mehreren Quellen brauchen.
- search_query enthält nur das Sachthema, keine Aufgabenanweisung.`

// LLMClassifier 置信度不足时的模型兜底分类器。
// 解析链路逐级降级，最终退回规则分类器，因此 Classify 永不失败。
type LLMClassifier struct {
	chat      service.ChatService
	heuristic *HeuristicClassifier
	model     string
	maxTokens int
}

// NewLLMClassifier 构建兜底分类器，heuristic 作为解析链的最后一级
func NewLLMClassifier(chat service.ChatService, heuristic *HeuristicClassifier, model string, maxTokens int) *LLMClassifier {
	return &LLMClassifier{
		chat:      chat,
		heuristic: heuristic,
		model:     model,
		maxTokens: maxTokens,
	}
}

// Classify 调用模型并解析结构化结果。
// 第二个返回值携带 token 用量，调用失败时为 nil；
// 任何解析失败都在本地消化，绝不向上抛错。
func (c *LLMClassifier) Classify(ctx context.Context, message string) (*Result, *service.ChatResponse) {
	resp, err := c.chat.Generate(ctx, &service.ChatRequest{
		System: classifierSystemPrompt,
		Messages: []service.ChatMessage{
			{Role: "user", Content: message},
		},
		Model:        c.model,
		MaxTokens:    c.maxTokens,
		Temperature:  0.1,
		JSONResponse: true,
	})
	if err != nil {
		logger.Warn(ctx, "llm 分类调用失败，退回规则分类", "error", err.Error())
		return c.heuristic.Classify(message), nil
	}

	if res := c.parse(ctx, resp.Content, message); res != nil {
		return res, resp
	}
	logger.Warn(ctx, "llm 分类输出不可解析，退回规则分类", "content_len", len(resp.Content))
	return c.heuristic.Classify(message), resp
}

// parse 分层解析模型输出：
// 整体解析 → 最短花括号片段 → 最长花括号片段 → 意图名嗅探。
// 每一级只在上一级失败后尝试；全部失败返回 nil。
func (c *LLMClassifier) parse(ctx context.Context, content, message string) *Result {
	if res := c.decode(content); res != nil {
		return res
	}
	if res := c.decode(shortestBraceSpan(content)); res != nil {
		logger.Debug(ctx, "llm 分类经最短片段解析成功")
		return res
	}
	if res := c.decode(largestBraceSpan(content)); res != nil {
		logger.Debug(ctx, "llm 分类经最长片段解析成功")
		return res
	}
	if res := c.sniffIntent(content, message); res != nil {
		logger.Debug(ctx, "llm 分类经意图名嗅探恢复")
		return res
	}
	return nil
}

// rawResult 宽松解码目标：intent 先按字符串接收，便于重定向停用意图
type rawResult struct {
	Intent      string   `json:"intent"`
	SearchQuery string   `json:"search_query"`
	SubQueries  []string `json:"sub_queries"`
	Reasoning   string   `json:"reasoning"`
}

func (c *LLMClassifier) decode(s string) *Result {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var raw rawResult
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil
	}
	intent := Intent(strings.TrimSpace(strings.ToLower(raw.Intent)))
	if !intent.Valid() {
		mapped, ok := RemapIntent(raw.Intent)
		if !ok {
			return nil
		}
		intent = mapped
	}
	return sanitize(&Result{
		Intent:      intent,
		SearchQuery: raw.SearchQuery,
		SubQueries:  raw.SubQueries,
		Reasoning:   raw.Reasoning,
		Confidence:  llmConfidence,
	})
}

// sniffIntent 在纯文本输出里找意图名。
// 先查停用意图的重定向表，再按枚举顺序查活跃意图。
func (c *LLMClassifier) sniffIntent(content, message string) *Result {
	lower := strings.ToLower(content)
	for legacy, mapped := range remapIntents {
		if strings.Contains(lower, legacy) {
			return sanitize(&Result{
				Intent:      mapped,
				SearchQuery: OptimizeQuery(message),
				Reasoning:   "intent aus freitext erkannt",
				Confidence:  llmConfidence,
			})
		}
	}
	for _, intent := range allIntents {
		if strings.Contains(lower, string(intent)) {
			return sanitize(&Result{
				Intent:      intent,
				SearchQuery: OptimizeQuery(message),
				Reasoning:   "intent aus freitext erkannt",
				Confidence:  llmConfidence,
			})
		}
	}
	return nil
}

// shortestBraceSpan 返回首个 '{' 到其后最近一个 '}' 的片段。
// 适用于模型在 JSON 前后夹带说明文字、且对象本身无嵌套的常见情形。
func shortestBraceSpan(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	end := strings.Index(s[start:], "}")
	if end < 0 {
		return ""
	}
	return s[start : start+end+1]
}

// largestBraceSpan 返回首个 '{' 到最后一个 '}' 的片段，容忍内部嵌套
func largestBraceSpan(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
