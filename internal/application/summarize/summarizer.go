package summarize

import (
	"context"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"gruenerator-assist-api/internal/config"
	"gruenerator-assist-api/internal/domain/service"
	"gruenerator-assist-api/pkg/logger"
	"gruenerator-assist-api/pkg/metrics"
)

// Strategy 摘要策略
type Strategy string

const (
	StrategySinglePass Strategy = "single_pass"
	StrategyMapReduce  Strategy = "map_reduce"
)

// FailureMessage 全部窗口失败时返回给用户的固定文案
const FailureMessage = "Das Dokument konnte nicht zusammengefasst werden."

const (
	windowSystemPrompt = `Fasse den folgenden Textausschnitt sachlich zusammen.
Behalte Zahlen, Namen und Kernaussagen. Antworte nur mit der Zusammenfassung.`

	mergeSystemPrompt = `Du erhältst mehrere Teilzusammenfassungen desselben Dokuments.
Führe sie zu einer kohärenten Gesamtzusammenfassung zusammen und entferne Dopplungen.
Antworte nur mit der Zusammenfassung.`
)

// Summarizer 按文档长度自适应选择摘要策略。
// 不超过 SinglePassMax 的文本单次调用；更长的走 map-reduce：
// 切重叠窗口并发摘要，失败窗口丢弃，幸存摘要合并。
type Summarizer struct {
	chat      service.ChatService
	cfg       config.SummarizerConfig
	model     string
	maxTokens int
}

// NewSummarizer 构建摘要器
func NewSummarizer(chat service.ChatService, cfg config.SummarizerConfig, model string, maxTokens int) *Summarizer {
	return &Summarizer{chat: chat, cfg: cfg, model: model, maxTokens: maxTokens}
}

// Outcome 一次摘要的结果与过程统计
type Outcome struct {
	Summary  string
	Strategy Strategy

	Windows       int
	FailedWindows int

	// Usages 各次 LLM 调用的 token 用量，由调用方取走并落账
	Usages []*service.ChatResponse
}

// Summarize 执行自适应摘要。任何失败都在内部消化：
// 最坏情况下 Summary 是固定失败文案，绝不返回错误。
func (s *Summarizer) Summarize(ctx context.Context, text string) *Outcome {
	if utf8.RuneCountInString(text) <= s.cfg.SinglePassMax {
		return s.singlePass(ctx, text)
	}
	return s.mapReduce(ctx, text)
}

func (s *Summarizer) singlePass(ctx context.Context, text string) *Outcome {
	metrics.SummarizeStrategyTotal.WithLabelValues(string(StrategySinglePass)).Inc()
	out := &Outcome{Strategy: StrategySinglePass, Windows: 1}

	resp, err := s.summarizeOnce(ctx, windowSystemPrompt, text)
	if err != nil {
		logger.Error(ctx, "单次摘要失败", err)
		out.FailedWindows = 1
		out.Summary = FailureMessage
		return out
	}
	out.Usages = append(out.Usages, resp)
	out.Summary = strings.TrimSpace(resp.Content)
	if out.Summary == "" {
		out.Summary = FailureMessage
	}
	return out
}

// mapReduce 长文档路径。map 阶段全窗口并发发起，等全部落定后进入 reduce；
// 单个窗口失败只被剔除，从不中止整批。
func (s *Summarizer) mapReduce(ctx context.Context, text string) *Outcome {
	metrics.SummarizeStrategyTotal.WithLabelValues(string(StrategyMapReduce)).Inc()

	segments := SplitSegments(text, s.cfg.WindowSize, s.cfg.WindowOverlap)
	out := &Outcome{Strategy: StrategyMapReduce, Windows: len(segments)}

	partials := make([]string, len(segments))
	usages := make([]*service.ChatResponse, len(segments))

	var g errgroup.Group
	for i, seg := range segments {
		g.Go(func() error {
			resp, err := s.summarizeOnce(ctx, windowSystemPrompt, seg.Text)
			if err != nil {
				logger.Warn(ctx, "摘要窗口失败，剔除该窗口",
					"window", i, "start", seg.StartOffset, "error", err.Error())
				metrics.SummarizeWindowsTotal.WithLabelValues("failed").Inc()
				return nil
			}
			metrics.SummarizeWindowsTotal.WithLabelValues("ok").Inc()
			partials[i] = strings.TrimSpace(resp.Content)
			usages[i] = resp
			return nil
		})
	}
	// 各 goroutine 只写自己的下标，返回值恒为 nil
	_ = g.Wait()

	survivors := make([]string, 0, len(partials))
	for i, p := range partials {
		if usages[i] != nil {
			out.Usages = append(out.Usages, usages[i])
		}
		if p != "" {
			survivors = append(survivors, p)
		}
	}
	out.FailedWindows = len(segments) - len(survivors)

	switch len(survivors) {
	case 0:
		out.Summary = FailureMessage
	case 1:
		out.Summary = survivors[0]
	default:
		out.Summary = s.reduce(ctx, out, survivors)
	}
	return out
}

// reduce 合并幸存的窗口摘要。合并调用失败时直接拼接幸存摘要，
// 宁可重复也不丢内容。
func (s *Summarizer) reduce(ctx context.Context, out *Outcome, survivors []string) string {
	joined := strings.Join(survivors, "\n\n")
	resp, err := s.summarizeOnce(ctx, mergeSystemPrompt, joined)
	if err != nil {
		logger.Warn(ctx, "reduce 合并调用失败，拼接窗口摘要", "error", err.Error())
		return joined
	}
	out.Usages = append(out.Usages, resp)
	merged := strings.TrimSpace(resp.Content)
	if merged == "" {
		return joined
	}
	return merged
}

func (s *Summarizer) summarizeOnce(ctx context.Context, system, text string) (*service.ChatResponse, error) {
	return s.chat.Generate(ctx, &service.ChatRequest{
		System: system,
		Messages: []service.ChatMessage{
			{Role: "user", Content: text},
		},
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		Temperature: 0.2,
	})
}
