package classify

import (
	"strings"
	"unicode/utf8"
)

// HeuristicClassifier 纯规则分类器：规则级联 + 模糊关键词兜底。
// 不做任何 IO，永不失败，作为整条流水线的第一道分类。
type HeuristicClassifier struct {
	rules          []KeywordRule
	keywords       []IntentKeywords
	fuzzyThreshold float64
}

// NewHeuristicClassifier 用默认规则表构建分类器
func NewHeuristicClassifier(fuzzyThreshold float64) *HeuristicClassifier {
	return &HeuristicClassifier{
		rules:          DefaultRules(),
		keywords:       DefaultKeywords(),
		fuzzyThreshold: fuzzyThreshold,
	}
}

// Classify 按优先级执行规则级联，未命中时降级到模糊匹配，最终兜底为
// no-retrieval 低置信结果（不触发任何检索）。返回值永远有效。
func (c *HeuristicClassifier) Classify(message string) *Result {
	text := strings.ToLower(strings.TrimSpace(message))
	if text == "" {
		return sanitize(&Result{
			Intent:     IntentNoRetrieval,
			Reasoning:  "leere nachricht",
			Confidence: confGreeting,
		})
	}

	for i := range c.rules {
		rule := &c.rules[i]
		if !rule.matches(text) {
			continue
		}
		return sanitize(&Result{
			Intent:      rule.Intent,
			SearchQuery: c.queryFor(rule.QueryPolicy, message),
			Reasoning:   "regel: " + rule.Name,
			Confidence:  rule.Confidence,
		})
	}

	if res := c.fuzzyMatch(text, message); res != nil {
		return res
	}

	return sanitize(&Result{
		Intent:     IntentNoRetrieval,
		Reasoning:  "kein muster erkannt",
		Confidence: confDefault,
	})
}

// queryFor 根据规则的查询策略生成检索查询
func (c *HeuristicClassifier) queryFor(policy QueryPolicy, message string) string {
	switch policy {
	case QueryNone:
		return ""
	case QueryExtractedTopic:
		return ExtractSearchTopic(message)
	default:
		return strings.TrimSpace(message)
	}
}

// fuzzyMatch 对消息里每个足够长的词和关键词表做编辑距离匹配。
// 短词（少于 4 个 rune）跳过：它们和任何关键词的相似度都没有区分力。
func (c *HeuristicClassifier) fuzzyMatch(text, message string) *Result {
	for _, word := range strings.Fields(text) {
		word = strings.Trim(word, ".,!?;:\"'")
		if utf8.RuneCountInString(word) < 4 {
			continue
		}
		for _, group := range c.keywords {
			if matched, _, ok := BestMatch(word, group.Words, c.fuzzyThreshold); ok {
				return sanitize(&Result{
					Intent:      group.Intent,
					SearchQuery: OptimizeQuery(message),
					Reasoning:   "unscharfer treffer: " + word + " ~ " + matched,
					Confidence:  confFuzzyKeyword,
				})
			}
		}
	}
	return nil
}
