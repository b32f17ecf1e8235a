package classify

import (
	"strings"
	"unicode/utf8"
)

// 复杂度评估的指标词。与意图规则表互不共享，评估结果也不受置信度影响。
var (
	analyticalWords = []string{
		"warum", "wieso", "weshalb", "wie funktioniert", "auswirkung",
		"auswirkungen", "zusammenhang", "ursache", "folgen",
		"why", "how", "impact", "cause", "relationship",
	}
	comparativeWords = []string{
		"vergleich", "vergleiche", "unterschied", "unterschiede",
		"vor- und nachteile", "gegenüber", "versus", "vs",
		"compare", "difference", "pros and cons",
	}
	aggregationWords = []string{
		"liste", "alle", "welche", "wie viele", "übersicht über",
		"list", "all", "which", "how many",
	}
)

// AssessComplexity 独立于意图分类的复杂度启发式。
// 累加长度、指标词、问号数量三个因子，按固定阈值分档。
func AssessComplexity(message string) Complexity {
	lower := strings.ToLower(message)
	score := 0.0

	// 长度因子
	runes := utf8.RuneCountInString(message)
	if runes > 200 {
		score += 0.4
	} else if runes > 80 {
		score += 0.2
	}

	// 指标词因子，每类最多计一次
	score += wordFactor(lower, analyticalWords, 0.3)
	score += wordFactor(lower, comparativeWords, 0.3)
	score += wordFactor(lower, aggregationWords, 0.2)

	// 多个问题并列
	if strings.Count(message, "?")+strings.Count(message, "？") > 1 {
		score += 0.2
	}

	switch {
	case score >= 0.6:
		return ComplexityComplex
	case score >= 0.3:
		return ComplexityModerate
	default:
		return ComplexitySimple
	}
}

func wordFactor(lower string, words []string, weight float64) float64 {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return weight
		}
	}
	return 0
}
