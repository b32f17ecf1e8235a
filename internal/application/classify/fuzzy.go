package classify

import "unicode/utf8"

// Similarity 计算归一化编辑距离相似度：1 - dist/max(len)。
// 对称；相同字符串返回 1.0；完全不同的等长字符串返回 0.0。
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0.0
	}
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	return 1.0 - float64(editDistance(a, b))/float64(maxLen)
}

// editDistance Levenshtein 距离（按 rune 计）
func editDistance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost

			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			curr[j] = m
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// BestMatch 在候选关键词中找相似度最高且不低于阈值的一个
func BestMatch(word string, candidates []string, threshold float64) (string, float64, bool) {
	best := ""
	bestScore := 0.0
	for _, c := range candidates {
		if s := Similarity(word, c); s > bestScore {
			best = c
			bestScore = s
		}
	}
	if bestScore >= threshold {
		return best, bestScore, true
	}
	return "", bestScore, false
}
