package contextbuild

import "unicode/utf8"

// Citation 带序号的来源引用，只为携带 URL 的结果生成
type Citation struct {
	Ordinal int    `json:"ordinal"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// BuildCitations 从归一化结果导出引用：
// 过滤无 URL 的结果，片段截到 snippetChars 个字符，
// 最多 max 条，序号按首次出现顺序从 1 递增。
func BuildCitations(results []NormalizedResult, max, snippetChars int) []Citation {
	citations := make([]Citation, 0, max)
	for _, r := range results {
		if r.URL == "" {
			continue
		}
		citations = append(citations, Citation{
			Ordinal: len(citations) + 1,
			Title:   r.Title,
			URL:     r.URL,
			Snippet: headRunes(r.Content, snippetChars),
		})
		if len(citations) >= max {
			break
		}
	}
	return citations
}

// headRunes 按 rune 截取前 n 个字符
func headRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
