// Package summarize 实现自适应文档摘要：
// 短文档单次调用，长文档切成重叠窗口做 map-reduce。
package summarize

import "strings"

// DocumentSegment 长文档的一个摘要窗口
type DocumentSegment struct {
	Text        string
	StartOffset int
	EndOffset   int
}

// SplitSegments 把文本切成带重叠的窗口（按 rune 计）。
// 相邻窗口共享 overlap 个字符，避免在窗口边界丢失上下文。
// 偏移量以 rune 为单位，指向原文位置。
func SplitSegments(s string, windowSize, overlap int) []DocumentSegment {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return nil
	}
	if windowSize <= 0 {
		return []DocumentSegment{{Text: raw, StartOffset: 0, EndOffset: len([]rune(raw))}}
	}
	if overlap < 0 {
		overlap = 0
	}

	runes := []rune(raw)
	if len(runes) <= windowSize {
		return []DocumentSegment{{Text: raw, StartOffset: 0, EndOffset: len(runes)}}
	}

	step := windowSize - overlap
	if step <= 0 {
		step = windowSize
	}

	out := make([]DocumentSegment, 0, (len(runes)/step)+1)
	for start := 0; start < len(runes); start += step {
		end := start + windowSize
		if end > len(runes) {
			end = len(runes)
		}
		text := strings.TrimSpace(string(runes[start:end]))
		if text != "" {
			out = append(out, DocumentSegment{Text: text, StartOffset: start, EndOffset: end})
		}
		if end >= len(runes) {
			break
		}
	}
	return out
}
