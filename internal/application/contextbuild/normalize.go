// Package contextbuild 把检索结果归一化、按预算裁剪并组装成最终的指令上下文。
package contextbuild

import (
	"fmt"
	"strings"

	"gruenerator-assist-api/internal/domain/repository"
)

// NormalizedResult 所有检索后端的统一结果形态
type NormalizedResult struct {
	Source    string  `json:"source"`
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	URL       string  `json:"url,omitempty"`
	Relevance float64 `json:"relevance"`
}

// 各后端对同一概念使用的字段别名，按优先级排列
var (
	titleKeys   = []string{"title", "name", "source"}
	contentKeys = []string{"content", "snippet", "excerpt", "text"}
	urlKeys     = []string{"url", "link"}
	scoreKeys   = []string{"score", "relevance", "similarity"}
)

// Normalize 把某个后端的原始结果列表映射为统一形态。
// 后端字段命名各不相同，这里做别名容错；没有显式分数时按位置衰减赋默认值。
func Normalize(source string, raws []repository.RawResult) []NormalizedResult {
	out := make([]NormalizedResult, 0, len(raws))
	for i, raw := range raws {
		content := firstString(raw, contentKeys)
		if strings.TrimSpace(content) == "" {
			continue
		}

		title := firstString(raw, titleKeys)
		if strings.TrimSpace(title) == "" {
			title = fmt.Sprintf("%s-Ergebnis %d", source, i+1)
		}

		relevance, ok := firstFloat(raw, scoreKeys)
		if !ok {
			relevance = 1.0 - float64(i)*0.1
		}

		out = append(out, NormalizedResult{
			Source:    source,
			Title:     title,
			Content:   content,
			URL:       firstString(raw, urlKeys),
			Relevance: clamp01(relevance),
		})
	}
	return out
}

// firstString 按别名优先级取第一个非空字符串字段
func firstString(raw repository.RawResult, keys []string) string {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// firstFloat 按别名优先级取第一个数值字段。
// JSON 解码产出 float64，部分后端 SDK 给 float32 或 int。
func firstFloat(raw repository.RawResult, keys []string) (float64, bool) {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		case int:
			return float64(n), true
		}
	}
	return 0, false
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
