package contextbuild

import (
	"fmt"
	"unicode/utf8"

	"gruenerator-assist-api/internal/config"
)

// BudgetAllocator 把固定字符预算按加权相关度分摊到各结果上。
// 配置在构造时注入，此后只读。
type BudgetAllocator struct {
	cfg config.BudgetConfig
}

// NewBudgetAllocator 构建预算分配器
func NewBudgetAllocator(cfg config.BudgetConfig) *BudgetAllocator {
	return &BudgetAllocator{cfg: cfg}
}

// Allocate 裁剪结果列表：
// 最多保留 MaxResults 条；任一结果内容超过 RichThreshold 时切换到扩展预算
// （长内容视为整文档而非摘要片段）；每条结果的配额与加权相关度成正比，
// 长内容权重翻倍；配额不低于 FloorChars。
// 返回裁剪后的副本和本次生效的总预算。
func (a *BudgetAllocator) Allocate(results []NormalizedResult) ([]NormalizedResult, int) {
	if len(results) == 0 {
		return nil, a.cfg.BaseChars
	}
	if len(results) > a.cfg.MaxResults {
		results = results[:a.cfg.MaxResults]
	}

	budget := a.cfg.BaseChars
	for _, r := range results {
		if utf8.RuneCountInString(r.Content) > a.cfg.RichThreshold {
			budget = a.cfg.ExtendedChars
			break
		}
	}

	weights := make([]float64, len(results))
	total := 0.0
	for i, r := range results {
		w := r.Relevance
		if w < 0.1 {
			w = 0.1
		}
		if utf8.RuneCountInString(r.Content) > a.cfg.RichThreshold {
			w *= 2
		}
		weights[i] = w
		total += w
	}

	out := make([]NormalizedResult, len(results))
	for i, r := range results {
		quota := int(float64(budget) * weights[i] / total)
		if quota < a.cfg.FloorChars {
			quota = a.cfg.FloorChars
		}
		r.Content = SmartTruncate(r.Content, quota)
		out[i] = r
	}
	return out, budget
}

// SmartTruncate 保留开头 60% 和结尾 40% 的配额，中间以省略标记连接。
// 素材通常把要点放在开头和结论里，纯粹的前缀截断会丢掉结论。
// 文本不超过配额时原样返回。
func SmartTruncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit || limit <= 0 {
		return text
	}

	head := limit * 60 / 100
	tail := limit - head
	omitted := len(runes) - head - tail

	return fmt.Sprintf("%s\n[… %d Zeichen ausgelassen …]\n%s",
		string(runes[:head]), omitted, string(runes[len(runes)-tail:]))
}
