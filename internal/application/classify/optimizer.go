package classify

import (
	"strings"
	"unicode/utf8"
)

// 查询优化器的词表。全部在包初始化时构建，运行期只读。
var (
	// 创作/指令动词，出现在句首时剥离
	instructionVerbs = map[string]bool{
		"schreib": true, "schreibe": true, "verfasse": true, "erstelle": true,
		"entwirf": true, "formuliere": true, "dichte": true, "mache": true,
		"mach": true, "gib": true, "zeig": true, "zeige": true, "nenne": true,
		"write": true, "create": true, "draft": true, "make": true, "give": true,
	}

	// 冠词与限定词
	articles = map[string]bool{
		"der": true, "die": true, "das": true, "den": true, "dem": true, "des": true,
		"ein": true, "eine": true, "einen": true, "einem": true, "einer": true, "eines": true,
		"mir": true, "uns": true, "bitte": true,
		"a": true, "an": true, "the": true,
	}

	// 内容类型名词：任务产物的体裁，不是检索主题本身
	contentNouns = map[string]bool{
		"pressemitteilung": true, "antrag": true, "antragstext": true,
		"rede": true, "artikel": true, "stellungnahme": true, "bericht": true,
		"faktencheck": true, "text": true, "zusammenfassung": true,
		"recherche": true, "analyse": true, "übersicht": true,
		"press": true, "release": true, "speech": true, "article": true, "report": true,
	}

	// 连接主题的介词
	topicPrepositions = map[string]bool{
		"über": true, "zu": true, "zum": true, "zur": true, "von": true,
		"nach": true, "für": true, "bezüglich": true, "betreffend": true,
		"about": true, "on": true, "regarding": true,
	}

	// 显式搜索指令短语，按长度降序排列保证最长匹配优先
	searchPhrases = []string{
		"suche im internet nach",
		"such im internet nach",
		"suche im netz nach",
		"such im netz nach",
		"suche im internet",
		"suche im netz",
		"im internet nach",
		"im netz nach",
		"recherchiere zu",
		"recherchiere nach",
		"recherchiere",
		"recherche zu",
		"google nach",
		"suche nach",
		"such nach",
		"suche",
		"search the web for",
		"search for",
		"search",
	}
)

// OptimizeQuery 把指令式消息压缩成检索主题。
// 逐层剥离：句首动词、礼貌词与冠词、内容体裁名词、主题介词、残余冠词。
// 匹配在小写形式上进行，返回值保留原文大小写。
// 剥离结果过短或几乎剥空时放弃优化，返回原文。调用方可以无条件信任返回值非空。
func OptimizeQuery(text string) string {
	original := strings.TrimSpace(text)
	if original == "" {
		return original
	}

	words := strings.Fields(original)
	if len(words) == 0 {
		return original
	}

	// 句首指令动词
	if instructionVerbs[lowerWord(words[0])] {
		words = words[1:]
	}
	// 动词后的冠词/礼貌词，可能连续多个（"mir bitte eine"）
	words = trimLeadingIn(words, articles)
	// 内容体裁名词
	if len(words) > 0 && contentNouns[lowerWord(words[0])] {
		words = words[1:]
	}
	// 主题介词
	if len(words) > 0 && topicPrepositions[lowerWord(words[0])] {
		words = words[1:]
	}
	// 介词后的冠词
	words = trimLeadingIn(words, articles)

	candidate := strings.TrimRight(strings.Join(words, " "), ".!?")
	if !optimizationSafe(original, candidate) {
		return original
	}
	return candidate
}

// ExtractSearchTopic 剥掉显式搜索指令短语后再走常规优化。
// 用于 extracted-topic 策略的规则：命中"suche im netz nach klimapolitik"
// 时应得到"klimapolitik"。
func ExtractSearchTopic(text string) string {
	original := strings.TrimSpace(text)
	working := strings.ToLower(original)

	for _, phrase := range searchPhrases {
		if strings.HasPrefix(working, phrase) {
			rest := strings.TrimSpace(original[len(phrase):])
			rest = strings.TrimRight(rest, ".!?")
			if optimizationSafe(original, rest) {
				return OptimizeQuery(rest)
			}
			break
		}
	}
	return OptimizeQuery(original)
}

// lowerWord 小写化并去掉粘连的尾部标点，用于词表查找
func lowerWord(w string) string {
	return strings.Trim(strings.ToLower(w), ".,!?;:\"'")
}

// trimLeadingIn 连续移除出现在词表里的首部词
func trimLeadingIn(words []string, table map[string]bool) []string {
	for len(words) > 0 && table[lowerWord(words[0])] {
		words = words[1:]
	}
	return words
}

// optimizationSafe 判断剥离结果是否可用：
// 少于 4 个字符或移除了超过 90% 的原文都视为过度剥离。
func optimizationSafe(original, candidate string) bool {
	cl := utf8.RuneCountInString(candidate)
	if cl < 4 {
		return false
	}
	ol := utf8.RuneCountInString(original)
	if ol == 0 {
		return false
	}
	return float64(cl)/float64(ol) > 0.10
}
