package classify

import (
	"regexp"
	"strings"
)

// QueryPolicy 规则命中后如何生成检索查询
type QueryPolicy string

const (
	// QueryKeepOriginal 直接使用原始消息文本
	QueryKeepOriginal QueryPolicy = "keep-original"
	// QueryNone 不生成查询
	QueryNone QueryPolicy = "null"
	// QueryExtractedTopic 剥离指令语，只保留事实主题
	QueryExtractedTopic QueryPolicy = "extracted-topic"
)

// 各规则的固定置信度常量。数值反映该模式的歧义程度。
const (
	confGreeting         = 0.95
	confExplicitWeb      = 0.90
	confImageGeneration  = 0.90
	confExplicitResearch = 0.88
	confPartyDocument    = 0.87
	confFactualCreative  = 0.86
	confExampleRequest   = 0.86
	confQuestionFactual  = 0.78
	confGenericCreative  = 0.72
	confFuzzyKeyword     = 0.65
	confDefault          = 0.50
)

// KeywordRule 单条分类规则：首词/前缀/子串/正则四种匹配方式任选其一生效。
type KeywordRule struct {
	Name        string
	FirstWords  []string
	Prefixes    []string
	Substrings  []string
	Pattern     *regexp.Regexp
	Intent      Intent
	Confidence  float64
	QueryPolicy QueryPolicy
}

// matches 对小写规范化后的文本做首个匹配测试。
// FirstWords 和去掉尾部标点的第一个词精确比较，
// 用于覆盖裸词问候（"hi"、"hey."），前缀匹配在这里会误伤 "hilfe" 之类的词。
func (r *KeywordRule) matches(text string) bool {
	if len(r.FirstWords) > 0 {
		fields := strings.Fields(text)
		first := ""
		if len(fields) > 0 {
			first = strings.Trim(fields[0], ".,!?;:")
		}
		for _, w := range r.FirstWords {
			if first == w {
				return true
			}
		}
	}
	for _, p := range r.Prefixes {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	for _, s := range r.Substrings {
		if strings.Contains(text, s) {
			return true
		}
	}
	if r.Pattern != nil && r.Pattern.MatchString(text) {
		return true
	}
	return false
}

var (
	factualCreativeRE = regexp.MustCompile(`^(schreib|schreibe|verfasse|erstelle|entwirf|formuliere|write|create|draft)\b.*\b(pressemitteilung|antrag|antragstext|rede|artikel|stellungnahme|bericht|faktencheck)\b`)
	genericCreativeRE = regexp.MustCompile(`^(schreib|schreibe|verfasse|erstelle|entwirf|formuliere|dichte|write|create|draft)\b`)
)

// DefaultRules 返回按优先级排序的规则级联。
// 顺序本身是设计不变量：问候在最前，显式事实内容标记先于通用创作任务检测。
// 级联在初始化阶段构建一次，此后只读。
func DefaultRules() []KeywordRule {
	return []KeywordRule{
		{
			Name:       "greeting",
			FirstWords: []string{"hi"},
			Prefixes: []string{
				"hallo", "hey", "moin", "servus",
				"guten morgen", "guten tag", "guten abend", "danke", "hello",
			},
			Intent:      IntentNoRetrieval,
			Confidence:  confGreeting,
			QueryPolicy: QueryNone,
		},
		{
			Name: "web-search-explicit",
			Substrings: []string{
				"suche im netz", "suche im internet", "such im netz",
				"im internet nach", "im netz nach", "google nach",
				"search the web", "web search",
			},
			Intent:      IntentWebSearch,
			Confidence:  confExplicitWeb,
			QueryPolicy: QueryExtractedTopic,
		},
		{
			Name: "image-generation",
			Substrings: []string{
				"sharepic", "erstelle ein bild", "generiere ein bild",
				"male ein bild", "bild generieren", "erstelle eine grafik",
			},
			Intent:      IntentImageGeneration,
			Confidence:  confImageGeneration,
			QueryPolicy: QueryNone,
		},
		{
			Name: "deep-research-explicit",
			Substrings: []string{
				"recherchiere", "recherche zu", "ausführliche recherche",
				"deep research", "tiefenrecherche",
			},
			Intent:      IntentDeepResearch,
			Confidence:  confExplicitResearch,
			QueryPolicy: QueryExtractedTopic,
		},
		{
			Name: "party-document",
			Substrings: []string{
				"wahlprogramm", "grundsatzprogramm", "parteiprogramm",
				"beschlusslage", "positionspapier", "parteitagsbeschluss",
			},
			Intent:      IntentPartyDocument,
			Confidence:  confPartyDocument,
			QueryPolicy: QueryKeepOriginal,
		},
		{
			// 事实型创作任务：创作动词 + 事实类内容名词。
			// 必须先于 creative-generic 检查。
			Name:        "factual-creative-task",
			Pattern:     factualCreativeRE,
			Intent:      IntentDeepResearch,
			Confidence:  confFactualCreative,
			QueryPolicy: QueryExtractedTopic,
		},
		{
			Name: "example-request",
			Substrings: []string{
				"beispiele für", "beispiel für", "zeig mir beispiele",
				"muster für", "vorlage für",
			},
			Intent:      IntentExampleSearch,
			Confidence:  confExampleRequest,
			QueryPolicy: QueryExtractedTopic,
		},
		{
			Name: "question-factual",
			Prefixes: []string{
				"was ist", "was sind", "wer ist", "wie funktioniert",
				"warum", "erkläre", "erklär mir", "what is", "who is",
			},
			Intent:      IntentInformational,
			Confidence:  confQuestionFactual,
			QueryPolicy: QueryKeepOriginal,
		},
		{
			// 无研究标记的通用创作任务
			Name:        "creative-generic",
			Pattern:     genericCreativeRE,
			Intent:      IntentNoRetrieval,
			Confidence:  confGenericCreative,
			QueryPolicy: QueryNone,
		},
	}
}

// IntentKeywords 模糊匹配关键词表（有序，先命中先赢）
type IntentKeywords struct {
	Intent Intent
	Words  []string
}

// DefaultKeywords 返回模糊匹配兜底层的关键词表
func DefaultKeywords() []IntentKeywords {
	return []IntentKeywords{
		{IntentPartyDocument, []string{"wahlprogramm", "grundsatzprogramm", "beschluss", "positionspapier", "partei"}},
		{IntentExampleSearch, []string{"beispiel", "beispiele", "muster", "vorlage"}},
		{IntentDeepResearch, []string{"recherche", "studie", "studien", "analyse", "vergleich"}},
		{IntentImageGeneration, []string{"sharepic", "grafik", "bildmotiv"}},
		{IntentWebSearch, []string{"internet", "nachrichten", "aktuelles", "news"}},
	}
}

// remapIntents 已停用能力的意图重定向。
// "person" 检索目前下线，静默改走通用网页搜索；保留为直通规则以便将来恢复。
var remapIntents = map[string]Intent{
	"person":        IntentWebSearch,
	"person-search": IntentWebSearch,
}

// RemapIntent 对已停用的意图做静默重定向
func RemapIntent(raw string) (Intent, bool) {
	mapped, ok := remapIntents[strings.TrimSpace(strings.ToLower(raw))]
	return mapped, ok
}
