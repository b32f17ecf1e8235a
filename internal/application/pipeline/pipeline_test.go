package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gruenerator-assist-api/internal/application/classify"
	"gruenerator-assist-api/internal/application/contextbuild"
	"gruenerator-assist-api/internal/application/summarize"
	"gruenerator-assist-api/internal/config"
	"gruenerator-assist-api/internal/domain/entity"
	"gruenerator-assist-api/internal/domain/repository"
	"gruenerator-assist-api/internal/domain/service"
)

// countingChat 记录调用次数的 ChatService 桩
type countingChat struct {
	mu      sync.Mutex
	calls   int
	content string
	err     error
}

func (c *countingChat) Generate(_ context.Context, _ *service.ChatRequest) (*service.ChatResponse, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return &service.ChatResponse{Content: c.content, Model: "test-model", PromptTokens: 10, CompletionTokens: 5}, nil
}

func (c *countingChat) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// stubSearcher 固定结果的检索后端桩
type stubSearcher struct {
	source string
	raws   []repository.RawResult
	err    error
	calls  int
}

func (s *stubSearcher) Source() string { return s.source }

func (s *stubSearcher) Search(_ context.Context, _ repository.SearchQuery) ([]repository.RawResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.raws, nil
}

type stubDocs struct{}

func (stubDocs) FetchDocuments(_ context.Context, _ string, ids []string) (*repository.DocumentFetchResult, error) {
	docs := make([]repository.DocumentText, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, repository.DocumentText{ID: id, Text: "dokumenttext", ChunkCount: 1})
	}
	return &repository.DocumentFetchResult{Documents: docs}, nil
}

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		Classifier: config.ClassifierConfig{
			ConfidenceGate:  0.85,
			FuzzyThreshold:  0.75,
			BriefTurnWindow: 5,
		},
		Budget: config.BudgetConfig{
			BaseChars:     4000,
			ExtendedChars: 6000,
			RichThreshold: 500,
			FloorChars:    200,
			MaxResults:    8,
			MaxCitations:  8,
			CitationChars: 200,
		},
		Summarizer: config.SummarizerConfig{
			SinglePassMax: 12000,
			WindowSize:    6000,
			WindowOverlap: 200,
		},
		Assembler: config.AssemblerConfig{
			ResearchCleaning: true,
			AttachmentChars:  8000,
			AttachmentTotal:  20000,
			SynthesisChars:   2000,
		},
	}
}

// newTestPipeline 组装一條测试管线，chat 同时服务分类、简报与摘要
func newTestPipeline(chat service.ChatService, searchers map[classify.Intent]repository.Searcher) *Pipeline {
	cfg := testPipelineConfig()
	heuristic := classify.NewHeuristicClassifier(cfg.Classifier.FuzzyThreshold)
	return New(Options{
		Heuristic:  heuristic,
		LLM:        classify.NewLLMClassifier(chat, heuristic, "test-model", 512),
		Brief:      NewBriefCompressor(chat, "test-model", 512, cfg.Classifier.BriefTurnWindow),
		Searchers:  searchers,
		Allocator:  contextbuild.NewBudgetAllocator(cfg.Budget),
		Summarizer: summarize.NewSummarizer(chat, cfg.Summarizer, "test-model", 1024),
		Sources:    summarize.NewSourceSelector(stubDocs{}, cfg.Classifier.BriefTurnWindow),
		Assembler:  contextbuild.NewAssembler(chat, cfg.Assembler, "test-model", 1024),
		Config:     cfg,
	})
}

func TestRun_HighConfidenceSkipsLLM(t *testing.T) {
	chat := &countingChat{content: "sollte nie gebraucht werden"}
	p := newTestPipeline(chat, nil)

	state := p.Run(context.Background(), &Request{UserID: "u1", Message: "hallo, wie geht's?"})

	assert.Equal(t, classify.IntentNoRetrieval, state.Classification.Intent)
	assert.Equal(t, "heuristic", state.Method)
	// Konfidenz ≥ Gate: kein einziger LLM-Aufruf
	assert.Equal(t, 0, chat.callCount())
	assert.NotEmpty(t, state.Context)
}

func TestRun_LowConfidenceTriggersLLM(t *testing.T) {
	chat := &countingChat{content: `{"intent":"web-search","search_query":"optimiert"}`}
	searcher := &stubSearcher{source: "web"}
	p := newTestPipeline(chat, map[classify.Intent]repository.Searcher{
		classify.IntentWebSearch: searcher,
	})

	state := p.Run(context.Background(), &Request{UserID: "u1", Message: "xyzzy plugh"})

	assert.Equal(t, "llm", state.Method)
	assert.Equal(t, classify.IntentWebSearch, state.Classification.Intent)
	assert.GreaterOrEqual(t, chat.callCount(), 1)

	events := state.DrainEvents()
	require.NotEmpty(t, events)
	assert.Equal(t, entity.UsageKindClassification, events[0].Kind)
	assert.Equal(t, "test-model", events[0].Model)
	assert.Equal(t, 10, events[0].TokensPrompt)
	// Zweites Drain ist leer
	assert.Empty(t, state.DrainEvents())
}

func TestRun_RetrievalAndCitations(t *testing.T) {
	searcher := &stubSearcher{
		source: "web",
		raws: []repository.RawResult{
			{"title": "A", "content": "inhalt a", "url": "https://a.example", "score": 0.9},
			{"title": "B", "content": "inhalt b"},
			{"title": "C", "content": "inhalt c", "url": "https://c.example", "score": 0.7},
		},
	}
	p := newTestPipeline(&countingChat{content: "egal"}, map[classify.Intent]repository.Searcher{
		classify.IntentWebSearch: searcher,
	})

	state := p.Run(context.Background(), &Request{UserID: "u1", Message: "suche im netz nach klimapolitik"})

	assert.Equal(t, "heuristic", state.Method)
	require.Len(t, state.Results, 3)
	require.Len(t, state.Citations, 2)
	assert.Equal(t, 1, state.Citations[0].Ordinal)
	assert.Equal(t, "A", state.Citations[0].Title)
	assert.Equal(t, 2, state.Citations[1].Ordinal)
	assert.Equal(t, "C", state.Citations[1].Title)
	assert.Equal(t, 4000, state.Budget)
	assert.Contains(t, state.Context, "## Rechercheergebnisse")
}

func TestRun_RetrievalFailureDegrades(t *testing.T) {
	searcher := &stubSearcher{source: "web", err: errors.New("backend down")}
	p := newTestPipeline(&countingChat{content: "egal"}, map[classify.Intent]repository.Searcher{
		classify.IntentWebSearch: searcher,
	})

	state := p.Run(context.Background(), &Request{UserID: "u1", Message: "suche im netz nach klimapolitik"})

	// Fehler wird zur Annotation, nie zum Abbruch
	assert.Empty(t, state.Results)
	assert.Contains(t, state.Annotations, "retrieve")
	assert.NotEmpty(t, state.Context)
}

func TestRun_NoBackendForIntent(t *testing.T) {
	p := newTestPipeline(&countingChat{content: "egal"}, nil)

	state := p.Run(context.Background(), &Request{UserID: "u1", Message: "suche im netz nach klimapolitik"})

	assert.Empty(t, state.Results)
	assert.Contains(t, state.Annotations, "retrieve")
}

func TestRun_NoRetrievalIntentSkipsSearch(t *testing.T) {
	searcher := &stubSearcher{source: "web"}
	p := newTestPipeline(&countingChat{content: "egal"}, map[classify.Intent]repository.Searcher{
		classify.IntentWebSearch: searcher,
	})

	p.Run(context.Background(), &Request{UserID: "u1", Message: "hallo zusammen"})

	assert.Equal(t, 0, searcher.calls)
}

func TestRun_SummarizesAttachments(t *testing.T) {
	chat := &countingChat{content: "kurzfassung"}
	p := newTestPipeline(chat, nil)

	state := p.Run(context.Background(), &Request{
		UserID:  "u1",
		Message: "hallo",
		Attachments: []entity.Attachment{
			{Name: "papier.pdf", Content: "langer anhangstext"},
		},
	})

	assert.Equal(t, summarize.SourceRawAttachment, state.SummarySource)
	assert.Equal(t, "kurzfassung", state.SummaryText)
	assert.Contains(t, state.Context, "## Dokumentzusammenfassung")

	events := state.DrainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, entity.UsageKindSummarization, events[0].Kind)
}

func TestRun_NoAttachmentsNoSummary(t *testing.T) {
	chat := &countingChat{content: "egal"}
	p := newTestPipeline(chat, nil)

	state := p.Run(context.Background(), &Request{UserID: "u1", Message: "hallo"})

	assert.Empty(t, state.SummaryText)
	assert.Equal(t, 0, chat.callCount())
}

func TestRun_ComplexResearchProducesBriefAndSynthesis(t *testing.T) {
	chat := &countingChat{content: "verdichteter auftrag"}
	searcher := &stubSearcher{
		source: "web",
		raws: []repository.RawResult{
			{"title": "Studie", "content": "inhalt", "url": "https://s.example"},
		},
	}
	p := newTestPipeline(chat, map[classify.Intent]repository.Searcher{
		classify.IntentDeepResearch: searcher,
	})

	msg := "recherchiere zu wärmepumpen und gasheizungen: vergleiche die auswirkungen auf die co2-bilanz? welche förderung gibt es? wie unterscheiden sich die kosten?"
	state := p.Run(context.Background(), &Request{
		UserID:  "u1",
		Message: msg,
		Turns: []entity.ConversationTurn{
			{Role: entity.RoleUser, Content: "wir planen eine kampagne zur wärmewende"},
		},
	})

	assert.Equal(t, classify.IntentDeepResearch, state.Classification.Intent)
	assert.Equal(t, classify.ComplexityComplex, state.Complexity)
	assert.Equal(t, "verdichteter auftrag", state.ResearchBrief)

	kinds := map[string]int{}
	for _, e := range state.DrainEvents() {
		kinds[e.Kind]++
	}
	assert.Equal(t, 1, kinds[entity.UsageKindBrief])
	assert.Equal(t, 1, kinds[entity.UsageKindSynthesis])
	assert.Equal(t, 1, kinds[entity.UsageKindRetrieval])
}

func TestRun_StageTimingsRecorded(t *testing.T) {
	p := newTestPipeline(&countingChat{content: "egal"}, nil)

	state := p.Run(context.Background(), &Request{UserID: "u1", Message: "hallo"})

	assert.Contains(t, state.StageDurations, "classify")
	assert.Contains(t, state.StageDurations, "assemble")
}

// cacheStub 记录 GetOrLoad 行为的缓存桩
type cacheStub struct {
	hit  *classify.Result
	gets int
}

func (c *cacheStub) GetOrLoad(ctx context.Context, _ string, load func(ctx context.Context) *classify.Result) *classify.Result {
	c.gets++
	if c.hit != nil {
		return c.hit
	}
	return load(ctx)
}

func TestRun_ClassificationCacheHitSkipsLLM(t *testing.T) {
	chat := &countingChat{content: "sollte nie gebraucht werden"}
	cache := &cacheStub{hit: &classify.Result{Intent: classify.IntentNoRetrieval, Confidence: 0.9}}

	cfg := testPipelineConfig()
	heuristic := classify.NewHeuristicClassifier(cfg.Classifier.FuzzyThreshold)
	p := New(Options{
		Heuristic: heuristic,
		LLM:       classify.NewLLMClassifier(chat, heuristic, "test-model", 512),
		Cache:     cache,
		Allocator: contextbuild.NewBudgetAllocator(cfg.Budget),
		Assembler: contextbuild.NewAssembler(nil, cfg.Assembler, "test-model", 1024),
		Config:    cfg,
	})

	state := p.Run(context.Background(), &Request{UserID: "u1", Message: "xyzzy plugh"})

	assert.Equal(t, 1, cache.gets)
	assert.Equal(t, 0, chat.callCount())
	assert.Equal(t, classify.IntentNoRetrieval, state.Classification.Intent)
}
