package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gruenerator-assist-api/internal/application/classify"
	"gruenerator-assist-api/internal/application/contextbuild"
	"gruenerator-assist-api/internal/application/summarize"
	"gruenerator-assist-api/internal/config"
	"gruenerator-assist-api/internal/domain/entity"
	"gruenerator-assist-api/internal/domain/repository"
	"gruenerator-assist-api/pkg/logger"
	"gruenerator-assist-api/pkg/metrics"
)

var tracer = otel.Tracer("pipeline")

// ClassificationCache LLM 分类结果缓存端口。
// load 只在缓存未命中时执行；实现负责并发去重。
type ClassificationCache interface {
	GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) *classify.Result) *classify.Result
}

// Pipeline 固定的线性管线，按请求逐阶段执行。
// 所有协作方在构造时注入，运行期只读。
type Pipeline struct {
	heuristic  *classify.HeuristicClassifier
	llm        *classify.LLMClassifier
	cache      ClassificationCache
	brief      *BriefCompressor
	searchers  map[classify.Intent]repository.Searcher
	allocator  *contextbuild.BudgetAllocator
	summarizer *summarize.Summarizer
	sources    *summarize.SourceSelector
	assembler  *contextbuild.Assembler
	cfg        config.PipelineConfig
}

// Options 管线装配参数
type Options struct {
	Heuristic  *classify.HeuristicClassifier
	LLM        *classify.LLMClassifier
	Cache      ClassificationCache
	Brief      *BriefCompressor
	Searchers  map[classify.Intent]repository.Searcher
	Allocator  *contextbuild.BudgetAllocator
	Summarizer *summarize.Summarizer
	Sources    *summarize.SourceSelector
	Assembler  *contextbuild.Assembler
	Config     config.PipelineConfig
}

// New 装配管线
func New(opts Options) *Pipeline {
	return &Pipeline{
		heuristic:  opts.Heuristic,
		llm:        opts.LLM,
		cache:      opts.Cache,
		brief:      opts.Brief,
		searchers:  opts.Searchers,
		allocator:  opts.Allocator,
		summarizer: opts.Summarizer,
		sources:    opts.Sources,
		assembler:  opts.Assembler,
		cfg:        opts.Config,
	}
}

// Run 执行整条管线。阶段错误在各自阶段内消化并记入注记，
// 本方法不返回 error：调用方总能拿到一个可用的 State。
// 超时与取消由调用方通过 ctx 控制。
func (p *Pipeline) Run(ctx context.Context, req *Request) *State {
	ctx, span := tracer.Start(ctx, "pipeline.Run",
		trace.WithAttributes(attribute.String("user_id", req.UserID)))
	defer span.End()

	state := NewState(req)

	p.classifyStage(ctx, state)
	p.complexityStage(state)
	p.briefStage(ctx, state)
	p.retrieveStage(ctx, state)
	p.budgetStage(state)
	p.summarizeStage(ctx, state)
	p.assembleStage(ctx, state)

	span.SetAttributes(
		attribute.String("intent", string(state.Classification.Intent)),
		attribute.String("method", state.Method),
		attribute.String("complexity", string(state.Complexity)),
	)
	return state
}

// classifyStage 先走规则分类，置信度低于门限才触发 LLM 兜底。
// 门限是整条管线的主要成本开关。
func (p *Pipeline) classifyStage(ctx context.Context, state *State) {
	ctx, span := tracer.Start(ctx, "pipeline.classify")
	defer span.End()
	start := time.Now()

	res := p.heuristic.Classify(state.Request.Message)
	state.Method = "heuristic"
	metrics.ClassificationConfidence.WithLabelValues(string(res.Intent)).Observe(res.Confidence)

	if res.Confidence < p.cfg.Classifier.ConfidenceGate && p.llm != nil {
		state.Method = "llm"
		res = p.classifyWithLLM(ctx, state)
	}

	state.Classification = res
	metrics.ClassificationTotal.WithLabelValues(string(res.Intent), state.Method).Inc()
	state.Observe("classify", time.Since(start))

	logger.Debug(ctx, "分类完成",
		"intent", string(res.Intent), "confidence", res.Confidence, "method", state.Method)
}

func (p *Pipeline) classifyWithLLM(ctx context.Context, state *State) *classify.Result {
	load := func(ctx context.Context) *classify.Result {
		start := time.Now()
		res, usage := p.llm.Classify(ctx, state.Request.Message)
		state.AddUsage(entity.UsageKindClassification, usage, time.Since(start))
		return res
	}
	if p.cache != nil {
		return p.cache.GetOrLoad(ctx, state.Request.Message, load)
	}
	return load(ctx)
}

// complexityStage 复杂度评估与意图分类完全解耦，不受置信度影响
func (p *Pipeline) complexityStage(state *State) {
	state.Complexity = classify.AssessComplexity(state.Request.Message)
}

// briefStage 只在复杂深度研究时压简报；失败静默跳过
func (p *Pipeline) briefStage(ctx context.Context, state *State) {
	if state.Complexity != classify.ComplexityComplex ||
		state.Classification.Intent != classify.IntentDeepResearch || p.brief == nil {
		return
	}
	ctx, span := tracer.Start(ctx, "pipeline.brief")
	defer span.End()
	start := time.Now()

	brief, usage := p.brief.Compress(ctx, state.Request.Turns, state.Classification)
	state.ResearchBrief = brief
	state.AddUsage(entity.UsageKindBrief, usage, time.Since(start))
	state.Observe("brief", time.Since(start))
}

// retrieveStage 调用意图对应的检索后端并归一化。
// 后端失败转为空结果加注记，组装阶段照常进行。
func (p *Pipeline) retrieveStage(ctx context.Context, state *State) {
	res := state.Classification
	if !res.Intent.NeedsRetrieval() || res.SearchQuery == "" {
		return
	}
	searcher, ok := p.searchers[res.Intent]
	if !ok {
		state.Annotate("retrieve", fmt.Errorf("kein backend für intent %s", res.Intent))
		return
	}

	ctx, span := tracer.Start(ctx, "pipeline.retrieve",
		trace.WithAttributes(attribute.String("source", searcher.Source())))
	defer span.End()
	start := time.Now()

	queries := append([]string{res.SearchQuery}, res.SubQueries...)
	var all []contextbuild.NormalizedResult
	var lastErr error
	for _, q := range queries {
		qStart := time.Now()
		raws, err := searcher.Search(ctx, repository.SearchQuery{
			Query: q,
			Limit: p.cfg.Budget.MaxResults,
		})
		metrics.RetrievalDuration.WithLabelValues(searcher.Source()).Observe(time.Since(qStart).Seconds())
		if err != nil {
			metrics.RetrievalTotal.WithLabelValues(searcher.Source(), "error").Inc()
			logger.Warn(ctx, "检索后端调用失败", "source", searcher.Source(), "error", err.Error())
			lastErr = err
			continue
		}
		metrics.RetrievalTotal.WithLabelValues(searcher.Source(), "ok").Inc()
		all = append(all, contextbuild.Normalize(searcher.Source(), raws)...)
	}
	state.AddRetrievalEvent(searcher.Source(), time.Since(start))

	if len(all) == 0 && lastErr != nil {
		state.Annotate("retrieve", lastErr)
	}
	state.Results = all
	state.Observe("retrieve", time.Since(start))
}

// budgetStage 引用导出 + 预算裁剪
func (p *Pipeline) budgetStage(state *State) {
	if len(state.Results) == 0 {
		return
	}
	state.Citations = contextbuild.BuildCitations(
		state.Results, p.cfg.Budget.MaxCitations, p.cfg.Budget.CitationChars)

	budgeted, budget := p.allocator.Allocate(state.Results)
	state.Results = budgeted
	state.Budget = budget
	metrics.ContextBudgetBytes.Observe(float64(budget))
}

// summarizeStage 只在有文档素材时运行：按优先级挑素材并自适应摘要
func (p *Pipeline) summarizeStage(ctx context.Context, state *State) {
	if p.summarizer == nil || p.sources == nil {
		return
	}
	req := state.Request
	if len(req.Attachments) == 0 && len(req.ReferencedDocIDs) == 0 {
		return
	}

	src, ok := p.sources.Select(ctx, req.UserID, req.Attachments, req.ReferencedDocIDs, req.Turns)
	if !ok {
		return
	}

	ctx, span := tracer.Start(ctx, "pipeline.summarize",
		trace.WithAttributes(attribute.String("source", string(src.Kind))))
	defer span.End()
	start := time.Now()

	outcome := p.summarizer.Summarize(ctx, src.Text)
	state.SummarySource = src.Kind
	state.SummaryText = outcome.Summary
	state.SummaryStrategy = outcome.Strategy
	for _, usage := range outcome.Usages {
		state.AddUsage(entity.UsageKindSummarization, usage, 0)
	}
	if outcome.FailedWindows > 0 {
		state.Annotate("summarize",
			fmt.Errorf("%d von %d fenstern fehlgeschlagen", outcome.FailedWindows, outcome.Windows))
	}
	state.Observe("summarize", time.Since(start))
}

// assembleStage 最终拼接。复杂深度研究启用综合清洗分支。
func (p *Pipeline) assembleStage(ctx context.Context, state *State) {
	ctx, span := tracer.Start(ctx, "pipeline.assemble")
	defer span.End()
	start := time.Now()

	req := state.Request
	synthesis := state.Complexity == classify.ComplexityComplex &&
		state.Classification.Intent == classify.IntentDeepResearch

	assembled, usage := p.assembler.Assemble(ctx, &contextbuild.AssembleInput{
		BaseRole:            req.BaseRole,
		Intent:              state.Classification.Intent,
		MemoryContext:       req.MemoryContext,
		AttachmentSummaries: req.AttachmentSummaries,
		Attachments:         req.Attachments,
		Results:             state.Results,
		SummaryText:         state.SummaryText,
		ResearchSynthesis:   synthesis,
		ResearchBrief:       state.ResearchBrief,
	})
	state.Context = assembled
	state.AddUsage(entity.UsageKindSynthesis, usage, time.Since(start))
	state.Observe("assemble", time.Since(start))
}
