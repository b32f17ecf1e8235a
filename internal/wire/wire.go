// Package wire 提供依赖装配
package wire

import (
	"context"
	"fmt"

	"gruenerator-assist-api/internal/application/classify"
	"gruenerator-assist-api/internal/application/contextbuild"
	"gruenerator-assist-api/internal/application/pipeline"
	"gruenerator-assist-api/internal/application/summarize"
	"gruenerator-assist-api/internal/config"
	"gruenerator-assist-api/internal/domain/repository"
	"gruenerator-assist-api/internal/infrastructure/embedding"
	"gruenerator-assist-api/internal/infrastructure/llm"
	"gruenerator-assist-api/internal/infrastructure/persistence/milvus"
	"gruenerator-assist-api/internal/infrastructure/persistence/postgres"
	"gruenerator-assist-api/internal/infrastructure/persistence/redis"
	"gruenerator-assist-api/internal/infrastructure/search"
	"gruenerator-assist-api/internal/interfaces/http/handler"
	"gruenerator-assist-api/internal/interfaces/http/router"
	"gruenerator-assist-api/pkg/logger"
)

// App 装配完成的应用
type App struct {
	Router *router.Router

	cleanups []func()
}

// Cleanup 按装配逆序释放资源
func (a *App) Cleanup() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
}

// InitializeApp 初始化整个应用。
// Postgres 与 Redis 必需；Milvus 和 Embedding 不可达时降级为禁用向量检索。
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{}

	// PostgreSQL（必需）
	pgClient, err := postgres.NewClient(cfg.Database.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}
	app.cleanups = append(app.cleanups, func() { _ = pgClient.Close() })
	usageRepo := postgres.NewUsageEventRepository(pgClient)

	// Redis（必需）
	redisClient, err := redis.NewClient(cfg.Cache.Redis)
	if err != nil {
		app.Cleanup()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}
	app.cleanups = append(app.cleanups, func() { _ = redisClient.Close() })
	classificationCache := redis.NewClassificationCache(redisClient, cfg.Pipeline.Classifier.CacheTTL)
	pendingStore := redis.NewPendingStateStore(redisClient)

	// Milvus（可选）
	var milvusClient *milvus.Client
	if c, err := milvus.NewClient(ctx, cfg.Vector.Milvus); err != nil {
		logger.Warn(ctx, "milvus 不可达，向量检索已禁用", "error", err.Error())
	} else {
		milvusClient = c
		app.cleanups = append(app.cleanups, func() { _ = milvusClient.Close() })
	}

	// Embedding（可选，不可用时向量集合检索被禁用）
	var embedClient *embedding.Client
	if embedder, err := embedding.NewEinoEmbedder(ctx, cfg.Embedding); err != nil {
		logger.Warn(ctx, "embedding 不可用，向量检索已禁用", "error", err.Error())
	} else {
		embedClient = embedding.NewClient(embedder, cfg.Embedding)
	}

	// LLM
	factory := llm.NewEinoFactory(cfg)
	chat := llm.NewChatService(factory, cfg.LLM.DefaultProvider)
	providerCfg := cfg.LLM.Providers[cfg.LLM.DefaultProvider]
	model := providerCfg.Model
	maxTokens := providerCfg.MaxTokens

	// 分类与管线组件
	heuristic := classify.NewHeuristicClassifier(cfg.Pipeline.Classifier.FuzzyThreshold)
	llmClassifier := classify.NewLLMClassifier(chat, heuristic, model, maxTokens)
	brief := pipeline.NewBriefCompressor(chat, model, maxTokens, cfg.Pipeline.Classifier.BriefTurnWindow)
	allocator := contextbuild.NewBudgetAllocator(cfg.Pipeline.Budget)
	summarizer := summarize.NewSummarizer(chat, cfg.Pipeline.Summarizer, model, maxTokens)
	assembler := contextbuild.NewAssembler(chat, cfg.Pipeline.Assembler, model, maxTokens)

	// 文档存储：向量库不可用时摘要阶段自动降级
	var docStore repository.DocumentStore
	if milvusClient != nil {
		docStore = milvus.NewDocumentStore(milvusClient)
	}
	sources := summarize.NewSourceSelector(docStore, cfg.Pipeline.Classifier.BriefTurnWindow)

	// 检索后端按意图注册
	searchers := buildSearchers(cfg, milvusClient, embedClient)

	p := pipeline.New(pipeline.Options{
		Heuristic:  heuristic,
		LLM:        llmClassifier,
		Cache:      classificationCache,
		Brief:      brief,
		Searchers:  searchers,
		Allocator:  allocator,
		Summarizer: summarizer,
		Sources:    sources,
		Assembler:  assembler,
		Config:     cfg.Pipeline,
	})

	// HTTP 层
	assistHandler := handler.NewAssistHandler(p, heuristic, usageRepo, pendingStore)
	healthHandler := handler.NewHealthHandler(pgClient, redisClient, milvusClient)

	app.Router = router.New(cfg, router.Handlers{
		Health: healthHandler,
		Assist: assistHandler,
	})

	return app, nil
}

// buildSearchers 按意图注册检索后端。
// 网页搜索覆盖三类外部检索意图，向量后端只在依赖齐备时挂载。
func buildSearchers(cfg *config.Config, milvusClient *milvus.Client, embedClient *embedding.Client) map[classify.Intent]repository.Searcher {
	searchers := make(map[classify.Intent]repository.Searcher)

	if cfg.Search.Web.Endpoint != "" {
		web := search.NewWebSearcher(cfg.Search.Web)
		searchers[classify.IntentWebSearch] = web
		searchers[classify.IntentDeepResearch] = web
		searchers[classify.IntentInformational] = web
	}

	if milvusClient != nil && embedClient != nil {
		searchers[classify.IntentPartyDocument] = milvus.NewPartyDocumentSearcher(milvusClient, embedClient)
		searchers[classify.IntentExampleSearch] = milvus.NewExampleSearcher(milvusClient, embedClient)
	}

	return searchers
}
