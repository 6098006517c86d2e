package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/wnsgho/legal-full/internal/config"
	"github.com/wnsgho/legal-full/internal/core/analyzer"
	"github.com/wnsgho/legal-full/internal/core/checklist"
	"github.com/wnsgho/legal-full/internal/core/concept"
	"github.com/wnsgho/legal-full/internal/core/retriever"
	"github.com/wnsgho/legal-full/internal/core/session"
	"github.com/wnsgho/legal-full/internal/driver"
	"github.com/wnsgho/legal-full/internal/llm"
	"github.com/wnsgho/legal-full/internal/logging"
	"github.com/wnsgho/legal-full/internal/server"
	"github.com/wnsgho/legal-full/internal/vector"
)

func main() {
	_ = godotenv.Load()

	log, err := logging.New(os.Getenv("DEBUG") != "")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		if _, statErr := os.Stat("config/config.toml"); statErr == nil {
			cfgPath = "config/config.toml"
		}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}

	catalog, err := checklist.Load()
	if err != nil {
		log.Fatal("failed to load checklist catalog", zap.Error(err))
	}

	ctx := context.Background()

	graphDriver, err := driver.NewNeo4jDriver(cfg.Graph.URI, cfg.Graph.User, cfg.Graph.Password, cfg.Graph.Database, log)
	if err != nil {
		log.Fatal("failed to connect to graph store", zap.Error(err))
	}
	defer graphDriver.Close(ctx)
	graphStore := driver.NewStore(graphDriver, cfg.LLM.MaxRetries, log)

	var index vector.Index
	switch cfg.Vector.Backend {
	case "pgvector":
		pg, err := vector.NewPGIndex(ctx, cfg.Vector.PGDSN, cfg.Vector.Dimension)
		if err != nil {
			log.Fatal("failed to open pgvector index", zap.Error(err))
		}
		defer pg.Close()
		index = pg
	default:
		index = vector.NewMemoryIndex(cfg.Vector.Dimension)
	}

	llmClient, embedder, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		log.Fatal("failed to initialize LLM client", zap.Error(err))
	}
	if embedder == nil {
		log.Fatal("configured LLM provider has no embedding support",
			zap.String("provider", cfg.LLM.Provider))
	}

	governor := llm.NewGovernor(llmClient, llm.GovernorConfig{
		TokensPerSecond: cfg.LLM.TokensPerSecond,
		CallTimeout:     time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		MaxRetries:      cfg.LLM.MaxRetries,
	}, log)

	extractor := concept.NewExtractor(governor, embedder, log)
	lkg := retriever.NewEnhancedLKGRetriever(graphStore, extractor, log)
	hippo := retriever.NewHippoRetriever(embedder, index, llm.NewSimpleLLMReranker(governor), graphStore, log)

	var weights retriever.Weights
	copy(weights[:], cfg.Analysis.HybridWeights)
	hybrid := retriever.NewConceptHybridRetriever(lkg, hippo, extractor, index, graphStore, weights, log)

	partAnalyzer := analyzer.NewPartRiskAnalyzer(catalog, hybrid, governor, log)
	partAnalyzer.RateLimitDelay = time.Duration(cfg.Analysis.RateLimitDelay * float64(time.Second))
	partAnalyzer.PartTimeout = time.Duration(cfg.Analysis.PartTimeoutSeconds) * time.Second
	partAnalyzer.TopN = cfg.Analysis.TopNDefault

	gptAnalyzer := analyzer.NewGPTRiskAnalyzer(catalog, governor, log)
	gptAnalyzer.RateLimitDelay = partAnalyzer.RateLimitDelay
	gptAnalyzer.PartTimeout = partAnalyzer.PartTimeout

	sessionStore, err := session.NewStore(cfg.Analysis.DataDir, log)
	if err != nil {
		log.Fatal("failed to open session store", zap.Error(err))
	}

	orch := session.NewOrchestrator(sessionStore, partAnalyzer, gptAnalyzer, catalog,
		time.Duration(cfg.Analysis.SessionTimeoutSeconds)*time.Second, log)

	srv := server.NewServer(orch, hybrid, graphStore, governor, cfg.Analysis.TopNDefault, log)
	r := srv.SetupRouter()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Info("starting server", zap.String("port", port))
	if err := r.Run(":" + port); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
