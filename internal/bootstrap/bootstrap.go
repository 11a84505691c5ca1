package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/askdocs/askdocs/internal/config"
	"github.com/askdocs/askdocs/internal/core/ports"
	"github.com/askdocs/askdocs/internal/core/usecase"
	"github.com/askdocs/askdocs/internal/core/validation"
	"github.com/askdocs/askdocs/internal/infrastructure/llm/ollama"
	"github.com/askdocs/askdocs/internal/infrastructure/queue/nats"
	"github.com/askdocs/askdocs/internal/infrastructure/rerank/jina"
	"github.com/askdocs/askdocs/internal/infrastructure/repository/postgres"
	"github.com/askdocs/askdocs/internal/infrastructure/resilience"
	"github.com/askdocs/askdocs/internal/infrastructure/vector/qdrant"
	"github.com/askdocs/askdocs/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Log    *slog.Logger

	Answerer ports.QueryAnswerer
	Docs     ports.DocumentStore
	Audit    ports.AuditQueue

	HTTPMetrics *metrics.HTTPServerMetrics

	closeFn func()
}

func New(cfg config.Config, log *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	docs := postgres.NewDocumentRepository(db)

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	audit, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSAuditSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             log,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init audit queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)

	vectors := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)

	var rerankClient ports.Reranker
	if cfg.RerankEnabled {
		rerankClient = jina.New(cfg.RerankURL, cfg.RerankModel, cfg.RerankAPIKey, executor)
	}
	rerankCfg := usecase.DefaultRerankConfig()
	rerankCfg.Enabled = cfg.RerankEnabled
	reranker := usecase.NewSelectiveReranker(rerankClient, rerankCfg, log)

	classifier := usecase.NewQueryClassifier(usecase.DefaultClassifierConfig())
	planner := usecase.NewPlanner(usecase.DefaultPlannerConfig())
	coordinator := usecase.NewCoordinator(embedder, vectors, docs, reranker, usecase.RetrievalConfig{
		TopK:           cfg.RetrievalTopK,
		CandidateLimit: cfg.RetrievalCandidates,
		ScoreFloor:     cfg.RetrievalScoreFloor,
		RRFK:           cfg.RetrievalRRFK,
		MaxConcurrency: cfg.RetrievalParallel,
	}, log)

	policies, err := validation.LoadPolicyOverrides(cfg.ValidationPolicyFile)
	if err != nil {
		audit.Close()
		_ = db.Close()
		return nil, fmt.Errorf("load validation policies: %w", err)
	}
	engine := validation.NewEngine(validation.DefaultRules(), log)

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	pipelineMetrics := metrics.NewPipelineMetrics(httpMetrics.Registry(), "api")

	answerer := usecase.NewAnswerUseCase(
		classifier,
		planner,
		coordinator,
		generator,
		docs,
		engine,
		policies,
		audit,
		pipelineMetrics,
		log,
		usecase.AnswerConfig{
			MaxSources:         cfg.MaxSources,
			MaxContextChunks:   cfg.MaxContextChunks,
			Temperature:        cfg.GenerationTemperature,
			MaxTokens:          cfg.GenerationMaxTokens,
			RegenerateAttempts: cfg.RegenerateAttempts,
		},
	)

	return &App{
		Config:      cfg,
		Log:         log,
		Answerer:    answerer,
		Docs:        docs,
		Audit:       audit,
		HTTPMetrics: httpMetrics,
		closeFn: func() {
			audit.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// WorkerApp is the trimmed wiring for the audit consumer: it needs the
// queue and its own metrics registry, nothing else.
type WorkerApp struct {
	Config  config.Config
	Log     *slog.Logger
	Audit   ports.AuditQueue
	Metrics *metrics.WorkerMetrics

	closeFn func()
}

func NewWorker(cfg config.Config, log *slog.Logger) (*WorkerApp, error) {
	audit, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSAuditSubject, nats.Options{
		Logger: log,
	})
	if err != nil {
		return nil, fmt.Errorf("init audit queue: %w", err)
	}

	return &WorkerApp{
		Config:  cfg,
		Log:     log,
		Audit:   audit,
		Metrics: metrics.NewWorkerMetrics("worker"),
		closeFn: func() {
			audit.Close()
		},
	}, nil
}

func (a *WorkerApp) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
