package bootstrap

import (
	"context"
	"fmt"

	"github.com/auslawai/legal-assistant/internal/config"
	"github.com/auslawai/legal-assistant/internal/core/ports"
	"github.com/auslawai/legal-assistant/internal/core/usecase"
	"github.com/auslawai/legal-assistant/internal/infrastructure/llm/ollama"
	"github.com/auslawai/legal-assistant/internal/infrastructure/queue/nats"
	"github.com/auslawai/legal-assistant/internal/infrastructure/remote/austlii"
	"github.com/auslawai/legal-assistant/internal/infrastructure/repository/postgres"
	"github.com/auslawai/legal-assistant/internal/infrastructure/rerank/cohere"
	"github.com/auslawai/legal-assistant/internal/infrastructure/resilience"
	"github.com/auslawai/legal-assistant/internal/infrastructure/vector/qdrant"
	"github.com/auslawai/legal-assistant/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Queue    *nats.Queue
	Briefs   *postgres.BriefRepository
	Search   ports.LegalSearchService
	Workflow ports.TurnWorkflow
	Metrics  *metrics.HTTPServerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	chunks := postgres.NewChunkRepository(db)
	if err := chunks.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure chunk schema: %w", err)
	}
	briefs := postgres.NewBriefRepository(db)
	if err := briefs.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure brief schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel,
		ollama.WithExecutor(executor))
	embedder := ollama.NewEmbedder(ollamaClient)
	reasoning := ollama.NewReasoningClient(ollamaClient)

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)

	var reranker ports.Reranker
	if cfg.CohereAPIKey != "" {
		reranker = cohere.New(cfg.CohereAPIKey, cohere.WithModel(cfg.CohereRerankModel))
	}

	var remote ports.RemoteLegalSearcher
	if cfg.AustLIIEnabled {
		remote = austlii.New(austlii.WithContentFetching(cfg.AustLIIFetchContent))
	}

	httpMetrics := metrics.NewHTTPServerMetrics("api")

	retriever := usecase.NewHybridRetriever(embedder, chunks, vectorDB, chunks, reranker, remote, httpMetrics,
		usecase.RetrievalConfig{
			RRFK:            cfg.RetrievalRRFK,
			FusedScoreFloor: cfg.RetrievalFusedFloor,
			RerankTopN:      cfg.RetrievalRerankTopN,
			AdapterTimeout:  cfg.RetrievalAdapterTimeout,
			RemoteLimit:     cfg.RetrievalRemoteLimit,
		})

	safety, err := usecase.NewSafetyClassifier(reasoning)
	if err != nil {
		return nil, fmt.Errorf("init safety classifier: %w", err)
	}
	crisis, err := usecase.LoadCrisisDirectory()
	if err != nil {
		return nil, fmt.Errorf("load crisis directory: %w", err)
	}
	router := usecase.NewComplexityRouter(reasoning)
	stages := usecase.NewStageSet(reasoning, retriever)

	orchestrator, err := usecase.NewOrchestrator(safety, router, stages, reasoning, queue, crisis, httpMetrics,
		usecase.WorkflowConfig{
			MinQuickReplies: cfg.WorkflowMinQuickReplies,
			MaxQuickReplies: cfg.WorkflowMaxQuickReplies,
			PublishTimeout:  cfg.WorkflowPublishTimeout,
		})
	if err != nil {
		return nil, fmt.Errorf("init orchestrator: %w", err)
	}

	return &App{
		Config:   cfg,
		Queue:    queue,
		Briefs:   briefs,
		Search:   retriever,
		Workflow: orchestrator,
		Metrics:  httpMetrics,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
