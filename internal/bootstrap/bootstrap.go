// Package bootstrap wires configuration, infrastructure adapters and
// usecases into a runnable application for both the api and worker binaries.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/ragline/ragline/internal/config"
	"github.com/ragline/ragline/internal/core/ports"
	"github.com/ragline/ragline/internal/core/synthesis"
	"github.com/ragline/ragline/internal/core/usecase"
	"github.com/ragline/ragline/internal/infrastructure/chunking"
	embeddingopenai "github.com/ragline/ragline/internal/infrastructure/embedding/openai"
	"github.com/ragline/ragline/internal/infrastructure/extractor"
	llmopenai "github.com/ragline/ragline/internal/infrastructure/llm/openai"
	"github.com/ragline/ragline/internal/infrastructure/queue/nats"
	"github.com/ragline/ragline/internal/infrastructure/repository/postgres"
	"github.com/ragline/ragline/internal/infrastructure/resilience"
	"github.com/ragline/ragline/internal/infrastructure/vector/pinecone"
	"github.com/ragline/ragline/internal/seed"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	Agents    ports.AgentRegistry
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	QueryUC   ports.QueryService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure document schema: %w", err)
	}
	agents := postgres.NewAgentRepository(db)
	if err := agents.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure agent schema: %w", err)
	}
	if err := seed.Apply(ctx, agents, cfg.SeedFile); err != nil {
		return nil, fmt.Errorf("seed agents: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultPolicy())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	embedder := embeddingopenai.New(embeddingopenai.Config{
		BaseURL:        cfg.OpenAIBaseURL,
		APIKey:         cfg.OpenAIAPIKey,
		Model:          cfg.EmbeddingModel,
		Dimension:      cfg.EmbeddingDimension,
		RequestsPerSec: cfg.EmbeddingRequestsPerSec,
	}, executor)

	completer := llmopenai.New(llmopenai.Config{
		BaseURL:        cfg.OpenAIBaseURL,
		APIKey:         cfg.OpenAIAPIKey,
		RequestTimeout: 120 * time.Second,
	}, executor)

	index, err := pinecone.New(pinecone.Config{
		BaseURL:   cfg.PineconeURL,
		APIKey:    cfg.PineconeAPIKey,
		IndexName: cfg.IndexName,
		Dimension: cfg.EmbeddingDimension,
		Metric:    cfg.IndexMetric,
	})
	if err != nil {
		return nil, fmt.Errorf("init vector index: %w", err)
	}

	splitter, err := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("init chunker: %w", err)
	}

	synthesizer := synthesis.New(completer)

	ingestUC := usecase.NewIngestDocumentUseCase(repo, index, queue)
	processUC := usecase.NewProcessDocumentUseCase(repo, extractor.New(), splitter, embedder, index)
	queryUC := usecase.NewQueryUseCase(embedder, index, agents, synthesizer, cfg.RetrievalTopK)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,
		Agents: agents,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		QueryUC:   queryUC,

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
