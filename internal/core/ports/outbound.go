package ports

import (
	"context"

	"github.com/ragline/ragline/internal/core/domain"
)

// DocumentRepository persists document and chunk state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveText(ctx context.Context, id, text string) error
	SaveChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error
	Delete(ctx context.Context, id string) error
}

// AgentRegistry persists agent configurations. ListByID returns agents ordered
// by ascending id so selection precedence is reproducible.
type AgentRegistry interface {
	Create(ctx context.Context, agent *domain.Agent) error
	GetByID(ctx context.Context, id int64) (*domain.Agent, error)
	ListByID(ctx context.Context) ([]domain.Agent, error)
	Update(ctx context.Context, agent *domain.Agent) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor turns raw upload bytes into plain text plus inferred metadata.
// Records is non-nil for row/record-oriented sources and selects record-mode
// chunking.
type TextExtractor interface {
	Extract(ctx context.Context, filename, fileType string, raw []byte) (*Extraction, error)
}

type Extraction struct {
	Text    string
	DocType string
	Records []string
}

// Chunker splits extracted text into overlapping fixed-size fragments, or
// groups whole records for structured sources.
type Chunker interface {
	Chunk(text string) ([]string, error)
	ChunkRecords(records []string) ([]string, error)
}

// Embedder builds fixed-dimension vectors for chunk and query text. Results
// are order-preserving with respect to the input slice.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex stores (vector, metadata) pairs and performs nearest-neighbor
// search. Upsert is an idempotent replace per id.
type VectorIndex interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error
	Search(ctx context.Context, queryVector []float32, k int, filter domain.SearchFilter) ([]domain.RetrievedFragment, error)
	Delete(ctx context.Context, ids ...string) error
	DeleteByDocument(ctx context.Context, documentID string) error
}

// ChatCompleter invokes a language-model provider with agent-supplied
// parameters and returns the raw completion text.
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

type ChatMessage struct {
	Role    string
	Content string
}

type ChatRequest struct {
	Model          string
	Temperature    float64
	MaxTokens      int
	ResponseFormat string
	Messages       []ChatMessage
}
