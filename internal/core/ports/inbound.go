package ports

import (
	"context"
	"io"

	"github.com/ragline/ragline/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, fileType string, body io.Reader) (*domain.Document, error)
	Delete(ctx context.Context, documentID string) error
}

// DocumentProcessor is the inbound contract for asynchronous document
// processing. Ingest returns the number of chunks written to the index.
type DocumentProcessor interface {
	Ingest(ctx context.Context, documentID string) (int, error)
}

// QueryService answers a user query grounded in retrieved fragments.
type QueryService interface {
	Answer(ctx context.Context, query string, limit int) (*domain.Answer, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
}
