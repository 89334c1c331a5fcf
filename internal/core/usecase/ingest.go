package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ragline/ragline/internal/core/domain"
	"github.com/ragline/ragline/internal/core/ports"
)

// maxUploadBytes bounds a single upload so a runaway request cannot exhaust
// memory before validation.
const maxUploadBytes = 32 << 20

type IngestDocumentUseCase struct {
	repo  ports.DocumentRepository
	index ports.VectorIndex
	queue ports.MessageQueue
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	index ports.VectorIndex,
	queue ports.MessageQueue,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:  repo,
		index: index,
		queue: queue,
	}
}

// Upload stores the raw file and schedules asynchronous processing. The
// returned document is in status uploaded; chunking and indexing happen in
// the worker.
func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	filename, fileType string,
	body io.Reader,
) (*domain.Document, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "upload document",
			errors.New("filename is required"))
	}

	raw, err := io.ReadAll(io.LimitReader(body, maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload body: %w", err)
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "upload document",
			errors.New("empty upload body"))
	}
	if len(raw) > maxUploadBytes {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "upload document",
			fmt.Errorf("upload exceeds %d bytes", maxUploadBytes))
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:        uuid.NewString(),
		Filename:  sanitizeFilename(filename),
		FileType:  normalizeFileType(filename, fileType),
		Raw:       raw,
		Status:    domain.StatusUploaded,
		Metadata:  map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}

	if err := uc.queue.PublishDocumentIngested(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}

	return doc, nil
}

// Delete removes the document's vectors first and its rows second, so a
// partial failure can only ever leave rows without vectors, never orphaned
// vectors that would keep surfacing in retrieval.
func (uc *IngestDocumentUseCase) Delete(ctx context.Context, documentID string) error {
	if strings.TrimSpace(documentID) == "" {
		return domain.WrapError(domain.ErrInvalidParameter, "delete document",
			errors.New("document id is required"))
	}

	if _, err := uc.repo.GetByID(ctx, documentID); err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}

	if err := uc.index.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document vectors: %w", err)
	}

	if err := uc.repo.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("delete document rows: %w", err)
	}
	return nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}

func normalizeFileType(filename, fileType string) string {
	normalized := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(fileType), "."))
	if normalized == "" {
		normalized = strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	}
	return normalized
}
