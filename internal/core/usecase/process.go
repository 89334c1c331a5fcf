package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ragline/ragline/internal/core/domain"
	"github.com/ragline/ragline/internal/core/ports"
)

type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	index     ports.VectorIndex
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	index ports.VectorIndex,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:      repo,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
	}
}

// Ingest runs the full processing pipeline for an uploaded document and
// returns the number of chunks indexed. Any pipeline failure marks the
// document failed with the cause; success marks it ready.
func (uc *ProcessDocumentUseCase) Ingest(ctx context.Context, documentID string) (int, error) {
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return 0, fmt.Errorf("set status=processing: %w", err)
	}

	count, err := uc.pipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return 0, fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return 0, err
	}

	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return 0, fmt.Errorf("set status=ready: %w", err)
	}
	return count, nil
}

func (uc *ProcessDocumentUseCase) pipeline(ctx context.Context, documentID string) (int, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("fetch document by id: %w", err)
	}

	extraction, err := uc.extractor.Extract(ctx, doc.Filename, doc.FileType, doc.Raw)
	if err != nil {
		return 0, fmt.Errorf("extract text: %w", err)
	}

	texts, fullText, err := uc.chunk(extraction)
	if err != nil {
		return 0, err
	}

	if err := uc.repo.SaveText(ctx, documentID, fullText); err != nil {
		return 0, fmt.Errorf("save extracted text: %w", err)
	}

	vectors, err := uc.embed(ctx, texts)
	if err != nil {
		return 0, err
	}

	if err := uc.index.EnsureIndex(ctx); err != nil {
		return 0, fmt.Errorf("ensure vector index: %w", err)
	}

	chunks, err := uc.upsert(ctx, doc, extraction.DocType, texts, vectors)
	if err != nil {
		return 0, err
	}

	if err := uc.repo.SaveChunks(ctx, documentID, chunks); err != nil {
		return 0, fmt.Errorf("save chunk rows: %w", err)
	}
	return len(chunks), nil
}

// chunk picks record mode for structured sources so a record is never split
// across chunks, and window mode for continuous text.
func (uc *ProcessDocumentUseCase) chunk(extraction *ports.Extraction) ([]string, string, error) {
	var (
		texts []string
		err   error
	)
	if len(extraction.Records) > 0 {
		texts, err = uc.chunker.ChunkRecords(extraction.Records)
	} else {
		texts, err = uc.chunker.Chunk(extraction.Text)
	}
	if err != nil {
		return nil, "", fmt.Errorf("chunk document: %w", err)
	}
	if len(texts) == 0 {
		return nil, "", domain.WrapError(domain.ErrInvalidParameter, "chunk document",
			errors.New("chunking produced zero chunks"))
	}

	fullText := extraction.Text
	if fullText == "" {
		for i, record := range extraction.Records {
			if i > 0 {
				fullText += "\n"
			}
			fullText += record
		}
	}
	return texts, fullText, nil
}

func (uc *ProcessDocumentUseCase) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, domain.WrapError(
			domain.ErrInvalidParameter,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(texts)),
		)
	}
	return vectors, nil
}

func (uc *ProcessDocumentUseCase) upsert(
	ctx context.Context,
	doc *domain.Document,
	docType string,
	texts []string,
	vectors [][]float32,
) ([]domain.Chunk, error) {
	if docType == "" {
		docType = doc.DocType()
	}
	now := time.Now().UTC()
	total := strconv.Itoa(len(texts))

	chunks := make([]domain.Chunk, 0, len(texts))
	for i, text := range texts {
		vectorID := fmt.Sprintf("%s_chunk_%d", doc.ID, i)
		metadata := map[string]string{
			"text":            text,
			"document_id":     doc.ID,
			"source_filename": doc.Filename,
			"doc_type":        docType,
			"chunk_index":     strconv.Itoa(i),
			"total_chunks":    total,
		}
		if err := uc.index.Upsert(ctx, vectorID, vectors[i], metadata); err != nil {
			return nil, fmt.Errorf("upsert chunk %d: %w", i, err)
		}
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			ChunkIndex: i,
			Text:       text,
			VectorID:   vectorID,
			CreatedAt:  now,
		})
	}
	return chunks, nil
}
