package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/ragline/ragline/internal/core/domain"
	"github.com/ragline/ragline/internal/core/ports"
	"github.com/ragline/ragline/internal/infrastructure/chunking"
	"github.com/ragline/ragline/internal/infrastructure/vector/memory"
)

// runeBagEmbedder maps text to rune-frequency vectors so ranking is
// deterministic without a provider.
type runeBagEmbedder struct {
	dimension int
}

func (e *runeBagEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *runeBagEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

func (e *runeBagEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dimension)
	for _, r := range text {
		v[int(r)%e.dimension]++
	}
	return v
}

func TestIngestThenSearchOverRealChunkerAndIndex(t *testing.T) {
	text := strings.Repeat("a", 800) + strings.Repeat("b", 800) + strings.Repeat("c", 800)
	doc := &domain.Document{
		ID:       "doc-1",
		Filename: "guide.txt",
		FileType: "txt",
		Raw:      []byte(text),
	}
	repo := newRepoFake(doc)

	splitter, err := chunking.NewSplitter(1000, 200)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}
	index, err := memory.NewIndex(26)
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}
	embedder := &runeBagEmbedder{dimension: 26}

	uc := NewProcessDocumentUseCase(
		repo,
		&extractorFake{extraction: &ports.Extraction{Text: text, DocType: "documentation"}},
		splitter,
		embedder,
		index,
	)

	count, err := uc.Ingest(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 chunks for 2400 chars at 1000/200, got %d", count)
	}
	if index.Len() != 3 {
		t.Fatalf("expected 3 vectors in the index, got %d", index.Len())
	}
	if len(repo.savedChunks) != 3 {
		t.Fatalf("expected 3 chunk rows, got %d", len(repo.savedChunks))
	}

	// Re-processing replaces vectors by id instead of duplicating them.
	if _, err := uc.Ingest(context.Background(), "doc-1"); err != nil {
		t.Fatalf("second Ingest() error = %v", err)
	}
	if index.Len() != 3 {
		t.Fatalf("re-ingest duplicated vectors: %d", index.Len())
	}

	queryVec, err := embedder.EmbedQuery(context.Background(), repo.savedChunks[1].Text)
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	got, err := index.Search(context.Background(), queryVec, 3, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	if got[0].VectorID != "doc-1_chunk_1" || got[0].ChunkIndex != 1 {
		t.Fatalf("middle chunk not ranked first: %+v", got[0])
	}
	if got[0].Score <= got[1].Score || got[1].Score < got[2].Score {
		t.Fatalf("scores not descending: %v %v %v", got[0].Score, got[1].Score, got[2].Score)
	}
	if got[0].Text != repo.savedChunks[1].Text {
		t.Fatalf("fragment text does not round-trip through the index")
	}
}
