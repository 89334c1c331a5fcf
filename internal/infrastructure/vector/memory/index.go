// Package memory holds an in-process vector index for local development and
// tests. It mirrors the remote index contract: idempotent upsert by id,
// cosine ranking with deterministic tie-breaks, metadata filters.
package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ragline/ragline/internal/core/domain"
)

type entry struct {
	vector   []float32
	metadata map[string]string
}

type Index struct {
	dimension int

	mu      sync.RWMutex
	entries map[string]entry
}

func NewIndex(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, domain.WrapError(domain.ErrConfiguration, "new memory index",
			fmt.Errorf("dimension must be positive, got %d", dimension))
	}
	return &Index{
		dimension: dimension,
		entries:   make(map[string]entry),
	}, nil
}

func (i *Index) EnsureIndex(_ context.Context) error {
	return nil
}

func (i *Index) Upsert(_ context.Context, id string, vector []float32, metadata map[string]string) error {
	if id == "" {
		return domain.WrapError(domain.ErrInvalidParameter, "upsert", errors.New("id is required"))
	}
	if len(vector) != i.dimension {
		return domain.WrapError(domain.ErrConfiguration, "upsert",
			fmt.Errorf("vector dimension %d does not match index dimension %d", len(vector), i.dimension))
	}

	stored := make([]float32, len(vector))
	copy(stored, vector)
	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}

	i.mu.Lock()
	i.entries[id] = entry{vector: stored, metadata: meta}
	i.mu.Unlock()
	return nil
}

func (i *Index) Search(_ context.Context, queryVector []float32, k int, filter domain.SearchFilter) ([]domain.RetrievedFragment, error) {
	if k < 1 {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "search",
			fmt.Errorf("k must be >= 1, got %d", k))
	}
	if len(queryVector) != i.dimension {
		return nil, domain.WrapError(domain.ErrConfiguration, "search",
			fmt.Errorf("query dimension %d does not match index dimension %d", len(queryVector), i.dimension))
	}

	i.mu.RLock()
	scored := make([]domain.RetrievedFragment, 0, len(i.entries))
	for id, e := range i.entries {
		if !matchesFilter(e.metadata, filter) {
			continue
		}
		scored = append(scored, fragmentFromEntry(id, cosine(queryVector, e.vector), e.metadata))
	}
	i.mu.RUnlock()

	sort.SliceStable(scored, func(a, b int) bool {
		if scored[a].Score != scored[b].Score {
			return scored[a].Score > scored[b].Score
		}
		return scored[a].VectorID < scored[b].VectorID
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (i *Index) Delete(_ context.Context, ids ...string) error {
	i.mu.Lock()
	for _, id := range ids {
		delete(i.entries, id)
	}
	i.mu.Unlock()
	return nil
}

func (i *Index) DeleteByDocument(_ context.Context, documentID string) error {
	if documentID == "" {
		return domain.WrapError(domain.ErrInvalidParameter, "delete by document",
			errors.New("document id is required"))
	}
	i.mu.Lock()
	for id, e := range i.entries {
		if e.metadata["document_id"] == documentID {
			delete(i.entries, id)
		}
	}
	i.mu.Unlock()
	return nil
}

// Len reports the number of stored vectors. Test helper.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

func matchesFilter(metadata map[string]string, filter domain.SearchFilter) bool {
	if filter.DocType != "" && !strings.EqualFold(metadata["doc_type"], filter.DocType) {
		return false
	}
	if filter.DocumentID != "" && metadata["document_id"] != filter.DocumentID {
		return false
	}
	return true
}

func fragmentFromEntry(id string, score float64, metadata map[string]string) domain.RetrievedFragment {
	chunkIndex := -1
	if raw, ok := metadata["chunk_index"]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			chunkIndex = n
		}
	}
	return domain.RetrievedFragment{
		VectorID:       id,
		DocumentID:     metadata["document_id"],
		SourceFilename: metadata["source_filename"],
		DocType:        metadata["doc_type"],
		ChunkIndex:     chunkIndex,
		Text:           metadata["text"],
		Score:          score,
	}
}

func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
