package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ragline/ragline/internal/core/domain"
	"github.com/ragline/ragline/internal/core/ports"
	"github.com/ragline/ragline/internal/core/selection"
	"github.com/ragline/ragline/internal/core/synthesis"
)

const defaultRetrievalLimit = 5

type QueryUseCase struct {
	embedder     ports.Embedder
	index        ports.VectorIndex
	agents       ports.AgentRegistry
	synthesizer  *synthesis.Synthesizer
	defaultLimit int
}

// NewQueryUseCase builds the query pipeline. defaultLimit caps retrieval when
// the caller does not ask for a specific number of fragments; zero or negative
// falls back to the built-in default.
func NewQueryUseCase(
	embedder ports.Embedder,
	index ports.VectorIndex,
	agents ports.AgentRegistry,
	synthesizer *synthesis.Synthesizer,
	defaultLimit int,
) *QueryUseCase {
	if defaultLimit <= 0 {
		defaultLimit = defaultRetrievalLimit
	}
	return &QueryUseCase{
		embedder:     embedder,
		index:        index,
		agents:       agents,
		synthesizer:  synthesizer,
		defaultLimit: defaultLimit,
	}
}

// Answer runs retrieve, select, synthesize. Selection failing to match any
// agent fails the query; there is no fallback agent.
func (uc *QueryUseCase) Answer(ctx context.Context, query string, limit int) (*domain.Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "answer query",
			errors.New("query is required"))
	}
	if limit <= 0 {
		limit = uc.defaultLimit
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	fragments, err := uc.index.Search(ctx, queryVector, limit, domain.SearchFilter{})
	if err != nil {
		return nil, fmt.Errorf("search vector index: %w", err)
	}

	agents, err := uc.agents.ListByID(ctx)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}

	match, err := selection.Select(agents, fragments, query)
	if err != nil {
		return nil, fmt.Errorf("select agent: %w", err)
	}

	answer, err := uc.synthesizer.Synthesize(ctx, match.Agent, query, fragments)
	if err != nil {
		return nil, fmt.Errorf("synthesize answer: %w", err)
	}
	return answer, nil
}
