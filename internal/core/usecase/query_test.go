package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/ragline/ragline/internal/core/domain"
	"github.com/ragline/ragline/internal/core/synthesis"
)

func docAgent(id int64, name string, docType string) domain.Agent {
	return domain.Agent{
		ID:               id,
		Name:             name,
		RoleSystemPrompt: "You answer from " + docType + ".",
		Model:            "gpt-4o",
		Temperature:      0.2,
		MaxTokens:        1500,
		ResponseFormat:   domain.ResponseFormatJSON,
		SelectionRules: []domain.Rule{
			{Op: domain.OpDocTypeIn, Values: []string{docType}},
		},
	}
}

func TestAnswerFullPipeline(t *testing.T) {
	completer := &completerFake{response: `{"main":"Use the portal.","next_steps":["Open settings"]}`}
	uc := NewQueryUseCase(
		&embedderFake{queryVec: []float32{1, 0}},
		&indexFake{fragments: []domain.RetrievedFragment{
			{VectorID: "doc-1_chunk_0", DocumentID: "doc-1", DocType: "documentation", Text: "Reset via portal.", Score: 0.9},
		}},
		&registryFake{agents: []domain.Agent{docAgent(1, "documentation", "documentation")}},
		synthesis.New(completer),
		0,
	)

	answer, err := uc.Answer(context.Background(), "how do I reset my password", 5)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Main != "Use the portal." {
		t.Fatalf("main = %q", answer.Main)
	}
	if answer.SelectedAgentID != 1 {
		t.Fatalf("selected agent = %d", answer.SelectedAgentID)
	}
	if len(answer.Sources) != 1 || answer.Sources[0].VectorID != "doc-1_chunk_0" {
		t.Fatalf("sources not carried: %+v", answer.Sources)
	}
	if len(completer.requests) != 1 || completer.requests[0].Model != "gpt-4o" {
		t.Fatalf("agent parameters not forwarded: %+v", completer.requests)
	}
}

func TestAnswerRejectsEmptyQuery(t *testing.T) {
	uc := NewQueryUseCase(&embedderFake{}, &indexFake{}, &registryFake{}, synthesis.New(&completerFake{}), 0)
	_, err := uc.Answer(context.Background(), "   ", 5)
	if !domain.IsKind(err, domain.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestAnswerFailsClosedWhenNoAgentMatches(t *testing.T) {
	completer := &completerFake{response: `{"main":"should never run"}`}
	uc := NewQueryUseCase(
		&embedderFake{queryVec: []float32{1}},
		&indexFake{fragments: []domain.RetrievedFragment{
			{VectorID: "v1", DocType: "marketing", Text: "x", Score: 0.5},
		}},
		&registryFake{agents: []domain.Agent{docAgent(1, "documentation", "documentation")}},
		synthesis.New(completer),
		0,
	)

	_, err := uc.Answer(context.Background(), "unrelated question", 5)
	if !domain.IsKind(err, domain.ErrNoAgentMatched) {
		t.Fatalf("expected ErrNoAgentMatched, got %v", err)
	}
	if len(completer.requests) != 0 {
		t.Fatalf("synthesis must not run without a matched agent")
	}
}

func TestAnswerSurfacesRetrievalFailure(t *testing.T) {
	uc := NewQueryUseCase(
		&embedderFake{err: domain.WrapError(domain.ErrRetrievalUnavailable, "embed query", errors.New("provider down"))},
		&indexFake{},
		&registryFake{},
		synthesis.New(&completerFake{}),
		0,
	)

	_, err := uc.Answer(context.Background(), "anything", 5)
	if !domain.IsKind(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
	}
}

func TestAnswerDefaultsLimit(t *testing.T) {
	completer := &completerFake{response: `{"main":"ok"}`}
	index := &indexFake{fragments: []domain.RetrievedFragment{
		{VectorID: "v1", DocType: "documentation", Text: "x", Score: 0.5},
	}}
	uc := NewQueryUseCase(
		&embedderFake{queryVec: []float32{1}},
		index,
		&registryFake{agents: []domain.Agent{docAgent(1, "documentation", "documentation")}},
		synthesis.New(completer),
		7,
	)

	if _, err := uc.Answer(context.Background(), "question", 0); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(index.searchLimits) != 1 || index.searchLimits[0] != 7 {
		t.Fatalf("configured limit not applied: %v", index.searchLimits)
	}
}
