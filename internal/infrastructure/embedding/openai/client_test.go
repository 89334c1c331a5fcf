package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ragline/ragline/internal/core/domain"
	"github.com/ragline/ragline/internal/infrastructure/resilience"
)

func testExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Policy{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2,
		BreakerEnabled: false,
	})
}

func embeddingServer(t *testing.T, dimension int, fail *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		if fail != nil && atomic.AddInt32(fail, -1) >= 0 {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}

		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		type item struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		// Return items in reverse order to prove the client restores
		// input order from the index field.
		items := make([]item, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			vector := make([]float32, dimension)
			vector[0] = float32(i)
			items = append(items, item{Index: i, Embedding: vector})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": items})
	}))
}

func TestEmbedOrderPreserving(t *testing.T) {
	server := embeddingServer(t, 4, nil)
	defer server.Close()

	client := New(Config{BaseURL: server.URL, Model: "test-embed", Dimension: 4, RequestsPerSec: 1000}, testExecutor())
	vectors, err := client.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	for i, vector := range vectors {
		if vector[0] != float32(i) {
			t.Fatalf("vector %d out of order: marker %v", i, vector[0])
		}
	}
}

func TestEmbedDimensionMismatchIsConfigurationError(t *testing.T) {
	server := embeddingServer(t, 8, nil)
	defer server.Close()

	client := New(Config{BaseURL: server.URL, Model: "test-embed", Dimension: 1536, RequestsPerSec: 1000}, testExecutor())
	_, err := client.Embed(context.Background(), []string{"a"})
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestEmbedRetriesTransientThenSucceeds(t *testing.T) {
	fail := int32(2)
	server := embeddingServer(t, 4, &fail)
	defer server.Close()

	client := New(Config{BaseURL: server.URL, Model: "test-embed", Dimension: 4, RequestsPerSec: 1000}, testExecutor())
	vectors, err := client.Embed(context.Background(), []string{"a"})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if len(vectors) != 1 {
		t.Fatalf("expected 1 vector, got %d", len(vectors))
	}
}

func TestEmbedExhaustedRetriesSurfaceRetrievalUnavailable(t *testing.T) {
	fail := int32(100)
	server := embeddingServer(t, 4, &fail)
	defer server.Close()

	client := New(Config{BaseURL: server.URL, Model: "test-embed", Dimension: 4, RequestsPerSec: 1000}, testExecutor())
	_, err := client.Embed(context.Background(), []string{"a"})
	if !domain.IsKind(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
	}
}

func TestEmbedAuthFailureNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, Model: "test-embed", Dimension: 4, RequestsPerSec: 1000}, testExecutor())
	_, err := client.Embed(context.Background(), []string{"a"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if domain.IsKind(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("auth failure must not be tagged transient: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("auth failure must not be retried, got %d calls", got)
	}
}

func TestEmbedQuerySingleVector(t *testing.T) {
	server := embeddingServer(t, 4, nil)
	defer server.Close()

	client := New(Config{BaseURL: server.URL, Model: "test-embed", Dimension: 4, RequestsPerSec: 1000}, testExecutor())
	vector, err := client.EmbedQuery(context.Background(), "q")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vector) != 4 {
		t.Fatalf("expected dimension 4, got %d", len(vector))
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	client := New(Config{BaseURL: "http://unused", Model: "test-embed", Dimension: 4}, testExecutor())
	vectors, err := client.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed(nil) error = %v", err)
	}
	if vectors != nil {
		t.Fatalf("expected nil result for empty input")
	}
}
