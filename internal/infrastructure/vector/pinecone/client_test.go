package pinecone

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ragline/ragline/internal/core/domain"
)

type fakeIndexServer struct {
	exists       bool
	dimension    int
	metric       string
	createCalls  atomic.Int32
	upserted     []map[string]any
	deleteBodies []map[string]any
	matches      []map[string]any
	lastQuery    map[string]any
}

func (f *fakeIndexServer) handler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/indexes/docs":
			if !f.exists {
				http.Error(w, "index not found", http.StatusNotFound)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"name":      "docs",
				"dimension": f.dimension,
				"metric":    f.metric,
			})
		case r.Method == http.MethodPost && r.URL.Path == "/indexes":
			f.createCalls.Add(1)
			f.exists = true
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.dimension = int(body["dimension"].(float64))
			f.metric = body["metric"].(string)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPost && r.URL.Path == "/vectors/upsert":
			var body struct {
				Vectors []map[string]any `json:"vectors"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.upserted = append(f.upserted, body.Vectors...)
			_ = json.NewEncoder(w).Encode(map[string]any{"upsertedCount": len(body.Vectors)})
		case r.Method == http.MethodPost && r.URL.Path == "/query":
			_ = json.NewDecoder(r.Body).Decode(&f.lastQuery)
			_ = json.NewEncoder(w).Encode(map[string]any{"matches": f.matches})
		case r.Method == http.MethodPost && r.URL.Path == "/vectors/delete":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.deleteBodies = append(f.deleteBodies, body)
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}
}

func newTestClient(t *testing.T, server *httptest.Server, dimension int) *Client {
	t.Helper()
	client, err := New(Config{
		BaseURL:   server.URL,
		APIKey:    "k",
		IndexName: "docs",
		Dimension: dimension,
		Metric:    "cosine",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestEnsureIndexCreatesMissingIndexOnce(t *testing.T) {
	fake := &fakeIndexServer{}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	client := newTestClient(t, server, 4)
	for i := 0; i < 3; i++ {
		if err := client.EnsureIndex(context.Background()); err != nil {
			t.Fatalf("EnsureIndex() call %d error = %v", i, err)
		}
	}
	if got := fake.createCalls.Load(); got != 1 {
		t.Fatalf("expected exactly one create call, got %d", got)
	}
	if fake.dimension != 4 || fake.metric != "cosine" {
		t.Fatalf("index created with dimension=%d metric=%s", fake.dimension, fake.metric)
	}
}

func TestEnsureIndexAcceptsMatchingExistingIndex(t *testing.T) {
	fake := &fakeIndexServer{exists: true, dimension: 4, metric: "cosine"}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	client := newTestClient(t, server, 4)
	if err := client.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex() error = %v", err)
	}
	if got := fake.createCalls.Load(); got != 0 {
		t.Fatalf("matching index must not be recreated, got %d create calls", got)
	}
}

func TestEnsureIndexRejectsMismatchedDimension(t *testing.T) {
	fake := &fakeIndexServer{exists: true, dimension: 768, metric: "cosine"}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	client := newTestClient(t, server, 1536)
	err := client.EnsureIndex(context.Background())
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestUpsertSendsMetadata(t *testing.T) {
	fake := &fakeIndexServer{}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	client := newTestClient(t, server, 2)
	metadata := map[string]string{
		"text":            "chunk body",
		"document_id":     "doc-1",
		"source_filename": "guide.md",
		"doc_type":        "documentation",
		"chunk_index":     "0",
	}
	if err := client.Upsert(context.Background(), "doc-1_chunk_0", []float32{0.1, 0.2}, metadata); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if len(fake.upserted) != 1 {
		t.Fatalf("expected one upserted vector, got %d", len(fake.upserted))
	}
	got := fake.upserted[0]
	if got["id"] != "doc-1_chunk_0" {
		t.Fatalf("unexpected vector id %v", got["id"])
	}
	gotMeta := got["metadata"].(map[string]any)
	for key, want := range metadata {
		if gotMeta[key] != want {
			t.Fatalf("metadata %q = %v, want %q", key, gotMeta[key], want)
		}
	}
}

func TestUpsertRejectsWrongDimension(t *testing.T) {
	fake := &fakeIndexServer{}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	client := newTestClient(t, server, 4)
	err := client.Upsert(context.Background(), "v1", []float32{0.1}, nil)
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestSearchOrdersByScoreThenID(t *testing.T) {
	fake := &fakeIndexServer{
		matches: []map[string]any{
			{"id": "doc-2_chunk_0", "score": 0.80, "metadata": map[string]string{"chunk_index": "0"}},
			{"id": "doc-1_chunk_3", "score": 0.91, "metadata": map[string]string{"chunk_index": "3"}},
			{"id": "doc-1_chunk_1", "score": 0.80, "metadata": map[string]string{"chunk_index": "1"}},
		},
	}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	client := newTestClient(t, server, 2)
	fragments, err := client.Search(context.Background(), []float32{0.5, 0.5}, 3, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	wantOrder := []string{"doc-1_chunk_3", "doc-1_chunk_1", "doc-2_chunk_0"}
	if len(fragments) != len(wantOrder) {
		t.Fatalf("expected %d fragments, got %d", len(wantOrder), len(fragments))
	}
	for i, want := range wantOrder {
		if fragments[i].VectorID != want {
			t.Fatalf("fragment %d = %s, want %s", i, fragments[i].VectorID, want)
		}
	}
	if fragments[0].ChunkIndex != 3 {
		t.Fatalf("chunk index not decoded: %d", fragments[0].ChunkIndex)
	}
}

func TestSearchRejectsNonPositiveK(t *testing.T) {
	fake := &fakeIndexServer{}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	client := newTestClient(t, server, 2)
	_, err := client.Search(context.Background(), []float32{0.5, 0.5}, 0, domain.SearchFilter{})
	if !domain.IsKind(err, domain.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestSearchSendsMetadataFilter(t *testing.T) {
	fake := &fakeIndexServer{}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	client := newTestClient(t, server, 2)
	_, err := client.Search(context.Background(), []float32{0.5, 0.5}, 5, domain.SearchFilter{DocType: "course"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	filter, ok := fake.lastQuery["filter"].(map[string]any)
	if !ok {
		t.Fatalf("filter not sent: %v", fake.lastQuery)
	}
	clause := filter["doc_type"].(map[string]any)
	if clause["$eq"] != "course" {
		t.Fatalf("doc_type filter = %v", clause)
	}
}

func TestDeleteByDocumentUsesMetadataFilter(t *testing.T) {
	fake := &fakeIndexServer{}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	client := newTestClient(t, server, 2)
	if err := client.DeleteByDocument(context.Background(), "doc-9"); err != nil {
		t.Fatalf("DeleteByDocument() error = %v", err)
	}

	if len(fake.deleteBodies) != 1 {
		t.Fatalf("expected one delete call, got %d", len(fake.deleteBodies))
	}
	filter := fake.deleteBodies[0]["filter"].(map[string]any)
	clause := filter["document_id"].(map[string]any)
	if clause["$eq"] != "doc-9" {
		t.Fatalf("document filter = %v", clause)
	}
}

func TestDeleteNoIDsIsNoop(t *testing.T) {
	fake := &fakeIndexServer{}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	client := newTestClient(t, server, 2)
	if err := client.Delete(context.Background()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(fake.deleteBodies) != 0 {
		t.Fatalf("no-op delete must not call the API")
	}
}
