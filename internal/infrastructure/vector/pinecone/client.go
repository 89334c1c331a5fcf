// Package pinecone is a thin HTTP client for the Pinecone index API: ensure,
// upsert, query, delete. The index itself lives with the provider; this client
// only enforces the calling contract (idempotent ensure, deterministic result
// ordering, typed configuration failures).
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ragline/ragline/internal/core/domain"
)

type Client struct {
	baseURL    string
	apiKey     string
	indexName  string
	dimension  int
	metric     string
	httpClient *http.Client

	ensureMu sync.Mutex
	ensured  bool
}

type Config struct {
	BaseURL        string
	APIKey         string
	IndexName      string
	Dimension      int
	Metric         string
	RequestTimeout time.Duration
}

func New(cfg Config) (*Client, error) {
	if cfg.IndexName == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "new pinecone client",
			errors.New("index name is required"))
	}
	if cfg.Dimension <= 0 {
		return nil, domain.WrapError(domain.ErrConfiguration, "new pinecone client",
			fmt.Errorf("dimension must be positive, got %d", cfg.Dimension))
	}
	metric := cfg.Metric
	if metric == "" {
		metric = "cosine"
	}
	switch metric {
	case "cosine", "dotproduct", "euclidean":
	default:
		return nil, domain.WrapError(domain.ErrConfiguration, "new pinecone client",
			fmt.Errorf("unsupported metric %q", metric))
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		indexName:  cfg.IndexName,
		dimension:  cfg.Dimension,
		metric:     metric,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type indexDescription struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
}

// EnsureIndex is idempotent: an existing index with matching dimension and
// metric is a no-op, a missing index is created, and a mismatched existing
// configuration is fatal.
func (c *Client) EnsureIndex(ctx context.Context) error {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	if c.ensured {
		return nil
	}

	desc, found, err := c.describeIndex(ctx)
	if err != nil {
		return err
	}
	if found {
		if desc.Dimension != c.dimension || !strings.EqualFold(desc.Metric, c.metric) {
			return domain.WrapError(domain.ErrConfiguration, "ensure index",
				fmt.Errorf("index %q exists with dimension=%d metric=%s, configured dimension=%d metric=%s",
					c.indexName, desc.Dimension, desc.Metric, c.dimension, c.metric))
		}
		c.ensured = true
		return nil
	}

	body := map[string]any{
		"name":      c.indexName,
		"dimension": c.dimension,
		"metric":    c.metric,
	}
	if err := c.do(ctx, http.MethodPost, "/indexes", body, nil); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	c.ensured = true
	return nil
}

func (c *Client) describeIndex(ctx context.Context) (*indexDescription, bool, error) {
	var desc indexDescription
	err := c.do(ctx, http.MethodGet, "/indexes/"+c.indexName, nil, &desc)
	if err != nil {
		var statusErr *apiStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("describe index: %w", err)
	}
	return &desc, true, nil
}

// Upsert replaces the vector and metadata stored under id. Re-upserting the
// same id leaves exactly one vector in the index.
func (c *Client) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error {
	if id == "" {
		return domain.WrapError(domain.ErrInvalidParameter, "upsert", errors.New("id is required"))
	}
	if len(vector) != c.dimension {
		return domain.WrapError(domain.ErrConfiguration, "upsert",
			fmt.Errorf("vector dimension %d does not match index dimension %d", len(vector), c.dimension))
	}

	body := map[string]any{
		"vectors": []map[string]any{
			{"id": id, "values": vector, "metadata": metadata},
		},
	}
	if err := c.do(ctx, http.MethodPost, "/vectors/upsert", body, nil); err != nil {
		return fmt.Errorf("pinecone upsert: %w", err)
	}
	return nil
}

// Search returns up to k fragments ordered by descending similarity; equal
// scores fall back to vector id so results are stable across repeated calls
// on an unchanged index.
func (c *Client) Search(ctx context.Context, queryVector []float32, k int, filter domain.SearchFilter) ([]domain.RetrievedFragment, error) {
	if k < 1 {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "search",
			fmt.Errorf("k must be >= 1, got %d", k))
	}
	if len(queryVector) != c.dimension {
		return nil, domain.WrapError(domain.ErrConfiguration, "search",
			fmt.Errorf("query dimension %d does not match index dimension %d", len(queryVector), c.dimension))
	}

	body := map[string]any{
		"vector":          queryVector,
		"topK":            k,
		"includeMetadata": true,
	}
	if f := buildMetadataFilter(filter); f != nil {
		body["filter"] = f
	}

	var response struct {
		Matches []struct {
			ID       string            `json:"id"`
			Score    float64           `json:"score"`
			Metadata map[string]string `json:"metadata"`
		} `json:"matches"`
	}
	if err := c.do(ctx, http.MethodPost, "/query", body, &response); err != nil {
		return nil, fmt.Errorf("pinecone query: %w", err)
	}

	out := make([]domain.RetrievedFragment, 0, len(response.Matches))
	for _, match := range response.Matches {
		out = append(out, fragmentFromMatch(match.ID, match.Score, match.Metadata))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].VectorID < out[j].VectorID
	})
	return out, nil
}

func (c *Client) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	body := map[string]any{"ids": ids}
	if err := c.do(ctx, http.MethodPost, "/vectors/delete", body, nil); err != nil {
		return fmt.Errorf("pinecone delete: %w", err)
	}
	return nil
}

// DeleteByDocument removes every vector whose metadata references the
// document, so no orphaned vectors survive a document deletion.
func (c *Client) DeleteByDocument(ctx context.Context, documentID string) error {
	if documentID == "" {
		return domain.WrapError(domain.ErrInvalidParameter, "delete by document",
			errors.New("document id is required"))
	}
	body := map[string]any{
		"filter": map[string]any{
			"document_id": map[string]any{"$eq": documentID},
		},
	}
	if err := c.do(ctx, http.MethodPost, "/vectors/delete", body, nil); err != nil {
		return fmt.Errorf("pinecone delete by document: %w", err)
	}
	return nil
}

func buildMetadataFilter(filter domain.SearchFilter) map[string]any {
	clauses := map[string]any{}
	if filter.DocType != "" {
		clauses["doc_type"] = map[string]any{"$eq": filter.DocType}
	}
	if filter.DocumentID != "" {
		clauses["document_id"] = map[string]any{"$eq": filter.DocumentID}
	}
	if len(clauses) == 0 {
		return nil
	}
	return clauses
}

func fragmentFromMatch(id string, score float64, metadata map[string]string) domain.RetrievedFragment {
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

type apiStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *apiStatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("pinecone %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("pinecone %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

func (c *Client) do(ctx context.Context, method, path string, body, dst any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &apiStatusError{
			Operation:  method + " " + path,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
