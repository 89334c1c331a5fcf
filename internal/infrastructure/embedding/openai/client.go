// Package openai implements the embedding gateway against an OpenAI-style
// /v1/embeddings endpoint. Embedding is a pure text-to-vector call: no state
// beyond the HTTP client and the configured model.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ragline/ragline/internal/core/domain"
	"github.com/ragline/ragline/internal/infrastructure/resilience"
)

const maxBatchSize = 64

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	dimension  int
	httpClient *http.Client
	executor   *resilience.Executor
	limiter    *rate.Limiter
}

type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	Dimension      int
	RequestTimeout time.Duration
	RequestsPerSec float64
}

func New(cfg Config, executor *resilience.Executor) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 10
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimension:  cfg.Dimension,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Embed converts texts to vectors, batching transparently. The result is
// order-preserving: vector i always belongs to texts[i], identical to calling
// the single-item form per element.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}

	for i, vector := range out {
		if len(vector) != c.dimension {
			return nil, domain.WrapError(domain.ErrConfiguration, "embed",
				fmt.Errorf("provider returned dimension %d for input %d, index is configured for %d",
					len(vector), i, c.dimension))
		}
	}
	return out, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "embed query",
			fmt.Errorf("provider returned no embedding"))
	}
	return vectors[0], nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	request := map[string]any{
		"model": c.model,
		"input": texts,
	}

	var response struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}

	call := func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		return c.postJSON(ctx, "/v1/embeddings", request, &response)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Do(ctx, "embeddings.create", call, classifyProviderError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapRetrievalUnavailable("embed batch", err)
	}

	if len(response.Data) != len(texts) {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "embed batch",
			fmt.Errorf("provider returned %d embeddings for %d inputs", len(response.Data), len(texts)))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range response.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "embed batch",
				fmt.Errorf("provider returned out-of-range index %d", item.Index))
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any, dst any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("embeddings request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			Operation:  "embeddings",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode embeddings response: %w", err)
	}
	return nil
}
