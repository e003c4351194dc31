package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrDimensionMismatch means the embedding server returned vectors of an
// unexpected length. This is a response-shape violation, never retried and
// never silently truncated or padded.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

const (
	defaultEmbedTimeout  = 30 * time.Second
	defaultEmbedRetries  = 2
	defaultEmbedBatch    = 64
	embedBackoffBaseWait = 500 * time.Millisecond
)

// EmbeddingClient talks to the local embedding model server. It is stateless
// and safe for concurrent use.
type EmbeddingClient struct {
	endpoint   string
	dimension  int
	batchSize  int
	normalize  bool
	maxRetries int
	client     *http.Client
}

type EmbeddingClientConfig struct {
	Endpoint   string
	Dimension  int
	BatchSize  int
	Normalize  bool
	Timeout    time.Duration
	MaxRetries int
}

type embedRequest struct {
	Texts     []string `json:"texts"`
	BatchSize int      `json:"batch_size,omitempty"`
	Normalize bool     `json:"normalize"`
}

type embedResponse struct {
	Embeddings [][]float32            `json:"embeddings"`
	ModelInfo  map[string]interface{} `json:"model_info"`
}

type embedHealthResponse struct {
	Status      string                 `json:"status"`
	ModelLoaded bool                   `json:"model_loaded"`
	ModelInfo   map[string]interface{} `json:"model_info"`
}

func NewEmbeddingClient(cfg EmbeddingClientConfig) *EmbeddingClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultEmbedTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = defaultEmbedRetries
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultEmbedBatch
	}

	return &EmbeddingClient{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		dimension:  cfg.Dimension,
		batchSize:  cfg.BatchSize,
		normalize:  cfg.Normalize,
		maxRetries: cfg.MaxRetries,
		client:     &http.Client{Timeout: cfg.Timeout},
	}
}

// Dimension returns the vector length the client validates against.
func (c *EmbeddingClient) Dimension() int {
	return c.dimension
}

// Embed converts texts into vectors, batching requests up to the configured
// batch limit. Transient failures are retried with doubling backoff; a
// dimension mismatch fails immediately.
func (c *EmbeddingClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, vectors...)
	}
	return results, nil
}

func (c *EmbeddingClient) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := embedBackoffBaseWait << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		vectors, err := c.doEmbed(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("embedding service unavailable after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *EmbeddingClient) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{
		Texts:     texts,
		BatchSize: c.batchSize,
		Normalize: c.normalize,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &transientError{err: fmt.Errorf("call embedding service: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return nil, &transientError{err: fmt.Errorf("embedding service returned status %s", resp.Status)}
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding service returned status %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	var payload embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}

	if len(payload.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors",
			len(texts), len(payload.Embeddings))
	}
	if c.dimension > 0 {
		for i, vec := range payload.Embeddings {
			if len(vec) != c.dimension {
				return nil, fmt.Errorf("%w: expected %d, got %d at index %d",
					ErrDimensionMismatch, c.dimension, len(vec), i)
			}
		}
	}

	return payload.Embeddings, nil
}

// Health checks the model server readiness and reports its embedding
// dimension when exposed.
func (c *EmbeddingClient) Health(ctx context.Context) (bool, int) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/health", nil)
	if err != nil {
		return false, 0
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, 0
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, 0
	}

	var payload embedHealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false, 0
	}

	dim := 0
	if v, ok := payload.ModelInfo["embedding_dim"].(float64); ok {
		dim = int(v)
	}
	return payload.ModelLoaded && payload.Status == "healthy", dim
}

// transientError marks failures worth retrying: timeouts, connection
// resets, 5xx responses.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}
