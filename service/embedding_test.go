package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embedServer(t *testing.T, dim int, capture *[][]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed" {
			http.NotFound(w, r)
			return
		}
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if capture != nil {
			*capture = append(*capture, req.Texts)
		}

		embeddings := make([][]float32, len(req.Texts))
		for i := range req.Texts {
			embeddings[i] = make([]float32, dim)
			embeddings[i][0] = float32(i + 1)
		}
		json.NewEncoder(w).Encode(embedResponse{
			Embeddings: embeddings,
			ModelInfo:  map[string]interface{}{"embedding_dim": dim},
		})
	}))
}

func TestEmbeddingClientEmbed(t *testing.T) {
	srv := embedServer(t, 4, nil)
	defer srv.Close()

	client := NewEmbeddingClient(EmbeddingClientConfig{Endpoint: srv.URL, Dimension: 4})
	vectors, err := client.Embed(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)

	require.Len(t, vectors, 2)
	assert.Len(t, vectors[0], 4)
	assert.Equal(t, float32(1), vectors[0][0])
	assert.Equal(t, float32(2), vectors[1][0])
}

func TestEmbeddingClientBatches(t *testing.T) {
	var batches [][]string
	srv := embedServer(t, 4, &batches)
	defer srv.Close()

	client := NewEmbeddingClient(EmbeddingClientConfig{Endpoint: srv.URL, Dimension: 4, BatchSize: 2})
	texts := []string{"a", "b", "c", "d", "e"}
	vectors, err := client.Embed(context.Background(), texts)
	require.NoError(t, err)

	assert.Len(t, vectors, 5)
	require.Len(t, batches, 3)
	assert.Equal(t, []string{"a", "b"}, batches[0])
	assert.Equal(t, []string{"e"}, batches[2])
}

func TestEmbeddingClientDimensionMismatch(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1, 2, 3}}})
	}))
	defer srv.Close()

	client := NewEmbeddingClient(EmbeddingClientConfig{Endpoint: srv.URL, Dimension: 8, MaxRetries: 3})
	_, err := client.Embed(context.Background(), []string{"text"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, int32(1), attempts.Load(), "dimension mismatch must not be retried")
}

func TestEmbeddingClientCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1, 2}}})
	}))
	defer srv.Close()

	client := NewEmbeddingClient(EmbeddingClientConfig{Endpoint: srv.URL, Dimension: 2})
	_, err := client.Embed(context.Background(), []string{"one", "two"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "count mismatch")
}

func TestEmbeddingClientRetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1, 0}}})
	}))
	defer srv.Close()

	client := NewEmbeddingClient(EmbeddingClientConfig{Endpoint: srv.URL, Dimension: 2, MaxRetries: 3})
	vectors, err := client.Embed(context.Background(), []string{"text"})

	require.NoError(t, err)
	assert.Len(t, vectors, 1)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestEmbeddingClientBadRequestNotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "texts must not be empty strings", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewEmbeddingClient(EmbeddingClientConfig{Endpoint: srv.URL, Dimension: 2, MaxRetries: 3})
	_, err := client.Embed(context.Background(), []string{"text"})

	require.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestEmbeddingClientEmptyInput(t *testing.T) {
	client := NewEmbeddingClient(EmbeddingClientConfig{Endpoint: "http://127.0.0.1:1", Dimension: 2})
	vectors, err := client.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestEmbeddingClientHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		json.NewEncoder(w).Encode(embedHealthResponse{
			Status:      "healthy",
			ModelLoaded: true,
			ModelInfo:   map[string]interface{}{"embedding_dim": float64(1024)},
		})
	}))
	defer srv.Close()

	client := NewEmbeddingClient(EmbeddingClientConfig{Endpoint: srv.URL})
	ok, dim := client.Health(context.Background())

	assert.True(t, ok)
	assert.Equal(t, 1024, dim)
}

func TestEmbeddingClientHealthDown(t *testing.T) {
	client := NewEmbeddingClient(EmbeddingClientConfig{Endpoint: "http://127.0.0.1:1"})
	ok, dim := client.Health(context.Background())
	assert.False(t, ok)
	assert.Zero(t, dim)
}
