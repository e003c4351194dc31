package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trandvq/docsense/service"
	"github.com/trandvq/docsense/store"
	"github.com/trandvq/docsense/types"
)

type HealthHandler struct {
	store     *store.RetrievalStore
	embedding *service.EmbeddingClient
	generator service.Generator
}

func NewHealthHandler(st *store.RetrievalStore, embedding *service.EmbeddingClient, generator service.Generator) *HealthHandler {
	return &HealthHandler{
		store:     st,
		embedding: embedding,
		generator: generator,
	}
}

// HandleHealth probes both adapters. Degraded dependencies turn the status
// string but keep the 200: the corpus remains queryable lexically even when
// the model servers are down.
func (h *HealthHandler) HandleHealth(c *gin.Context) {
	resp := types.HealthResponse{
		Status:    "healthy",
		Documents: h.store.Count(),
	}

	if h.embedding != nil {
		ok, dim := h.embedding.Health(c.Request.Context())
		resp.EmbeddingReady = ok
		resp.EmbeddingDim = dim
	}
	if h.generator != nil {
		resp.GenerationReady = h.generator.Health(c.Request.Context())
	}

	if !resp.EmbeddingReady || !resp.GenerationReady {
		resp.Status = "degraded"
	}

	c.JSON(http.StatusOK, resp)
}
