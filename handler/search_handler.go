package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trandvq/docsense/pipeline"
	"github.com/trandvq/docsense/store"
	"github.com/trandvq/docsense/types"
)

type SearchHandler struct {
	store    *store.RetrievalStore
	embedder pipeline.Embedder
}

func NewSearchHandler(st *store.RetrievalStore, embedder pipeline.Embedder) *SearchHandler {
	return &SearchHandler{
		store:    st,
		embedder: embedder,
	}
}

// HandleSearch exposes raw hybrid retrieval without generation, mainly for
// frontends that render their own result lists.
func (h *SearchHandler) HandleSearch(c *gin.Context) {
	var req types.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "invalid request body",
		})
		return
	}
	if req.Query == "" {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "query is required",
		})
		return
	}
	if req.Limit <= 0 {
		req.Limit = 5
	}

	var queryEmbedding []float32
	if h.embedder != nil {
		if vectors, err := h.embedder.Embed(c.Request.Context(), []string{req.Query}); err == nil && len(vectors) == 1 {
			queryEmbedding = vectors[0]
		}
	}

	hits := h.store.Search(req.Query, queryEmbedding, store.Filters{Type: req.Type}, req.Limit)

	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data:   hits,
	})
}
