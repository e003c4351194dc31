package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/trandvq/docsense/pipeline"
	"github.com/trandvq/docsense/types"
)

type IngestHandler struct {
	pipeline      *pipeline.Pipeline
	extractTables bool
}

func NewIngestHandler(p *pipeline.Pipeline, extractTables bool) *IngestHandler {
	return &IngestHandler{
		pipeline:      p,
		extractTables: extractTables,
	}
}

// HandleIngest runs a single document through the full pipeline. The
// response reports the stage reached and the review flag; a degraded
// classification is still a 200.
func (h *IngestHandler) HandleIngest(c *gin.Context) {
	var req types.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "invalid request body",
		})
		return
	}

	raw := req.Document
	if raw.ID == "" {
		raw.ID = uuid.NewString()
	}
	if raw.Filename == "" {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "filename is required",
		})
		return
	}

	opts := types.IngestOptions{ExtractTables: h.extractTables}
	if req.Options.ExtractTables != nil {
		opts.ExtractTables = *req.Options.ExtractTables
	}

	result := h.pipeline.Ingest(c.Request.Context(), raw, opts)
	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, types.DataResponse{
			Status:  false,
			Message: result.Error,
			Data:    result,
		})
		return
	}

	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data:   result,
	})
}

// HandleBatchIngest processes many documents concurrently and returns one
// result per input. Individual failures do not fail the batch.
func (h *IngestHandler) HandleBatchIngest(c *gin.Context) {
	var req types.BatchIngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "invalid request body",
		})
		return
	}
	if len(req.Documents) == 0 {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "documents is empty",
		})
		return
	}

	for i := range req.Documents {
		if req.Documents[i].ID == "" {
			req.Documents[i].ID = uuid.NewString()
		}
	}

	results := h.pipeline.IngestAll(c.Request.Context(), req.Documents, types.IngestOptions{
		ExtractTables: h.extractTables,
	})

	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data:   results,
	})
}
