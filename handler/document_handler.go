package handler

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trandvq/docsense/store"
	"github.com/trandvq/docsense/types"
)

type DocumentHandler struct {
	store *store.RetrievalStore
}

func NewDocumentHandler(st *store.RetrievalStore) *DocumentHandler {
	return &DocumentHandler{
		store: st,
	}
}

// documentSummary is the listing shape: everything except section contents
// and embeddings.
type documentSummary struct {
	ID          string             `json:"id"`
	Filename    string             `json:"filename"`
	Type        types.DocumentType `json:"type"`
	Confidence  float64            `json:"confidence"`
	NeedsReview bool               `json:"needs_review"`
	Sections    int                `json:"sections"`
	UpdatedAt   string             `json:"updated_at"`
}

func summarize(doc types.NormalizedDocument) documentSummary {
	return documentSummary{
		ID:          doc.ID,
		Filename:    doc.Filename,
		Type:        doc.Type,
		Confidence:  doc.Confidence.Classification,
		NeedsReview: doc.NeedsReview,
		Sections:    len(doc.Sections),
		UpdatedAt:   doc.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *DocumentHandler) HandleList(c *gin.Context) {
	docs := h.store.GetAll()
	sort.Slice(docs, func(i, j int) bool { return docs[i].Filename < docs[j].Filename })

	summaries := make([]documentSummary, 0, len(docs))
	for _, doc := range docs {
		summaries = append(summaries, summarize(doc))
	}

	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data: gin.H{
			"documents": summaries,
			"stats":     h.store.Stats(),
		},
	})
}

func (h *DocumentHandler) HandleGet(c *gin.Context) {
	id := c.Param("id")
	doc, err := h.store.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, types.DataResponse{
				Status:  false,
				Message: "document not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data:   doc,
	})
}

// HandleReviewQueue lists documents flagged for review, lowest confidence
// first so reviewers see the most doubtful classifications on top.
func (h *DocumentHandler) HandleReviewQueue(c *gin.Context) {
	var flagged []documentSummary
	for _, doc := range h.store.GetAll() {
		if doc.NeedsReview {
			flagged = append(flagged, summarize(doc))
		}
	}
	sort.Slice(flagged, func(i, j int) bool {
		if flagged[i].Confidence != flagged[j].Confidence {
			return flagged[i].Confidence < flagged[j].Confidence
		}
		return flagged[i].Filename < flagged[j].Filename
	})

	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data:   flagged,
	})
}

func (h *DocumentHandler) HandleDelete(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, types.DataResponse{
				Status:  false,
				Message: "document not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, types.DataResponse{
		Status:  true,
		Message: "document deleted",
	})
}
