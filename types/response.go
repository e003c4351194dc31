package types

type DataResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// CorpusStats powers the documents listing and meta queries.
type CorpusStats struct {
	Documents   int                  `json:"documents"`
	Sections    int                  `json:"sections"`
	NeedsReview int                  `json:"needs_review"`
	ByType      map[DocumentType]int `json:"by_type"`
}

type HealthResponse struct {
	Status          string `json:"status"`
	EmbeddingReady  bool   `json:"embedding_ready"`
	GenerationReady bool   `json:"generation_ready"`
	EmbeddingDim    int    `json:"embedding_dim,omitempty"`
	Documents       int    `json:"documents"`
}
