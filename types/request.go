package types

type IngestRequest struct {
	Document RawDocument `json:"document"`
	Options  struct {
		ExtractTables *bool `json:"extract_tables,omitempty"`
	} `json:"options"`
}

type BatchIngestRequest struct {
	Documents []RawDocument `json:"documents"`
}

type ChatRequest struct {
	Query   string      `json:"query"`
	History []Message   `json:"history,omitempty"`
	Options ChatOptions `json:"options"`
}

type SearchRequest struct {
	Query string       `json:"query"`
	Type  DocumentType `json:"type,omitempty"`
	Limit int          `json:"limit,omitempty"`
}
