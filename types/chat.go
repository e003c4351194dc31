package types

// Message represents a single message in the conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// QueryIntent is the coarse category assigned before deciding whether
// retrieval is needed.
type QueryIntent string

const (
	IntentCasualChat    QueryIntent = "casual_chat"
	IntentMetaQuery     QueryIntent = "meta_query"
	IntentDocumentQuery QueryIntent = "document_query"
)

// ChatOptions tunes a single query.
type ChatOptions struct {
	ComputeAggregates bool   `json:"compute_aggregates"`
	MaxReferences     int    `json:"max_references"`
	Locale            string `json:"locale,omitempty"`
}

// ChatQuery is one user turn plus the capped conversation history.
type ChatQuery struct {
	Query               string      `json:"query"`
	ConversationHistory []Message   `json:"conversation_history,omitempty"`
	Options             ChatOptions `json:"options"`
}

// AggregateStats summarizes numeric tokens found across matched sections.
type AggregateStats struct {
	Count    int     `json:"count"`
	Sum      float64 `json:"sum"`
	Average  float64 `json:"average"`
	Median   float64 `json:"median"`
	Currency string  `json:"currency,omitempty"`
}

// ProvenanceRef cites one section that grounded the answer.
type ProvenanceRef struct {
	SectionID  string  `json:"section_id"`
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Snippet    string  `json:"snippet"`
	Similarity float64 `json:"similarity"`
}

// ModelMeta describes the generation call that produced the answer.
type ModelMeta struct {
	Model     string `json:"model"`
	LatencyMs int64  `json:"latency_ms"`
	Fallback  string `json:"fallback,omitempty"`
}

// ChatResponse is always returned as a structured object, even when
// generation or retrieval degraded.
type ChatResponse struct {
	Answer            string          `json:"answer"`
	Intent            QueryIntent     `json:"intent"`
	Stats             *AggregateStats `json:"stats,omitempty"`
	Provenance        []ProvenanceRef `json:"provenance"`
	UsedChunkIDs      []string        `json:"used_chunk_ids"`
	ModelMeta         ModelMeta       `json:"model_meta"`
	LowConfidence     bool            `json:"low_confidence"`
	SuggestedFollowUp string          `json:"suggested_follow_up,omitempty"`
}
