package types

// IngestStage tracks a document's progress through the pipeline.
type IngestStage string

const (
	StageReceived       IngestStage = "received"
	StageClassified     IngestStage = "classified"
	StageTableExtracted IngestStage = "table_extracted"
	StageEmbedded       IngestStage = "embedded"
	StageValidated      IngestStage = "validated"
	StageStored         IngestStage = "stored"
	StageNeedsReview    IngestStage = "needs_review"
	StageFailed         IngestStage = "failed"
)

// IngestOptions controls optional pipeline stages per request.
type IngestOptions struct {
	ExtractTables bool `json:"extract_tables"`
}

// IngestResult is the structured outcome of one document's ingestion.
// NeedsReview is advisory: the document was stored either way.
type IngestResult struct {
	Success     bool                `json:"success"`
	Document    *NormalizedDocument `json:"document,omitempty"`
	NeedsReview bool                `json:"needs_review"`
	Stage       IngestStage         `json:"stage"`
	Error       string              `json:"error,omitempty"`
	Warnings    []string            `json:"warnings,omitempty"`
}
