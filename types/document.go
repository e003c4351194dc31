package types

import "time"

// DocumentType is the canonical classification assigned by the normalizer.
type DocumentType string

const (
	DocTypeInvoice      DocumentType = "invoice"
	DocTypeContract     DocumentType = "contract"
	DocTypeReport       DocumentType = "report"
	DocTypeSpreadsheet  DocumentType = "spreadsheet"
	DocTypePresentation DocumentType = "presentation"
	DocTypeLetter       DocumentType = "letter"
	DocTypeGeneric      DocumentType = "generic"
)

// SupportsLineItems reports whether table extraction is meaningful for
// documents of this type.
func (t DocumentType) SupportsLineItems() bool {
	switch t {
	case DocTypeInvoice, DocTypeSpreadsheet:
		return true
	}
	return false
}

// RawDocument is the already-extracted plain text handed to the ingest
// pipeline. The optional Buffer carries tabular row text (tab or comma
// separated) produced by the external extractors. Immutable once created.
type RawDocument struct {
	ID       string            `json:"id"`
	Filename string            `json:"filename"`
	Content  string            `json:"content"`
	Buffer   string            `json:"buffer,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Confidence carries the classifier certainty plus per-field sub-scores.
type Confidence struct {
	Classification float64            `json:"classification"`
	Fields         map[string]float64 `json:"fields,omitempty"`
}

// LineItem is one row-like record extracted from a document's table buffer.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity,omitempty"`
	Amount      float64 `json:"amount,omitempty"`
	Raw         string  `json:"raw"`
}

// NormalizedDocument is the canonical form of an ingested document. It is
// owned by the retrieval store once ingested and only replaced wholesale,
// never patched.
type NormalizedDocument struct {
	ID           string            `json:"id"`
	Filename     string            `json:"filename"`
	Type         DocumentType      `json:"type"`
	Fields       map[string]string `json:"fields"`
	LineItems    []LineItem        `json:"line_items,omitempty"`
	SourceSample string            `json:"source_sample"`
	Confidence   Confidence        `json:"confidence"`
	NeedsReview  bool              `json:"needs_review"`
	Sections     []TextSection     `json:"sections"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// TextSection is a bounded chunk of a document's content. Order is the
// insertion order within the owning document and is significant: it is used
// as a ranking tie-break and for contiguous context assembly.
type TextSection struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Content    string    `json:"content"`
	Order      int       `json:"order"`
	Embedding  []float32 `json:"embedding,omitempty"`
}
