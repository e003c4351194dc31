// Package normalizer turns raw extracted document text into the canonical
// typed form used by the rest of the system. It never calls network services
// and never fails: malformed input degrades to the generic type with zero
// confidence.
package normalizer

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/trandvq/docsense/types"
)

const (
	// sourceSampleLimit bounds the deterministic audit excerpt.
	sourceSampleLimit = 240

	// genericFallbackConfidence applies when content is present but no
	// signature matched.
	genericFallbackConfidence = 0.4

	// missingFieldPenalty scales classification confidence down for every
	// required field the extractor could not find.
	missingFieldPenalty = 0.75
)

// Normalizer classifies and extracts fields from raw documents.
type Normalizer struct {
	extractTables bool
}

type Option func(*Normalizer)

// WithTableExtraction toggles line-item extraction from the table buffer.
func WithTableExtraction(enabled bool) Option {
	return func(n *Normalizer) { n.extractTables = enabled }
}

func New(opts ...Option) *Normalizer {
	n := &Normalizer{extractTables: true}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// typeSignature describes the lexical evidence for one document type.
// Keywords score one point per match; markers are structural patterns worth
// two points each (a detected total amount is stronger evidence for an
// invoice than the word "invoice" alone).
type typeSignature struct {
	docType  types.DocumentType
	keywords []string
	markers  []*regexp.Regexp
}

var (
	moneyPattern = regexp.MustCompile(`(?i)(?:[$€£]|USD|EUR|VND)\s*[0-9][0-9.,]*|\b[0-9][0-9.,]*\s*(?:[$€£]|USD|EUR|VND)`)
	datePattern  = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b|\b\d{1,2}[./]\d{1,2}[./]\d{2,4}\b`)
	partyPattern = regexp.MustCompile(`(?i)\bbetween\s+.{2,80}?\s+and\s+`)
	tableRowHint = regexp.MustCompile(`\t|;|,\s*\d`)
	slidePattern = regexp.MustCompile(`(?i)\bslide\s*\d+\b`)
)

var signatures = []typeSignature{
	{
		docType: types.DocTypeInvoice,
		keywords: []string{
			"invoice", "total", "amount due", "bill to", "invoice number",
			"payment", "due date", "subtotal", "vat", "tax",
		},
		markers: []*regexp.Regexp{moneyPattern},
	},
	{
		docType: types.DocTypeContract,
		keywords: []string{
			"agreement", "contract", "party", "parties", "hereinafter",
			"terms and conditions", "effective date", "witness", "obligations",
			"termination",
		},
		markers: []*regexp.Regexp{partyPattern},
	},
	{
		docType: types.DocTypeReport,
		keywords: []string{
			"report", "summary", "analysis", "findings", "conclusion",
			"overview", "introduction", "results", "quarterly", "annual",
		},
	},
	{
		docType: types.DocTypeSpreadsheet,
		keywords: []string{
			"sheet", "worksheet", "column", "row", "cell", "csv",
		},
		markers: []*regexp.Regexp{tableRowHint},
	},
	{
		docType: types.DocTypePresentation,
		keywords: []string{
			"slide", "presentation", "agenda", "deck",
		},
		markers: []*regexp.Regexp{slidePattern},
	},
	{
		docType: types.DocTypeLetter,
		keywords: []string{
			"dear", "sincerely", "regards", "yours faithfully", "best wishes",
		},
	},
}

type candidate struct {
	docType      types.DocumentType
	score        int
	keywordCount int
	markerHit    bool
}

// Normalize converts a raw document into its canonical form. It is a pure
// function over the input: same input, same output (timestamps excepted).
func (n *Normalizer) Normalize(raw types.RawDocument) types.NormalizedDocument {
	now := time.Now().UTC()
	doc := types.NormalizedDocument{
		ID:        raw.ID,
		Filename:  raw.Filename,
		Type:      types.DocTypeGeneric,
		Fields:    map[string]string{},
		Metadata:  raw.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	content := strings.TrimSpace(raw.Content)
	if content == "" {
		doc.Confidence = types.Confidence{Classification: 0}
		return doc
	}

	doc.SourceSample = SourceSample(raw.Content, sourceSampleLimit)

	docType, conf := classify(content)
	doc.Type = docType

	fields, fieldConf := extractFields(docType, content)
	doc.Fields = fields

	// Missing required fields lower confidence instead of failing the
	// classification outright.
	for _, name := range requiredFields(docType) {
		if _, ok := fields[name]; !ok {
			conf *= missingFieldPenalty
		}
	}

	doc.Confidence = types.Confidence{
		Classification: clamp01(conf),
		Fields:         fieldConf,
	}

	if n.extractTables && docType.SupportsLineItems() && raw.Buffer != "" {
		doc.LineItems = ExtractLineItems(raw.Buffer)
	}

	return doc
}

// classify scores every type signature against the content and returns the
// winner with its confidence. Ties break on keyword match count, then on
// structural marker presence, then on signature declaration order.
func classify(content string) (types.DocumentType, float64) {
	lower := strings.ToLower(content)

	candidates := make([]candidate, 0, len(signatures))
	for _, sig := range signatures {
		c := candidate{docType: sig.docType}
		for _, kw := range sig.keywords {
			if strings.Contains(lower, kw) {
				c.keywordCount++
				c.score++
			}
		}
		for _, marker := range sig.markers {
			if marker.MatchString(content) {
				c.markerHit = true
				c.score += 2
			}
		}
		if c.score > 0 {
			candidates = append(candidates, c)
		}
	}

	if len(candidates) == 0 {
		return types.DocTypeGeneric, genericFallbackConfidence
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.keywordCount != b.keywordCount {
			return a.keywordCount > b.keywordCount
		}
		if a.markerHit != b.markerHit {
			return a.markerHit
		}
		return false
	})

	best := candidates[0]
	return best.docType, scoreConfidence(best.score)
}

// scoreConfidence maps accumulated lexical evidence onto (0,1). Two keyword
// hits plus one marker already clear the default review threshold.
func scoreConfidence(score int) float64 {
	return float64(score) / (float64(score) + 2.0)
}

// SourceSample returns a deterministic excerpt of the first meaningful lines,
// bounded to limit runes. Used for audits and summaries without calling the
// generation service.
func SourceSample(content string, limit int) string {
	var b strings.Builder
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(line)
		if b.Len() >= limit {
			break
		}
	}
	sample := b.String()
	runes := []rune(sample)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return sample
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
