package store

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/trandvq/docsense/types"
)

// Weights tunes the hybrid ranking. The values were calibrated against the
// retrieval scenarios in the test suite, not derived analytically; expose
// them in configuration rather than hard-coding call sites.
type Weights struct {
	Lexical  float64
	Semantic float64

	// FilenameBoost is added once per section when a query token equals or
	// prefixes a filename token. Larger than what ordinary content overlap
	// can contribute, since an explicit filename reference is the strongest
	// relevance signal a query can carry.
	FilenameBoost float64
}

func DefaultWeights() Weights {
	return Weights{Lexical: 0.4, Semantic: 0.6, FilenameBoost: 0.5}
}

// Filters narrows a search to a document type and/or explicit ids.
type Filters struct {
	Type        types.DocumentType
	DocumentIDs []string
}

// ScoredSection is one ranked search hit with its provenance fields.
type ScoredSection struct {
	Section    types.TextSection
	DocumentID string
	Filename   string
	Lexical    float64
	Semantic   float64
	Combined   float64
}

var tokenSplit = regexp.MustCompile(`[^a-z0-9]+`)

// Search ranks all stored sections against the query and returns at most
// limit results. queryEmbedding may be nil, in which case sections are scored
// on lexical signal only — the same degradation applies per-section when a
// section has no embedding.
func (s *RetrievalStore) Search(query string, queryEmbedding []float32, filters Filters, limit int) []ScoredSection {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	if limit <= 0 {
		limit = 5
	}

	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}

	idFilter := make(map[string]bool, len(filters.DocumentIDs))
	for _, id := range filters.DocumentIDs {
		idFilter[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []scoredHit
	for _, doc := range s.docs {
		if filters.Type != "" && doc.Type != filters.Type {
			continue
		}
		if len(idFilter) > 0 && !idFilter[doc.ID] {
			continue
		}

		fileTokens := tokenize(doc.Filename)
		fileMatch := filenameMatch(queryTokens, fileTokens)

		for i := range doc.Sections {
			section := doc.Sections[i]

			lexical := tokenOverlap(queryTokens, section.Content)
			semantic := 0.0
			if queryEmbedding != nil && len(section.Embedding) > 0 {
				semantic = cosineSimilarity(queryEmbedding, section.Embedding)
			}

			combined := s.weights.Lexical*lexical + s.weights.Semantic*semantic
			if fileMatch {
				combined += s.weights.FilenameBoost
			}
			if combined <= 0 {
				continue
			}

			hits = append(hits, scoredHit{
				ScoredSection: ScoredSection{
					Section:    section,
					DocumentID: doc.ID,
					Filename:   doc.Filename,
					Lexical:    lexical,
					Semantic:   semantic,
					Combined:   combined,
				},
				updatedAt: doc.UpdatedAt.UnixNano(),
			})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Combined != b.Combined {
			return a.Combined > b.Combined
		}
		// Tie-break policy: stronger semantic signal, then earlier content,
		// then fresher document.
		if a.Semantic != b.Semantic {
			return a.Semantic > b.Semantic
		}
		if a.Section.Order != b.Section.Order {
			return a.Section.Order < b.Section.Order
		}
		return a.updatedAt > b.updatedAt
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}

	results := make([]ScoredSection, len(hits))
	for i, hit := range hits {
		results[i] = hit.ScoredSection
	}
	return results
}

type scoredHit struct {
	ScoredSection
	updatedAt int64
}

// tokenOverlap scores the share of query tokens present in the content,
// counting whole-token hits plus a half-weight substring fallback.
func tokenOverlap(queryTokens []string, content string) float64 {
	if content == "" {
		return 0
	}
	lower := strings.ToLower(content)
	contentTokens := make(map[string]bool)
	for _, tok := range tokenize(lower) {
		contentTokens[tok] = true
	}

	matched := 0.0
	for _, tok := range queryTokens {
		switch {
		case contentTokens[tok]:
			matched++
		case len(tok) >= 4 && strings.Contains(lower, tok):
			matched += 0.5
		}
	}
	return matched / float64(len(queryTokens))
}

// filenameMatch reports whether any query token equals or is a prefix of a
// normalized filename token.
func filenameMatch(queryTokens, fileTokens []string) bool {
	for _, q := range queryTokens {
		if len(q) < 3 {
			continue
		}
		for _, f := range fileTokens {
			if f == q || strings.HasPrefix(f, q) {
				return true
			}
		}
	}
	return false
}

func tokenize(text string) []string {
	parts := tokenSplit.Split(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
