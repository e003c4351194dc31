package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trandvq/docsense/store"
	"github.com/trandvq/docsense/types"
)

// fakeEmbedder returns deterministic vectors, or a configured error to
// simulate adapter exhaustion.
type fakeEmbedder struct {
	dim   int
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, f.dim)
		vec[0] = float32(len(texts[i]))
		vectors[i] = vec
	}
	return vectors, nil
}

func newTestPipeline(emb Embedder, s *store.RetrievalStore) *Pipeline {
	return New(emb, s, Config{ReviewThreshold: 0.6, Workers: 2}, nil)
}

func TestIngestInvoiceStoredWithoutReview(t *testing.T) {
	s := store.New()
	p := newTestPipeline(&fakeEmbedder{dim: 8}, s)

	result := p.Ingest(context.Background(), types.RawDocument{
		ID:       "inv-1",
		Filename: "invoice.pdf",
		Content:  "Invoice Total: $1,250.00, Date: 2024-01-15",
	}, types.IngestOptions{})

	require.True(t, result.Success)
	require.NotNil(t, result.Document)
	assert.Equal(t, types.DocTypeInvoice, result.Document.Type)
	assert.False(t, result.NeedsReview)
	assert.Equal(t, types.StageStored, result.Stage)
	assert.Empty(t, result.Warnings)

	stored, err := s.Get("inv-1")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Sections)
	assert.Len(t, stored.Sections[0].Embedding, 8)
}

func TestNeedsReviewBiconditional(t *testing.T) {
	s := store.New()
	p := newTestPipeline(&fakeEmbedder{dim: 4}, s)
	ctx := context.Background()

	// Low confidence, no validation issues: review required.
	low := p.Ingest(ctx, types.RawDocument{
		ID:      "gen-1",
		Content: "nothing that resembles any known document shape",
	}, types.IngestOptions{})
	require.True(t, low.Success)
	assert.True(t, low.NeedsReview)
	assert.Equal(t, types.StageNeedsReview, low.Stage)

	// Confident classification with a validation warning: review required.
	warned := p.Ingest(ctx, types.RawDocument{
		ID:      "inv-2",
		Content: "Invoice number 17, subtotal, tax and total payment due: $50.00 via bank transfer",
	}, types.IngestOptions{})
	require.True(t, warned.Success)
	require.Equal(t, types.DocTypeInvoice, warned.Document.Type)
	// No date anywhere: required-field warning forces review even though
	// the classifier is confident enough.
	assert.NotEmpty(t, warned.Warnings)
	assert.True(t, warned.NeedsReview)

	// Confident and clean: no review.
	clean := p.Ingest(ctx, types.RawDocument{
		ID:      "inv-3",
		Content: "Invoice Total: $1,250.00, Date: 2024-01-15",
	}, types.IngestOptions{})
	require.True(t, clean.Success)
	assert.False(t, clean.NeedsReview)
	assert.Empty(t, clean.Warnings)
	assert.GreaterOrEqual(t, clean.Document.Confidence.Classification, 0.6)
}

func TestReingestReplacesSections(t *testing.T) {
	s := store.New()
	p := newTestPipeline(&fakeEmbedder{dim: 4}, s)
	ctx := context.Background()

	first := p.Ingest(ctx, types.RawDocument{
		ID: "d1", Filename: "a.txt", Content: "original mango paragraph",
	}, types.IngestOptions{})
	require.True(t, first.Success)
	originalSectionID := first.Document.Sections[0].ID

	second := p.Ingest(ctx, types.RawDocument{
		ID: "d1", Filename: "a.txt", Content: "replacement mango paragraph",
	}, types.IngestOptions{})
	require.True(t, second.Success)

	stored, err := s.Get("d1")
	require.NoError(t, err)
	require.Len(t, stored.Sections, 1)
	assert.NotEqual(t, originalSectionID, stored.Sections[0].ID)

	for _, hit := range s.Search("mango", nil, store.Filters{}, 10) {
		assert.NotEqual(t, originalSectionID, hit.Section.ID)
	}
}

func TestEmbedderFailureLeavesPriorVersionIntact(t *testing.T) {
	s := store.New()
	emb := &fakeEmbedder{dim: 4}
	p := newTestPipeline(emb, s)
	ctx := context.Background()

	ok := p.Ingest(ctx, types.RawDocument{ID: "d1", Content: "stable original content"}, types.IngestOptions{})
	require.True(t, ok.Success)

	emb.err = errors.New("embedding dimension mismatch: expected 4, got 7")
	failed := p.Ingest(ctx, types.RawDocument{ID: "d1", Content: "new content that never lands"}, types.IngestOptions{})

	assert.False(t, failed.Success)
	assert.Equal(t, types.StageFailed, failed.Stage)
	assert.Contains(t, failed.Error, "dimension mismatch")

	stored, err := s.Get("d1")
	require.NoError(t, err)
	require.Len(t, stored.Sections, 1)
	assert.Equal(t, "stable original content", stored.Sections[0].Content)
}

func TestEmptyContentStoredAsDegradedGeneric(t *testing.T) {
	s := store.New()
	emb := &fakeEmbedder{dim: 4}
	p := newTestPipeline(emb, s)

	result := p.Ingest(context.Background(), types.RawDocument{ID: "e1", Content: "   "}, types.IngestOptions{})

	require.True(t, result.Success)
	assert.Equal(t, types.DocTypeGeneric, result.Document.Type)
	assert.Zero(t, result.Document.Confidence.Classification)
	assert.True(t, result.NeedsReview)
	assert.Zero(t, emb.calls, "no embedding call for empty content")
}

func TestTableExtractionGatedByTypeAndOption(t *testing.T) {
	s := store.New()
	p := newTestPipeline(&fakeEmbedder{dim: 4}, s)
	ctx := context.Background()

	buffer := "Widget\t2\t50.00\nGadget\t1\t25.00"
	raw := types.RawDocument{
		ID:      "inv-4",
		Content: "Invoice Total: $75.00, Date: 2024-03-01",
		Buffer:  buffer,
	}

	with := p.Ingest(ctx, raw, types.IngestOptions{ExtractTables: true})
	require.True(t, with.Success)
	assert.Len(t, with.Document.LineItems, 2)

	raw.ID = "inv-5"
	without := p.Ingest(ctx, raw, types.IngestOptions{ExtractTables: false})
	require.True(t, without.Success)
	assert.Empty(t, without.Document.LineItems)
}

func TestIngestReleasesIDLocks(t *testing.T) {
	s := store.New()
	p := newTestPipeline(&fakeEmbedder{dim: 4}, s)

	raws := make([]types.RawDocument, 0, 20)
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("doc-%d", i)
		raws = append(raws, types.RawDocument{ID: id, Content: "body " + id})
		raws = append(raws, types.RawDocument{ID: id, Content: "revised body " + id})
	}
	p.IngestAll(context.Background(), raws, types.IngestOptions{})

	// No ingest in flight: the per-id lock map must be empty again.
	p.mu.Lock()
	remaining := len(p.locks)
	p.mu.Unlock()
	assert.Zero(t, remaining)
}

func TestIngestAllReportsPerDocument(t *testing.T) {
	s := store.New()
	p := newTestPipeline(&fakeEmbedder{dim: 4}, s)

	raws := []types.RawDocument{
		{ID: "d1", Content: "first document body"},
		{ID: "", Content: "missing id"},
		{ID: "d3", Content: "third document body"},
	}

	results := p.IngestAll(context.Background(), raws, types.IngestOptions{})

	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.True(t, results[2].Success)
	assert.Equal(t, 2, s.Count())
}
