// Package pipeline orchestrates document ingestion: classification, optional
// table extraction, embedding, schema validation and the review decision,
// ending with an atomic handoff to the retrieval store.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/trandvq/docsense/normalizer"
	"github.com/trandvq/docsense/types"
)

const DefaultReviewThreshold = 0.6

// Embedder turns section texts into fixed-length vectors. Implementations
// own batching, retries and dimension validation; an error returned here is
// already past the retry budget.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// DocumentStore receives the finished document. Store must replace any prior
// version of the same id atomically.
type DocumentStore interface {
	Store(ctx context.Context, doc types.NormalizedDocument) error
}

type Config struct {
	MaxChunkSize    int
	ChunkOverlap    int
	ReviewThreshold float64
	Workers         int
	ExtractTables   bool
}

type Pipeline struct {
	normalizer *normalizer.Normalizer
	embedder   Embedder
	docs       DocumentStore
	logger     *log.Logger
	cfg        Config

	// mu guards locks; each entry serializes store writes for one id so
	// concurrent re-ingestion of the same document cannot interleave.
	// Entries are reference counted and removed when the last holder
	// releases, so the map stays bounded by in-flight ingests.
	mu    sync.Mutex
	locks map[string]*idLock
}

type idLock struct {
	mu   sync.Mutex
	refs int
}

func New(embedder Embedder, docs DocumentStore, cfg Config, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = DefaultMaxChunkSize
	}
	if cfg.ReviewThreshold <= 0 {
		cfg.ReviewThreshold = DefaultReviewThreshold
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}

	return &Pipeline{
		// Table extraction is a pipeline stage so it can be controlled per
		// request; the normalizer is constructed with it off.
		normalizer: normalizer.New(normalizer.WithTableExtraction(false)),
		embedder:   embedder,
		docs:       docs,
		logger:     logger,
		cfg:        cfg,
		locks:      make(map[string]*idLock),
	}
}

// Ingest runs one document through the full pipeline. Stages run strictly in
// order; the returned result is always structured, never a panic or a bare
// error for expected failure modes.
func (p *Pipeline) Ingest(ctx context.Context, raw types.RawDocument, opts types.IngestOptions) types.IngestResult {
	if raw.ID == "" {
		return types.IngestResult{Success: false, Stage: types.StageFailed, Error: "document id is empty"}
	}

	// Received -> Classified: never fails, malformed content degrades to
	// generic with zero confidence.
	doc := p.normalizer.Normalize(raw)

	// Classified -> TableExtracted: only for types where line items mean
	// something, and only when requested.
	if opts.ExtractTables && doc.Type.SupportsLineItems() && raw.Buffer != "" {
		doc.LineItems = normalizer.ExtractLineItems(raw.Buffer)
	}

	// -> Embedded: chunk and embed. Embeddings are not optional once
	// requested; adapter exhaustion is a hard failure.
	sections := SplitSections(doc.ID, raw.Content, p.cfg.MaxChunkSize, p.cfg.ChunkOverlap)
	if len(sections) > 0 {
		texts := make([]string, len(sections))
		for i := range sections {
			texts[i] = sections[i].Content
		}

		vectors, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			p.logger.Printf("ingest %s: embedding failed: %v", raw.ID, err)
			return types.IngestResult{
				Success: false,
				Stage:   types.StageFailed,
				Error:   fmt.Sprintf("embed sections: %v", err),
			}
		}
		if len(vectors) != len(sections) {
			return types.IngestResult{
				Success: false,
				Stage:   types.StageFailed,
				Error:   fmt.Sprintf("embedding count mismatch: %d sections, %d vectors", len(sections), len(vectors)),
			}
		}
		for i := range sections {
			sections[i].Embedding = vectors[i]
		}
	}
	doc.Sections = sections

	// -> Validated: warnings and errors both feed the review decision,
	// neither blocks storage.
	report := Validate(&doc)
	doc.NeedsReview = doc.Confidence.Classification < p.cfg.ReviewThreshold || !report.Clean()

	// -> Stored | NeedsReview: both branches persist. The per-id lock keeps
	// concurrent re-ingestions of the same document from interleaving.
	lock := p.acquire(doc.ID)
	err := p.docs.Store(ctx, doc)
	p.release(doc.ID, lock)
	if err != nil {
		p.logger.Printf("ingest %s: store failed: %v", raw.ID, err)
		return types.IngestResult{
			Success: false,
			Stage:   types.StageFailed,
			Error:   fmt.Sprintf("store document: %v", err),
		}
	}

	stage := types.StageStored
	if doc.NeedsReview {
		stage = types.StageNeedsReview
	}

	return types.IngestResult{
		Success:     true,
		Document:    &doc,
		NeedsReview: doc.NeedsReview,
		Stage:       stage,
		Warnings:    report.All(),
	}
}

// IngestAll processes documents concurrently through a bounded worker pool.
// Results come back in input order; one document's failure never blocks the
// others.
func (p *Pipeline) IngestAll(ctx context.Context, raws []types.RawDocument, opts types.IngestOptions) []types.IngestResult {
	results := make([]types.IngestResult, len(raws))
	sem := make(chan struct{}, p.cfg.Workers)

	var wg sync.WaitGroup
	for i := range raws {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = p.Ingest(ctx, raws[i], opts)
		}(i)
	}
	wg.Wait()

	return results
}

func (p *Pipeline) acquire(id string) *idLock {
	p.mu.Lock()
	lock, ok := p.locks[id]
	if !ok {
		lock = &idLock{}
		p.locks[id] = lock
	}
	lock.refs++
	p.mu.Unlock()

	lock.mu.Lock()
	return lock
}

func (p *Pipeline) release(id string, lock *idLock) {
	lock.mu.Unlock()

	p.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(p.locks, id)
	}
	p.mu.Unlock()
}
