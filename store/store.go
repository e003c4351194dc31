// Package store holds the normalized corpus and serves hybrid search over
// it. Ranking is in-process over the in-memory corpus; an optional persister
// keeps the corpus durable across restarts.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/trandvq/docsense/types"
)

var ErrNotFound = errors.New("document not found")

// Persister is the durable backend behind the in-memory corpus. Save and
// Delete must be atomic per document: either the whole document (with its
// sections) is written, or nothing is.
type Persister interface {
	SaveDocument(ctx context.Context, doc *types.NormalizedDocument) error
	DeleteDocument(ctx context.Context, id string) error
	LoadAll(ctx context.Context) ([]types.NormalizedDocument, error)
	Close() error
}

// RetrievalStore supports concurrent readers with exclusive per-document
// writers. Store fully replaces a prior document with the same id, sections
// included; it never merges.
type RetrievalStore struct {
	// writeMu serializes mutations end to end: the persister write and the
	// map update of one Store or Delete are never interleaved with another
	// mutation, so memory and the persister cannot disagree about a document.
	writeMu sync.Mutex
	mu      sync.RWMutex
	docs    map[string]*types.NormalizedDocument
	persist Persister
	weights Weights
}

type Option func(*RetrievalStore)

// WithPersister attaches a durable backend. Without one the store is
// memory-only, which the tests rely on.
func WithPersister(p Persister) Option {
	return func(s *RetrievalStore) { s.persist = p }
}

func WithWeights(w Weights) Option {
	return func(s *RetrievalStore) { s.weights = w }
}

func New(opts ...Option) *RetrievalStore {
	s := &RetrievalStore{
		docs:    make(map[string]*types.NormalizedDocument),
		weights: DefaultWeights(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load hydrates the in-memory corpus from the persister. Call once at start.
func (s *RetrievalStore) Load(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}

	docs, err := s.persist.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range docs {
		doc := docs[i]
		s.docs[doc.ID] = &doc
	}
	return nil
}

// Store replaces any prior version of the document wholesale. The persister
// write happens first; if it fails the in-memory corpus (and therefore every
// reader) keeps the previous version.
func (s *RetrievalStore) Store(ctx context.Context, doc types.NormalizedDocument) error {
	if doc.ID == "" {
		return errors.New("document id is empty")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.persist != nil {
		if err := s.persist.SaveDocument(ctx, &doc); err != nil {
			return fmt.Errorf("persist document %s: %w", doc.ID, err)
		}
	}

	s.mu.Lock()
	s.docs[doc.ID] = &doc
	s.mu.Unlock()
	return nil
}

func (s *RetrievalStore) Get(id string) (types.NormalizedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return types.NormalizedDocument{}, ErrNotFound
	}
	return *doc, nil
}

func (s *RetrievalStore) GetByType(t types.DocumentType) []types.NormalizedDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []types.NormalizedDocument
	for _, doc := range s.docs {
		if doc.Type == t {
			docs = append(docs, *doc)
		}
	}
	return docs
}

func (s *RetrievalStore) GetAll() []types.NormalizedDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]types.NormalizedDocument, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, *doc)
	}
	return docs
}

func (s *RetrievalStore) Delete(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	_, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	// Readers stay on s.mu only, so the persister delete does not block them.
	if s.persist != nil {
		if err := s.persist.DeleteDocument(ctx, id); err != nil {
			return fmt.Errorf("delete document %s: %w", id, err)
		}
	}

	s.mu.Lock()
	delete(s.docs, id)
	s.mu.Unlock()
	return nil
}

func (s *RetrievalStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Stats summarizes the corpus for listings and meta queries.
func (s *RetrievalStore) Stats() types.CorpusStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := types.CorpusStats{ByType: make(map[types.DocumentType]int)}
	for _, doc := range s.docs {
		stats.Documents++
		stats.Sections += len(doc.Sections)
		stats.ByType[doc.Type]++
		if doc.NeedsReview {
			stats.NeedsReview++
		}
	}
	return stats
}

func (s *RetrievalStore) Close() error {
	if s.persist == nil {
		return nil
	}
	return s.persist.Close()
}
