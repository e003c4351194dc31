package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trandvq/docsense/types"
)

func TestStoreReplacesPriorSections(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, testDoc("d1", "a.txt", time.Now(),
		types.TextSection{ID: "old-1", Order: 0, Content: "obsolete banana text"},
		types.TextSection{ID: "old-2", Order: 1, Content: "more obsolete banana text"},
	)))
	require.NoError(t, s.Store(ctx, testDoc("d1", "a.txt", time.Now(),
		types.TextSection{ID: "new-1", Order: 0, Content: "fresh banana text"},
	)))

	doc, err := s.Get("d1")
	require.NoError(t, err)
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "new-1", doc.Sections[0].ID)

	// No orphaned sections remain retrievable.
	for _, hit := range s.Search("banana", nil, Filters{}, 10) {
		assert.Equal(t, "new-1", hit.Section.ID)
	}
}

func TestGetNotFound(t *testing.T) {
	s := New()
	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetByTypeAndStats(t *testing.T) {
	s := New()
	ctx := context.Background()

	inv := testDoc("d1", "inv.pdf", time.Now(), types.TextSection{ID: "s1", Order: 0, Content: "x"})
	inv.Type = types.DocTypeInvoice
	inv.NeedsReview = true
	require.NoError(t, s.Store(ctx, inv))
	require.NoError(t, s.Store(ctx, testDoc("d2", "b.txt", time.Now(),
		types.TextSection{ID: "s2", Order: 0, Content: "y"})))

	assert.Len(t, s.GetByType(types.DocTypeInvoice), 1)
	assert.Len(t, s.GetAll(), 2)

	stats := s.Stats()
	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 2, stats.Sections)
	assert.Equal(t, 1, stats.NeedsReview)
	assert.Equal(t, 1, stats.ByType[types.DocTypeInvoice])
}

func TestDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, testDoc("d1", "a.txt", time.Now(),
		types.TextSection{ID: "s1", Order: 0, Content: "x"})))
	require.NoError(t, s.Delete(ctx, "d1"))

	_, err := s.Get("d1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "d1"), ErrNotFound)
}

// gatedPersister blocks inside SaveDocument until released, exposing the
// window between a persister write and the in-memory map update.
type gatedPersister struct {
	mu      sync.Mutex
	saved   map[string]bool
	entered chan struct{}
	release chan struct{}
}

func newGatedPersister() *gatedPersister {
	return &gatedPersister{
		saved:   make(map[string]bool),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (g *gatedPersister) SaveDocument(_ context.Context, doc *types.NormalizedDocument) error {
	g.entered <- struct{}{}
	<-g.release
	g.mu.Lock()
	g.saved[doc.ID] = true
	g.mu.Unlock()
	return nil
}

func (g *gatedPersister) DeleteDocument(_ context.Context, id string) error {
	g.mu.Lock()
	delete(g.saved, id)
	g.mu.Unlock()
	return nil
}

func (g *gatedPersister) LoadAll(context.Context) ([]types.NormalizedDocument, error) {
	return nil, nil
}

func (g *gatedPersister) Close() error { return nil }

func (g *gatedPersister) has(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.saved[id]
}

func TestStoreAndDeleteDoNotInterleave(t *testing.T) {
	persist := newGatedPersister()
	s := New(WithPersister(persist))
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.Store(ctx, testDoc("d1", "a.txt", time.Now(),
			types.TextSection{ID: "s1", Order: 0, Content: "x"})))
	}()

	// Wait until Store is inside the persister write, then race a delete
	// against it.
	<-persist.entered
	deleted := make(chan error, 1)
	go func() {
		defer wg.Done()
		deleted <- s.Delete(ctx, "d1")
	}()
	close(persist.release)
	wg.Wait()

	// Whichever order wins, memory and the persister must agree.
	_, err := s.Get("d1")
	if <-deleted == nil {
		assert.ErrorIs(t, err, ErrNotFound)
		assert.False(t, persist.has("d1"))
	} else {
		require.NoError(t, err)
		assert.True(t, persist.has("d1"))
	}
}

func TestSQLitePersistRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	persist, err := NewSQLiteStore(dir)
	require.NoError(t, err)

	doc := testDoc("d1", "report_q1.txt", time.Now().Truncate(time.Second),
		types.TextSection{ID: "s1", Order: 0, Content: "first", Embedding: []float32{0.1, 0.2}},
		types.TextSection{ID: "s2", Order: 1, Content: "second"},
	)
	doc.Type = types.DocTypeReport
	doc.Fields = map[string]string{"title": "Q1 Report"}
	doc.Confidence = types.Confidence{Classification: 0.8, Fields: map[string]float64{"title": 0.6}}
	doc.NeedsReview = true

	require.NoError(t, persist.SaveDocument(ctx, &doc))
	require.NoError(t, persist.Close())

	// Reopen and load through a fresh retrieval store.
	persist, err = NewSQLiteStore(dir)
	require.NoError(t, err)
	defer persist.Close()

	s := New(WithPersister(persist))
	require.NoError(t, s.Load(ctx))

	loaded, err := s.Get("d1")
	require.NoError(t, err)
	assert.Equal(t, types.DocTypeReport, loaded.Type)
	assert.Equal(t, "Q1 Report", loaded.Fields["title"])
	assert.True(t, loaded.NeedsReview)
	require.Len(t, loaded.Sections, 2)
	assert.Equal(t, "s1", loaded.Sections[0].ID)
	assert.InDelta(t, 0.2, float64(loaded.Sections[0].Embedding[1]), 1e-6)
	assert.Nil(t, loaded.Sections[1].Embedding)
}

func TestSQLiteSaveReplacesSections(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	persist, err := NewSQLiteStore(dir)
	require.NoError(t, err)
	defer persist.Close()

	doc := testDoc("d1", "a.txt", time.Now(),
		types.TextSection{ID: "s1", Order: 0, Content: "one"},
		types.TextSection{ID: "s2", Order: 1, Content: "two"},
	)
	require.NoError(t, persist.SaveDocument(ctx, &doc))

	doc.Sections = []types.TextSection{{ID: "s3", DocumentID: "d1", Order: 0, Content: "three"}}
	require.NoError(t, persist.SaveDocument(ctx, &doc))

	docs, err := persist.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Len(t, docs[0].Sections, 1)
	assert.Equal(t, "s3", docs[0].Sections[0].ID)
}
