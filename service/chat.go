package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/trandvq/docsense/pipeline"
	"github.com/trandvq/docsense/store"
	"github.com/trandvq/docsense/types"
)

const (
	defaultHistoryLimit    = 10
	defaultMinSimilarity   = 0.25
	defaultMaxContextChars = 6000
	defaultMaxReferences   = 5
	snippetLimit           = 200
)

// ChatEngine answers user queries over the stored corpus. It classifies the
// query intent, retrieves grounding sections for document queries, and
// always returns a structured response even when retrieval comes up empty.
type ChatEngine struct {
	store     *store.RetrievalStore
	embedder  pipeline.Embedder
	generator Generator

	historyLimit       int
	minSimilarity      float64
	maxContextChars    int
	maxReferences      int
	maxRetries         int
	disableSuggestions bool
}

type ChatEngineConfig struct {
	HistoryLimit    int
	MinSimilarity   float64
	MaxContextChars int
	MaxReferences   int
	MaxRetries      int
	// DisableSuggestions turns off the follow-up hint on low-confidence
	// answers; the zero value keeps suggestions on.
	DisableSuggestions bool
}

func NewChatEngine(st *store.RetrievalStore, embedder pipeline.Embedder, generator Generator, cfg ChatEngineConfig) *ChatEngine {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.MinSimilarity <= 0 {
		cfg.MinSimilarity = defaultMinSimilarity
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = defaultMaxContextChars
	}
	if cfg.MaxReferences <= 0 {
		cfg.MaxReferences = defaultMaxReferences
	}

	return &ChatEngine{
		store:              st,
		embedder:           embedder,
		generator:          generator,
		historyLimit:       cfg.HistoryLimit,
		minSimilarity:      cfg.MinSimilarity,
		maxContextChars:    cfg.MaxContextChars,
		maxReferences:      cfg.MaxReferences,
		maxRetries:         cfg.MaxRetries,
		disableSuggestions: cfg.DisableSuggestions,
	}
}

var (
	casualPatterns = []string{
		"hello", "hi there", "hey", "good morning", "good afternoon",
		"good evening", "how are you", "thanks", "thank you", "bye",
		"goodbye", "who are you", "what can you do",
	}
	metaPatterns = []string{
		"what documents", "which documents", "list my documents",
		"list documents", "how many documents", "what files",
		"which files", "what do you know about my", "corpus",
		"documents do i have", "files do i have", "documents are stored",
	}
	documentNouns = []string{
		"invoice", "contract", "report", "document", "file", "total",
		"amount", "date", "parties", "spreadsheet", "presentation",
		"letter", "agreement", "payment", "due",
	}
)

// ClassifyIntent decides whether a query needs retrieval. Document queries
// are the default whenever the corpus is non-empty and the query is not
// clearly conversational or about the corpus itself.
func (e *ChatEngine) ClassifyIntent(query string) types.QueryIntent {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return types.IntentCasualChat
	}

	for _, p := range metaPatterns {
		if strings.Contains(q, p) {
			return types.IntentMetaQuery
		}
	}

	mentionsDocuments := false
	for _, noun := range documentNouns {
		if strings.Contains(q, noun) {
			mentionsDocuments = true
			break
		}
	}
	if mentionsDocuments {
		return types.IntentDocumentQuery
	}

	for _, p := range casualPatterns {
		if strings.Contains(q, p) {
			return types.IntentCasualChat
		}
	}

	if e.store.Count() > 0 {
		return types.IntentDocumentQuery
	}
	return types.IntentCasualChat
}

// Answer handles one user turn.
func (e *ChatEngine) Answer(ctx context.Context, query types.ChatQuery) (*types.ChatResponse, error) {
	intent := e.ClassifyIntent(query.Query)
	history := e.capHistory(query.ConversationHistory)

	switch intent {
	case types.IntentCasualChat:
		return e.answerCasual(ctx, query.Query, history)
	case types.IntentMetaQuery:
		return e.answerMeta(), nil
	default:
		return e.answerDocument(ctx, query, history)
	}
}

func (e *ChatEngine) capHistory(history []types.Message) []types.Message {
	if len(history) <= e.historyLimit {
		return history
	}
	return history[len(history)-e.historyLimit:]
}

func (e *ChatEngine) answerCasual(ctx context.Context, query string, history []types.Message) (*types.ChatResponse, error) {
	start := time.Now()
	answer, err := generateWithRetry(ctx, e.maxRetries, func() (string, error) {
		return e.generator.Chat(ctx, query, history)
	})

	resp := &types.ChatResponse{
		Intent:       types.IntentCasualChat,
		Provenance:   []types.ProvenanceRef{},
		UsedChunkIDs: []string{},
		ModelMeta: types.ModelMeta{
			Model:     e.generator.Model(),
			LatencyMs: time.Since(start).Milliseconds(),
		},
	}
	if err != nil {
		resp.Answer = "I could not reach the language model. Please try again in a moment."
		resp.ModelMeta.Fallback = err.Error()
		resp.LowConfidence = true
		return resp, nil
	}

	resp.Answer = answer
	return resp, nil
}

// answerMeta answers from corpus metadata directly, no generation call.
func (e *ChatEngine) answerMeta() *types.ChatResponse {
	stats := e.store.Stats()
	docs := e.store.GetAll()
	sort.Slice(docs, func(i, j int) bool { return docs[i].Filename < docs[j].Filename })

	var b strings.Builder
	if stats.Documents == 0 {
		b.WriteString("Your corpus is empty. Ingest some documents and ask again.")
	} else {
		fmt.Fprintf(&b, "You have %d document(s) with %d section(s).", stats.Documents, stats.Sections)
		if stats.NeedsReview > 0 {
			fmt.Fprintf(&b, " %d flagged for review.", stats.NeedsReview)
		}
		b.WriteString("\n")
		for _, doc := range docs {
			fmt.Fprintf(&b, "- %s (%s)\n", doc.Filename, doc.Type)
		}
	}

	return &types.ChatResponse{
		Answer:       strings.TrimRight(b.String(), "\n"),
		Intent:       types.IntentMetaQuery,
		Provenance:   []types.ProvenanceRef{},
		UsedChunkIDs: []string{},
		ModelMeta:    types.ModelMeta{Model: "corpus-metadata"},
	}
}

func (e *ChatEngine) answerDocument(ctx context.Context, query types.ChatQuery, history []types.Message) (*types.ChatResponse, error) {
	resp := &types.ChatResponse{
		Intent:       types.IntentDocumentQuery,
		Provenance:   []types.ProvenanceRef{},
		UsedChunkIDs: []string{},
		ModelMeta:    types.ModelMeta{Model: e.generator.Model()},
	}

	var queryEmbedding []float32
	if e.embedder != nil {
		vectors, err := e.embedder.Embed(ctx, []string{query.Query})
		if err == nil && len(vectors) == 1 {
			queryEmbedding = vectors[0]
		} else if err != nil {
			// Lexical-only retrieval still works without a query vector.
			resp.ModelMeta.Fallback = "semantic scoring unavailable: " + err.Error()
		}
	}

	limit := query.Options.MaxReferences
	if limit <= 0 {
		limit = e.maxReferences
	}
	hits := e.store.Search(query.Query, queryEmbedding, store.Filters{}, limit)

	if len(hits) == 0 || hits[0].Combined < e.minSimilarity {
		resp.LowConfidence = true
		resp.Answer = "I could not find anything in your documents that clearly answers that."
		if !e.disableSuggestions {
			resp.SuggestedFollowUp = e.suggestFollowUp(query.Query)
		}
		return resp, nil
	}

	if query.Options.ComputeAggregates {
		texts := make([]string, 0, len(hits))
		for _, hit := range hits {
			texts = append(texts, hit.Section.Content)
		}
		resp.Stats = computeAggregates(texts)
	}

	used := e.buildContext(hits)
	prompt := e.buildPrompt(query.Query, used)

	for _, hit := range used {
		resp.Provenance = append(resp.Provenance, types.ProvenanceRef{
			SectionID:  hit.Section.ID,
			DocumentID: hit.DocumentID,
			Filename:   hit.Filename,
			Snippet:    snippet(hit.Section.Content),
			Similarity: hit.Combined,
		})
	}

	start := time.Now()
	answer, err := generateWithRetry(ctx, e.maxRetries, func() (string, error) {
		return e.generator.Chat(ctx, prompt, history)
	})
	resp.ModelMeta.LatencyMs = time.Since(start).Milliseconds()

	if err != nil {
		resp.Answer = "I found relevant passages but could not reach the language model. The cited sections may still help."
		resp.ModelMeta.Fallback = err.Error()
		resp.LowConfidence = true
		return resp, nil
	}

	resp.Answer = answer
	resp.UsedChunkIDs = citedSections(answer, used)
	return resp, nil
}

// buildContext keeps top hits until the snippet budget is spent. Always
// keeps at least one.
func (e *ChatEngine) buildContext(hits []store.ScoredSection) []store.ScoredSection {
	used := make([]store.ScoredSection, 0, len(hits))
	budget := e.maxContextChars
	for i, hit := range hits {
		cost := len(hit.Section.Content)
		if i > 0 && cost > budget {
			break
		}
		used = append(used, hit)
		budget -= cost
	}
	return used
}

func (e *ChatEngine) buildPrompt(query string, hits []store.ScoredSection) string {
	var b strings.Builder
	b.WriteString("Answer the question using only the document excerpts below. Cite excerpts by their number, e.g. [1].\n\n")
	for i, hit := range hits {
		fmt.Fprintf(&b, "[%d] (from %s)\n%s\n\n", i+1, hit.Filename, hit.Section.Content)
	}
	b.WriteString("Question: ")
	b.WriteString(query)
	return b.String()
}

var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// citedSections maps [n] citations in the answer back to section ids.
// When the answer carries no citations, every grounding section counts
// as used.
func citedSections(answer string, used []store.ScoredSection) []string {
	matches := citationPattern.FindAllStringSubmatch(answer, -1)
	if len(matches) == 0 {
		ids := make([]string, 0, len(used))
		for _, hit := range used {
			ids = append(ids, hit.Section.ID)
		}
		return ids
	}

	seen := make(map[string]bool)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 1 || idx > len(used) {
			continue
		}
		id := used[idx-1].Section.ID
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

func (e *ChatEngine) suggestFollowUp(query string) string {
	if e.store.Count() == 0 {
		return "Your corpus is empty. Would you like to ingest some documents first?"
	}
	return fmt.Sprintf("I couldn't match %q to your documents. Could you name the document or rephrase with more specific terms?", strings.TrimSpace(query))
}

func snippet(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= snippetLimit {
		return content
	}
	cut := content[:snippetLimit]
	if idx := strings.LastIndex(cut, " "); idx > snippetLimit/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}
