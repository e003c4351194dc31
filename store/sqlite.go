package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/trandvq/docsense/types"
)

// SQLiteStore persists the corpus in a local SQLite file. Embedding vectors
// are stored as little-endian float32 blobs; structured fields and line
// items as JSON columns.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ Persister = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the corpus database under dataDir.
func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "corpus.db")

	// WAL keeps concurrent readers cheap while the pipeline writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db, path: dbPath}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			type TEXT NOT NULL,
			fields TEXT NOT NULL,
			line_items TEXT,
			source_sample TEXT,
			confidence REAL NOT NULL,
			field_confidence TEXT,
			needs_review INTEGER NOT NULL DEFAULT 0,
			metadata TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sections (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			section_order INTEGER NOT NULL,
			embedding BLOB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sections_document ON sections(document_id)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(type)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveDocument writes the document and its sections in one transaction,
// replacing any prior version of the same id.
func (s *SQLiteStore) SaveDocument(ctx context.Context, doc *types.NormalizedDocument) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	fieldsJSON, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	itemsJSON, err := json.Marshal(doc.LineItems)
	if err != nil {
		return fmt.Errorf("marshal line items: %w", err)
	}
	fieldConfJSON, err := json.Marshal(doc.Confidence.Fields)
	if err != nil {
		return fmt.Errorf("marshal field confidence: %w", err)
	}
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, filename, type, fields, line_items, source_sample,
			confidence, field_confidence, needs_review, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			type = excluded.type,
			fields = excluded.fields,
			line_items = excluded.line_items,
			source_sample = excluded.source_sample,
			confidence = excluded.confidence,
			field_confidence = excluded.field_confidence,
			needs_review = excluded.needs_review,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, doc.ID, doc.Filename, string(doc.Type), string(fieldsJSON), string(itemsJSON),
		doc.SourceSample, doc.Confidence.Classification, string(fieldConfJSON),
		boolToInt(doc.NeedsReview), string(metadataJSON),
		doc.CreatedAt.UTC(), doc.UpdatedAt.UTC()); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM sections WHERE document_id = ?`, doc.ID); err != nil {
		return fmt.Errorf("clear sections: %w", err)
	}

	for i := range doc.Sections {
		section := &doc.Sections[i]
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO sections (id, document_id, content, section_order, embedding)
			VALUES (?, ?, ?, ?, ?)
		`, section.ID, doc.ID, section.Content, section.Order,
			float32SliceToBytes(section.Embedding)); err != nil {
			return fmt.Errorf("insert section %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// LoadAll reads the whole corpus, sections ordered within each document.
func (s *SQLiteStore) LoadAll(ctx context.Context) ([]types.NormalizedDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, type, fields, line_items, source_sample,
			confidence, field_confidence, needs_review, metadata, created_at, updated_at
		FROM documents
	`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []types.NormalizedDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	for i := range docs {
		sections, err := s.loadSections(ctx, docs[i].ID)
		if err != nil {
			return nil, err
		}
		docs[i].Sections = sections
	}
	return docs, nil
}

func (s *SQLiteStore) loadSections(ctx context.Context, docID string) ([]types.TextSection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, content, section_order, embedding
		FROM sections WHERE document_id = ? ORDER BY section_order
	`, docID)
	if err != nil {
		return nil, fmt.Errorf("query sections: %w", err)
	}
	defer rows.Close()

	var sections []types.TextSection
	for rows.Next() {
		var section types.TextSection
		var blob []byte
		if err := rows.Scan(&section.ID, &section.DocumentID, &section.Content,
			&section.Order, &blob); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		section.Embedding = bytesToFloat32Slice(blob)
		sections = append(sections, section)
	}
	return sections, rows.Err()
}

func scanDocument(rows *sql.Rows) (types.NormalizedDocument, error) {
	var doc types.NormalizedDocument
	var docType, fieldsJSON string
	var itemsJSON, fieldConfJSON, metadataJSON sql.NullString
	var needsReview int
	var createdAt, updatedAt time.Time

	if err := rows.Scan(&doc.ID, &doc.Filename, &docType, &fieldsJSON, &itemsJSON,
		&doc.SourceSample, &doc.Confidence.Classification, &fieldConfJSON,
		&needsReview, &metadataJSON, &createdAt, &updatedAt); err != nil {
		return doc, fmt.Errorf("scan document: %w", err)
	}

	doc.Type = types.DocumentType(docType)
	doc.NeedsReview = needsReview != 0
	doc.CreatedAt = createdAt
	doc.UpdatedAt = updatedAt

	if err := json.Unmarshal([]byte(fieldsJSON), &doc.Fields); err != nil {
		return doc, fmt.Errorf("unmarshal fields for %s: %w", doc.ID, err)
	}
	if itemsJSON.Valid && itemsJSON.String != "" && itemsJSON.String != "null" {
		if err := json.Unmarshal([]byte(itemsJSON.String), &doc.LineItems); err != nil {
			return doc, fmt.Errorf("unmarshal line items for %s: %w", doc.ID, err)
		}
	}
	if fieldConfJSON.Valid && fieldConfJSON.String != "" && fieldConfJSON.String != "null" {
		if err := json.Unmarshal([]byte(fieldConfJSON.String), &doc.Confidence.Fields); err != nil {
			return doc, fmt.Errorf("unmarshal field confidence for %s: %w", doc.ID, err)
		}
	}
	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &doc.Metadata); err != nil {
			return doc, fmt.Errorf("unmarshal metadata for %s: %w", doc.ID, err)
		}
	}
	return doc, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
