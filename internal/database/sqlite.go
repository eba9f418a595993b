package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"commentary-rag/internal/models"

	"github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps a corpus in a single SQLite file with an FTS5 index over
// document text
type SQLiteStore struct {
	DB *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path. Use ":memory:" for
// a throwaway database.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// A single connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return &SQLiteStore{DB: db}, nil
}

// Initialize sets up the tables and the full-text index
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	statements := []struct {
		name string
		sql  string
	}{
		{"pragmas", `PRAGMA foreign_keys = ON`},
		{"index_runs table", `
			CREATE TABLE IF NOT EXISTS index_runs (
				run_id TEXT PRIMARY KEY,
				generated_at TEXT NOT NULL,
				documents INTEGER NOT NULL,
				skipped INTEGER NOT NULL,
				reference_count INTEGER NOT NULL,
				dropped INTEGER NOT NULL
			)`},
		{"documents table", `
			CREATE TABLE IF NOT EXISTS documents (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				book_code TEXT NOT NULL,
				book TEXT NOT NULL,
				chapter INTEGER NOT NULL,
				text TEXT NOT NULL,
				hash TEXT NOT NULL,
				run_id TEXT
			)`},
		{"passage_references table", `
			CREATE TABLE IF NOT EXISTS passage_references (
				document_id TEXT NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
				position INTEGER NOT NULL,
				book TEXT NOT NULL,
				chapter INTEGER NOT NULL,
				verses TEXT NOT NULL,
				display TEXT NOT NULL,
				raw_display TEXT NOT NULL,
				context TEXT NOT NULL,
				embedding TEXT,
				PRIMARY KEY (document_id, position)
			)`},
		{"book_structure table", `
			CREATE TABLE IF NOT EXISTS book_structure (
				book_code TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				chapters TEXT NOT NULL
			)`},
		{"reference indices", `
			CREATE INDEX IF NOT EXISTS passage_references_book_idx ON passage_references (book, chapter)`},
		{"full-text index", `
			CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(id UNINDEXED, title, text)`},
	}

	for _, stmt := range statements {
		if _, err := s.DB.ExecContext(ctx, stmt.sql); err != nil {
			return fmt.Errorf("failed to create %s: %w", stmt.name, err)
		}
	}

	return nil
}

// StoreCorpus replaces the stored corpus in one transaction
func (s *SQLiteStore) StoreCorpus(ctx context.Context, corpus *models.Corpus) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := s.storeCorpusTx(ctx, tx, corpus); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit corpus: %w", err)
	}
	return nil
}

func (s *SQLiteStore) storeCorpusTx(ctx context.Context, tx *sql.Tx, corpus *models.Corpus) error {
	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO index_runs (run_id, generated_at, documents, skipped, reference_count, dropped)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		corpus.RunID,
		corpus.GeneratedAt.Format(time.RFC3339),
		corpus.Stats.Documents,
		corpus.Stats.Skipped,
		corpus.Stats.References,
		corpus.Stats.Dropped)
	if err != nil {
		return fmt.Errorf("failed to record index run: %w", err)
	}

	for _, table := range []string{"passage_references", "documents_fts", "documents", "book_structure"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for i := range corpus.Documents {
		doc := &corpus.Documents[i]

		_, err := tx.ExecContext(ctx, `
			INSERT INTO documents (id, title, book_code, book, chapter, text, hash, run_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, doc.ID, doc.Title, doc.BookCode, doc.Book, doc.Chapter, doc.Text, doc.Hash, corpus.RunID)
		if err != nil {
			return fmt.Errorf("failed to store document %s: %w", doc.ID, err)
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO documents_fts (id, title, text) VALUES (?, ?, ?)`,
			doc.ID, doc.Title, doc.Text)
		if err != nil {
			return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
		}

		for pos, ref := range doc.References {
			embedding, err := embeddingJSON(ref.Embedding)
			if err != nil {
				return fmt.Errorf("failed to encode embedding %d of %s: %w", pos, doc.ID, err)
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO passage_references
					(document_id, position, book, chapter, verses, display, raw_display, context, embedding)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				doc.ID,
				pos,
				ref.Ref.Book,
				ref.Ref.Chapter,
				ref.Ref.Verses,
				ref.Ref.Display,
				ref.Display,
				ref.Context,
				embedding)
			if err != nil {
				return fmt.Errorf("failed to store reference %d of %s: %w", pos, doc.ID, err)
			}
		}
	}

	for _, code := range slices.Sorted(maps.Keys(corpus.BookStructure)) {
		entry := corpus.BookStructure[code]

		chapters, err := json.Marshal(entry.Chapters)
		if err != nil {
			return fmt.Errorf("failed to encode chapters for %s: %w", code, err)
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO book_structure (book_code, name, chapters) VALUES (?, ?, ?)`,
			code, entry.Name, string(chapters))
		if err != nil {
			return fmt.Errorf("failed to store book structure for %s: %w", code, err)
		}
	}

	return nil
}

// QueryReferences finds stored references to a passage
func (s *SQLiteStore) QueryReferences(ctx context.Context, q ReferenceQuery) ([]models.ReferenceHit, error) {
	rows, err := referenceSelect(q, squirrel.Question).RunWith(s.DB).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query references: %w", err)
	}
	defer rows.Close()

	var hits []models.ReferenceHit
	for rows.Next() {
		hit, err := scanReferenceHit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return hits, nil
}

// SearchText runs a full-text search over document titles and text. Every
// word of query must appear in a match.
func (s *SQLiteStore) SearchText(ctx context.Context, query string, limit int) ([]models.DocumentHit, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT d.id, d.title, d.book, d.chapter, snippet(documents_fts, 2, '', '', '…', 24)
		FROM documents_fts
		JOIN documents d ON d.id = documents_fts.id
		WHERE documents_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}
	defer rows.Close()

	var hits []models.DocumentHit
	for rows.Next() {
		var hit models.DocumentHit
		if err := rows.Scan(&hit.DocumentID, &hit.Title, &hit.Book, &hit.Chapter, &hit.Snippet); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return hits, nil
}

// GetBooks retrieves the stored book structure
func (s *SQLiteStore) GetBooks(ctx context.Context) (map[string]models.BookStructureEntry, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT book_code, name, chapters FROM book_structure ORDER BY book_code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query book structure: %w", err)
	}
	defer rows.Close()

	books := make(map[string]models.BookStructureEntry)
	for rows.Next() {
		var code, chapters string
		var entry models.BookStructureEntry
		if err := rows.Scan(&code, &entry.Name, &chapters); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		if err := json.Unmarshal([]byte(chapters), &entry.Chapters); err != nil {
			return nil, fmt.Errorf("failed to decode chapters for %s: %w", code, err)
		}
		books[code] = entry
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	if len(books) == 0 {
		return nil, ErrNoCorpus
	}

	return books, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.DB.Close()
}

func embeddingJSON(embedding []float64) (any, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(embedding)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// ftsQuery quotes every word so punctuation in a question is not read as
// FTS5 query syntax
func ftsQuery(query string) string {
	words := strings.Fields(query)
	for i, w := range words {
		words[i] = `"` + strings.ReplaceAll(w, `"`, `""`) + `"`
	}
	return strings.Join(words, " ")
}
