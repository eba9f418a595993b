package database

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"commentary-rag/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the subset of *pgxpool.Pool the store uses
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore keeps corpora in PostgreSQL, with reference context
// embeddings in a pgvector column
type PostgresStore struct {
	Pool       Pool
	Dimensions int
}

// NewPostgresStore creates a new database connection
func NewPostgresStore(ctx context.Context, connStr string, maxConns int32, dimensions int) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{Pool: pool, Dimensions: dimensions}, nil
}

// Initialize sets up the database tables and indices
func (s *PostgresStore) Initialize(ctx context.Context) error {
	statements := []struct {
		name string
		sql  string
	}{
		{"vector extension", `CREATE EXTENSION IF NOT EXISTS vector`},
		{"index_runs table", `
			CREATE TABLE IF NOT EXISTS index_runs (
				run_id UUID PRIMARY KEY,
				generated_at TIMESTAMPTZ NOT NULL,
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
				run_id UUID REFERENCES index_runs (run_id)
			)`},
		{"passage_references table", fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS passage_references (
				document_id TEXT NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
				position INTEGER NOT NULL,
				book TEXT NOT NULL,
				chapter INTEGER NOT NULL,
				verses TEXT NOT NULL,
				display TEXT NOT NULL,
				raw_display TEXT NOT NULL,
				context TEXT NOT NULL,
				embedding vector(%d),
				PRIMARY KEY (document_id, position)
			)`, s.dimensions())},
		{"book_structure table", `
			CREATE TABLE IF NOT EXISTS book_structure (
				book_code TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				chapters INTEGER[] NOT NULL
			)`},
		{"reference indices", `
			CREATE INDEX IF NOT EXISTS passage_references_book_idx ON passage_references (book, chapter)`},
	}

	for _, stmt := range statements {
		if _, err := s.Pool.Exec(ctx, stmt.sql); err != nil {
			return fmt.Errorf("failed to create %s: %w", stmt.name, err)
		}
	}

	return nil
}

// StoreCorpus replaces the stored documents, references and book structure
// with corpus in one transaction
func (s *PostgresStore) StoreCorpus(ctx context.Context, corpus *models.Corpus) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := storeCorpusTx(ctx, tx, corpus); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit corpus: %w", err)
	}
	return nil
}

func storeCorpusTx(ctx context.Context, tx pgx.Tx, corpus *models.Corpus) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO index_runs (run_id, generated_at, documents, skipped, reference_count, dropped)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		corpus.RunID,
		corpus.GeneratedAt,
		corpus.Stats.Documents,
		corpus.Stats.Skipped,
		corpus.Stats.References,
		corpus.Stats.Dropped)
	if err != nil {
		return fmt.Errorf("failed to record index run: %w", err)
	}

	// Documents missing from this corpus take their references with them
	ids := make([]string, len(corpus.Documents))
	for i := range corpus.Documents {
		ids[i] = corpus.Documents[i].ID
	}
	if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE id <> ALL($1)`, ids); err != nil {
		return fmt.Errorf("failed to remove stale documents: %w", err)
	}

	for i := range corpus.Documents {
		doc := &corpus.Documents[i]

		_, err := tx.Exec(ctx, `
			INSERT INTO documents (id, title, book_code, book, chapter, text, hash, run_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title, book_code = EXCLUDED.book_code, book = EXCLUDED.book,
				chapter = EXCLUDED.chapter, text = EXCLUDED.text, hash = EXCLUDED.hash,
				run_id = EXCLUDED.run_id
		`, doc.ID, doc.Title, doc.BookCode, doc.Book, doc.Chapter, doc.Text, doc.Hash, corpus.RunID)
		if err != nil {
			return fmt.Errorf("failed to store document %s: %w", doc.ID, err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM passage_references WHERE document_id = $1`, doc.ID); err != nil {
			return fmt.Errorf("failed to clear references of %s: %w", doc.ID, err)
		}

		for pos, ref := range doc.References {
			_, err := tx.Exec(ctx, `
				INSERT INTO passage_references
					(document_id, position, book, chapter, verses, display, raw_display, context, embedding)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::vector)
			`,
				doc.ID,
				pos,
				ref.Ref.Book,
				ref.Ref.Chapter,
				ref.Ref.Verses,
				ref.Ref.Display,
				ref.Display,
				ref.Context,
				vectorLiteral(ref.Embedding))
			if err != nil {
				return fmt.Errorf("failed to store reference %d of %s: %w", pos, doc.ID, err)
			}
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM book_structure`); err != nil {
		return fmt.Errorf("failed to clear book structure: %w", err)
	}
	for _, code := range slices.Sorted(maps.Keys(corpus.BookStructure)) {
		entry := corpus.BookStructure[code]
		_, err := tx.Exec(ctx, `
			INSERT INTO book_structure (book_code, name, chapters) VALUES ($1, $2, $3)
		`, code, entry.Name, entry.Chapters)
		if err != nil {
			return fmt.Errorf("failed to store book structure for %s: %w", code, err)
		}
	}

	return nil
}

// QueryReferences finds stored references to a passage
func (s *PostgresStore) QueryReferences(ctx context.Context, q ReferenceQuery) ([]models.ReferenceHit, error) {
	sql, args, err := referenceSelect(q, squirrel.Dollar).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build reference query: %w", err)
	}

	rows, err := s.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query references: %w", err)
	}
	return processRows(rows)
}

// QuerySimilar finds references whose context embedding is closest to embedding
func (s *PostgresStore) QuerySimilar(ctx context.Context, embedding []float64, limit int) ([]models.ReferenceHit, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT d.id, d.title, d.book, d.chapter, r.book, r.chapter, r.verses, r.display, r.context
		FROM passage_references r
		JOIN documents d ON d.id = r.document_id
		WHERE r.embedding IS NOT NULL
		ORDER BY r.embedding <=> $1::vector
		LIMIT $2
	`, vectorLiteral(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar references: %w", err)
	}
	return processRows(rows)
}

func processRows(rows pgx.Rows) ([]models.ReferenceHit, error) {
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

// GetBooks retrieves the stored book structure
func (s *PostgresStore) GetBooks(ctx context.Context) (map[string]models.BookStructureEntry, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT book_code, name, chapters FROM book_structure ORDER BY book_code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query book structure: %w", err)
	}
	defer rows.Close()

	books := make(map[string]models.BookStructureEntry)
	for rows.Next() {
		var code string
		var entry models.BookStructureEntry
		if err := rows.Scan(&code, &entry.Name, &entry.Chapters); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
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

// Close closes the database connection
func (s *PostgresStore) Close() error {
	s.Pool.Close()
	return nil
}

func (s *PostgresStore) dimensions() int {
	if s.Dimensions > 0 {
		return s.Dimensions
	}
	return 384
}

// vectorLiteral renders an embedding in pgvector's text form, or nil for
// references that were not embedded
func vectorLiteral(embedding []float64) any {
	if len(embedding) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}
