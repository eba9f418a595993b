// Package database persists corpora and answers reference lookups from them.
package database

import (
	"context"
	"errors"

	"commentary-rag/internal/models"

	"github.com/Masterminds/squirrel"
)

// ErrNoCorpus is returned when a store is queried before a corpus was stored
var ErrNoCorpus = errors.New("no corpus stored")

// CorpusStore persists a built corpus
type CorpusStore interface {
	Initialize(ctx context.Context) error
	StoreCorpus(ctx context.Context, corpus *models.Corpus) error
	Close() error
}

// ReferenceSource answers passage lookups for the QA tool
type ReferenceSource interface {
	QueryReferences(ctx context.Context, q ReferenceQuery) ([]models.ReferenceHit, error)
	GetBooks(ctx context.Context) (map[string]models.BookStructureEntry, error)
}

// ReferenceQuery filters stored references. Zero values match everything.
type ReferenceQuery struct {
	Book       string // canonical name of the referenced book
	Chapter    int    // referenced chapter
	SourceBook string // book of the commentary document the reference appears in
	Limit      int
}

// Matches reports whether hit satisfies the filters
func (q ReferenceQuery) Matches(hit models.ReferenceHit) bool {
	if q.Book != "" && hit.Ref.Book != q.Book {
		return false
	}
	if q.Chapter > 0 && hit.Ref.Chapter != q.Chapter {
		return false
	}
	if q.SourceBook != "" && hit.SourceBook != q.SourceBook {
		return false
	}
	return true
}

// referenceSelect builds the reference lookup shared by the SQL stores
func referenceSelect(q ReferenceQuery, placeholder squirrel.PlaceholderFormat) squirrel.SelectBuilder {
	query := squirrel.StatementBuilder.PlaceholderFormat(placeholder).
		Select(
			"d.id", "d.title", "d.book", "d.chapter",
			"r.book", "r.chapter", "r.verses", "r.display", "r.context",
		).
		From("passage_references r").
		Join("documents d ON d.id = r.document_id").
		OrderBy("d.id", "r.position")

	if q.Book != "" {
		query = query.Where(squirrel.Eq{"r.book": q.Book})
	}
	if q.Chapter > 0 {
		query = query.Where(squirrel.Eq{"r.chapter": q.Chapter})
	}
	if q.SourceBook != "" {
		query = query.Where(squirrel.Eq{"d.book": q.SourceBook})
	}
	if q.Limit > 0 {
		query = query.Limit(uint64(q.Limit))
	}

	return query
}

// rowScanner is the Scan method shared by pgx.Rows and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanReferenceHit(row rowScanner) (models.ReferenceHit, error) {
	var hit models.ReferenceHit
	err := row.Scan(
		&hit.DocumentID,
		&hit.DocumentTitle,
		&hit.SourceBook,
		&hit.SourceChapter,
		&hit.Ref.Book,
		&hit.Ref.Chapter,
		&hit.Ref.Verses,
		&hit.Ref.Display,
		&hit.Context,
	)
	return hit, err
}
