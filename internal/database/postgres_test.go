package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"commentary-rag/internal/models"

	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return &PostgresStore{Pool: mock, Dimensions: 2}, mock
}

func testCorpus() *models.Corpus {
	return &models.Corpus{
		RunID:       "6f1c7b8e-3d2a-4c1b-9a0e-5f4d3c2b1a00",
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		BookStructure: map[string]models.BookStructureEntry{
			"43": {Name: "John", Chapters: []int{10}},
			"19": {Name: "Psalms", Chapters: []int{1, 23}},
		},
		Documents: []models.DocumentRecord{{
			ID:       "MHC19023.HTM",
			Title:    "Psalms 23",
			BookCode: "19",
			Book:     "Psalms",
			Chapter:  23,
			Text:     "The Lord is my shepherd. Compare John 10:11.",
			Hash:     "00000000deadbeef",
			References: []models.Reference{{
				Ref:       models.ParsedPassage{Book: "John", Chapter: 10, Verses: "11", Display: "John 10:11"},
				Display:   "John 10:11",
				Context:   "Compare John 10:11.",
				Embedding: []float64{0.5, 0.25},
			}},
		}},
		Stats: models.Stats{Documents: 1, References: 1},
	}
}

func TestPostgresStore_Initialize(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`CREATE EXTENSION IF NOT EXISTS vector`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS index_runs`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS documents`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`embedding vector\(2\)`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS book_structure`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS passage_references_book_idx`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, store.Initialize(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InitializeError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`CREATE EXTENSION`).WillReturnError(errors.New("permission denied"))

	err := store.Initialize(context.Background())
	assert.ErrorContains(t, err, "vector extension")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_StoreCorpus(t *testing.T) {
	store, mock := newMockStore(t)
	corpus := testCorpus()
	doc := corpus.Documents[0]

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO index_runs`).
		WithArgs(corpus.RunID, corpus.GeneratedAt, 1, 0, 1, 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM documents WHERE id <> ALL\(\$1\)`).
		WithArgs([]string{doc.ID}).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs(doc.ID, doc.Title, doc.BookCode, doc.Book, doc.Chapter, doc.Text, doc.Hash, corpus.RunID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM passage_references`).
		WithArgs(doc.ID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO passage_references`).
		WithArgs(doc.ID, 0, "John", 10, "11", "John 10:11", "John 10:11", "Compare John 10:11.", "[0.5,0.25]").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM book_structure`).WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`INSERT INTO book_structure`).
		WithArgs("19", "Psalms", []int{1, 23}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO book_structure`).
		WithArgs("43", "John", []int{10}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, store.StoreCorpus(context.Background(), corpus))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_StoreCorpusEmptyRemovesEverything(t *testing.T) {
	store, mock := newMockStore(t)
	corpus := testCorpus()
	corpus.Documents = nil
	corpus.BookStructure = nil

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO index_runs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM documents WHERE id <> ALL`).
		WithArgs([]string{}).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM book_structure`).WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCommit()

	require.NoError(t, store.StoreCorpus(context.Background(), corpus))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_StoreCorpusRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	corpus := testCorpus()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO index_runs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM documents`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.StoreCorpus(context.Background(), corpus)
	assert.ErrorContains(t, err, "MHC19023.HTM")
	assert.NoError(t, mock.ExpectationsWereMet())
}

var hitColumns = []string{"id", "title", "book", "chapter", "book", "chapter", "verses", "display", "context"}

func TestPostgresStore_QueryReferences(t *testing.T) {
	tests := []struct {
		name  string
		query ReferenceQuery
		sql   string
		args  []any
	}{
		{
			name:  "book and chapter",
			query: ReferenceQuery{Book: "Psalms", Chapter: 23, Limit: 5},
			sql:   `FROM passage_references r JOIN documents d ON d\.id = r\.document_id WHERE r\.book = \$1 AND r\.chapter = \$2 ORDER BY d\.id, r\.position LIMIT 5`,
			args:  []any{"Psalms", 23},
		},
		{
			name:  "source book only",
			query: ReferenceQuery{SourceBook: "Matthew"},
			sql:   `WHERE d\.book = \$1 ORDER BY d\.id, r\.position$`,
			args:  []any{"Matthew"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)

			rows := pgxmock.NewRows(hitColumns).
				AddRow("MHC40005.HTM", "Matthew 5", "Matthew", 5, "Psalms", 23, "1", "Psalms 23:1", "…the Lord is my shepherd…")
			mock.ExpectQuery(tt.sql).WithArgs(tt.args...).WillReturnRows(rows)

			hits, err := store.QueryReferences(context.Background(), tt.query)
			require.NoError(t, err)
			require.Len(t, hits, 1)

			assert.Equal(t, models.ReferenceHit{
				DocumentID:    "MHC40005.HTM",
				DocumentTitle: "Matthew 5",
				SourceBook:    "Matthew",
				SourceChapter: 5,
				Ref:           models.ParsedPassage{Book: "Psalms", Chapter: 23, Verses: "1", Display: "Psalms 23:1"},
				Context:       "…the Lord is my shepherd…",
			}, hits[0])
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresStore_QuerySimilar(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`ORDER BY r\.embedding <=> \$1::vector`).
		WithArgs("[1,0.5]", 3).
		WillReturnRows(pgxmock.NewRows(hitColumns))

	hits, err := store.QuerySimilar(context.Background(), []float64{1, 0.5}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetBooks(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT book_code, name, chapters FROM book_structure`).
		WillReturnRows(pgxmock.NewRows([]string{"book_code", "name", "chapters"}).
			AddRow("19", "Psalms", []int{1, 23}))

	books, err := store.GetBooks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]models.BookStructureEntry{
		"19": {Name: "Psalms", Chapters: []int{1, 23}},
	}, books)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetBooksEmpty(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM book_structure`).
		WillReturnRows(pgxmock.NewRows([]string{"book_code", "name", "chapters"}))

	_, err := store.GetBooks(context.Background())
	assert.ErrorIs(t, err, ErrNoCorpus)
}

func TestVectorLiteral(t *testing.T) {
	assert.Nil(t, vectorLiteral(nil))
	assert.Equal(t, "[0.1,-2,3e-08]", vectorLiteral([]float64{0.1, -2, 3e-8}))
}
