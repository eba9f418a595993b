package database

import (
	"context"
	"testing"

	"commentary-rag/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_QueryReferences(t *testing.T) {
	corpus := testCorpus()
	corpus.Documents = append(corpus.Documents, models.DocumentRecord{
		ID:      "MHC43010.HTM",
		Title:   "John 10",
		Book:    "John",
		Chapter: 10,
		References: []models.Reference{
			{Ref: models.ParsedPassage{Book: "Psalms", Chapter: 23, Display: "Psalms 23"}, Context: "The Lord is my shepherd"},
			{Ref: models.ParsedPassage{Book: "Ezekiel", Chapter: 34, Display: "Ezekiel 34"}, Context: "I will feed my flock"},
		},
	})
	store := NewMemoryStore(corpus)
	ctx := context.Background()

	hits, err := store.QueryReferences(ctx, ReferenceQuery{Book: "Psalms", Chapter: 23})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "MHC43010.HTM", hits[0].DocumentID)
	assert.Equal(t, "John", hits[0].SourceBook)

	hits, err = store.QueryReferences(ctx, ReferenceQuery{SourceBook: "John"})
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = store.QueryReferences(ctx, ReferenceQuery{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.Equal(t, "MHC19023.HTM", hits[0].DocumentID)
}

func TestMemoryStore_Empty(t *testing.T) {
	store := NewMemoryStore(nil)

	_, err := store.QueryReferences(context.Background(), ReferenceQuery{})
	assert.ErrorIs(t, err, ErrNoCorpus)

	_, err = store.GetBooks(context.Background())
	assert.ErrorIs(t, err, ErrNoCorpus)
}

func TestReferenceQueryMatches(t *testing.T) {
	hit := models.ReferenceHit{SourceBook: "Matthew", Ref: models.ParsedPassage{Book: "Isaiah", Chapter: 53}}

	assert.True(t, ReferenceQuery{}.Matches(hit))
	assert.True(t, ReferenceQuery{Book: "Isaiah", Chapter: 53, SourceBook: "Matthew"}.Matches(hit))
	assert.False(t, ReferenceQuery{Chapter: 52}.Matches(hit))
	assert.False(t, ReferenceQuery{SourceBook: "Mark"}.Matches(hit))
}
