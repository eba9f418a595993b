package database

import (
	"context"
	"maps"

	"commentary-rag/internal/models"
)

// MemoryStore answers reference lookups from a corpus file loaded in memory,
// for use without a database
type MemoryStore struct {
	corpus *models.Corpus
}

// NewMemoryStore wraps corpus
func NewMemoryStore(corpus *models.Corpus) *MemoryStore {
	return &MemoryStore{corpus: corpus}
}

// QueryReferences scans every reference in document order
func (m *MemoryStore) QueryReferences(_ context.Context, q ReferenceQuery) ([]models.ReferenceHit, error) {
	if m.corpus == nil {
		return nil, ErrNoCorpus
	}

	var hits []models.ReferenceHit
	for _, doc := range m.corpus.Documents {
		for _, ref := range doc.References {
			hit := models.ReferenceHit{
				DocumentID:    doc.ID,
				DocumentTitle: doc.Title,
				SourceBook:    doc.Book,
				SourceChapter: doc.Chapter,
				Ref:           ref.Ref,
				Context:       ref.Context,
			}
			if !q.Matches(hit) {
				continue
			}

			hits = append(hits, hit)
			if q.Limit > 0 && len(hits) == q.Limit {
				return hits, nil
			}
		}
	}

	return hits, nil
}

// GetBooks returns the corpus book structure
func (m *MemoryStore) GetBooks(_ context.Context) (map[string]models.BookStructureEntry, error) {
	if m.corpus == nil || len(m.corpus.BookStructure) == 0 {
		return nil, ErrNoCorpus
	}
	return maps.Clone(m.corpus.BookStructure), nil
}
