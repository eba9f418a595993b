package processor

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"commentary-rag/internal/bible"
	"commentary-rag/internal/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// BuildCorpus processes every document and assembles the corpus. Documents
// are handled in filename order, up to Workers at a time; a document that
// fails is logged and skipped, and counts nothing but Skipped. The book
// structure is built from all input filenames. The returned error is non-nil only when ctx
// is cancelled.
func (p *Processor) BuildCorpus(ctx context.Context, docs []models.RawDocument) (*models.Corpus, error) {
	sorted := slices.Clone(docs)
	slices.SortFunc(sorted, func(a, b models.RawDocument) int {
		return strings.Compare(a.Filename, b.Filename)
	})

	total := len(sorted)
	records := make([]*models.DocumentRecord, total)
	// The directory covers every named input file, processed or not
	structure := NewStructureBuilder()
	for _, raw := range sorted {
		if raw.Filename != "" {
			structure.AddFilename(p.filenames, raw.Filename)
		}
	}

	var processed, skipped, references, dropped, unlocated atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers)

	for i, raw := range sorted {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}

			record, counts, err := p.ProcessDocument(raw)
			if err != nil {
				skipped.Add(1)
				p.logger.Warn("Error processing document", "file", raw.Filename, "error", err)
				return nil
			}

			records[i] = record
			references.Add(int64(len(record.References)))
			dropped.Add(int64(counts.Dropped))
			unlocated.Add(int64(counts.Unlocated))

			n := processed.Add(1)
			if p.ProgressEvery > 0 && n%int64(p.ProgressEvery) == 0 {
				p.logger.Info(fmt.Sprintf("Processed %d/%d files...", n, total))
			}
			return nil
		})
	}

	// Workers never return errors; failures are counted as skipped
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("corpus build interrupted: %w", err)
	}

	documents := make([]models.DocumentRecord, 0, total)
	for _, record := range records {
		if record != nil {
			documents = append(documents, *record)
		}
	}

	return &models.Corpus{
		RunID:         uuid.NewString(),
		GeneratedAt:   time.Now().UTC(),
		Books:         bible.Books(),
		BookStructure: structure.Build(),
		Documents:     documents,
		Stats: models.Stats{
			Documents:  int(processed.Load()),
			Skipped:    int(skipped.Load()),
			References: int(references.Load()),
			Dropped:    int(dropped.Load()),
			Unlocated:  int(unlocated.Load()),
		},
	}, nil
}
