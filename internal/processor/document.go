package processor

import (
	"errors"
	"fmt"
	"log/slog"

	"commentary-rag/internal/bible"
	"commentary-rag/internal/models"

	"github.com/zeebo/xxh3"
)

// ErrMissingFilename is returned for a document without an identity
var ErrMissingFilename = errors.New("document has no filename")

// Options configures a Processor
type Options struct {
	ContextRadius  int    // characters kept on each side of a reference
	TitlePrefix    string // removed from document titles
	FilenamePrefix string // token commentary filenames start with
	Workers        int    // documents processed at once
	ProgressEvery  int    // log progress every N documents, 0 disables
	Logger         *slog.Logger
}

// Processor turns raw commentary documents into corpus records
type Processor struct {
	ContextRadius int
	TitlePrefix   string
	Workers       int
	ProgressEvery int

	filenames *FilenameParser
	logger    *slog.Logger
}

// DocumentCounts reports what happened to one document's anchors
type DocumentCounts struct {
	Anchors   int
	Dropped   int
	Unlocated int
}

// NewProcessor creates a new commentary processor
func NewProcessor(opts Options) *Processor {
	if opts.ContextRadius < 0 {
		opts.ContextRadius = DefaultContextRadius
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.FilenamePrefix == "" {
		opts.FilenamePrefix = DefaultFilenamePrefix
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Processor{
		ContextRadius: opts.ContextRadius,
		TitlePrefix:   opts.TitlePrefix,
		Workers:       opts.Workers,
		ProgressEvery: opts.ProgressEvery,
		filenames:     NewFilenameParser(opts.FilenamePrefix),
		logger:        opts.Logger,
	}
}

// ProcessDocument builds the record for one document. Unparseable passage
// tokens are dropped and references whose text cannot be found keep their
// raw display text as context; neither is an error. A panic while processing
// is returned as an error so the batch can skip the document.
func (p *Processor) ProcessDocument(raw models.RawDocument) (record *models.DocumentRecord, counts DocumentCounts, err error) {
	defer func() {
		if r := recover(); r != nil {
			record = nil
			counts = DocumentCounts{}
			err = fmt.Errorf("failed to process %s: %v", raw.Filename, r)
		}
	}()

	if raw.Filename == "" {
		return nil, counts, ErrMissingFilename
	}

	text := CleanText(raw.Markup)
	locator := NewLocator(text, p.ContextRadius)

	references := []models.Reference{}
	for _, anchor := range ScanAnchors(raw.Markup) {
		counts.Anchors++

		passage, parseErr := ParsePassage(anchor.Token)
		if parseErr != nil {
			counts.Dropped++
			p.logger.Debug("Dropping anchor", "file", raw.Filename, "token", anchor.Token, "error", parseErr)
			continue
		}

		context, found := locator.Context(anchor.Display)
		if !found {
			counts.Unlocated++
		}

		references = append(references, models.Reference{
			Ref:     *passage,
			Display: anchor.Display,
			Context: context,
		})
	}

	bookCode, chapter := p.filenames.Parse(raw.Filename)

	return &models.DocumentRecord{
		ID:         raw.Filename,
		Title:      ExtractTitle(raw.Markup, p.TitlePrefix),
		BookCode:   bookCode,
		Book:       bible.BookName(bookCode),
		Chapter:    chapter,
		Text:       text,
		References: references,
		Hash:       ContentHash(text),
	}, counts, nil
}

// ContentHash is the hex xxh3 hash stores use to detect changed documents
func ContentHash(text string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(text))
}
