package processor

import (
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"sync"

	"commentary-rag/internal/bible"
	"commentary-rag/internal/models"
)

// DefaultFilenamePrefix is the token commentary filenames start with (MHC19023.HTM)
const DefaultFilenamePrefix = "MHC"

// FilenameParser reads the book code and chapter number out of a commentary filename
type FilenameParser struct {
	pattern *regexp.Regexp
}

// NewFilenameParser expects names shaped <prefix><2-digit book><3-digit chapter>
func NewFilenameParser(prefix string) *FilenameParser {
	return &FilenameParser{
		pattern: regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `(\d{2})(\d{3})?`),
	}
}

// Parse returns the book code and chapter for name. A name without a book
// code yields bible.DefaultBookCode; one without a chapter yields 0.
func (f *FilenameParser) Parse(name string) (string, int) {
	match := f.pattern.FindStringSubmatch(filepath.Base(name))
	if match == nil {
		return bible.DefaultBookCode, 0
	}

	chapter := 0
	if match[2] != "" {
		chapter, _ = strconv.Atoi(match[2])
	}
	return match[1], chapter
}

// StructureBuilder accumulates the chapters seen for every book code. Add is
// safe for concurrent use; Build sorts and returns the result.
type StructureBuilder struct {
	mu       sync.Mutex
	chapters map[string]map[int]struct{}
}

// NewStructureBuilder creates an empty builder
func NewStructureBuilder() *StructureBuilder {
	return &StructureBuilder{
		chapters: make(map[string]map[int]struct{}),
	}
}

// Add records that a document for book code exists. Chapter 0 (unknown)
// registers the book without adding a chapter.
func (b *StructureBuilder) Add(code string, chapter int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.chapters[code]
	if !ok {
		set = make(map[int]struct{})
		b.chapters[code] = set
	}
	if chapter > 0 {
		set[chapter] = struct{}{}
	}
}

// AddFilename parses name with parser and records the result
func (b *StructureBuilder) AddFilename(parser *FilenameParser, name string) {
	b.Add(parser.Parse(name))
}

// Build returns one entry per book code with chapters ascending and unique
func (b *StructureBuilder) Build() map[string]models.BookStructureEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	structure := make(map[string]models.BookStructureEntry, len(b.chapters))
	for code, set := range b.chapters {
		chapters := make([]int, 0, len(set))
		for chapter := range set {
			chapters = append(chapters, chapter)
		}
		slices.Sort(chapters)

		structure[code] = models.BookStructureEntry{
			Name:     bible.BookName(code),
			Chapters: chapters,
		}
	}

	return structure
}
