package models

import "time"

// RawDocument is one commentary file as read from disk
type RawDocument struct {
	Filename string `json:"filename"`
	Markup   string `json:"-"`
}

// ParsedPassage is a passage token normalized to a canonical book
type ParsedPassage struct {
	Book    string `json:"book"`
	Chapter int    `json:"chapter"`
	Verses  string `json:"verses"`  // Unparsed verse expression (e.g. "1-3", "4,6"), may be empty
	Display string `json:"display"` // "<book> <chapter>[:<verses>]"
}

// Reference is an outgoing cross-reference found in a document
type Reference struct {
	Ref       ParsedPassage `json:"ref"`
	Display   string        `json:"display"` // Raw anchor text, may contain markup
	Context   string        `json:"context"`
	Embedding []float64     `json:"embedding,omitempty"`
}

// DocumentRecord is the normalized, per-chapter unit of the corpus
type DocumentRecord struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	BookCode   string      `json:"book_code"`
	Book       string      `json:"book"`
	Chapter    int         `json:"chapter"` // 0 when the filename carries no chapter
	Text       string      `json:"text"`
	References []Reference `json:"references"`
	Hash       string      `json:"hash,omitempty"` // xxh3 of Text
}

// BookStructureEntry lists the chapters present for one book code
type BookStructureEntry struct {
	Name     string `json:"name"`
	Chapters []int  `json:"chapters"`
}

// Stats counts what happened during a corpus build
type Stats struct {
	Documents  int `json:"documents"`
	Skipped    int `json:"skipped"`
	References int `json:"references"`
	Dropped    int `json:"dropped"`   // anchors whose passage token did not parse
	Unlocated  int `json:"unlocated"` // references whose display text was not found
}

// Corpus is the terminal output of the pipeline
type Corpus struct {
	RunID         string                        `json:"run_id,omitempty"`
	GeneratedAt   time.Time                     `json:"generated_at"`
	Books         map[string]string             `json:"books"`
	BookStructure map[string]BookStructureEntry `json:"bookStructure"`
	Documents     []DocumentRecord              `json:"documents"`
	Stats         Stats                         `json:"stats"`
}

// ReferenceHit is a stored reference joined with the document it came from
type ReferenceHit struct {
	DocumentID    string        `json:"document_id"`
	DocumentTitle string        `json:"document_title"`
	SourceBook    string        `json:"source_book"`
	SourceChapter int           `json:"source_chapter"`
	Ref           ParsedPassage `json:"ref"`
	Context       string        `json:"context"`
}

// Response represents the response from the LLM
type Response struct {
	Answer    string         `json:"answer"`
	Sources   []ReferenceHit `json:"sources"`
	Timestamp string         `json:"timestamp"`
}

// DocumentHit is a full-text match against stored document text
type DocumentHit struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	Book       string `json:"book"`
	Chapter    int    `json:"chapter"`
	Snippet    string `json:"snippet"`
}
