package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"commentary-rag/internal/database"
	"commentary-rag/internal/logging"
	"commentary-rag/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLLM struct {
	passage string
	hits    []models.ReferenceHit
}

func (s *stubLLM) Answer(_ context.Context, query, passage string, hits []models.ReferenceHit) (*models.Response, error) {
	s.passage = passage
	s.hits = hits
	return &models.Response{Answer: "He restores the soul.", Sources: hits}, nil
}

type stubSimilar struct {
	embedding []float64
}

func (s *stubSimilar) QuerySimilar(_ context.Context, embedding []float64, limit int) ([]models.ReferenceHit, error) {
	s.embedding = embedding
	return []models.ReferenceHit{{DocumentID: "MHC19023.HTM", Ref: models.ParsedPassage{Display: "John 10:11"}}}, nil
}

type stubEmbedder struct{}

func (stubEmbedder) EmbedText(context.Context, string) ([]float64, error) {
	return []float64{1, 0}, nil
}

func testAssistant(llm answerer) *assistant {
	corpus := &models.Corpus{
		BookStructure: map[string]models.BookStructureEntry{
			"19": {Name: "Psalms", Chapters: []int{23}},
			"43": {Name: "John", Chapters: []int{10}},
		},
		Documents: []models.DocumentRecord{
			{
				ID: "MHC19023.HTM", Title: "Psalms 23", Book: "Psalms", Chapter: 23,
				References: []models.Reference{
					{Ref: models.ParsedPassage{Book: "John", Chapter: 10, Verses: "11", Display: "John 10:11"}, Context: "the good shepherd"},
				},
			},
			{
				ID: "MHC43010.HTM", Title: "John 10", Book: "John", Chapter: 10,
				References: []models.Reference{
					{Ref: models.ParsedPassage{Book: "Psalms", Chapter: 23, Verses: "1", Display: "Psalms 23:1"}, Context: "my shepherd"},
					{Ref: models.ParsedPassage{Book: "Psalms", Chapter: 23, Verses: "4", Display: "Psalms 23:4"}, Context: "the valley"},
				},
			},
		},
	}

	return &assistant{
		refs:   database.NewMemoryStore(corpus),
		llm:    llm,
		limit:  DefaultContextLimit,
		logger: logging.New(io.Discard, logging.LevelError, logging.FormatText),
	}
}

func TestResolvePassage(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		passage string
		want    string
	}{
		{"explicit passage", "what is meant here?", "Ps 23:1", "Psalms 23:1"},
		{"explicit with dots", "", "1 Cor. 13:4-7", "1 Corinthians 13:4-7"},
		{"citation in query", "What does Psalm 23 teach about fear?", "", "Psalms 23"},
		{"skips non-book words", "In chapter 3 of the gospel, what is Jn 3:16 about?", "", "John 3:16"},
		{"no citation", "Who was Matthew Henry?", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := resolvePassage(tt.query, tt.passage)
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, ref)
				return
			}
			require.NotNil(t, ref)
			assert.Equal(t, tt.want, ref.Display)
		})
	}
}

func TestResolvePassage_Invalid(t *testing.T) {
	_, err := resolvePassage("anything", "Xyz 4")
	assert.ErrorContains(t, err, `invalid passage "Xyz 4"`)
}

func TestProcessQuery_ByPassage(t *testing.T) {
	llm := &stubLLM{}
	qa := testAssistant(llm)

	resp, err := qa.processQuery(context.Background(), "What does Psalm 23 say?", "", "")
	require.NoError(t, err)
	assert.Equal(t, "He restores the soul.", resp.Answer)
	assert.Equal(t, "Psalms 23", llm.passage)
	require.Len(t, llm.hits, 2)
	assert.Equal(t, "Psalms 23:1", llm.hits[0].Ref.Display)
	assert.Equal(t, "John", llm.hits[0].SourceBook)
}

func TestProcessQuery_SourceBookFilter(t *testing.T) {
	llm := &stubLLM{}
	qa := testAssistant(llm)

	resp, err := qa.processQuery(context.Background(), "Who is the shepherd?", "Ps 23", "Genesis")
	require.NoError(t, err)
	assert.Equal(t, noAnswer, resp.Answer)
	assert.Empty(t, resp.Sources)
	assert.Nil(t, llm.hits)
}

func TestProcessQuery_Limit(t *testing.T) {
	llm := &stubLLM{}
	qa := testAssistant(llm)
	qa.limit = 1

	_, err := qa.processQuery(context.Background(), "What about Ps 23?", "", "")
	require.NoError(t, err)
	assert.Len(t, llm.hits, 1)
}

func TestProcessQuery_Similarity(t *testing.T) {
	llm := &stubLLM{}
	similar := &stubSimilar{}
	qa := testAssistant(llm)
	qa.similar = similar
	qa.embedder = stubEmbedder{}

	_, err := qa.processQuery(context.Background(), "Who is the good shepherd?", "", "")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, similar.embedding)
	assert.Equal(t, "", llm.passage)
	require.Len(t, llm.hits, 1)
}

func TestProcessQuery_NoPassage(t *testing.T) {
	qa := testAssistant(&stubLLM{})

	_, err := qa.processQuery(context.Background(), "Who is the good shepherd?", "", "")
	assert.ErrorContains(t, err, "no passage given")
}

func TestRunInteractive(t *testing.T) {
	llm := &stubLLM{}
	qa := testAssistant(llm)

	in := strings.NewReader("/passage Jn 10\nwho is meant?\n/book Psa\n/book Narnia\n/list-books\nexit\nnever read\n")
	var out bytes.Buffer
	qa.runInteractive(context.Background(), in, &out, "", "")

	text := out.String()
	assert.Contains(t, text, "Passage set to: Jn 10")
	assert.Contains(t, text, "He restores the soul.")
	assert.Contains(t, text, "[Psalms 23, citing John 10:11]")
	assert.Contains(t, text, "Only using commentary on: Psalms")
	assert.Contains(t, text, `Error: unknown book "Narnia"`)
	assert.Contains(t, text, "43 John")
	assert.Equal(t, "John 10", llm.passage)
}

func TestResolveBook(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"", ""},
		{"1 Corinthians", "1 Corinthians"},
		{"Song of Solomon", "Song of Solomon"},
		{"Ps", "Psalms"},
		{"1 Cor.", "1 Corinthians"},
	}

	for _, tt := range tests {
		got, err := resolveBook(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}

	_, err := resolveBook("Narnia")
	assert.ErrorContains(t, err, `unknown book "Narnia"`)
}

func TestFormatAnswer(t *testing.T) {
	got := formatAnswer(&models.Response{
		Answer: "Comfort in trouble.",
		Sources: []models.ReferenceHit{
			{DocumentTitle: "John 10", Ref: models.ParsedPassage{Display: "Psalms 23:4"}},
		},
	})
	assert.Equal(t, "Comfort in trouble.\n\nSources:\n  1. [John 10, citing Psalms 23:4]\n", got)

	assert.Equal(t, "Nothing.\n\n", formatAnswer(&models.Response{Answer: "Nothing."}))
}

func TestListBooks(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, listBooks(context.Background(), &out, testAssistant(nil).refs))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Available Books:", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "  19 Psalms"))
	assert.True(t, strings.HasSuffix(lines[2], "1 chapters"))
}

func TestPrintSearchHits(t *testing.T) {
	var out bytes.Buffer
	printSearchHits(&out, nil)
	assert.Equal(t, "No matching commentary pages.\n", out.String())

	out.Reset()
	printSearchHits(&out, []models.DocumentHit{{DocumentID: "MHC19023.HTM", Title: "Psalms 23", Snippet: "…my shepherd…"}})
	assert.Contains(t, out.String(), "Psalms 23 (MHC19023.HTM)")
	assert.Contains(t, out.String(), "…my shepherd…")
}
