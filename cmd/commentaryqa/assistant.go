package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"commentary-rag/internal/bible"
	"commentary-rag/internal/database"
	"commentary-rag/internal/models"
	"commentary-rag/internal/processor"

	"github.com/fatih/color"
)

const noAnswer = "I couldn't find any commentary on that passage to answer your question."

type answerer interface {
	Answer(ctx context.Context, query string, passage string, hits []models.ReferenceHit) (*models.Response, error)
}

type similarSearcher interface {
	QuerySimilar(ctx context.Context, embedding []float64, limit int) ([]models.ReferenceHit, error)
}

type textEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float64, error)
}

// assistant retrieves commentary excerpts for a question and has the LLM
// answer from them
type assistant struct {
	refs     database.ReferenceSource
	similar  similarSearcher
	embedder textEmbedder
	llm      answerer
	limit    int
	logger   *slog.Logger
}

func (a *assistant) runInteractive(ctx context.Context, in io.Reader, out io.Writer, passage, sourceBook string) {
	scanner := bufio.NewScanner(in)

	color.New(color.Bold).Fprintln(out, "Commentary Assistant - Ask questions about a passage (type 'exit' to quit)")
	fmt.Fprintln(out, "Commands: /passage <ref>, /book <name>, /list-books")
	if passage != "" {
		fmt.Fprintf(out, "Passage set to: %s\n", passage)
	}

	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		lower := strings.ToLower(input)
		if lower == "exit" || lower == "quit" {
			break
		}
		if input == "" {
			continue
		}

		switch {
		case strings.HasPrefix(lower, "/passage"):
			passage = strings.TrimSpace(input[len("/passage"):])
			if passage == "" {
				fmt.Fprintln(out, "Passage cleared")
			} else {
				fmt.Fprintf(out, "Passage set to: %s\n", passage)
			}
			continue

		case strings.HasPrefix(lower, "/book"):
			book, err := resolveBook(strings.TrimSpace(input[len("/book"):]))
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				continue
			}
			sourceBook = book
			if sourceBook == "" {
				fmt.Fprintln(out, "Book filter cleared")
			} else {
				fmt.Fprintf(out, "Only using commentary on: %s\n", sourceBook)
			}
			continue

		case lower == "/list-books":
			if err := listBooks(ctx, out, a.refs); err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
			}
			continue
		}

		// Show "thinking" indicator
		fmt.Fprint(out, "Searching commentary... ")

		answer, err := a.processQuery(ctx, input, passage, sourceBook)
		if err != nil {
			fmt.Fprintf(out, "\rError: %v\n", err)
			continue
		}

		fmt.Fprint(out, "\r"+formatAnswer(answer))
	}
}

// processQuery answers query. The passage comes from passage, or failing
// that from a citation in the query itself; without one the query is
// matched by embedding similarity when that is available.
func (a *assistant) processQuery(ctx context.Context, query, passage, sourceBook string) (*models.Response, error) {
	startTime := time.Now()

	ref, err := resolvePassage(query, passage)
	if err != nil {
		return nil, err
	}

	var hits []models.ReferenceHit
	switch {
	case ref != nil:
		hits, err = a.refs.QueryReferences(ctx, database.ReferenceQuery{
			Book:       ref.Book,
			Chapter:    ref.Chapter,
			SourceBook: sourceBook,
			Limit:      a.limit,
		})
		if err != nil {
			return nil, err
		}

	case a.similar != nil && a.embedder != nil:
		queryEmbedding, err := a.embedder.EmbedText(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("failed to create query embedding: %w", err)
		}
		hits, err = a.similar.QuerySimilar(ctx, queryEmbedding, a.limit)
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("no passage given: name one in the question or use --passage")
	}

	if len(hits) == 0 {
		// No relevant context found
		return &models.Response{
			Answer:    noAnswer,
			Sources:   []models.ReferenceHit{},
			Timestamp: time.Now().Format(time.RFC3339),
		}, nil
	}

	display := ""
	if ref != nil {
		display = ref.Display
	}

	response, err := a.llm.Answer(ctx, query, display, hits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	a.logger.Info("Query processed", "elapsed", time.Since(startTime).Round(time.Millisecond), "excerpts", len(hits))
	return response, nil
}

// citationRe finds citations such as "Ps 23", "Psalm 23:1" or "1 Cor. 13:4-7"
var citationRe = regexp.MustCompile(`\b([1-3] ?)?[A-Za-z]+\.? \d+(:[\d,\-]+)?`)

// resolvePassage parses passage, or the first citation in query that names a
// known book. It returns nil when neither yields one.
func resolvePassage(query, passage string) (*models.ParsedPassage, error) {
	if passage != "" {
		ref, err := processor.ParsePassage(strings.ReplaceAll(passage, ".", ""))
		if err != nil {
			return nil, fmt.Errorf("invalid passage %q: %w", passage, err)
		}
		return ref, nil
	}

	for _, match := range citationRe.FindAllString(query, -1) {
		if ref, err := processor.ParsePassage(strings.ReplaceAll(match, ".", "")); err == nil {
			return ref, nil
		}
	}
	return nil, nil
}

// resolveBook accepts a canonical book name or any known abbreviation of one.
// An empty name means no filter.
func resolveBook(name string) (string, error) {
	if name == "" || bible.IsBookName(name) {
		return name, nil
	}
	if book, ok := bible.LookupAbbreviation(strings.ReplaceAll(name, ".", "")); ok {
		return book, nil
	}
	return "", fmt.Errorf("unknown book %q", name)
}

func formatAnswer(response *models.Response) string {
	var sb strings.Builder

	// Add the answer
	sb.WriteString(response.Answer)
	sb.WriteString("\n\n")

	// Add sources if available
	if len(response.Sources) > 0 {
		sb.WriteString("Sources:\n")
		for i, source := range response.Sources {
			fmt.Fprintf(&sb, "  %d. [%s, citing %s]\n", i+1, source.DocumentTitle, source.Ref.Display)
		}
	}

	return sb.String()
}
