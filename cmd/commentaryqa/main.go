// Command commentaryqa answers questions about a Bible passage from the
// commentary excerpts that cite it.
package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"

	"commentary-rag/internal/config"
	"commentary-rag/internal/corpusio"
	"commentary-rag/internal/database"
	"commentary-rag/internal/embedding"
	"commentary-rag/internal/llm"
	"commentary-rag/internal/logging"
	"commentary-rag/internal/models"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
)

const DefaultContextLimit = 5

// CLI defines the command-line interface for commentaryqa
var CLI struct {
	Config      string `name:"config" short:"c" help:"YAML config file (default: CONFIG_PATH or ./commentary.yaml)" type:"path"`
	PG          string `name:"pg" help:"PostgreSQL connection string"`
	SQLite      string `name:"sqlite" help:"SQLite database file" type:"path"`
	Corpus      string `name:"corpus" help:"Corpus file written by indexer (default: output.path)" type:"path"`
	Ollama      string `name:"ollama" help:"Ollama host (default uses OLLAMA_HOST env var)"`
	Model       string `name:"model" help:"Ollama model for answering"`
	Passage     string `name:"passage" short:"p" help:"Passage to look up, e.g. 'Ps 23' or '1 Co 13:4'"`
	SourceBook  string `name:"source-book" help:"Only use commentary written on this book"`
	Limit       int    `name:"limit" short:"n" help:"Number of commentary excerpts to retrieve" default:"5"`
	Query       string `name:"query" short:"q" help:"Question to answer (non-interactive mode)"`
	Interactive bool   `name:"interactive" short:"i" help:"Run in interactive mode"`
	ListBooks   bool   `name:"list-books" help:"List the books and chapters in the corpus"`
	Search      string `name:"search" help:"Full-text search of commentary pages (SQLite only)"`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("commentaryqa"),
		kong.Description("Ask questions of Matthew Henry's commentary"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	cfg, err := config.Load(CLI.Config)
	kctx.FatalIfErrorf(err)
	applyFlags(cfg)

	sourceBook, err := resolveBook(CLI.SourceBook)
	kctx.FatalIfErrorf(err)

	level, err := logging.ParseLevel(cfg.Log.Level)
	kctx.FatalIfErrorf(err)
	format, err := logging.ParseFormat(cfg.Log.Format)
	kctx.FatalIfErrorf(err)
	logger := logging.InitLogger(level, format)

	// Create context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	src, err := openSource(ctx, cfg, CLI.Corpus)
	kctx.FatalIfErrorf(err)
	defer src.Close()

	// List books if requested
	if CLI.ListBooks {
		kctx.FatalIfErrorf(listBooks(ctx, os.Stdout, src.refs))
		return
	}

	if CLI.Search != "" {
		if src.text == nil {
			kctx.Fatalf("--search needs a SQLite database (--sqlite)")
		}
		hits, err := src.text.SearchText(ctx, CLI.Search, CLI.Limit)
		kctx.FatalIfErrorf(err)
		printSearchHits(os.Stdout, hits)
		return
	}

	// Create LLM
	llmClient, err := llm.NewOllamaLLM(cfg.Embedding.Host, cfg.LLM.Model)
	kctx.FatalIfErrorf(err)

	qa := &assistant{
		refs:   src.refs,
		llm:    llmClient,
		limit:  CLI.Limit,
		logger: logger,
	}

	// Similarity search needs both stored embeddings and an embedder
	if src.similar != nil && cfg.Embedding.Enabled {
		embedder, err := embedding.NewOllamaEmbedder(cfg.Embedding.Host, cfg.Embedding.Model)
		kctx.FatalIfErrorf(err)
		qa.similar = src.similar
		qa.embedder = embedder
	}

	if CLI.Interactive {
		qa.runInteractive(ctx, os.Stdin, os.Stdout, CLI.Passage, sourceBook)
		return
	}

	if CLI.Query == "" {
		kctx.Fatalf("Query is required in non-interactive mode. Use -q 'your question'")
	}

	answer, err := qa.processQuery(ctx, CLI.Query, CLI.Passage, sourceBook)
	kctx.FatalIfErrorf(err)
	fmt.Print(formatAnswer(answer))
}

func applyFlags(cfg *config.Config) {
	if CLI.PG != "" {
		cfg.Database.DSN = CLI.PG
	}
	if CLI.SQLite != "" {
		cfg.Database.SQLitePath = CLI.SQLite
	}
	if CLI.Ollama != "" {
		cfg.Embedding.Host = CLI.Ollama
	}
	if CLI.Model != "" {
		cfg.LLM.Model = CLI.Model
	}
	if CLI.Limit <= 0 {
		CLI.Limit = DefaultContextLimit
	}
}

// source is the store the QA tool reads from, with the optional search
// capabilities it offers
type source struct {
	refs    database.ReferenceSource
	similar similarSearcher
	text    *database.SQLiteStore
	close   func() error
}

func (s *source) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// openSource prefers Postgres, then SQLite, then the corpus file
func openSource(ctx context.Context, cfg *config.Config, corpusPath string) (*source, error) {
	switch {
	case cfg.Database.DSN != "":
		pg, err := database.NewPostgresStore(ctx, cfg.Database.DSN, cfg.Database.MaxConns, cfg.Embedding.Dimensions)
		if err != nil {
			return nil, err
		}
		return &source{refs: pg, similar: pg, close: pg.Close}, nil

	case cfg.Database.SQLitePath != "":
		lite, err := database.NewSQLiteStore(ctx, cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &source{refs: lite, text: lite, close: lite.Close}, nil

	default:
		if corpusPath == "" {
			corpusPath = cfg.Output.Path
		}
		corpus, err := corpusio.ReadCorpus(corpusPath)
		if err != nil {
			return nil, err
		}
		return &source{refs: database.NewMemoryStore(corpus)}, nil
	}
}

func listBooks(ctx context.Context, w io.Writer, refs database.ReferenceSource) error {
	books, err := refs.GetBooks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get books: %w", err)
	}

	fmt.Fprintln(w, "Available Books:")
	for _, code := range slices.Sorted(maps.Keys(books)) {
		entry := books[code]
		fmt.Fprintf(w, "  %s %-16s %d chapters\n", code, entry.Name, len(entry.Chapters))
	}
	return nil
}

func printSearchHits(w io.Writer, hits []models.DocumentHit) {
	if len(hits) == 0 {
		fmt.Fprintln(w, "No matching commentary pages.")
		return
	}
	for i, hit := range hits {
		color.New(color.FgCyan).Fprintf(w, "%d. %s (%s)\n", i+1, hit.Title, hit.DocumentID)
		fmt.Fprintf(w, "   %s\n", hit.Snippet)
	}
}
