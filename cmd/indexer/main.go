// Command indexer builds the commentary corpus from Matthew Henry commentary
// pages, writes it to disk and optionally stores and embeds it.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"time"

	"commentary-rag/internal/bible"
	"commentary-rag/internal/config"
	"commentary-rag/internal/corpusio"
	"commentary-rag/internal/database"
	"commentary-rag/internal/embedding"
	"commentary-rag/internal/logging"
	"commentary-rag/internal/models"
	"commentary-rag/internal/processor"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
)

const (
	version = "0.2.0"

	embedProgressEvery = 50
)

// CLI defines the command-line interface for indexer. Flags override the
// configuration file and environment.
var CLI struct {
	Config  string `name:"config" short:"c" help:"YAML config file (default: CONFIG_PATH or ./commentary.yaml)" type:"path"`
	Input   string `name:"input" short:"i" help:"Directory containing commentary files" type:"path"`
	Output  string `name:"output" short:"o" help:"Output corpus file; a .xz suffix compresses it" type:"path"`
	Workers int    `name:"workers" short:"w" help:"Documents processed in parallel"`
	PG      string `name:"pg" help:"PostgreSQL connection string"`
	SQLite  string `name:"sqlite" help:"SQLite database file" type:"path"`
	Embed   bool   `name:"embed" help:"Embed reference contexts with Ollama before storing"`
	Ollama  string `name:"ollama" help:"Ollama host (default uses OLLAMA_HOST env var)"`
	Model   string `name:"model" help:"Ollama model for embeddings"`
	Debug   bool   `name:"debug" help:"Log dropped passage anchors"`

	Version kong.VersionFlag `name:"version" help:"Print version information"`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("indexer"),
		kong.Description("Build the Matthew Henry commentary corpus"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	cfg, err := config.Load(CLI.Config)
	kctx.FatalIfErrorf(err)

	applyFlags(cfg)
	kctx.FatalIfErrorf(cfg.Validate())

	level, _ := logging.ParseLevel(cfg.Log.Level)
	format, _ := logging.ParseFormat(cfg.Log.Format)
	logger := logging.InitLogger(level, format)

	// Create context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	_, err = run(ctx, cfg, logger, os.Stdout)
	kctx.FatalIfErrorf(err)
}

// applyFlags copies the flags that were set over cfg
func applyFlags(cfg *config.Config) {
	if CLI.Input != "" {
		cfg.Input.Dir = CLI.Input
	}
	if CLI.Output != "" {
		cfg.Output.Path = CLI.Output
	}
	if CLI.Workers > 0 {
		cfg.Processing.Workers = CLI.Workers
	}
	if CLI.PG != "" {
		cfg.Database.DSN = CLI.PG
	}
	if CLI.SQLite != "" {
		cfg.Database.SQLitePath = CLI.SQLite
	}
	if CLI.Embed {
		cfg.Embedding.Enabled = true
	}
	if CLI.Ollama != "" {
		cfg.Embedding.Host = CLI.Ollama
	}
	if CLI.Model != "" {
		cfg.Embedding.Model = CLI.Model
	}
	if CLI.Debug {
		cfg.Log.Level = "debug"
	}
}

// run loads, processes, writes and stores one corpus
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (*models.Corpus, error) {
	startTime := time.Now()

	ambiguous := bible.AmbiguousAbbreviations()
	for _, abbr := range slices.Sorted(maps.Keys(ambiguous)) {
		book, _ := bible.LookupAbbreviation(abbr)
		logger.Debug("Ambiguous abbreviation", "abbreviation", abbr, "books", ambiguous[abbr], "resolved", book)
	}

	docs, unreadable, err := corpusio.LoadDocuments(cfg.Input.Dir, cfg.Input.Pattern, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load commentary files: %w", err)
	}
	logger.Info(fmt.Sprintf("Processing %d files...", len(docs)), "dir", cfg.Input.Dir, "workers", cfg.Processing.Workers)

	proc := processor.NewProcessor(processor.Options{
		ContextRadius:  cfg.Processing.ContextRadius,
		TitlePrefix:    cfg.Processing.TitlePrefix,
		FilenamePrefix: cfg.Input.FilenamePrefix,
		Workers:        cfg.Processing.Workers,
		ProgressEvery:  cfg.Processing.ProgressEvery,
		Logger:         logger,
	})

	corpus, err := proc.BuildCorpus(ctx, docs)
	if err != nil {
		return nil, err
	}
	corpus.Stats.Skipped += unreadable
	processDuration := time.Since(startTime)

	if cfg.Embedding.Enabled {
		if err := embedReferences(ctx, cfg, logger, corpus); err != nil {
			return nil, err
		}
	}

	size, err := corpusio.WriteCorpus(cfg.Output.Path, corpus)
	if err != nil {
		return nil, fmt.Errorf("failed to write corpus: %w", err)
	}

	storeStart := time.Now()
	if err := storeCorpus(ctx, cfg, logger, corpus); err != nil {
		return nil, err
	}

	logger.Info("Completed processing",
		"total", time.Since(startTime).Round(time.Millisecond),
		"processing", processDuration.Round(time.Millisecond),
		"storage", time.Since(storeStart).Round(time.Millisecond))

	printSummary(out, cfg.Output.Path, size, corpus)
	return corpus, nil
}

func embedReferences(ctx context.Context, cfg *config.Config, logger *slog.Logger, corpus *models.Corpus) error {
	embedder, err := embedding.NewOllamaEmbedder(cfg.Embedding.Host, cfg.Embedding.Model)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	embedder.MaxConcurrent = cfg.Embedding.MaxConcurrent
	embedder.MaxRetries = cfg.Embedding.MaxRetries
	embedder.Timeout = cfg.Embedding.Timeout

	logger.Info("Creating embeddings with parallel processing...", "model", cfg.Embedding.Model)
	embeddingStart := time.Now()

	progressFunc := func(processed, total int) {
		if processed%embedProgressEvery != 0 && processed != total {
			return
		}
		elapsedTime := time.Since(embeddingStart)
		estimatedTotal := elapsedTime * time.Duration(total) / time.Duration(processed)
		logger.Info(fmt.Sprintf("Progress: %d/%d references embedded (%.1f%%)",
			processed, total, float64(processed)/float64(total)*100),
			"remaining", (estimatedTotal - elapsedTime).Round(time.Second))
	}

	if err := embedder.EmbedReferences(ctx, corpus, progressFunc); err != nil {
		return fmt.Errorf("failed to create embeddings: %w", err)
	}
	return nil
}

// storeCorpus writes corpus to every configured database
func storeCorpus(ctx context.Context, cfg *config.Config, logger *slog.Logger, corpus *models.Corpus) error {
	var stores []database.CorpusStore

	if cfg.Database.DSN != "" {
		pg, err := database.NewPostgresStore(ctx, cfg.Database.DSN, cfg.Database.MaxConns, cfg.Embedding.Dimensions)
		if err != nil {
			return err
		}
		stores = append(stores, pg)
	}
	if cfg.Database.SQLitePath != "" {
		lite, err := database.NewSQLiteStore(ctx, cfg.Database.SQLitePath)
		if err != nil {
			closeStores(stores)
			return err
		}
		stores = append(stores, lite)
	}
	defer closeStores(stores)

	for _, store := range stores {
		if err := store.Initialize(ctx); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := store.StoreCorpus(ctx, corpus); err != nil {
			return fmt.Errorf("failed to store corpus: %w", err)
		}
		logger.Info("Stored corpus", "store", fmt.Sprintf("%T", store), "documents", len(corpus.Documents))
	}

	return nil
}

func closeStores(stores []database.CorpusStore) {
	for _, store := range stores {
		_ = store.Close()
	}
}

// printSummary reports the run the way operators read it at the end of a build
func printSummary(w io.Writer, path string, size int64, corpus *models.Corpus) {
	stats := corpus.Stats

	fmt.Fprintln(w)
	color.New(color.FgGreen, color.Bold).Fprintf(w, "Done! Created %s\n", path)
	fmt.Fprintf(w, "  %d documents\n", stats.Documents)
	fmt.Fprintf(w, "  %d references\n", stats.References)
	fmt.Fprintf(w, "  %.1f MB\n", corpusio.SizeMB(size))

	warn := color.New(color.FgYellow)
	if stats.Skipped > 0 {
		warn.Fprintf(w, "  %d documents skipped\n", stats.Skipped)
	}
	if stats.Dropped > 0 {
		warn.Fprintf(w, "  %d unparseable passage links dropped\n", stats.Dropped)
	}
	if stats.Unlocated > 0 {
		warn.Fprintf(w, "  %d references without surrounding text\n", stats.Unlocated)
	}
}
