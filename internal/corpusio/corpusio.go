// Package corpusio reads commentary files from disk and writes the corpus.
package corpusio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"commentary-rag/internal/models"

	"github.com/ulikunitz/xz"
)

// XZSuffix marks output paths that are written xz-compressed
const XZSuffix = ".xz"

// ListFiles returns the files in dir matching pattern, sorted by name
func ListFiles(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to match %s: %w", pattern, err)
	}

	files := matches[:0]
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, m)
	}
	slices.Sort(files)

	return files, nil
}

// LoadDocuments reads every matching file. Bytes that are not valid UTF-8
// are dropped. Filenames are recorded without their directory. A file that
// cannot be read is logged and skipped; the number skipped is returned.
func LoadDocuments(dir, pattern string, logger *slog.Logger) ([]models.RawDocument, int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	files, err := ListFiles(dir, pattern)
	if err != nil {
		return nil, 0, err
	}

	skipped := 0
	docs := make([]models.RawDocument, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			skipped++
			logger.Warn("Error reading document", "file", file, "error", err)
			continue
		}

		docs = append(docs, models.RawDocument{
			Filename: filepath.Base(file),
			Markup:   strings.ToValidUTF8(string(data), ""),
		})
	}

	return docs, skipped, nil
}

// WriteCorpus writes corpus as JSON to path, creating parent directories,
// and returns the size of the written file
func WriteCorpus(path string, corpus *models.Corpus) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	buffered := bufio.NewWriter(file)

	var w io.Writer = buffered
	var xzWriter *xz.Writer
	if strings.HasSuffix(path, XZSuffix) {
		xzWriter, err = xz.NewWriter(buffered)
		if err != nil {
			return 0, fmt.Errorf("failed to create xz writer: %w", err)
		}
		w = xzWriter
	}

	if err := json.NewEncoder(w).Encode(corpus); err != nil {
		return 0, fmt.Errorf("failed to encode corpus: %w", err)
	}

	if xzWriter != nil {
		if err := xzWriter.Close(); err != nil {
			return 0, fmt.Errorf("failed to finish xz stream: %w", err)
		}
	}
	if err := buffered.Flush(); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	return info.Size(), nil
}

// ReadCorpus loads a corpus written by WriteCorpus
func ReadCorpus(path string) (*models.Corpus, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	var r io.Reader = bufio.NewReader(file)
	if strings.HasSuffix(path, XZSuffix) {
		r, err = xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
	}

	var corpus models.Corpus
	if err := json.NewDecoder(r).Decode(&corpus); err != nil {
		return nil, fmt.Errorf("failed to decode corpus: %w", err)
	}

	return &corpus, nil
}

// SizeMB converts a byte count to mebibytes for the run summary
func SizeMB(size int64) float64 {
	return float64(size) / (1024 * 1024)
}
