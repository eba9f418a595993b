package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"commentary-rag/internal/models"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// ErrEmptyEmbedding is returned when the model answers without a vector
var ErrEmptyEmbedding = errors.New("empty embedding")

// OllamaEmbedder generates embeddings using Ollama API
type OllamaEmbedder struct {
	Client        *api.Client
	Model         string
	MaxRetries    int
	Timeout       time.Duration
	MaxConcurrent int
	RetryDelay    time.Duration
}

// NewOllamaEmbedder creates a new Ollama embedder. An empty host falls back
// to OLLAMA_HOST.
func NewOllamaEmbedder(host string, model string) (*OllamaEmbedder, error) {
	hostURL, err := ResolveHost(host)
	if err != nil {
		return nil, err
	}
	client := api.NewClient(hostURL, http.DefaultClient)

	return &OllamaEmbedder{
		Client:        client,
		Model:         model,
		MaxRetries:    3,
		Timeout:       time.Second * 30,
		MaxConcurrent: 3, // Limit concurrent requests based on hardware
		RetryDelay:    time.Second,
	}, nil
}

// ResolveHost parses host ("localhost:11434", "http://gpu-box:11434"), or
// returns the OLLAMA_HOST setting when host is empty
func ResolveHost(host string) (*url.URL, error) {
	if host == "" {
		return envconfig.Host(), nil
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	return u, nil
}

// EmbedText generates an embedding for a text
func (e *OllamaEmbedder) EmbedText(ctx context.Context, text string) ([]float64, error) {
	var embedding []float64
	var err error

	// Implement retry logic
	for retries := 0; retries <= e.MaxRetries; retries++ {
		if retries > 0 {
			// Wait before retrying
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(retries) * e.RetryDelay):
			}
		}

		embedding, err = e.createEmbedding(ctx, text)
		if err == nil {
			return embedding, nil
		}
	}

	return nil, fmt.Errorf("failed to create embedding after %d retries: %w", e.MaxRetries, err)
}

// createEmbedding is a helper function to create a single embedding
func (e *OllamaEmbedder) createEmbedding(ctx context.Context, text string) ([]float64, error) {
	req := api.EmbeddingRequest{
		Model:   e.Model,
		Prompt:  text,
		Options: map[string]any{},
	}

	// Create a context with timeout
	ctxWithTimeout, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	// Make the embedding request
	resp, err := e.Client.Embeddings(ctxWithTimeout, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}

	return resp.Embedding, nil
}

// referenceSlot addresses one reference inside a corpus
type referenceSlot struct {
	doc, ref int
}

// EmbedReferences embeds the context of every reference in corpus in place.
// progressFunc, if set, is called after each reference. The first failure
// is returned; references embedded before it keep their vectors.
func (e *OllamaEmbedder) EmbedReferences(ctx context.Context, corpus *models.Corpus,
	progressFunc func(processed, total int)) error {

	var slots []referenceSlot
	for d := range corpus.Documents {
		for r := range corpus.Documents[d].References {
			slots = append(slots, referenceSlot{doc: d, ref: r})
		}
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, max(1, e.MaxConcurrent))

	// Create a mutex to protect the progress counter
	var mu sync.Mutex
	processed := 0
	total := len(slots)

	// Track errors
	errChan := make(chan error, total)

	for _, slot := range slots {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		semaphore <- struct{}{} // Acquire semaphore

		go func() {
			defer func() {
				wg.Done()
				<-semaphore // Release semaphore
			}()

			ref := &corpus.Documents[slot.doc].References[slot.ref]
			embedding, err := e.EmbedText(ctx, ref.Context)
			if err != nil {
				errChan <- fmt.Errorf("failed to embed reference %s in %s: %w",
					ref.Ref.Display, corpus.Documents[slot.doc].ID, err)
				return
			}

			// Each goroutine owns its reference
			ref.Embedding = embedding

			mu.Lock()
			processed++
			if progressFunc != nil {
				progressFunc(processed, total)
			}
			mu.Unlock()
		}()
	}

	// Wait for all goroutines to complete
	wg.Wait()
	close(errChan)

	// Check for errors
	if err := <-errChan; err != nil {
		return err
	}

	return ctx.Err()
}
