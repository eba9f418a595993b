package config

import (
	"errors"
	"fmt"
	"path"

	"commentary-rag/internal/logging"
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Validate checks the loaded configuration. Load calls it automatically;
// call it again after applying command-line overrides.
func (c *Config) Validate() error {
	if c.Input.Pattern == "" {
		return fmt.Errorf("%w: input.pattern is empty", ErrInvalid)
	}
	if _, err := path.Match(c.Input.Pattern, ""); err != nil {
		return fmt.Errorf("%w: input.pattern %q: %v", ErrInvalid, c.Input.Pattern, err)
	}
	if c.Output.Path == "" {
		return fmt.Errorf("%w: output.path is empty", ErrInvalid)
	}

	if err := c.Processing.validate(); err != nil {
		return fmt.Errorf("processing: %w", err)
	}
	if err := c.Embedding.validate(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}

	if c.Database.MaxConns < 1 {
		return fmt.Errorf("%w: database.max_conns must be >= 1 (got %d)", ErrInvalid, c.Database.MaxConns)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return fmt.Errorf("%w: log.format: %v", ErrInvalid, err)
	}

	return nil
}

func (p *ProcessingConfig) validate() error {
	if p.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1 (got %d)", ErrInvalid, p.Workers)
	}
	if p.ContextRadius < 0 {
		return fmt.Errorf("%w: context_radius must be >= 0 (got %d)", ErrInvalid, p.ContextRadius)
	}
	if p.ProgressEvery < 0 {
		return fmt.Errorf("%w: progress_every must be >= 0 (got %d)", ErrInvalid, p.ProgressEvery)
	}
	return nil
}

func (e *EmbeddingConfig) validate() error {
	if !e.Enabled {
		return nil
	}
	if e.Model == "" {
		return fmt.Errorf("%w: model is required when embeddings are enabled", ErrInvalid)
	}
	if e.Dimensions < 1 {
		return fmt.Errorf("%w: dimensions must be >= 1 (got %d)", ErrInvalid, e.Dimensions)
	}
	if e.MaxConcurrent < 1 {
		return fmt.Errorf("%w: max_concurrent must be >= 1 (got %d)", ErrInvalid, e.MaxConcurrent)
	}
	if e.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must be >= 0 (got %d)", ErrInvalid, e.MaxRetries)
	}
	if e.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be > 0 (got %v)", ErrInvalid, e.Timeout)
	}
	return nil
}
