// Package config loads indexer and QA settings from an optional YAML file,
// the environment and built-in defaults.
package config

import "time"

// DefaultTitlePrefix is removed from every commentary page title
const DefaultTitlePrefix = "Matthew Henry's Complete Commentary on the Whole Bible "

// Config is the root application configuration.
type Config struct {
	Input      InputConfig      `yaml:"input"`
	Output     OutputConfig     `yaml:"output"`
	Processing ProcessingConfig `yaml:"processing"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	LLM        LLMConfig        `yaml:"llm"`
	Log        LogConfig        `yaml:"log"`
}

// InputConfig locates the commentary files.
type InputConfig struct {
	Dir            string `yaml:"dir"             env:"COMMENTARY_INPUT_DIR"       env-default:"./mhc"`
	Pattern        string `yaml:"pattern"         env:"COMMENTARY_INPUT_PATTERN"   env-default:"MHC*.HTM"`
	FilenamePrefix string `yaml:"filename_prefix" env:"COMMENTARY_FILENAME_PREFIX" env-default:"MHC"`
}

// OutputConfig holds where the corpus is written. A path ending in .xz is
// compressed.
type OutputConfig struct {
	Path string `yaml:"path" env:"COMMENTARY_OUTPUT_PATH" env-default:"./data/commentary.json"`
}

// ProcessingConfig tunes the corpus build. Zero is a meaningful value for
// these fields, so their defaults come from Defaults rather than env-default.
type ProcessingConfig struct {
	Workers       int    `yaml:"workers"        env:"PROCESSING_WORKERS"`
	ContextRadius int    `yaml:"context_radius" env:"PROCESSING_CONTEXT_RADIUS"`
	TitlePrefix   string `yaml:"title_prefix"   env:"PROCESSING_TITLE_PREFIX"   env-default:"Matthew Henry's Complete Commentary on the Whole Bible "`
	ProgressEvery int    `yaml:"progress_every" env:"PROCESSING_PROGRESS_EVERY"`
}

// DatabaseConfig holds the optional corpus stores. Both are skipped when empty.
type DatabaseConfig struct {
	DSN        string `yaml:"dsn"         env:"DATABASE_DSN"`
	SQLitePath string `yaml:"sqlite_path" env:"DATABASE_SQLITE_PATH"`
	MaxConns   int32  `yaml:"max_conns"   env:"DATABASE_MAX_CONNS"   env-default:"4"`
}

// EmbeddingConfig holds Ollama embedding settings.
type EmbeddingConfig struct {
	Enabled       bool          `yaml:"enabled"        env:"EMBEDDING_ENABLED"        env-default:"false"`
	Host          string        `yaml:"host"           env:"EMBEDDING_HOST"`
	Model         string        `yaml:"model"          env:"EMBEDDING_MODEL"          env-default:"all-minilm"`
	Dimensions    int           `yaml:"dimensions"     env:"EMBEDDING_DIMENSIONS"     env-default:"384"`
	MaxConcurrent int           `yaml:"max_concurrent" env:"EMBEDDING_MAX_CONCURRENT" env-default:"3"`
	Timeout       time.Duration `yaml:"timeout"        env:"EMBEDDING_TIMEOUT"        env-default:"30s"`
	MaxRetries    int           `yaml:"max_retries"    env:"EMBEDDING_MAX_RETRIES"`
}

// LLMConfig holds the answering model for the QA tool.
type LLMConfig struct {
	Model string `yaml:"model" env:"LLM_MODEL" env-default:"phi3-mini"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// Defaults returns the values of the fields for which zero is valid. Load
// starts from them so that an explicit zero in YAML or the environment
// survives.
func Defaults() Config {
	return Config{
		Processing: ProcessingConfig{
			Workers:       1,
			ContextRadius: 200,
			ProgressEvery: 100,
		},
		Embedding: EmbeddingConfig{
			MaxRetries: 3,
		},
	}
}
