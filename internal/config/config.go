package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrMissingRequired = errors.New("missing required configuration")
	ErrInvalidValue    = errors.New("invalid configuration value")
)

const (
	StoreWeaviate = "weaviate"
	StoreBadger   = "badger"

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	RendererChrome = "chrome"
	RendererHTTP   = "http"
)

// Output sizes of each provider's default embedding model.
const (
	DefaultOpenAIDimension = 1536
	DefaultGeminiDimension = 3072
)

// DefaultDimension returns the vector size of the provider's default model,
// or 0 for an unknown provider.
func DefaultDimension(provider string) int {
	switch provider {
	case ProviderOpenAI:
		return DefaultOpenAIDimension
	case ProviderGemini:
		return DefaultGeminiDimension
	}
	return 0
}

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"ragseed"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"ragseed"`

	// Content store
	StoreBackend   string `envconfig:"STORE_BACKEND" default:"weaviate"`
	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`
	BadgerPath     string `envconfig:"BADGER_PATH" default:"data/badger"`

	NSQLookupd       string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost         string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP         string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`
	NSQMaxMsgSize    int64  `envconfig:"NSQ_MAX_MSG_SIZE" default:"10485760"` // 10MB
	EnableAPI        bool   `envconfig:"ENABLE_API" default:"true"`
	EnableSeedWorker bool   `envconfig:"ENABLE_SEED_WORKER" default:"false"`

	// Embeddings
	EmbeddingProvider   string  `envconfig:"EMBEDDING_PROVIDER" default:"openai"`
	EmbeddingModel      string  `envconfig:"EMBEDDING_MODEL"`
	EmbeddingDimension  int     `envconfig:"EMBEDDING_DIMENSION"` // 0 = provider default
	OpenAIAPIKey        string  `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string  `envconfig:"OPENAI_BASE_URL"`
	GeminiAPIKey        string  `envconfig:"GEMINI_API_KEY"`
	EmbedTimeoutSeconds int     `envconfig:"EMBED_TIMEOUT_SECONDS" default:"60"`
	EmbedRatePerSecond  float64 `envconfig:"EMBED_RATE_PER_SECOND" default:"0"`
	EmbedRateBurst      int     `envconfig:"EMBED_RATE_BURST" default:"1"`

	// Extraction
	DocsRoot            string `envconfig:"DOCS_ROOT" default:"./docs"`
	Renderer            string `envconfig:"RENDERER" default:"chrome"`
	ChromePath          string `envconfig:"CHROME_PATH"`
	FetchTimeoutSeconds int    `envconfig:"FETCH_TIMEOUT_SECONDS" default:"15"`

	// Pipeline
	ChunkSize       int  `envconfig:"CHUNK_SIZE" default:"512"`
	ChunkOverlap    int  `envconfig:"CHUNK_OVERLAP" default:"100"`
	SkipExisting    bool `envconfig:"SKIP_EXISTING" default:"false"`
	SeedLogPageSize int  `envconfig:"SEED_LOG_PAGE_SIZE" default:"20"`

	// Server
	ServerPort      int    `envconfig:"SERVER_PORT" default:"8081"`
	MaxUploadSizeMB int64  `envconfig:"MAX_UPLOAD_SIZE_MB" default:"50"`
	MigrationPath   string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Ignore errors, as env vars might be set in the shell
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	_ = godotenv.Load(filepath.Join(cwd, "../.env"))

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}
	if cfg.EmbeddingDimension == 0 {
		cfg.EmbeddingDimension = DefaultDimension(cfg.EmbeddingProvider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}

	switch c.StoreBackend {
	case StoreWeaviate, StoreBadger:
	default:
		return fmt.Errorf("%w: STORE_BACKEND=%q", ErrInvalidValue, c.StoreBackend)
	}

	switch c.EmbeddingProvider {
	case ProviderOpenAI:
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY", ErrMissingRequired)
		}
	default:
		return fmt.Errorf("%w: EMBEDDING_PROVIDER=%q", ErrInvalidValue, c.EmbeddingProvider)
	}

	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("%w: EMBEDDING_DIMENSION must be positive", ErrInvalidValue)
	}

	switch c.Renderer {
	case RendererChrome, RendererHTTP:
	default:
		return fmt.Errorf("%w: RENDERER=%q", ErrInvalidValue, c.Renderer)
	}

	if c.ChunkSize <= 0 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: CHUNK_OVERLAP must be smaller than CHUNK_SIZE", ErrInvalidValue)
	}
	return nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPass, c.DBName)
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

func (c *Config) EmbedTimeout() time.Duration {
	return time.Duration(c.EmbedTimeoutSeconds) * time.Second
}
