package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	badgerstore "ragseed/internal/adapter/badger"
	"ragseed/internal/adapter/browser"
	"ragseed/internal/adapter/gemini"
	"ragseed/internal/adapter/openai"
	wstore "ragseed/internal/adapter/weaviate"
	"ragseed/internal/config"
	"ragseed/internal/embedding"
	"ragseed/internal/extract"
	"ragseed/internal/seed"
	"ragseed/internal/worker"
)

// ContentStore is the record store as the app uses it: the pipeline writes
// through it and stats read its size.
type ContentStore interface {
	seed.ContentStore
	Count(ctx context.Context) (int, error)
}

type SchemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}

type Dependencies struct {
	DB        *sql.DB
	Store     ContentStore
	Publisher worker.Publisher
	Embedder  seed.Embedder
	Renderer  extract.Renderer

	closers []func() error
}

// Close releases everything Bootstrap opened, in reverse order.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dependencies) onClose(fn func() error) {
	d.closers = append(d.closers, fn)
}

func Bootstrap(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	deps := &Dependencies{}
	fail := func(err error) (*Dependencies, error) {
		if cerr := deps.Close(); cerr != nil {
			slog.Warn("failed to release dependencies", "error", cerr)
		}
		return nil, err
	}

	// Database
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	deps.DB = db
	deps.onClose(db.Close)

	// Retry loop
	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second
	for i := 0; i < cfg.BootstrapRetryAttempts; i++ {
		if err := db.PingContext(ctx); err == nil {
			break
		}
		slog.Warn("failed to ping db, retrying...", "attempt", i+1)
		time.Sleep(retryDelay)
	}
	if err := db.PingContext(ctx); err != nil {
		return fail(fmt.Errorf("failed to ping db: %w", err))
	}

	if err := runMigrations(db, cfg.MigrationPath); err != nil {
		return fail(err)
	}

	// Content store
	switch cfg.StoreBackend {
	case config.StoreBadger:
		store, err := badgerstore.Open(cfg.BadgerPath)
		if err != nil {
			return fail(fmt.Errorf("badger store error: %w", err))
		}
		deps.Store = store
		deps.onClose(store.Close)
	default:
		wClient, err := weaviate.NewClient(weaviate.Config{Host: cfg.WeaviateHost, Scheme: cfg.WeaviateScheme})
		if err != nil {
			return fail(fmt.Errorf("weaviate client error: %w", err))
		}
		store := wstore.NewStore(wClient)
		if err := EnsureSchemaWithRetry(ctx, store, cfg.BootstrapRetryAttempts, retryDelay); err != nil {
			return fail(fmt.Errorf("weaviate schema error: %w", err))
		}
		deps.Store = store
	}

	// Embeddings
	embedder, closeEmbedder, err := NewEmbedder(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	deps.Embedder = embedder
	if closeEmbedder != nil {
		deps.onClose(closeEmbedder)
	}

	// Page rendering
	deps.Renderer, err = NewRenderer(cfg, deps)
	if err != nil {
		return fail(err)
	}

	// NSQ Producer
	producer, err := nsq.NewProducer(cfg.NSQDHost, nsq.NewConfig())
	if err != nil {
		return fail(fmt.Errorf("nsq producer error: %w", err))
	}
	deps.Publisher = producer
	deps.onClose(func() error {
		producer.Stop()
		return nil
	})

	if cfg.NSQDHTTP != "" {
		createTopics(cfg.NSQDHTTP)
	}

	return deps, nil
}

func runMigrations(db *sql.DB, path string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver error: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(path, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migration instance error: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up error: %w", err)
	}
	return nil
}

// NewEmbedder builds the configured provider behind the timeout, rate limit
// and dimension guard. The returned close func may be nil.
func NewEmbedder(ctx context.Context, cfg *config.Config) (seed.Embedder, func() error, error) {
	var (
		provider embedding.Provider
		closer   func() error
	)
	switch cfg.EmbeddingProvider {
	case config.ProviderGemini:
		g, err := gemini.NewEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel)
		if err != nil {
			return nil, nil, fmt.Errorf("gemini embedder error: %w", err)
		}
		provider, closer = g, g.Close
	default:
		o, err := openai.NewEmbedder(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.EmbeddingModel,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("openai embedder error: %w", err)
		}
		provider = o
	}

	guarded := embedding.NewGuarded(provider,
		embedding.WithTimeout(cfg.EmbedTimeout()),
		embedding.WithRateLimit(cfg.EmbedRatePerSecond, cfg.EmbedRateBurst),
		embedding.WithDimension(cfg.EmbeddingDimension),
	)
	slog.Info("embedding provider ready", "provider", cfg.EmbeddingProvider, "model", cfg.EmbeddingModel, "dimension", cfg.EmbeddingDimension)
	return guarded, closer, nil
}

func NewRenderer(cfg *config.Config, deps *Dependencies) (extract.Renderer, error) {
	switch cfg.Renderer {
	case config.RendererHTTP:
		return extract.NewHTTPRenderer(&http.Client{Timeout: cfg.FetchTimeout()}), nil
	case config.RendererChrome:
		r := browser.New(cfg.ChromePath)
		deps.onClose(func() error {
			r.Close()
			return nil
		})
		return r, nil
	default:
		return nil, fmt.Errorf("%w: RENDERER=%q", config.ErrInvalidValue, cfg.Renderer)
	}
}

func createTopics(nsqdHTTP string) {
	create := func(topic string) {
		url := fmt.Sprintf("http://%s/topic/create?topic=%s", nsqdHTTP, topic)
		resp, err := http.Post(url, "application/json", nil) // #nosec G107 -- URL is built from internal NSQ config, not user input
		if err != nil {
			slog.Warn("failed to create NSQ topic", "topic", topic, "error", err)
			return
		}
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close NSQ topic creation response body", "error", closeErr)
		}
	}

	go func() {
		time.Sleep(2 * time.Second)
		create(config.TopicSeedRequest)
		create(config.TopicSeedProgress)
	}()
}

// EnsureSchemaWithRetry delegates schema check to a helper with retry logic.
func EnsureSchemaWithRetry(ctx context.Context, store SchemaEnsurer, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = store.EnsureSchema(ctx); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}
