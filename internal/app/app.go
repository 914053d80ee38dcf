package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nsqio/go-nsq"

	"ragseed/features/seeding"
	"ragseed/features/seedlog"
	"ragseed/features/source"
	"ragseed/features/stats"
	"ragseed/internal/config"
	"ragseed/internal/extract"
	"ragseed/internal/middleware"
	"ragseed/internal/seed"
	"ragseed/internal/text"
	"ragseed/internal/worker"
)

type App struct {
	Handler       http.Handler
	SourceService *source.Service
	SeedLogs      *seedlog.Service
	Coordinator   *seed.Coordinator
	SeedConsumer  *worker.SeedConsumer

	port int
}

func New(cfg *config.Config, deps *Dependencies, logger *slog.Logger) (*App, error) {
	if deps == nil || deps.DB == nil || deps.Store == nil || deps.Embedder == nil || deps.Renderer == nil {
		return nil, fmt.Errorf("%w: incomplete dependencies", config.ErrMissingRequired)
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Feature: Source
	sourceRepo := source.NewPostgresRepo(deps.DB)
	sourceService := source.NewService(sourceRepo, cfg.DocsRoot)
	sourceHandler := source.NewHandler(sourceService, cfg.MaxUploadSizeMB<<20)

	// Feature: Seed logs
	logRepo := seedlog.NewPostgresRepo(deps.DB)
	logService := seedlog.NewService(logRepo, cfg.SeedLogPageSize)
	logHandler := seedlog.NewHandler(logService)

	// Pipeline
	extractor := extract.New(cfg.DocsRoot, deps.Renderer,
		extract.WithFetchTimeout(cfg.FetchTimeout()),
		extract.WithLogger(logger),
	)
	runner := seed.NewRunner(
		extractor,
		text.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		deps.Embedder,
		deps.Store,
		sourceRepo,
		logRepo,
		seed.WithSkipExisting(cfg.SkipExisting),
		seed.WithLogger(logger),
	)
	coordinator := seed.NewCoordinator(runner, logger)

	// Feature: Seeding
	var pub seeding.Publisher
	if deps.Publisher != nil {
		pub = deps.Publisher
	}
	seedHandler := seeding.NewHandler(sourceService, coordinator, pub)

	// Feature: Stats
	statsHandler := stats.NewHandler(sourceRepo, logRepo, deps.Store)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /sources", middleware.CorrelationID(enableCORS(sourceHandler.Create)))
	mux.Handle("POST /sources/upload", middleware.CorrelationID(enableCORS(sourceHandler.Upload)))
	mux.Handle("GET /sources", middleware.CorrelationID(enableCORS(sourceHandler.List)))
	mux.Handle("GET /sources/{id}", middleware.CorrelationID(enableCORS(sourceHandler.Get)))

	mux.Handle("POST /seed", middleware.CorrelationID(enableCORS(seedHandler.Seed)))
	mux.Handle("GET /seed/stream", middleware.CorrelationID(enableCORS(seedHandler.Stream)))
	mux.Handle("POST /seed/async", middleware.CorrelationID(enableCORS(seedHandler.Enqueue)))
	mux.Handle("GET /seed/logs", middleware.CorrelationID(enableCORS(logHandler.List)))

	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Worker (Seed Consumer) Setup
	var seedConsumer *worker.SeedConsumer
	if pub != nil {
		seedConsumer = worker.NewSeedConsumer(sourceService, coordinator, deps.Publisher)
	}

	return &App{
		Handler:       mux,
		SourceService: sourceService,
		SeedLogs:      logService,
		Coordinator:   coordinator,
		SeedConsumer:  seedConsumer,
		port:          cfg.ServerPort,
	}, nil
}

// StartWorker subscribes the seed consumer to the request topic. The caller
// stops the returned consumer on shutdown.
func (a *App) StartWorker(cfg *config.Config) (*nsq.Consumer, error) {
	if a.SeedConsumer == nil {
		return nil, fmt.Errorf("%w: NSQ publisher", config.ErrMissingRequired)
	}

	nsqCfg := nsq.NewConfig()
	// One batch at a time keeps sources strictly sequential across requests.
	nsqCfg.MaxInFlight = 1
	consumer, err := nsq.NewConsumer(config.TopicSeedRequest, config.ChannelSeedWorker, nsqCfg)
	if err != nil {
		return nil, fmt.Errorf("nsq consumer error: %w", err)
	}
	consumer.AddHandler(a.SeedConsumer)

	if cfg.NSQLookupd != "" {
		err = consumer.ConnectToNSQLookupd(cfg.NSQLookupd)
	} else {
		err = consumer.ConnectToNSQD(cfg.NSQDHost)
	}
	if err != nil {
		consumer.Stop()
		return nil, fmt.Errorf("nsq connect error: %w", err)
	}
	slog.Info("NSQ seed consumer connected", "topic", config.TopicSeedRequest)
	return consumer, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
