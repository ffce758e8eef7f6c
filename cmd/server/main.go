/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the bakery engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load config (environment, optional .env) and apply flag overrides
  2. Open the SQLite store and load + heal the stored catalog
  3. Optionally seed the demo bakery into an empty store
  4. Build the Service with its observers (metrics, persistence)
  5. Configure the HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides HTTP_PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Flush the pending snapshot write
  4. Close database connection

ENVIRONMENT:
  See config/config.go for every variable and its default.

SEE ALSO:
  - api/server.go: Router configuration
  - bakery/service.go: Commit path
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/bakery-engine/api"
	"github.com/warp/bakery-engine/bakery"
	"github.com/warp/bakery-engine/config"
	"github.com/warp/bakery-engine/extraction"
	"github.com/warp/bakery-engine/generic"
	"github.com/warp/bakery-engine/generic/store"
	"github.com/warp/bakery-engine/logger"
	"github.com/warp/bakery-engine/metrics"
	"github.com/warp/bakery-engine/store/sqlite"
)

func main() {
	port := flag.Int("port", 0, "HTTP server port (overrides HTTP_PORT)")
	dbPath := flag.String("db", "", "SQLite database path (overrides DB_PATH)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		l := logger.New(logger.Config{})
		l.Fatal().Err(err).Msg("invalid configuration")
	}
	if *port != 0 {
		cfg.HTTP.Port = *port
	}
	if *dbPath != "" {
		cfg.DB.Path = *dbPath
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	// Store
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DB.Path).Msg("failed to initialize database")
	}
	defer db.Close()

	today := generic.Today()
	catalog, stored := loadCatalog(db, today, log)

	// Observers
	m := metrics.New("bakery")
	writer := store.NewWriter(db, cfg.DB.PersistDebounce, log.With().Str("component", "writer").Logger())
	writer.OnSave = m.RecordSnapshotWrite
	scheduler := api.NewPersistenceScheduler(writer, log)

	opts := bakery.Options{
		Logger:    log.With().Str("component", "engine").Logger(),
		Observers: []bakery.Observer{m, scheduler},
	}
	var gemini *extraction.GeminiClient
	if cfg.Extraction.Enabled() {
		gemini = extraction.NewGeminiClient(extraction.Config{
			APIKey:  cfg.Extraction.APIKey,
			Model:   cfg.Extraction.Model,
			BaseURL: cfg.Extraction.BaseURL,
			Timeout: cfg.Extraction.Timeout,
			Retries: cfg.Extraction.Retries,
		}, log.With().Str("component", "extraction").Logger())
		opts.Extractor = gemini
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set; uploaded documents will need manual review")
	}

	svc := bakery.NewService(catalog, opts)
	scheduler.Start()

	if stored == 0 && cfg.App.SeedDemo {
		demo, err := api.BuildScenario("bakery", today)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build demo catalog")
		}
		svc.Replace(demo)
		log.Info().Msg("empty store seeded with demo bakery")
	}

	// HTTP
	handler := api.NewHandler(svc, log)
	handler.Storage = db
	handler.Scheduler = scheduler
	if gemini != nil {
		handler.Extraction = gemini
	}
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Metrics:        m,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2*cfg.Extraction.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Str("db", cfg.DB.Path).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := scheduler.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("final snapshot write failed")
	}

	log.Info().Msg("server stopped")
}

// loadCatalog reads and heals the stored catalog. Collections that fail to
// decode are logged and start empty; the rest load normally.
func loadCatalog(db *sqlite.Store, today generic.Date, log zerolog.Logger) (*bakery.Catalog, int) {
	stored, err := db.LoadCollections(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read stored catalog")
	}
	catalog, keyErrs := bakery.LoadCatalog(stored, today)
	for _, ke := range keyErrs {
		log.Error().Str("key", ke.Key).Err(ke.Err).Msg("stored collection could not be decoded")
	}
	log.Info().
		Int("collections", len(stored)).
		Int("ingredients", len(catalog.Ingredients)).
		Int("skus", len(catalog.SKUs)).
		Int("remitos", len(catalog.Remitos)).
		Msg("catalog loaded")
	return catalog, len(stored)
}
