package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kelseyhightower/envconfig"

	"cardledger/internal/common/database"
	"cardledger/internal/common/middleware"
	"cardledger/internal/common/nats"
	"cardledger/internal/customer"
	"cardledger/internal/ledger"
	"cardledger/internal/ledger/api"
	"cardledger/internal/ledger/store"
	"cardledger/migrations"
)

// Config holds service configuration.
type Config struct {
	Port        int    `envconfig:"CARDLEDGER_PORT" default:"8080"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`

	// StoreDriver selects the card store: "postgres" or "memory". The
	// memory driver is for single-process deployments and local runs.
	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`

	// AuditEvents controls whether operation outcomes are published to
	// NATS. The ledger runs fine without them.
	AuditEvents bool `envconfig:"AUDIT_EVENTS" default:"true"`

	Database database.Config
	NATS     nats.Config
}

func main() {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to process config: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Stores
	var (
		cardStore     ledger.Store
		customerStore customer.Store
		db            *database.DB
	)

	switch cfg.StoreDriver {
	case "memory":
		cardStore = store.NewMemory()
		customerStore = customer.NewMemoryStore()
		logger.Warn("using in-memory store, state is not durable")
	default:
		if cfg.Database.URL == "" {
			logger.Error("DATABASE_URL is required for the postgres store driver")
			os.Exit(1)
		}

		if err := database.Migrate(cfg.Database.URL, migrations.FS, logger); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}

		var err error
		db, err = database.New(ctx, cfg.Database, logger)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		cardStore = store.NewPostgres(db)
		customerStore = customer.NewPostgresStore(db)
	}

	// Audit notifier
	var notifier ledger.Notifier = ledger.NopNotifier{}
	if cfg.AuditEvents {
		nc, err := nats.New(ctx, cfg.NATS, logger)
		if err != nil {
			logger.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer nc.Close()

		if err := nc.EnsureStream(ctx, "CARDLEDGER", []string{"events.card.>"}); err != nil {
			logger.Error("failed to ensure event stream", "error", err)
			os.Exit(1)
		}

		notifier = ledger.NewEventNotifier(nats.NewPublisher(nc, logger), logger)
	}

	// Services
	customerService := customer.NewService(customerStore, logger)
	ledgerService := ledger.NewService(cardStore, customerService, notifier, logger)

	// Router
	handler := api.NewHandler(ledgerService, customerService)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.HealthCheck(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unhealthy"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/", handler.Routes())
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting card ledger service",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"store_driver", cfg.StoreDriver,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
