package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"fambudget/internal/amqp"
	"fambudget/internal/config"
	apphttp "fambudget/internal/http"
	"fambudget/internal/ledger"
	applog "fambudget/internal/log"
	"fambudget/internal/storage"
	"fambudget/internal/tenancy"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	var (
		store     ledger.Store
		directory tenancy.Directory
	)
	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
		store, directory = repo, repo
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	default:
		mem := storage.NewMemoryStore()
		store, directory = mem, mem
		logger.Info("Initialized memory backend")
	}

	engine := ledger.NewEngine(store)
	resolver := tenancy.NewResolver(directory)
	sessions := tenancy.NewSessions(cfg.JWTSecret, cfg.JWTTTL)

	// Ledger events are best effort: a dead broker disables auditing but
	// never blocks the API.
	var publisher apphttp.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, ledger events disabled", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = apphttp.NewAMQPPublisher(amqpClient)
		}
	}

	srv := apphttp.NewServer(engine, resolver, apphttp.Options{
		Addr:           ":" + cfg.Port,
		BotToken:       cfg.TelegramBotToken,
		Sessions:       sessions,
		Directory:      directory,
		Publisher:      publisher,
		RequestsPerMin: cfg.RateLimitRPS * 60,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting fambudget server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
