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
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/kartify/catalog-scraper/internal/api"
	"github.com/kartify/catalog-scraper/internal/browser"
	"github.com/kartify/catalog-scraper/internal/config"
	"github.com/kartify/catalog-scraper/internal/extractor"
	"github.com/kartify/catalog-scraper/internal/jobs"
	"github.com/kartify/catalog-scraper/internal/queue"
	"github.com/kartify/catalog-scraper/internal/robots"
	"github.com/kartify/catalog-scraper/internal/sanitizer"
	"github.com/kartify/catalog-scraper/internal/scraper"
	"github.com/kartify/catalog-scraper/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.New(ctx, store.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// The browser process is shared and lazily launched on the first
	// scrape; explicit teardown happens on shutdown.
	session := browser.NewSession(&browser.Options{
		Headless:          cfg.Browser.Headless,
		UserAgent:         cfg.Target.UserAgent,
		ViewportWidth:     cfg.Browser.ViewportWidth,
		ViewportHeight:    cfg.Browser.ViewportHeight,
		NavigationTimeout: cfg.Scraper.NavigationTimeout,
		ReadyTimeout:      cfg.Scraper.ReadyTimeout,
		RequestDelay:      cfg.Scraper.RequestDelay,
	})
	defer session.Close()

	gate := robots.NewGate(cfg.Target.BaseURL, nil)

	sanitizerOpts := sanitizer.DefaultOptions()
	sanitizerOpts.SKUPrefix = cfg.Scraper.SKUPrefix
	sanitizerOpts.SiteSuffix = cfg.Scraper.SiteSuffix

	service := scraper.NewService(gate, session, extractor.NewEngine(), sanitizer.New(sanitizerOpts), scraper.Options{
		TargetDomain: cfg.Target.Domain,
		UserAgent:    cfg.Target.UserAgent,
		MaxBatchSize: cfg.Scraper.MaxBatchSize,
	})

	jobQueue := buildQueue(ctx, cfg, logger)
	defer jobQueue.Close()

	jobManager := jobs.NewManager(jobQueue, service, db, cfg.Scraper.MaxBatchSize)
	go jobManager.StartWorker(ctx)

	handlers := api.NewHandlers(service, jobManager, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","queued_jobs":%d}`, jobQueue.Size())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/scrape", handlers.ScrapeSingle)
		r.Post("/scrape/batch", handlers.ScrapeBatch)
		r.Post("/jobs", handlers.CreateJob)
		r.Get("/jobs/{jobID}", handlers.GetJob)
		r.Get("/status", handlers.GetStatus)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "addr", server.Addr, "target", cfg.Target.Domain)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func buildQueue(ctx context.Context, cfg *config.Config, logger *slog.Logger) queue.Queue {
	if cfg.Redis.Addr == "" {
		return queue.NewInMemoryQueue()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, using in-memory queue", "addr", cfg.Redis.Addr, "error", err)
		client.Close()
		return queue.NewInMemoryQueue()
	}

	logger.Info("using redis job queue", "addr", cfg.Redis.Addr)
	return queue.NewRedisQueue(client, "")
}

func logLevel() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
