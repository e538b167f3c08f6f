package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"newsletter-finder/config"
	"newsletter-finder/internal/api"
	"newsletter-finder/internal/db"
	"newsletter-finder/internal/llm"
	"newsletter-finder/internal/search"
	"newsletter-finder/internal/store"
	"newsletter-finder/internal/verify"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "newsletter-finder ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Upstream.APIKey == "" {
		logger.Fatalf("upstream API key must be configured. Set upstream.api_key or UPSTREAM_API_KEY.")
	}

	// The verification log is optional.
	var appStore store.Store
	var recorder verify.Recorder
	if cfg.Database.DSN != "" {
		gormDB, err := db.Init(&cfg.Database)
		if err != nil {
			logger.Fatalf("failed to initialize database: %v", err)
		}
		appStore = store.NewGormStore(gormDB)
		recorder = appStore
		logger.Println("verification log enabled")
	} else {
		logger.Println("database.dsn is empty; verification log disabled")
	}

	upstream := llm.NewClient(cfg.Upstream)
	session := search.NewSession(upstream)
	verifier := verify.NewVerifier(upstream, cfg.Verifier.Concurrency, recorder)

	handler := api.NewHandler(session, verifier, appStore, int64(cfg.Server.MaxUploadMB)<<20)
	router := api.NewRouter(cfg.Server, handler)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
