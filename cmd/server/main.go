package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"soundcrate/internal/auth"
	"soundcrate/internal/circuitbreaker"
	"soundcrate/internal/config"
	"soundcrate/internal/downloader"
	"soundcrate/internal/fetcher"
	"soundcrate/internal/handlers"
	"soundcrate/internal/metrics"
	"soundcrate/internal/search"
	"soundcrate/internal/server"
	"soundcrate/internal/store"
)

func main() {
	// Parse command-line flags
	configFile := flag.String("config", "", "Path to config file (overrides CONFIG_FILE env var)")
	flag.Parse()

	// Load environment variables from file
	loadEnvFile(*configFile)

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("failed to init logger:", err)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx := context.Background()

	// Initialize metrics
	m := metrics.New()
	m.StartRuntimeMetricsCollector()

	// Initialize circuit breakers
	fetchBreaker := circuitbreaker.New("fetch", cfg, m)
	searchBreaker := circuitbreaker.New("search", cfg, m)
	logger.Info("initialized circuit breakers",
		zap.String("fetch", fetchBreaker.Name()),
		zap.String("search", searchBreaker.Name()))

	// Initialize the persistence store
	st, err := store.New(logger, m, cfg)
	if err != nil {
		logger.Fatal("failed to initialize store", zap.Error(err))
	}
	logger.Info("initialized store", zap.String("base_dir", cfg.BaseDir))

	// Initialize the sample fetcher
	f, err := fetcher.New(ctx, cfg, m, fetchBreaker)
	if err != nil {
		logger.Fatal("failed to initialize fetcher", zap.Error(err))
	}

	// Initialize the optional search cache
	var cache *search.Cache
	if cfg.RedisURL != "" {
		cache, err = search.NewCache(ctx, cfg)
		if err != nil {
			logger.Fatal("failed to initialize search cache", zap.Error(err))
		}
		defer cache.Close()
		logger.Info("initialized search cache")
	}

	searchClient := search.NewHTTPClient(logger, m, searchBreaker, cfg, cache)

	// Initialize the download manager
	manager := downloader.NewManager(logger, m, f, cfg)

	// Initialize auth verifier
	verifier := auth.NewVerifier(cfg.SigningSecret, cfg.EnforceSigning, m)

	// Initialize and start server
	srv := server.New(logger, cfg, m, verifier, server.Handlers{
		Download: handlers.NewDownloadHandler(logger, manager, m, cfg.SamplesDir),
		Bookmark: handlers.NewBookmarkHandler(logger, st, manager, m),
		Preset:   handlers.NewPresetHandler(logger, st, manager, m),
		Search:   handlers.NewSearchHandler(logger, searchClient, m),
		Health:   handlers.NewHealthHandler(logger, st, f, cache, m),
	})
	if err := srv.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	// Wait for shutdown signal
	if err := srv.WaitForShutdown(); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

// loadEnvFile loads environment variables from a file
// Priority: --config flag > CONFIG_FILE env var > .env file
// Silently continues if file doesn't exist (falls back to OS env vars)
func loadEnvFile(flagConfigFile string) {
	var configFile string

	// 1. Check --config flag
	if flagConfigFile != "" {
		configFile = flagConfigFile
	} else {
		// 2. Check CONFIG_FILE env var
		configFile = os.Getenv("CONFIG_FILE")
	}

	// 3. Try specified file or default to .env
	if configFile != "" {
		// User specified a file - fail if it doesn't exist
		if err := godotenv.Load(configFile); err != nil {
			log.Fatalf("failed to load config file %s: %v", configFile, err)
		}
		log.Printf("loaded config from: %s", configFile)
	} else {
		// Try .env but don't error if it doesn't exist
		if err := godotenv.Load(); err == nil {
			log.Println("loaded config from: .env")
		}
		// Silently continue if .env doesn't exist - will use OS env vars
	}
}
