package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/formnav/formnav/internal/api"
	"github.com/formnav/formnav/internal/browser"
	"github.com/formnav/formnav/internal/config"
	"github.com/formnav/formnav/internal/llm"
	"github.com/formnav/formnav/internal/navigator"
	"github.com/formnav/formnav/internal/observability"
	"github.com/formnav/formnav/internal/registry"
	"github.com/formnav/formnav/internal/repository/postgres"
	rediscache "github.com/formnav/formnav/internal/repository/redis"
	"github.com/formnav/formnav/internal/resolver"
	"github.com/formnav/formnav/internal/search"
	"github.com/formnav/formnav/internal/service"
	"github.com/formnav/formnav/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(string(cfg.Env), cfg.GetLogLevel())
	defer logger.Sync()

	logger.Info("Starting FormNav API",
		zap.String("version", cfg.App.Version),
		zap.String("environment", string(cfg.Env)),
	)

	// Connect to PostgreSQL (optional, resolution audit log)
	var db *postgres.DB
	var store *postgres.ResolutionRepository
	if cfg.Database.Enabled {
		db, err = postgres.New(cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		store = postgres.NewResolutionRepository(db.DB)
		logger.Info("Connected to PostgreSQL",
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
		)
	}

	// Connect to Redis (optional, LLM cache + rate limiting)
	var cache *rediscache.Cache
	if cfg.Redis.Enabled {
		cache, err = rediscache.New(cfg.Redis)
		if err != nil {
			logger.Warn("Failed to connect to Redis, caching disabled", zap.Error(err))
			cache = nil
		} else {
			defer cache.Close()
			logger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr()))
		}
	}

	// Gemini client, cached through Redis when available
	llmCfg := llm.Config{
		APIKey:       cfg.Gemini.APIKey,
		BaseURL:      cfg.Gemini.BaseURL,
		Model:        cfg.Gemini.Model,
		Timeout:      cfg.Gemini.Timeout,
		RateLimitRPM: cfg.Gemini.RateLimitRPM,
		CacheTTL:     cfg.Gemini.CacheTTL,
		MaxRetries:   cfg.Gemini.MaxRetries,
	}
	var llmClient resolver.LLMClient
	if cache != nil {
		cached, err := llm.NewCachedClient(llmCfg, cache.Client(), logger)
		if err != nil {
			logger.Fatal("Failed to create Gemini client", zap.Error(err))
		}
		llmClient = cached
	} else {
		direct, err := llm.NewGeminiClient(llmCfg)
		if err != nil {
			logger.Fatal("Failed to create Gemini client", zap.Error(err))
		}
		llmClient = direct
	}

	// Forms registry
	reg, err := registry.Load(cfg.Registry.Path)
	if err != nil {
		logger.Fatal("Failed to load forms registry", zap.Error(err))
	}
	logger.Info("Loaded forms registry",
		zap.String("path", cfg.Registry.Path),
		zap.Int("entries", reg.Len()),
	)

	// Candidate strategies
	searchClient := search.NewDuckDuckGoClient(search.Config{
		Endpoint:  cfg.Search.Endpoint,
		UserAgent: cfg.Browser.UserAgent,
		Timeout:   cfg.Search.Timeout,
	})
	aggregator := resolver.NewAggregator([]resolver.Strategy{
		resolver.NewKnownFormsStrategy(),
		resolver.NewSynonymStrategy(nil),
		resolver.NewAIIntentStrategy(llmClient, logger),
		resolver.NewWebSearchStrategy(searchClient, cfg.Search.GovDomainPatterns, cfg.Search.MaxResults, logger),
	}, logger)

	// Browser factory, verifier, navigator
	browserCfg := browser.DefaultConfig()
	browserCfg.UserAgent = cfg.Browser.UserAgent
	browserCfg.Locale = cfg.Browser.Locale
	browserCfg.Timezone = cfg.Browser.TimezoneID
	browserCfg.ViewportW = cfg.Browser.Width
	browserCfg.ViewportH = cfg.Browser.Height
	browserCfg.SettleDelay = cfg.Resolver.SettleDelay
	factory := browser.NewFactory(browserCfg)
	defer factory.Close()

	detector := navigator.NewDetector(navigator.DefaultDetectorConfig())
	verifier := navigator.NewVerifier(factory, detector, logger)
	nav := navigator.New(factory, detector, llmClient, navigator.NewRealClock(), navigator.Config{
		MaxAttempts:       cfg.Resolver.MaxAttempts,
		LoginWaitInterval: cfg.Resolver.LoginWaitInterval,
		LoginWaitMaxPolls: cfg.Resolver.LoginWaitMaxPolls,
		SettleDelay:       cfg.Resolver.SettleDelay,
	}, logger)

	// Step screenshots (optional)
	if cfg.Storage.Enabled {
		screenshots, err := storage.NewScreenshotStore(cfg.Storage)
		if err != nil {
			logger.Warn("Failed to create screenshot store, screenshots disabled", zap.Error(err))
		} else if err := screenshots.EnsureBucket(context.Background()); err != nil {
			logger.Warn("Failed to ensure screenshot bucket, screenshots disabled", zap.Error(err))
		} else {
			nav.SetScreenshotStore(screenshots)
			logger.Info("Screenshot storage enabled", zap.String("bucket", cfg.Storage.Bucket))
		}
	}

	metrics := observability.NewMetrics("formnav")

	var audit service.AuditStore
	if store != nil {
		audit = store
	}
	svc := service.New(aggregator, reg, verifier, nav, audit, metrics, cfg.Resolver.MaxCandidates, logger)

	// Create router
	routerCfg := api.RouterConfig{
		Resolver:   svc,
		DB:         db,
		Cache:      cache,
		Metrics:    metrics,
		Logger:     logger,
		EnableCORS: cfg.Server.EnableCORS,
		RateLimit:  cfg.Server.RateLimit,
	}
	// A typed nil behind the interface would defeat the handler's nil check
	if store != nil {
		routerCfg.Store = store
	}
	router := api.NewRouter(routerCfg)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("API server listening", zap.String("addr", addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatal("Server error", zap.Error(err))

	case sig := <-shutdown:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Create shutdown context with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed, forcing close", zap.Error(err))
			server.Close()
		}

		logger.Info("Server stopped gracefully")
	}
}

// initLogger creates a configured zap logger
func initLogger(env, level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	var config zap.Config
	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := config.Build()
	if err != nil {
		// Fall back to basic logger
		logger, _ = zap.NewProduction()
	}

	return logger
}
