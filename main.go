package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smc-advisor/config"
	"smc-advisor/internal/api"
	"smc-advisor/internal/autopilot"
	"smc-advisor/internal/database"
	"smc-advisor/internal/events"
	"smc-advisor/internal/logging"
	"smc-advisor/internal/marketdata"
)

const cachePurgeInterval = 5 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(&logging.Config{
		Level:       cfg.LoggingConfig.Level,
		Output:      cfg.LoggingConfig.Output,
		JSONFormat:  cfg.LoggingConfig.JSONFormat,
		IncludeFile: cfg.LoggingConfig.IncludeFile,
		MaxSizeMB:   cfg.LoggingConfig.MaxSizeMB,
		MaxBackups:  cfg.LoggingConfig.MaxBackups,
		MaxAgeDays:  cfg.LoggingConfig.MaxAgeDays,
		Component:   "main",
	})
	logging.SetDefault(logger)
	logger.Info("Structured logging initialized", "level", cfg.LoggingConfig.Level)

	// Load analysis tuning
	tuning, err := config.LoadAnalysisProfile(cfg.AnalysisConfig.ProfilePath)
	if err != nil {
		logger.Fatal("Failed to load analysis profile", "path", cfg.AnalysisConfig.ProfilePath, "error", err)
	}
	logger.Info("Analysis profile loaded", "path", cfg.AnalysisConfig.ProfilePath, "policy", string(tuning.Policy))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize event bus
	eventBus := events.NewEventBus()

	// Market data: Binance behind a candle cache
	binance := marketdata.NewBinanceSource(marketdata.BinanceConfig{
		APIKey:    cfg.BinanceConfig.APIKey,
		SecretKey: cfg.BinanceConfig.SecretKey,
		BaseURL:   cfg.BinanceConfig.BaseURL,
	})
	candleCache, closeCache := newCandleCache(ctx, cfg, logger)
	defer closeCache()
	clock := autopilot.SystemClock{}
	source := marketdata.NewCachedSource(binance, candleCache)
	source.SetClock(clock)

	// Core services
	zl := logger.Zerolog()
	generator, err := autopilot.NewGenerator(source, source, autopilot.NewMathRandSource(time.Now().UnixNano()),
		clock, tuning, zl)
	if err != nil {
		logger.Fatal("Failed to create trade generator", "error", err)
	}
	detector, err := autopilot.NewReversalDetector(source, source, clock, tuning, zl)
	if err != nil {
		logger.Fatal("Failed to create reversal detector", "error", err)
	}

	deps := api.Dependencies{
		Generator: generator,
		Reversals: detector,
		Analysis:  source,
		EventBus:  eventBus,
		Tuning:    tuning,
	}

	// Persistence is optional
	if cfg.DatabaseConfig.Enabled() {
		db, err := database.NewDB(ctx, cfg.DatabaseConfig, zl)
		if err != nil {
			logger.Fatal("Failed to connect to database", "error", err)
		}
		defer db.Close()

		if err := db.RunMigrations(ctx); err != nil {
			logger.Fatal("Failed to run migrations", "error", err)
		}

		repo := database.NewRepository(db)
		generator.SetRecorder(repo)
		detector.SetRecorder(repo)
		deps.Store = repo
	} else {
		logger.Warn("No database configured, trade history is disabled")
	}

	readTimeout, writeTimeout, shutdownTimeout := cfg.ServerConfig.Timeouts()
	server, err := api.NewServer(api.ServerConfig{
		Port:               cfg.ServerConfig.Port,
		Host:               cfg.ServerConfig.Host,
		ProductionMode:     os.Getenv("GIN_MODE") == "release",
		AllowedOrigins:     cfg.ServerConfig.Origins(),
		ReadTimeout:        readTimeout,
		WriteTimeout:       writeTimeout,
		DefaultCandleLimit: cfg.AnalysisConfig.RequestLimit,
	}, deps, logger)
	if err != nil {
		logger.Fatal("Failed to create API server", "error", err)
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("HTTP server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down web server", "error", err)
	}

	logger.Info("Shutdown complete")
}

// newCandleCache picks Redis when enabled, else the in-process cache when
// allowed, else no cache. The returned func releases it.
func newCandleCache(ctx context.Context, cfg *config.Config, logger *logging.Logger) (marketdata.CandleCache, func()) {
	if cfg.RedisConfig.Enabled {
		rc, err := marketdata.NewRedisCandleCache(cfg.RedisConfig, logger.Zerolog())
		if err != nil {
			logger.Warn("Redis cache unavailable, continuing without it", "error", err)
			return nil, func() {}
		}
		return rc, func() {
			if err := rc.Close(); err != nil {
				logger.Warn("Failed to close Redis", "error", err)
			}
		}
	}

	if !cfg.AnalysisConfig.MemoryCache {
		return nil, func() {}
	}

	mc := marketdata.NewMemoryCandleCache()
	go func() {
		ticker := time.NewTicker(cachePurgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := mc.Purge(); n > 0 {
					logger.Debug("Purged expired candle sets", "count", n)
				}
			}
		}
	}()
	return mc, func() {}
}
