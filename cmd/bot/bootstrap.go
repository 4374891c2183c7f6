package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"mech-trading-bot/internal/broker/brokerobs"
	"mech-trading-bot/internal/broker/zerodha"
	"mech-trading-bot/internal/engine"
	"mech-trading-bot/internal/engine/engineobs"
	"mech-trading-bot/internal/eod"
	"mech-trading-bot/internal/interfaces"
	"mech-trading-bot/internal/logger"
	"mech-trading-bot/internal/store"
	"mech-trading-bot/internal/trace"
	"mech-trading-bot/internal/tradelog"
)

// initializeSystem loads the environment and brings up logging and tracing.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

func loadConfig(ctx context.Context) (*store.Config, error) {
	path := os.Getenv("TRADER_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	tradelog.SetLocation(loc)
	eod.SetLocation(loc)

	return cfg, nil
}

// compressOldLogs gzips trade logs past the configured retention.
func compressOldLogs(ctx context.Context) {
	if v := os.Getenv("TRADER_LOG_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if err := tradelog.CompressOlder(n); err != nil {
			logger.Warn(ctx, "Failed to compress old logs", "error", err)
		}
	}
}

// initializeBroker builds the Zerodha adapter and wraps its ports with
// observability middleware.
func initializeBroker(ctx context.Context, cfg *store.Config) (interfaces.MarketData, interfaces.Gateway, interfaces.TradeHistory) {
	brk := zerodha.NewZerodha(zerodha.Params{
		Mode:             cfg.Mode,
		APIKey:           os.Getenv("KITE_API_KEY"),
		AccessToken:      os.Getenv("KITE_ACCESS_TOKEN"),
		Exchange:         cfg.Exchange,
		DataSource:       cfg.DataSource,
		TimeframeMinutes: cfg.TimeframeMinutes,
	})

	if cfg.Mode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
	}
	if cfg.DataSource == "LIVE" {
		logger.Info(ctx, "Using LIVE bar data from Zerodha")
	} else {
		logger.Info(ctx, "Using STATIC synthetic bar data")
	}

	return brokerobs.WrapMarketData(brk), brokerobs.WrapGateway(brk), brk
}

// initializeController assembles the decision engine behind its tracing
// wrapper.
func initializeController(ctx context.Context, cfg *store.Config, md interfaces.MarketData, hist interfaces.TradeHistory, gw interfaces.Gateway) (interfaces.Controller, error) {
	eng, err := engine.New(ctx, cfg, md, hist, gw)
	if err != nil {
		return nil, err
	}
	return engineobs.Wrap(eng), nil
}
