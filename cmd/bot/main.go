package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mech-trading-bot/internal/eod"
	"mech-trading-bot/internal/logger"
	"mech-trading-bot/internal/trace"
	"mech-trading-bot/internal/trerr"
	"mech-trading-bot/internal/types"
)

// eodCutoffHour is when the end-of-day summary becomes due, exchange-local.
const (
	eodCutoffHour   = 23
	eodCutoffMinute = 30
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	must(initializeSystem())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer trace.Shutdown(ctx)

	cfg, err := loadConfig(ctx)
	must(err)

	compressOldLogs(ctx)

	md, gw, hist := initializeBroker(ctx, cfg)
	ctrl, err := initializeController(ctx, cfg, md, hist, gw)
	must(err)

	if err := md.Start(ctx, []string{cfg.Instrument}); err != nil {
		logger.ErrorWithErr(ctx, "Market data start failed", err)
		os.Exit(1)
	}
	defer md.Stop(ctx)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	poll := time.NewTicker(time.Duration(cfg.PollSeconds) * time.Second)
	defer poll.Stop()
	eodTick := time.NewTicker(60 * time.Second)
	defer eodTick.Stop()

	logger.Info(ctx, "Bot started",
		"instrument", cfg.Instrument,
		"strategy", cfg.StrategyID,
		"mode", cfg.Mode,
	)

	for {
		select {
		case <-poll.C:
			runCycle(ctx, cfg.Instrument, cfg.WindowBars, md, ctrl)
		case <-eodTick.C:
			if ok, _ := eod.ShouldRunNow(eodCutoffHour, eodCutoffMinute); ok {
				if p, err := eod.SummarizeToday(); err == nil && p != "" {
					logger.Info(ctx, "EOD CSV written", "path", p)
				}
			}
		case <-sigc:
			logger.Info(ctx, "Shutting down")
			if p, err := eod.SummarizeToday(); err == nil && p != "" {
				logger.Info(ctx, "EOD CSV written", "path", p)
			}
			return
		case <-ctx.Done():
			return
		}
	}
}

// runCycle feeds every completed bar to the controller, then lets it manage
// any open position on the current quote. The controller ignores bars it has
// already seen.
func runCycle(ctx context.Context, instrument string, windowBars int, md marketData, ctrl controller) {
	bars, err := md.RecentBars(ctx, instrument, windowBars)
	if err != nil {
		logger.Warn(ctx, "Bar fetch failed", "instrument", instrument, "error", err)
		return
	}

	for _, bar := range bars {
		res, err := ctrl.OnBarClosed(ctx, bar)
		if err != nil {
			if trerr.IsRecoverable(err) {
				logger.Debug(ctx, "Cycle skipped", "instrument", instrument, "error", err)
				continue
			}
			logger.ErrorWithErr(ctx, "Bar cycle error", err, "instrument", instrument)
			continue
		}
		reportResult(res)
	}

	quote, err := md.Quote(ctx, instrument)
	if err != nil {
		logger.Warn(ctx, "Quote fetch failed", "instrument", instrument, "error", err)
		return
	}
	res, err := ctrl.OnTick(ctx, quote)
	if err != nil {
		logger.ErrorWithErr(ctx, "Tick cycle error", err, "instrument", instrument)
		return
	}
	reportResult(res)
}

func reportResult(res *types.CycleResult) {
	if res == nil || res.Action == types.ActionNone {
		return
	}
	b, _ := json.Marshal(res)
	fmt.Println(string(b))
}

// Narrow views of the ports used by the poll loop.
type marketData interface {
	RecentBars(ctx context.Context, instrument string, n int) ([]types.Bar, error)
	Quote(ctx context.Context, instrument string) (types.Quote, error)
}

type controller interface {
	OnBarClosed(ctx context.Context, bar types.Bar) (*types.CycleResult, error)
	OnTick(ctx context.Context, quote types.Quote) (*types.CycleResult, error)
}
