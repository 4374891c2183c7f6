package engine

import (
	"context"
	"time"

	"mech-trading-bot/internal/confirm"
	"mech-trading-bot/internal/interfaces"
	"mech-trading-bot/internal/logger"
	"mech-trading-bot/internal/market"
	"mech-trading-bot/internal/news"
	"mech-trading-bot/internal/pattern"
	"mech-trading-bot/internal/risk"
	"mech-trading-bot/internal/session"
	"mech-trading-bot/internal/store"
)

// New wires a fully validated Engine from config and the three boundary
// ports. The news calendar is queried once here to fail fast on bad
// config, then again every bar cycle to keep the gate's windows current.
func New(ctx context.Context, cfg *store.Config, md interfaces.MarketData, hist interfaces.TradeHistory, gw interfaces.Gateway) (*Engine, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	window, err := market.NewWindow(cfg.WindowBars)
	if err != nil {
		return nil, err
	}
	detector, err := pattern.New(pattern.Rule(cfg.Pattern.Rule), cfg.Pattern.VolumeMultiplier)
	if err != nil {
		return nil, err
	}

	var feed newsSource
	if cfg.Session.News.Source != "" {
		feed = news.NewCalendar(cfg)
	}
	gate, err := buildGate(ctx, cfg, feed, loc)
	if err != nil {
		return nil, err
	}

	sizing, err := risk.NewPolicy(cfg.Risk.BaseSize, cfg.Risk.MaxSize, cfg.Risk.Increment, loc)
	if err != nil {
		return nil, err
	}

	tfSeconds := int64(cfg.TimeframeMinutes) * 60
	machine, err := confirm.NewMachine(cfg.Confirmation.ConfirmBars, cfg.Confirmation.DeadlineBars, tfSeconds)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Engine assembled",
		"instrument", cfg.Instrument,
		"strategy", cfg.StrategyID,
		"rule", cfg.Pattern.Rule,
		"timeframe_minutes", cfg.TimeframeMinutes,
		"confirmation", cfg.Confirmation.Enabled,
	)

	return &Engine{
		cfg:            cfg,
		md:             md,
		hist:           hist,
		window:         window,
		detector:       detector,
		gate:           gate,
		news:           feed,
		sizing:         sizing,
		machine:        machine,
		stops:          newStopManager(cfg),
		exec:           newOrderExecutor(gw, cfg.Instrument, cfg.StrategyID),
		loc:            loc,
		tfSeconds:      tfSeconds,
		confirmEnabled: cfg.Confirmation.Enabled,
		exitAfter:      time.Duration(cfg.ExitAfterHours) * time.Hour,
	}, nil
}

func buildGate(ctx context.Context, cfg *store.Config, feed newsSource, loc *time.Location) (*session.Gate, error) {
	weekdays, err := cfg.AllowedWeekdays()
	if err != nil {
		return nil, err
	}
	minImpact, err := session.ParseImpact(cfg.Session.News.MinImpact)
	if err != nil {
		return nil, err
	}

	var windows []session.NewsWindow
	if feed != nil {
		windows, err = feed.Windows(ctx)
		if err != nil {
			return nil, err
		}
	}

	return session.NewGate(session.Config{
		HoursEnabled: cfg.Session.Hours.Enabled,
		StartHour:    cfg.Session.Hours.StartHour,
		EndHour:      cfg.Session.Hours.EndHour,
		Weekdays:     weekdays,
		MinImpact:    minImpact,
		Windows:      windows,
		Location:     loc,
	})
}
