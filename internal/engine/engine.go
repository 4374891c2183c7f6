package engine

import (
	"context"
	"time"

	"mech-trading-bot/internal/confirm"
	"mech-trading-bot/internal/interfaces"
	"mech-trading-bot/internal/logger"
	"mech-trading-bot/internal/market"
	"mech-trading-bot/internal/pattern"
	"mech-trading-bot/internal/risk"
	"mech-trading-bot/internal/session"
	"mech-trading-bot/internal/store"
	"mech-trading-bot/internal/tradelog"
	"mech-trading-bot/internal/trerr"
	"mech-trading-bot/internal/types"
)

// Engine is the trade lifecycle controller: it owns the bar window, the
// confirmation machine, and the sizing policy, and turns each bar-close or
// tick event into at most one instruction for the execution gateway.
type Engine struct {
	cfg  *store.Config
	md   interfaces.MarketData
	hist interfaces.TradeHistory

	window   *market.Window
	detector *pattern.Detector
	gate     *session.Gate
	news     newsSource
	sizing   *risk.Policy
	machine  *confirm.Machine
	stops    *stopManager
	exec     *orderExecutor

	loc            *time.Location
	tfSeconds      int64
	confirmEnabled bool
	exitAfter      time.Duration
}

// newsSource yields the current scheduled-news windows. *news.Calendar
// satisfies it; its cache keeps repeated calls cheap.
type newsSource interface {
	Windows(ctx context.Context) ([]session.NewsWindow, error)
}

// OnBarClosed runs the full decision cycle for one newly completed bar.
// Delivering the same bar again is a no-op.
func (e *Engine) OnBarClosed(ctx context.Context, bar types.Bar) (*types.CycleResult, error) {
	if !e.window.Append(bar) {
		logger.Debug(ctx, "Bar already processed", "instrument", e.cfg.Instrument, "bar_ts", bar.Ts)
		return e.result(types.ActionNone, bar.Ts, bar.Close, "bar already processed"), nil
	}

	now := time.Unix(bar.Ts+e.tfSeconds, 0).In(e.loc)

	pos, err := e.exec.openPosition(ctx)
	if err != nil {
		logger.ErrorWithErr(ctx, "Cannot read open position", err, "instrument", e.cfg.Instrument)
		return nil, err
	}

	// An open position is managed first; no new entries while it exists.
	if pos != nil {
		return e.managePosition(ctx, pos, now)
	}

	if err := e.sizing.Refresh(ctx, now, e.hist, e.cfg.Instrument, e.cfg.StrategyID); err != nil {
		// Sizing holds its previous value; the cycle continues with it.
		logger.ErrorWithErr(ctx, "History query failed, keeping previous size", err,
			"instrument", e.cfg.Instrument,
			"size", e.sizing.Size(),
		)
	}

	if e.sizing.HaltedForDay() {
		return e.result(types.ActionNone, bar.Ts, bar.Close, "halted for day after profitable close"), nil
	}
	e.refreshNews(ctx)
	if ok, reason := e.gate.Allows(now); !ok {
		// Pending confirmation state persists independently of the gate.
		return e.result(types.ActionNone, bar.Ts, bar.Close, "session gate: "+reason), nil
	}

	if out := e.machine.Observe(bar); out != nil {
		if out.Expired {
			logger.Decision(ctx, e.cfg.Instrument, "EXPIRE", out.Direction.String(),
				"pending signal expired unconfirmed", "rule", out.Rule, "reference", out.Reference)
			_ = tradelog.AppendDecision(tradelog.DecisionEntry{
				Instrument: e.cfg.Instrument,
				Action:     "EXPIRE",
				Direction:  out.Direction.String(),
				Rule:       out.Rule,
				Reason:     "pending signal expired unconfirmed",
			})
		} else if out.Confirmed {
			res, err := e.openConfirmed(ctx, bar, out)
			if err != nil || res != nil {
				return res, err
			}
			// Rejected open: the machine keeps the confirmed signal and the
			// next cycle retries.
		}
	}

	if e.window.Len() < e.detector.MinBars() {
		return nil, trerr.New(trerr.KindDataUnavailable, "engine.OnBarClosed",
			"window has %d bars, detector needs %d", e.window.Len(), e.detector.MinBars())
	}

	sig, tied := e.detector.Detect(e.window)
	if tied {
		logger.Warn(ctx, "Opposing signals of equal strength discarded",
			"instrument", e.cfg.Instrument, "rule", e.cfg.Pattern.Rule, "bar_ts", bar.Ts)
		return e.result(types.ActionNone, bar.Ts, bar.Close, "opposing signals tied, both discarded"), nil
	}
	if sig == nil {
		return e.result(types.ActionNone, bar.Ts, bar.Close, "no signal"), nil
	}

	logger.Decision(ctx, e.cfg.Instrument, "SIGNAL", sig.Direction.String(),
		"raw signal detected", "rule", sig.Rule, "reference", sig.RefExtreme, "strength", sig.Strength)

	if !e.confirmEnabled {
		return e.openEntry(ctx, bar, sig.Direction, sig.Rule, "immediate signal")
	}

	if !e.machine.Arm(*sig) {
		logger.Debug(ctx, "Signal discarded, another is pending",
			"instrument", e.cfg.Instrument, "rule", sig.Rule, "direction", sig.Direction.String())
		return e.result(types.ActionNone, bar.Ts, bar.Close, "pending signal already staged"), nil
	}
	_ = tradelog.AppendDecision(tradelog.DecisionEntry{
		Instrument: e.cfg.Instrument,
		Action:     types.ActionArm,
		Direction:  sig.Direction.String(),
		Rule:       sig.Rule,
		Reason:     "signal staged awaiting confirmation",
		Price:      bar.Close,
	})
	return e.result(types.ActionArm, bar.Ts, bar.Close, "signal staged awaiting confirmation"), nil
}

// refreshNews re-queries the calendar each bar cycle so scraped windows
// stay current across day rollovers. The calendar's cache bounds the
// fetch rate; on failure the gate keeps its previous windows.
func (e *Engine) refreshNews(ctx context.Context) {
	if e.news == nil {
		return
	}
	windows, err := e.news.Windows(ctx)
	if err != nil {
		logger.Warn(ctx, "News refresh failed, keeping previous windows",
			"instrument", e.cfg.Instrument, "error", err)
		return
	}
	if err := e.gate.SetWindows(windows); err != nil {
		logger.Warn(ctx, "Fetched news windows rejected",
			"instrument", e.cfg.Instrument, "error", err)
	}
}

// OnTick manages an already-open position between bar closes. It never runs
// detection and never opens.
func (e *Engine) OnTick(ctx context.Context, quote types.Quote) (*types.CycleResult, error) {
	pos, err := e.exec.openPosition(ctx)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return e.result(types.ActionNone, quote.Ts, quote.Bid, "no open position"), nil
	}

	now := time.Now().In(e.loc)
	if quote.Ts > 0 {
		now = time.Unix(quote.Ts, 0).In(e.loc)
	}
	return e.manageWithQuote(ctx, pos, quote, now)
}

// managePosition fetches a quote and applies the exit rules to an open
// position on a bar boundary.
func (e *Engine) managePosition(ctx context.Context, pos *types.Position, now time.Time) (*types.CycleResult, error) {
	quote, err := e.md.Quote(ctx, e.cfg.Instrument)
	if err != nil {
		return nil, trerr.Wrap(trerr.KindDataUnavailable, "engine.managePosition", err)
	}
	return e.manageWithQuote(ctx, pos, quote, now)
}

func (e *Engine) manageWithQuote(ctx context.Context, pos *types.Position, quote types.Quote, now time.Time) (*types.CycleResult, error) {
	price := exitPrice(pos.Direction, quote)

	// Timed exit: a position never outlives one trading session.
	if now.Sub(pos.OpenTime) > e.exitAfter {
		if err := e.exec.closePosition(ctx, pos, price, "timed exit"); err != nil {
			return nil, err
		}
		return e.result(types.ActionClose, now.Unix(), price, "timed exit"), nil
	}

	if !e.stops.trailingEnabled() {
		return e.result(types.ActionNone, now.Unix(), price, "holding position"), nil
	}

	dist := e.stops.trailingDistance(e.window)
	if dist <= 0 {
		return e.result(types.ActionNone, now.Unix(), price, "holding position"), nil
	}

	favorable := price - pos.OpenPrice
	if pos.Direction == types.DirShort {
		favorable = pos.OpenPrice - price
	}
	if favorable <= dist {
		return e.result(types.ActionNone, now.Unix(), price, "holding position"), nil
	}

	candidate := e.stops.trailCandidate(pos.Direction, price, dist)
	if !tightens(pos.Direction, pos.StopPrice, candidate) {
		return e.result(types.ActionNone, now.Unix(), price, "holding position"), nil
	}

	if err := e.exec.adjustStop(ctx, pos, candidate); err != nil {
		return nil, err
	}
	return e.result(types.ActionAdjustStop, now.Unix(), price, "trailing stop tightened"), nil
}

// openConfirmed executes a confirmed signal at the live quote. On rejection
// the machine keeps the signal and nil, nil is returned so the cycle can
// fall through.
func (e *Engine) openConfirmed(ctx context.Context, bar types.Bar, out *confirm.Outcome) (*types.CycleResult, error) {
	res, err := e.openEntry(ctx, bar, out.Direction, out.Rule, "confirmed breakout")
	if err != nil {
		if trerr.KindOf(err) == trerr.KindExecutionRejected {
			logger.ErrorWithErr(ctx, "Open rejected, confirmed signal retained", err,
				"instrument", e.cfg.Instrument, "direction", out.Direction.String())
			return nil, nil
		}
		return nil, err
	}
	e.machine.Settle()
	return res, err
}

// openEntry sizes and submits a market entry with fixed stop and target
// offsets from the live ask (long) or bid (short).
func (e *Engine) openEntry(ctx context.Context, bar types.Bar, dir types.Direction, rule, reason string) (*types.CycleResult, error) {
	quote, err := e.md.Quote(ctx, e.cfg.Instrument)
	if err != nil {
		return nil, trerr.Wrap(trerr.KindDataUnavailable, "engine.openEntry", err)
	}
	price := entryPrice(dir, quote)
	stop, target := e.stops.entryLevels(dir, price)

	resp, err := e.exec.open(ctx, dir, e.sizing.Size(), price, stop, target, rule, reason)
	if err != nil {
		return nil, err
	}
	return &types.CycleResult{
		Instrument: e.cfg.Instrument,
		Action:     types.ActionOpen,
		Direction:  dir,
		Price:      price,
		Time:       bar.Ts,
		Ticket:     resp.TicketID,
		Reason:     reason,
	}, nil
}

func (e *Engine) result(action string, ts int64, price float64, reason string) *types.CycleResult {
	return &types.CycleResult{
		Instrument: e.cfg.Instrument,
		Action:     action,
		Price:      price,
		Time:       ts,
		Reason:     reason,
	}
}
