// Package risk derives the next trade's size from the day's realized
// outcome: losing days grow the size by a fixed increment, the first
// profitable day resets it and halts new entries until the next calendar
// day.
package risk

import (
	"context"
	"time"

	"mech-trading-bot/internal/interfaces"
	"mech-trading-bot/internal/logger"
	"mech-trading-bot/internal/trerr"
)

// Policy tracks today's realized aggregates and the adaptive size. All
// mutation happens inside Refresh, once per bar-processing cycle.
type Policy struct {
	base, max, increment float64

	current     float64
	dayKey      string
	dailyPnL    float64
	dailyDeals  int
	dailyVolume float64
	halted      bool
	lossApplied bool

	loc *time.Location
}

func NewPolicy(base, max, increment float64, loc *time.Location) (*Policy, error) {
	const op = "risk.NewPolicy"
	if base <= 0 {
		return nil, trerr.New(trerr.KindConfigurationInvalid, op, "base size must be positive, got %v", base)
	}
	if max < base {
		return nil, trerr.New(trerr.KindConfigurationInvalid, op, "max size %v below base size %v", max, base)
	}
	if increment <= 0 {
		return nil, trerr.New(trerr.KindConfigurationInvalid, op, "increment must be positive, got %v", increment)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Policy{base: base, max: max, increment: increment, current: base, loc: loc}, nil
}

// Refresh recomputes the size and halt flag from today's closed deals.
// On a HistoryQueryFailed the previous size is held and the error returned;
// no other state changes.
func (p *Policy) Refresh(ctx context.Context, now time.Time, history interfaces.TradeHistory, instrument, strategyID string) error {
	local := now.In(p.loc)
	key := local.Format("2006-01-02")
	if key != p.dayKey {
		if p.dayKey != "" {
			logger.Debug(ctx, "Daily risk state reset",
				"instrument", instrument,
				"previous_day", p.dayKey,
				"day", key,
			)
		}
		p.dayKey = key
		p.dailyPnL = 0
		p.dailyDeals = 0
		p.dailyVolume = 0
		p.halted = false
		p.lossApplied = false
	}

	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, p.loc)
	deals, err := history.ClosedDeals(ctx, instrument, strategyID, dayStart, now)
	if err != nil {
		return trerr.Wrap(trerr.KindHistoryQueryFailed, "risk.Refresh", err)
	}

	p.dailyPnL = 0
	p.dailyDeals = 0
	p.dailyVolume = 0
	for _, d := range deals {
		p.dailyPnL += d.Profit
		p.dailyDeals++
		p.dailyVolume += d.Volume
	}

	switch {
	case p.dailyPnL < 0:
		// One increment per losing day, no matter how many cycles
		// observe the same negative balance.
		if p.lossApplied || p.halted {
			break
		}
		next := p.current + p.increment
		if next > p.max {
			next = p.max
		}
		if next != p.current {
			logger.Risk(ctx, instrument, "SIZE_INCREASED",
				"daily_pnl", p.dailyPnL,
				"old_size", p.current,
				"new_size", next,
			)
		}
		p.current = next
		p.lossApplied = true
	case p.dailyPnL > 0:
		if !p.halted {
			logger.Risk(ctx, instrument, "DAY_WON_HALT",
				"daily_pnl", p.dailyPnL,
				"deals", p.dailyDeals,
			)
		}
		p.current = p.base
		p.halted = true
	}
	// Breakeven or no closed deals: size unchanged.

	if p.current < p.base {
		p.current = p.base
	}
	return nil
}

// Size is the position size for the next entry.
func (p *Policy) Size() float64 { return p.current }

// HaltedForDay blocks new entries for the rest of the day. Open positions
// are unaffected.
func (p *Policy) HaltedForDay() bool { return p.halted }

// DayStats exposes today's aggregates for logging and the EOD summary.
func (p *Policy) DayStats() (pnl float64, deals int, volume float64) {
	return p.dailyPnL, p.dailyDeals, p.dailyVolume
}
