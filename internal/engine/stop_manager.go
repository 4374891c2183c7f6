package engine

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"mech-trading-bot/internal/market"
	"mech-trading-bot/internal/store"
	"mech-trading-bot/internal/types"
)

// stopManager computes initial and trailing stop levels. All output prices
// are rounded to the instrument tick.
type stopManager struct {
	stopPoints  float64
	tpPoints    float64
	minTick     float64
	trailOn     bool
	trailMode   string
	trailPoints float64
	atrPeriod   int
	atrMult     float64
}

func newStopManager(cfg *store.Config) *stopManager {
	return &stopManager{
		stopPoints:  cfg.Stop.Points,
		tpPoints:    cfg.Stop.TakeProfitPoints,
		minTick:     cfg.Stop.MinTick,
		trailOn:     cfg.Stop.Trailing.Enabled,
		trailMode:   cfg.Stop.Trailing.Mode,
		trailPoints: cfg.Stop.Trailing.Points,
		atrPeriod:   cfg.Stop.Trailing.ATRPeriod,
		atrMult:     cfg.Stop.Trailing.ATRMult,
	}
}

func (s *stopManager) trailingEnabled() bool { return s.trailOn }

// entryLevels returns the protective stop and the take-profit for a fill at
// price, both as fixed point offsets.
func (s *stopManager) entryLevels(dir types.Direction, price float64) (stop, target float64) {
	if dir == types.DirLong {
		stop = price - s.stopPoints
		target = price + s.tpPoints
	} else {
		stop = price + s.stopPoints
		target = price - s.tpPoints
	}
	return s.roundToTick(stop), s.roundToTick(target)
}

// trailingDistance is the gap kept between price and the trailed stop.
// In ATR mode it returns 0 until the window holds enough bars.
func (s *stopManager) trailingDistance(w *market.Window) float64 {
	if s.trailMode != "ATR" {
		return s.trailPoints
	}
	bars := w.Tail(s.atrPeriod + 1)
	if bars == nil {
		return 0
	}
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
		closes[i] = b.Close
	}
	atr := talib.Atr(highs, lows, closes, s.atrPeriod)
	last := atr[len(atr)-1]
	if last <= 0 || math.IsNaN(last) {
		return 0
	}
	return last * s.atrMult
}

func (s *stopManager) trailCandidate(dir types.Direction, price, dist float64) float64 {
	if dir == types.DirLong {
		return s.roundToTick(price - dist)
	}
	return s.roundToTick(price + dist)
}

func (s *stopManager) roundToTick(price float64) float64 {
	if s.minTick <= 0 {
		return price
	}
	return math.Round(price/s.minTick) * s.minTick
}
