// Package pattern detects raw directional signals from bar geometry and
// volume. Detection is pure: it reads the window and produces at most one
// signal, with no side effects.
package pattern

import (
	"math"

	"mech-trading-bot/internal/market"
	"mech-trading-bot/internal/trerr"
	"mech-trading-bot/internal/types"
)

// Rule selects which geometry rule the detector applies.
type Rule string

const (
	RuleShadowVolume Rule = "SHADOW_VOLUME"
	RuleEngulfing    Rule = "ENGULFING"
	RuleOutsideBar   Rule = "OUTSIDE_BAR"
)

type Detector struct {
	rule    Rule
	volMult float64
}

func New(rule Rule, volumeMultiplier float64) (*Detector, error) {
	switch rule {
	case RuleShadowVolume:
		if volumeMultiplier <= 0 {
			return nil, trerr.New(trerr.KindConfigurationInvalid, "pattern.New",
				"volume multiplier must be positive for %s, got %v", rule, volumeMultiplier)
		}
	case RuleEngulfing, RuleOutsideBar:
	default:
		return nil, trerr.New(trerr.KindConfigurationInvalid, "pattern.New",
			"unknown pattern rule %q", rule)
	}
	return &Detector{rule: rule, volMult: volumeMultiplier}, nil
}

// MinBars is the window depth the configured rule needs.
func (d *Detector) MinBars() int {
	if d.rule == RuleOutsideBar {
		return 3
	}
	return 2
}

// Detect evaluates the configured rule over the window's most recent bars.
// A window shorter than MinBars yields nil, not an error; the caller decides
// whether "not enough data yet" matters. The second return is true when the
// latest bar produced long and short candidates of exactly equal strength,
// both of which are discarded.
func (d *Detector) Detect(w *market.Window) (*types.RawSignal, bool) {
	bars := w.Tail(d.MinBars())
	if bars == nil {
		return nil, false
	}
	switch d.rule {
	case RuleShadowVolume:
		return d.shadowVolume(bars[0], bars[1])
	case RuleEngulfing:
		return d.engulfing(bars[0], bars[1]), false
	case RuleOutsideBar:
		return d.outsideBar(bars[0], bars[1], bars[2]), false
	}
	return nil, false
}

// shadowVolume signals against the latest bar's dominant shadow when its
// volume exceeds the previous bar's by the configured multiplier. A long
// lower shadow (selling absorbed) arms long, a long upper shadow arms short.
// When both shadows are present the stronger one wins; an exact tie
// discards both candidates.
func (d *Detector) shadowVolume(prev, cur types.Bar) (*types.RawSignal, bool) {
	if cur.Vol <= prev.Vol*d.volMult {
		return nil, false
	}
	upper := cur.High - math.Max(cur.Open, cur.Close)
	lower := math.Min(cur.Open, cur.Close) - cur.Low

	var long, short *types.RawSignal
	if lower > 0 {
		long = longSignal(cur, lower, string(RuleShadowVolume))
	}
	if upper > 0 {
		short = shortSignal(cur, upper, string(RuleShadowVolume))
	}
	if long == nil && short == nil {
		return nil, false
	}
	sig := Stronger(long, short)
	if sig == nil {
		return nil, true
	}
	return sig, false
}

// engulfing detects a full-body, full-range engulfing reversal bar.
func (d *Detector) engulfing(prev, cur types.Bar) *types.RawSignal {
	rangeEngulfs := cur.High > prev.High && cur.Low < prev.Low

	// Bearish engulfing: bullish bar swallowed by a bearish one.
	if prev.Bullish() && cur.Bearish() &&
		cur.Open > prev.Close && cur.Close < prev.Open && rangeEngulfs {
		return shortSignal(cur, bodySize(cur)-bodySize(prev), string(RuleEngulfing))
	}
	// Bullish engulfing is the mirror image.
	if prev.Bearish() && cur.Bullish() &&
		cur.Open < prev.Close && cur.Close > prev.Open && rangeEngulfs {
		return longSignal(cur, bodySize(cur)-bodySize(prev), string(RuleEngulfing))
	}
	return nil
}

// outsideBar detects an outside (external) bar and signals the anticipated
// reversal: a bearish outside bar closing below the close two bars back arms
// long, a bullish one closing above it arms short.
func (d *Detector) outsideBar(first, prev, cur types.Bar) *types.RawSignal {
	if !(cur.High > prev.High && cur.Low < prev.Low) {
		return nil
	}
	if cur.Bearish() && cur.Close < first.Close {
		return longSignal(cur, first.Close-cur.Close, string(RuleOutsideBar))
	}
	if cur.Bullish() && cur.Close > first.Close {
		return shortSignal(cur, cur.Close-first.Close, string(RuleOutsideBar))
	}
	return nil
}

// Stronger picks the geometrically stronger of two same-bar signals. When
// the strengths tie exactly there is no defensible choice, so both are
// discarded and the caller logs a warning.
func Stronger(a, b *types.RawSignal) *types.RawSignal {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.Strength > b.Strength:
		return a
	case b.Strength > a.Strength:
		return b
	}
	return nil
}

func bodySize(b types.Bar) float64 { return math.Abs(b.Close - b.Open) }

func longSignal(b types.Bar, strength float64, rule string) *types.RawSignal {
	return &types.RawSignal{
		Direction:  types.DirLong,
		BarTs:      b.Ts,
		RefExtreme: b.High,
		Strength:   strength,
		Rule:       rule,
	}
}

func shortSignal(b types.Bar, strength float64, rule string) *types.RawSignal {
	return &types.RawSignal{
		Direction:  types.DirShort,
		BarTs:      b.Ts,
		RefExtreme: b.Low,
		Strength:   strength,
		Rule:       rule,
	}
}
