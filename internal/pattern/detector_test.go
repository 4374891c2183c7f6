package pattern

import (
	"testing"

	"mech-trading-bot/internal/market"
	"mech-trading-bot/internal/types"
)

func window(t *testing.T, bars ...types.Bar) *market.Window {
	t.Helper()
	w, err := market.NewWindow(10)
	if err != nil {
		t.Fatal(err)
	}
	for i, b := range bars {
		if b.Ts == 0 {
			b.Ts = int64((i + 1) * 60)
		}
		if !w.Append(b) {
			t.Fatalf("bar %d rejected", i)
		}
	}
	return w
}

func TestDetectorConfigValidation(t *testing.T) {
	if _, err := New(RuleShadowVolume, 0); err == nil {
		t.Error("Expected error for non-positive volume multiplier")
	}
	if _, err := New(Rule("PIN_BAR"), 1); err == nil {
		t.Error("Expected error for unknown rule")
	}
	if _, err := New(RuleEngulfing, 0); err != nil {
		t.Errorf("Engulfing rule should not need a volume multiplier: %v", err)
	}
}

func TestInsufficientDataYieldsNoSignal(t *testing.T) {
	d, _ := New(RuleOutsideBar, 0)
	w := window(t,
		types.Bar{Open: 100, High: 101, Low: 99, Close: 100.5},
		types.Bar{Open: 100.5, High: 102, Low: 98, Close: 99},
	)
	if sig, _ := d.Detect(w); sig != nil {
		t.Errorf("Expected nil on short window, got %+v", sig)
	}
}

func TestShadowVolumeLong(t *testing.T) {
	d, _ := New(RuleShadowVolume, 1.5)
	// Latest bar: long lower shadow, volume spike.
	w := window(t,
		types.Bar{Open: 100, High: 101, Low: 99.5, Close: 100.5, Vol: 1000},
		types.Bar{Open: 100.5, High: 101, Low: 97, Close: 100.8, Vol: 2000},
	)
	sig, _ := d.Detect(w)
	if sig == nil || sig.Direction != types.DirLong {
		t.Fatalf("Expected long signal, got %+v", sig)
	}
	if sig.RefExtreme != 101 {
		t.Errorf("Long reference should be the bar high, got %v", sig.RefExtreme)
	}
}

func TestShadowVolumeShort(t *testing.T) {
	d, _ := New(RuleShadowVolume, 1.5)
	w := window(t,
		types.Bar{Open: 100, High: 101, Low: 99.5, Close: 100.5, Vol: 1000},
		types.Bar{Open: 100.5, High: 104, Low: 100.2, Close: 100.4, Vol: 2000},
	)
	sig, _ := d.Detect(w)
	if sig == nil || sig.Direction != types.DirShort {
		t.Fatalf("Expected short signal, got %+v", sig)
	}
	if sig.RefExtreme != 100.2 {
		t.Errorf("Short reference should be the bar low, got %v", sig.RefExtreme)
	}
}

func TestShadowVolumeBalancedShadowsDiscardBoth(t *testing.T) {
	d, _ := New(RuleShadowVolume, 1.5)
	// Volume spikes but the shadows are exactly one point each side.
	w := window(t,
		types.Bar{Open: 100, High: 101, Low: 99.5, Close: 100.5, Vol: 1000},
		types.Bar{Open: 100, High: 101.4, Low: 99, Close: 100.4, Vol: 2000},
	)
	sig, tied := d.Detect(w)
	if sig != nil {
		t.Fatalf("Expected no signal on balanced shadows, got %+v", sig)
	}
	if !tied {
		t.Error("Balanced shadows should report a discarded tie")
	}
}

func TestShadowVolumeNoSpikeNoSignal(t *testing.T) {
	d, _ := New(RuleShadowVolume, 1.5)
	w := window(t,
		types.Bar{Open: 100, High: 101, Low: 99.5, Close: 100.5, Vol: 1000},
		types.Bar{Open: 100.5, High: 101, Low: 97, Close: 100.8, Vol: 1200},
	)
	if sig, _ := d.Detect(w); sig != nil {
		t.Errorf("Expected nil without volume spike, got %+v", sig)
	}
}

func TestBullishEngulfing(t *testing.T) {
	d, _ := New(RuleEngulfing, 0)
	// Previous bar bearish (open 100, close 98), current bullish engulfing
	// (open 97, close 101, range 96..102 contains previous range).
	w := window(t,
		types.Bar{Open: 100, High: 100.5, Low: 97.5, Close: 98},
		types.Bar{Open: 97, High: 102, Low: 96, Close: 101},
	)
	sig, _ := d.Detect(w)
	if sig == nil || sig.Direction != types.DirLong {
		t.Fatalf("Expected bullish engulfing long, got %+v", sig)
	}
	if sig.RefExtreme != 102 {
		t.Errorf("Expected reference at engulfing bar high, got %v", sig.RefExtreme)
	}
}

func TestBearishEngulfing(t *testing.T) {
	d, _ := New(RuleEngulfing, 0)
	// Mirror image of the bullish case.
	w := window(t,
		types.Bar{Open: 98, High: 100.5, Low: 97.5, Close: 100},
		types.Bar{Open: 101, High: 102, Low: 96, Close: 97},
	)
	sig, _ := d.Detect(w)
	if sig == nil || sig.Direction != types.DirShort {
		t.Fatalf("Expected bearish engulfing short, got %+v", sig)
	}
	if sig.RefExtreme != 96 {
		t.Errorf("Expected reference at engulfing bar low, got %v", sig.RefExtreme)
	}
}

func TestEngulfingBodyOnlyIsNotEnough(t *testing.T) {
	d, _ := New(RuleEngulfing, 0)
	// Body engulfs but the range does not exceed on both ends.
	w := window(t,
		types.Bar{Open: 100, High: 103, Low: 95, Close: 98},
		types.Bar{Open: 97, High: 102, Low: 96, Close: 101},
	)
	if sig, _ := d.Detect(w); sig != nil {
		t.Errorf("Expected nil when range does not engulf, got %+v", sig)
	}
}

func TestOutsideBarLong(t *testing.T) {
	d, _ := New(RuleOutsideBar, 0)
	// Current bar is outside the previous bar, bearish, and closes below the
	// close two bars back: anticipate reversal long.
	w := window(t,
		types.Bar{Open: 100, High: 101, Low: 99, Close: 100.5},
		types.Bar{Open: 100.5, High: 101.5, Low: 99.5, Close: 100},
		types.Bar{Open: 101, High: 102, Low: 98, Close: 99},
	)
	sig, _ := d.Detect(w)
	if sig == nil || sig.Direction != types.DirLong {
		t.Fatalf("Expected outside-bar long, got %+v", sig)
	}
}

func TestOutsideBarShort(t *testing.T) {
	d, _ := New(RuleOutsideBar, 0)
	w := window(t,
		types.Bar{Open: 100, High: 101, Low: 99, Close: 100.5},
		types.Bar{Open: 100.5, High: 101.5, Low: 99.5, Close: 100},
		types.Bar{Open: 100, High: 102, Low: 99.2, Close: 101.5},
	)
	sig, _ := d.Detect(w)
	if sig == nil || sig.Direction != types.DirShort {
		t.Fatalf("Expected outside-bar short, got %+v", sig)
	}
}

func TestOutsideBarNotOutside(t *testing.T) {
	d, _ := New(RuleOutsideBar, 0)
	w := window(t,
		types.Bar{Open: 100, High: 101, Low: 99, Close: 100.5},
		types.Bar{Open: 100.5, High: 101.5, Low: 99.5, Close: 100},
		types.Bar{Open: 100, High: 101.2, Low: 99.6, Close: 99.8},
	)
	if sig, _ := d.Detect(w); sig != nil {
		t.Errorf("Expected nil for contained bar, got %+v", sig)
	}
}

func TestStrongerTieBreak(t *testing.T) {
	long := &types.RawSignal{Direction: types.DirLong, Strength: 2.0}
	short := &types.RawSignal{Direction: types.DirShort, Strength: 1.5}

	if got := Stronger(long, short); got != long {
		t.Errorf("Expected stronger signal to win, got %+v", got)
	}
	if got := Stronger(nil, short); got != short {
		t.Errorf("Expected nil operand to be ignored, got %+v", got)
	}

	short.Strength = 2.0
	if got := Stronger(long, short); got != nil {
		t.Errorf("Expected exact tie to discard both, got %+v", got)
	}
}
