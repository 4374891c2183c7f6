package zerodha

import (
	"context"
	"testing"
	"time"

	"mech-trading-bot/internal/trerr"
	"mech-trading-bot/internal/types"
)

func TestDryRunOpenModifyClose(t *testing.T) {
	z := NewZerodha(Params{Mode: "DRY_RUN", DataSource: "STATIC", TimeframeMinutes: 1})
	ctx := context.Background()

	resp, err := z.Open(ctx, types.OpenReq{
		Instrument: "RELIANCE",
		Direction:  types.DirLong,
		Size:       0.01,
		Price:      1000,
		StopPrice:  995,
		TakeProfit: 1010,
		Tag:        "t-1",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if resp.Status != "OPEN" || resp.TicketID == "" {
		t.Fatalf("unexpected open response: %+v", resp)
	}

	pos, err := z.OpenPosition(ctx, "RELIANCE", "s1")
	if err != nil || pos == nil {
		t.Fatalf("open position lookup: pos=%v err=%v", pos, err)
	}
	if pos.Direction != types.DirLong || pos.OpenPrice != 1000 {
		t.Fatalf("unexpected position: %+v", pos)
	}

	// Second open while one is held must be rejected.
	if _, err := z.Open(ctx, types.OpenReq{Direction: types.DirShort, Size: 0.01, Price: 1000}); err == nil {
		t.Fatal("second open accepted while position held")
	}

	if err := z.ModifyStop(ctx, pos.ID, 998); err != nil {
		t.Fatalf("modify stop: %v", err)
	}
	pos, _ = z.OpenPosition(ctx, "RELIANCE", "s1")
	if pos.StopPrice != 998 {
		t.Fatalf("stop = %v, want 998", pos.StopPrice)
	}

	if err := z.Close(ctx, pos.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	pos, _ = z.OpenPosition(ctx, "RELIANCE", "s1")
	if pos != nil {
		t.Fatal("position survived close")
	}

	deals, err := z.ClosedDeals(ctx, "RELIANCE", "s1", time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("closed deals: %v", err)
	}
	if len(deals) != 1 || deals[0].Volume != 0.01 {
		t.Fatalf("ledger = %+v, want one 0.01 deal", deals)
	}
}

func TestOpenRejectsBadRequest(t *testing.T) {
	z := NewZerodha(Params{Mode: "DRY_RUN", DataSource: "STATIC", TimeframeMinutes: 1})
	ctx := context.Background()

	if _, err := z.Open(ctx, types.OpenReq{Direction: types.DirNone, Size: 0.01}); err == nil {
		t.Fatal("directionless open accepted")
	}
	if _, err := z.Open(ctx, types.OpenReq{Direction: types.DirLong, Size: 0}); err == nil {
		t.Fatal("zero-size open accepted")
	}
}

func TestLiveOpenRequiresCredentials(t *testing.T) {
	z := NewZerodha(Params{Mode: "LIVE", DataSource: "STATIC", TimeframeMinutes: 1})

	_, err := z.Open(context.Background(), types.OpenReq{Direction: types.DirLong, Size: 0.01, Price: 1000})
	if err == nil {
		t.Fatal("live open without credentials accepted")
	}
}

func TestLiveDataNeverFallsBackToSynthetic(t *testing.T) {
	z := NewZerodha(Params{Mode: "DRY_RUN", DataSource: "LIVE", TimeframeMinutes: 1})
	ctx := context.Background()

	// Empty websocket cache: both reads must error rather than invent
	// prices, and the errors must be recoverable so the poll loop just
	// waits for the next cycle.
	_, err := z.RecentBars(ctx, "RELIANCE", 10)
	if err == nil {
		t.Fatal("bars served with an empty live cache")
	}
	if !trerr.IsRecoverable(err) {
		t.Fatalf("bar error not recoverable: %v", err)
	}

	_, err = z.Quote(ctx, "RELIANCE")
	if err == nil {
		t.Fatal("quote served with an empty live cache")
	}
	if !trerr.IsRecoverable(err) {
		t.Fatalf("quote error not recoverable: %v", err)
	}
}

func TestStaticBarsAlignedAndOrdered(t *testing.T) {
	z := NewZerodha(Params{Mode: "DRY_RUN", DataSource: "STATIC", TimeframeMinutes: 5})
	bars, err := z.RecentBars(context.Background(), "RELIANCE", 10)
	if err != nil {
		t.Fatalf("recent bars: %v", err)
	}
	if len(bars) != 10 {
		t.Fatalf("got %d bars, want 10", len(bars))
	}
	for i, b := range bars {
		if b.Ts%300 != 0 {
			t.Fatalf("bar %d timestamp %d not aligned to timeframe", i, b.Ts)
		}
		if i > 0 && b.Ts != bars[i-1].Ts+300 {
			t.Fatalf("bar %d not contiguous: %d after %d", i, b.Ts, bars[i-1].Ts)
		}
		if b.High < b.Low || b.High < b.Close || b.Low > b.Close {
			t.Fatalf("bar %d violates OHLC ordering: %+v", i, b)
		}
	}
}

func TestBarCacheAggregatesTicks(t *testing.T) {
	bc := newBarCache(60)
	bc.initBuffer("RELIANCE", 10)

	base := int64(1_700_000_040) // start of a 60s bucket
	bc.applyTick("RELIANCE", base, 100, 1000)
	bc.applyTick("RELIANCE", base+5, 103, 1400)
	bc.applyTick("RELIANCE", base+10, 99, 1600)
	// Next bucket opens a new bar.
	bc.applyTick("RELIANCE", base+60, 101, 1700)

	bars, err := bc.recentCompleted("RELIANCE", 5, base+60)
	if err != nil {
		t.Fatalf("recent completed: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("got %d completed bars, want 1", len(bars))
	}
	b := bars[0]
	if b.Open != 100 || b.High != 103 || b.Low != 99 || b.Close != 99 {
		t.Fatalf("aggregated bar = %+v", b)
	}
	if b.Vol != 1600 {
		t.Fatalf("bar volume = %v, want 1600", b.Vol)
	}
}

func TestRecentCompletedExcludesFormingBucket(t *testing.T) {
	bc := newBarCache(60)
	bc.initBuffer("TCS", 10)

	bc.applyTick("TCS", 1_700_000_000, 100, 100)
	if _, err := bc.recentCompleted("TCS", 5, 1_700_000_030); err == nil {
		t.Fatal("forming bucket returned as a completed bar")
	}
}
