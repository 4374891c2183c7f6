// Package zerodha adapts the Zerodha Kite stack to the core's market-data,
// execution and trade-history ports. DRY_RUN mode simulates fills and keeps
// an in-memory deal ledger; STATIC data generates a synthetic walk so the
// whole pipeline runs without a session token.
package zerodha

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"mech-trading-bot/internal/interfaces"
	"mech-trading-bot/internal/trerr"
	"mech-trading-bot/internal/types"
)

var (
	_ interfaces.MarketData   = (*Zerodha)(nil)
	_ interfaces.Gateway      = (*Zerodha)(nil)
	_ interfaces.TradeHistory = (*Zerodha)(nil)
)

type Params struct {
	Mode             string // DRY_RUN or LIVE
	APIKey           string
	AccessToken      string
	Exchange         string
	DataSource       string // STATIC or LIVE
	TimeframeMinutes int
}

type Zerodha struct {
	p            Params
	tickerMgr    *tickerManager
	isTickerInit bool

	mu        sync.Mutex
	pos       *types.Position
	deals     []types.Deal
	lastPrice float64
}

func NewZerodha(p Params) *Zerodha {
	z := &Zerodha{p: p, lastPrice: 1000}

	if p.DataSource == "LIVE" {
		z.tickerMgr = newTickerManager(p.APIKey, p.AccessToken, p.Exchange, p.TimeframeMinutes)
	}

	return z
}

// RecentBars returns the last n completed bars, oldest first. Live bars
// come exclusively from the websocket cache; until it fills, the error is
// recoverable and the caller skips the cycle. Decisions never run on
// synthetic prices in live mode.
func (z *Zerodha) RecentBars(ctx context.Context, instrument string, n int) ([]types.Bar, error) {
	if z.p.DataSource == "LIVE" {
		bars, err := z.tickerMgr.RecentBars(instrument, n)
		if err != nil {
			return nil, trerr.Wrap(trerr.KindDataUnavailable, "zerodha.RecentBars", err)
		}
		return bars, nil
	}
	return z.staticBars(n), nil
}

// Quote returns the latest touchline. In live mode a missing cached quote
// is a recoverable error, never a fabricated price.
func (z *Zerodha) Quote(ctx context.Context, instrument string) (types.Quote, error) {
	if z.p.DataSource == "LIVE" {
		q, ok := z.tickerMgr.LastQuote(instrument)
		if !ok {
			return types.Quote{}, trerr.New(trerr.KindDataUnavailable, "zerodha.Quote",
				"no live quote cached for %s", instrument)
		}
		return q, nil
	}

	z.mu.Lock()
	mid := z.lastPrice
	z.mu.Unlock()

	spread := mid * 0.0001
	return types.Quote{
		Bid: mid - spread/2,
		Ask: mid + spread/2,
		Ts:  time.Now().Unix(),
	}, nil
}

func (z *Zerodha) Start(ctx context.Context, instruments []string) error {
	if z.tickerMgr == nil {
		return nil
	}
	if z.isTickerInit {
		return nil
	}

	if err := z.tickerMgr.Start(ctx); err != nil {
		return fmt.Errorf("failed to start ticker manager: %w", err)
	}

	time.Sleep(connectionWaitTime)

	if err := z.tickerMgr.Subscribe(ctx, instruments); err != nil {
		return fmt.Errorf("failed to subscribe to instruments: %w", err)
	}

	z.isTickerInit = true
	return nil
}

func (z *Zerodha) Stop(ctx context.Context) {
	if z.tickerMgr != nil {
		z.tickerMgr.Stop(ctx)
		z.isTickerInit = false
	}
}

// staticBars generates a random walk on timeframe-aligned timestamps.
// Repeated polls reuse the same timestamps, so the caller's dedup keeps the
// stream consistent.
func (z *Zerodha) staticBars(n int) []types.Bar {
	tf := int64(z.p.TimeframeMinutes) * 60
	if tf <= 0 {
		tf = 60
	}

	now := time.Now().Unix()
	lastComplete := now/tf*tf - tf

	z.mu.Lock()
	price := z.lastPrice
	z.mu.Unlock()

	bars := make([]types.Bar, 0, n)
	for i := n - 1; i >= 0; i-- {
		open := price
		price += (rand.Float64() - 0.5) * 4
		high := maxF(open, price) + rand.Float64()*2
		low := minF(open, price) - rand.Float64()*2
		bars = append(bars, types.Bar{
			Ts:    lastComplete - int64(i)*tf,
			Open:  open,
			High:  high,
			Low:   low,
			Close: price,
			Vol:   500 + rand.Float64()*1000,
		})
	}

	z.mu.Lock()
	z.lastPrice = price
	z.mu.Unlock()

	return bars
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
