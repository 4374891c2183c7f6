package zerodha

import (
	"context"
	"fmt"
	"sync"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	kiteticker "github.com/zerodha/gokiteconnect/v4/ticker"

	"mech-trading-bot/internal/types"
)

const (
	maxBarsPerInstrument = 500

	connectionWaitTime = 2 * time.Second
)

// tickerManager owns the Kite websocket and aggregates ticks into
// timeframe-aligned bars. RecentBars only returns completed buckets.
type tickerManager struct {
	kc          *kiteconnect.Client
	ticker      *kiteticker.Ticker
	apiKey      string
	accessToken string
	exchange    string
	tfSeconds   int64

	cache  *barCache
	mapper *instrumentMapper

	mu     sync.RWMutex
	quotes map[string]types.Quote
}

func newTickerManager(apiKey, accessToken, exchange string, timeframeMinutes int) *tickerManager {
	tf := int64(timeframeMinutes) * 60
	if tf <= 0 {
		tf = 60
	}
	return &tickerManager{
		apiKey:      apiKey,
		accessToken: accessToken,
		exchange:    exchange,
		tfSeconds:   tf,
		cache:       newBarCache(tf),
		mapper:      newInstrumentMapper(),
		quotes:      make(map[string]types.Quote),
	}
}

func (tm *tickerManager) Start(ctx context.Context) error {
	tm.kc = kiteconnect.New(tm.apiKey)
	tm.kc.SetAccessToken(tm.accessToken)

	tm.ticker = kiteticker.New(tm.apiKey, tm.accessToken)

	tm.setupEventHandlers()

	go func() {
		tm.ticker.Serve()
	}()

	return nil
}

func (tm *tickerManager) Stop(ctx context.Context) {
	if tm.ticker != nil {
		tm.ticker.Stop()
	}
}

func (tm *tickerManager) Subscribe(ctx context.Context, instruments []string) error {
	tokens := make([]uint32, 0, len(instruments))

	for _, instrument := range instruments {
		token := tm.placeholderToken(instrument)
		tm.mapper.addMapping(instrument, token)
		tm.cache.initBuffer(instrument, maxBarsPerInstrument)
		tokens = append(tokens, token)
	}

	if err := tm.ticker.Subscribe(tokens); err != nil {
		return fmt.Errorf("failed to subscribe to instruments: %w", err)
	}

	if err := tm.ticker.SetMode(kiteticker.ModeFull, tokens); err != nil {
		return fmt.Errorf("failed to set ticker mode: %w", err)
	}

	return nil
}

func (tm *tickerManager) RecentBars(instrument string, n int) ([]types.Bar, error) {
	return tm.cache.recentCompleted(instrument, n, time.Now().Unix())
}

func (tm *tickerManager) LastQuote(instrument string) (types.Quote, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	q, ok := tm.quotes[instrument]
	return q, ok
}

func (tm *tickerManager) setQuote(instrument string, q types.Quote) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.quotes[instrument] = q
}

// placeholderToken maps known NSE symbols to their instrument tokens.
// TODO: load the full instrument dump via kc.GetInstruments at startup.
func (tm *tickerManager) placeholderToken(instrument string) uint32 {
	placeholderTokens := map[string]uint32{
		"RELIANCE":   256265,
		"TCS":        2953217,
		"HDFCBANK":   341249,
		"INFY":       408065,
		"SBIN":       779521,
		"ICICIBANK":  1270529,
		"ITC":        424961,
		"TATAMOTORS": 884737,
		"BAJFINANCE": 81153,
		"BHARTIARTL": 2714625,
	}

	if token, exists := placeholderTokens[instrument]; exists {
		return token
	}
	return 256265
}
