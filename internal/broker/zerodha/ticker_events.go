package zerodha

import (
	"context"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	"github.com/zerodha/gokiteconnect/v4/models"

	"mech-trading-bot/internal/logger"
	"mech-trading-bot/internal/types"
)

// setupEventHandlers configures all websocket event callbacks.
func (tm *tickerManager) setupEventHandlers() {
	tm.ticker.OnConnect(tm.onConnect)
	tm.ticker.OnError(tm.onError)
	tm.ticker.OnClose(tm.onClose)
	tm.ticker.OnReconnect(tm.onReconnect)
	tm.ticker.OnNoReconnect(tm.onNoReconnect)
	tm.ticker.OnTick(tm.onTick)
	tm.ticker.OnOrderUpdate(tm.onOrderUpdate)
}

func (tm *tickerManager) onConnect() {
	logger.Info(context.Background(), "WebSocket connected")
}

func (tm *tickerManager) onError(err error) {
	logger.ErrorWithErr(context.Background(), "WebSocket error occurred", err)
}

func (tm *tickerManager) onClose(code int, reason string) {
	logger.Warn(context.Background(), "WebSocket connection closed",
		"code", code,
		"reason", reason,
	)
}

func (tm *tickerManager) onReconnect(attempt int, delay time.Duration) {
	logger.Info(context.Background(), "WebSocket reconnecting",
		"attempt", attempt,
		"delay", delay,
	)
}

func (tm *tickerManager) onNoReconnect(attempt int) {
	logger.Warn(context.Background(), "WebSocket reconnection failed, giving up",
		"attempts", attempt,
	)
}

func (tm *tickerManager) onTick(tick models.Tick) {
	instrument := tm.mapper.getSymbol(tick.InstrumentToken)
	if instrument == "" {
		return
	}

	ts := tick.Timestamp.Time.Unix()
	if ts == 0 {
		ts = time.Now().Unix()
	}

	tm.cache.applyTick(instrument, ts, tick.LastPrice, float64(tick.VolumeTraded))

	// The full-mode depth carries the touchline; fall back to a synthetic
	// spread around last price when depth is empty.
	bid, ask := tick.LastPrice, tick.LastPrice
	if len(tick.Depth.Buy) > 0 && tick.Depth.Buy[0].Price > 0 {
		bid = tick.Depth.Buy[0].Price
	}
	if len(tick.Depth.Sell) > 0 && tick.Depth.Sell[0].Price > 0 {
		ask = tick.Depth.Sell[0].Price
	}
	tm.setQuote(instrument, types.Quote{Bid: bid, Ask: ask, Ts: ts})
}

func (tm *tickerManager) onOrderUpdate(order kiteconnect.Order) {
	logger.Debug(context.Background(), "Order update received",
		"order_id", order.OrderID,
		"status", order.Status,
		"symbol", order.TradingSymbol,
	)
}
