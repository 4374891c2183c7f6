package interfaces

import (
	"context"
	"time"

	"mech-trading-bot/internal/types"
)

// TradeHistory answers closed-deal queries used to build daily aggregates.
// Only deals that closed positions for the given strategy and instrument are
// returned.
type TradeHistory interface {
	ClosedDeals(ctx context.Context, instrument, strategyID string, from, to time.Time) ([]types.Deal, error)
}
