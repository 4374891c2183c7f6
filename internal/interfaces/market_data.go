package interfaces

import (
	"context"

	"mech-trading-bot/internal/types"
)

// MarketData supplies completed bars and live quotes for the traded
// instrument.
type MarketData interface {
	RecentBars(ctx context.Context, instrument string, n int) ([]types.Bar, error)
	Quote(ctx context.Context, instrument string) (types.Quote, error)
	Start(ctx context.Context, instruments []string) error
	Stop(ctx context.Context)
}
