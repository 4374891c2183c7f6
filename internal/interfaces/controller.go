package interfaces

import (
	"context"

	"mech-trading-bot/internal/types"
)

// Controller is the decision core exposed to the host. OnBarClosed is
// idempotent within the same bar; OnTick manages an open position without
// re-running detection.
type Controller interface {
	OnBarClosed(ctx context.Context, bar types.Bar) (*types.CycleResult, error)
	OnTick(ctx context.Context, quote types.Quote) (*types.CycleResult, error)
}
