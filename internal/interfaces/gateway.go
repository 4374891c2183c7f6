package interfaces

import (
	"context"

	"mech-trading-bot/internal/types"
)

// Gateway is the execution boundary. The core emits instructions; the
// gateway owns tickets and position bookkeeping.
type Gateway interface {
	Open(ctx context.Context, req types.OpenReq) (types.OpenResp, error)
	ModifyStop(ctx context.Context, positionID string, newStop float64) error
	Close(ctx context.Context, positionID string) error
	// OpenPosition returns the open position for the instrument/strategy
	// pair, or nil when none exists.
	OpenPosition(ctx context.Context, instrument, strategyID string) (*types.Position, error)
}
