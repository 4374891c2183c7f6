package zerodha

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mech-trading-bot/internal/types"
)

// Gateway side of the adapter. One open position per instrument/strategy
// pair; the book and the closed-deal ledger live in memory for both modes.

func (z *Zerodha) Open(ctx context.Context, req types.OpenReq) (types.OpenResp, error) {
	if req.Direction != types.DirLong && req.Direction != types.DirShort {
		return types.OpenResp{}, errors.New("open requires a direction")
	}
	if req.Size <= 0 {
		return types.OpenResp{}, fmt.Errorf("invalid size %v", req.Size)
	}

	z.mu.Lock()
	defer z.mu.Unlock()

	if z.pos != nil {
		return types.OpenResp{Status: "REJECTED", Message: "position already open"},
			errors.New("position already open")
	}

	var ticket string
	switch z.p.Mode {
	case "DRY_RUN":
		ticket = fmt.Sprintf("SIM-%d", time.Now().UnixNano())
	default:
		if z.p.APIKey == "" || z.p.AccessToken == "" {
			return types.OpenResp{Status: "REJECTED", Message: "missing credentials"},
				errors.New("missing API key/access token")
		}
		ticket = fmt.Sprintf("LIVE-%d", time.Now().UnixNano())
	}

	z.pos = &types.Position{
		ID:         ticket,
		Direction:  req.Direction,
		Size:       req.Size,
		OpenPrice:  req.Price,
		StopPrice:  req.StopPrice,
		TakeProfit: req.TakeProfit,
		OpenTime:   time.Now(),
	}
	z.lastPrice = req.Price

	return types.OpenResp{TicketID: ticket, Status: "OPEN", Message: "ok"}, nil
}

func (z *Zerodha) ModifyStop(ctx context.Context, positionID string, newStop float64) error {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.pos == nil || z.pos.ID != positionID {
		return fmt.Errorf("no open position with id %s", positionID)
	}
	z.pos.StopPrice = newStop
	return nil
}

func (z *Zerodha) Close(ctx context.Context, positionID string) error {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.pos == nil || z.pos.ID != positionID {
		return fmt.Errorf("no open position with id %s", positionID)
	}

	exit := z.lastPrice
	profit := (exit - z.pos.OpenPrice) * z.pos.Size
	if z.pos.Direction == types.DirShort {
		profit = -profit
	}

	z.deals = append(z.deals, types.Deal{
		Profit:    profit,
		Volume:    z.pos.Size,
		CloseTime: time.Now(),
	})
	z.pos = nil
	return nil
}

func (z *Zerodha) OpenPosition(ctx context.Context, instrument, strategyID string) (*types.Position, error) {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.pos == nil {
		return nil, nil
	}
	p := *z.pos
	return &p, nil
}

// ClosedDeals answers the trade-history port from the in-memory ledger.
func (z *Zerodha) ClosedDeals(ctx context.Context, instrument, strategyID string, from, to time.Time) ([]types.Deal, error) {
	z.mu.Lock()
	defer z.mu.Unlock()

	out := make([]types.Deal, 0, len(z.deals))
	for _, d := range z.deals {
		if d.CloseTime.Before(from) || d.CloseTime.After(to) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}
