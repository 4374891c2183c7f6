package engine

import (
	"context"

	"github.com/google/uuid"

	"mech-trading-bot/internal/interfaces"
	"mech-trading-bot/internal/logger"
	"mech-trading-bot/internal/tradelog"
	"mech-trading-bot/internal/trerr"
	"mech-trading-bot/internal/types"
)

// orderExecutor is the thin layer between the decision core and the
// gateway. It tags every order, records the trade log entry, and normalizes
// gateway failures into execution errors.
type orderExecutor struct {
	gw         interfaces.Gateway
	instrument string
	strategyID string
}

func newOrderExecutor(gw interfaces.Gateway, instrument, strategyID string) *orderExecutor {
	return &orderExecutor{gw: gw, instrument: instrument, strategyID: strategyID}
}

func (oe *orderExecutor) openPosition(ctx context.Context) (*types.Position, error) {
	pos, err := oe.gw.OpenPosition(ctx, oe.instrument, oe.strategyID)
	if err != nil {
		return nil, trerr.Wrap(trerr.KindDataUnavailable, "executor.openPosition", err)
	}
	return pos, nil
}

func (oe *orderExecutor) open(ctx context.Context, dir types.Direction, size, price, stop, target float64, rule, reason string) (types.OpenResp, error) {
	tag := oe.strategyID + "-" + uuid.NewString()[:8]
	resp, err := oe.gw.Open(ctx, types.OpenReq{
		Instrument: oe.instrument,
		Direction:  dir,
		Size:       size,
		Price:      price,
		StopPrice:  stop,
		TakeProfit: target,
		Tag:        tag,
	})
	if err != nil {
		return resp, trerr.Wrap(trerr.KindExecutionRejected, "executor.open", err)
	}

	logger.Trade(ctx, oe.instrument, dir.String(), size, price, resp.TicketID,
		"stop", stop, "take_profit", target, "rule", rule)
	_ = tradelog.Append(tradelog.Entry{
		Instrument: oe.instrument,
		Action:     types.ActionOpen,
		Direction:  dir.String(),
		Ticket:     resp.TicketID,
		Tag:        tag,
		Reason:     reason,
		Size:       size,
		Price:      price,
		Stop:       stop,
		TakeProfit: target,
	})
	return resp, nil
}

func (oe *orderExecutor) adjustStop(ctx context.Context, pos *types.Position, newStop float64) error {
	if err := oe.gw.ModifyStop(ctx, pos.ID, newStop); err != nil {
		return trerr.Wrap(trerr.KindExecutionRejected, "executor.adjustStop", err)
	}
	logger.Info(ctx, "Stop adjusted",
		"instrument", oe.instrument,
		"position", pos.ID,
		"old_stop", pos.StopPrice,
		"new_stop", newStop,
	)
	_ = tradelog.Append(tradelog.Entry{
		Instrument: oe.instrument,
		Action:     types.ActionAdjustStop,
		Direction:  pos.Direction.String(),
		Ticket:     pos.ID,
		Reason:     "trailing stop",
		Size:       pos.Size,
		Stop:       newStop,
	})
	return nil
}

func (oe *orderExecutor) closePosition(ctx context.Context, pos *types.Position, price float64, reason string) error {
	if err := oe.gw.Close(ctx, pos.ID); err != nil {
		return trerr.Wrap(trerr.KindExecutionRejected, "executor.close", err)
	}
	logger.Trade(ctx, oe.instrument, "CLOSE_"+pos.Direction.String(), pos.Size, price, pos.ID,
		"reason", reason)
	_ = tradelog.Append(tradelog.Entry{
		Instrument: oe.instrument,
		Action:     types.ActionClose,
		Direction:  pos.Direction.String(),
		Ticket:     pos.ID,
		Reason:     reason,
		Size:       pos.Size,
		Price:      price,
	})
	return nil
}
