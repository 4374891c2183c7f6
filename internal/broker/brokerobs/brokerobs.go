// Package brokerobs wraps the market-data and gateway ports with tracing
// and logging middleware.
package brokerobs

import (
	"context"
	"fmt"

	"mech-trading-bot/internal/interfaces"
	"mech-trading-bot/internal/logger"
	"mech-trading-bot/internal/trace"
	"mech-trading-bot/internal/types"
)

type observableMarketData struct {
	md interfaces.MarketData
}

var _ interfaces.MarketData = (*observableMarketData)(nil)

// WrapMarketData decorates a MarketData port with spans and debug logs.
func WrapMarketData(md interfaces.MarketData) interfaces.MarketData {
	return &observableMarketData{md: md}
}

func (om *observableMarketData) RecentBars(ctx context.Context, instrument string, n int) ([]types.Bar, error) {
	ctx, span := trace.StartSpan(ctx, "broker.RecentBars")
	defer span.End()

	bars, err := om.md.RecentBars(ctx, instrument, n)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch bars", err, "instrument", instrument, "count", n)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Bars fetched", "instrument", instrument, "count", len(bars))
	return bars, nil
}

func (om *observableMarketData) Quote(ctx context.Context, instrument string) (types.Quote, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Quote")
	defer span.End()

	q, err := om.md.Quote(ctx, instrument)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch quote", err, "instrument", instrument)
		return types.Quote{}, err
	}

	logger.DebugSkip(ctx, 1, "Quote fetched", "instrument", instrument, "bid", q.Bid, "ask", q.Ask)
	return q, nil
}

func (om *observableMarketData) Start(ctx context.Context, instruments []string) error {
	ctx, span := trace.StartSpan(ctx, "broker.Start")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Starting market data", "instruments", instruments)

	if err := om.md.Start(ctx, instruments); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to start market data", err, "instruments", instruments)
		return fmt.Errorf("market data start failed: %w", err)
	}

	logger.InfoSkip(ctx, 1, "Market data started", "instruments", instruments)
	return nil
}

func (om *observableMarketData) Stop(ctx context.Context) {
	ctx, span := trace.StartSpan(ctx, "broker.Stop")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Stopping market data")
	om.md.Stop(ctx)
	logger.InfoSkip(ctx, 1, "Market data stopped")
}

type observableGateway struct {
	gw interfaces.Gateway
}

var _ interfaces.Gateway = (*observableGateway)(nil)

// WrapGateway decorates a Gateway port with spans and order logs.
func WrapGateway(gw interfaces.Gateway) interfaces.Gateway {
	return &observableGateway{gw: gw}
}

func (og *observableGateway) Open(ctx context.Context, req types.OpenReq) (types.OpenResp, error) {
	ctx, span := trace.StartSpan(ctx, "gateway.Open")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Submitting open",
		"instrument", req.Instrument,
		"direction", req.Direction.String(),
		"size", req.Size,
		"tag", req.Tag,
	)

	resp, err := og.gw.Open(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Open failed", err,
			"instrument", req.Instrument,
			"direction", req.Direction.String(),
			"size", req.Size,
		)
		return resp, err
	}

	logger.InfoSkip(ctx, 1, "Open accepted",
		"instrument", req.Instrument,
		"ticket", resp.TicketID,
		"status", resp.Status,
	)
	return resp, nil
}

func (og *observableGateway) ModifyStop(ctx context.Context, positionID string, newStop float64) error {
	ctx, span := trace.StartSpan(ctx, "gateway.ModifyStop")
	defer span.End()

	if err := og.gw.ModifyStop(ctx, positionID, newStop); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Stop modify failed", err, "position", positionID, "new_stop", newStop)
		return err
	}

	logger.DebugSkip(ctx, 1, "Stop modified", "position", positionID, "new_stop", newStop)
	return nil
}

func (og *observableGateway) Close(ctx context.Context, positionID string) error {
	ctx, span := trace.StartSpan(ctx, "gateway.Close")
	defer span.End()

	if err := og.gw.Close(ctx, positionID); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Close failed", err, "position", positionID)
		return err
	}

	logger.InfoSkip(ctx, 1, "Position closed", "position", positionID)
	return nil
}

func (og *observableGateway) OpenPosition(ctx context.Context, instrument, strategyID string) (*types.Position, error) {
	ctx, span := trace.StartSpan(ctx, "gateway.OpenPosition")
	defer span.End()

	pos, err := og.gw.OpenPosition(ctx, instrument, strategyID)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Position lookup failed", err, "instrument", instrument)
		return nil, err
	}
	return pos, nil
}
