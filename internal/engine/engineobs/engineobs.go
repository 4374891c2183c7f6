// Package engineobs wraps a Controller with tracing spans and debug logs.
// It has no decision logic of its own.
package engineobs

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"mech-trading-bot/internal/interfaces"
	"mech-trading-bot/internal/logger"
	"mech-trading-bot/internal/trace"
	"mech-trading-bot/internal/types"
)

type observed struct {
	inner interfaces.Controller
}

// Wrap decorates a Controller with span and log instrumentation.
func Wrap(inner interfaces.Controller) interfaces.Controller {
	return &observed{inner: inner}
}

func (o *observed) OnBarClosed(ctx context.Context, bar types.Bar) (*types.CycleResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.OnBarClosed",
		oteltrace.WithAttributes(
			attribute.Int64("bar.ts", bar.Ts),
			attribute.Float64("bar.close", bar.Close),
		))
	defer span.End()

	res, err := o.inner.OnBarClosed(ctx, bar)
	if err != nil {
		span.RecordError(err)
		logger.ErrorWithErrSkip(ctx, 1, "Bar cycle failed", err, "bar_ts", bar.Ts)
		return res, err
	}
	if res != nil {
		span.SetAttributes(attribute.String("cycle.action", res.Action))
		logger.DebugSkip(ctx, 1, "Bar cycle complete",
			"bar_ts", bar.Ts, "action", res.Action, "reason", res.Reason)
	}
	return res, nil
}

func (o *observed) OnTick(ctx context.Context, quote types.Quote) (*types.CycleResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.OnTick",
		oteltrace.WithAttributes(
			attribute.Float64("quote.bid", quote.Bid),
			attribute.Float64("quote.ask", quote.Ask),
		))
	defer span.End()

	res, err := o.inner.OnTick(ctx, quote)
	if err != nil {
		span.RecordError(err)
		logger.ErrorWithErrSkip(ctx, 1, "Tick cycle failed", err)
		return res, err
	}
	if res != nil && res.Action != types.ActionNone {
		span.SetAttributes(attribute.String("cycle.action", res.Action))
		logger.InfoSkip(ctx, 1, "Tick cycle acted", "action", res.Action, "reason", res.Reason)
	}
	return res, nil
}
