package runner

import (
	"context"

	"daytrader/broker"
	"daytrader/clock"
	"daytrader/errs"
	"daytrader/logger"
	"daytrader/metrics"
	"daytrader/store"
)

// recordingBroker decorates a broker.Broker with the ambient concerns the
// Trading State Machine itself has no business owning: Prometheus order
// counters (§2 "ambient metrics") and the Trade Log (§6 "one row per order
// with all fields from §3 plus broker order id and fill status"). This
// keeps trader.Machine exactly as narrow as §4.8 describes it — "its only
// external interactions are synchronous calls into the Broker Adapter".
type recordingBroker struct {
	broker.Broker
	clock  *clock.Clock
	trades *store.TradeLog
}

func (b *recordingBroker) ExecuteOrder(ctx context.Context, o broker.Order) (string, error) {
	id, err := b.Broker.ExecuteOrder(ctx, o)
	if err != nil {
		if kind, ok := errs.KindOf(err); ok {
			metrics.RecordOrderError(string(kind))
		} else {
			metrics.RecordOrderError("unknown")
		}
		return "", err
	}
	metrics.RecordOrder(string(o.Side), string(o.Reason))

	price, priceErr := b.Broker.GetCurrentPriceAtTime(ctx, o.Stock, o.Timestamp)
	if priceErr != nil {
		logger.Warnf("runner: could not fetch fill price for trade log row %s/%s: %v", o.Stock, id, priceErr)
	}
	if b.trades != nil {
		rec := store.TradeRecord{
			Date:     b.clock.Date(),
			Stock:    o.Stock,
			Side:     string(o.Side),
			Reason:   string(o.Reason),
			Quantity: o.Quantity,
			Price:    price,
			OrderID:  id,
			Filled:   true,
		}
		if err := b.trades.Record(rec); err != nil {
			logger.Warnf("runner: failed to record trade log row for order %s: %v", id, err)
		}
	}
	return id, nil
}

// SetCurrentKey forwards to the underlying BacktestBroker when present, so
// the backtestKeySetter type assertion in runner.go sees through this
// decorator to the concrete adapter.
func (b *recordingBroker) SetCurrentKey(key string) {
	if bt, ok := b.Broker.(backtestKeySetter); ok {
		bt.SetCurrentKey(key)
	}
}
