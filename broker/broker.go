// Package broker implements the Broker Adapter (§4.9): one interface behind
// which the Real, Paper, and DB-Backtest adapters present an identical,
// synchronous order/balance/price surface to the Trading State Machine and
// the Prediction Stage.
//
// Grounded on SynapseStrike/trader/auto_trader.go's own Trader interface
// usage (OpenLong/OpenShort/CloseLong/CloseShort/GetBalance/GetPositions/
// GetOrderStatus, invoked only through at.trader), collapsed to the long-
// only single-position contract §4.8/§4.9 describe for this domain, plus
// SynapseStrike/trader/alpaca_trader.go's REST-adapter shape for the Real
// implementation.
package broker

import (
	"context"

	"daytrader/errs"
)

// Side names a market order's direction (§3, §4.8 only ever issues Buy then
// a single offsetting Sell per day).
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Reason records why a Sell was issued, carried through to the trade log
// (§6 "Trade log: one row per order... plus broker order id and fill
// status").
type Reason string

const (
	ReasonEntry      Reason = "Entry"
	ReasonStopLoss   Reason = "StopLoss"
	ReasonTakeProfit Reason = "TakeProfit"
	ReasonForceClose Reason = "ForceClose"
)

// Order is both the request and, once filled, the record of a single
// market order (§4.9 interface table, §6 trade log).
type Order struct {
	ID        string
	Stock     string
	Side      Side
	Reason    Reason
	Quantity  int64
	Price     float64 // 0 on submission; filled price once known
	Timestamp string  // YYYYMMDDHHMM at submission
}

// Balance is the account snapshot returned by GetBalance (§4.9).
type Balance struct {
	Cash       float64
	Equity     float64
	HoldingQty int64
}

// Broker is the single interface the State Machine and Prediction Stage
// depend on; Real, Paper, and Backtest all satisfy it identically.
type Broker interface {
	ExecuteOrder(ctx context.Context, order Order) (orderID string, err error)
	CheckFill(ctx context.Context, orderID string) (filled bool, err error)
	CancelOrder(ctx context.Context, orderID string) error
	GetBalance(ctx context.Context) (Balance, error)
	GetAvgPrice(ctx context.Context, stock string) (float64, error)
	GetCurrentPrice(ctx context.Context, stock string) (float64, error)
	GetCurrentPriceAtTime(ctx context.Context, stock string, key string) (float64, error)
}

// ErrNotHeld is returned by GetAvgPrice when the adapter holds no position in
// stock. It is a single shared *errs.Error of kind BalanceInquiry, so callers
// can compare against it directly to treat "not held" as a normal, expected
// outcome rather than a failure.
var ErrNotHeld = errs.New(errs.BalanceInquiry, "broker.GetAvgPrice", nil)
