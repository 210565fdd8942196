package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"daytrader/errs"
	"daytrader/marketdata"
)

// BacktestFees holds the fee/slippage percentages from §6 "Backtest
// parameters" — all expressed in percent, matching config.Backtest's field
// names.
type BacktestFees struct {
	BuyFeeRatePct       float64
	SellFeeRatePct      float64
	BuySlippageRatePct  float64
	SellSlippageRatePct float64
}

// BacktestBroker synthesizes order execution by stamping the current
// simulated price and applying configured slippage/fee (§4.9 "DB-Backtest").
// Balance is maintained entirely in memory using shopspring/decimal for
// exact KRW arithmetic, avoiding the float64 rounding drift a long backtest
// run would otherwise accumulate across thousands of fills.
type BacktestBroker struct {
	data       marketdata.Accessor
	fees       BacktestFees
	mu         sync.Mutex
	cash       decimal.Decimal
	qty        int64
	stock      string // the currently held stock, "" if flat
	avg        decimal.Decimal
	currentKey string // set by the Runner before each Update tick
}

// NewBacktestBroker seeds the ledger with initialCash KRW.
func NewBacktestBroker(data marketdata.Accessor, fees BacktestFees, initialCash float64) *BacktestBroker {
	return &BacktestBroker{
		data: data,
		fees: fees,
		cash: decimal.NewFromFloat(initialCash),
	}
}

// SetCurrentKey tells the adapter which YYYYMMDDHHMM minute key to treat as
// "now" for price lookups; the Runner calls this once per Update tick
// before invoking any State Machine rule (§4.9 "stamping the current
// simulated price (1-minute close at the clock's current minute)").
func (b *BacktestBroker) SetCurrentKey(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.currentKey = key
}

func (b *BacktestBroker) priceNow(stock string) (float64, error) {
	b.mu.Lock()
	key := b.currentKey
	b.mu.Unlock()
	return b.data.GetCurrentPriceAtTime(stock, key)
}

// ExecuteOrder fills immediately at priceNow adjusted by the configured
// slippage and fee, updating the in-memory ledger (§4.9, §5 DB-Backtest
// semantics: "check_fill always returns filled").
func (b *BacktestBroker) ExecuteOrder(ctx context.Context, order Order) (string, error) {
	price, err := b.priceNow(order.Stock)
	if err != nil {
		return "", errs.New(errs.NoData, "broker.BacktestBroker.ExecuteOrder", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	decPrice := decimal.NewFromFloat(price)
	qty := decimal.NewFromInt(order.Quantity)
	hundred := decimal.NewFromInt(100)

	switch order.Side {
	case Buy:
		slip := decPrice.Mul(decimal.NewFromFloat(b.fees.BuySlippageRatePct)).Div(hundred)
		fillPrice := decPrice.Add(slip)
		gross := fillPrice.Mul(qty)
		fee := gross.Mul(decimal.NewFromFloat(b.fees.BuyFeeRatePct)).Div(hundred)
		total := gross.Add(fee)
		if total.GreaterThan(b.cash) {
			return "", errs.New(errs.OrderReject, "broker.BacktestBroker.ExecuteOrder",
				fmt.Errorf("insufficient cash: need %s, have %s", total, b.cash))
		}
		b.cash = b.cash.Sub(total)
		b.qty += order.Quantity
		b.avg = fillPrice
		b.stock = order.Stock
	case Sell:
		slip := decPrice.Mul(decimal.NewFromFloat(b.fees.SellSlippageRatePct)).Div(hundred)
		fillPrice := decPrice.Sub(slip)
		gross := fillPrice.Mul(qty)
		fee := gross.Mul(decimal.NewFromFloat(b.fees.SellFeeRatePct)).Div(hundred)
		b.cash = b.cash.Add(gross.Sub(fee))
		b.qty -= order.Quantity
		if b.qty <= 0 {
			b.qty = 0
			b.stock = ""
			b.avg = decimal.Zero
		}
	}
	return uuid.NewString(), nil
}

// CheckFill always reports filled: the DB-Backtest adapter fills
// synchronously inside ExecuteOrder.
func (b *BacktestBroker) CheckFill(ctx context.Context, orderID string) (bool, error) {
	return true, nil
}

// CancelOrder is a no-op: by the time CancelOrder could be called, the
// order has already filled (§4.9 DB-Backtest semantics).
func (b *BacktestBroker) CancelOrder(ctx context.Context, orderID string) error {
	return nil
}

func (b *BacktestBroker) GetBalance(ctx context.Context) (Balance, error) {
	b.mu.Lock()
	cash, _ := b.cash.Float64()
	qty := b.qty
	stock := b.stock
	key := b.currentKey
	b.mu.Unlock()

	equity := cash
	if qty > 0 {
		if price, err := b.data.GetCurrentPriceAtTime(stock, key); err == nil {
			equity += price * float64(qty)
		}
	}
	return Balance{Cash: cash, Equity: equity, HoldingQty: qty}, nil
}

func (b *BacktestBroker) GetAvgPrice(ctx context.Context, stock string) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stock != stock || b.qty == 0 {
		return 0, ErrNotHeld
	}
	avg, _ := b.avg.Float64()
	return avg, nil
}

func (b *BacktestBroker) GetCurrentPrice(ctx context.Context, stock string) (float64, error) {
	return b.priceNow(stock)
}

func (b *BacktestBroker) GetCurrentPriceAtTime(ctx context.Context, stock string, key string) (float64, error) {
	return b.data.GetCurrentPriceAtTime(stock, key)
}
