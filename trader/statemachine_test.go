package trader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daytrader/broker"
	"daytrader/prediction"
)

type fakeBroker struct {
	prices   map[string]float64
	cash     float64
	orders   []broker.Order
	failNext bool
}

func newFakeBroker(cash float64) *fakeBroker {
	return &fakeBroker{prices: map[string]float64{}, cash: cash}
}

func (f *fakeBroker) ExecuteOrder(ctx context.Context, order broker.Order) (string, error) {
	if f.failNext {
		f.failNext = false
		return "", assertErr
	}
	f.orders = append(f.orders, order)
	if order.Side == broker.Buy {
		f.cash -= f.prices[order.Stock] * float64(order.Quantity)
	} else {
		f.cash += f.prices[order.Stock] * float64(order.Quantity)
	}
	return "order-1", nil
}
func (f *fakeBroker) CheckFill(ctx context.Context, orderID string) (bool, error) { return true, nil }
func (f *fakeBroker) CancelOrder(ctx context.Context, orderID string) error       { return nil }
func (f *fakeBroker) GetBalance(ctx context.Context) (broker.Balance, error) {
	return broker.Balance{Cash: f.cash}, nil
}
func (f *fakeBroker) GetAvgPrice(ctx context.Context, stock string) (float64, error) { return 0, nil }
func (f *fakeBroker) GetCurrentPrice(ctx context.Context, stock string) (float64, error) {
	return f.prices[stock], nil
}
func (f *fakeBroker) GetCurrentPriceAtTime(ctx context.Context, stock string, key string) (float64, error) {
	return f.prices[stock], nil
}

var assertErr = errTest("simulated broker failure")

type errTest string

func (e errTest) Error() string { return string(e) }

func TestEntryTransitionsToHolding(t *testing.T) {
	b := newFakeBroker(1_000_000)
	b.prices["A000001"] = 10000
	m := NewMachine(Config{StopLossPct: 1, TakeProfitPct: 2, EntryAssetRatio: 100}, b)

	err := m.TryEntry(context.Background(), &prediction.Pick{Stock: "A000001", Score: 1.0}, "202401020930")
	require.NoError(t, err)
	assert.Equal(t, Holding, m.State())
	assert.Equal(t, int64(100), m.Position().PositionSize)
}

func TestEntryAbandonedOnZeroQuantity(t *testing.T) {
	b := newFakeBroker(100)
	b.prices["A000001"] = 1_000_000
	m := NewMachine(Config{StopLossPct: 1, TakeProfitPct: 2, EntryAssetRatio: 100}, b)

	err := m.TryEntry(context.Background(), &prediction.Pick{Stock: "A000001"}, "202401020930")
	require.NoError(t, err)
	assert.Equal(t, WaitingForEntry, m.State())
}

func TestEntryErrorAbortsDay(t *testing.T) {
	b := newFakeBroker(1_000_000)
	b.prices["A000001"] = 10000
	b.failNext = true
	m := NewMachine(Config{StopLossPct: 1, TakeProfitPct: 2, EntryAssetRatio: 100}, b)

	err := m.TryEntry(context.Background(), &prediction.Pick{Stock: "A000001"}, "202401020930")
	require.Error(t, err)
	assert.Equal(t, WaitingForEntry, m.State())
}

func TestStopLossExits(t *testing.T) {
	b := newFakeBroker(1_000_000)
	b.prices["A000001"] = 10000
	m := NewMachine(Config{StopLossPct: 1, TakeProfitPct: 2, EntryAssetRatio: 100}, b)
	require.NoError(t, m.TryEntry(context.Background(), &prediction.Pick{Stock: "A000001"}, "202401020930"))

	b.prices["A000001"] = 9890 // -1.1%
	require.NoError(t, m.OnUpdate(context.Background(), "202401020935", false))
	assert.Equal(t, Closed, m.State())
	assert.Equal(t, broker.ReasonStopLoss, b.orders[len(b.orders)-1].Reason)
}

func TestTakeProfitExits(t *testing.T) {
	b := newFakeBroker(1_000_000)
	b.prices["A000001"] = 10000
	m := NewMachine(Config{StopLossPct: 1, TakeProfitPct: 2, EntryAssetRatio: 100}, b)
	require.NoError(t, m.TryEntry(context.Background(), &prediction.Pick{Stock: "A000001"}, "202401020930"))

	b.prices["A000001"] = 10250 // +2.5%
	require.NoError(t, m.OnUpdate(context.Background(), "202401020935", false))
	assert.Equal(t, Closed, m.State())
	assert.Equal(t, broker.ReasonTakeProfit, b.orders[len(b.orders)-1].Reason)
}

func TestHoldsWhenWithinBand(t *testing.T) {
	b := newFakeBroker(1_000_000)
	b.prices["A000001"] = 10000
	m := NewMachine(Config{StopLossPct: 1, TakeProfitPct: 2, EntryAssetRatio: 100}, b)
	require.NoError(t, m.TryEntry(context.Background(), &prediction.Pick{Stock: "A000001"}, "202401020930"))

	b.prices["A000001"] = 10050
	require.NoError(t, m.OnUpdate(context.Background(), "202401020935", false))
	assert.Equal(t, Holding, m.State())
}

func TestForceCloseTakesPriorityOverBand(t *testing.T) {
	b := newFakeBroker(1_000_000)
	b.prices["A000001"] = 10000
	m := NewMachine(Config{StopLossPct: 1, TakeProfitPct: 2, EntryAssetRatio: 100}, b)
	require.NoError(t, m.TryEntry(context.Background(), &prediction.Pick{Stock: "A000001"}, "202401020930"))

	b.prices["A000001"] = 10050 // within band, would normally hold
	require.NoError(t, m.OnUpdate(context.Background(), "202401021520", true))
	assert.Equal(t, Closed, m.State())
	assert.Equal(t, broker.ReasonForceClose, b.orders[len(b.orders)-1].Reason)
}

func TestForceCloseIdempotentWithoutPosition(t *testing.T) {
	b := newFakeBroker(1_000_000)
	m := NewMachine(Config{StopLossPct: 1, TakeProfitPct: 2, EntryAssetRatio: 100}, b)
	require.NoError(t, m.OnUpdate(context.Background(), "202401021520", true))
	assert.Equal(t, WaitingForEntry, m.State())
	assert.Empty(t, b.orders)
}

func TestResetReturnsToWaitingForEntry(t *testing.T) {
	b := newFakeBroker(1_000_000)
	b.prices["A000001"] = 10000
	m := NewMachine(Config{StopLossPct: 1, TakeProfitPct: 2, EntryAssetRatio: 100}, b)
	require.NoError(t, m.TryEntry(context.Background(), &prediction.Pick{Stock: "A000001"}, "202401020930"))
	m.Reset()
	assert.Equal(t, WaitingForEntry, m.State())
	assert.Equal(t, Position{}, m.Position())
}

func TestAtMostOnePositionAcrossRepeatedEntryAttempts(t *testing.T) {
	b := newFakeBroker(1_000_000)
	b.prices["A000001"] = 10000
	b.prices["A000002"] = 5000
	m := NewMachine(Config{StopLossPct: 1, TakeProfitPct: 2, EntryAssetRatio: 50}, b)

	require.NoError(t, m.TryEntry(context.Background(), &prediction.Pick{Stock: "A000001"}, "202401020930"))
	require.NoError(t, m.TryEntry(context.Background(), &prediction.Pick{Stock: "A000002"}, "202401020931"))

	assert.Equal(t, "A000001", m.Position().Stock)
	buys := 0
	for _, o := range b.orders {
		if o.Side == broker.Buy {
			buys++
		}
	}
	assert.Equal(t, 1, buys)
}
