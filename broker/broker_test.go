package broker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daytrader/marketdata"
)

func fixtureAccessor(t *testing.T) *marketdata.Memory {
	t.Helper()
	mem := marketdata.NewMemory()
	mem.PutMinute("A000001", "202401020931", 10000)
	mem.PutMinute("A000001", "202401021000", 10500)
	return mem
}

func TestBacktestExecuteOrderRoundTrip(t *testing.T) {
	mem := fixtureAccessor(t)
	b := NewBacktestBroker(mem, BacktestFees{}, 1_000_000)
	b.SetCurrentKey("202401020931")

	orderID, err := b.ExecuteOrder(context.Background(), Order{Stock: "A000001", Side: Buy, Quantity: 10})
	require.NoError(t, err)
	require.NotEmpty(t, orderID)

	filled, err := b.CheckFill(context.Background(), orderID)
	require.NoError(t, err)
	assert.True(t, filled)

	avg, err := b.GetAvgPrice(context.Background(), "A000001")
	require.NoError(t, err)
	assert.InDelta(t, 10000.0, avg, 1e-9)

	bal, err := b.GetBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), bal.HoldingQty)
	assert.InDelta(t, 900000.0, bal.Cash, 1e-6)

	b.SetCurrentKey("202401021000")
	sellID, err := b.ExecuteOrder(context.Background(), Order{Stock: "A000001", Side: Sell, Quantity: 10})
	require.NoError(t, err)
	require.NotEmpty(t, sellID)

	bal, err = b.GetBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal.HoldingQty)
	assert.InDelta(t, 1005000.0, bal.Cash, 1e-6)

	_, err = b.GetAvgPrice(context.Background(), "A000001")
	assert.Equal(t, ErrNotHeld, err)
}

func TestBacktestExecuteOrderInsufficientCash(t *testing.T) {
	mem := fixtureAccessor(t)
	b := NewBacktestBroker(mem, BacktestFees{}, 100)
	b.SetCurrentKey("202401020931")

	_, err := b.ExecuteOrder(context.Background(), Order{Stock: "A000001", Side: Buy, Quantity: 10})
	require.Error(t, err)
}

func TestBacktestFeesAndSlippageApplied(t *testing.T) {
	mem := fixtureAccessor(t)
	fees := BacktestFees{BuyFeeRatePct: 1.0, BuySlippageRatePct: 1.0}
	b := NewBacktestBroker(mem, fees, 1_000_000)
	b.SetCurrentKey("202401020931")

	_, err := b.ExecuteOrder(context.Background(), Order{Stock: "A000001", Side: Buy, Quantity: 1})
	require.NoError(t, err)

	avg, err := b.GetAvgPrice(context.Background(), "A000001")
	require.NoError(t, err)
	assert.InDelta(t, 10100.0, avg, 1e-6) // 10000 + 1% slippage

	bal, err := b.GetBalance(context.Background())
	require.NoError(t, err)
	// gross 10100 + 1% fee (101) = 10201 spent
	assert.InDelta(t, 1_000_000-10201.0, bal.Cash, 1e-6)
}

func TestBacktestCancelOrderIsNoop(t *testing.T) {
	mem := fixtureAccessor(t)
	b := NewBacktestBroker(mem, BacktestFees{}, 1_000_000)
	assert.NoError(t, b.CancelOrder(context.Background(), "whatever"))
}
