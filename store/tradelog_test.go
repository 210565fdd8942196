package store

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTradeLogRecordAndRecent(t *testing.T) {
	db := openTestDB(t)
	log, err := NewTradeLog(db)
	require.NoError(t, err)

	require.NoError(t, log.Record(TradeRecord{Date: 20240102, Stock: "A000001", Side: "BUY", Reason: "Entry", Quantity: 10, Price: 10000, OrderID: "o1", Filled: true}))
	require.NoError(t, log.Record(TradeRecord{Date: 20240102, Stock: "A000001", Side: "SELL", Reason: "TakeProfit", Quantity: 10, Price: 10200, OrderID: "o2", Filled: true}))

	recent, err := log.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "o2", recent[0].OrderID) // newest first
	assert.Equal(t, "o1", recent[1].OrderID)
}

func TestTradeLogForDate(t *testing.T) {
	db := openTestDB(t)
	log, err := NewTradeLog(db)
	require.NoError(t, err)

	require.NoError(t, log.Record(TradeRecord{Date: 20240102, Stock: "A000001", Side: "BUY", Reason: "Entry", Quantity: 5, Price: 9000, OrderID: "o1"}))
	require.NoError(t, log.Record(TradeRecord{Date: 20240103, Stock: "A000002", Side: "BUY", Reason: "Entry", Quantity: 5, Price: 8000, OrderID: "o2"}))

	rows, err := log.ForDate(20240102)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "o1", rows[0].OrderID)
}

func TestTradeLogRecentEmptyTable(t *testing.T) {
	db := openTestDB(t)
	log, err := NewTradeLog(db)
	require.NoError(t, err)

	rows, err := log.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
