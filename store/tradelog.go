// Package store implements the two SQL-backed persistence surfaces §6
// names: the Trade Log (one row per order, sqlite) and the Analytics Store
// (one row per (date, stock_code) feature set, Postgres). Grounded on the
// teacher's own tactics store (CREATE TABLE IF NOT EXISTS at construction,
// parameterized INSERT/SELECT, an initTables/init split), adapted from
// tactic-config CRUD to append-only trade and feature rows.
package store

import (
	"database/sql"
	"time"

	"daytrader/errs"
)

// TradeRecord is one row of the trade log (§6 "Trade log: one row per
// order with all fields from §3 plus broker order id and fill status").
type TradeRecord struct {
	ID        int64
	Date      int
	Stock     string
	Side      string
	Reason    string
	Quantity  int64
	Price     float64
	OrderID   string
	Filled    bool
	CreatedAt time.Time
}

// TradeLog persists TradeRecords to sqlite (§2 ambient stack "Persistence").
type TradeLog struct {
	db *sql.DB
}

// NewTradeLog wraps an already-open *sql.DB and ensures the trades table
// exists.
func NewTradeLog(db *sql.DB) (*TradeLog, error) {
	t := &TradeLog{db: db}
	if err := t.initTables(); err != nil {
		return nil, errs.New(errs.Io, "store.NewTradeLog", err)
	}
	return t, nil
}

func (t *TradeLog) initTables() error {
	_, err := t.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date INTEGER NOT NULL,
			stock TEXT NOT NULL,
			side TEXT NOT NULL,
			reason TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			price REAL NOT NULL,
			order_id TEXT NOT NULL,
			filled BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}
	_, err = t.db.Exec(`CREATE INDEX IF NOT EXISTS idx_trades_date ON trades(date)`)
	return err
}

// Record inserts one trade row (§6 trade log). Called by the Runner
// immediately after a Broker.ExecuteOrder call returns successfully.
func (t *TradeLog) Record(r TradeRecord) error {
	_, err := t.db.Exec(`
		INSERT INTO trades (date, stock, side, reason, quantity, price, order_id, filled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.Date, r.Stock, r.Side, r.Reason, r.Quantity, r.Price, r.OrderID, r.Filled)
	if err != nil {
		return errs.New(errs.Io, "store.TradeLog.Record", err)
	}
	return nil
}

// Recent returns the most recent limit trade rows, newest first.
func (t *TradeLog) Recent(limit int) ([]TradeRecord, error) {
	rows, err := t.db.Query(`
		SELECT id, date, stock, side, reason, quantity, price, order_id, filled, created_at
		FROM trades ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, errs.New(errs.Io, "store.TradeLog.Recent", err)
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var r TradeRecord
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Date, &r.Stock, &r.Side, &r.Reason, &r.Quantity, &r.Price, &r.OrderID, &r.Filled, &createdAt); err != nil {
			return nil, errs.New(errs.Parse, "store.TradeLog.Recent", err)
		}
		r.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.New(errs.Io, "store.TradeLog.Recent", err)
	}
	return out, nil
}

// ForDate returns every trade recorded for date, oldest first. The Runner
// does not consult it, so a process restarted mid-day does not learn of a
// position opened earlier that day.
func (t *TradeLog) ForDate(date int) ([]TradeRecord, error) {
	rows, err := t.db.Query(`
		SELECT id, date, stock, side, reason, quantity, price, order_id, filled, created_at
		FROM trades WHERE date = ? ORDER BY id ASC
	`, date)
	if err != nil {
		return nil, errs.New(errs.Io, "store.TradeLog.ForDate", err)
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var r TradeRecord
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Date, &r.Stock, &r.Side, &r.Reason, &r.Quantity, &r.Price, &r.OrderID, &r.Filled, &createdAt); err != nil {
			return nil, errs.New(errs.Parse, "store.TradeLog.ForDate", err)
		}
		r.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.New(errs.Io, "store.TradeLog.ForDate", err)
	}
	return out, nil
}
