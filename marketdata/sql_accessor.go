package marketdata

import (
	"database/sql"
	"errors"
	"fmt"

	"daytrader/calendar"
	"daytrader/errs"
)

// SessionBounds supplies the trading-start and last-update YYYYMMDDHHMM keys
// for a date, so GetCurrentPriceAtTime can apply the §4.3 clamping rule.
// clock.Params satisfies this interface via its Bounds method.
type SessionBounds interface {
	Bounds(date int) (startKey, endKey string)
}

// SQLAccessor is a database/sql-backed Accessor. It works unmodified
// against either modernc.org/sqlite (local/backtest runs) or lib/pq
// (production Postgres) since both register standard database/sql drivers;
// only the DSN passed to sql.Open differs. Grounded on
// SynapseStrike/store/strategy.go's *sql.DB + parameterized-query pattern.
type SQLAccessor struct {
	db     *sql.DB
	bounds SessionBounds
}

// NewSQLAccessor wraps an already-open *sql.DB. The caller owns the
// connection's lifecycle (open/close), matching §5's "database handles:
// owned per thread; never shared" — each Feature Materializer worker opens
// its own *sql.DB and builds its own SQLAccessor.
func NewSQLAccessor(db *sql.DB, bounds SessionBounds) *SQLAccessor {
	return &SQLAccessor{db: db, bounds: bounds}
}

func (a *SQLAccessor) GetMorningData(stock string, date int) (MorningWindow, error) {
	stock = NormalizeStockCode(stock)
	rows, err := a.db.Query(
		`SELECT ts, open, high, low, close, volume FROM bars_5min
		 WHERE stock_code = ? AND ts/10000 = ? AND is_morning_window = 1
		 ORDER BY ts ASC`,
		stock, date,
	)
	if err != nil {
		return MorningWindow{}, errs.New(errs.Io, "marketdata.GetMorningData", err)
	}
	defer rows.Close()

	var w MorningWindow
	for rows.Next() {
		var b Bar
		if err := rows.Scan(&b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return MorningWindow{}, errs.New(errs.Parse, "marketdata.GetMorningData", err)
		}
		w.Bars = append(w.Bars, b)
	}
	if err := rows.Err(); err != nil {
		return MorningWindow{}, errs.New(errs.Io, "marketdata.GetMorningData", err)
	}
	if len(w.Bars) == 0 {
		return MorningWindow{}, errs.New(errs.NoData, "marketdata.GetMorningData",
			fmt.Errorf("no morning bars for %s on %d", stock, date))
	}
	return w, nil
}

func (a *SQLAccessor) GetDailyData(stock string, date int) (DayBar, error) {
	stock = NormalizeStockCode(stock)
	row := a.db.QueryRow(
		`SELECT ts, open, high, low, close, volume,
		        shares_outstanding, foreign_limit_shares, foreign_shares,
		        foreign_ratio_pct, inst_net_buy, inst_net_buy_cum
		 FROM bars_day WHERE stock_code = ? AND ts = ?`,
		stock, int64(date)*10000,
	)
	var d DayBar
	err := row.Scan(&d.Timestamp, &d.Open, &d.High, &d.Low, &d.Close, &d.Volume,
		&d.SharesOutstanding, &d.ForeignLimitShares, &d.ForeignShares,
		&d.ForeignRatioPct, &d.InstNetBuy, &d.InstNetBuyCum)
	if errors.Is(err, sql.ErrNoRows) {
		return DayBar{}, errs.New(errs.NoData, "marketdata.GetDailyData",
			fmt.Errorf("no daily bar for %s on %d", stock, date))
	}
	if err != nil {
		return DayBar{}, errs.New(errs.Io, "marketdata.GetDailyData", err)
	}
	return d, nil
}

func (a *SQLAccessor) GetPrevDailyData(stock string, date int, cal *calendar.Calendar) (DayBar, bool, error) {
	prev, err := cal.PreviousTradingDay(date)
	if errors.Is(err, calendar.ErrFirstDay) {
		return DayBar{}, false, nil
	}
	if err != nil {
		return DayBar{}, false, errs.New(errs.Io, "marketdata.GetPrevDailyData", err)
	}
	d, err := a.GetDailyData(stock, prev)
	if kind, ok := errs.KindOf(err); ok && kind == errs.NoData {
		return DayBar{}, false, nil
	}
	if err != nil {
		return DayBar{}, false, err
	}
	return d, true, nil
}

func (a *SQLAccessor) GetCurrentPriceAtTime(stock string, key string) (float64, error) {
	stock = NormalizeStockCode(stock)

	date, err := dateFromKey(key)
	if err != nil {
		return 0, errs.New(errs.Parse, "marketdata.GetCurrentPriceAtTime", err)
	}
	effectiveKey := key
	if a.bounds != nil {
		start, end := a.bounds.Bounds(date)
		if start != "" && key < start {
			effectiveKey = start
		} else if end != "" && key > end {
			effectiveKey = end
		}
	}

	row := a.db.QueryRow(
		`SELECT close FROM bars_1min WHERE stock_code = ? AND ts = ?`,
		stock, effectiveKey,
	)
	var close float64
	err = row.Scan(&close)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, errs.New(errs.NoData, "marketdata.GetCurrentPriceAtTime",
			fmt.Errorf("no 1-minute bar for %s at %s", stock, effectiveKey))
	}
	if err != nil {
		return 0, errs.New(errs.Io, "marketdata.GetCurrentPriceAtTime", err)
	}
	return close, nil
}

func dateFromKey(key string) (int, error) {
	if len(key) != 12 {
		return 0, fmt.Errorf("malformed intraday key %q, want YYYYMMDDHHMM", key)
	}
	var date int
	if _, err := fmt.Sscanf(key[:8], "%d", &date); err != nil {
		return 0, fmt.Errorf("malformed intraday key %q: %w", key, err)
	}
	return date, nil
}
