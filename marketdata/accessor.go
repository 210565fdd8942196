package marketdata

import (
	"daytrader/calendar"
)

// Accessor is the read-only interface the Feature Engine and Prediction
// Stage use to reach bar data (§4.3). It is the only type a no-look-ahead
// caller should depend on — concrete stores (SQLite, Postgres, an in-memory
// fixture for tests) all implement it the same way.
type Accessor interface {
	// GetMorningData returns the six (normally) 5-minute bars covering the
	// opening half-hour of date for stock. Fails with a NoData *errs.Error
	// if the table or the window is empty.
	GetMorningData(stock string, date int) (MorningWindow, error)

	// GetDailyData returns the daily OHLCV + auxiliary row for (stock, date).
	GetDailyData(stock string, date int) (DayBar, error)

	// GetPrevDailyData returns the daily row strictly before date on the
	// trading calendar, and found=false (not an error) if date is the
	// earliest known trading day for stock.
	GetPrevDailyData(stock string, date int, cal *calendar.Calendar) (bar DayBar, found bool, err error)

	// GetCurrentPriceAtTime returns the 1-minute close at the exact
	// YYYYMMDDHHMM key; keys before trading start or after trading end are
	// clamped to the start/end value rather than erroring (§4.3).
	GetCurrentPriceAtTime(stock string, key string) (float64, error)
}
