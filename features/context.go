package features

import (
	"errors"

	"daytrader/calendar"
	"daytrader/marketdata"
	"daytrader/sectormap"
)

// Context bundles everything an indicator needs to reach historical data
// for one (stock, date) key without ever touching same-day data past the
// morning window (§4.4 rule 1). Every Feature* function takes a *Context
// plus whatever extra parameters it needs. Sectors is nil-able: a caller
// that hasn't built a Day Sector Cache for this date simply gets the
// documented neutral value from every cross-sectional feature.
type Context struct {
	Stock   string
	Date    int
	Cal     *calendar.Calendar
	Data    marketdata.Accessor
	Sectors *sectormap.DayCache
}

// History is a column-oriented daily series strictly before ctx.Date,
// oldest -> newest, as produced by dailyHistory.
type History struct {
	Closes, Opens, Highs, Lows []float64
	Volumes                    []float64
	ForeignRatio               []float64
	ForeignShares              []float64
	InstNetBuy                 []float64
	InstNetBuyCum              []float64
	MarketCap                  []float64 // close * shares outstanding
	Dates                      []int64
}

// dailyHistory walks the calendar backward from ctx.Date up to n trading
// days, collecting the daily bar for each, and returns them oldest->newest.
// It never reads ctx.Date itself or any later date, which is what makes
// every feature built on it no-look-ahead by construction. Gaps (a date
// with no row, e.g. a newly-listed issue) truncate the walk rather than
// erroring, since a short history is exactly the "insufficient data"
// condition indicator functions are required to degrade gracefully on.
func dailyHistory(ctx *Context, n int) History {
	var h History
	date := ctx.Date
	rows := make([]marketdata.DayBar, 0, n)
	for i := 0; i < n; i++ {
		prev, err := ctx.Cal.PreviousTradingDay(date)
		if err != nil {
			break
		}
		bar, err := ctx.Data.GetDailyData(ctx.Stock, prev)
		if err != nil {
			break
		}
		rows = append(rows, bar)
		date = prev
	}
	// rows is newest -> oldest; reverse into oldest -> newest.
	for i := len(rows) - 1; i >= 0; i-- {
		b := rows[i]
		h.Closes = append(h.Closes, float64(b.Close))
		h.Opens = append(h.Opens, float64(b.Open))
		h.Highs = append(h.Highs, float64(b.High))
		h.Lows = append(h.Lows, float64(b.Low))
		h.Volumes = append(h.Volumes, float64(b.Volume))
		h.ForeignRatio = append(h.ForeignRatio, b.ForeignRatioPct)
		h.ForeignShares = append(h.ForeignShares, float64(b.ForeignShares))
		h.InstNetBuy = append(h.InstNetBuy, float64(b.InstNetBuy))
		h.InstNetBuyCum = append(h.InstNetBuyCum, float64(b.InstNetBuyCum))
		h.MarketCap = append(h.MarketCap, float64(b.Close)*float64(b.SharesOutstanding))
		h.Dates = append(h.Dates, b.Timestamp)
	}
	return h
}

// prevDailyBar returns the trading day strictly before ctx.Date, and
// found=false (not an error) if ctx.Date is the stock's first known day —
// the same "graceful degradation after checking via the calendar" escape
// hatch named in §4.4 rule 4.
func prevDailyBar(ctx *Context) (marketdata.DayBar, bool) {
	bar, found, err := ctx.Data.GetPrevDailyData(ctx.Stock, ctx.Date, ctx.Cal)
	if err != nil || !found {
		return marketdata.DayBar{}, false
	}
	return bar, true
}

func isFirstTradingDay(ctx *Context) bool {
	_, err := ctx.Cal.PreviousTradingDay(ctx.Date)
	return errors.Is(err, calendar.ErrFirstDay)
}

// morningWindowOrEmpty fetches the current day's morning window, returning a
// zero-value window on any NoData error rather than propagating it — the
// morning window is a same-day input every candidate is expected to have
// by construction of the Prediction Stage's candidate list, so absence is
// treated the same as "no history yet" for the purposes of a single
// feature rather than aborting the whole vector (the vector-level zero
// fallback on a hard failure is the Prediction Stage's job, not this
// package's — see safeCompute in prediction/prediction.go).
func morningWindowOrEmpty(ctx *Context) marketdata.MorningWindow {
	w, err := ctx.Data.GetMorningData(ctx.Stock, ctx.Date)
	if err != nil {
		return marketdata.MorningWindow{}
	}
	return w
}
