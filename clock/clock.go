// Package clock implements the Time Service (§4.2): a deterministic,
// event-driven phase clock shared identically by the backtest engine and the
// live brokerage engine. Grounded on original_source/stockrs/src/time.rs,
// which keeps the same five-phase state machine and a process-global
// instance; this package keeps the state machine but drops the Rust
// original's global-mutex singleton in favor of an explicit *Clock the
// Runner owns and passes down, which is the idiomatic Go shape for the same
// contract.
package clock

import (
	"context"
	"fmt"
	"time"

	"daytrader/calendar"
	"daytrader/logger"
)

// Signal names the discrete event the clock has advanced to.
type Signal int

const (
	DataPrep Signal = iota
	MarketOpen
	Update
	MarketClose
	Overnight
)

func (s Signal) String() string {
	switch s {
	case DataPrep:
		return "DataPrep"
	case MarketOpen:
		return "MarketOpen"
	case Update:
		return "Update"
	case MarketClose:
		return "MarketClose"
	case Overnight:
		return "Overnight"
	default:
		return "Unknown"
	}
}

// Mode selects how wait_until_next_event behaves (§4.2).
type Mode int

const (
	Backtest Mode = iota
	Live
	Paper
)

// Params holds the HH:MM:SS session parameters plus the special-date offset
// (§6). Times are parsed once at construction.
type Params struct {
	DataPrepTime    string // "08:30:00"
	TradingStart    string // "09:00:00"
	LastUpdateTime  string // "15:29:00"
	MarketCloseTime string // "15:30:00"

	// SpecialDates maps YYYYMMDD -> true for sessions that open later than
	// usual; OffsetMinutes is added to DataPrepTime/TradingStart/
	// LastUpdateTime/MarketCloseTime on those dates (§6, §8 scenario 6).
	SpecialDates  map[int]bool
	OffsetMinutes int
}

// Bounds returns the YYYYMMDDHHMM trading-start and last-update keys for
// date, honoring the special-open offset. It lets marketdata.Accessor
// implementations clamp a 1-minute lookup to the session window (§4.3)
// without importing the clock package's phase machinery.
func (p Params) Bounds(date int) (startKey, endKey string) {
	offset := 0
	if p.SpecialDates[date] {
		offset = p.OffsetMinutes
	}
	start, err := parseDateTime(date, p.TradingStart, time.Local)
	if err != nil {
		return "", ""
	}
	end, err := parseDateTime(date, p.LastUpdateTime, time.Local)
	if err != nil {
		return "", ""
	}
	d := time.Duration(offset) * time.Minute
	start = start.Add(d)
	end = end.Add(d)
	return start.Format("200601021504"), end.Format("200601021504")
}

// Clock is the phase state machine. It holds nothing beyond
// (current time, current signal) plus its immutable parameters and
// calendar, matching the "stateless beyond (current_time, current_signal)"
// invariant in §4.2.
type Clock struct {
	cal    *calendar.Calendar
	params Params

	current       time.Time
	currentSignal Signal
}

// New builds a Clock initialized to DataPrep on startDate (YYYYMMDD), the
// same "start at 08:00 of the configured start date" behavior as the
// original's TimeService::new, generalized to honor special-date offsets.
func New(cal *calendar.Calendar, params Params, startDate int) (*Clock, error) {
	loc := time.Local
	start, err := parseDateTime(startDate, "08:00:00", loc)
	if err != nil {
		return nil, fmt.Errorf("clock: %w", err)
	}
	c := &Clock{cal: cal, params: params, current: start, currentSignal: DataPrep}
	next, sig, err := c.advance(start)
	if err != nil {
		return nil, err
	}
	c.current = next
	c.currentSignal = sig
	return c, nil
}

// Now returns the clock's current simulated/wall time.
func (c *Clock) Now() time.Time { return c.current }

// Signal returns the clock's current phase.
func (c *Clock) Signal() Signal { return c.currentSignal }

// Date returns the current date as YYYYMMDD.
func (c *Clock) Date() int { return toYYYYMMDD(c.current) }

// FormatKey renders the current time as the YYYYMMDDHHMM intraday key used
// throughout marketdata (§6).
func (c *Clock) FormatKey() string { return c.current.Format("200601021504") }

func (c *Clock) sessionTimes(date int) (prep, open, lastUpdate, close time.Time, err error) {
	offset := 0
	if c.params.SpecialDates[date] {
		offset = c.params.OffsetMinutes
	}
	loc := time.Local
	if prep, err = parseDateTime(date, c.params.DataPrepTime, loc); err != nil {
		return
	}
	if open, err = parseDateTime(date, c.params.TradingStart, loc); err != nil {
		return
	}
	if lastUpdate, err = parseDateTime(date, c.params.LastUpdateTime, loc); err != nil {
		return
	}
	if close, err = parseDateTime(date, c.params.MarketCloseTime, loc); err != nil {
		return
	}
	d := time.Duration(offset) * time.Minute
	prep = prep.Add(d)
	open = open.Add(d)
	lastUpdate = lastUpdate.Add(d)
	close = close.Add(d)
	return
}

// advance implements the transition table of §4.2 for the current date of
// `now`. It is a pure function of (now, params, calendar) — no I/O, no
// mutation — so it can be fuzzed directly for the monotonicity property
// (§8 property 6).
func (c *Clock) advance(now time.Time) (time.Time, Signal, error) {
	date := toYYYYMMDD(now)
	prep, open, lastUpdate, closeT, err := c.sessionTimes(date)
	if err != nil {
		return time.Time{}, 0, err
	}

	switch {
	case now.Before(prep):
		return prep, DataPrep, nil
	case !now.Before(prep) && now.Before(open):
		return open, MarketOpen, nil
	case !now.Before(open) && now.Before(lastUpdate):
		return nextMinuteBoundary(now), Update, nil
	case !now.Before(lastUpdate) && now.Before(closeT):
		return closeT, MarketClose, nil
	default: // now >= close
		nextDate, err := c.cal.NextTradingDay(date)
		if err != nil {
			return time.Time{}, 0, fmt.Errorf("clock: advancing past %d: %w", date, err)
		}
		// Wake at midnight, strictly before any sane data_prep_time, so the
		// very next advance() call (made once the Runner has processed this
		// Overnight signal) falls into the now.Before(prep) branch above and
		// correctly produces DataPrep for the new date. Waking exactly at
		// data_prep_time itself (as §4.2's illustrative "at 08:30" literally
		// reads) would make now == prep on the next call, which this table
		// already defines as "past" DataPrep, silently skipping it every day
		// after the first.
		overnight, err := parseDateTime(nextDate, "00:00:00", time.Local)
		if err != nil {
			return time.Time{}, 0, err
		}
		return overnight, Overnight, nil
	}
}

// Advance moves the clock forward from its current state and logs the
// transition (§7 "structured, leveled logs at each phase transition").
func (c *Clock) Advance() (Signal, error) {
	next, sig, err := c.advance(c.current)
	if err != nil {
		return 0, err
	}
	if next.Before(c.current) {
		return 0, fmt.Errorf("clock: computed next time %s before current %s", next, c.current)
	}
	c.current = next
	c.currentSignal = sig
	logger.Infof("clock: %s -> %s (%s)", c.current.Format(time.RFC3339), sig, c.current.Format("200601021504"))
	return sig, nil
}

// WaitUntilNextEvent advances the clock. In Backtest mode this is
// instantaneous (the simulated clock simply jumps). In Live/Paper modes it
// blocks the calling goroutine until wall-clock time reaches the computed
// target, honoring ctx cancellation so a shutdown signal aborts the wait
// within one scheduling quantum (§4.2 "Cancellation").
func (c *Clock) WaitUntilNextEvent(ctx context.Context, mode Mode) (Signal, error) {
	next, sig, err := c.advance(c.current)
	if err != nil {
		return 0, err
	}

	if mode == Backtest {
		c.current = next
		c.currentSignal = sig
		return sig, nil
	}

	wallNow := time.Now()
	target := alignToMinuteBoundaryIfNeeded(next, sig)
	if d := target.Sub(wallNow); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	c.current = target
	c.currentSignal = sig
	logger.Infof("clock: %s -> %s (%s)", c.current.Format(time.RFC3339), sig, c.current.Format("200601021504"))
	return sig, nil
}

// HandleMidSessionEntry initializes the clock for a live/paper process that
// starts after MarketOpen: it sets current_signal to match the current
// wall-clock phase so the State Machine resumes in the correct branch
// (§4.2 "Mid-session entry", §8 scenario 5).
func (c *Clock) HandleMidSessionEntry(wallNow time.Time) error {
	date := toYYYYMMDD(wallNow)
	if !c.cal.IsTradingDay(date) {
		return fmt.Errorf("clock: mid-session entry on non-trading day %d", date)
	}
	prep, open, lastUpdate, closeT, err := c.sessionTimes(date)
	if err != nil {
		return err
	}
	c.current = wallNow
	switch {
	case wallNow.Before(prep):
		c.currentSignal = DataPrep
	case wallNow.Before(open):
		c.currentSignal = MarketOpen
	case wallNow.Before(lastUpdate):
		c.currentSignal = Update
	case wallNow.Before(closeT):
		c.currentSignal = MarketClose
	default:
		c.currentSignal = Overnight
	}
	logger.Infof("clock: mid-session entry at %s, resuming in %s", wallNow.Format(time.RFC3339), c.currentSignal)
	return nil
}

func nextMinuteBoundary(t time.Time) time.Time {
	t = t.Add(time.Minute)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
}

// alignToMinuteBoundaryIfNeeded keeps Update ticks aligned to :00 seconds in
// live/paper mode, matching the backtest semantics of nextMinuteBoundary.
func alignToMinuteBoundaryIfNeeded(t time.Time, sig Signal) time.Time {
	if sig != Update {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
}

func parseDateTime(yyyymmdd int, hms string, loc *time.Location) (time.Time, error) {
	s := fmt.Sprintf("%d %s", yyyymmdd, hms)
	t, err := time.ParseInLocation("20060102 15:04:05", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %q: %w", s, err)
	}
	return t, nil
}

func toYYYYMMDD(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}
