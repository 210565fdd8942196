// Package calendar implements the Trading Calendar (§4.1): a canonical,
// ordered list of YYYYMMDD trading days derived once from a reference bar
// series, with total next/previous-day queries via binary search.
package calendar

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrFirstDay is returned by PreviousTradingDay when d is the earliest known
// trading date; there is no well-defined "day before the calendar began".
var ErrFirstDay = errors.New("calendar: no trading day before the first known date")

// ErrLastDay is returned by NextTradingDay when d is the latest known
// trading date, making the boundary explicit for callers (§4.1).
var ErrLastDay = errors.New("calendar: no trading day after the last known date")

const dateLayout = "20060102"

// Calendar is an immutable, sorted, de-duplicated set of trading days.
// Construction is the only place that does I/O; every query afterwards is a
// pure in-memory binary search.
type Calendar struct {
	days []int // YYYYMMDD, strictly increasing
}

// New builds a Calendar from an unordered, possibly duplicated list of
// YYYYMMDD dates (typically every date for which the primary index bar
// series has a row).
func New(dates []int) (*Calendar, error) {
	if len(dates) == 0 {
		return nil, errors.New("calendar: no dates supplied")
	}
	uniq := make(map[int]struct{}, len(dates))
	for _, d := range dates {
		if !validYYYYMMDD(d) {
			return nil, fmt.Errorf("calendar: invalid date %d", d)
		}
		uniq[d] = struct{}{}
	}
	days := make([]int, 0, len(uniq))
	for d := range uniq {
		days = append(days, d)
	}
	sort.Ints(days)
	return &Calendar{days: days}, nil
}

func validYYYYMMDD(d int) bool {
	if d < 10000101 || d > 99991231 {
		return false
	}
	_, err := time.Parse(dateLayout, fmt.Sprintf("%d", d))
	return err == nil
}

// First returns the earliest known trading day.
func (c *Calendar) First() int { return c.days[0] }

// Last returns the latest known trading day.
func (c *Calendar) Last() int { return c.days[len(c.days)-1] }

// IsTradingDay reports whether d is present in the calendar.
func (c *Calendar) IsTradingDay(d int) bool {
	i := sort.SearchInts(c.days, d)
	return i < len(c.days) && c.days[i] == d
}

// NextTradingDay returns the smallest known date strictly greater than d.
// If d itself is not a trading day, the search still returns the next
// trading day after d (not after some trading day nearest to d), making
// the function total over any integer-shaped date, not just calendar days.
func (c *Calendar) NextTradingDay(d int) (int, error) {
	i := sort.SearchInts(c.days, d+1)
	if i >= len(c.days) {
		return 0, ErrLastDay
	}
	return c.days[i], nil
}

// PreviousTradingDay returns the largest known date strictly less than d.
func (c *Calendar) PreviousTradingDay(d int) (int, error) {
	i := sort.SearchInts(c.days, d)
	if i == 0 {
		return 0, ErrFirstDay
	}
	// c.days[i] is the first date >= d; the previous trading day is the one
	// immediately before that slot, which handles d itself being absent.
	return c.days[i-1], nil
}

// Dates returns a read-only copy of the full ordered day list, mainly for
// tests and for the Feature Materializer's date-fanout.
func (c *Calendar) Dates() []int {
	out := make([]int, len(c.days))
	copy(out, c.days)
	return out
}

// Len reports how many trading days the calendar knows about.
func (c *Calendar) Len() int { return len(c.days) }
