package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"daytrader/calendar"
)

func testParams() Params {
	return Params{
		DataPrepTime:    "08:30:00",
		TradingStart:    "09:00:00",
		LastUpdateTime:  "15:29:00",
		MarketCloseTime: "15:30:00",
		SpecialDates:    map[int]bool{},
	}
}

func mustCalendar(t *testing.T) *calendar.Calendar {
	t.Helper()
	cal, err := calendar.New([]int{20240102, 20240103, 20240104})
	require.NoError(t, err)
	return cal
}

func TestClockPhaseSequenceBacktest(t *testing.T) {
	cal := mustCalendar(t)
	c, err := New(cal, testParams(), 20240102)
	require.NoError(t, err)
	require.Equal(t, DataPrep, c.Signal())

	sig, err := c.WaitUntilNextEvent(context.Background(), Backtest)
	require.NoError(t, err)
	require.Equal(t, MarketOpen, sig)

	sig, err = c.WaitUntilNextEvent(context.Background(), Backtest)
	require.NoError(t, err)
	require.Equal(t, Update, sig)
	require.Equal(t, 0, c.Now().Second())
}

func TestClockMonotonicity(t *testing.T) {
	// About 393 events per trading day, so 2000 steps need a calendar of at
	// least six days to stay clear of the last-day boundary.
	cal, err := calendar.New([]int{20240102, 20240103, 20240104, 20240105, 20240108, 20240109})
	require.NoError(t, err)
	c, err := New(cal, testParams(), 20240102)
	require.NoError(t, err)

	prev := c.Now()
	for i := 0; i < 2000; i++ {
		sig, err := c.WaitUntilNextEvent(context.Background(), Backtest)
		require.NoError(t, err)
		require.False(t, c.Now().Before(prev), "clock went backwards at step %d (%s)", i, sig)
		prev = c.Now()
	}
}

func TestClockOvernightAdvancesCalendarDay(t *testing.T) {
	cal := mustCalendar(t)
	c, err := New(cal, testParams(), 20240102)
	require.NoError(t, err)

	var lastSig Signal
	for i := 0; i < 2000 && lastSig != Overnight; i++ {
		lastSig, err = c.WaitUntilNextEvent(context.Background(), Backtest)
		require.NoError(t, err)
	}
	require.Equal(t, Overnight, lastSig)
	require.Equal(t, 20240103, c.Date())
	// Overnight wakes at midnight, not at data_prep_time, so the very next
	// advance() call still sees now.Before(prep) and emits DataPrep rather
	// than skipping straight to MarketOpen.
	require.Equal(t, 0, c.Now().Hour())
	require.Equal(t, 0, c.Now().Minute())
}

func TestSpecialOpenShiftsSession(t *testing.T) {
	cal := mustCalendar(t)
	params := testParams()
	params.SpecialDates[20240102] = true
	params.OffsetMinutes = 60
	c, err := New(cal, params, 20240102)
	require.NoError(t, err)

	sig, err := c.WaitUntilNextEvent(context.Background(), Backtest)
	require.NoError(t, err)
	require.Equal(t, MarketOpen, sig)
	require.Equal(t, 10, c.Now().Hour())
	require.Equal(t, 0, c.Now().Minute())
}

func TestHandleMidSessionEntry(t *testing.T) {
	cal := mustCalendar(t)
	c, err := New(cal, testParams(), 20240102)
	require.NoError(t, err)

	wallNow := time.Date(2024, 1, 2, 11, 15, 0, 0, time.Local)
	require.NoError(t, c.HandleMidSessionEntry(wallNow))
	require.Equal(t, Update, c.Signal())
}

func TestWaitUntilNextEventCancellation(t *testing.T) {
	// Use a session parameter far enough in the future relative to wall
	// clock that WaitUntilNextEvent must actually block, so the context
	// cancellation path is exercised rather than short-circuited.
	future := time.Now().Add(24 * time.Hour)
	date := future.Year()*10000 + int(future.Month())*100 + future.Day()
	cal, err := calendar.New([]int{date, date + 1})
	require.NoError(t, err)

	params := testParams()
	params.DataPrepTime = future.Format("15:04:05")
	c, err := New(cal, params, date)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.WaitUntilNextEvent(ctx, Live)
	require.ErrorIs(t, err, context.Canceled)
}
