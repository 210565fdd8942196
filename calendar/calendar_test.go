package calendar

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextPreviousTradingDay(t *testing.T) {
	cal, err := New([]int{20240102, 20240103, 20240105, 20240104})
	require.NoError(t, err)

	require.Equal(t, 20240102, cal.First())
	require.Equal(t, 20240105, cal.Last())

	next, err := cal.NextTradingDay(20240102)
	require.NoError(t, err)
	require.Equal(t, 20240103, next)

	prev, err := cal.PreviousTradingDay(20240105)
	require.NoError(t, err)
	require.Equal(t, 20240104, prev)
}

func TestFirstDayBoundary(t *testing.T) {
	cal, err := New([]int{20240102, 20240103})
	require.NoError(t, err)

	_, err = cal.PreviousTradingDay(20240102)
	require.ErrorIs(t, err, ErrFirstDay)
}

func TestLastDayBoundary(t *testing.T) {
	cal, err := New([]int{20240102, 20240103})
	require.NoError(t, err)

	_, err = cal.NextTradingDay(20240103)
	require.ErrorIs(t, err, ErrLastDay)
}

func TestMonotoneNextTradingDay(t *testing.T) {
	cal, err := New([]int{20240101, 20240102, 20240103, 20240104, 20240105})
	require.NoError(t, err)

	prev := cal.First()
	for i := 0; i < 4; i++ {
		next, err := cal.NextTradingDay(prev)
		require.NoError(t, err)
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestIsTradingDay(t *testing.T) {
	cal, err := New([]int{20240102, 20240103})
	require.NoError(t, err)
	require.True(t, cal.IsTradingDay(20240102))
	require.False(t, cal.IsTradingDay(20240110))
}
