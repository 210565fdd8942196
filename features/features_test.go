package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"daytrader/calendar"
	"daytrader/marketdata"
)

// buildFixture synthesizes a deterministic, mildly noisy daily series long
// enough to exercise every family's longest lookback (SMA200 + a slope
// tail), plus a six-bar morning window and a previous-day row, for one
// stock across n consecutive calendar days.
func buildFixture(t *testing.T, n int) (*calendar.Calendar, *marketdata.Memory, string, int) {
	t.Helper()
	stock := "A000001"
	mem := marketdata.NewMemory()

	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]int, 0, n)
	price := 10000.0
	for i := 0; i < n; i++ {
		d := base.AddDate(0, 0, i)
		date := d.Year()*10000 + int(d.Month())*100 + d.Day()
		dates = append(dates, date)

		// A gently trending, mildly oscillating synthetic close series.
		price = price * (1.0 + 0.001*math.Sin(float64(i)/7.0) + 0.0003)
		open := price * 0.998
		high := price * 1.01
		low := price * 0.99
		volume := int64(100000 + (i%23)*1000)

		mem.PutDaily(stock, date, marketdata.DayBar{
			Bar: marketdata.Bar{
				Timestamp: int64(date) * 10000,
				Open:      int64(open),
				High:      int64(high),
				Low:       int64(low),
				Close:     int64(price),
				Volume:    volume,
			},
			SharesOutstanding:  10_000_000,
			ForeignLimitShares: 3_000_000,
			ForeignShares:      1_000_000 + int64(i*37),
			ForeignRatioPct:    10.0 + math.Sin(float64(i)/5.0),
			InstNetBuy:         int64(1000 * math.Sin(float64(i)/3.0)),
			InstNetBuyCum:      int64(i * 500),
		})
	}

	cal, err := calendar.New(dates)
	require.NoError(t, err)

	last := dates[len(dates)-1]
	for i, hm := range []string{"0900", "0905", "0910", "0915", "0920", "0925"} {
		key := marketdata.DailyKey(last) + hm
		mem.PutMinute(stock, key, price+float64(i)*5)
	}
	w := marketdata.MorningWindow{Bars: []marketdata.Bar{
		{Timestamp: 1, Open: int64(price), High: int64(price * 1.002), Low: int64(price * 0.998), Close: int64(price * 1.001), Volume: 1000},
		{Timestamp: 2, Open: int64(price * 1.001), High: int64(price * 1.004), Low: int64(price), Close: int64(price * 1.003), Volume: 1200},
		{Timestamp: 3, Open: int64(price * 1.003), High: int64(price * 1.006), Low: int64(price * 1.001), Close: int64(price * 1.002), Volume: 900},
		{Timestamp: 4, Open: int64(price * 1.002), High: int64(price * 1.007), Low: int64(price * 1.0), Close: int64(price * 1.005), Volume: 1500},
		{Timestamp: 5, Open: int64(price * 1.005), High: int64(price * 1.008), Low: int64(price * 1.003), Close: int64(price * 1.004), Volume: 1100},
		{Timestamp: 6, Open: int64(price * 1.004), High: int64(price * 1.009), Low: int64(price * 1.002), Close: int64(price * 1.006), Volume: 1300},
	}}
	mem.PutMorning(stock, last, w)

	return cal, mem, stock, last
}

func TestComputeLengthMatchesNames(t *testing.T) {
	cal, mem, stock, date := buildFixture(t, 260)
	ctx := &Context{Stock: stock, Date: date, Cal: cal, Data: mem}
	vec := Compute(ctx)
	require.Len(t, vec, Len())
	require.Len(t, vec, len(Names))
}

func TestComputeDeterministic(t *testing.T) {
	cal, mem, stock, date := buildFixture(t, 260)
	ctx := &Context{Stock: stock, Date: date, Cal: cal, Data: mem}
	a := Compute(ctx)
	b := Compute(ctx)
	require.Equal(t, a, b)
}

func TestComputeAllFinite(t *testing.T) {
	cal, mem, stock, date := buildFixture(t, 260)
	ctx := &Context{Stock: stock, Date: date, Cal: cal, Data: mem}
	for i, v := range Compute(ctx) {
		require.Truef(t, isFinite(v), "%s produced non-finite %v", Names[i], v)
	}
}

// TestNoLookAhead is the fuzzing harness named in §8 property 1: computing
// every feature against a store pruned to strictly-before-date data must
// produce the same vector as computing it against the full store, since no
// feature is permitted to read date itself except through the morning
// window (which the pruned copy keeps intact).
func TestNoLookAhead(t *testing.T) {
	cal, mem, stock, date := buildFixture(t, 260)
	cutoffKey := marketdata.DailyKey(date) + "0000"
	pruned := mem.PruneOnOrAfter(date, cutoffKey)

	full := &Context{Stock: stock, Date: date, Cal: cal, Data: mem}
	prunedCtx := &Context{Stock: stock, Date: date, Cal: cal, Data: pruned}

	require.Equal(t, Compute(full), Compute(prunedCtx))
}

// TestNormalizationBounds checks the declared [lo,hi] range of a
// representative cross-section of features (§8 property 2).
func TestNormalizationBounds(t *testing.T) {
	cal, mem, stock, date := buildFixture(t, 260)
	ctx := &Context{Stock: stock, Date: date, Cal: cal, Data: mem}

	zeroOne := []func(*Context) float64{
		FeaturePricePositionInRange, FeatureLongCandleRatio,
		FeatureConsecutivePositiveCount, FeatureRSI, FeatureAlignmentScore,
		FeatureATRNormalized, FeatureBollingerWidth, FeatureHurstApprox,
		FeatureHillTailIndex, FeatureVaR5, FeatureExpectedShortfall5,
		FeatureSectorRankRatio,
		FeatureStochasticK, FeatureVolumeVsAvgRatio, FeatureFirstBarVolumeShare,
		FeatureUpperWickRatio, FeatureLowerWickRatio, FeaturePriceAboveAllMAs,
		FeatureParkinsonVolatility20, FeatureUpDownVolRatio,
		FeaturePositiveReturnRatio20, FeatureMaxDrawdown60, FeatureLongestRunRatio,
		FeaturePrevClosePositionInRange, FeaturePrevVolumeVsAvg20,
		FeatureForeignRatioLevel, FeatureForeignLimitUsage, FeatureFlowStreakLength,
		FeatureForeignPercentile60D,
	}
	for _, f := range zeroOne {
		v := f(ctx)
		require.GreaterOrEqualf(t, v, 0.0, "expected >= 0")
		require.LessOrEqualf(t, v, 1.0, "expected <= 1")
	}

	negOneOne := []func(*Context) float64{
		FeatureCurrentVsOpenRatio, FeatureVWAPPosition, FeatureEMA12VsEMA26Diff,
		FeatureVolatilityClustering, FeatureGapVsPrevClose,
		FeatureNetBodyRatio, FeatureLastBarReturn, FeatureCloseROC,
		FeatureMACDSignalDiff, FeatureSkewness60, FeatureKurtosis60,
		FeatureTwoDayTrend, FeaturePrevDayReturn,
		FeatureForeignSharesDeltaOverVolume, FeatureInstCumVsMarketCap,
	}
	for _, f := range negOneOne {
		v := f(ctx)
		require.GreaterOrEqualf(t, v, -1.0, "expected >= -1")
		require.LessOrEqualf(t, v, 1.0, "expected <= 1")
	}
}
