package features

import "math"

// Flow features (§4.4 "Flow (daily auxiliary)"), over the foreign and
// institutional auxiliary columns carried on DayBar.

// FeatureForeignDeltaSharesOverVolume is (today_foreign_ratio_pct -
// prev_foreign_ratio_pct) / today_volume, scaled by 1e6 and clipped to
// [-1,1]; FeatureForeignSharesDeltaOverVolume is the share-count version.
// Both bars come
// from dailyHistory, so "today" here means the most recent completed
// trading day strictly before ctx.Date, consistent with every other daily
// auxiliary feature in this family.
func FeatureForeignDeltaSharesOverVolume(ctx *Context) float64 {
	h := dailyHistory(ctx, 2)
	if len(h.Closes) < 2 {
		return 0.0
	}
	// h.ForeignRatio stores percent, not share counts; derive shares is out
	// of scope for this feature, so approximate Δforeign via the ratio
	// delta directly, which is monotone in Δshares for a stable float base.
	delta := h.ForeignRatio[len(h.ForeignRatio)-1] - h.ForeignRatio[len(h.ForeignRatio)-2]
	vol := h.Volumes[len(h.Volumes)-1]
	return Neutral(Clip(SafeDiv(delta, vol, 0.0)*1e6, -1, 1), 0.0)
}

// FeatureForeign5DCumulativeOverMarketCap is the 5-day sum of the foreign
// ratio delta divided by the latest market cap base, clipped to [-1,1].
func FeatureForeign5DCumulativeOverMarketCap(ctx *Context) float64 {
	h := dailyHistory(ctx, 6)
	if len(h.ForeignRatio) < 6 {
		return 0.0
	}
	var cum float64
	for i := len(h.ForeignRatio) - 5; i < len(h.ForeignRatio); i++ {
		cum += h.ForeignRatio[i] - h.ForeignRatio[i-1]
	}
	cap := h.MarketCap[len(h.MarketCap)-1]
	return Neutral(Clip(SafeDiv(cum, cap, 0.0)*1e9, -1, 1), 0.0)
}

// FeatureInstNetBuy1D is the most recent day's institutional net-buy
// scaled by that day's traded value (close*volume), clipped to [-1,1].
func FeatureInstNetBuy1D(ctx *Context) float64 {
	h := dailyHistory(ctx, 1)
	if len(h.Closes) == 0 {
		return 0.0
	}
	i := len(h.Closes) - 1
	tradedValue := h.Closes[i] * h.Volumes[i]
	return Neutral(Clip(SafeDiv(h.InstNetBuy[i], tradedValue, 0.0), -1, 1), 0.0)
}

// FeatureInstNetBuy20D is the 20-day sum of institutional net-buy scaled
// by the market cap base, clipped to [-1,1].
func FeatureInstNetBuy20D(ctx *Context) float64 {
	h := dailyHistory(ctx, 20)
	if len(h.InstNetBuy) == 0 {
		return 0.0
	}
	var sum float64
	for _, v := range h.InstNetBuy {
		sum += v
	}
	cap := h.MarketCap[len(h.MarketCap)-1]
	return Neutral(Clip(SafeDiv(sum, cap, 0.0)*1e6, -1, 1), 0.0)
}

// FeatureForeignInstBalance is the sign agreement between the foreign
// ratio delta and institutional net-buy over the last day: 1.0 if both
// point the same direction, 0.0 if they disagree, 0.5 if either is flat.
func FeatureForeignInstBalance(ctx *Context) float64 {
	h := dailyHistory(ctx, 2)
	if len(h.ForeignRatio) < 2 || len(h.InstNetBuy) < 1 {
		return 0.5
	}
	foreignDelta := h.ForeignRatio[len(h.ForeignRatio)-1] - h.ForeignRatio[len(h.ForeignRatio)-2]
	inst := h.InstNetBuy[len(h.InstNetBuy)-1]
	switch {
	case foreignDelta == 0 || inst == 0:
		return 0.5
	case (foreignDelta > 0) == (inst > 0):
		return 1.0
	default:
		return 0.0
	}
}

// FeatureFlowCorrelation20D is the 20-day correlation of the foreign-ratio
// delta series against the institutional net-buy series, clipped to
// [-1,1].
func FeatureFlowCorrelation20D(ctx *Context) float64 {
	h := dailyHistory(ctx, 21)
	if len(h.ForeignRatio) < 21 || len(h.InstNetBuy) < 20 {
		return 0.0
	}
	foreignDeltas := make([]float64, 0, 20)
	for i := len(h.ForeignRatio) - 20; i < len(h.ForeignRatio); i++ {
		foreignDeltas = append(foreignDeltas, h.ForeignRatio[i]-h.ForeignRatio[i-1])
	}
	inst := h.InstNetBuy[len(h.InstNetBuy)-20:]
	return Clip(pearson(foreignDeltas, inst), -1, 1)
}

// FeatureFlowPercentile60D is the 60-day rolling percentile of the latest
// day's institutional net-buy, in [0,1]. Neutral 0.5 without history.
func FeatureFlowPercentile60D(ctx *Context) float64 {
	h := dailyHistory(ctx, 61)
	if len(h.InstNetBuy) == 0 {
		return 0.5
	}
	return RollingPercentile(h.InstNetBuy, 60)
}

// FeatureFlowPersistenceRegime is 1.0 if institutional net-buy has had the
// same sign for at least 5 consecutive days, else 0.0.
func FeatureFlowPersistenceRegime(ctx *Context) float64 {
	h := dailyHistory(ctx, 5)
	if len(h.InstNetBuy) < 5 {
		return 0.0
	}
	sign := func(v float64) int {
		switch {
		case v > 0:
			return 1
		case v < 0:
			return -1
		default:
			return 0
		}
	}
	first := sign(h.InstNetBuy[len(h.InstNetBuy)-5])
	if first == 0 {
		return 0.0
	}
	for _, v := range h.InstNetBuy[len(h.InstNetBuy)-5:] {
		if sign(v) != first {
			return 0.0
		}
	}
	return 1.0
}

// FeatureForeignRatioLevel is the most recent day's foreign holding ratio
// as a fraction, in [0,1].
func FeatureForeignRatioLevel(ctx *Context) float64 {
	h := dailyHistory(ctx, 1)
	if len(h.ForeignRatio) == 0 {
		return 0.0
	}
	return Clip(h.ForeignRatio[len(h.ForeignRatio)-1]/100.0, 0, 1)
}

// FeatureForeignRatioSlope20 is the linear-regression slope of the
// foreign ratio over the last 20 days, in ratio points per day, clipped
// to [-1,1].
func FeatureForeignRatioSlope20(ctx *Context) float64 {
	h := dailyHistory(ctx, 20)
	if len(h.ForeignRatio) < 5 {
		return 0.0
	}
	return Neutral(Clip(linregSlope(h.ForeignRatio), -1, 1), 0.0)
}

// FeatureForeignLimitUsage is the previous day's foreign shares over the
// foreign ownership limit, in [0,1]. Neutral 0.0 when the limit column is
// absent.
func FeatureForeignLimitUsage(ctx *Context) float64 {
	prev, found := prevDailyBar(ctx)
	if !found || prev.ForeignLimitShares == 0 {
		return 0.0
	}
	return Neutral(Clip(SafeDiv(float64(prev.ForeignShares), float64(prev.ForeignLimitShares), 0.0), 0, 1), 0.0)
}

// FeatureForeignSharesDeltaOverVolume is the exact share-count version of
// the foreign delta feature: Δforeign_shares / volume over the most
// recent completed day, clipped to [-1,1].
func FeatureForeignSharesDeltaOverVolume(ctx *Context) float64 {
	h := dailyHistory(ctx, 2)
	if len(h.ForeignShares) < 2 {
		return 0.0
	}
	n := len(h.ForeignShares)
	delta := h.ForeignShares[n-1] - h.ForeignShares[n-2]
	vol := h.Volumes[len(h.Volumes)-1]
	return Neutral(Clip(SafeDiv(delta, vol, 0.0), -1, 1), 0.0)
}

// FeatureInstCumVsMarketCap is the latest cumulative institutional
// net-buy over market cap, clipped to [-1,1].
func FeatureInstCumVsMarketCap(ctx *Context) float64 {
	h := dailyHistory(ctx, 1)
	if len(h.InstNetBuyCum) == 0 {
		return 0.0
	}
	n := len(h.InstNetBuyCum)
	return Neutral(Clip(SafeDiv(h.InstNetBuyCum[n-1], h.MarketCap[n-1], 0.0)*1e3, -1, 1), 0.0)
}

// FeatureFlowStreakLength is the length of the current same-sign streak
// of daily institutional net-buy, normalized by a 20-day window into
// [0,1] — the continuous companion of the 5-day persistence flag.
func FeatureFlowStreakLength(ctx *Context) float64 {
	h := dailyHistory(ctx, 20)
	if len(h.InstNetBuy) == 0 {
		return 0.0
	}
	last := h.InstNetBuy[len(h.InstNetBuy)-1]
	if last == 0 {
		return 0.0
	}
	positive := last > 0
	var streak int
	for i := len(h.InstNetBuy) - 1; i >= 0; i-- {
		v := h.InstNetBuy[i]
		if v == 0 || (v > 0) != positive {
			break
		}
		streak++
	}
	return Clip(float64(streak)/20.0, 0, 1)
}

// FeatureForeignPercentile60D is the 60-day rolling percentile of the
// latest foreign-ratio delta, in [0,1]. Neutral 0.5 without history.
func FeatureForeignPercentile60D(ctx *Context) float64 {
	h := dailyHistory(ctx, 61)
	if len(h.ForeignRatio) < 2 {
		return 0.5
	}
	deltas := make([]float64, 0, len(h.ForeignRatio)-1)
	for i := 1; i < len(h.ForeignRatio); i++ {
		deltas = append(deltas, h.ForeignRatio[i]-h.ForeignRatio[i-1])
	}
	return RollingPercentile(deltas, 60)
}

// pearson is the Pearson correlation coefficient of two equal-length
// series, 0.0 if either has zero variance.
func pearson(a, b []float64) float64 {
	n := minLen(a, b)
	if n < 2 {
		return 0.0
	}
	a, b = a[:n], b[:n]
	ma, mb := Mean(a), Mean(b)
	var num, da, db float64
	for i := 0; i < n; i++ {
		x, y := a[i]-ma, b[i]-mb
		num += x * y
		da += x * x
		db += y * y
	}
	if da == 0 || db == 0 {
		return 0.0
	}
	return num / (math.Sqrt(da) * math.Sqrt(db))
}
