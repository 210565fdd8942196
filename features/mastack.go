package features

import "math"

// Moving-average-stack features (§4.4 "Moving-average stack (daily)"),
// built on the MaBundle and helpers in ma.go. All read dailyHistory, which
// is strictly before ctx.Date, so the stack never includes today's bar.

const maHistoryDays = 260 // enough for SMA200 + a slope tail

// FeatureSMA5Slope5 is the normalized 5-bar slope of SMA5, neutral 0.0.
func FeatureSMA5Slope5(ctx *Context) float64 {
	h := dailyHistory(ctx, maHistoryDays)
	b, ok := ComputeMaBundle(h.Closes)
	if !ok {
		return 0.0
	}
	return Neutral(Clip(b.SMA5Slope5, -1, 1), 0.0)
}

// FeatureSMA20Slope5 is the normalized 5-bar slope of SMA20.
func FeatureSMA20Slope5(ctx *Context) float64 {
	h := dailyHistory(ctx, maHistoryDays)
	b, ok := ComputeMaBundle(h.Closes)
	if !ok {
		return 0.0
	}
	return Neutral(Clip(b.SMA20Slope5, -1, 1), 0.0)
}

// FeatureSMA60Slope5 is the normalized 5-bar slope of SMA60.
func FeatureSMA60Slope5(ctx *Context) float64 {
	h := dailyHistory(ctx, maHistoryDays)
	b, ok := ComputeMaBundle(h.Closes)
	if !ok {
		return 0.0
	}
	return Neutral(Clip(b.SMA60Slope5, -1, 1), 0.0)
}

// FeatureCloseVsSMA20Ratio is (last_close - SMA20) / SMA20, clipped.
func FeatureCloseVsSMA20Ratio(ctx *Context) float64 {
	h := dailyHistory(ctx, maHistoryDays)
	b, ok := ComputeMaBundle(h.Closes)
	if !ok || len(h.Closes) == 0 {
		return 0.0
	}
	last := h.Closes[len(h.Closes)-1]
	return Neutral(Clip(SafeDiv(last-b.SMA20, b.SMA20, 0.0), -1, 1), 0.0)
}

// FeatureSMA5VsSMA20Diff is the scale-free pairwise distance
// (SMA5 - SMA20) / SMA20.
func FeatureSMA5VsSMA20Diff(ctx *Context) float64 {
	h := dailyHistory(ctx, maHistoryDays)
	b, ok := ComputeMaBundle(h.Closes)
	if !ok {
		return 0.0
	}
	return Neutral(Clip(SafeDiv(b.SMA5-b.SMA20, b.SMA20, 0.0), -1, 1), 0.0)
}

// FeatureEMA12VsEMA26Diff is a MACD-like pairwise EMA difference scaled by
// EMA26, clipped to [-1,1].
func FeatureEMA12VsEMA26Diff(ctx *Context) float64 {
	h := dailyHistory(ctx, maHistoryDays)
	b, ok := ComputeMaBundle(h.Closes)
	if !ok {
		return 0.0
	}
	return Neutral(Clip(SafeDiv(b.EMA12-b.EMA26, b.EMA26, 0.0), -1, 1), 0.0)
}

// FeatureMADispersion is the standard deviation of log(MA) across the
// SMA{5,20,60,120,200} stack, a rough tightness/dispersion gauge. Neutral
// 0.0 if fewer than two MAs are finite.
func FeatureMADispersion(ctx *Context) float64 {
	h := dailyHistory(ctx, maHistoryDays)
	b, ok := ComputeMaBundle(h.Closes)
	if !ok {
		return 0.0
	}
	var logs []float64
	for _, v := range [...]float64{b.SMA5, b.SMA20, b.SMA60, b.SMA120, b.SMA200} {
		if isFinite(v) && v > 0 {
			logs = append(logs, math.Log(v))
		}
	}
	if len(logs) < 2 {
		return 0.0
	}
	return Clip(Stdev(logs), 0, 1)
}

// FeatureMATightnessPercentile is the 60-day rolling percentile rank of
// the current MA dispersion (tighter dispersion -> lower percentile).
// Neutral 0.5 without enough history.
func FeatureMATightnessPercentile(ctx *Context) float64 {
	h := dailyHistory(ctx, 60+maHistoryDays)
	if len(h.Closes) < maHistoryDays {
		return 0.5
	}
	series := make([]float64, 0, 60)
	for i := maHistoryDays; i <= len(h.Closes); i++ {
		b, ok := ComputeMaBundle(h.Closes[:i])
		if !ok {
			continue
		}
		var logs []float64
		for _, v := range [...]float64{b.SMA5, b.SMA20, b.SMA60, b.SMA120, b.SMA200} {
			if isFinite(v) && v > 0 {
				logs = append(logs, math.Log(v))
			}
		}
		if len(logs) >= 2 {
			series = append(series, Stdev(logs))
		}
	}
	return RollingPercentile(series, 60)
}

// FeatureKeltnerPosition is where last_close sits relative to the Keltner
// Channel built from EMA20/ATR14, clipped to [0,1]: a close below the lower
// band gives 0 and one above the upper band gives 1.
func FeatureKeltnerPosition(ctx *Context) float64 {
	h := dailyHistory(ctx, 40)
	if len(h.Closes) < 20 {
		return 0.5
	}
	ema20 := emaLast(h.Closes, 20)
	atr14 := atrLast(h.Highs, h.Lows, h.Closes, 14)
	if !isFinite(ema20) || !isFinite(atr14) || atr14 == 0 {
		return 0.5
	}
	upper, lower := keltnerChannel(ema20, atr14, 2.0)
	last := h.Closes[len(h.Closes)-1]
	return Clip(SafeDiv(last-lower, upper-lower, 0.5), 0, 1)
}

// FeatureKeltnerWidth is the Keltner Channel width normalized by its
// center EMA, a volatility-regime proxy.
func FeatureKeltnerWidth(ctx *Context) float64 {
	h := dailyHistory(ctx, 40)
	if len(h.Closes) < 20 {
		return 0.0
	}
	ema20 := emaLast(h.Closes, 20)
	atr14 := atrLast(h.Highs, h.Lows, h.Closes, 14)
	if !isFinite(ema20) || !isFinite(atr14) {
		return 0.0
	}
	upper, lower := keltnerChannel(ema20, atr14, 2.0)
	return Neutral(Clip(SafeDiv(upper-lower, ema20, 0.0), 0, 1), 0.0)
}

// FeatureTEMASlope is the normalized 1-step slope of TEMA14, derived by
// comparing the TEMA value at the last two available closes.
func FeatureTEMASlope(ctx *Context) float64 {
	h := dailyHistory(ctx, 14*3+2)
	if len(h.Closes) < 14*3+1 {
		return 0.0
	}
	cur := temaLast(h.Closes, 14)
	prev := temaLast(h.Closes[:len(h.Closes)-1], 14)
	if !isFinite(cur) || !isFinite(prev) || prev == 0 {
		return 0.0
	}
	return Neutral(Clip((cur-prev)/prev, -1, 1), 0.0)
}

// FeatureHMASlope is the normalized slope of the last two points of the
// HMA20 series.
func FeatureHMASlope(ctx *Context) float64 {
	h := dailyHistory(ctx, 60)
	series := hmaSeries(h.Closes, 20)
	if len(series) < 2 {
		return 0.0
	}
	cur, prev := series[len(series)-1], series[len(series)-2]
	if prev == 0 || !isFinite(cur) || !isFinite(prev) {
		return 0.0
	}
	return Neutral(Clip((cur-prev)/prev, -1, 1), 0.0)
}

// FeatureKAMASlope is the normalized slope of the last two points of the
// KAMA(10,2,30) series.
func FeatureKAMASlope(ctx *Context) float64 {
	h := dailyHistory(ctx, 60)
	series := kamaSeries(h.Closes, 10, 2, 30)
	if len(series) < 2 {
		return 0.0
	}
	cur, prev := series[len(series)-1], series[len(series)-2]
	if prev == 0 || !isFinite(cur) || !isFinite(prev) {
		return 0.0
	}
	return Neutral(Clip((cur-prev)/prev, -1, 1), 0.0)
}

// kamaSeries generates the KAMA series for erPeriod/fast/slow, mirroring
// ma.rs's kama_series.
func kamaSeries(series []float64, erPeriod, fast, slow int) []float64 {
	if erPeriod == 0 || len(series) < erPeriod+1 {
		return nil
	}
	out := make([]float64, 0, len(series)-erPeriod)
	for i := erPeriod; i < len(series); i++ {
		out = append(out, kamaLast(series[:i+1], erPeriod, fast, slow))
	}
	return out
}

// FeatureAlignmentScore is the 6-way pairwise ordering score across the MA
// stack, already bounded in [0,1] by alignmentScore5. Neutral 0.5 when the
// stack isn't fully available.
func FeatureAlignmentScore(ctx *Context) float64 {
	h := dailyHistory(ctx, maHistoryDays)
	b, ok := ComputeMaBundle(h.Closes)
	if !ok {
		return 0.5
	}
	return Neutral(alignmentScore5(b.SMA5, b.SMA20, b.SMA60, b.SMA120, b.SMA200), 0.5)
}

// FeatureGoldenCrossDaysSince is the (inverse-decayed) recency of the last
// SMA5-over-SMA20 golden cross, mapped to (0,1] via 1/(1+days); 0.0 if no
// cross is found in the available window.
func FeatureGoldenCrossDaysSince(ctx *Context) float64 {
	return crossRecency(ctx, true)
}

// FeatureDeadCrossDaysSince is the same recency mapping for a dead cross
// (SMA5 crossing below SMA20).
func FeatureDeadCrossDaysSince(ctx *Context) float64 {
	return crossRecency(ctx, false)
}

// FeatureCloseVsSMA5Ratio is (last_close - SMA5) / SMA5, clipped.
func FeatureCloseVsSMA5Ratio(ctx *Context) float64 {
	return closeVsSMARatio(ctx, func(b MaBundle) float64 { return b.SMA5 })
}

// FeatureCloseVsSMA60Ratio is (last_close - SMA60) / SMA60, clipped.
func FeatureCloseVsSMA60Ratio(ctx *Context) float64 {
	return closeVsSMARatio(ctx, func(b MaBundle) float64 { return b.SMA60 })
}

// FeatureCloseVsSMA120Ratio is (last_close - SMA120) / SMA120, clipped.
func FeatureCloseVsSMA120Ratio(ctx *Context) float64 {
	return closeVsSMARatio(ctx, func(b MaBundle) float64 { return b.SMA120 })
}

// FeatureCloseVsSMA200Ratio is (last_close - SMA200) / SMA200, clipped.
func FeatureCloseVsSMA200Ratio(ctx *Context) float64 {
	return closeVsSMARatio(ctx, func(b MaBundle) float64 { return b.SMA200 })
}

func closeVsSMARatio(ctx *Context, pick func(MaBundle) float64) float64 {
	h := dailyHistory(ctx, maHistoryDays)
	b, ok := ComputeMaBundle(h.Closes)
	if !ok || len(h.Closes) == 0 {
		return 0.0
	}
	ma := pick(b)
	last := h.Closes[len(h.Closes)-1]
	return Neutral(Clip(SafeDiv(last-ma, ma, 0.0), -1, 1), 0.0)
}

// FeatureSMA20VsSMA60Diff is (SMA20 - SMA60) / SMA60, clipped.
func FeatureSMA20VsSMA60Diff(ctx *Context) float64 {
	return smaPairDiff(ctx, func(b MaBundle) (float64, float64) { return b.SMA20, b.SMA60 })
}

// FeatureSMA60VsSMA120Diff is (SMA60 - SMA120) / SMA120, clipped.
func FeatureSMA60VsSMA120Diff(ctx *Context) float64 {
	return smaPairDiff(ctx, func(b MaBundle) (float64, float64) { return b.SMA60, b.SMA120 })
}

// FeatureSMA120VsSMA200Diff is (SMA120 - SMA200) / SMA200, clipped.
func FeatureSMA120VsSMA200Diff(ctx *Context) float64 {
	return smaPairDiff(ctx, func(b MaBundle) (float64, float64) { return b.SMA120, b.SMA200 })
}

func smaPairDiff(ctx *Context, pick func(MaBundle) (fast, slow float64)) float64 {
	h := dailyHistory(ctx, maHistoryDays)
	b, ok := ComputeMaBundle(h.Closes)
	if !ok {
		return 0.0
	}
	fast, slow := pick(b)
	return Neutral(Clip(SafeDiv(fast-slow, slow, 0.0), -1, 1), 0.0)
}

// FeatureSMA120Slope5 is the normalized 5-bar slope of SMA120, the one
// long-window slope the cached bundle doesn't carry.
func FeatureSMA120Slope5(ctx *Context) float64 {
	h := dailyHistory(ctx, maHistoryDays)
	if len(h.Closes) < 124 {
		return 0.0
	}
	return Neutral(Clip(slopeOnSMA(h.Closes, 120, 5), -1, 1), 0.0)
}

// FeatureEMA12Slope is the normalized one-step slope of the EMA12 series.
func FeatureEMA12Slope(ctx *Context) float64 {
	h := dailyHistory(ctx, maHistoryDays)
	if len(h.Closes) < 13 {
		return 0.0
	}
	cur := emaLast(h.Closes, 12)
	prev := emaLast(h.Closes[:len(h.Closes)-1], 12)
	if !isFinite(cur) || !isFinite(prev) || prev == 0 {
		return 0.0
	}
	return Neutral(Clip((cur-prev)/prev, -1, 1), 0.0)
}

// FeatureAnyCrossDaysSince is the recency of the last SMA5/SMA20 cross in
// either direction, mapped to (0,1] via 1/(1+days); 0.0 with no cross.
func FeatureAnyCrossDaysSince(ctx *Context) float64 {
	h := dailyHistory(ctx, maHistoryDays)
	if len(h.Closes) < 25 {
		return 0.0
	}
	sma5 := rollingSMA(h.Closes, 5)
	sma20 := rollingSMA(h.Closes, 20)
	n := minLen(sma5, sma20)
	if n < 2 {
		return 0.0
	}
	days, found := lastCrossDays(sma5[len(sma5)-n:], sma20[len(sma20)-n:], nil)
	if !found {
		return 0.0
	}
	return 1.0 / (1.0 + float64(days))
}

// FeatureGoldenCrossFlag is 1.0 if an SMA5-over-SMA20 golden cross
// happened within the last 3 trading days, else 0.0.
func FeatureGoldenCrossFlag(ctx *Context) float64 {
	return crossFlag(ctx, true)
}

// FeatureDeadCrossFlag is the mirror flag for a dead cross within the
// last 3 trading days.
func FeatureDeadCrossFlag(ctx *Context) float64 {
	return crossFlag(ctx, false)
}

func crossFlag(ctx *Context, up bool) float64 {
	h := dailyHistory(ctx, maHistoryDays)
	if len(h.Closes) < 25 {
		return 0.0
	}
	sma5 := rollingSMA(h.Closes, 5)
	sma20 := rollingSMA(h.Closes, 20)
	n := minLen(sma5, sma20)
	if n < 2 {
		return 0.0
	}
	pu := up
	days, found := lastCrossDays(sma5[len(sma5)-n:], sma20[len(sma20)-n:], &pu)
	if found && days <= 3 {
		return 1.0
	}
	return 0.0
}

// FeaturePriceAboveAllMAs is 1.0 if the last close sits above every
// finite MA in the SMA{5,20,60,120,200} stack (at least two must be
// finite), else 0.0.
func FeaturePriceAboveAllMAs(ctx *Context) float64 {
	h := dailyHistory(ctx, maHistoryDays)
	b, ok := ComputeMaBundle(h.Closes)
	if !ok || len(h.Closes) == 0 {
		return 0.0
	}
	last := h.Closes[len(h.Closes)-1]
	var finite int
	for _, v := range [...]float64{b.SMA5, b.SMA20, b.SMA60, b.SMA120, b.SMA200} {
		if !isFinite(v) {
			continue
		}
		finite++
		if last <= v {
			return 0.0
		}
	}
	if finite < 2 {
		return 0.0
	}
	return 1.0
}

func crossRecency(ctx *Context, up bool) float64 {
	h := dailyHistory(ctx, maHistoryDays)
	if len(h.Closes) < 25 {
		return 0.0
	}
	sma5 := rollingSMA(h.Closes, 5)
	sma20 := rollingSMA(h.Closes, 20)
	n := minLen(sma5, sma20)
	if n < 2 {
		return 0.0
	}
	pu := up
	days, found := lastCrossDays(sma5[len(sma5)-n:], sma20[len(sma20)-n:], &pu)
	if !found {
		return 0.0
	}
	return 1.0 / (1.0 + float64(days))
}

// rollingSMA returns the SMA(window) value ending at each index where it's
// computable, oldest->newest.
func rollingSMA(closes []float64, window int) []float64 {
	if len(closes) < window {
		return nil
	}
	out := make([]float64, 0, len(closes)-window+1)
	for i := window; i <= len(closes); i++ {
		out = append(out, smaLast(closes[:i], window))
	}
	return out
}

func minLen(a, b []float64) int {
	if len(a) < len(b) {
		return len(a)
	}
	return len(b)
}
