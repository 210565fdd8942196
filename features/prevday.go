package features

// Previous-day-context features (§4.4 "Previous-day context").

// FeaturePrevDayRange is (prev_high - prev_low) / prev_close, clipped to
// [0,1]. Neutral 0.0 on the stock's first trading day.
func FeaturePrevDayRange(ctx *Context) float64 {
	prev, found := prevDailyBar(ctx)
	if !found || prev.Close == 0 {
		return 0.0
	}
	return Neutral(Clip(SafeDiv(float64(prev.High-prev.Low), float64(prev.Close), 0.0), 0, 1), 0.0)
}

// FeatureGapVsPrevClose is (today_open - prev_close) / prev_close from the
// current morning window's first bar, clipped to [-1,1].
func FeatureGapVsPrevClose(ctx *Context) float64 {
	prev, found := prevDailyBar(ctx)
	if !found || prev.Close == 0 {
		return 0.0
	}
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) == 0 {
		return 0.0
	}
	openToday := float64(w.Bars[0].Open)
	return Neutral(Clip(SafeDiv(openToday-float64(prev.Close), float64(prev.Close), 0.0), -1, 1), 0.0)
}

// FeatureGainAndMorningFollow is 1.0 if the previous day closed up AND
// today's morning window is also up vs its own open (a continuation
// flag), else 0.0.
func FeatureGainAndMorningFollow(ctx *Context) float64 {
	prev, found := prevDailyBar(ctx)
	if !found {
		return 0.0
	}
	prevUp := prev.Close > prev.Open
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) == 0 {
		return 0.0
	}
	todayUp := w.LastClose() > w.Bars[0].Open
	if prevUp && todayUp {
		return 1.0
	}
	return 0.0
}

// FeaturePrevRangeBodyRatio is |prev_close - prev_open| / (prev_high -
// prev_low), clipped to [0,1] — how much of the previous day's range was
// "body" vs wick.
func FeaturePrevRangeBodyRatio(ctx *Context) float64 {
	prev, found := prevDailyBar(ctx)
	if !found {
		return 0.0
	}
	rng := float64(prev.High - prev.Low)
	body := float64(abs64(prev.Close - prev.Open))
	return Neutral(Clip(SafeDiv(body, rng, 0.0), 0, 1), 0.0)
}

// FeaturePrevDayReturn is the previous day's close-over-open return,
// clipped to [-1,1].
func FeaturePrevDayReturn(ctx *Context) float64 {
	prev, found := prevDailyBar(ctx)
	if !found || prev.Open == 0 {
		return 0.0
	}
	return Neutral(Clip(SafeDiv(float64(prev.Close-prev.Open), float64(prev.Open), 0.0), -1, 1), 0.0)
}

// FeaturePrevClosePositionInRange is where the previous day's close sat
// within its own high-low range, in [0,1]. Neutral 0.5 on a zero-width
// range or a first trading day.
func FeaturePrevClosePositionInRange(ctx *Context) float64 {
	prev, found := prevDailyBar(ctx)
	if !found || prev.High <= prev.Low {
		return 0.5
	}
	return Clip(SafeDiv(float64(prev.Close-prev.Low), float64(prev.High-prev.Low), 0.5), 0, 1)
}

// FeaturePrevVolumeVsAvg20 is the previous day's volume against its own
// trailing 20-day mean, clipped to [0,3] then rescaled to [0,1].
func FeaturePrevVolumeVsAvg20(ctx *Context) float64 {
	h := dailyHistory(ctx, 21)
	if len(h.Volumes) < 2 {
		return 0.0
	}
	last := h.Volumes[len(h.Volumes)-1]
	avg := Mean(h.Volumes[:len(h.Volumes)-1])
	ratio := SafeDiv(last, avg, 0.0)
	return Clip(ratio, 0, 3) / 3.0
}

// FeatureTwoDayTrend is 1.0 if both of the two most recent completed days
// closed above their open, -1.0 if both closed below, 0.0 otherwise.
func FeatureTwoDayTrend(ctx *Context) float64 {
	h := dailyHistory(ctx, 2)
	if len(h.Closes) < 2 {
		return 0.0
	}
	n := len(h.Closes)
	up1 := h.Closes[n-1] > h.Opens[n-1]
	up2 := h.Closes[n-2] > h.Opens[n-2]
	down1 := h.Closes[n-1] < h.Opens[n-1]
	down2 := h.Closes[n-2] < h.Opens[n-2]
	switch {
	case up1 && up2:
		return 1.0
	case down1 && down2:
		return -1.0
	default:
		return 0.0
	}
}

// FeatureMorningVsPrevHigh is 1.0 if the morning window's last close has
// taken out the previous day's high, else 0.0 — a breakout continuation
// flag pairing the morning window with previous-day context.
func FeatureMorningVsPrevHigh(ctx *Context) float64 {
	prev, found := prevDailyBar(ctx)
	if !found {
		return 0.0
	}
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) == 0 {
		return 0.0
	}
	if w.LastClose() > prev.High {
		return 1.0
	}
	return 0.0
}

// FeaturePrevUpperWickRatio is the previous day's upper wick over its
// high-low range, in [0,1].
func FeaturePrevUpperWickRatio(ctx *Context) float64 {
	prev, found := prevDailyBar(ctx)
	if !found || prev.High <= prev.Low {
		return 0.0
	}
	wick := float64(prev.High - max64(prev.Open, prev.Close))
	return Neutral(Clip(SafeDiv(wick, float64(prev.High-prev.Low), 0.0), 0, 1), 0.0)
}

// FeaturePrevRangeVsATR is the previous day's range divided by ATR(14)
// computed up to (and including) the previous day, clipped to [0,3] then
// rescaled to [0,1].
func FeaturePrevRangeVsATR(ctx *Context) float64 {
	prev, found := prevDailyBar(ctx)
	if !found {
		return 0.0
	}
	h := dailyHistory(ctx, 20)
	atr14 := atrLast(h.Highs, h.Lows, h.Closes, 14)
	if !isFinite(atr14) || atr14 == 0 {
		return 0.0
	}
	rng := float64(prev.High - prev.Low)
	return Clip(rng/atr14, 0, 3) / 3.0
}
