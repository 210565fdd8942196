package features

import "math"

// Volatility features (§4.4 "Volatility").

// FeatureATRNormalized is ATR(14)/last_close, clipped to [0,1]. Neutral 0.0
// without enough history.
func FeatureATRNormalized(ctx *Context) float64 {
	h := dailyHistory(ctx, 20)
	if len(h.Closes) == 0 {
		return 0.0
	}
	atr14 := atrLast(h.Highs, h.Lows, h.Closes, 14)
	return Neutral(Clip(SafeDiv(atr14, h.Closes[len(h.Closes)-1], 0.0), 0, 1), 0.0)
}

// FeatureRealizedVolatility20 is the stdev of 20-day log returns,
// unclipped but always nonnegative.
func FeatureRealizedVolatility20(ctx *Context) float64 {
	h := dailyHistory(ctx, 21)
	returns := LogReturns(h.Closes)
	if len(returns) == 0 {
		return 0.0
	}
	return Stdev(returns)
}

// FeatureBollingerWidth is the Bollinger Band width (4*stdev of the last
// 20 closes) normalized by SMA20, a squeeze/expansion gauge.
func FeatureBollingerWidth(ctx *Context) float64 {
	h := dailyHistory(ctx, 20)
	if len(h.Closes) < 20 {
		return 0.0
	}
	win := h.Closes[len(h.Closes)-20:]
	sma := Mean(win)
	sd := Stdev(win)
	return Neutral(Clip(SafeDiv(4*sd, sma, 0.0), 0, 1), 0.0)
}

// FeatureBollingerSqueezeFlag is 1.0 if the current Bollinger width sits
// in the bottom decile of its trailing 60-day distribution (a "squeeze"),
// else 0.0. Neutral 0.0 without enough history.
func FeatureBollingerSqueezeFlag(ctx *Context) float64 {
	h := dailyHistory(ctx, 60+20)
	if len(h.Closes) < 40 {
		return 0.0
	}
	widths := make([]float64, 0, 60)
	for i := 20; i <= len(h.Closes); i++ {
		win := h.Closes[i-20 : i]
		sma := Mean(win)
		sd := Stdev(win)
		widths = append(widths, SafeDiv(4*sd, sma, 0.0))
	}
	pct := RollingPercentile(widths, 60)
	if pct <= 0.1 {
		return 1.0
	}
	return 0.0
}

// FeatureVolatilityRegime compares the last 5 days' realized volatility
// against the trailing 20-day volatility, returning a ratio clipped to
// [0,3] then rescaled to [0,1] (ratio 1.0 == "normal" maps to 1/3).
func FeatureVolatilityRegime(ctx *Context) float64 {
	h := dailyHistory(ctx, 21)
	returns := LogReturns(h.Closes)
	if len(returns) < 20 {
		return 0.0
	}
	short := Stdev(returns[len(returns)-5:])
	long := Stdev(returns)
	ratio := SafeDiv(short, long, 1.0)
	return Clip(ratio, 0, 3) / 3.0
}

// FeatureVolatilityClustering is the lag-1 autocorrelation of squared log
// returns (ARCH-style clustering signal), clipped to [-1,1].
func FeatureVolatilityClustering(ctx *Context) float64 {
	h := dailyHistory(ctx, 60)
	returns := LogReturns(h.Closes)
	if len(returns) < 2 {
		return 0.0
	}
	squared := make([]float64, len(returns))
	for i, r := range returns {
		squared[i] = r * r
	}
	return Clip(Autocorrelation(squared, 1), -1, 1)
}

// FeatureATR5Normalized is the short-window ATR(5)/last_close companion
// to the ATR(14) feature, clipped to [0,1].
func FeatureATR5Normalized(ctx *Context) float64 {
	h := dailyHistory(ctx, 10)
	if len(h.Closes) == 0 {
		return 0.0
	}
	atr5 := atrLast(h.Highs, h.Lows, h.Closes, 5)
	return Neutral(Clip(SafeDiv(atr5, h.Closes[len(h.Closes)-1], 0.0), 0, 1), 0.0)
}

// FeatureRealizedVolatility5 is the stdev of the last 5 daily log
// returns, always nonnegative.
func FeatureRealizedVolatility5(ctx *Context) float64 {
	h := dailyHistory(ctx, 6)
	returns := LogReturns(h.Closes)
	if len(returns) < 5 {
		return 0.0
	}
	return Stdev(returns[len(returns)-5:])
}

// FeatureRangeIntensity20 is the mean of (high-low)/close over the last
// 20 days, clipped to [0,1] — a candle-range analogue of ATR.
func FeatureRangeIntensity20(ctx *Context) float64 {
	h := dailyHistory(ctx, 20)
	if len(h.Closes) == 0 {
		return 0.0
	}
	var ratios []float64
	for i := range h.Closes {
		ratios = append(ratios, SafeDiv(h.Highs[i]-h.Lows[i], h.Closes[i], 0.0))
	}
	return Neutral(Clip(Mean(ratios), 0, 1), 0.0)
}

// FeatureParkinsonVolatility20 is the Parkinson high-low volatility
// estimator over the last 20 days, clipped to [0,1].
func FeatureParkinsonVolatility20(ctx *Context) float64 {
	h := dailyHistory(ctx, 20)
	if len(h.Closes) < 5 {
		return 0.0
	}
	var sum float64
	var n int
	for i := range h.Closes {
		if h.Lows[i] <= 0 || h.Highs[i] <= h.Lows[i] {
			continue
		}
		lr := math.Log(h.Highs[i] / h.Lows[i])
		sum += lr * lr
		n++
	}
	if n == 0 {
		return 0.0
	}
	park := math.Sqrt(sum / (4.0 * math.Ln2 * float64(n)))
	return Neutral(Clip(park, 0, 1), 0.0)
}

// FeatureSqueezePercentile is the raw 60-day rolling percentile the
// squeeze flag thresholds on, exposed as a continuous [0,1] signal.
func FeatureSqueezePercentile(ctx *Context) float64 {
	h := dailyHistory(ctx, 60+20)
	if len(h.Closes) < 40 {
		return 0.5
	}
	widths := make([]float64, 0, 60)
	for i := 20; i <= len(h.Closes); i++ {
		win := h.Closes[i-20 : i]
		widths = append(widths, SafeDiv(4*Stdev(win), Mean(win), 0.0))
	}
	return RollingPercentile(widths, 60)
}

// FeatureUpDownVolRatio is the stdev of positive log returns over the
// stdev of negative log returns across the trailing 60 days, clipped to
// [0,3] then rescaled to [0,1] (symmetric volatility maps to 1/3).
func FeatureUpDownVolRatio(ctx *Context) float64 {
	h := dailyHistory(ctx, 61)
	returns := LogReturns(h.Closes)
	if len(returns) < 20 {
		return 0.0
	}
	var up, down []float64
	for _, r := range returns {
		if r > 0 {
			up = append(up, r)
		} else if r < 0 {
			down = append(down, r)
		}
	}
	if len(up) < 2 || len(down) < 2 {
		return 0.0
	}
	ratio := SafeDiv(Stdev(up), Stdev(down), 1.0)
	return Clip(ratio, 0, 3) / 3.0
}

// FeatureVolOfVol is the standard deviation of a rolling 5-day realized
// volatility series over the trailing 30 days — "volatility of
// volatility". Neutral 0.0 without enough history.
func FeatureVolOfVol(ctx *Context) float64 {
	h := dailyHistory(ctx, 36)
	returns := LogReturns(h.Closes)
	if len(returns) < 10 {
		return 0.0
	}
	var vols []float64
	for i := 5; i <= len(returns); i++ {
		vols = append(vols, Stdev(returns[i-5:i]))
	}
	if len(vols) < 2 {
		return 0.0
	}
	return Clip(Stdev(vols), 0, 1)
}
