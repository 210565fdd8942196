package features

// Momentum features (§4.4 "Momentum"), computed over the current
// morning window's bar-to-bar closes with a variable RSI period of
// min(len-1, 14), matching the spec's explicit period rule.

// rsiPeriod is the variable RSI window named in §4.4.
func rsiPeriod(n int) int {
	p := n - 1
	if p > 14 {
		p = 14
	}
	if p < 1 {
		p = 1
	}
	return p
}

// FeatureRSI is the Wilder-style RSI over the morning window's closes,
// scaled to [0,1] (divided by 100). Neutral 0.5 with fewer than 2 bars.
func FeatureRSI(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) < 2 {
		return 0.5
	}
	closes := make([]float64, len(w.Bars))
	for i, b := range w.Bars {
		closes[i] = float64(b.Close)
	}
	period := rsiPeriod(len(closes))
	var gain, loss float64
	start := len(closes) - period - 1
	if start < 0 {
		start = 0
	}
	for i := start + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	n := float64(len(closes) - start - 1)
	if n == 0 {
		return 0.5
	}
	avgGain, avgLoss := gain/n, loss/n
	if avgLoss == 0 {
		if avgGain == 0 {
			return 0.5
		}
		return 1.0
	}
	rs := avgGain / avgLoss
	rsi := 100.0 - 100.0/(1.0+rs)
	return Clip(rsi/100.0, 0, 1)
}

// FeatureRSIPersistence is the fraction of the morning window's bars with
// RSI (computed on the prefix ending at that bar) above 0.5, an
// overbought-persistence count normalized to [0,1].
func FeatureRSIPersistence(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) < 2 {
		return 0.5
	}
	var above, total int
	for i := 2; i <= len(w.Bars); i++ {
		closes := make([]float64, i)
		for j := 0; j < i; j++ {
			closes[j] = float64(w.Bars[j].Close)
		}
		period := rsiPeriod(len(closes))
		start := len(closes) - period - 1
		if start < 0 {
			start = 0
		}
		var gain, loss float64
		for k := start + 1; k < len(closes); k++ {
			d := closes[k] - closes[k-1]
			if d > 0 {
				gain += d
			} else {
				loss -= d
			}
		}
		n := float64(len(closes) - start - 1)
		if n == 0 {
			continue
		}
		avgGain, avgLoss := gain/n, loss/n
		var rsi float64
		switch {
		case avgLoss == 0 && avgGain == 0:
			rsi = 50
		case avgLoss == 0:
			rsi = 100
		default:
			rs := avgGain / avgLoss
			rsi = 100.0 - 100.0/(1.0+rs)
		}
		total++
		if rsi > 50 {
			above++
		}
	}
	if total == 0 {
		return 0.5
	}
	return float64(above) / float64(total)
}

// FeatureMACDLike is the difference of short EMAs (EMA3 - EMA7) over the
// morning window's closes, normalized by EMA7 and clipped to [-1,1].
func FeatureMACDLike(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) < 7 {
		return 0.0
	}
	closes := make([]float64, len(w.Bars))
	for i, b := range w.Bars {
		closes[i] = float64(b.Close)
	}
	e3 := emaLast(closes, 3)
	e7 := emaLast(closes, 7)
	return Neutral(Clip(SafeDiv(e3-e7, e7, 0.0), -1, 1), 0.0)
}

// FeatureMACDSignalDiff is the MACD-like EMA3-EMA7 difference minus its
// own 3-bar EMA (the "signal line"), normalized by the last close and
// clipped to [-1,1].
func FeatureMACDSignalDiff(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) < 7 {
		return 0.0
	}
	closes := make([]float64, len(w.Bars))
	for i, b := range w.Bars {
		closes[i] = float64(b.Close)
	}
	macd := make([]float64, 0, len(closes))
	for i := 7; i <= len(closes); i++ {
		macd = append(macd, emaLast(closes[:i], 3)-emaLast(closes[:i], 7))
	}
	if len(macd) == 0 {
		return 0.0
	}
	signal := emaLast(macd, 3)
	last := closes[len(closes)-1]
	return Neutral(Clip(SafeDiv(macd[len(macd)-1]-signal, last, 0.0)*100.0, -1, 1), 0.0)
}

// FeatureStochasticK is the fast stochastic %K over the morning window:
// where the last close sits within the window's high-low range, in [0,1].
func FeatureStochasticK(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) == 0 {
		return 0.5
	}
	lo, hi := float64(w.MinLow()), float64(w.MaxHigh())
	if hi <= lo {
		return 0.5
	}
	return Clip(SafeDiv(float64(w.LastClose())-lo, hi-lo, 0.5), 0, 1)
}

// FeatureCloseROC is the close-to-close rate of change across the whole
// morning window (first close to last close), clipped to [-1,1].
func FeatureCloseROC(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) < 2 {
		return 0.0
	}
	first := float64(w.Bars[0].Close)
	last := float64(w.LastClose())
	return Neutral(Clip(SafeDiv(last-first, first, 0.0), -1, 1), 0.0)
}

// FeatureMomentumAcceleration is the second difference of closes at the
// window's tail — (c[n]-c[n-1]) - (c[n-1]-c[n-2]) — normalized by the last
// close and clipped to [-1,1].
func FeatureMomentumAcceleration(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) < 3 {
		return 0.0
	}
	n := len(w.Bars)
	c0 := float64(w.Bars[n-3].Close)
	c1 := float64(w.Bars[n-2].Close)
	c2 := float64(w.Bars[n-1].Close)
	accel := (c2 - c1) - (c1 - c0)
	return Neutral(Clip(SafeDiv(accel, c2, 0.0)*10.0, -1, 1), 0.0)
}

// FeatureVolumeMomentum is the linear-regression slope of the window's
// per-bar volumes normalized by the mean volume, clipped to [-1,1] —
// whether participation is building or fading into the half-hour close.
func FeatureVolumeMomentum(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) < 3 {
		return 0.0
	}
	vols := make([]float64, len(w.Bars))
	for i, b := range w.Bars {
		vols[i] = float64(b.Volume)
	}
	slope := linregSlope(vols)
	return Neutral(Clip(SafeDiv(slope, Mean(vols), 0.0), -1, 1), 0.0)
}

// FeatureDirectionChangeCount is the number of sign flips in bar-to-bar
// price direction across the morning window, normalized by the number of
// possible flips — a surrogate for higher-order derivative activity.
func FeatureDirectionChangeCount(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) < 3 {
		return 0.0
	}
	var changes, possible int
	var prevSign int
	for i := 1; i < len(w.Bars); i++ {
		d := w.Bars[i].Close - w.Bars[i-1].Close
		sign := 0
		switch {
		case d > 0:
			sign = 1
		case d < 0:
			sign = -1
		}
		if i > 1 {
			possible++
			if sign != 0 && prevSign != 0 && sign != prevSign {
				changes++
			}
		}
		if sign != 0 {
			prevSign = sign
		}
	}
	if possible == 0 {
		return 0.0
	}
	return float64(changes) / float64(possible)
}
