package features

// Intraday-shape features (§4.4 "Intraday shape"): cheap ratios and pattern
// scores over the current day's morning window. All read only
// ctx.Date's own morning bars, never a prior day's data, so "no look-ahead"
// here means simply never reaching past the window's own last bar.

// FeatureCurrentVsOpenRatio is (last_close - first_open) / first_open,
// clipped to [-1,1]. Neutral 0.0 on an empty window.
func FeatureCurrentVsOpenRatio(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) == 0 {
		return 0.0
	}
	open := float64(w.Bars[0].Open)
	last := float64(w.LastClose())
	return Neutral(Clip(SafeDiv(last-open, open, 0.0), -1, 1), 0.0)
}

// FeatureHighVsOpenRatio is (max_high - first_open) / first_open.
func FeatureHighVsOpenRatio(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) == 0 {
		return 0.0
	}
	open := float64(w.Bars[0].Open)
	return Neutral(Clip(SafeDiv(float64(w.MaxHigh())-open, open, 0.0), -1, 1), 0.0)
}

// FeatureLowVsOpenRatio is (min_low - first_open) / first_open.
func FeatureLowVsOpenRatio(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) == 0 {
		return 0.0
	}
	open := float64(w.Bars[0].Open)
	return Neutral(Clip(SafeDiv(float64(w.MinLow())-open, open, 0.0), -1, 1), 0.0)
}

// FeaturePricePositionInRange is where the last close sits within
// [min_low, max_high] of the morning window, in [0,1]. Neutral 0.5 when
// the range has zero width or the window is empty.
func FeaturePricePositionInRange(ctx *Context) float64 {
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

// FeatureVWAPPosition is (last_close - vwap) / vwap, clipped to [-1,1].
func FeatureVWAPPosition(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) == 0 {
		return 0.0
	}
	vwap := w.VWAP()
	return Neutral(Clip(SafeDiv(float64(w.LastClose())-vwap, vwap, 0.0), -1, 1), 0.0)
}

// FeatureLongCandleRatio is the fraction of bars in the window whose
// |close-open| exceeds half the bar's own high-low range — a cheap proxy
// for "decisive" candles. In [0,1], neutral 0 on an empty window.
func FeatureLongCandleRatio(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) == 0 {
		return 0.0
	}
	var long int
	for _, b := range w.Bars {
		rng := float64(b.High - b.Low)
		body := float64(abs64(b.Close - b.Open))
		if rng > 0 && body >= rng*0.5 {
			long++
		}
	}
	return float64(long) / float64(len(w.Bars))
}

// FeatureConsecutivePositiveCount is the current streak of bars closing
// above their own open, counted from the most recent bar backward,
// normalized by the window length so it lands in [0,1].
func FeatureConsecutivePositiveCount(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) == 0 {
		return 0.0
	}
	var streak int
	for i := len(w.Bars) - 1; i >= 0; i-- {
		if w.Bars[i].Close > w.Bars[i].Open {
			streak++
		} else {
			break
		}
	}
	return float64(streak) / float64(len(w.Bars))
}

// FeatureEngulfingScore is 1.0 if the last bar's body fully engulfs the
// previous bar's body in the bullish direction, 0.0 otherwise. Neutral 0.0
// with fewer than two bars.
func FeatureEngulfingScore(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) < 2 {
		return 0.0
	}
	prev, cur := w.Bars[len(w.Bars)-2], w.Bars[len(w.Bars)-1]
	bullishEngulf := cur.Close > cur.Open && prev.Close < prev.Open &&
		cur.Open <= prev.Close && cur.Close >= prev.Open
	if bullishEngulf {
		return 1.0
	}
	return 0.0
}

// FeatureHammerScore is 1.0 if the last bar has a lower wick at least
// twice its body with a small upper wick — the classic hammer shape.
func FeatureHammerScore(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) == 0 {
		return 0.0
	}
	b := w.Bars[len(w.Bars)-1]
	body := float64(abs64(b.Close - b.Open))
	lowerWick := float64(min64(b.Open, b.Close) - b.Low)
	upperWick := float64(b.High - max64(b.Open, b.Close))
	if body == 0 {
		return 0.0
	}
	if lowerWick >= 2*body && upperWick <= body*0.5 {
		return 1.0
	}
	return 0.0
}

// FeatureConsecutiveNegativeCount is the mirror of the positive streak:
// bars closing below their own open, counted from the most recent bar
// backward, normalized by the window length.
func FeatureConsecutiveNegativeCount(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) == 0 {
		return 0.0
	}
	var streak int
	for i := len(w.Bars) - 1; i >= 0; i-- {
		if w.Bars[i].Close < w.Bars[i].Open {
			streak++
		} else {
			break
		}
	}
	return float64(streak) / float64(len(w.Bars))
}

// FeatureBearishEngulfingScore is 1.0 if the last bar's body fully
// engulfs the previous bar's body in the bearish direction.
func FeatureBearishEngulfingScore(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) < 2 {
		return 0.0
	}
	prev, cur := w.Bars[len(w.Bars)-2], w.Bars[len(w.Bars)-1]
	bearishEngulf := cur.Close < cur.Open && prev.Close > prev.Open &&
		cur.Open >= prev.Close && cur.Close <= prev.Open
	if bearishEngulf {
		return 1.0
	}
	return 0.0
}

// FeatureMorningStarScore is 1.0 when the last three bars complete a
// morning-star shape: a decisive down bar, a small-bodied middle bar, and
// an up bar closing above the midpoint of the first bar's body.
func FeatureMorningStarScore(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) < 3 {
		return 0.0
	}
	a, b, c := w.Bars[len(w.Bars)-3], w.Bars[len(w.Bars)-2], w.Bars[len(w.Bars)-1]
	bodyA := float64(abs64(a.Close - a.Open))
	bodyB := float64(abs64(b.Close - b.Open))
	if bodyA == 0 {
		return 0.0
	}
	midA := float64(a.Open+a.Close) / 2.0
	if a.Close < a.Open && bodyB <= bodyA*0.3 && c.Close > c.Open && float64(c.Close) > midA {
		return 1.0
	}
	return 0.0
}

// FeatureShootingStarScore is 1.0 if the last bar has an upper wick at
// least twice its body with a small lower wick — the inverted-hammer /
// shooting-star shape.
func FeatureShootingStarScore(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) == 0 {
		return 0.0
	}
	b := w.Bars[len(w.Bars)-1]
	body := float64(abs64(b.Close - b.Open))
	lowerWick := float64(min64(b.Open, b.Close) - b.Low)
	upperWick := float64(b.High - max64(b.Open, b.Close))
	if body == 0 {
		return 0.0
	}
	if upperWick >= 2*body && lowerWick <= body*0.5 {
		return 1.0
	}
	return 0.0
}

// FeatureDojiScore is 1.0 if the last bar's body is at most a tenth of
// its own high-low range — an indecision candle.
func FeatureDojiScore(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) == 0 {
		return 0.0
	}
	b := w.Bars[len(w.Bars)-1]
	rng := float64(b.High - b.Low)
	if rng == 0 {
		return 0.0
	}
	body := float64(abs64(b.Close - b.Open))
	if body <= rng*0.1 {
		return 1.0
	}
	return 0.0
}

// FeatureRangeVsOpenRatio is the morning window's full high-low range
// divided by its first open, clipped to [0,1].
func FeatureRangeVsOpenRatio(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) == 0 {
		return 0.0
	}
	open := float64(w.Bars[0].Open)
	rng := float64(w.MaxHigh() - w.MinLow())
	return Neutral(Clip(SafeDiv(rng, open, 0.0), 0, 1), 0.0)
}

// FeatureVolumeVsAvgRatio is the most recent bar's volume against the
// window's mean per-bar volume, clipped to [0,3] then rescaled to [0,1]
// (ratio 1.0 == "average" maps to 1/3).
func FeatureVolumeVsAvgRatio(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) == 0 {
		return 0.0
	}
	avg := w.AvgVolume()
	ratio := SafeDiv(float64(w.CurrentVolume()), avg, 0.0)
	return Clip(ratio, 0, 3) / 3.0
}

// FeatureFirstBarVolumeShare is the opening bar's share of the window's
// total volume, in [0,1]. A front-loaded open reads high.
func FeatureFirstBarVolumeShare(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) == 0 {
		return 0.0
	}
	var total int64
	for _, b := range w.Bars {
		total += b.Volume
	}
	return Neutral(Clip(SafeDiv(float64(w.Bars[0].Volume), float64(total), 0.0), 0, 1), 0.0)
}

// FeatureLastBarReturn is the most recent bar's close-over-open return,
// clipped to [-1,1].
func FeatureLastBarReturn(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) == 0 {
		return 0.0
	}
	b := w.Bars[len(w.Bars)-1]
	return Neutral(Clip(SafeDiv(float64(b.Close-b.Open), float64(b.Open), 0.0), -1, 1), 0.0)
}

// FeatureUpperWickRatio is the summed upper wick across the window
// divided by the summed high-low range, in [0,1].
func FeatureUpperWickRatio(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) == 0 {
		return 0.0
	}
	var wick, rng float64
	for _, b := range w.Bars {
		wick += float64(b.High - max64(b.Open, b.Close))
		rng += float64(b.High - b.Low)
	}
	return Neutral(Clip(SafeDiv(wick, rng, 0.0), 0, 1), 0.0)
}

// FeatureLowerWickRatio is the summed lower wick across the window
// divided by the summed high-low range, in [0,1].
func FeatureLowerWickRatio(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) == 0 {
		return 0.0
	}
	var wick, rng float64
	for _, b := range w.Bars {
		wick += float64(min64(b.Open, b.Close) - b.Low)
		rng += float64(b.High - b.Low)
	}
	return Neutral(Clip(SafeDiv(wick, rng, 0.0), 0, 1), 0.0)
}

// FeatureNetBodyRatio is the signed net body (last close - first open)
// over the summed absolute bodies, clipped to [-1,1]. Near +1/-1 means a
// one-way morning; near 0 means churn.
func FeatureNetBodyRatio(ctx *Context) float64 {
	w := morningWindowOrEmpty(ctx)
	if len(w.Bars) == 0 {
		return 0.0
	}
	var gross float64
	for _, b := range w.Bars {
		gross += float64(abs64(b.Close - b.Open))
	}
	net := float64(w.LastClose() - w.Bars[0].Open)
	return Neutral(Clip(SafeDiv(net, gross, 0.0), -1, 1), 0.0)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
