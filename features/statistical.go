package features

import "math"

// Statistical features (§4.4 "Statistical"). These are explicitly flagged
// in spec §4.4 as approximations to be pinned by unit tests rather than
// textbook-exact estimators — Hurst and the Hill tail index in particular
// use small, fixed-shape sub-window schemes rather than full MLE fits.

// FeatureAutocorrLag1 is the lag-1 autocorrelation of 60-day log returns.
func FeatureAutocorrLag1(ctx *Context) float64 {
	return autocorrFeature(ctx, 1)
}

// FeatureAutocorrLag2 is the lag-2 autocorrelation of 60-day log returns.
func FeatureAutocorrLag2(ctx *Context) float64 {
	return autocorrFeature(ctx, 2)
}

// FeatureAutocorrLag5 is the lag-5 autocorrelation of 60-day log returns.
func FeatureAutocorrLag5(ctx *Context) float64 {
	return autocorrFeature(ctx, 5)
}

func autocorrFeature(ctx *Context, lag int) float64 {
	h := dailyHistory(ctx, 61)
	returns := LogReturns(h.Closes)
	if len(returns) <= lag {
		return 0.0
	}
	return Clip(Autocorrelation(returns, lag), -1, 1)
}

// FeatureHurstApprox is a rescaled-range (R/S) Hurst exponent estimated
// over two sub-window scales (20 and 40 days) of the log-return series,
// clipped to [0,1]. Neutral 0.5 (no persistence/anti-persistence signal)
// without enough history.
func FeatureHurstApprox(ctx *Context) float64 {
	h := dailyHistory(ctx, 41)
	returns := LogReturns(h.Closes)
	if len(returns) < 40 {
		return 0.5
	}
	rs20 := rescaledRange(returns[len(returns)-20:])
	rs40 := rescaledRange(returns)
	if rs20 <= 0 || rs40 <= 0 {
		return 0.5
	}
	// log(R/S) ~ H*log(n) + c; two points pin the slope H directly.
	h1 := math.Log(rs20)
	h2 := math.Log(rs40)
	denom := math.Log(40.0) - math.Log(20.0)
	if denom == 0 {
		return 0.5
	}
	hurst := (h2 - h1) / denom
	return Neutral(Clip(hurst, 0, 1), 0.5)
}

func rescaledRange(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	mean := Mean(x)
	var cum, maxCum, minCum float64
	for _, v := range x {
		cum += v - mean
		if cum > maxCum {
			maxCum = cum
		}
		if cum < minCum {
			minCum = cum
		}
	}
	r := maxCum - minCum
	s := Stdev(x)
	if s == 0 {
		return 0
	}
	return r / s
}

// FeatureLongMemoryComposite averages the three autocorrelation-lag
// features into a single long-memory composite in [-1,1].
func FeatureLongMemoryComposite(ctx *Context) float64 {
	a1 := FeatureAutocorrLag1(ctx)
	a2 := FeatureAutocorrLag2(ctx)
	a5 := FeatureAutocorrLag5(ctx)
	return Clip((a1+a2+a5)/3.0, -1, 1)
}

// FeatureHillTailIndex is a Hill estimator of tail heaviness over the
// top-decile (90th-percentile-and-above) absolute log returns of the
// trailing 60 days, clipped to [0,1] (higher == heavier tail). Neutral
// 0.5 without enough history.
func FeatureHillTailIndex(ctx *Context) float64 {
	h := dailyHistory(ctx, 61)
	returns := LogReturns(h.Closes)
	if len(returns) < 20 {
		return 0.5
	}
	abs := make([]float64, len(returns))
	for i, r := range returns {
		abs[i] = math.Abs(r)
	}
	threshold := quantile(abs, 0.9)
	var tail []float64
	for _, v := range abs {
		if v >= threshold && v > 0 {
			tail = append(tail, v)
		}
	}
	if len(tail) < 3 {
		return 0.5
	}
	var sumLog float64
	minV := tail[0]
	for _, v := range tail {
		if v < minV {
			minV = v
		}
	}
	if minV <= 0 {
		return 0.5
	}
	for _, v := range tail {
		sumLog += math.Log(v / minV)
	}
	if sumLog == 0 {
		return 0.5
	}
	hill := float64(len(tail)) / sumLog
	return Clip(1.0/(1.0+hill), 0, 1)
}

// FeatureRegimeSwitchFlag compares first-half vs second-half realized
// volatility over the trailing 40 days; returns 1.0 if the ratio exceeds
// 1.5 or falls below 1/1.5 (a volatility regime change), else 0.0.
func FeatureRegimeSwitchFlag(ctx *Context) float64 {
	h := dailyHistory(ctx, 41)
	returns := LogReturns(h.Closes)
	if len(returns) < 40 {
		return 0.0
	}
	mid := len(returns) / 2
	firstHalf := Stdev(returns[:mid])
	secondHalf := Stdev(returns[mid:])
	ratio := SafeDiv(secondHalf, firstHalf, 1.0)
	if ratio > 1.5 || ratio < 1.0/1.5 {
		return 1.0
	}
	return 0.0
}

// FeatureVaR5 is the empirical 5% Value-at-Risk of 60-day log returns
// (the negative of the 5th percentile), clipped to [0,1].
func FeatureVaR5(ctx *Context) float64 {
	h := dailyHistory(ctx, 61)
	returns := LogReturns(h.Closes)
	if len(returns) < 20 {
		return 0.0
	}
	q := quantile(returns, 0.05)
	return Neutral(Clip(-q, 0, 1), 0.0)
}

// FeatureExpectedShortfall5 is the mean of returns at or below the 5%
// VaR threshold, clipped to [0,1].
func FeatureExpectedShortfall5(ctx *Context) float64 {
	h := dailyHistory(ctx, 61)
	returns := LogReturns(h.Closes)
	if len(returns) < 20 {
		return 0.0
	}
	q := quantile(returns, 0.05)
	var tail []float64
	for _, r := range returns {
		if r <= q {
			tail = append(tail, r)
		}
	}
	if len(tail) == 0 {
		return 0.0
	}
	return Neutral(Clip(-Mean(tail), 0, 1), 0.0)
}

// FeatureSkewness60 is the sample skewness of 60-day log returns, clipped
// to [-1,1] after dividing by 3 (|skew| beyond 3 is saturated).
func FeatureSkewness60(ctx *Context) float64 {
	h := dailyHistory(ctx, 61)
	returns := LogReturns(h.Closes)
	if len(returns) < 20 {
		return 0.0
	}
	mean := Mean(returns)
	sd := Stdev(returns)
	if sd == 0 {
		return 0.0
	}
	var m3 float64
	for _, r := range returns {
		d := (r - mean) / sd
		m3 += d * d * d
	}
	skew := m3 / float64(len(returns))
	return Neutral(Clip(skew/3.0, -1, 1), 0.0)
}

// FeatureKurtosis60 is the excess kurtosis of 60-day log returns, mapped
// through k/(1+|k|) into (-1,1) so heavy tails saturate smoothly.
func FeatureKurtosis60(ctx *Context) float64 {
	h := dailyHistory(ctx, 61)
	returns := LogReturns(h.Closes)
	if len(returns) < 20 {
		return 0.0
	}
	mean := Mean(returns)
	sd := Stdev(returns)
	if sd == 0 {
		return 0.0
	}
	var m4 float64
	for _, r := range returns {
		d := (r - mean) / sd
		m4 += d * d * d * d
	}
	kurt := m4/float64(len(returns)) - 3.0
	return Neutral(kurt/(1.0+math.Abs(kurt)), 0.0)
}

// FeaturePositiveReturnRatio20 is the fraction of the last 20 daily
// returns that were positive, in [0,1]. Neutral 0.5 without history.
func FeaturePositiveReturnRatio20(ctx *Context) float64 {
	h := dailyHistory(ctx, 21)
	returns := LogReturns(h.Closes)
	if len(returns) == 0 {
		return 0.5
	}
	var pos int
	for _, r := range returns {
		if r > 0 {
			pos++
		}
	}
	return float64(pos) / float64(len(returns))
}

// FeatureMaxDrawdown60 is the deepest peak-to-trough drawdown of the
// trailing 60 closes, in [0,1] (0 == no drawdown).
func FeatureMaxDrawdown60(ctx *Context) float64 {
	h := dailyHistory(ctx, 60)
	if len(h.Closes) < 2 {
		return 0.0
	}
	peak := h.Closes[0]
	var worst float64
	for _, c := range h.Closes {
		if c > peak {
			peak = c
		}
		if peak > 0 {
			dd := (peak - c) / peak
			if dd > worst {
				worst = dd
			}
		}
	}
	return Clip(worst, 0, 1)
}

// FeatureLongestRunRatio is the length of the longest same-sign run of
// daily returns over the trailing 20 days, normalized by the series
// length — a runs-test surrogate for trendiness.
func FeatureLongestRunRatio(ctx *Context) float64 {
	h := dailyHistory(ctx, 21)
	returns := LogReturns(h.Closes)
	if len(returns) == 0 {
		return 0.0
	}
	var longest, run, prevSign int
	for _, r := range returns {
		sign := 0
		switch {
		case r > 0:
			sign = 1
		case r < 0:
			sign = -1
		}
		if sign != 0 && sign == prevSign {
			run++
		} else {
			run = 1
		}
		if sign != 0 && run > longest {
			longest = run
		}
		prevSign = sign
	}
	return Clip(float64(longest)/float64(len(returns)), 0, 1)
}

// FeatureEntropyProxy is a stdev-of-returns-derived entropy proxy (higher
// stdev -> higher apparent entropy), clipped to [0,1].
func FeatureEntropyProxy(ctx *Context) float64 {
	h := dailyHistory(ctx, 21)
	returns := LogReturns(h.Closes)
	if len(returns) == 0 {
		return 0.0
	}
	sd := Stdev(returns)
	return Clip(sd*20.0, 0, 1)
}
