package features

import (
	"math"
	"sort"
)

// Clip bounds value to [lo, hi] (ma.rs's clip, generalized to arbitrary
// bounds rather than the Rust file's fixed min/max pair).
func Clip(value, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, value))
}

// SafeDiv returns numer/denom, or def if denom is zero or either operand is
// non-finite — the shared normalization helper named in spec §4.4.
func SafeDiv(numer, denom, def float64) float64 {
	if denom == 0.0 || !isFinite(numer) || !isFinite(denom) {
		return def
	}
	return numer / denom
}

// Neutral replaces a NaN/Inf indicator value with def, the documented
// neutral value for the caller's feature (§4.4 rule 4). Most exported
// Feature* functions pass their raw computation through this at the very
// end; the others return their clipped or computed value without this
// check.
func Neutral(v, def float64) float64 {
	if !isFinite(v) {
		return def
	}
	return v
}

// PercentileRank returns the fraction of values strictly less than x, in
// [0,1]. Returns 0.5 (the documented neutral rank) if values is empty.
func PercentileRank(values []float64, x float64) float64 {
	if len(values) == 0 {
		return 0.5
	}
	var below int
	for _, v := range values {
		if v < x {
			below++
		}
	}
	return float64(below) / float64(len(values))
}

// RollingPercentile returns the percentile rank of the last element of
// series against the trailing window of window elements ending at it
// (inclusive), the "rolling percentile over N days" pattern used by the
// tightness/squeeze features. Returns 0.5 if series has fewer than 2
// elements in the window.
func RollingPercentile(series []float64, window int) float64 {
	if len(series) == 0 {
		return 0.5
	}
	start := len(series) - window
	if start < 0 {
		start = 0
	}
	win := series[start:]
	if len(win) < 2 {
		return 0.5
	}
	last := win[len(win)-1]
	return PercentileRank(win[:len(win)-1], last)
}

// Stdev is the population standard deviation of values, 0 if fewer than 2.
func Stdev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(n))
}

// Mean is the arithmetic mean of values, 0 if empty.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// LogReturns turns a closes series into n-1 log returns ln(c[i]/c[i-1]).
// Non-positive adjacent closes contribute a zero return rather than -Inf,
// since bad ticks should dilute a volatility estimate, not poison it.
func LogReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev, cur := closes[i-1], closes[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// Autocorrelation computes the lag-k sample autocorrelation of values, 0 if
// there isn't enough history for the given lag.
func Autocorrelation(values []float64, lag int) float64 {
	n := len(values)
	if lag <= 0 || n <= lag {
		return 0
	}
	mean := Mean(values)
	var num, den float64
	for i := 0; i < n; i++ {
		d := values[i] - mean
		den += d * d
	}
	if den == 0 {
		return 0
	}
	for i := lag; i < n; i++ {
		num += (values[i] - mean) * (values[i-lag] - mean)
	}
	return num / den
}

// quantile returns the empirical quantile q (0..1) of values using
// linear interpolation between closest ranks. values is sorted in place
// by a copy, never mutating the caller's slice.
func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
