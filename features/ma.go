// Package features is the Feature Engine (§4.4): a namespace of pure
// functions (stock, date, calendar, accessor) -> float64 computing
// normalized indicators over OHLCV and auxiliary series. Every exported
// indicator function is side-effect-free apart from reading the accessor,
// and the no-look-ahead guarantee lives in how this package fetches data:
// daily history comes only from dailyHistory/prevDailyBar, which read dates
// strictly before ctx.Date, and same-day data only from the morning window
// (see context.go).
//
// ma.go is grounded line-for-line on
// original_source/stockrs/src/model/onnx_predictor/features/indicators/ma.rs:
// the moving-average/EMA/slope/cross family keeps that file's exact
// numerical contract (NaN for "insufficient history", computed internally,
// never returned to a caller outside this package — see normalize.go for
// the neutral-value boundary).
package features

import "math"

// MaBundle caches the moving-average stack for a single closes series, the
// same subset stockrs::MaBundle caches.
type MaBundle struct {
	SMA5, SMA20, SMA60, SMA120, SMA200 float64
	EMA12, EMA26                       float64
	SMA5Slope5, SMA20Slope5, SMA60Slope5 float64
}

// ComputeMaBundle fills a bundle from closes (oldest -> newest), leaving
// fields NaN where the window isn't satisfiable. ok is false only when
// closes is empty.
func ComputeMaBundle(closes []float64) (MaBundle, bool) {
	if len(closes) == 0 {
		return MaBundle{}, false
	}
	b := MaBundle{
		SMA5:   naIf(len(closes) < 5, func() float64 { return smaLast(closes, 5) }),
		SMA20:  naIf(len(closes) < 20, func() float64 { return smaLast(closes, 20) }),
		SMA60:  naIf(len(closes) < 60, func() float64 { return smaLast(closes, 60) }),
		SMA120: naIf(len(closes) < 120, func() float64 { return smaLast(closes, 120) }),
		SMA200: naIf(len(closes) < 200, func() float64 { return smaLast(closes, 200) }),
		EMA12:  naIf(len(closes) < 12, func() float64 { return emaLast(closes, 12) }),
		EMA26:  naIf(len(closes) < 26, func() float64 { return emaLast(closes, 26) }),
	}
	b.SMA5Slope5 = naIf(len(closes) < 9, func() float64 { return slopeOnSMA(closes, 5, 5) })
	b.SMA20Slope5 = naIf(len(closes) < 24, func() float64 { return slopeOnSMA(closes, 20, 5) })
	b.SMA60Slope5 = naIf(len(closes) < 64, func() float64 { return slopeOnSMA(closes, 60, 5) })
	return b, true
}

func naIf(insufficient bool, f func() float64) float64 {
	if insufficient {
		return math.NaN()
	}
	return f()
}

// smaLast is the simple moving average of the last window elements of x.
// NaN if window is zero or x is shorter than window.
func smaLast(x []float64, window int) float64 {
	if window == 0 || len(x) < window {
		return math.NaN()
	}
	start := len(x) - window
	var sum float64
	for _, v := range x[start:] {
		sum += v
	}
	return sum / float64(window)
}

// emaLast is the exponential moving average of x using K = 2/(n+1),
// seeded with the SMA of the first window elements when available.
func emaLast(x []float64, window int) float64 {
	if window == 0 || len(x) == 0 {
		return math.NaN()
	}
	k := 2.0 / (float64(window) + 1.0)
	var ema float64
	var rest []float64
	if len(x) >= window {
		ema = smaLast(x[:window], window)
		rest = x[window:]
	} else {
		ema = x[0]
		rest = x[1:]
	}
	for _, v := range rest {
		ema = v*k + ema*(1.0-k)
	}
	return ema
}

// linregSlope is the per-step linear-regression slope of y over indices
// 0..n-1. NaN if y has fewer than two points.
func linregSlope(y []float64) float64 {
	n := len(y)
	if n < 2 {
		return math.NaN()
	}
	nf := float64(n)
	sumX := (nf - 1.0) * nf / 2.0
	sumX2 := (nf - 1.0) * nf * (2.0*nf - 1.0) / 6.0
	var sumY, sumXY float64
	for i, v := range y {
		sumY += v
		sumXY += v * float64(i)
	}
	denom := nf*sumX2 - sumX*sumX
	if denom == 0.0 {
		return math.NaN()
	}
	return (nf*sumXY - sumX*sumY) / denom
}

// slopeOnSMA builds a slopeWindow-long SMA(maWindow) series from the tail
// of closes and returns its linear-regression slope normalized by the
// series' last value, making the slope scale-free.
func slopeOnSMA(closes []float64, maWindow, slopeWindow int) float64 {
	if maWindow == 0 || slopeWindow == 0 {
		return math.NaN()
	}
	totalNeeded := maWindow + slopeWindow - 1
	if len(closes) < totalNeeded {
		return math.NaN()
	}
	startIdx := len(closes) - totalNeeded
	endIdx := len(closes)

	smaSeries := make([]float64, 0, slopeWindow)
	firstEnd := min(startIdx+maWindow, endIdx)
	if firstEnd <= startIdx {
		return math.NaN()
	}
	smaSeries = append(smaSeries, sumRange(closes, startIdx, firstEnd)/float64(maWindow))

	for i := 1; i < slopeWindow; i++ {
		windowStart := startIdx + i
		windowEnd := min(windowStart+maWindow, endIdx)
		if windowEnd <= windowStart {
			break
		}
		smaSeries = append(smaSeries, sumRange(closes, windowStart, windowEnd)/float64(maWindow))
	}
	if len(smaSeries) < 2 {
		return math.NaN()
	}
	slope := linregSlope(smaSeries)
	last := smaSeries[len(smaSeries)-1]
	if last == 0.0 || !isFinite(last) || !isFinite(slope) {
		return math.NaN()
	}
	return slope / last
}

func sumRange(x []float64, start, end int) float64 {
	var sum float64
	for _, v := range x[start:end] {
		sum += v
	}
	return sum
}

// crossUp reports whether a crossed above b on the last step.
func crossUp(prevA, prevB, a, b float64) bool {
	return isFinite(prevA) && isFinite(prevB) && isFinite(a) && isFinite(b) && prevA <= prevB && a > b
}

// crossDown reports whether a crossed below b on the last step.
func crossDown(prevA, prevB, a, b float64) bool {
	return isFinite(prevA) && isFinite(prevB) && isFinite(a) && isFinite(b) && prevA >= prevB && a < b
}

// lastCrossDays walks a and b (same length, oldest->newest) backward and
// returns the number of steps since the most recent qualifying cross.
// preferUp == nil matches either direction; true/false restricts to
// up-crosses/down-crosses. found is false if no cross exists.
func lastCrossDays(a, b []float64, preferUp *bool) (days int, found bool) {
	n := len(a)
	if n < 2 || n != len(b) {
		return 0, false
	}
	for i := n - 1; i >= 1; i-- {
		pa, pb, ca, cb := a[i-1], b[i-1], a[i], b[i]
		up := crossUp(pa, pb, ca, cb)
		down := crossDown(pa, pb, ca, cb)
		switch {
		case preferUp == nil && (up || down):
			return n - 1 - i, true
		case preferUp != nil && *preferUp && up:
			return n - 1 - i, true
		case preferUp != nil && !*preferUp && down:
			return n - 1 - i, true
		}
	}
	return 0, false
}

// alignmentScore5 scores a 5-level MA stack 0..1 via six pairwise ordering
// checks. NaN if any input is non-finite.
func alignmentScore5(s5, s20, s60, s120, s200 float64) float64 {
	for _, v := range [...]float64{s5, s20, s60, s120, s200} {
		if !isFinite(v) {
			return math.NaN()
		}
	}
	var score float64
	add := func(cond bool) {
		if cond {
			score++
		}
	}
	add(s5 > s20)
	add(s20 > s60)
	add(s60 > s120)
	add(s120 > s200)
	add(s5 > s60)
	add(s5 > s200)
	return score / 6.0
}

// atrLast is the Average True Range over the last period true ranges
// derived from highs/lows/closes (all same length, oldest->newest).
func atrLast(highs, lows, closes []float64, period int) float64 {
	if len(highs) < period+1 || len(lows) < period+1 || len(closes) < period+1 {
		return math.NaN()
	}
	trueRanges := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		highLow := highs[i] - lows[i]
		highClosePrev := math.Abs(highs[i] - closes[i-1])
		lowClosePrev := math.Abs(lows[i] - closes[i-1])
		trueRanges = append(trueRanges, math.Max(highLow, math.Max(highClosePrev, lowClosePrev)))
	}
	if len(trueRanges) < period {
		return math.NaN()
	}
	start := len(trueRanges) - period
	var sum float64
	for _, v := range trueRanges[start:] {
		sum += v
	}
	return sum / float64(period)
}

// emaSeries generates the full EMA series for period, seeded with the
// first element (not an SMA seed — matches the Rust helper used by tema).
func emaSeries(series []float64, period int) []float64 {
	if len(series) == 0 || period == 0 {
		return nil
	}
	k := 2.0 / (float64(period) + 1.0)
	out := make([]float64, len(series))
	ema := series[0]
	out[0] = ema
	for i, v := range series[1:] {
		ema = v*k + ema*(1.0-k)
		out[i+1] = ema
	}
	return out
}

// temaLast is the Triple Exponential Moving Average of the last point.
func temaLast(series []float64, period int) float64 {
	if len(series) < period*3 {
		return math.NaN()
	}
	ema1 := emaLast(series, period)
	ema2 := emaLast(emaSeries(series, period), period)
	ema3 := emaLast(emaSeries(emaSeries(series, period), period), period)
	return 3.0*ema1 - 3.0*ema2 + ema3
}

// wmaLast is the weighted moving average of the last period elements,
// weighting the most recent element highest.
func wmaLast(series []float64, period int) float64 {
	if len(series) < period {
		return math.NaN()
	}
	start := len(series) - period
	var sum, weightSum float64
	for i, v := range series[start:] {
		w := float64(i + 1)
		sum += v * w
		weightSum += w
	}
	return sum / weightSum
}

// hmaSeries is the Hull Moving Average series for period.
func hmaSeries(series []float64, period int) []float64 {
	h := period / 2
	s := int(math.Floor(math.Sqrt(float64(period))))
	if period == 0 || h == 0 || s == 0 || len(series) < period {
		return nil
	}
	raw := make([]float64, 0, len(series)-period+1)
	for i := period - 1; i < len(series); i++ {
		wHalf := wmaLast(series[:i+1], h)
		wFull := wmaLast(series[:i+1], period)
		raw = append(raw, 2.0*wHalf-wFull)
	}
	hmaVals := make([]float64, 0, len(raw)-s+1)
	for i := s - 1; i < len(raw); i++ {
		hmaVals = append(hmaVals, wmaLast(raw[:i+1], s))
	}
	return hmaVals
}

// kamaLast is the Kaufman Adaptive Moving Average of series using an
// efficiency ratio over erPeriod and fast/slow smoothing constants.
func kamaLast(series []float64, erPeriod, fast, slow int) float64 {
	if erPeriod == 0 || len(series) < erPeriod+1 {
		return math.NaN()
	}
	fastSC := 2.0 / (float64(fast) + 1.0)
	slowSC := 2.0 / (float64(slow) + 1.0)

	kama := series[0]
	prev := kama
	for i := erPeriod; i < len(series); i++ {
		change := math.Abs(series[i] - series[i-erPeriod])
		var volatility float64
		for j := i - erPeriod + 1; j <= i; j++ {
			volatility += math.Abs(series[j] - series[j-1])
		}
		var er float64
		if volatility > 0.0 {
			er = change / volatility
		}
		sc := math.Pow(er*(fastSC-slowSC)+slowSC, 2)
		kama = series[i]*sc + prev*(1.0-sc)
		prev = kama
	}
	return kama
}

// keltnerChannel returns the (upper, lower) Keltner Channel bounds for a
// center EMA, ATR, and band multiplier.
func keltnerChannel(ema, atr, multiplier float64) (upper, lower float64) {
	return ema + multiplier*atr, ema - multiplier*atr
}

// slopeLastN is the linear-regression slope of the last periods elements
// of series.
func slopeLastN(series []float64, periods int) float64 {
	if len(series) < periods {
		return math.NaN()
	}
	return linregSlope(series[len(series)-periods:])
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
