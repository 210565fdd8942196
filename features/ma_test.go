package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These pin the exact numerical contract of
// original_source/stockrs/src/model/onnx_predictor/features/indicators/ma.rs
// (§4.4's moving-average stack), carrying over that file's own test cases.

func TestSMALast(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 3.0, smaLast(x, 5), 1e-9)
	assert.True(t, math.IsNaN(smaLast(x, 6)))
}

func TestEMALastFinite(t *testing.T) {
	x := []float64{1, 1, 1, 1}
	e := emaLast(x, 2)
	require.True(t, isFinite(e))
}

func TestLinregSlopePositive(t *testing.T) {
	y := []float64{1, 2, 3, 4}
	assert.Greater(t, linregSlope(y), 0.0)
}

func TestCrossFuncs(t *testing.T) {
	assert.True(t, crossUp(1.0, 2.0, 3.0, 2.5))
	assert.True(t, crossUp(1.0, 2.0, 2.5, 2.0))
	assert.True(t, crossDown(2.0, 1.0, 1.5, 2.0))
	assert.True(t, crossDown(2.0, 1.0, 0.5, 1.0))
}

func TestAlignmentScore5(t *testing.T) {
	assert.InDelta(t, 1.0, alignmentScore5(10, 9, 8, 7, 6), 1e-9)
	assert.InDelta(t, 0.0, alignmentScore5(6, 7, 8, 9, 10), 1e-9)
}

func TestTemaSeriesAllFinite(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	out := []float64{}
	for i := 9; i < len(series); i++ {
		out = append(out, temaLast(series[:i+1], 3))
	}
	for _, v := range out {
		assert.True(t, isFinite(v))
	}
}

func TestHMASeriesNonEmpty(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	out := hmaSeries(series, 4)
	require.NotEmpty(t, out)
	for _, v := range out {
		assert.True(t, isFinite(v))
	}
}

func TestKamaSeriesNonEmpty(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13}
	out := kamaSeries(series, 3, 2, 30)
	require.NotEmpty(t, out)
	for _, v := range out {
		assert.True(t, isFinite(v))
	}
}

func TestATR(t *testing.T) {
	highs := []float64{110, 112, 115, 113, 116}
	lows := []float64{100, 101, 102, 103, 104}
	closes := []float64{105, 106, 107, 108, 109}
	v := atrLast(highs, lows, closes, 3)
	require.True(t, isFinite(v))
	assert.Greater(t, v, 0.0)
}

func TestKeltnerChannel(t *testing.T) {
	upper, lower := keltnerChannel(100, 5, 2)
	assert.Greater(t, upper, lower)
	assert.InDelta(t, 110.0, upper, 1e-9)
	assert.InDelta(t, 90.0, lower, 1e-9)
}
