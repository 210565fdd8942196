package model

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daytrader/errs"
)

func TestLoadWidthMismatch(t *testing.T) {
	artifact := `{"kind":"regression","weights":[1,2,3],"bias":0}`
	_, err := loadFrom(strings.NewReader(artifact), 5)
	require.Error(t, err)
	kind, ok := errs.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errs.Config, kind)
}

func TestScoreRegression(t *testing.T) {
	artifact := `{"kind":"regression","weights":[1,2,3],"bias":0.5}`
	m, err := loadFrom(strings.NewReader(artifact), 3)
	require.NoError(t, err)
	score, err := m.Score([]float64{1, 1, 1})
	require.NoError(t, err)
	assert.InDelta(t, 6.5, score, 1e-9)
}

func TestScoreReplacesNonFiniteFeatures(t *testing.T) {
	artifact := `{"kind":"regression","weights":[1,1],"bias":0}`
	m, err := loadFrom(strings.NewReader(artifact), 2)
	require.NoError(t, err)
	score, err := m.Score([]float64{math.NaN(), 4})
	require.NoError(t, err)
	assert.InDelta(t, 4.0, score, 1e-9)
}

func TestScoreClassificationSquashed(t *testing.T) {
	artifact := `{"kind":"classification","weights":[0],"bias":0}`
	m, err := loadFrom(strings.NewReader(artifact), 1)
	require.NoError(t, err)
	score, err := m.Score([]float64{0})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, score, 1e-9)
}

func TestScoreWidthMismatch(t *testing.T) {
	artifact := `{"kind":"regression","weights":[1,2],"bias":0}`
	m, err := loadFrom(strings.NewReader(artifact), 2)
	require.NoError(t, err)
	_, err = m.Score([]float64{1})
	require.Error(t, err)
}
