package prediction

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daytrader/calendar"
	"daytrader/features"
	"daytrader/marketdata"
	"daytrader/model"
)

func mustModel(t *testing.T, kind model.Kind, weights []float64) *model.Model {
	t.Helper()
	artifact := struct {
		Kind    model.Kind `json:"kind"`
		Weights []float64  `json:"weights"`
		Bias    float64    `json:"bias"`
	}{Kind: kind, Weights: weights, Bias: 0}
	data, err := json.Marshal(artifact)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "artifact.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	m, err := model.Load(path, len(weights))
	require.NoError(t, err)
	return m
}

type fixedRanker struct{ stocks []string }

func (f fixedRanker) TopByTurnover(date int, n int) ([]string, error) {
	if n < len(f.stocks) {
		return f.stocks[:n], nil
	}
	return f.stocks, nil
}

func buildStage(t *testing.T, kind model.Kind, weight float64) (*Stage, int) {
	t.Helper()
	date := 20240102
	cal, err := calendar.New([]int{20231229, date})
	require.NoError(t, err)

	mem := marketdata.NewMemory()
	for _, stock := range []string{"A000001", "A000002"} {
		mem.PutMorning(stock, date, marketdata.MorningWindow{Bars: []marketdata.Bar{
			{Open: 10000, High: 10100, Low: 9950, Close: 10050, Volume: 1000},
			{Open: 10050, High: 10200, Low: 10000, Close: 10150, Volume: 1200},
		}})
	}

	weights := make([]float64, features.Len())
	weights[0] = weight
	m := mustModel(t, kind, weights)

	return &Stage{
		Cfg:    Config{TopN: 2, ClassificationThresh: 0.5},
		Cal:    cal,
		Data:   mem,
		Ranker: fixedRanker{stocks: []string{"A000001", "A000002"}},
		Model:  m,
	}, date
}

func TestRunEmitsPickRegression(t *testing.T) {
	stage, date := buildStage(t, model.Regression, 10.0)
	pick, err := stage.Run(context.Background(), date)
	require.NoError(t, err)
	require.NotNil(t, pick)
	assert.Contains(t, []string{"A000001", "A000002"}, pick.Stock)
}

func TestRunExcludesCandidate(t *testing.T) {
	stage, date := buildStage(t, model.Regression, 10.0)
	stage.Cfg.ExclusionList = []string{"A000001", "A000002"}
	pick, err := stage.Run(context.Background(), date)
	require.NoError(t, err)
	assert.Nil(t, pick)
}

func TestRunNoTradeWhenAllNegative(t *testing.T) {
	stage, date := buildStage(t, model.Regression, -10.0)
	pick, err := stage.Run(context.Background(), date)
	require.NoError(t, err)
	assert.Nil(t, pick)
}

func TestRunClassificationThreshold(t *testing.T) {
	stage, date := buildStage(t, model.Classification, 0.0)
	stage.Cfg.ClassificationThresh = 0.9
	pick, err := stage.Run(context.Background(), date)
	require.NoError(t, err)
	assert.Nil(t, pick)
}

func TestRunContextCancelled(t *testing.T) {
	stage, date := buildStage(t, model.Regression, 10.0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pick, err := stage.Run(ctx, date)
	require.NoError(t, err)
	assert.Nil(t, pick)
}
