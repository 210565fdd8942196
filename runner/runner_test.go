package runner

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"daytrader/broker"
	"daytrader/calendar"
	"daytrader/clock"
	"daytrader/config"
	"daytrader/features"
	"daytrader/marketdata"
	"daytrader/model"
	"daytrader/prediction"
	"daytrader/store"
	"daytrader/trader"
)

// sqlOpenMemory opens a private, per-test in-memory sqlite database for the
// trade log, matching store/tradelog_test.go's own fixture.
func sqlOpenMemory(t *testing.T) (*sql.DB, error) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	t.Cleanup(func() { db.Close() })
	return db, nil
}

// fixedRanker always hands back the same single-stock universe, mirroring
// prediction_test.go's fixture of the same name.
type fixedRanker struct{ stocks []string }

func (f fixedRanker) TopByTurnover(date int, n int) ([]string, error) {
	if n < len(f.stocks) {
		return f.stocks[:n], nil
	}
	return f.stocks, nil
}

func mustModel(t *testing.T, weight float64) *model.Model {
	t.Helper()
	weights := make([]float64, features.Len())
	weights[0] = weight
	artifact := struct {
		Kind    model.Kind `json:"kind"`
		Weights []float64  `json:"weights"`
		Bias    float64    `json:"bias"`
	}{Kind: model.Regression, Weights: weights, Bias: 0}
	data, err := json.Marshal(artifact)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "artifact.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	m, err := model.Load(path, len(weights))
	require.NoError(t, err)
	return m
}

// fillMinutes writes the same price into mem for every minute key from
// start to end inclusive, so an Update tick never hits a NoData gap while
// the test's scenario plays out.
func fillMinutes(mem *marketdata.Memory, stock string, date int, start, end time.Time, price float64) {
	for t := start; !t.After(end); t = t.Add(time.Minute) {
		key := fmt.Sprintf("%d%02d%02d", date, t.Hour(), t.Minute())
		mem.PutMinute(stock, key, price)
	}
}

func testBuildCommon(t *testing.T) (*calendar.Calendar, *marketdata.Memory, clock.Params) {
	t.Helper()
	cal, err := calendar.New([]int{20240101, 20240102, 20240103})
	require.NoError(t, err)

	mem := marketdata.NewMemory()
	params := clock.Params{
		DataPrepTime:    "08:30:00",
		TradingStart:    "09:00:00",
		LastUpdateTime:  "15:29:00",
		MarketCloseTime: "15:30:00",
		SpecialDates:    map[int]bool{},
	}
	mem.Bounds = params
	return cal, mem, params
}

func buildRunner(t *testing.T, mem *marketdata.Memory, cal *calendar.Calendar, params clock.Params, date int, stock string, cfg config.Config) *Runner {
	t.Helper()

	clk, err := clock.New(cal, params, date)
	require.NoError(t, err)

	m := mustModel(t, 10.0)
	mem.PutMorning(stock, date, marketdata.MorningWindow{Bars: []marketdata.Bar{
		{Open: 10000, High: 10100, Low: 9950, Close: 10050, Volume: 1000},
		{Open: 10050, High: 10200, Low: 10000, Close: 10150, Volume: 1200},
	}})

	stage := &prediction.Stage{
		Cfg:    prediction.Config{TopN: 1, ClassificationThresh: 0.5},
		Cal:    cal,
		Data:   mem,
		Ranker: fixedRanker{stocks: []string{stock}},
		Model:  m,
	}

	bt := broker.NewBacktestBroker(mem, broker.BacktestFees{}, 10_000_000)

	db, err := sqlOpenMemory(t)
	require.NoError(t, err)
	trades, err := store.NewTradeLog(db)
	require.NoError(t, err)

	return New(&cfg, clk, cal, params, clock.Backtest, stage, bt, trades)
}

func TestRunnerTakeProfitScenario(t *testing.T) {
	cal, mem, params := testBuildCommon(t)
	date := 20240102
	stock := "A000001"

	entry := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	exit := time.Date(2024, 1, 2, 10, 5, 0, 0, time.UTC)
	fillMinutes(mem, stock, date, entry, exit.Add(-time.Minute), 10000)
	mem.PutMinute(stock, "202401021005", 10250) // +2.5%, clears the 2% take-profit bar

	cfg := config.Config{
		Strategy: config.Strategy{
			StopLossPct:      1.0,
			TakeProfitPct:    2.0,
			EntryTime:        "09:30:00",
			ForceCloseTime:   "12:00:00",
			FixedEntryAmount: 1_000_000,
		},
		Backtest: config.Backtest{SkipMissingPriceAsUnavailable: true},
	}

	r := buildRunner(t, mem, cal, params, date, stock, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Run(ctx, date))

	require.Equal(t, trader.Closed, r.MachineState())
	pos := r.Machine.Position()
	require.Equal(t, int64(0), pos.RemainingSize)
}

func TestRunnerForceCloseScenario(t *testing.T) {
	cal, mem, params := testBuildCommon(t)
	date := 20240102
	stock := "A000001"

	entry := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	closeWin := time.Date(2024, 1, 2, 15, 29, 0, 0, time.UTC)
	// Flat price line the whole day: neither stop-loss nor take-profit
	// ever fires, so only the force-close rule should flatten the
	// position, at force_close_time (12:00).
	fillMinutes(mem, stock, date, entry, closeWin, 10000)

	cfg := config.Config{
		Strategy: config.Strategy{
			StopLossPct:      1.0,
			TakeProfitPct:    2.0,
			EntryTime:        "09:30:00",
			ForceCloseTime:   "12:00:00",
			FixedEntryAmount: 1_000_000,
		},
		Backtest: config.Backtest{SkipMissingPriceAsUnavailable: true},
	}

	r := buildRunner(t, mem, cal, params, date, stock, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Run(ctx, date))

	require.Equal(t, trader.Closed, r.MachineState())
}
