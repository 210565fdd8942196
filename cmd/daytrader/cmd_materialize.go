package main

import (
	"bufio"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"daytrader/calendar"
	"daytrader/config"
	"daytrader/features"
	"daytrader/marketdata"
	"daytrader/materializer"
	"daytrader/store"
)

var (
	answerFile  string
	batchSize   int
	concurrency int
)

var materializeCmd = &cobra.Command{
	Use:   "materialize",
	Short: "Batch-compute feature vectors for a labeled (stock, date) answer set and write them to the analytics store",
	Long: `materialize reads an "answer" CSV of stock_code,date,label rows, computes
every row's feature vector against the sqlite bar database, and appends the
results to the Postgres analytics store in batches (storage.analytics_postgres_dsn).`,
	RunE: runMaterialize,
}

func init() {
	materializeCmd.Flags().StringVar(&answerFile, "answers", "", "path to the answer CSV: stock_code,date,label")
	materializeCmd.Flags().IntVar(&batchSize, "batch-size", 500, "rows per analytics-store transaction")
	materializeCmd.Flags().IntVar(&concurrency, "concurrency", 4, "max simultaneous per-date workers")
	materializeCmd.MarkFlagRequired("answers")
	rootCmd.AddCommand(materializeCmd)
}

func runMaterialize(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath, envPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	targets, err := loadAnswerFile(answerFile)
	if err != nil {
		return fmt.Errorf("loading answer file: %w", err)
	}

	sqlitePath := cfg.Storage.SQLitePath
	if sqlitePath == "" {
		sqlitePath = "daytrader.db"
	}

	dates, err := func() ([]int, error) {
		db, err := sql.Open("sqlite", sqlitePath)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return loadCalendarDates(db)
	}()
	if err != nil {
		return fmt.Errorf("loading trading calendar: %w", err)
	}
	cal, err := calendar.New(dates)
	if err != nil {
		return fmt.Errorf("building trading calendar: %w", err)
	}

	sectors, err := loadSectorMap(cfg.Storage.SectorMapFile)
	if err != nil {
		return fmt.Errorf("loading sector map: %w", err)
	}

	analytics, err := store.NewAnalyticsStore(cfg.Storage.AnalyticsPostgresDSN, "feature_sets", features.Names)
	if err != nil {
		return fmt.Errorf("opening analytics store: %w", err)
	}

	params := clockParams(cfg)

	m := &materializer.Materializer{
		Cfg:     materializer.Config{BatchSize: batchSize, Concurrency: concurrency},
		Cal:     cal,
		Sectors: sectors,
		Store:   analytics,
		Conns: func() (marketdata.Accessor, error) {
			db, err := sql.Open("sqlite", sqlitePath)
			if err != nil {
				return nil, err
			}
			return marketdata.NewSQLAccessor(db, params), nil
		},
	}

	if err := m.Run(cmd.Context(), targets); err != nil {
		return fmt.Errorf("materializer run: %w", err)
	}
	fmt.Printf("materialized %d rows\n", len(targets))
	return nil
}

func clockParams(cfg *config.Config) sessionBoundsParams {
	return sessionBoundsParams{
		tradingStart:   cfg.Clock.TradingStartTime,
		lastUpdateTime: cfg.Clock.LastUpdateTime,
	}
}

// sessionBoundsParams is a minimal marketdata.SessionBounds implementation
// for offline materialization, where the special-open offset table isn't
// relevant (answer rows name known historical trading days only).
type sessionBoundsParams struct {
	tradingStart   string
	lastUpdateTime string
}

func (p sessionBoundsParams) Bounds(date int) (startKey, endKey string) {
	return fmt.Sprintf("%d%s", date, compactHHMM(p.tradingStart)), fmt.Sprintf("%d%s", date, compactHHMM(p.lastUpdateTime))
}

func compactHHMM(hms string) string {
	return strings.ReplaceAll(hms[:5], ":", "")
}

func loadAnswerFile(path string) ([]materializer.Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = 3
	var out []materializer.Target
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		date, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil {
			return nil, fmt.Errorf("parsing date %q: %w", rec[1], err)
		}
		label, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing label %q: %w", rec[2], err)
		}
		out = append(out, materializer.Target{
			Stock: marketdata.NormalizeStockCode(strings.TrimSpace(rec[0])),
			Date:  date,
			Label: label,
		})
	}
	return out, nil
}
