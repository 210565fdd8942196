package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"daytrader/api"
	"daytrader/broker"
	"daytrader/calendar"
	"daytrader/clock"
	"daytrader/config"
	"daytrader/features"
	"daytrader/logger"
	"daytrader/marketdata"
	"daytrader/metrics"
	"daytrader/model"
	"daytrader/prediction"
	"daytrader/runner"
	"daytrader/sectormap"
	"daytrader/store"
)

var (
	startDate string
	endDate   string
	httpAddr  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading engine in real, paper or backtest mode",
	Long: `run drives the engine's phase clock end to end. The broker adapter
wired up is taken from the config file's "mode" field (real, paper or
backtest); --start/--end only apply to backtest mode and default to the
config file's backtest.start_date/end_date.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&startDate, "start", "", "backtest start date, YYYYMMDD (backtest mode only)")
	runCmd.Flags().StringVar(&endDate, "end", "", "backtest end date, YYYYMMDD (backtest mode only)")
	runCmd.Flags().StringVar(&httpAddr, "http", ":8080", "address for the read-only status/admin HTTP surface, empty to disable")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath, envPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	sqlitePath := cfg.Storage.SQLitePath
	if sqlitePath == "" {
		sqlitePath = "daytrader.db"
	}
	db, err := sql.Open("sqlite", sqlitePath)
	if err != nil {
		return fmt.Errorf("opening sqlite at %s: %w", sqlitePath, err)
	}
	defer db.Close()

	dates, err := loadCalendarDates(db)
	if err != nil {
		return fmt.Errorf("loading trading calendar: %w", err)
	}
	cal, err := calendar.New(dates)
	if err != nil {
		return fmt.Errorf("building trading calendar: %w", err)
	}

	specialDates, err := loadSpecialDates(cfg.Clock.SpecialDatesFile)
	if err != nil {
		return fmt.Errorf("loading special dates: %w", err)
	}
	params := clock.Params{
		DataPrepTime:    cfg.Clock.DataPrepTime,
		TradingStart:    cfg.Clock.TradingStartTime,
		LastUpdateTime:  cfg.Clock.LastUpdateTime,
		MarketCloseTime: cfg.Clock.MarketCloseTime,
		SpecialDates:    specialDates,
		OffsetMinutes:   cfg.Clock.SpecialOffsetMins,
	}

	mode, clockMode, begin, until, err := resolveRunWindow(cfg, cal)
	if err != nil {
		return err
	}

	clk, err := clock.New(cal, params, begin)
	if err != nil {
		return fmt.Errorf("building clock: %w", err)
	}

	accessor := marketdata.NewSQLAccessor(db, params)
	ranker := marketdata.NewSQLTurnoverRanker(db)

	sectors, err := loadSectorMap(cfg.Storage.SectorMapFile)
	if err != nil {
		return fmt.Errorf("loading sector map: %w", err)
	}

	m, err := model.Load(cfg.Model.ArtifactPath, features.Len())
	if err != nil {
		return fmt.Errorf("loading scoring model: %w", err)
	}

	exclusions, err := loadExclusionList(cfg.Strategy.ExclusionListFile)
	if err != nil {
		return fmt.Errorf("loading exclusion list: %w", err)
	}

	stage := &prediction.Stage{
		Cfg: prediction.Config{
			TopN:                 cfg.Strategy.TurnoverTopN,
			ExclusionList:        exclusions,
			ClassificationThresh: cfg.Strategy.AdmissionThresh,
		},
		Cal:     cal,
		Data:    accessor,
		Ranker:  ranker,
		Model:   m,
		Sectors: sectors,
	}

	trades, err := store.NewTradeLog(db)
	if err != nil {
		return fmt.Errorf("opening trade log: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	br, err := buildBroker(ctx, cfg, accessor)
	if err != nil {
		return err
	}

	rn := runner.New(cfg, clk, cal, params, clockMode, stage, br, trades)

	metrics.Init()
	if httpAddr != "" {
		srv := api.NewServer(rn, trades)
		httpSrv := &http.Server{Addr: httpAddr, Handler: srv.Router()}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorf("cmd: status HTTP server stopped: %v", err)
			}
		}()
		defer httpSrv.Close()
		logger.Infof("cmd: status HTTP surface listening on %s", httpAddr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Infof("cmd: shutdown signal received")
		cancel()
	}()

	logger.Infof("cmd: starting engine in %s mode", mode)
	return rn.Run(ctx, until)
}

// resolveRunWindow picks the clock's start date and (for backtest only) its
// inclusive end date, from --start/--end or config.Backtest's defaults, and
// maps config.Mode onto clock.Mode.
func resolveRunWindow(cfg *config.Config, cal *calendar.Calendar) (config.Mode, clock.Mode, int, int, error) {
	switch cfg.Mode {
	case config.ModeReal:
		return cfg.Mode, clock.Live, todayYYYYMMDD(), 0, nil
	case config.ModePaper:
		return cfg.Mode, clock.Paper, todayYYYYMMDD(), 0, nil
	case config.ModeBacktest:
		start := startDate
		if start == "" {
			start = cfg.Backtest.StartDate
		}
		end := endDate
		if end == "" {
			end = cfg.Backtest.EndDate
		}
		if start == "" {
			return "", 0, 0, 0, fmt.Errorf("backtest mode requires a start date (--start or backtest.start_date)")
		}
		startInt, err := strconv.Atoi(start)
		if err != nil {
			return "", 0, 0, 0, fmt.Errorf("invalid --start %q: %w", start, err)
		}
		endInt := cal.Last()
		if end != "" {
			endInt, err = strconv.Atoi(end)
			if err != nil {
				return "", 0, 0, 0, fmt.Errorf("invalid --end %q: %w", end, err)
			}
		}
		return cfg.Mode, clock.Backtest, startInt, endInt, nil
	default:
		return "", 0, 0, 0, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
}

func buildBroker(ctx context.Context, cfg *config.Config, accessor marketdata.Accessor) (broker.Broker, error) {
	switch cfg.Mode {
	case config.ModeBacktest:
		fees := broker.BacktestFees{
			BuyFeeRatePct:       cfg.Backtest.BuyFeeRatePct,
			SellFeeRatePct:      cfg.Backtest.SellFeeRatePct,
			BuySlippageRatePct:  cfg.Backtest.BuySlippageRatePct,
			SellSlippageRatePct: cfg.Backtest.SellSlippageRatePct,
		}
		return broker.NewBacktestBroker(accessor, fees, cfg.Backtest.InitialCash), nil
	case config.ModeReal, config.ModePaper:
		retry := broker.NewRetryPolicy(cfg.Broker.MaxRetries, cfg.Broker.BackoffInitial, cfg.Broker.BackoffMax, cfg.Broker.RateLimitPerSec)
		rc := broker.RealConfig{
			BaseURL:        cfg.Broker.BaseURL,
			DataURL:        cfg.Broker.DataURL,
			WebsocketURL:   cfg.Broker.WebsocketURL,
			RequestTimeout: cfg.Broker.RequestTimeout,
			APIKey:         cfg.APIKey,
			APISecret:      cfg.APISecret,
			TokenPath:      cfg.Broker.TokenStorePath,
		}
		if cfg.Broker.RequireDeviceOTP {
			rc.OTPSecret = cfg.OTPSecret
		}
		if cfg.Mode == config.ModeReal {
			return broker.NewRealBroker(ctx, rc, retry), nil
		}
		return broker.NewPaperBroker(ctx, rc, retry), nil
	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
}

func todayYYYYMMDD() int {
	now := time.Now()
	return now.Year()*10000 + int(now.Month())*100 + now.Day()
}

func loadCalendarDates(db *sql.DB) ([]int, error) {
	rows, err := db.Query(`SELECT DISTINCT ts/10000 FROM bars_day ORDER BY ts/10000 ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var dates []int
	for rows.Next() {
		var d int
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func loadSpecialDates(path string) (map[int]bool, error) {
	out := map[int]bool{}
	if path == "" {
		return out, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		d, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("parsing special date %q: %w", line, err)
		}
		out[d] = true
	}
	return out, scanner.Err()
}

func loadExclusionList(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out, scanner.Err()
}

func loadSectorMap(path string) (*sectormap.Map, error) {
	if path == "" {
		return sectormap.Load(strings.NewReader(""))
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sectormap.Load(strings.NewReader(""))
		}
		return nil, err
	}
	defer f.Close()
	return sectormap.Load(f)
}
