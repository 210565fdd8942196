// Package config loads the session, strategy and backtest parameters (§6 of
// the spec) plus broker credentials. It follows the teacher's pattern of a
// typed struct hydrated from .env (github.com/joho/godotenv) for secrets and
// a YAML file for the structured sections, and fails fast on anything
// missing or malformed (the "Config" error kind in §7 is never retried).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"daytrader/errs"
)

// Mode selects which Broker Adapter the Runner wires up (§6 CLI).
type Mode string

const (
	ModeReal     Mode = "real"
	ModePaper    Mode = "paper"
	ModeBacktest Mode = "backtest"
)

// ClockDay is the HH:MM:SS session parameter block (§6).
type ClockDay struct {
	DataPrepTime      string `yaml:"data_prep_time"`
	TradingStartTime  string `yaml:"trading_start_time"`
	TradingEndTime    string `yaml:"trading_end_time"`
	LastUpdateTime    string `yaml:"last_update_time"`
	MarketCloseTime   string `yaml:"market_close_time"`
	SpecialDatesFile  string `yaml:"special_dates_file"`
	SpecialOffsetMins int    `yaml:"special_start_time_offset_minutes"`
	// ShiftForceClose governs the Open Question in spec.md §9: whether
	// force_close_time is also shifted by the special-open offset. Default
	// false (force_close_time is NOT shifted).
	ShiftForceClose bool `yaml:"shift_force_close_on_special_open"`
}

// Strategy holds the per-day trading parameters (§6).
type Strategy struct {
	StopLossPct       float64 `yaml:"stop_loss_pct"`
	TakeProfitPct     float64 `yaml:"take_profit_pct"`
	EntryTime         string  `yaml:"entry_time"`
	ForceCloseTime    string  `yaml:"force_close_time"`
	EntryAssetRatio   float64 `yaml:"entry_asset_ratio"` // 0-100%
	FixedEntryAmount  float64 `yaml:"fixed_entry_amount"`
	TurnoverTopN      int     `yaml:"turnover_top_n"`
	AdmissionThresh   float64 `yaml:"classification_admission_threshold"`
	ExclusionListFile string  `yaml:"exclusion_list_file"`
}

// Backtest holds fee/slippage parameters for the DB-Backtest broker (§6).
type Backtest struct {
	BuyFeeRatePct           float64 `yaml:"buy_fee_rate"`
	SellFeeRatePct          float64 `yaml:"sell_fee_rate"`
	BuySlippageRatePct      float64 `yaml:"buy_slippage_rate"`
	SellSlippageRatePct     float64 `yaml:"sell_slippage_rate"`
	SkipMissingPriceAsUnavailable bool `yaml:"skip_missing_price_as_unavailable"`
	StartDate               string `yaml:"start_date"`
	EndDate                 string `yaml:"end_date"`
	InitialCash             float64 `yaml:"initial_cash"`
}

// Storage points at the analytics store (Postgres) and the local sqlite file
// holding the bar tables and the trade log. The token store is a separate
// JSON file (Broker.TokenStorePath).
type Storage struct {
	AnalyticsPostgresDSN string `yaml:"analytics_postgres_dsn"`
	SQLitePath           string `yaml:"sqlite_path"`
	RedisAddr            string `yaml:"redis_addr"`
	SectorMapFile        string `yaml:"sector_map_file"`
}

// Model points at the Scoring Model artifact the Prediction Stage loads at
// startup (§4.6).
type Model struct {
	ArtifactPath string `yaml:"artifact_path"`
}

// Broker holds the REST/WS endpoints and feature toggles for the Real
// adapter. Credentials themselves come from the environment (.env), never
// from the YAML file, so they never land in a committed config.
type Broker struct {
	BaseURL          string        `yaml:"base_url"`
	DataURL          string        `yaml:"data_url"`
	WebsocketURL     string        `yaml:"websocket_url"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	MaxRetries       int           `yaml:"max_retries"`
	BackoffInitial   time.Duration `yaml:"backoff_initial"`
	BackoffMax       time.Duration `yaml:"backoff_max"`
	RateLimitPerSec  float64       `yaml:"rate_limit_per_sec"`
	TokenStorePath   string        `yaml:"token_store_path"`
	RequireDeviceOTP bool          `yaml:"require_device_otp"`
}

// Config is the root configuration object.
type Config struct {
	Mode     Mode     `yaml:"mode"`
	Clock    ClockDay `yaml:"clock"`
	Strategy Strategy `yaml:"strategy"`
	Backtest Backtest `yaml:"backtest"`
	Storage  Storage  `yaml:"storage"`
	Broker   Broker   `yaml:"broker"`
	Model    Model    `yaml:"model"`

	// Populated from the environment, not the YAML file.
	APIKey       string
	APISecret    string
	OTPSecret    string
}

// Load reads envPath (if present, ignored if missing) via godotenv, then
// unmarshals yamlPath into a Config, applying defaults for any HH:MM:SS
// field left blank. Returns a Config error kind on any failure.
func Load(yamlPath, envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return nil, errs.New(errs.Config, "config.Load", fmt.Errorf("loading env file %s: %w", envPath, err))
		}
	}

	raw, err := os.ReadFile(yamlPath)
	if err != nil {
		return nil, errs.New(errs.Config, "config.Load", fmt.Errorf("reading %s: %w", yamlPath, err))
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errs.New(errs.Config, "config.Load", fmt.Errorf("parsing %s: %w", yamlPath, err))
	}

	cfg.APIKey = os.Getenv("BROKER_API_KEY")
	cfg.APISecret = os.Getenv("BROKER_API_SECRET")
	cfg.OTPSecret = os.Getenv("BROKER_OTP_SECRET")

	if err := cfg.Validate(); err != nil {
		return nil, errs.New(errs.Config, "config.Load", err)
	}
	return cfg, nil
}

// Default returns a Config pre-populated with the spec's §6 default times.
func Default() *Config {
	return &Config{
		Mode: ModeBacktest,
		Clock: ClockDay{
			DataPrepTime:     "08:30:00",
			TradingStartTime: "09:00:00",
			TradingEndTime:   "15:20:00",
			LastUpdateTime:   "15:29:00",
			MarketCloseTime:  "15:30:00",
		},
		Strategy: Strategy{
			StopLossPct:     1.0,
			TakeProfitPct:   2.0,
			EntryTime:       "09:30:00",
			ForceCloseTime:  "15:20:00",
			EntryAssetRatio: 100,
			TurnoverTopN:    30,
			AdmissionThresh: 0.5,
		},
		Backtest: Backtest{
			BuyFeeRatePct:                 0.015,
			SellFeeRatePct:                0.015,
			BuySlippageRatePct:            0.0,
			SellSlippageRatePct:           0.0,
			SkipMissingPriceAsUnavailable: true,
			InitialCash:                   10_000_000,
		},
		Broker: Broker{
			RequestTimeout:  2 * time.Second,
			MaxRetries:      5,
			BackoffInitial:  1 * time.Second,
			BackoffMax:      6 * time.Second,
			RateLimitPerSec: 8,
		},
	}
}

// Validate fails fast on configuration that would otherwise surface as a
// runtime panic or a silently-wrong trading decision.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeReal, ModePaper, ModeBacktest:
	default:
		return fmt.Errorf("config: invalid mode %q", c.Mode)
	}
	if c.Strategy.StopLossPct <= 0 || c.Strategy.TakeProfitPct <= 0 {
		return fmt.Errorf("config: stop_loss_pct and take_profit_pct must be positive")
	}
	if c.Strategy.EntryAssetRatio <= 0 && c.Strategy.FixedEntryAmount <= 0 {
		return fmt.Errorf("config: one of entry_asset_ratio or fixed_entry_amount must be positive")
	}
	if c.Mode == ModeReal && (c.APIKey == "" || c.APISecret == "") {
		return fmt.Errorf("config: BROKER_API_KEY/BROKER_API_SECRET required for real mode")
	}
	return nil
}
