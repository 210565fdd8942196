package features

// Names is the fixed feature-name order the Prediction Stage and Feature
// Materializer both depend on (§4.4's "order fixed by the feature-name
// list"; §4.5 persists columns in this order). Appending a new family only
// ever adds entries to the end — reordering existing entries would
// silently invalidate every previously materialized row and trained
// model, so don't.
//
// The set spans every family named in §4.4 (intraday shape, momentum,
// moving-average stack, volatility, statistical, previous-day context,
// flow, cross-sectional); growing any family further (e.g. RSI at
// additional periods, more autocorrelation lags) is pure addition to fn
// and Names below and touches nothing else.
var Names = []string{
	// Intraday shape
	"intraday_current_vs_open_ratio",
	"intraday_high_vs_open_ratio",
	"intraday_low_vs_open_ratio",
	"intraday_price_position_in_range",
	"intraday_vwap_position",
	"intraday_long_candle_ratio",
	"intraday_consecutive_positive_count",
	"intraday_engulfing_score",
	"intraday_hammer_score",
	// Momentum
	"momentum_rsi",
	"momentum_rsi_persistence",
	"momentum_macd_like",
	"momentum_direction_change_count",
	// Moving-average stack
	"ma_sma5_slope5",
	"ma_sma20_slope5",
	"ma_sma60_slope5",
	"ma_close_vs_sma20_ratio",
	"ma_sma5_vs_sma20_diff",
	"ma_ema12_vs_ema26_diff",
	"ma_dispersion",
	"ma_tightness_percentile",
	"ma_keltner_position",
	"ma_keltner_width",
	"ma_tema_slope",
	"ma_hma_slope",
	"ma_kama_slope",
	"ma_alignment_score",
	"ma_golden_cross_days_since",
	"ma_dead_cross_days_since",
	// Volatility
	"vol_atr_normalized",
	"vol_realized_20",
	"vol_bollinger_width",
	"vol_bollinger_squeeze_flag",
	"vol_regime",
	"vol_clustering",
	"vol_of_vol",
	// Statistical
	"stat_autocorr_lag1",
	"stat_autocorr_lag2",
	"stat_autocorr_lag5",
	"stat_hurst_approx",
	"stat_long_memory_composite",
	"stat_hill_tail_index",
	"stat_regime_switch_flag",
	"stat_var_5",
	"stat_expected_shortfall_5",
	"stat_entropy_proxy",
	// Previous-day context
	"prevday_range",
	"prevday_gap_vs_prev_close",
	"prevday_gain_and_morning_follow",
	"prevday_range_body_ratio",
	"prevday_range_vs_atr",
	// Flow
	"flow_foreign_delta_shares_over_volume",
	"flow_foreign_5d_cumulative_over_market_cap",
	"flow_inst_net_buy_1d",
	"flow_inst_net_buy_20d",
	"flow_foreign_inst_balance",
	"flow_correlation_20d",
	"flow_percentile_60d",
	"flow_persistence_regime",
	// Cross-sectional
	"xsect_sector_rising_count_top15",
	"xsect_sector_rising_count_top30",
	"xsect_sector_rank_ratio",
	"xsect_is_sector_first",
	"xsect_sector_morning_return_spread",

	// Second-wave extensions, appended (never interleaved) per the
	// ordering contract above.
	// Intraday shape
	"intraday_consecutive_negative_count",
	"intraday_bearish_engulfing_score",
	"intraday_morning_star_score",
	"intraday_shooting_star_score",
	"intraday_doji_score",
	"intraday_range_vs_open_ratio",
	"intraday_volume_vs_avg_ratio",
	"intraday_first_bar_volume_share",
	"intraday_last_bar_return",
	"intraday_upper_wick_ratio",
	"intraday_lower_wick_ratio",
	"intraday_net_body_ratio",
	// Momentum
	"momentum_macd_signal_diff",
	"momentum_stochastic_k",
	"momentum_close_roc",
	"momentum_acceleration",
	"momentum_volume_slope",
	// Moving-average stack
	"ma_close_vs_sma5_ratio",
	"ma_close_vs_sma60_ratio",
	"ma_close_vs_sma120_ratio",
	"ma_close_vs_sma200_ratio",
	"ma_sma20_vs_sma60_diff",
	"ma_sma60_vs_sma120_diff",
	"ma_sma120_vs_sma200_diff",
	"ma_sma120_slope5",
	"ma_ema12_slope",
	"ma_any_cross_days_since",
	"ma_golden_cross_flag",
	"ma_dead_cross_flag",
	"ma_price_above_all_flag",
	// Volatility
	"vol_atr5_normalized",
	"vol_realized_5",
	"vol_range_intensity_20",
	"vol_parkinson_20",
	"vol_squeeze_percentile",
	"vol_updown_ratio",
	// Statistical
	"stat_skewness_60",
	"stat_kurtosis_60",
	"stat_positive_return_ratio_20",
	"stat_max_drawdown_60",
	"stat_longest_run_ratio",
	// Previous-day context
	"prevday_return",
	"prevday_close_position_in_range",
	"prevday_volume_vs_avg20",
	"prevday_two_day_trend",
	"prevday_morning_vs_prev_high",
	"prevday_upper_wick_ratio",
	// Flow
	"flow_foreign_ratio_level",
	"flow_foreign_ratio_slope_20d",
	"flow_foreign_limit_usage",
	"flow_foreign_delta_shares_exact",
	"flow_inst_cum_vs_market_cap",
	"flow_streak_length",
	"flow_foreign_percentile_60d",
	// Cross-sectional
	"xsect_market_breadth",
	"xsect_sector_size_in_universe",
	"xsect_turnover_rank_ratio",
	"xsect_morning_return_rank_ratio",
}

// fn holds the computation for each name in Names, at the same index.
var fn = []func(*Context) float64{
	FeatureCurrentVsOpenRatio,
	FeatureHighVsOpenRatio,
	FeatureLowVsOpenRatio,
	FeaturePricePositionInRange,
	FeatureVWAPPosition,
	FeatureLongCandleRatio,
	FeatureConsecutivePositiveCount,
	FeatureEngulfingScore,
	FeatureHammerScore,

	FeatureRSI,
	FeatureRSIPersistence,
	FeatureMACDLike,
	FeatureDirectionChangeCount,

	FeatureSMA5Slope5,
	FeatureSMA20Slope5,
	FeatureSMA60Slope5,
	FeatureCloseVsSMA20Ratio,
	FeatureSMA5VsSMA20Diff,
	FeatureEMA12VsEMA26Diff,
	FeatureMADispersion,
	FeatureMATightnessPercentile,
	FeatureKeltnerPosition,
	FeatureKeltnerWidth,
	FeatureTEMASlope,
	FeatureHMASlope,
	FeatureKAMASlope,
	FeatureAlignmentScore,
	FeatureGoldenCrossDaysSince,
	FeatureDeadCrossDaysSince,

	FeatureATRNormalized,
	FeatureRealizedVolatility20,
	FeatureBollingerWidth,
	FeatureBollingerSqueezeFlag,
	FeatureVolatilityRegime,
	FeatureVolatilityClustering,
	FeatureVolOfVol,

	FeatureAutocorrLag1,
	FeatureAutocorrLag2,
	FeatureAutocorrLag5,
	FeatureHurstApprox,
	FeatureLongMemoryComposite,
	FeatureHillTailIndex,
	FeatureRegimeSwitchFlag,
	FeatureVaR5,
	FeatureExpectedShortfall5,
	FeatureEntropyProxy,

	FeaturePrevDayRange,
	FeatureGapVsPrevClose,
	FeatureGainAndMorningFollow,
	FeaturePrevRangeBodyRatio,
	FeaturePrevRangeVsATR,

	FeatureForeignDeltaSharesOverVolume,
	FeatureForeign5DCumulativeOverMarketCap,
	FeatureInstNetBuy1D,
	FeatureInstNetBuy20D,
	FeatureForeignInstBalance,
	FeatureFlowCorrelation20D,
	FeatureFlowPercentile60D,
	FeatureFlowPersistenceRegime,

	FeatureSectorRisingCountTop15,
	FeatureSectorRisingCountTop30,
	FeatureSectorRankRatio,
	FeatureIsSectorFirst,
	FeatureSectorMorningReturnSpread,

	FeatureConsecutiveNegativeCount,
	FeatureBearishEngulfingScore,
	FeatureMorningStarScore,
	FeatureShootingStarScore,
	FeatureDojiScore,
	FeatureRangeVsOpenRatio,
	FeatureVolumeVsAvgRatio,
	FeatureFirstBarVolumeShare,
	FeatureLastBarReturn,
	FeatureUpperWickRatio,
	FeatureLowerWickRatio,
	FeatureNetBodyRatio,

	FeatureMACDSignalDiff,
	FeatureStochasticK,
	FeatureCloseROC,
	FeatureMomentumAcceleration,
	FeatureVolumeMomentum,

	FeatureCloseVsSMA5Ratio,
	FeatureCloseVsSMA60Ratio,
	FeatureCloseVsSMA120Ratio,
	FeatureCloseVsSMA200Ratio,
	FeatureSMA20VsSMA60Diff,
	FeatureSMA60VsSMA120Diff,
	FeatureSMA120VsSMA200Diff,
	FeatureSMA120Slope5,
	FeatureEMA12Slope,
	FeatureAnyCrossDaysSince,
	FeatureGoldenCrossFlag,
	FeatureDeadCrossFlag,
	FeaturePriceAboveAllMAs,

	FeatureATR5Normalized,
	FeatureRealizedVolatility5,
	FeatureRangeIntensity20,
	FeatureParkinsonVolatility20,
	FeatureSqueezePercentile,
	FeatureUpDownVolRatio,

	FeatureSkewness60,
	FeatureKurtosis60,
	FeaturePositiveReturnRatio20,
	FeatureMaxDrawdown60,
	FeatureLongestRunRatio,

	FeaturePrevDayReturn,
	FeaturePrevClosePositionInRange,
	FeaturePrevVolumeVsAvg20,
	FeatureTwoDayTrend,
	FeatureMorningVsPrevHigh,
	FeaturePrevUpperWickRatio,

	FeatureForeignRatioLevel,
	FeatureForeignRatioSlope20,
	FeatureForeignLimitUsage,
	FeatureForeignSharesDeltaOverVolume,
	FeatureInstCumVsMarketCap,
	FeatureFlowStreakLength,
	FeatureForeignPercentile60D,

	FeatureMarketBreadth,
	FeatureSectorSizeInUniverse,
	FeatureTurnoverRankRatio,
	FeatureMorningReturnRankRatio,
}

func init() {
	if len(fn) != len(Names) {
		panic("features: fn/Names length mismatch")
	}
}

// Compute evaluates every feature in Names, in order, for ctx. A single
// feature function is expected to never panic or error (graceful
// degradation is baked into each one); Compute itself never fails.
func Compute(ctx *Context) []float64 {
	out := make([]float64, len(fn))
	for i, f := range fn {
		out[i] = f(ctx)
	}
	return out
}

// Len is the width of the feature vector Compute returns, the same
// "input-width startup check" value the Scoring Model validates against
// (§4.6).
func Len() int { return len(Names) }
