// Package prediction implements the Prediction Stage (§4.7): the six-step
// pipeline run once per trading day at DataPrep — candidate selection by
// turnover, exclusion filtering, per-candidate feature vectors, scoring,
// ranking, and the admission rule — producing a single Pick or None.
//
// Grounded on
// original_source/solomon/src/bin/predict_top_stocks.rs's
// get_top_volume_stocks -> calculate_features_for_stock ->
// session.run -> sort/admit pipeline, adapted from its SQLite-table-per-
// stock shape to this package's marketdata.Accessor/features.Compute
// pipeline, in the style of
// SynapseStrike/decision/engine.go's candidate-filtering steps.
package prediction

import (
	"context"
	"sort"

	"daytrader/calendar"
	"daytrader/errs"
	"daytrader/features"
	"daytrader/logger"
	"daytrader/marketdata"
	"daytrader/metrics"
	"daytrader/model"
	"daytrader/sectormap"
)

// Pick is the Prediction Stage's sole output for a trading day: either a
// single chosen stock and its score, or None (§4.7 step 7).
type Pick struct {
	Stock string
	Score float64
}

// Config parameterizes the pipeline (§6 strategy config).
type Config struct {
	TopN                 int      // typically 30
	ExclusionList        []string // curated, stock codes (either code form)
	ClassificationThresh float64  // admission threshold for classification models
}

// TurnoverRanker supplies the top-N turnover universe for a date — kept as
// an interface so the Prediction Stage doesn't need to know how the
// Materializer or Runner actually enumerates "every stock traded that
// day" (a full scan is the caller's concern, not this package's).
type TurnoverRanker interface {
	TopByTurnover(date int, n int) ([]string, error)
}

// Stage holds everything the pipeline needs across runs: it has no
// per-day mutable state of its own (§3 "the Feature Engine holds no state
// beyond short-lived caches keyed by (stock, date)" applies equally here).
type Stage struct {
	Cfg     Config
	Cal     *calendar.Calendar
	Data    marketdata.Accessor
	Ranker  TurnoverRanker
	Model   *model.Model
	Sectors *sectormap.Map
}

// Run executes all six steps of §4.7 for date and returns a Pick or nil
// (the "None" outcome). The caller (the Runner) is responsible for
// invoking Run only at the DataPrep signal and for treating a context
// deadline exceeded as "day marked no-trade" per §4.7's closing paragraph.
func (s *Stage) Run(ctx context.Context, date int) (*Pick, error) {
	universe, err := s.Ranker.TopByTurnover(date, s.Cfg.TopN)
	if err != nil {
		return nil, errs.New(errs.NoData, "prediction.Run", err)
	}

	excluded := make(map[string]bool, len(s.Cfg.ExclusionList))
	for _, code := range s.Cfg.ExclusionList {
		excluded[marketdata.NormalizeStockCode(code)] = true
	}

	candidates := make([]string, 0, len(universe))
	for _, stock := range universe {
		norm := marketdata.NormalizeStockCode(stock)
		if !excluded[norm] {
			candidates = append(candidates, norm)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	dayCache := s.buildDayCache(date, candidates)

	type scored struct {
		stock string
		score float64
	}
	results := make([]scored, 0, len(candidates))

	for _, stock := range candidates {
		select {
		case <-ctx.Done():
			logger.Warnf("prediction: %s, aborting remaining candidates: %v", ctx.Err(), date)
			return nil, nil
		default:
		}

		vec := s.featureVector(stock, date, dayCache)
		score, err := s.Model.Score(vec)
		if err != nil {
			logger.Warnf("prediction: scoring %s on %d failed, treating as lowest rank: %v", stock, date, err)
			score = negativeInfinityForKind(s.Model.Kind())
		}
		results = append(results, scored{stock: stock, score: score})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })
	top := results[0]

	switch s.Model.Kind() {
	case model.Classification:
		if top.score < s.Cfg.ClassificationThresh {
			return nil, nil
		}
	default: // Regression
		if top.score < 0 {
			return nil, nil
		}
	}
	return &Pick{Stock: top.stock, Score: top.score}, nil
}

// featureVector computes one candidate's feature vector, defaulting to an
// all-zero vector and logging a warning on failure rather than aborting
// the day (§4.7 step 3).
func (s *Stage) featureVector(stock string, date int, dayCache *sectormap.DayCache) []float64 {
	fctx := &features.Context{Stock: stock, Date: date, Cal: s.Cal, Data: s.Data, Sectors: dayCache}
	vec := safeCompute(fctx)
	if vec == nil {
		metrics.FeatureEngineWarningsTotal.Inc()
		logger.Warnf("prediction: feature vector for %s on %d failed, defaulting to zeros", stock, date)
		return make([]float64, features.Len())
	}
	return vec
}

// safeCompute isolates a single candidate's feature computation so a
// programming error in one indicator (a slice index panic, say) can never
// take down the whole day's prediction run.
func safeCompute(fctx *features.Context) (vec []float64) {
	defer func() {
		if r := recover(); r != nil {
			vec = nil
		}
	}()
	return features.Compute(fctx)
}

// buildDayCache computes each candidate's morning return from the
// accessor and derives the cross-sectional Day Sector Cache (§3, §4.4
// "Cross-sectional"). A candidate whose morning data can't be read is
// simply left out of the cache's universe rather than failing the day.
func (s *Stage) buildDayCache(date int, candidates []string) *sectormap.DayCache {
	returns := make(map[string]float64, len(candidates))
	universe := make([]string, 0, len(candidates))
	for _, stock := range candidates {
		w, err := s.Data.GetMorningData(stock, date)
		if err != nil || len(w.Bars) == 0 {
			continue
		}
		open := float64(w.Bars[0].Open)
		if open == 0 {
			continue
		}
		returns[stock] = (float64(w.LastClose()) - open) / open
		universe = append(universe, stock)
	}
	sectorOf := func(stock string) string {
		if s.Sectors == nil {
			return sectormap.Other
		}
		return s.Sectors.SectorOf(stock)
	}
	return sectormap.Build(date, universe, returns, sectorOf)
}

func negativeInfinityForKind(k model.Kind) float64 {
	if k == model.Classification {
		return -1.0 // below any sane threshold in [0,1]
	}
	return -1.0 // below the regression admission rule's 0.0 cutoff
}
