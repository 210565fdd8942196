// Package materializer implements the Feature Materializer (§4.5): an
// offline batch job that, given an "answer" table of (stock, date) targets,
// fans out one goroutine per unique date, builds each date's cross-
// sectional cache once, computes every stock's feature vector for that
// date, and appends the results to the analytics store in batches.
//
// Grounded on SynapseStrike/decision/engine.go's parallel per-symbol
// evaluation shape (a worker per unit of work, results collected onto a
// channel), combined with sectormap.SharedCache as the "pre-built,
// read-only cross-sectional cache... shared by reference to workers of the
// same date" §5 calls for.
package materializer

import (
	"context"
	"sync"

	"daytrader/calendar"
	"daytrader/errs"
	"daytrader/features"
	"daytrader/logger"
	"daytrader/marketdata"
	"daytrader/metrics"
	"daytrader/sectormap"
	"daytrader/store"
)

// Target is one (stock, date) row of the answer table driving a run.
type Target struct {
	Stock string
	Date  int
	Label float64
}

// Config parameterizes a run (§5 "recommended 100-1000 rows per
// transaction").
type Config struct {
	BatchSize   int
	Concurrency int // max simultaneous per-date workers; 0 means unbounded
}

// ConnFactory opens a fresh, worker-owned marketdata.Accessor — §5 "each
// worker thread owns its own database connections; there is no shared
// mutable state across workers" means the Materializer never reuses one
// *sql.DB across goroutines.
type ConnFactory func() (marketdata.Accessor, error)

// Materializer drives one run across all dates in a target set.
type Materializer struct {
	Cfg     Config
	Cal     *calendar.Calendar
	Conns   ConnFactory
	Sectors *sectormap.Map
	Shared  *sectormap.SharedCache // may be nil: cache is then computed per date, not shared
	Store   *store.AnalyticsStore
}

// Run groups targets by date and processes each date's group concurrently,
// capped at Cfg.Concurrency simultaneous workers. It returns the first
// error encountered; a single date's failure does not stop the others
// already in flight, but Run itself returns non-nil once any one fails.
func (m *Materializer) Run(ctx context.Context, targets []Target) error {
	byDate := make(map[int][]Target)
	for _, t := range targets {
		byDate[t.Date] = append(byDate[t.Date], t)
	}

	sem := make(chan struct{}, m.concurrencyLimit(len(byDate)))
	var wg sync.WaitGroup
	errCh := make(chan error, len(byDate))

	for date, targets := range byDate {
		date, targets := date, targets
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := m.runDate(ctx, date, targets); err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Materializer) concurrencyLimit(dates int) int {
	if m.Cfg.Concurrency <= 0 {
		return dates
	}
	return m.Cfg.Concurrency
}

// runDate builds one date's cross-sectional cache, computes every target
// stock's feature vector against a fresh, worker-owned accessor, and writes
// the results to the analytics store in Cfg.BatchSize chunks.
func (m *Materializer) runDate(ctx context.Context, date int, targets []Target) error {
	data, err := m.Conns()
	if err != nil {
		return errs.New(errs.Io, "materializer.runDate", err)
	}

	dayCache, err := m.dayCacheFor(date, targets, data)
	if err != nil {
		logger.Warnf("materializer: day cache build failed for %d, proceeding without cross-sectional features: %v", date, err)
		dayCache = nil
	}

	batch := make([]store.FeatureRow, 0, m.Cfg.BatchSize)
	for _, t := range targets {
		select {
		case <-ctx.Done():
			return errs.New(errs.Shutdown, "materializer.runDate", ctx.Err())
		default:
		}

		fctx := &features.Context{Stock: t.Stock, Date: t.Date, Cal: m.Cal, Data: data, Sectors: dayCache}
		vec := safeCompute(fctx)
		if vec == nil {
			metrics.FeatureEngineWarningsTotal.Inc()
			logger.Warnf("materializer: feature computation failed for %s/%d, skipping row", t.Stock, t.Date)
			continue
		}
		batch = append(batch, store.FeatureRow{Date: t.Date, Stock: t.Stock, Vector: vec, Label: t.Label})
		if len(batch) >= m.Cfg.BatchSize {
			if err := m.flush(batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	return m.flush(batch)
}

func (m *Materializer) flush(batch []store.FeatureRow) error {
	if len(batch) == 0 {
		return nil
	}
	if err := m.Store.WriteBatch(batch); err != nil {
		return err
	}
	metrics.MaterializerRowsWritten.WithLabelValues("feature_sets").Add(float64(len(batch)))
	return nil
}

// dayCacheFor fetches the shared cache if one was built upstream, else
// computes it locally from each target's morning return.
func (m *Materializer) dayCacheFor(date int, targets []Target, data marketdata.Accessor) (*sectormap.DayCache, error) {
	if m.Shared != nil {
		if cache, found, err := m.Shared.Get(context.Background(), date); err == nil && found {
			return cache, nil
		}
	}

	returns := make(map[string]float64, len(targets))
	universe := make([]string, 0, len(targets))
	for _, t := range targets {
		w, err := data.GetMorningData(t.Stock, date)
		if err != nil || len(w.Bars) == 0 {
			continue
		}
		open := float64(w.Bars[0].Open)
		if open == 0 {
			continue
		}
		returns[t.Stock] = (float64(w.LastClose()) - open) / open
		universe = append(universe, t.Stock)
	}
	sectorOf := func(stock string) string {
		if m.Sectors == nil {
			return sectormap.Other
		}
		return m.Sectors.SectorOf(stock)
	}
	cache := sectormap.Build(date, universe, returns, sectorOf)
	if m.Shared != nil {
		if err := m.Shared.Put(context.Background(), cache); err != nil {
			logger.Warnf("materializer: failed to publish shared day cache for %d: %v", date, err)
		}
	}
	return cache, nil
}

// safeCompute isolates one target's feature computation the same way
// prediction.safeCompute does, so one bad row can't abort the whole date's
// worker.
func safeCompute(fctx *features.Context) (vec []float64) {
	defer func() {
		if r := recover(); r != nil {
			vec = nil
		}
	}()
	return features.Compute(fctx)
}
