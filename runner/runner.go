// Package runner implements the Runner (§2 "Glues Time Service ->
// Prediction -> State Machine -> Broker; owns process lifecycle"): the
// per-day control loop that drives the Time Service through its phases
// and, on each signal, calls into the Prediction Stage and the Trading
// State Machine at the right moment, applying §4.8's entry/holding/
// force-close rules and §8's end-to-end scenarios.
//
// Grounded on SynapseStrike/trader/auto_trader.go's top-level Start loop
// (a single goroutine driving a ticker and dispatching into
// checkVWAPPositions/openPosition), restructured around this spec's
// explicit phase clock instead of a fixed polling ticker.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"daytrader/broker"
	"daytrader/calendar"
	"daytrader/clock"
	"daytrader/config"
	"daytrader/errs"
	"daytrader/logger"
	"daytrader/metrics"
	"daytrader/prediction"
	"daytrader/store"
	"daytrader/trader"
)

// Runner owns one process's entire lifecycle: the clock, the prediction
// pipeline, the state machine and the broker it drives. §5 "Online trading
// loop: single-threaded cooperative... There is no shared mutable state
// requiring locks in steady state" — the one exception is the read-only
// status snapshot api.Server polls from a different goroutine, guarded by
// mu below.
type Runner struct {
	Cfg     *config.Config
	Clock   *clock.Clock
	Cal     *calendar.Calendar
	Params  clock.Params // same session params the Clock was built with; only SpecialDates/OffsetMinutes are read here
	Mode    clock.Mode
	Stage   *prediction.Stage
	Machine *trader.Machine
	Trades  *store.TradeLog

	mu      sync.RWMutex
	pick    *prediction.Pick
	entered bool

	entryTime time.Time
	forceTime time.Time
}

// New wires a Runner from its already-constructed dependencies. The caller
// (cmd/daytrader) owns opening/closing every *sql.DB and constructing the
// chosen Broker adapter; Runner only orchestrates.
func New(cfg *config.Config, clk *clock.Clock, cal *calendar.Calendar, params clock.Params, mode clock.Mode, stage *prediction.Stage, underlying broker.Broker, trades *store.TradeLog) *Runner {
	r := &Runner{Cfg: cfg, Clock: clk, Cal: cal, Params: params, Mode: mode, Stage: stage, Trades: trades}
	wrapped := &recordingBroker{Broker: underlying, clock: clk, trades: trades}
	r.Machine = trader.NewMachine(trader.Config{
		StopLossPct:      cfg.Strategy.StopLossPct,
		TakeProfitPct:    cfg.Strategy.TakeProfitPct,
		EntryAssetRatio:  cfg.Strategy.EntryAssetRatio,
		FixedEntryAmount: cfg.Strategy.FixedEntryAmount,
		SkipIfNoPrice:    cfg.Backtest.SkipMissingPriceAsUnavailable,
	}, wrapped)
	return r
}

// --- api.StatusProvider ---

func (r *Runner) CurrentPhase() clock.Signal { return r.Clock.Signal() }
func (r *Runner) CurrentDate() int           { return r.Clock.Date() }

func (r *Runner) TodayPick() *prediction.Pick {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pick
}

func (r *Runner) MachineState() trader.State { return r.Machine.State() }

// Run drives the clock until ctx is cancelled (§4.2 "Cancellation: an
// external shutdown signal must cause any blocking wait to abort within
// one scheduling quantum") or, in Backtest mode, until the clock advances
// past untilDate (the inclusive end of a backtest date range). untilDate is
// ignored in Live/Paper modes, which run until shutdown; pass 0 to disable
// the cutoff entirely. The Overnight signal that crosses untilDate ends Run
// without being handled, so the machine keeps its last day's final state.
func (r *Runner) Run(ctx context.Context, untilDate int) error {
	if r.Mode != clock.Backtest {
		if err := r.Clock.HandleMidSessionEntry(time.Now()); err != nil {
			return err
		}
	}
	if err := r.resetDayWindows(r.Clock.Date()); err != nil {
		return err
	}

	// clock.New already advances the clock to its first event (DataPrep)
	// before returning, so that signal must be handled here once, up
	// front — the loop below only ever sees signals produced by
	// WaitUntilNextEvent, which advances past whatever the clock's
	// current signal already is.
	metrics.ClockPhase.Set(float64(r.Clock.Signal()))
	if err := r.handleSignal(ctx, r.Clock.Signal()); err != nil {
		logger.Errorf("runner: handling %s: %v", r.Clock.Signal(), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		sig, err := r.Clock.WaitUntilNextEvent(ctx, r.Mode)
		if err != nil {
			if ctx.Err() != nil {
				return nil // Shutdown (§7): exit cleanly, no in-flight call left behind.
			}
			return err
		}
		metrics.ClockPhase.Set(float64(sig))
		metrics.StateMachineState.Set(float64(r.Machine.State()))

		if r.Mode == clock.Backtest && sig == clock.Overnight && untilDate > 0 && r.Clock.Date() > untilDate {
			return nil
		}

		if err := r.handleSignal(ctx, sig); err != nil {
			logger.Errorf("runner: handling %s: %v", sig, err)
		}
	}
}

func (r *Runner) handleSignal(ctx context.Context, sig clock.Signal) error {
	switch sig {
	case clock.DataPrep:
		return r.runPrediction(ctx)
	case clock.MarketOpen:
		logger.Infof("runner: market open on %d", r.Clock.Date())
		return nil
	case clock.Update:
		return r.onUpdate(ctx, false)
	case clock.MarketClose:
		// Any position still open by MarketClose must be flattened
		// unconditionally, regardless of whether entry/holding ran at all
		// (§4.8 "Force-close is idempotent and must succeed even if the
		// ordinary entry/holding paths were skipped").
		return r.onUpdate(ctx, true)
	case clock.Overnight:
		r.endOfDay()
		return r.resetDayWindows(r.Clock.Date())
	}
	return nil
}

// runPrediction executes the Prediction Stage's six-step pipeline and
// records the outcome (§4.7). A failure makes the day a no-trade day
// rather than aborting the Runner.
func (r *Runner) runPrediction(ctx context.Context) error {
	date := r.Clock.Date()
	pick, err := r.Stage.Run(ctx, date)
	if err != nil {
		logger.Warnf("runner: prediction failed on %d, no-trade day: %v", date, err)
		metrics.RecordNoPick()
		r.setPick(nil)
		return errs.New(errs.PredictionFailed, "runner.runPrediction", err)
	}
	r.setPick(pick)
	if pick == nil {
		metrics.RecordNoPick()
		logger.Infof("runner: no-trade day on %d", date)
	} else {
		metrics.RecordPick()
		logger.Infof("runner: pick %s score=%.4f on %d", pick.Stock, pick.Score, date)
	}
	return nil
}

// onUpdate applies §4.8's entry, holding and force-close rules for one
// clock tick. forceCloseSignal is true for the MarketClose signal itself;
// an Update tick at or after force_close_time sets the same effective
// forceClose condition.
func (r *Runner) onUpdate(ctx context.Context, forceCloseSignal bool) error {
	key := r.Clock.FormatKey()
	now := r.Clock.Now()

	if bt, ok := r.Machine.Broker.(backtestKeySetter); ok {
		bt.SetCurrentKey(key)
	}

	forceClose := forceCloseSignal || !now.Before(r.forceTime)

	if !r.entered && !forceClose && !now.Before(r.entryTime) {
		pick := r.TodayPick()
		if err := r.Machine.TryEntry(ctx, pick, key); err != nil {
			logger.Warnf("runner: entry attempt failed, day aborts with no position: %v", err)
		}
		// §4.8 entry rule fires once at entry_time: whether it produced a
		// Holding position, was abandoned for zero quantity, or there was
		// no Pick at all, we never retry it later in the same day.
		r.entered = true
	}

	wasHolding := r.Machine.State() == trader.Holding
	err := r.Machine.OnUpdate(ctx, key, forceClose)
	if wasHolding && r.Machine.State() == trader.Closed {
		r.recordDayPnL(ctx, key)
	}
	return err
}

// recordDayPnL sets the realized-P&L gauge once the day's position closes.
// The exit fill price isn't retained by the Machine, so it is re-read at
// the closing tick's key; a read failure just leaves the gauge unset.
func (r *Runner) recordDayPnL(ctx context.Context, key string) {
	pos := r.Machine.Position()
	if pos.EntryPrice <= 0 {
		return
	}
	price, err := r.Machine.Broker.GetCurrentPriceAtTime(ctx, pos.Stock, key)
	if err != nil {
		return
	}
	metrics.DayPnLPercent.Set((price - pos.EntryPrice) / pos.EntryPrice * 100)
}

// endOfDay clears per-day state (§4.8 "End-of-day reset... at Overnight").
func (r *Runner) endOfDay() {
	r.Machine.Reset()
	r.setPick(nil)
	r.entered = false
}

// resetDayWindows recomputes the entry_time/force_close_time instants for
// the new current date, applying the special-open shift to force_close_time
// only when the operator has opted in via Cfg.Clock.ShiftForceClose (§9
// Open Question, resolved as a config switch).
func (r *Runner) resetDayWindows(date int) error {
	entry, err := parseDateTime(date, r.Cfg.Strategy.EntryTime)
	if err != nil {
		return errs.New(errs.Config, "runner.resetDayWindows", err)
	}
	force, err := parseDateTime(date, r.Cfg.Strategy.ForceCloseTime)
	if err != nil {
		return errs.New(errs.Config, "runner.resetDayWindows", err)
	}
	if r.Cfg.Clock.ShiftForceClose && r.Params.SpecialDates[date] {
		force = force.Add(time.Duration(r.Params.OffsetMinutes) * time.Minute)
	}
	r.entryTime = entry
	r.forceTime = force
	return nil
}

func (r *Runner) setPick(p *prediction.Pick) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pick = p
}

// backtestKeySetter is satisfied by *broker.BacktestBroker; Real/Paper
// adapters read live/simulated prices directly off their own feed and need
// no such hook.
type backtestKeySetter interface {
	SetCurrentKey(key string)
}

func parseDateTime(yyyymmdd int, hms string) (time.Time, error) {
	s := fmt.Sprintf("%d %s", yyyymmdd, hms)
	t, err := time.ParseInLocation("20060102 15:04:05", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %q: %w", s, err)
	}
	return t, nil
}
