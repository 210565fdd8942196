// Package trader implements the Trading State Machine (§4.8):
// WaitingForEntry -> Holding -> Closed, owning at most one active position
// per trading day and issuing orders through a broker.Broker.
//
// Grounded on SynapseStrike/trader/auto_trader.go's VWAP position-check
// loop (checkVWAPPositions): its priority order — end-of-day exit first,
// then take-profit/sell-trigger, then hold — and its PnL-percentage
// formula are carried here unchanged, restructured from a per-symbol
// multi-position scan into the single-position rule set §4.8 specifies.
package trader

import (
	"context"

	"daytrader/broker"
	"daytrader/errs"
	"daytrader/logger"
	"daytrader/prediction"
)

// State names one node of the Trading State Machine (§4.8).
type State int

const (
	WaitingForEntry State = iota
	Holding
	Closed
)

func (s State) String() string {
	switch s {
	case WaitingForEntry:
		return "WaitingForEntry"
	case Holding:
		return "Holding"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Config parameterizes the entry/exit rules (§6 Strategy parameters).
type Config struct {
	StopLossPct      float64
	TakeProfitPct    float64
	EntryAssetRatio  float64 // 0-100
	FixedEntryAmount float64 // KRW; takes precedence over ratio when > 0 and affordable
	SkipIfNoPrice    bool    // §4.8 entry rule 2: skip the tick instead of erroring when price is unavailable
}

// Position records the fields the Holding state needs on every tick (§4.8
// entry rule 4 "record entry_price, position_size, remaining_size").
type Position struct {
	Stock         string
	EntryPrice    float64
	PositionSize  int64
	RemainingSize int64
	EntryOrderID  string
}

// Machine is the single-threaded state owner for one trading day. A fresh
// Machine (or Reset) is required per day (§4.8 "End-of-day reset").
type Machine struct {
	Cfg    Config
	Broker broker.Broker

	state    State
	position Position
}

// NewMachine constructs a Machine starting in WaitingForEntry.
func NewMachine(cfg Config, b broker.Broker) *Machine {
	return &Machine{Cfg: cfg, Broker: b, state: WaitingForEntry}
}

// State reports the machine's current node.
func (m *Machine) State() State { return m.state }

// Position reports the currently held position; zero value if not Holding.
func (m *Machine) Position() Position { return m.position }

// TryEntry implements §4.8's entry rule. It is a no-op (stays in
// WaitingForEntry) unless pick is non-nil and the machine is currently
// WaitingForEntry — calling it more than once on the same day, or after a
// pick already converted to Holding, is always safe.
func (m *Machine) TryEntry(ctx context.Context, pick *prediction.Pick, priceKey string) error {
	if m.state != WaitingForEntry || pick == nil {
		return nil
	}

	price, err := m.Broker.GetCurrentPriceAtTime(ctx, pick.Stock, priceKey)
	if err != nil {
		if m.Cfg.SkipIfNoPrice {
			logger.Warnf("trader: no price for %s at %s, skipping entry tick: %v", pick.Stock, priceKey, err)
			return nil
		}
		return err
	}
	if price <= 0 {
		return nil
	}

	qty := m.entryQuantity(ctx, price)
	if qty <= 0 {
		logger.Warnf("trader: computed zero entry quantity for %s at price %.2f, abandoning entry", pick.Stock, price)
		return nil
	}

	orderID, err := m.Broker.ExecuteOrder(ctx, broker.Order{
		Stock: pick.Stock, Side: broker.Buy, Reason: broker.ReasonEntry,
		Quantity: qty, Timestamp: priceKey,
	})
	if err != nil {
		return err // entry path: abort the day, no transition to Holding
	}

	m.position = Position{Stock: pick.Stock, EntryPrice: price, PositionSize: qty, RemainingSize: qty, EntryOrderID: orderID}
	m.state = Holding
	logger.Infof("trader: entered %s qty=%d @ %.2f", pick.Stock, qty, price)
	return nil
}

// entryQuantity truncates (fixed amount, else ratio-of-cash) / price to an
// integer share count (§4.8 entry rule 3).
func (m *Machine) entryQuantity(ctx context.Context, price float64) int64 {
	bal, err := m.Broker.GetBalance(ctx)
	if err != nil {
		logger.Warnf("trader: balance inquiry failed while sizing entry: %v", err)
		return 0
	}
	var krw float64
	if m.Cfg.FixedEntryAmount > 0 && m.Cfg.FixedEntryAmount <= bal.Cash {
		krw = m.Cfg.FixedEntryAmount
	} else {
		krw = bal.Cash * m.Cfg.EntryAssetRatio / 100.0
	}
	return int64(krw / price)
}

// OnUpdate implements §4.8's holding and force-close rules for a single
// Update tick. forceClose is true once the clock has reached force_close_time
// (or any later tick); it takes priority over stop-loss/take-profit,
// matching the VWAP checker's "market close first" priority order.
func (m *Machine) OnUpdate(ctx context.Context, priceKey string, forceClose bool) error {
	if m.state != Holding {
		if forceClose && m.state == WaitingForEntry {
			// Nothing to force-close; no position was ever opened today.
			return nil
		}
		return nil
	}

	if forceClose {
		return m.exit(ctx, priceKey, broker.ReasonForceClose)
	}

	price, err := m.Broker.GetCurrentPriceAtTime(ctx, m.position.Stock, priceKey)
	if err != nil {
		return m.retryableExitErr(err)
	}
	pnlPct := (price - m.position.EntryPrice) / m.position.EntryPrice * 100

	switch {
	case pnlPct <= -m.Cfg.StopLossPct:
		return m.exit(ctx, priceKey, broker.ReasonStopLoss)
	case pnlPct >= m.Cfg.TakeProfitPct:
		return m.exit(ctx, priceKey, broker.ReasonTakeProfit)
	default:
		return nil
	}
}

func (m *Machine) exit(ctx context.Context, priceKey string, reason broker.Reason) error {
	_, err := m.Broker.ExecuteOrder(ctx, broker.Order{
		Stock: m.position.Stock, Side: broker.Sell, Reason: reason,
		Quantity: m.position.RemainingSize, Timestamp: priceKey,
	})
	if err != nil {
		return m.retryableExitErr(err)
	}
	logger.Infof("trader: exited %s qty=%d reason=%s", m.position.Stock, m.position.RemainingSize, reason)
	m.position.RemainingSize = 0
	m.state = Closed
	return nil
}

// retryableExitErr classifies an exit-path failure per §4.8's failure
// semantics: "an error during exit retries on the next tick" — so the
// machine stays in Holding rather than transitioning, and the error is
// only surfaced (logged by the Runner), never fatal to the day.
func (m *Machine) retryableExitErr(err error) error {
	logger.Warnf("trader: exit attempt failed, will retry next tick: %v", err)
	return errs.New(errs.OrderReject, "trader.exit", err)
}

// Reset clears per-day fields and returns the machine to WaitingForEntry
// (§4.8 "End-of-day reset... at Overnight").
func (m *Machine) Reset() {
	m.state = WaitingForEntry
	m.position = Position{}
}
