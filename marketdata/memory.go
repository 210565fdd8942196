package marketdata

import (
	"fmt"
	"sort"

	"daytrader/calendar"
	"daytrader/errs"
)

// Memory is an in-process Accessor backed by plain maps. It exists for
// tests — in particular the no-look-ahead fuzz harness (§8 property 1),
// which needs to construct a store, prune "future" rows, and recompute
// features against the pruned copy.
type Memory struct {
	Morning map[string]map[int]MorningWindow // stock -> date -> window
	Daily   map[string]map[int]DayBar        // stock -> date -> bar
	Minute  map[string]map[string]float64    // stock -> YYYYMMDDHHMM -> close
	Bounds  SessionBounds
}

// NewMemory returns an empty Memory accessor ready for population.
func NewMemory() *Memory {
	return &Memory{
		Morning: make(map[string]map[int]MorningWindow),
		Daily:   make(map[string]map[int]DayBar),
		Minute:  make(map[string]map[string]float64),
	}
}

func (m *Memory) PutMorning(stock string, date int, w MorningWindow) {
	stock = NormalizeStockCode(stock)
	if m.Morning[stock] == nil {
		m.Morning[stock] = make(map[int]MorningWindow)
	}
	m.Morning[stock][date] = w
}

func (m *Memory) PutDaily(stock string, date int, b DayBar) {
	stock = NormalizeStockCode(stock)
	if m.Daily[stock] == nil {
		m.Daily[stock] = make(map[int]DayBar)
	}
	m.Daily[stock][date] = b
}

func (m *Memory) PutMinute(stock string, key string, close float64) {
	stock = NormalizeStockCode(stock)
	if m.Minute[stock] == nil {
		m.Minute[stock] = make(map[string]float64)
	}
	m.Minute[stock][key] = close
}

func (m *Memory) GetMorningData(stock string, date int) (MorningWindow, error) {
	stock = NormalizeStockCode(stock)
	w, ok := m.Morning[stock][date]
	if !ok || len(w.Bars) == 0 {
		return MorningWindow{}, errs.New(errs.NoData, "marketdata.Memory.GetMorningData",
			fmt.Errorf("no morning bars for %s on %d", stock, date))
	}
	return w, nil
}

func (m *Memory) GetDailyData(stock string, date int) (DayBar, error) {
	stock = NormalizeStockCode(stock)
	b, ok := m.Daily[stock][date]
	if !ok {
		return DayBar{}, errs.New(errs.NoData, "marketdata.Memory.GetDailyData",
			fmt.Errorf("no daily bar for %s on %d", stock, date))
	}
	return b, nil
}

func (m *Memory) GetPrevDailyData(stock string, date int, cal *calendar.Calendar) (DayBar, bool, error) {
	prev, err := cal.PreviousTradingDay(date)
	if err != nil {
		return DayBar{}, false, nil
	}
	b, err := m.GetDailyData(stock, prev)
	if kind, ok := errs.KindOf(err); ok && kind == errs.NoData {
		return DayBar{}, false, nil
	}
	if err != nil {
		return DayBar{}, false, err
	}
	return b, true, nil
}

func (m *Memory) GetCurrentPriceAtTime(stock string, key string) (float64, error) {
	stock = NormalizeStockCode(stock)
	minutes := m.Minute[stock]
	if v, ok := minutes[key]; ok {
		return v, nil
	}
	if m.Bounds != nil {
		date, err := dateFromKey(key)
		if err == nil {
			start, end := m.Bounds.Bounds(date)
			if start != "" && key < start {
				if v, ok := minutes[start]; ok {
					return v, nil
				}
			} else if end != "" && key > end {
				if v, ok := minutes[end]; ok {
					return v, nil
				}
			}
		}
	}
	return 0, errs.New(errs.NoData, "marketdata.Memory.GetCurrentPriceAtTime",
		fmt.Errorf("no 1-minute price for %s at %s", stock, key))
}

// PruneOnOrAfter returns a deep copy of m with every daily row on or after
// date, and every minute key on or after cutoffKey, removed. Used by the
// no-look-ahead fuzz harness to assert that a feature computed against the
// pruned store matches the value computed against the full store.
func (m *Memory) PruneOnOrAfter(date int, cutoffKey string) *Memory {
	out := NewMemory()
	out.Bounds = m.Bounds
	for stock, byDate := range m.Daily {
		for d, b := range byDate {
			if d < date {
				out.PutDaily(stock, d, b)
			}
		}
	}
	for stock, byDate := range m.Morning {
		for d, w := range byDate {
			out.PutMorning(stock, d, w)
		}
	}
	for stock, byKey := range m.Minute {
		keys := make([]string, 0, len(byKey))
		for k := range byKey {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if k < cutoffKey {
				out.PutMinute(stock, k, byKey[k])
			}
		}
	}
	return out
}
