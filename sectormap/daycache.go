package sectormap

import "sort"

// StockEntry is one stock's cross-sectional data point for a single date
// (§3 Day sector cache: "{stock -> (morning_return, sector)}").
type StockEntry struct {
	MorningReturn float64
	Sector        string
	TurnoverRank  int // 1 == highest turnover that date
}

// SectorEntry is the derived per-sector rollup for a single date (§3:
// "{sector -> rising_count_top_15, rising_count_top_30, ranked_stocks_by_return}").
type SectorEntry struct {
	RisingCountTop15 int
	RisingCountTop30 int
	RankedStocks     []string // same sector, ordered by morning_return desc
}

// DayCache is the immutable, per-date cross-sectional snapshot the
// Feature Engine's cross-sectional family reads (§3: "Recomputed per date;
// never mutated after construction").
type DayCache struct {
	Date    int
	Stocks  map[string]StockEntry
	Sectors map[string]SectorEntry
}

// Build derives a DayCache from the top-turnover universe of date: for
// each stock, its morning return (computed by the caller — the Feature
// Engine's own morning-window accessor, not this package, since sectormap
// has no marketdata dependency) and turnover rank. The universe is expected
// already restricted to the day's top-N turnover stocks per §4.4
// "Cross-sectional" / §4.5's candidate list and ordered by turnover,
// highest first: TurnoverRank is the stock's 1-based position in universe.
func Build(date int, universe []string, morningReturn map[string]float64, sectorOf func(string) string) *DayCache {
	cache := &DayCache{
		Date:    date,
		Stocks:  make(map[string]StockEntry, len(universe)),
		Sectors: make(map[string]SectorEntry),
	}

	rankOf := make(map[string]int, len(universe))
	for i, stock := range universe {
		rankOf[stock] = i + 1
	}

	bySector := make(map[string][]string)
	for _, stock := range universe {
		sector := sectorOf(stock)
		cache.Stocks[stock] = StockEntry{
			MorningReturn: morningReturn[stock],
			Sector:        sector,
			TurnoverRank:  rankOf[stock],
		}
		bySector[sector] = append(bySector[sector], stock)
	}

	for sector, stocks := range bySector {
		sorted := append([]string(nil), stocks...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return morningReturn[sorted[i]] > morningReturn[sorted[j]]
		})
		var top15, top30 int
		for _, stock := range sorted {
			rank := rankOf[stock]
			rising := morningReturn[stock] > 0
			if rank <= 15 && rising {
				top15++
			}
			if rank <= 30 && rising {
				top30++
			}
		}
		cache.Sectors[sector] = SectorEntry{
			RisingCountTop15: top15,
			RisingCountTop30: top30,
			RankedStocks:     sorted,
		}
	}
	return cache
}

// SectorRankRatio returns stock's 1-based rank within its own sector's
// RankedStocks list divided by the sector's size, in (0,1]. Returns 0.5 if
// stock or its sector is unknown to the cache.
func (c *DayCache) SectorRankRatio(stock string) float64 {
	entry, ok := c.Stocks[stock]
	if !ok {
		return 0.5
	}
	sector, ok := c.Sectors[entry.Sector]
	if !ok || len(sector.RankedStocks) == 0 {
		return 0.5
	}
	for i, s := range sector.RankedStocks {
		if s == stock {
			return float64(i+1) / float64(len(sector.RankedStocks))
		}
	}
	return 0.5
}

// IsSectorFirst reports whether stock ranks first within its sector.
func (c *DayCache) IsSectorFirst(stock string) bool {
	entry, ok := c.Stocks[stock]
	if !ok {
		return false
	}
	sector, ok := c.Sectors[entry.Sector]
	if !ok || len(sector.RankedStocks) == 0 {
		return false
	}
	return sector.RankedStocks[0] == stock
}
