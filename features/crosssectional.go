package features

// Cross-sectional features (§4.4 "Cross-sectional"), read from the
// per-date sectormap.DayCache built once by the Prediction Stage /
// Materializer before scoring candidates (§4.5). All return the
// documented neutral value when ctx.Sectors is nil — a missing cache
// degrades exactly like missing history does elsewhere in this package.

// FeatureSectorRisingCountTop15 is the count of same-sector stocks rising
// within the top-15 turnover list, normalized by 15 into [0,1].
func FeatureSectorRisingCountTop15(ctx *Context) float64 {
	if ctx.Sectors == nil {
		return 0.0
	}
	entry, ok := ctx.Sectors.Stocks[ctx.Stock]
	if !ok {
		return 0.0
	}
	sector, ok := ctx.Sectors.Sectors[entry.Sector]
	if !ok {
		return 0.0
	}
	return Clip(float64(sector.RisingCountTop15)/15.0, 0, 1)
}

// FeatureSectorRisingCountTop30 is the same count within the top-30
// turnover list, normalized by 30.
func FeatureSectorRisingCountTop30(ctx *Context) float64 {
	if ctx.Sectors == nil {
		return 0.0
	}
	entry, ok := ctx.Sectors.Stocks[ctx.Stock]
	if !ok {
		return 0.0
	}
	sector, ok := ctx.Sectors.Sectors[entry.Sector]
	if !ok {
		return 0.0
	}
	return Clip(float64(sector.RisingCountTop30)/30.0, 0, 1)
}

// FeatureSectorRankRatio is stock's rank within its sector's
// ranked-by-return list, normalized to (0,1]. Neutral 0.5 without a cache.
func FeatureSectorRankRatio(ctx *Context) float64 {
	if ctx.Sectors == nil {
		return 0.5
	}
	return ctx.Sectors.SectorRankRatio(ctx.Stock)
}

// FeatureIsSectorFirst is 1.0 if stock ranks first (by morning return)
// within its own sector, else 0.0.
func FeatureIsSectorFirst(ctx *Context) float64 {
	if ctx.Sectors == nil {
		return 0.0
	}
	if ctx.Sectors.IsSectorFirst(ctx.Stock) {
		return 1.0
	}
	return 0.0
}

// FeatureMarketBreadth is the fraction of the day's whole turnover
// universe with a positive morning return, in [0,1]. Neutral 0.5 without
// a cache.
func FeatureMarketBreadth(ctx *Context) float64 {
	if ctx.Sectors == nil || len(ctx.Sectors.Stocks) == 0 {
		return 0.5
	}
	var rising int
	for _, e := range ctx.Sectors.Stocks {
		if e.MorningReturn > 0 {
			rising++
		}
	}
	return float64(rising) / float64(len(ctx.Sectors.Stocks))
}

// FeatureSectorSizeInUniverse is the stock's own sector's share of the
// turnover universe, in [0,1] — a crowding gauge.
func FeatureSectorSizeInUniverse(ctx *Context) float64 {
	if ctx.Sectors == nil || len(ctx.Sectors.Stocks) == 0 {
		return 0.0
	}
	entry, ok := ctx.Sectors.Stocks[ctx.Stock]
	if !ok {
		return 0.0
	}
	sector, ok := ctx.Sectors.Sectors[entry.Sector]
	if !ok {
		return 0.0
	}
	return Clip(float64(len(sector.RankedStocks))/float64(len(ctx.Sectors.Stocks)), 0, 1)
}

// FeatureTurnoverRankRatio is the stock's turnover rank within the
// universe, normalized to (0,1] (rank 1 == highest turnover maps lowest).
// Neutral 0.5 without a cache.
func FeatureTurnoverRankRatio(ctx *Context) float64 {
	if ctx.Sectors == nil || len(ctx.Sectors.Stocks) == 0 {
		return 0.5
	}
	entry, ok := ctx.Sectors.Stocks[ctx.Stock]
	if !ok || entry.TurnoverRank == 0 {
		return 0.5
	}
	return Clip(float64(entry.TurnoverRank)/float64(len(ctx.Sectors.Stocks)), 0, 1)
}

// FeatureMorningReturnRankRatio is the stock's morning-return rank across
// the whole universe (not just its sector), normalized to (0,1]. Neutral
// 0.5 without a cache.
func FeatureMorningReturnRankRatio(ctx *Context) float64 {
	if ctx.Sectors == nil || len(ctx.Sectors.Stocks) == 0 {
		return 0.5
	}
	entry, ok := ctx.Sectors.Stocks[ctx.Stock]
	if !ok {
		return 0.5
	}
	var better int
	for _, e := range ctx.Sectors.Stocks {
		if e.MorningReturn > entry.MorningReturn {
			better++
		}
	}
	return float64(better+1) / float64(len(ctx.Sectors.Stocks))
}

// FeatureSectorMorningReturnSpread is (stock's morning return - sector
// mean morning return) over the sector's own spread (max-min), clipped to
// [-1,1]. Neutral 0.0 without a cache or a sector with a single member.
func FeatureSectorMorningReturnSpread(ctx *Context) float64 {
	if ctx.Sectors == nil {
		return 0.0
	}
	entry, ok := ctx.Sectors.Stocks[ctx.Stock]
	if !ok {
		return 0.0
	}
	sector, ok := ctx.Sectors.Sectors[entry.Sector]
	if !ok || len(sector.RankedStocks) < 2 {
		return 0.0
	}
	var returns []float64
	for _, s := range sector.RankedStocks {
		if se, ok := ctx.Sectors.Stocks[s]; ok {
			returns = append(returns, se.MorningReturn)
		}
	}
	lo, hi := returns[0], returns[0]
	for _, r := range returns {
		if r < lo {
			lo = r
		}
		if r > hi {
			hi = r
		}
	}
	if hi <= lo {
		return 0.0
	}
	return Clip(SafeDiv(entry.MorningReturn-Mean(returns), hi-lo, 0.0), -1, 1)
}
