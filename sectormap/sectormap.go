// Package sectormap implements the sector map and the per-date Day Sector
// Cache (spec §3): a static stock_code -> sector lookup plus a derived,
// read-only cross-sectional snapshot the Feature Engine's cross-sectional
// family reads for a given (stock, date).
//
// Grounded on SynapseStrike/market/historical.go's CSV-ingest shape for the
// static map, and on the Redis cache pattern from
// sawpanic-cryptorun's staging redis_cache.go for the shared, process-wide
// Day Sector Cache consumed by the parallel Feature Materializer workers
// (cache.go).
package sectormap

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"daytrader/errs"
)

// Other is the sentinel sector name for any stock code missing from the
// map (§3 "Missing entries resolve to a sentinel OTHER sector").
const Other = "OTHER"

// Map is a static, immutable stock_code -> sector_name lookup, loaded once
// per process run (§3 "static per run, loaded from an external source").
type Map struct {
	sectors map[string]string
}

// Load parses a two-column CSV (stock_code,sector_name; no header) from r.
func Load(r io.Reader) (*Map, error) {
	m := &Map{sectors: make(map[string]string)}
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		row := strings.TrimSpace(scanner.Text())
		if row == "" {
			continue
		}
		cols := strings.SplitN(row, ",", 2)
		if len(cols) != 2 {
			return nil, errs.New(errs.Parse, "sectormap.Load",
				fmt.Errorf("line %d: want 2 columns, got %d", line, len(cols)))
		}
		code := strings.TrimSpace(cols[0])
		sector := strings.TrimSpace(cols[1])
		if code == "" || sector == "" {
			continue
		}
		m.sectors[normalizeCode(code)] = sector
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.New(errs.Io, "sectormap.Load", err)
	}
	return m, nil
}

// SectorOf returns the sector for code, or Other if unknown.
func (m *Map) SectorOf(code string) string {
	if s, ok := m.sectors[normalizeCode(code)]; ok {
		return s
	}
	return Other
}

// Len returns the number of known stock codes.
func (m *Map) Len() int { return len(m.sectors) }

func normalizeCode(code string) string {
	code = strings.TrimSpace(code)
	if strings.HasPrefix(code, "A") {
		return code
	}
	return "A" + code
}
