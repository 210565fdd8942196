package sectormap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAndSectorOf(t *testing.T) {
	csv := "005930,Semiconductors\n000660,Semiconductors\n005380,Automotive\n"
	m, err := Load(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, "Semiconductors", m.SectorOf("005930"))
	assert.Equal(t, "Semiconductors", m.SectorOf("A005930"))
	assert.Equal(t, Other, m.SectorOf("999999"))
	assert.Equal(t, 3, m.Len())
}

func TestLoadMalformedRow(t *testing.T) {
	_, err := Load(strings.NewReader("005930\n"))
	require.Error(t, err)
}

func TestBuildDayCacheRanking(t *testing.T) {
	universe := []string{"A", "B", "C", "D"}
	returns := map[string]float64{"A": 0.05, "B": -0.01, "C": 0.02, "D": 0.10}
	sectorOf := func(s string) string {
		if s == "A" || s == "D" {
			return "Tech"
		}
		return "Auto"
	}
	cache := Build(20240102, universe, returns, sectorOf)

	assert.True(t, cache.IsSectorFirst("D"))
	assert.False(t, cache.IsSectorFirst("A"))
	assert.InDelta(t, 1.0, cache.SectorRankRatio("A"), 1e-9)
	assert.InDelta(t, 0.5, cache.SectorRankRatio("C"), 1e-9)

	techEntry := cache.Sectors["Tech"]
	assert.Equal(t, []string{"D", "A"}, techEntry.RankedStocks)
	assert.Equal(t, 2, techEntry.RisingCountTop15)
}

func TestSectorRankRatioUnknownStock(t *testing.T) {
	cache := Build(20240102, nil, nil, func(string) string { return Other })
	assert.InDelta(t, 0.5, cache.SectorRankRatio("nope"), 1e-9)
	assert.False(t, cache.IsSectorFirst("nope"))
}
