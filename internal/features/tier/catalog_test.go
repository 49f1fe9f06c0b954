package tier

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateFor(t *testing.T) {
	c := NewCatalog()

	assert.True(t, c.RateFor(TierBronze).Equal(decimal.NewFromFloat(0.05)))
	assert.True(t, c.RateFor(TierSilver).Equal(decimal.NewFromFloat(0.07)))
	assert.True(t, c.RateFor(TierGold).Equal(decimal.NewFromFloat(0.10)))
}

func TestRateForUnknownFallsBackToBronze(t *testing.T) {
	c := NewCatalog()

	// Corrupted or legacy tier values must never grant a higher rate.
	for _, bad := range []Tier{"", "platinum", "GOLD", "legacy-vip"} {
		rate := c.RateFor(bad)
		assert.True(t, rate.Equal(decimal.NewFromFloat(0.05)), "tier %q", bad)
	}
}

func TestRatesWithinRange(t *testing.T) {
	c := NewCatalog()

	for _, info := range c.List() {
		require.True(t, info.Rate.GreaterThanOrEqual(decimal.Zero))
		require.True(t, info.Rate.LessThan(decimal.NewFromInt(1)))
	}
}

func TestListOrderAndKnown(t *testing.T) {
	c := NewCatalog()

	list := c.List()
	require.Len(t, list, 3)
	assert.Equal(t, TierBronze, list[0].Tier)
	assert.Equal(t, TierGold, list[2].Tier)

	assert.True(t, c.Known(TierSilver))
	assert.False(t, c.Known("platinum"))
}
