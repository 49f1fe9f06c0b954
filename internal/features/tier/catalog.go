package tier

import "github.com/shopspring/decimal"

// Tier is a user's trust level. It gates the commission rate applied to
// completed package sales.
type Tier string

const (
	TierBronze Tier = "bronze"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

// Info describes a single catalog entry.
type Info struct {
	Tier        Tier            `json:"tier"`
	DisplayName string          `json:"display_name"`
	Rate        decimal.Decimal `json:"rate"`
}

// Catalog is the static tier table. Rates are deployment-time constants;
// changing one affects only payments created afterwards.
type Catalog struct {
	entries map[Tier]Info
	order   []Tier
}

// NewCatalog returns the built-in tier table.
func NewCatalog() *Catalog {
	entries := map[Tier]Info{
		TierBronze: {Tier: TierBronze, DisplayName: "Bronze", Rate: decimal.NewFromFloat(0.05)},
		TierSilver: {Tier: TierSilver, DisplayName: "Silver", Rate: decimal.NewFromFloat(0.07)},
		TierGold:   {Tier: TierGold, DisplayName: "Gold", Rate: decimal.NewFromFloat(0.10)},
	}
	return &Catalog{
		entries: entries,
		order:   []Tier{TierBronze, TierSilver, TierGold},
	}
}

// RateFor returns the commission rate for a tier. Unknown or corrupted tier
// values resolve to the bronze rate: a bad value must never grant a higher
// commission than the lowest trust level.
func (c *Catalog) RateFor(t Tier) decimal.Decimal {
	if info, ok := c.entries[t]; ok {
		return info.Rate
	}
	return c.entries[TierBronze].Rate
}

// Known reports whether t exists in the catalog.
func (c *Catalog) Known(t Tier) bool {
	_, ok := c.entries[t]
	return ok
}

// List returns catalog entries in ascending trust order.
func (c *Catalog) List() []Info {
	out := make([]Info, 0, len(c.order))
	for _, t := range c.order {
		out = append(out, c.entries[t])
	}
	return out
}
