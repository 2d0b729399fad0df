package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// copayByTier maps a formulary tier to its fixed-dollar copay (spec.md
// §4.2 step 8). Tiers 4-5 use coinsurance instead and are not looked up
// here.
var copayByTier = map[int]decimal.Decimal{
	1: decimal.NewFromInt(10),
	2: decimal.NewFromInt(25),
	3: decimal.NewFromInt(50),
	4: decimal.NewFromInt(100),
	5: decimal.NewFromInt(150),
}

// Copay returns the fixed copay for a tier, or an error for an unknown tier.
func Copay(tier int) (decimal.Decimal, error) {
	c, ok := copayByTier[tier]
	if !ok {
		return decimal.Zero, fmt.Errorf("no copay defined for tier %d", tier)
	}
	return c, nil
}

// tierWeights is the categorical distribution for tier assignment on
// approval (spec.md §4.2 step 8): 1:60%, 2:20%, 3:10%, 4:7%, 5:3%.
var tierWeights = []struct {
	tier   int
	cutoff float64 // cumulative upper bound
}{
	{1, 0.60},
	{2, 0.80},
	{3, 0.90},
	{4, 0.97},
	{5, 1.00},
}

// drawTier draws a tier from the categorical distribution using a single
// uniform draw in [0, 1).
func drawTier(u float64) int {
	for _, w := range tierWeights {
		if u < w.cutoff {
			return w.tier
		}
	}
	return tierWeights[len(tierWeights)-1].tier
}

const coinsuranceRate = 0.30
