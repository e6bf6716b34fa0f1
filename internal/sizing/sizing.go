// Package sizing turns a recommendation into concrete position guidance
// based on the user's risk tier and total capital.
package sizing

import "math"

// Tier caps how aggressively capital is deployed per recommendation.
type Tier struct {
	BuyDeployPct   float64
	MaxPositionPct float64
	SellPct        float64
	MinConfidence  string
}

var Tiers = map[string]Tier{
	"conservative": {BuyDeployPct: 0.03, MaxPositionPct: 0.05, SellPct: 0.50, MinConfidence: "HIGH"},
	"neutral":      {BuyDeployPct: 0.06, MaxPositionPct: 0.10, SellPct: 0.75, MinConfidence: "MEDIUM"},
	"aggressive":   {BuyDeployPct: 0.12, MaxPositionPct: 0.20, SellPct: 1.00, MinConfidence: "LOW"},
}

var confidenceRank = map[string]int{"LOW": 0, "MEDIUM": 1, "HIGH": 2}

// ValidTier reports whether name is a known risk tier.
func ValidTier(name string) bool {
	_, ok := Tiers[name]
	return ok
}

// TierNames lists the accepted risk tiers.
func TierNames() []string {
	return []string{"conservative", "neutral", "aggressive"}
}

// Guidance is a concrete share count for acting on a recommendation.
// Shares of zero carries a note explaining why no action is suggested.
type Guidance struct {
	Action       string  `json:"action"`
	Shares       int     `json:"shares"`
	Amount       float64 `json:"amount,omitempty"`
	PctOfCapital float64 `json:"pct_of_capital,omitempty"`
	PctOfHolding float64 `json:"pct_of_holding,omitempty"`
	Note         string  `json:"note,omitempty"`
}

// Compute returns guidance for one ticker, or nil for HOLD or when capital
// or price is unknown.
func Compute(rec, confidence string, price, sharesHeld float64, tierName string, totalCapital float64) *Guidance {
	if rec == "HOLD" || totalCapital <= 0 || price <= 0 {
		return nil
	}
	tier, ok := Tiers[tierName]
	if !ok {
		tier = Tiers["neutral"]
	}
	confOK := confidenceRank[confidence] >= confidenceRank[tier.MinConfidence]

	switch rec {
	case "BUY":
		if !confOK {
			return &Guidance{
				Action: "BUY",
				Note:   "Confidence " + confidence + " below " + tier.MinConfidence + " threshold for " + tierName,
			}
		}
		deploy := totalCapital * tier.BuyDeployPct
		currentVal := sharesHeld * price
		available := math.Max(0, totalCapital*tier.MaxPositionPct-currentVal)
		deploy = math.Min(deploy, available)
		if deploy < price {
			return &Guidance{Action: "BUY", Note: "Already at max position for tier"}
		}
		shares := int(deploy / price)
		amount := float64(shares) * price
		return &Guidance{
			Action:       "BUY",
			Shares:       shares,
			Amount:       amount,
			PctOfCapital: math.Round(amount/totalCapital*100*100) / 100,
		}

	case "SELL":
		if sharesHeld <= 0 {
			return &Guidance{Action: "SELL", Note: "No position held"}
		}
		shares := int(sharesHeld * tier.SellPct)
		if shares < 1 {
			shares = 1
		}
		return &Guidance{
			Action:       "SELL",
			Shares:       shares,
			Amount:       float64(shares) * price,
			PctOfHolding: math.Round(tier.SellPct * 100),
		}
	}
	return nil
}
