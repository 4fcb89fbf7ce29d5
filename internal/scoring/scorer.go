package scoring

import (
	"math"
	"strings"

	"github.com/fmuoria/gems-hub/internal/models"
)

// Tier labels, strongest first
const (
	TierVeryBullish       = "VERY BULLISH"
	TierBullish           = "BULLISH"
	TierModeratelyBullish = "MODERATELY BULLISH"
	TierNeutral           = "NEUTRAL"
	TierBearish           = "BEARISH"
	TierVeryBearish       = "VERY BEARISH"
)

// Component weights of the composite score
const (
	WeightRarity       = 0.25
	WeightAvailability = 0.25
	WeightInvestment   = 0.25
	WeightHardness     = 0.125
	WeightPrice        = 0.125
)

// Tiers lists every tier label from strongest to weakest
var Tiers = []string{
	TierVeryBullish,
	TierBullish,
	TierModeratelyBullish,
	TierNeutral,
	TierBearish,
	TierVeryBearish,
}

// Lookup tables are keyed by lowercased label. "Localized Formation" is a
// known rarity category without a point value and scores 0 like any unknown.
var rarityPoints = map[string]float64{
	"singular occurrence": 100,
	"unique geological":   85,
	"limited occurrence":  65,
	"abundant minerals":   35,
}

var availabilityPoints = map[string]float64{
	"museum grade rarity":    100,
	"collectors market":      85,
	"limited supply":         65,
	"readily available":      35,
	"consistently available": 10,
}

var investmentPoints = map[string]float64{
	"blue chip investment gems":  100,
	"emerging investment gems":   75,
	"speculative collector gems": 50,
	"fashion/trend gems":         25,
	"non-investment gems":        5,
}

func lookup(table map[string]float64, label string) float64 {
	return table[strings.ToLower(strings.TrimSpace(label))]
}

// RarityPoints returns the points for a geological rarity label
func RarityPoints(label string) float64 { return lookup(rarityPoints, label) }

// AvailabilityPoints returns the points for a market availability label
func AvailabilityPoints(label string) float64 { return lookup(availabilityPoints, label) }

// InvestmentPoints returns the points for an investment appropriateness label
func InvestmentPoints(label string) float64 { return lookup(investmentPoints, label) }

// Score computes the investment ranking of a gem from its five attributes.
// It never fails: missing or unrecognised inputs contribute zero points.
// A nil hardness means the value is unknown.
func Score(rarity, availability, investment string, hardness *float64, priceText string) models.ScoreBreakdown {
	b := models.ScoreBreakdown{
		RarityPoints:       RarityPoints(rarity),
		AvailabilityPoints: AvailabilityPoints(availability),
		InvestmentPoints:   InvestmentPoints(investment),
	}

	b.HardnessCategory, b.HardnessPoints = HardnessCategory(hardness)

	// Blank price text carries no information, so it scores nothing even
	// though the classifier alone would report MID-RANGE for it.
	if strings.TrimSpace(priceText) != "" {
		b.PriceBucket = InferPriceBucket(priceText)
		b.PricePoints = PricePoints(b.PriceBucket)
	}

	b.Composite = b.RarityPoints*WeightRarity +
		b.AvailabilityPoints*WeightAvailability +
		b.InvestmentPoints*WeightInvestment +
		b.HardnessPoints*WeightHardness +
		b.PricePoints*WeightPrice
	b.Score = Round2(b.Composite)
	b.Tier = TierFor(b.Composite)

	return b
}

// ScoreAttributes scores a gem from its attribute record
func ScoreAttributes(attrs models.GemAttributes) models.ScoreBreakdown {
	return Score(attrs.Rarity, attrs.Availability, attrs.Investment, ParseHardness(attrs.HardnessText), attrs.PriceText)
}

// TierFor maps a composite score to its tier. Lower bounds are inclusive.
func TierFor(composite float64) string {
	switch {
	case composite >= 80:
		return TierVeryBullish
	case composite >= 70:
		return TierBullish
	case composite >= 50:
		return TierModeratelyBullish
	case composite >= 45:
		return TierNeutral
	case composite >= 30:
		return TierBearish
	default:
		return TierVeryBearish
	}
}

// TierRank returns the position of a tier in Tiers, or -1 if unknown
func TierRank(tier string) int {
	for i, t := range Tiers {
		if strings.EqualFold(t, strings.TrimSpace(tier)) {
			return i
		}
	}
	return -1
}

// MeetsTier reports whether tier is at least as strong as minimum.
// An empty or unknown minimum accepts everything.
func MeetsTier(tier, minimum string) bool {
	floor := TierRank(minimum)
	if floor < 0 {
		return true
	}
	r := TierRank(tier)
	return r >= 0 && r <= floor
}

// Round2 rounds to two decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
