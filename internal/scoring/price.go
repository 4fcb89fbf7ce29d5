package scoring

import (
	"regexp"
	"strconv"
	"strings"
)

// Price buckets, most expensive first
const (
	BucketUltraLuxury    = "ULTRA-LUXURY"
	BucketSuperPremium   = "SUPER-PREMIUM"
	BucketPremium        = "PREMIUM"
	BucketHighEnd        = "HIGH-END"
	BucketMidRange       = "MID-RANGE"
	BucketAffordable     = "AFFORDABLE"
	BucketBudgetFriendly = "BUDGET-FRIENDLY"
)

// PriceBuckets lists every bucket from most to least expensive
var PriceBuckets = []string{
	BucketUltraLuxury,
	BucketSuperPremium,
	BucketPremium,
	BucketHighEnd,
	BucketMidRange,
	BucketAffordable,
	BucketBudgetFriendly,
}

var pricePoints = map[string]float64{
	BucketUltraLuxury:    100,
	BucketSuperPremium:   85,
	BucketPremium:        65,
	BucketHighEnd:        45,
	BucketMidRange:       25,
	BucketAffordable:     10,
	BucketBudgetFriendly: 5,
}

var priceNumberRe = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// PricePoints returns the points for a price bucket, 0 if unknown
func PricePoints(bucket string) float64 {
	return pricePoints[bucket]
}

// InferPriceBucket classifies free-text price descriptions such as
// "$10,000 - $50,000 per carat" or ">$50,000 per carat".
//
// Open lower bounds (">") classify on the first number, anything else with
// numbers on the largest one, and text without numbers on keywords.
func InferPriceBucket(text string) string {
	if strings.TrimSpace(text) == "" {
		return BucketMidRange
	}

	numbers := extractNumbers(text)
	if len(numbers) > 0 {
		if strings.Contains(text, ">") {
			return bucketFor(numbers[0])
		}

		highest := numbers[0]
		for _, n := range numbers[1:] {
			if n > highest {
				highest = n
			}
		}
		return bucketFor(highest)
	}

	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "ultra", "exceed"):
		return BucketUltraLuxury
	case containsAny(lower, "premium", "luxury"):
		return BucketSuperPremium
	case containsAny(lower, "high", "valuable"):
		return BucketHighEnd
	default:
		return BucketMidRange
	}
}

func bucketFor(v float64) string {
	switch {
	case v >= 50000:
		return BucketUltraLuxury
	case v >= 10000:
		return BucketSuperPremium
	case v >= 1000:
		return BucketPremium
	case v >= 500:
		return BucketHighEnd
	case v >= 100:
		return BucketMidRange
	case v >= 50:
		return BucketAffordable
	default:
		return BucketBudgetFriendly
	}
}

func extractNumbers(text string) []float64 {
	var out []float64
	for _, m := range priceNumberRe.FindAllString(text, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
