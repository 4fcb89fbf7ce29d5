package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferPriceBucket(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty", "", BucketMidRange},
		{"whitespace", "   ", BucketMidRange},
		{"boundary inclusive", "$50,000 per carat", BucketUltraLuxury},
		{"just below boundary", "$49,999 per carat", BucketSuperPremium},
		{"open lower bound uses first number", ">$10,000 per carat", BucketSuperPremium},
		{"open lower bound ignores larger later numbers", ">$500 per carat, up to $60,000", BucketHighEnd},
		{"range uses maximum", "$10,000 - $50,000 per carat", BucketUltraLuxury},
		{"premium", "$1,000 - $2,000", BucketPremium},
		{"mid range", "$100 - $499", BucketMidRange},
		{"affordable", "$50 per carat", BucketAffordable},
		{"budget", "$5 - $49.99", BucketBudgetFriendly},
		{"decimal", "$999.50", BucketHighEnd},
		{"keyword ultra first", "exceedingly rare, ultra premium", BucketUltraLuxury},
		{"keyword luxury", "Luxury pricing", BucketSuperPremium},
		{"keyword valuable", "very valuable", BucketHighEnd},
		{"keyword none", "varies", BucketMidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferPriceBucket(tt.text))
		})
	}
}

func TestPricePoints(t *testing.T) {
	assert.Equal(t, 100.0, PricePoints(BucketUltraLuxury))
	assert.Equal(t, 5.0, PricePoints(BucketBudgetFriendly))
	assert.Equal(t, 0.0, PricePoints("UNKNOWN"))
	assert.Len(t, PriceBuckets, 7)
}
