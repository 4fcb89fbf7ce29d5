package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// FlexString accepts a JSON string, number or null and keeps its text form.
// The upstream gem database is not consistent about hardness and price fields.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// String returns the trimmed text value
func (f FlexString) String() string {
	return strings.TrimSpace(string(f))
}

// GemType is a gem master-data record as served by the upstream gem database
type GemType struct {
	ID                        int        `json:"gem_type_id"`
	Name                      string     `json:"gem_type_name"`
	MineralGroup              string     `json:"Mineral_Group"`
	Rarity                    string     `json:"rarity"`
	Availability              string     `json:"availability"`
	InvestmentAppropriateness string     `json:"investment_appropriateness"`
	Hardness                  FlexString `json:"hardness"`
	PriceRange                FlexString `json:"price_range"`
	Colors                    []string   `json:"colors,omitempty"`
	Description               string     `json:"description,omitempty"`
}

// Attributes returns the scoring inputs carried by the record
func (g GemType) Attributes() GemAttributes {
	return GemAttributes{
		Name:         g.Name,
		MineralGroup: g.MineralGroup,
		Rarity:       strings.TrimSpace(g.Rarity),
		Availability: strings.TrimSpace(g.Availability),
		Investment:   strings.TrimSpace(g.InvestmentAppropriateness),
		HardnessText: g.Hardness.String(),
		PriceText:    g.PriceRange.String(),
	}
}

// GemAttributes holds the five categorical inputs of the investment ranking
type GemAttributes struct {
	Name         string `json:"name"`
	MineralGroup string `json:"mineral_group"`
	Rarity       string `json:"rarity"`
	Availability string `json:"availability"`
	Investment   string `json:"investment"`
	HardnessText string `json:"hardness"` // single value or "min-max" range
	PriceText    string `json:"price_range"`
}

// ScoreBreakdown represents the investment ranking of a gem type
type ScoreBreakdown struct {
	RarityPoints       float64 `json:"rarity_points"`       // 0-100
	AvailabilityPoints float64 `json:"availability_points"` // 0-100
	InvestmentPoints   float64 `json:"investment_points"`   // 0-100
	HardnessPoints     float64 `json:"hardness_points"`     // 0-100
	PricePoints        float64 `json:"price_points"`        // 0-100
	HardnessCategory   string  `json:"hardness_category"`
	PriceBucket        string  `json:"price_bucket"`
	Composite          float64 `json:"-"`               // full precision
	Score              float64 `json:"composite_score"` // 0-100, two decimals
	Tier               string  `json:"tier"`
}

// GemSummary is one row of the browse and ranking views
type GemSummary struct {
	ID           int            `json:"gem_type_id,omitempty"`
	Name         string         `json:"name"`
	MineralGroup string         `json:"mineral_group,omitempty"`
	Rarity       string         `json:"rarity,omitempty"`
	Availability string         `json:"availability,omitempty"`
	Investment   string         `json:"investment,omitempty"`
	Hardness     string         `json:"hardness,omitempty"`
	PriceRange   string         `json:"price_range,omitempty"`
	Colors       []string       `json:"colors,omitempty"`
	Ranking      ScoreBreakdown `json:"ranking"`
	Rank         int            `json:"rank,omitempty"`
}

// Listing is a marketplace listing for a gem type
type Listing struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	GemTypeName string    `json:"gem_type_name"`
	CaratWeight float64   `json:"carat_weight,omitempty"`
	PriceUSD    float64   `json:"price_usd"`
	URL         string    `json:"url,omitempty"`
	Store       string    `json:"store,omitempty"`
	EndsAt      time.Time `json:"ends_at,omitempty"`
}

// GemProfile aggregates everything shown on a gem profile page
type GemProfile struct {
	Gem         GemSummary `json:"gem"`
	Description string     `json:"description,omitempty"`
	Listings    []Listing  `json:"listings"`
	CacheStale  bool       `json:"cache_stale"`
	Narrative   string     `json:"narrative,omitempty"`
}

// RankingReport is the response of the rankings endpoint
type RankingReport struct {
	Gems      []GemSummary `json:"gems"`
	Timestamp string       `json:"timestamp"`
}

// ParseFloat parses s as a float64, returning ok=false for blanks and garbage
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
