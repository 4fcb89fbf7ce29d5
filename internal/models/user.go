package models

// User is a signed-in member of the site
type User struct {
	GoogleID              string `json:"google_id"`
	Email                 string `json:"email"`
	Name                  string `json:"name"`
	Picture               string `json:"picture,omitempty"`
	PreferredStore        string `json:"preferred_store,omitempty"`
	MinimalInvestmentTier string `json:"minimal_investment_tier,omitempty"`
}

// GemPreference records how a user wants a gem type treated when hunting listings
type GemPreference struct {
	GemTypeName         string  `json:"gem_type_name"`
	IsIgnored           bool    `json:"is_ignored"`
	IsHunted            bool    `json:"is_hunted"`
	MaxHuntTotalCost    float64 `json:"max_hunt_total_cost"`
	MaxPremiumTotalCost float64 `json:"max_premium_total_cost"`
	MinHuntWeight       float64 `json:"min_hunt_weight"`
	MinPremiumWeight    float64 `json:"min_premium_weight"`
}

// ProfileUpdate is the payload of the profile edit endpoint
type ProfileUpdate struct {
	PreferredStore        string `json:"preferred_store"`
	MinimalInvestmentTier string `json:"minimal_investment_tier"`
}
