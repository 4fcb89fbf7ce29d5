package models

import "time"

// Holding is a gem owned by a user, persisted by the upstream API
type Holding struct {
	ID            int64     `json:"id"`
	UserID        string    `json:"user_id"`
	GemTypeName   string    `json:"gem_type_name"`
	GemTypeID     int       `json:"gem_type_id,omitempty"`
	WeightCarats  float64   `json:"weight_carats,omitempty"`
	PurchasePrice float64   `json:"purchase_price,omitempty"`
	CurrentValue  float64   `json:"current_value,omitempty"`
	PurchaseDate  string    `json:"purchase_date,omitempty"` // YYYY-MM-DD
	Notes         string    `json:"notes,omitempty"`
	ProductID     string    `json:"product_id,omitempty"`
	SKU           string    `json:"sku,omitempty"`
	Description   string    `json:"description,omitempty"`
	DateAdded     time.Time `json:"date_added,omitempty"`
	LastUpdated   time.Time `json:"last_updated,omitempty"`
}

// HoldingInput is the payload for creating or updating a holding
type HoldingInput struct {
	GemTypeName   string  `json:"gem_type_name"`
	GemTypeID     int     `json:"gem_type_id,omitempty"`
	WeightCarats  float64 `json:"weight_carats,omitempty"`
	PurchasePrice float64 `json:"purchase_price,omitempty"`
	CurrentValue  float64 `json:"current_value,omitempty"`
	PurchaseDate  string  `json:"purchase_date,omitempty"`
	Notes         string  `json:"notes,omitempty"`
	ProductID     string  `json:"product_id,omitempty"`
	SKU           string  `json:"sku,omitempty"`
	Description   string  `json:"description,omitempty"`
}

// GemValue is one row of the "top gems by value" list
type GemValue struct {
	GemTypeName string  `json:"gem_type_name"`
	TotalValue  float64 `json:"total_value"`
}

// PortfolioStats summarises a user's holdings
type PortfolioStats struct {
	TotalItems        int        `json:"total_items"`
	TotalInvested     float64    `json:"total_invested"`
	TotalCurrentValue float64    `json:"total_current_value"`
	TotalCarats       float64    `json:"total_carats"`
	UnrealizedGain    float64    `json:"unrealized_gain"`
	TopGems           []GemValue `json:"top_gems"`
}

// ImportResult reports the outcome of turning invoice items into holdings
type ImportResult struct {
	Created []Holding     `json:"created"`
	Failed  []ImportError `json:"failed,omitempty"`
}

// ImportError describes a line item that could not be stored
type ImportError struct {
	ProductID string `json:"product_id"`
	Error     string `json:"error"`
}
