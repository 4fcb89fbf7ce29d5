package hub

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fmuoria/gems-hub/internal/apperr"
	"github.com/fmuoria/gems-hub/internal/models"
)

// topGemsLimit bounds the "top gems by value" list
const topGemsLimit = 10

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperr.Unauthorized("sign in to manage your portfolio")
	}
	return nil
}

func validateHolding(in models.HoldingInput) error {
	if strings.TrimSpace(in.GemTypeName) == "" {
		return apperr.Validation("gem type is required")
	}
	if in.WeightCarats < 0 || in.PurchasePrice < 0 || in.CurrentValue < 0 {
		return apperr.Validation("weight, purchase price and current value must not be negative")
	}
	return nil
}

// Holdings lists a user's holdings
func (s *Service) Holdings(ctx context.Context, userID string) ([]models.Holding, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.holdings.ListHoldings(ctx, userID)
}

// AddHolding records a new holding
func (s *Service) AddHolding(ctx context.Context, userID string, in models.HoldingInput) (*models.Holding, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	in.GemTypeName = strings.TrimSpace(in.GemTypeName)
	if err := validateHolding(in); err != nil {
		return nil, err
	}
	return s.holdings.CreateHolding(ctx, userID, in)
}

// UpdateHolding edits one of the user's holdings
func (s *Service) UpdateHolding(ctx context.Context, userID string, holdingID int64, in models.HoldingInput) (*models.Holding, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	in.GemTypeName = strings.TrimSpace(in.GemTypeName)
	if err := validateHolding(in); err != nil {
		return nil, err
	}
	return s.holdings.UpdateHolding(ctx, userID, holdingID, in)
}

// RemoveHolding deletes one of the user's holdings
func (s *Service) RemoveHolding(ctx context.Context, userID string, holdingID int64) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	return s.holdings.DeleteHolding(ctx, userID, holdingID)
}

// PortfolioStats summarises the user's holdings
func (s *Service) PortfolioStats(ctx context.Context, userID string) (models.PortfolioStats, error) {
	holdings, err := s.Holdings(ctx, userID)
	if err != nil {
		return models.PortfolioStats{}, err
	}
	return ComputeStats(holdings), nil
}

// ComputeStats totals holdings in decimal and rounds money to cents
func ComputeStats(holdings []models.Holding) models.PortfolioStats {
	var invested, current, carats decimal.Decimal
	byGem := make(map[string]decimal.Decimal)

	for _, h := range holdings {
		value := decimal.NewFromFloat(h.CurrentValue)
		invested = invested.Add(decimal.NewFromFloat(h.PurchasePrice))
		current = current.Add(value)
		carats = carats.Add(decimal.NewFromFloat(h.WeightCarats))
		byGem[h.GemTypeName] = byGem[h.GemTypeName].Add(value)
	}

	top := make([]models.GemValue, 0, len(byGem))
	for name, v := range byGem {
		top = append(top, models.GemValue{GemTypeName: name, TotalValue: cents(v)})
	}
	sort.Slice(top, func(i, j int) bool {
		a, b := byGem[top[i].GemTypeName], byGem[top[j].GemTypeName]
		if !a.Equal(b) {
			return a.GreaterThan(b)
		}
		return top[i].GemTypeName < top[j].GemTypeName
	})
	if len(top) > topGemsLimit {
		top = top[:topGemsLimit]
	}

	return models.PortfolioStats{
		TotalItems:        len(holdings),
		TotalInvested:     cents(invested),
		TotalCurrentValue: cents(current),
		TotalCarats:       cents(carats),
		UnrealizedGain:    cents(current.Sub(invested)),
		TopGems:           top,
	}
}

func cents(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// Preferences lists the user's gem preferences
func (s *Service) Preferences(ctx context.Context, userID string) ([]models.GemPreference, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	rows, err := s.store.ListPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.GemPreference, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ToModel())
	}
	return out, nil
}

// Preference returns the user's preference for one gem type. A gem without
// a stored preference gets the zero preference.
func (s *Service) Preference(ctx context.Context, userID, gemTypeName string) (models.GemPreference, error) {
	if err := requireUser(userID); err != nil {
		return models.GemPreference{}, err
	}
	row, err := s.store.GetPreference(ctx, userID, gemTypeName)
	if apperr.Is(err, apperr.KindNotFound) {
		return models.GemPreference{GemTypeName: strings.TrimSpace(gemTypeName)}, nil
	}
	if err != nil {
		return models.GemPreference{}, err
	}
	return row.ToModel(), nil
}

// SetPreference stores the user's preference for one gem type
func (s *Service) SetPreference(ctx context.Context, userID string, p models.GemPreference) (models.GemPreference, error) {
	if err := requireUser(userID); err != nil {
		return models.GemPreference{}, err
	}
	row, err := s.store.UpsertPreference(ctx, userID, p)
	if err != nil {
		return models.GemPreference{}, err
	}
	return row.ToModel(), nil
}
