package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fmuoria/gems-hub/internal/apperr"
	"github.com/fmuoria/gems-hub/internal/models"
)

// ToModel converts the row to its API representation
func (u User) ToModel() models.User {
	return models.User{
		GoogleID:              u.GoogleID,
		Email:                 u.Email,
		Name:                  u.Name,
		Picture:               u.Picture,
		PreferredStore:        u.PreferredStore,
		MinimalInvestmentTier: u.MinimalInvestmentTier,
	}
}

// UpsertUser records a sign-in. Identity fields are refreshed; profile
// settings are kept.
func (s *Store) UpsertUser(ctx context.Context, u models.User) (*User, error) {
	if u.GoogleID == "" {
		return nil, apperr.Validation("google id is required")
	}

	row := User{
		GoogleID: u.GoogleID,
		Email:    u.Email,
		Name:     u.Name,
		Picture:  u.Picture,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "google_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "name", "picture", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}

	return s.GetUser(ctx, u.GoogleID)
}

// GetUser returns a user by Google ID
func (s *Store) GetUser(ctx context.Context, googleID string) (*User, error) {
	var row User
	err := s.db.WithContext(ctx).Where("google_id = ?", googleID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// UpdateProfile changes the user's store and tier settings
func (s *Store) UpdateProfile(ctx context.Context, googleID string, p models.ProfileUpdate) (*User, error) {
	res := s.db.WithContext(ctx).Model(&User{}).Where("google_id = ?", googleID).Updates(map[string]interface{}{
		"preferred_store":         strings.TrimSpace(p.PreferredStore),
		"minimal_investment_tier": strings.TrimSpace(p.MinimalInvestmentTier),
	})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("user not found")
	}
	return s.GetUser(ctx, googleID)
}

// ToModel converts the row to its API representation
func (p GemPreference) ToModel() models.GemPreference {
	return models.GemPreference{
		GemTypeName:         p.GemTypeName,
		IsIgnored:           p.IsIgnored,
		IsHunted:            p.IsHunted,
		MaxHuntTotalCost:    p.MaxHuntTotalCost,
		MaxPremiumTotalCost: p.MaxPremiumTotalCost,
		MinHuntWeight:       p.MinHuntWeight,
		MinPremiumWeight:    p.MinPremiumWeight,
	}
}

// ListPreferences returns all gem preferences of a user ordered by gem name
func (s *Store) ListPreferences(ctx context.Context, userID string) ([]GemPreference, error) {
	var rows []GemPreference
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("gem_type_name ASC").Find(&rows).Error
	return rows, err
}

// GetPreference returns one preference row
func (s *Store) GetPreference(ctx context.Context, userID, gemTypeName string) (*GemPreference, error) {
	var row GemPreference
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND gem_type_name = ?", userID, strings.TrimSpace(gemTypeName)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(fmt.Sprintf("no preference for %q", gemTypeName))
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// UpsertPreference stores a user's preference for one gem type
func (s *Store) UpsertPreference(ctx context.Context, userID string, p models.GemPreference) (*GemPreference, error) {
	name := strings.TrimSpace(p.GemTypeName)
	if userID == "" || name == "" {
		return nil, apperr.Validation("user id and gem type name are required")
	}
	if p.MaxHuntTotalCost < 0 || p.MaxPremiumTotalCost < 0 || p.MinHuntWeight < 0 || p.MinPremiumWeight < 0 {
		return nil, apperr.Validation("costs and weights must not be negative")
	}

	row := GemPreference{
		UserID:              userID,
		GemTypeName:         name,
		IsIgnored:           p.IsIgnored,
		IsHunted:            p.IsHunted,
		MaxHuntTotalCost:    p.MaxHuntTotalCost,
		MaxPremiumTotalCost: p.MaxPremiumTotalCost,
		MinHuntWeight:       p.MinHuntWeight,
		MinPremiumWeight:    p.MinPremiumWeight,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "gem_type_name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"is_ignored", "is_hunted", "max_hunt_total_cost", "max_premium_total_cost",
			"min_hunt_weight", "min_premium_weight", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}

	return s.GetPreference(ctx, userID, name)
}
