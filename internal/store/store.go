// Package store keeps the local tables: cached gem scores, signed-in users
// and their per-gem preferences.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/fmuoria/gems-hub/internal/apperr"
	"github.com/fmuoria/gems-hub/internal/models"
)

// GemScore is the cached investment ranking of a gem type. It is always
// derivable from the gem's attributes and is never authoritative.
type GemScore struct {
	ID                 uint    `gorm:"primaryKey"`
	NameKey            string  `gorm:"uniqueIndex;not null"`
	Name               string  `gorm:"not null"`
	RarityPoints       float64 `gorm:"not null"`
	AvailabilityPoints float64 `gorm:"not null"`
	InvestmentPoints   float64 `gorm:"not null"`
	HardnessPoints     float64 `gorm:"not null"`
	PricePoints        float64 `gorm:"not null"`
	Composite          float64 `gorm:"not null"`
	CompositeRounded   float64 `gorm:"not null"`
	Tier               string  `gorm:"not null"`
	PriceBucket        string
	HardnessCategory   string
	UpdatedAt          time.Time
}

// User is a Google-authenticated member
type User struct {
	GoogleID              string `gorm:"primaryKey"`
	Email                 string `gorm:"index"`
	Name                  string
	Picture               string
	PreferredStore        string
	MinimalInvestmentTier string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// GemPreference is one user's settings for one gem type
type GemPreference struct {
	ID                  uint   `gorm:"primaryKey"`
	UserID              string `gorm:"uniqueIndex:idx_user_gem;not null"`
	GemTypeName         string `gorm:"uniqueIndex:idx_user_gem;not null"`
	IsIgnored           bool   `gorm:"not null"`
	IsHunted            bool   `gorm:"not null"`
	MaxHuntTotalCost    float64
	MaxPremiumTotalCost float64
	MinHuntWeight       float64
	MinPremiumWeight    float64
	UpdatedAt           time.Time
}

// Store wraps the gorm connection
type Store struct {
	db *gorm.DB
}

// Open connects to the sqlite database at path and migrates the schema.
// ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %q: %w", path, err)
	}

	if path == ":memory:" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// Every new connection would get its own empty database
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&GemScore{}, &User{}, &GemPreference{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// NameKey is the case-insensitive identity of a gem type name
func NameKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// ScoreFromBreakdown builds a cache row for a scored gem
func ScoreFromBreakdown(name string, b models.ScoreBreakdown) GemScore {
	return GemScore{
		NameKey:            NameKey(name),
		Name:               strings.TrimSpace(name),
		RarityPoints:       b.RarityPoints,
		AvailabilityPoints: b.AvailabilityPoints,
		InvestmentPoints:   b.InvestmentPoints,
		HardnessPoints:     b.HardnessPoints,
		PricePoints:        b.PricePoints,
		Composite:          b.Composite,
		CompositeRounded:   b.Score,
		Tier:               b.Tier,
		PriceBucket:        b.PriceBucket,
		HardnessCategory:   b.HardnessCategory,
	}
}

// Breakdown converts a cache row back into a score breakdown
func (g GemScore) Breakdown() models.ScoreBreakdown {
	return models.ScoreBreakdown{
		RarityPoints:       g.RarityPoints,
		AvailabilityPoints: g.AvailabilityPoints,
		InvestmentPoints:   g.InvestmentPoints,
		HardnessPoints:     g.HardnessPoints,
		PricePoints:        g.PricePoints,
		HardnessCategory:   g.HardnessCategory,
		PriceBucket:        g.PriceBucket,
		Composite:          g.Composite,
		Score:              g.CompositeRounded,
		Tier:               g.Tier,
	}
}

// UpsertScores inserts or replaces cached scores keyed by gem name
func (s *Store) UpsertScores(ctx context.Context, rows []GemScore) error {
	if len(rows) == 0 {
		return nil
	}

	now := time.Now().UTC()
	for i := range rows {
		rows[i].ID = 0
		rows[i].UpdatedAt = now
		if rows[i].NameKey == "" {
			rows[i].NameKey = NameKey(rows[i].Name)
		}
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "rarity_points", "availability_points", "investment_points",
			"hardness_points", "price_points", "composite", "composite_rounded",
			"tier", "price_bucket", "hardness_category", "updated_at",
		}),
	}).CreateInBatches(&rows, 200).Error
}

// GetScore returns the cached score of a gem type
func (s *Store) GetScore(ctx context.Context, name string) (*GemScore, error) {
	var row GemScore
	err := s.db.WithContext(ctx).Where("name_key = ?", NameKey(name)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(fmt.Sprintf("no cached score for %q", name))
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListScores returns every cached score, strongest first
func (s *Store) ListScores(ctx context.Context) ([]GemScore, error) {
	var rows []GemScore
	err := s.db.WithContext(ctx).Order("composite DESC").Order("name_key ASC").Find(&rows).Error
	return rows, err
}

// CountScores returns the number of cached scores
func (s *Store) CountScores(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&GemScore{}).Count(&n).Error
	return n, err
}
