package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmuoria/gems-hub/internal/apperr"
	"github.com/fmuoria/gems-hub/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertScores_UniqueByCaseInsensitiveName(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := ScoreFromBreakdown("Painite", models.ScoreBreakdown{Composite: 80, Score: 80, Tier: "VERY BULLISH"})
	require.NoError(t, s.UpsertScores(ctx, []GemScore{first}))

	again := ScoreFromBreakdown(" PAINITE ", models.ScoreBreakdown{Composite: 71.875, Score: 71.88, Tier: "BULLISH", PriceBucket: "PREMIUM"})
	require.NoError(t, s.UpsertScores(ctx, []GemScore{again}))

	n, err := s.CountScores(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.GetScore(ctx, "painite")
	require.NoError(t, err)
	assert.Equal(t, "PAINITE", got.Name)
	assert.Equal(t, 71.875, got.Composite)
	assert.Equal(t, 71.88, got.CompositeRounded)
	assert.Equal(t, "BULLISH", got.Tier)
	assert.Equal(t, "PREMIUM", got.Breakdown().PriceBucket)
}

func TestListScores_Order(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rows := []GemScore{
		ScoreFromBreakdown("Opal", models.ScoreBreakdown{Composite: 40, Tier: "BEARISH"}),
		ScoreFromBreakdown("Beryl", models.ScoreBreakdown{Composite: 60, Tier: "MODERATELY BULLISH"}),
		ScoreFromBreakdown("Apatite", models.ScoreBreakdown{Composite: 60, Tier: "MODERATELY BULLISH"}),
	}
	require.NoError(t, s.UpsertScores(ctx, rows))

	list, err := s.ListScores(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Apatite", list[0].Name)
	assert.Equal(t, "Beryl", list[1].Name)
	assert.Equal(t, "Opal", list[2].Name)
}

func TestGetScore_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetScore(context.Background(), "Unobtainium")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUsers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u, err := s.UpsertUser(ctx, models.User{GoogleID: "g-1", Email: "a@example.com", Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)

	_, err = s.UpdateProfile(ctx, "g-1", models.ProfileUpdate{PreferredStore: "gemrockauctions", MinimalInvestmentTier: "BULLISH"})
	require.NoError(t, err)

	// Signing in again refreshes identity but keeps the profile
	u, err = s.UpsertUser(ctx, models.User{GoogleID: "g-1", Email: "ada@example.com", Name: "Ada L."})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, "gemrockauctions", u.PreferredStore)
	assert.Equal(t, "BULLISH", u.ToModel().MinimalInvestmentTier)

	_, err = s.UpdateProfile(ctx, "nobody", models.ProfileUpdate{})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = s.UpsertUser(ctx, models.User{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestPreferences(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertPreference(ctx, "u1", models.GemPreference{GemTypeName: "Spinel", IsHunted: true, MaxHuntTotalCost: 200})
	require.NoError(t, err)
	_, err = s.UpsertPreference(ctx, "u1", models.GemPreference{GemTypeName: "Opal", IsIgnored: true})
	require.NoError(t, err)
	_, err = s.UpsertPreference(ctx, "u2", models.GemPreference{GemTypeName: "Spinel"})
	require.NoError(t, err)

	p, err := s.UpsertPreference(ctx, "u1", models.GemPreference{GemTypeName: "Spinel", IsHunted: false, MinHuntWeight: 1.5})
	require.NoError(t, err)
	assert.False(t, p.IsHunted)
	assert.Equal(t, 0.0, p.MaxHuntTotalCost)
	assert.Equal(t, 1.5, p.MinHuntWeight)

	list, err := s.ListPreferences(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Opal", list[0].GemTypeName)
	assert.True(t, list[0].ToModel().IsIgnored)
	assert.Equal(t, "Spinel", list[1].GemTypeName)

	_, err = s.GetPreference(ctx, "u2", "Opal")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = s.UpsertPreference(ctx, "u1", models.GemPreference{GemTypeName: "Opal", MaxHuntTotalCost: -1})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
