package hub

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fmuoria/gems-hub/internal/apperr"
	"github.com/fmuoria/gems-hub/internal/gemdb"
	"github.com/fmuoria/gems-hub/internal/llm"
	"github.com/fmuoria/gems-hub/internal/models"
	"github.com/fmuoria/gems-hub/internal/scoring"
	"github.com/fmuoria/gems-hub/internal/store"
)

// Filter narrows the browse view. Empty fields match everything.
type Filter struct {
	HardnessCategory string
	Rarity           string
	Availability     string
	Investment       string
	PriceBucket      string
	Color            string
	Query            string
}

func (f Filter) matches(g models.GemSummary) bool {
	eq := func(want, got string) bool {
		want = strings.TrimSpace(want)
		return want == "" || strings.EqualFold(want, strings.TrimSpace(got))
	}

	if !eq(f.HardnessCategory, g.Ranking.HardnessCategory) ||
		!eq(f.PriceBucket, g.Ranking.PriceBucket) ||
		!eq(f.Rarity, g.Rarity) ||
		!eq(f.Availability, g.Availability) ||
		!eq(f.Investment, g.Investment) {
		return false
	}

	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" &&
		!strings.Contains(strings.ToLower(g.Name), q) &&
		!strings.Contains(strings.ToLower(g.MineralGroup), q) {
		return false
	}

	if c := strings.TrimSpace(f.Color); c != "" {
		for _, color := range g.Colors {
			if strings.EqualFold(strings.TrimSpace(color), c) {
				return true
			}
		}
		return false
	}
	return true
}

func (s *Service) summarize(g models.GemType) models.GemSummary {
	b := scoring.ScoreAttributes(g.Attributes())
	return models.GemSummary{
		ID:           g.ID,
		Name:         strings.TrimSpace(g.Name),
		MineralGroup: g.MineralGroup,
		Rarity:       strings.TrimSpace(g.Rarity),
		Availability: strings.TrimSpace(g.Availability),
		Investment:   strings.TrimSpace(g.InvestmentAppropriateness),
		Hardness:     g.Hardness.String(),
		PriceRange:   g.PriceRange.String(),
		Colors:       g.Colors,
		Ranking:      b,
	}
}

// Browse returns the scored gems matching f, sorted by name
func (s *Service) Browse(ctx context.Context, f Filter) ([]models.GemSummary, error) {
	gems, err := s.loadGems(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.GemSummary, 0, len(gems))
	for _, g := range gems {
		if strings.TrimSpace(g.Name) == "" {
			continue
		}
		sum := s.summarize(g)
		if f.matches(sum) {
			out = append(out, sum)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// Profile assembles a gem profile page. The score is always recomputed
// from the gem's attributes; a missing or outdated cached row is rewritten.
func (s *Service) Profile(ctx context.Context, name string) (*models.GemProfile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("gem name is required")
	}

	var (
		gem      *models.GemType
		listings []models.Listing
		cached   *store.GemScore
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		gems, err := s.loadGems(gctx)
		if err != nil {
			return err
		}
		gem = gemdb.FindGem(gems, name)
		if gem == nil {
			return apperr.NotFound(fmt.Sprintf("gem type %q not found", name))
		}
		return nil
	})
	g.Go(func() error {
		ls, err := s.gems.ListListings(gctx, name, s.opts.ListingLimit)
		if err != nil {
			s.log.Warn("listings unavailable", "gem", name, "error", err)
			return nil
		}
		listings = ls
		return nil
	})
	if s.store != nil {
		g.Go(func() error {
			row, err := s.store.GetScore(gctx, name)
			if err != nil && !apperr.Is(err, apperr.KindNotFound) {
				s.log.Warn("score cache read failed", "gem", name, "error", err)
			}
			cached = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if listings == nil {
		listings = []models.Listing{}
	}
	profile := &models.GemProfile{
		Gem:         s.summarize(*gem),
		Description: gem.Description,
		Listings:    listings,
	}

	if s.store != nil && scoreDiffers(cached, profile.Gem.Ranking) {
		profile.CacheStale = true
		row := store.ScoreFromBreakdown(profile.Gem.Name, profile.Gem.Ranking)
		if err := s.store.UpsertScores(ctx, []store.GemScore{row}); err != nil {
			s.log.Warn("score cache rewrite failed", "gem", profile.Gem.Name, "error", err)
		}
	}

	if s.narrator != nil {
		text, err := s.narrator.Narrate(ctx, narrativeInput(profile.Gem))
		if err != nil {
			s.log.Warn("narrative unavailable", "gem", profile.Gem.Name, "error", err)
		} else {
			profile.Narrative = text
		}
	}

	return profile, nil
}

func scoreDiffers(cached *store.GemScore, fresh models.ScoreBreakdown) bool {
	if cached == nil {
		return true
	}
	return cached.Breakdown() != fresh
}

func narrativeInput(g models.GemSummary) llm.NarrativeInput {
	return llm.NarrativeInput{
		Name:         g.Name,
		MineralGroup: g.MineralGroup,
		Rarity:       g.Rarity,
		Availability: g.Availability,
		Investment:   g.Investment,
		Hardness:     g.Hardness,
		PriceRange:   g.PriceRange,
		Score:        g.Ranking.Score,
		Tier:         g.Ranking.Tier,
	}
}

// Rankings scores every gem and orders them strongest first. Equal
// composites are ordered by name.
func (s *Service) Rankings(ctx context.Context) (models.RankingReport, error) {
	gems, err := s.loadGems(ctx)
	if err != nil {
		return models.RankingReport{}, err
	}

	results := make([]models.GemSummary, 0, len(gems))
	for _, g := range gems {
		if strings.TrimSpace(g.Name) == "" {
			continue
		}
		results = append(results, s.summarize(g))
	}

	SortRanked(results)

	report := models.RankingReport{
		Gems:      results,
		Timestamp: time.Now().Format(time.RFC3339),
	}

	s.mu.Lock()
	s.lastRanking = &report
	s.mu.Unlock()

	return report, nil
}

// SortRanked sorts by full-precision composite descending, then name, and
// assigns ranks from 1
func SortRanked(results []models.GemSummary) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Ranking.Composite, results[j].Ranking.Composite
		if a != b {
			return a > b
		}
		return strings.ToLower(results[i].Name) < strings.ToLower(results[j].Name)
	})

	for i := range results {
		results[i].Rank = i + 1
	}
}

// LastRankings returns the most recent ranking report, if any
func (s *Service) LastRankings() (models.RankingReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastRanking == nil {
		return models.RankingReport{}, false
	}
	report := *s.lastRanking
	report.Gems = make([]models.GemSummary, len(s.lastRanking.Gems))
	copy(report.Gems, s.lastRanking.Gems)
	return report, true
}

// RankingsOrLast returns fresh rankings. When the gem database cannot be
// reached it falls back to the last report computed by this process and
// reports it as stale.
func (s *Service) RankingsOrLast(ctx context.Context) (models.RankingReport, bool, error) {
	report, err := s.Rankings(ctx)
	if err == nil {
		return report, false, nil
	}
	if !apperr.Is(err, apperr.KindUpstream) && !apperr.Is(err, apperr.KindUnavailable) {
		return models.RankingReport{}, false, err
	}

	last, ok := s.LastRankings()
	if !ok {
		return models.RankingReport{}, false, err
	}
	s.log.Warn("gem database unavailable, serving last rankings", "computed_at", last.Timestamp, "error", err)
	return last, true, nil
}

// RefreshScores drops the cached gem list, rescores every gem and writes
// all scores to the local store. It returns the number of rows written.
func (s *Service) RefreshScores(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, apperr.Unavailable("score store is not configured")
	}

	s.reportProgress(0, 100, "Fetching gem types...")
	s.invalidateGems(ctx)

	report, err := s.Rankings(ctx)
	if err != nil {
		return 0, err
	}

	total := len(report.Gems)
	s.reportProgress(50, 100, fmt.Sprintf("Scored %d gem types", total))

	rows := make([]store.GemScore, 0, total)
	for _, g := range report.Gems {
		rows = append(rows, store.ScoreFromBreakdown(g.Name, g.Ranking))
		s.metrics.ObserveScore(g.Ranking.Tier)
	}
	if err := s.store.UpsertScores(ctx, rows); err != nil {
		return 0, fmt.Errorf("failed to store scores: %w", err)
	}

	s.log.Info("scores refreshed", "count", len(rows))
	s.reportProgress(100, 100, "Refresh complete!")
	return len(rows), nil
}

// ScoreAttributes scores arbitrary attributes
func (s *Service) ScoreAttributes(attrs models.GemAttributes) models.ScoreBreakdown {
	b := scoring.ScoreAttributes(attrs)
	s.metrics.ObserveScore(b.Tier)
	return b
}

// GemTypes returns the upstream gem list
func (s *Service) GemTypes(ctx context.Context) ([]models.GemType, error) {
	return s.loadGems(ctx)
}
