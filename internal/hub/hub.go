// Package hub orchestrates the gem catalogue, rankings, invoice import and
// portfolio features on top of the upstream gem database.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/fmuoria/gems-hub/internal/cache"
	"github.com/fmuoria/gems-hub/internal/llm"
	"github.com/fmuoria/gems-hub/internal/logging"
	"github.com/fmuoria/gems-hub/internal/metrics"
	"github.com/fmuoria/gems-hub/internal/models"
	"github.com/fmuoria/gems-hub/internal/store"
)

// GemsCacheKey holds the upstream gem list
const GemsCacheKey = "gems:all"

// GemSource serves gem master data, listings and product details
type GemSource interface {
	ListGems(ctx context.Context, limit int) ([]models.GemType, error)
	ListListings(ctx context.Context, gemTypeName string, limit int) ([]models.Listing, error)
	ProductDetails(ctx context.Context, productID string) (*models.ProductDetails, error)
}

// HoldingStore persists user holdings
type HoldingStore interface {
	ListHoldings(ctx context.Context, userID string) ([]models.Holding, error)
	CreateHolding(ctx context.Context, userID string, in models.HoldingInput) (*models.Holding, error)
	UpdateHolding(ctx context.Context, userID string, holdingID int64, in models.HoldingInput) (*models.Holding, error)
	DeleteHolding(ctx context.Context, userID string, holdingID int64) error
}

// LocalStore is the local score cache and preference table
type LocalStore interface {
	UpsertScores(ctx context.Context, rows []store.GemScore) error
	GetScore(ctx context.Context, name string) (*store.GemScore, error)
	ListPreferences(ctx context.Context, userID string) ([]store.GemPreference, error)
	GetPreference(ctx context.Context, userID, gemTypeName string) (*store.GemPreference, error)
	UpsertPreference(ctx context.Context, userID string, p models.GemPreference) (*store.GemPreference, error)
}

// Narrator writes profile narratives
type Narrator interface {
	Narrate(ctx context.Context, in llm.NarrativeInput) (string, error)
}

// ProgressCallback is called to report progress during a score refresh
type ProgressCallback func(current, total int, message string)

// Deps are the collaborators of a Service. Cache, Narrator and Metrics are
// optional.
type Deps struct {
	Gems     GemSource
	Holdings HoldingStore
	Store    LocalStore
	Cache    cache.Cache
	Narrator Narrator
	Metrics  *metrics.Metrics
	Logger   *logging.Logger
}

// Options tune upstream usage
type Options struct {
	GemLimit     int
	ListingLimit int
	CacheTTL     time.Duration
}

// Service is the application layer shared by the HTTP API and the CLI
type Service struct {
	gems     GemSource
	holdings HoldingStore
	store    LocalStore
	cache    cache.Cache
	narrator Narrator
	metrics  *metrics.Metrics
	log      *logging.Logger
	opts     Options

	mu          sync.RWMutex
	lastRanking *models.RankingReport
	progressCb  ProgressCallback
}

// New creates a hub service
func New(deps Deps, opts Options) *Service {
	if deps.Logger == nil {
		deps.Logger = logging.Nop()
	}
	if opts.GemLimit <= 0 {
		opts.GemLimit = 1000
	}
	if opts.ListingLimit <= 0 {
		opts.ListingLimit = 50
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}

	return &Service{
		gems:     deps.Gems,
		holdings: deps.Holdings,
		store:    deps.Store,
		cache:    deps.Cache,
		narrator: deps.Narrator,
		metrics:  deps.Metrics,
		log:      deps.Logger.With("component", "hub"),
		opts:     opts,
	}
}

// SetProgressCallback sets the progress callback function
func (s *Service) SetProgressCallback(cb ProgressCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progressCb = cb
}

func (s *Service) reportProgress(current, total int, message string) {
	s.mu.RLock()
	cb := s.progressCb
	s.mu.RUnlock()

	if cb != nil {
		cb(current, total, message)
	}
}

// loadGems returns the upstream gem list, served from cache when possible.
// Cache failures only cost a round trip to the API.
func (s *Service) loadGems(ctx context.Context) ([]models.GemType, error) {
	if s.cache != nil {
		raw, ok, err := s.cache.Get(ctx, GemsCacheKey)
		if err != nil {
			s.log.Warn("gem cache read failed", "error", err)
		}
		if ok {
			var gems []models.GemType
			if err := json.Unmarshal(raw, &gems); err == nil {
				return gems, nil
			}
			s.log.Warn("discarding corrupt gem cache entry")
		}
	}

	gems, err := s.gems.ListGems(ctx, s.opts.GemLimit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(gems); err == nil {
			if err := s.cache.Set(ctx, GemsCacheKey, raw, s.opts.CacheTTL); err != nil {
				s.log.Warn("gem cache write failed", "error", err)
			}
		}
	}
	return gems, nil
}

func (s *Service) invalidateGems(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, GemsCacheKey); err != nil {
		s.log.Warn("gem cache invalidation failed", "error", err)
	}
}
