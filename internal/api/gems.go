package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fmuoria/gems-hub/internal/apperr"
	"github.com/fmuoria/gems-hub/internal/catalog"
	"github.com/fmuoria/gems-hub/internal/export"
	"github.com/fmuoria/gems-hub/internal/hub"
	"github.com/fmuoria/gems-hub/internal/models"
	"github.com/fmuoria/gems-hub/internal/scoring"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleBrowse(c *gin.Context) {
	f := hub.Filter{
		HardnessCategory: c.Query("hardness"),
		Rarity:           c.Query("rarity"),
		Availability:     c.Query("availability"),
		Investment:       c.Query("investment"),
		PriceBucket:      c.Query("price"),
		Color:            c.Query("color"),
		Query:            c.Query("q"),
	}

	gems, err := s.hub.Browse(c.Request.Context(), f)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gems": gems, "count": len(gems)})
}

func (s *Server) handleProfile(c *gin.Context) {
	profile, err := s.hub.Profile(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// handleRankings returns every gem ranked by composite score. min_tier
// drops gems below the given tier without renumbering.
func (s *Server) handleRankings(c *gin.Context) {
	minTier := c.Query("min_tier")
	if minTier != "" && scoring.TierRank(minTier) < 0 {
		s.respondError(c, apperr.Validation(fmt.Sprintf("unknown tier %q", minTier)))
		return
	}

	report, err := s.hub.Rankings(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	if minTier != "" {
		kept := report.Gems[:0:0]
		for _, g := range report.Gems {
			if scoring.MeetsTier(g.Ranking.Tier, minTier) {
				kept = append(kept, g)
			}
		}
		report.Gems = kept
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleRefresh(c *gin.Context) {
	n, err := s.hub.RefreshScores(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (s *Server) handleRankingsExport(c *gin.Context) {
	report, stale, err := s.hub.RankingsOrLast(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	if stale {
		c.Header(staleRankingsHeader, report.Timestamp)
	}

	var buf bytes.Buffer
	opts := export.Options{SiteName: s.cfg.SiteName, SearchBaseURL: s.cfg.SearchBaseURL}
	if err := export.WriteRankings(&buf, report, opts); err != nil {
		s.respondError(c, err)
		return
	}
	s.sendWorkbook(c, "gem_rankings", buf.Bytes())
}

// staleRankingsHeader carries the computation time of a rankings export
// served from memory while the gem database is down
const staleRankingsHeader = "X-Rankings-Stale-Since"

func (s *Server) sendWorkbook(c *gin.Context, prefix string, data []byte) {
	name := fmt.Sprintf("%s_%s.xlsx", prefix, time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, data)
}

type scoreRequest struct {
	Name         string            `json:"name"`
	MineralGroup string            `json:"mineral_group"`
	Rarity       string            `json:"rarity"`
	Availability string            `json:"availability"`
	Investment   string            `json:"investment"`
	Hardness     models.FlexString `json:"hardness"`
	PriceRange   models.FlexString `json:"price_range"`
}

func (s *Server) handleScore(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, apperr.Wrap(err, apperr.KindValidation, "invalid request body"))
		return
	}

	breakdown := s.hub.ScoreAttributes(models.GemAttributes{
		Name:         req.Name,
		MineralGroup: req.MineralGroup,
		Rarity:       req.Rarity,
		Availability: req.Availability,
		Investment:   req.Investment,
		HardnessText: req.Hardness.String(),
		PriceText:    req.PriceRange.String(),
	})
	c.JSON(http.StatusOK, breakdown)
}

func (s *Server) handlePriceBucket(c *gin.Context) {
	text := c.Query("text")
	bucket := scoring.InferPriceBucket(text)
	c.JSON(http.StatusOK, gin.H{
		"text":   text,
		"bucket": bucket,
		"points": scoring.PricePoints(bucket),
	})
}

// handleCatalog serves the navigation catalog. The configured gem types
// file wins; otherwise the catalog is derived from the gem database.
func (s *Server) handleCatalog(c *gin.Context) {
	base := s.cfg.SearchBaseURL
	if strings.TrimSpace(base) == "" {
		base = catalog.DefaultSearchURL
	}

	if s.cfg.GemTypesFile != "" {
		cat, err := catalog.Load(s.cfg.GemTypesFile, base)
		if err == nil {
			c.JSON(http.StatusOK, cat)
			return
		}
		s.log.Warn("gem types file unusable, deriving catalog", "path", s.cfg.GemTypesFile, "error", err)
	}

	gems, err := s.hub.GemTypes(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, catalog.FromGems(gems, base))
}
