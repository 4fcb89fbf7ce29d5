package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fmuoria/gems-hub/internal/apperr"
	"github.com/fmuoria/gems-hub/internal/auth"
	"github.com/fmuoria/gems-hub/internal/gemdb"
	"github.com/fmuoria/gems-hub/internal/hub"
	"github.com/fmuoria/gems-hub/internal/ingestion"
	"github.com/fmuoria/gems-hub/internal/logging"
	"github.com/fmuoria/gems-hub/internal/metrics"
	"github.com/fmuoria/gems-hub/internal/models"
	"github.com/fmuoria/gems-hub/internal/store"
)

// Version is reported by the root endpoint
var Version = "dev"

const defaultMaxUpload = 10 << 20

// UserStore keeps signed-in users
type UserStore interface {
	UpsertUser(ctx context.Context, u models.User) (*store.User, error)
	GetUser(ctx context.Context, googleID string) (*store.User, error)
	UpdateProfile(ctx context.Context, googleID string, p models.ProfileUpdate) (*store.User, error)
}

// HealthChecker probes the upstream gem database
type HealthChecker interface {
	Health(ctx context.Context) gemdb.HealthStatus
}

// Config wires the server's collaborators. Sessions and Provider are nil
// when sign-in is disabled; Health, Metrics and Invoices are optional.
type Config struct {
	Hub      *hub.Service
	Users    UserStore
	Sessions *auth.Sessions
	Provider auth.Provider
	Health   HealthChecker
	Metrics  *metrics.Metrics
	Logger   *logging.Logger
	Invoices *ingestion.InvoiceArchive

	SiteName       string
	GemTypesFile   string
	SearchBaseURL  string
	MaxUploadBytes int64
	CookieName     string
	SecureCookies  bool
}

// Server handles HTTP requests
type Server struct {
	cfg Config
	hub *hub.Service
	log *logging.Logger
}

// NewServer creates a new API server
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUpload
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "gemshub_session"
	}
	if cfg.SiteName == "" {
		cfg.SiteName = "Gems Hub"
	}
	return &Server{
		cfg: cfg,
		hub: cfg.Hub,
		log: cfg.Logger.With("component", "api"),
	}
}

// Router returns the HTTP router
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(requestLogger(s.log))
	r.Use(observeRequests(s.cfg.Metrics))
	r.MaxMultipartMemory = s.cfg.MaxUploadBytes

	r.GET("/", s.handleRoot)
	r.GET("/health", s.handleHealth)
	if s.cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.cfg.Metrics.Handler()))
	}

	authGroup := r.Group("/auth")
	{
		authGroup.GET("/login", s.handleLogin)
		authGroup.GET("/callback", s.handleCallback)
		authGroup.POST("/logout", s.handleLogout)
	}

	v1 := r.Group("/api/v1")
	{
		v1.GET("/gems", s.handleBrowse)
		v1.GET("/gems/:name", s.handleProfile)
		v1.GET("/rankings", s.handleRankings)
		v1.POST("/rankings/refresh", s.handleRefresh)
		v1.GET("/rankings/export", s.handleRankingsExport)
		v1.POST("/score", s.handleScore)
		v1.GET("/price-bucket", s.handlePriceBucket)
		v1.GET("/catalog", s.handleCatalog)
	}

	protected := v1.Group("/")
	protected.Use(s.requireUser())
	{
		protected.GET("/me", s.handleMe)
		protected.PUT("/me/profile", s.handleUpdateProfile)
		protected.GET("/me/gem-preferences", s.handlePreferences)
		protected.GET("/me/gem-preferences/:gem", s.handlePreference)
		protected.POST("/me/gem-preferences/:gem", s.handleSetPreference)

		protected.GET("/portfolio", s.handleHoldings)
		protected.POST("/portfolio", s.handleAddHolding)
		protected.PUT("/portfolio/:id", s.handleUpdateHolding)
		protected.DELETE("/portfolio/:id", s.handleRemoveHolding)
		protected.GET("/portfolio/stats", s.handlePortfolioStats)
		protected.GET("/portfolio/export", s.handlePortfolioExport)
		protected.POST("/portfolio/invoices", s.handleParseInvoice)
		protected.POST("/portfolio/invoices/import", s.handleImportInvoice)
	}

	return r
}

// handleRoot provides API information
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": s.cfg.SiteName,
		"version": Version,
		"endpoints": gin.H{
			"GET /api/v1/gems":                "Browse gem types",
			"GET /api/v1/gems/:name":          "Gem profile with investment ranking",
			"GET /api/v1/rankings":            "Gem types ranked by investment score",
			"POST /api/v1/score":              "Score arbitrary gem attributes",
			"POST /api/v1/portfolio/invoices": "Parse a Gem Rock Auctions invoice PDF",
			"GET /api/v1/portfolio":           "Your holdings",
			"GET /health":                     "Health check",
		},
	})
}

// handleHealth reports liveness and the state of the gem database
func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{"status": "healthy", "time": time.Now().UTC().Format(time.RFC3339)}
	if s.cfg.Health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		up := s.cfg.Health.Health(ctx)
		body["upstream"] = up
		if !up.OK {
			body["status"] = "degraded"
		}
	}
	c.JSON(http.StatusOK, body)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondError sends the error envelope with the status of err's kind
func (s *Server) respondError(c *gin.Context, err error) {
	s.respondErrorStatus(c, apperr.HTTPStatus(err), err)
}

func (s *Server) respondErrorStatus(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", c.FullPath(), "request_id", c.GetString(requestIDKey), "error", err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": errorBody{
		Code:    apperr.KindOf(err).String(),
		Message: apperr.MessageOf(err),
	}})
}
