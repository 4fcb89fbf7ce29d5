package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fmuoria/gems-hub/internal/apperr"
	"github.com/fmuoria/gems-hub/internal/models"
	"github.com/fmuoria/gems-hub/internal/scoring"
)

const (
	stateCookie = "gemshub_oauth_state"
	stateMaxAge = 600
)

func (s *Server) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", s.cfg.SecureCookies, true)
}

// handleLogin redirects to the Google consent page
func (s *Server) handleLogin(c *gin.Context) {
	if s.cfg.Provider == nil || s.cfg.Sessions == nil {
		s.respondError(c, apperr.Unavailable("google sign-in is not configured"))
		return
	}

	state := uuid.NewString()
	s.setCookie(c, stateCookie, state, stateMaxAge)
	c.Redirect(http.StatusFound, s.cfg.Provider.AuthCodeURL(state))
}

// handleCallback completes the OAuth flow and starts a session
func (s *Server) handleCallback(c *gin.Context) {
	if s.cfg.Provider == nil || s.cfg.Sessions == nil {
		s.respondError(c, apperr.Unavailable("google sign-in is not configured"))
		return
	}

	if msg := c.Query("error"); msg != "" {
		s.respondError(c, apperr.Unauthorized(fmt.Sprintf("google sign-in was cancelled: %s", msg)))
		return
	}

	want, err := c.Cookie(stateCookie)
	if err != nil || want == "" || want != c.Query("state") {
		s.respondError(c, apperr.Unauthorized("sign-in state mismatch"))
		return
	}
	s.setCookie(c, stateCookie, "", -1)

	ctx := c.Request.Context()
	identity, err := s.cfg.Provider.Exchange(ctx, c.Query("code"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	row, err := s.cfg.Users.UpsertUser(ctx, identity)
	if err != nil {
		s.respondError(c, err)
		return
	}
	user := row.ToModel()

	token, expires, err := s.cfg.Sessions.Issue(user)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.setCookie(c, s.cfg.CookieName, token, int(s.cfg.Sessions.TTL().Seconds()))

	s.log.Info("user signed in", "user_id", user.GoogleID, "request_id", c.GetString(requestIDKey))
	c.JSON(http.StatusOK, gin.H{
		"user":       user,
		"token":      token,
		"expires_at": expires.UTC(),
	})
}

func (s *Server) handleLogout(c *gin.Context) {
	s.setCookie(c, s.cfg.CookieName, "", -1)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleMe(c *gin.Context) {
	row, err := s.cfg.Users.GetUser(c.Request.Context(), currentUser(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row.ToModel())
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req models.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, apperr.Wrap(err, apperr.KindValidation, "invalid request body"))
		return
	}
	req.MinimalInvestmentTier = strings.ToUpper(strings.TrimSpace(req.MinimalInvestmentTier))
	if req.MinimalInvestmentTier != "" && scoring.TierRank(req.MinimalInvestmentTier) < 0 {
		s.respondError(c, apperr.Validation(fmt.Sprintf("unknown tier %q", req.MinimalInvestmentTier)))
		return
	}

	row, err := s.cfg.Users.UpdateProfile(c.Request.Context(), currentUser(c), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row.ToModel())
}

func (s *Server) handlePreferences(c *gin.Context) {
	prefs, err := s.hub.Preferences(c.Request.Context(), currentUser(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": prefs})
}

func (s *Server) handlePreference(c *gin.Context) {
	pref, err := s.hub.Preference(c.Request.Context(), currentUser(c), c.Param("gem"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pref)
}

func (s *Server) handleSetPreference(c *gin.Context) {
	var req models.GemPreference
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, apperr.Wrap(err, apperr.KindValidation, "invalid request body"))
		return
	}
	req.GemTypeName = c.Param("gem")

	pref, err := s.hub.SetPreference(c.Request.Context(), currentUser(c), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pref)
}
