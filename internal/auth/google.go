package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/fmuoria/gems-hub/internal/apperr"
	"github.com/fmuoria/gems-hub/internal/models"
)

// Provider runs the OAuth2 authorization code flow
type Provider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (models.User, error)
}

// Google signs users in with their Google account
type Google struct {
	config *oauth2.Config
}

// NewGoogle creates the Google provider
func NewGoogle(clientID, clientSecret, redirectURL string) (*Google, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, fmt.Errorf("google client id, secret and redirect url are required")
	}
	return &Google{config: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     google.Endpoint,
		Scopes: []string{
			"openid",
			oauth2api.UserinfoEmailScope,
			oauth2api.UserinfoProfileScope,
		},
	}}, nil
}

// AuthCodeURL returns the consent page URL
func (g *Google) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for a token and reads the
// user's profile
func (g *Google) Exchange(ctx context.Context, code string) (models.User, error) {
	if code == "" {
		return models.User{}, apperr.Validation("missing authorization code")
	}

	tok, err := g.config.Exchange(ctx, code)
	if err != nil {
		return models.User{}, apperr.Wrap(err, apperr.KindUnauthorized, "google sign-in failed")
	}

	svc, err := oauth2api.NewService(ctx, option.WithTokenSource(g.config.TokenSource(ctx, tok)))
	if err != nil {
		return models.User{}, fmt.Errorf("unable to create userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return models.User{}, apperr.Wrap(err, apperr.KindUpstream, "unable to read google profile")
	}
	if info.Id == "" {
		return models.User{}, apperr.New(apperr.KindUpstream, "google profile has no id")
	}

	return models.User{
		GoogleID: info.Id,
		Email:    info.Email,
		Name:     info.Name,
		Picture:  info.Picture,
	}, nil
}
