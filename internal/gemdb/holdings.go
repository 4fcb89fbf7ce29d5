package gemdb

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fmuoria/gems-hub/internal/apperr"
	"github.com/fmuoria/gems-hub/internal/models"
)

func holdingsPath(userID string) string {
	return "/api/v1/users/" + url.PathEscape(userID) + "/holdings/"
}

// ListHoldings returns every holding of a user
func (c *Client) ListHoldings(ctx context.Context, userID string) ([]models.Holding, error) {
	if userID == "" {
		return nil, apperr.Validation("user ID is required")
	}

	var env listEnvelope[models.Holding]
	if err := c.do(ctx, "list_holdings", http.MethodGet, holdingsPath(userID), nil, nil, &env); err != nil {
		return nil, err
	}
	return env.Items, nil
}

// CreateHolding adds a holding for a user
func (c *Client) CreateHolding(ctx context.Context, userID string, in models.HoldingInput) (*models.Holding, error) {
	if userID == "" {
		return nil, apperr.Validation("user ID is required")
	}

	var h models.Holding
	if err := c.do(ctx, "create_holding", http.MethodPost, holdingsPath(userID), nil, in, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// UpdateHolding replaces a holding's fields
func (c *Client) UpdateHolding(ctx context.Context, userID string, holdingID int64, in models.HoldingInput) (*models.Holding, error) {
	if userID == "" {
		return nil, apperr.Validation("user ID is required")
	}

	var h models.Holding
	path := fmt.Sprintf("%s%d", holdingsPath(userID), holdingID)
	if err := c.do(ctx, "update_holding", http.MethodPut, path, nil, in, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// DeleteHolding removes a holding
func (c *Client) DeleteHolding(ctx context.Context, userID string, holdingID int64) error {
	if userID == "" {
		return apperr.Validation("user ID is required")
	}

	path := fmt.Sprintf("%s%d", holdingsPath(userID), holdingID)
	return c.do(ctx, "delete_holding", http.MethodDelete, path, nil, nil, nil)
}
