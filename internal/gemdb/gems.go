package gemdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/fmuoria/gems-hub/internal/apperr"
	"github.com/fmuoria/gems-hub/internal/models"
)

// listEnvelope accepts either a bare JSON array or an object wrapping one
type listEnvelope[T any] struct {
	Items []T
}

func (l *listEnvelope[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &l.Items)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	for _, key := range []string{"items", "data", "results", "gems", "listings", "holdings"} {
		if raw, ok := obj[key]; ok {
			return json.Unmarshal(raw, &l.Items)
		}
	}
	return nil
}

// ListGems returns up to limit gem types
func (c *Client) ListGems(ctx context.Context, limit int) ([]models.GemType, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var env listEnvelope[models.GemType]
	if err := c.do(ctx, "list_gems", http.MethodGet, "/api/v1/gems/", q, nil, &env); err != nil {
		return nil, err
	}
	return env.Items, nil
}

// GetGem finds a gem type by case-insensitive name
func (c *Client) GetGem(ctx context.Context, name string, limit int) (*models.GemType, error) {
	gems, err := c.ListGems(ctx, limit)
	if err != nil {
		return nil, err
	}
	if g := FindGem(gems, name); g != nil {
		return g, nil
	}
	return nil, apperr.NotFound(fmt.Sprintf("gem type %q not found", name))
}

// FindGem returns the gem whose name matches name ignoring case and
// surrounding space
func FindGem(gems []models.GemType, name string) *models.GemType {
	name = strings.TrimSpace(name)
	for i := range gems {
		if strings.EqualFold(strings.TrimSpace(gems[i].Name), name) {
			g := gems[i]
			return &g
		}
	}
	return nil
}

// ListListings returns marketplace listings for a gem type
func (c *Client) ListListings(ctx context.Context, gemTypeName string, limit int) ([]models.Listing, error) {
	q := url.Values{}
	q.Set("gem_type", gemTypeName)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var env listEnvelope[models.Listing]
	if err := c.do(ctx, "list_listings", http.MethodGet, "/api/v1/listings/", q, nil, &env); err != nil {
		return nil, err
	}
	return env.Items, nil
}

// ProductDetails looks up an auction product by its ID
func (c *Client) ProductDetails(ctx context.Context, productID string) (*models.ProductDetails, error) {
	if productID == "" {
		return nil, apperr.Validation("product ID is required")
	}

	var d models.ProductDetails
	if err := c.do(ctx, "get_product", http.MethodGet, "/api/v1/products/"+url.PathEscape(productID), nil, nil, &d); err != nil {
		return nil, err
	}
	if d.ProductID == "" {
		d.ProductID = productID
	}
	return &d, nil
}

// HealthStatus is the upstream health probe result
type HealthStatus struct {
	OK         bool                   `json:"ok"`
	StatusCode int                    `json:"status_code"`
	Body       map[string]interface{} `json:"body,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// Health probes the upstream /health endpoint. It never returns an error;
// failures are reported in the status.
func (c *Client) Health(ctx context.Context) HealthStatus {
	var body map[string]interface{}
	status, err := c.send(ctx, http.MethodGet, c.baseURL+"/health", nil, &body)
	c.observe("health", status)
	if err != nil {
		return HealthStatus{StatusCode: status, Error: err.Error()}
	}
	return HealthStatus{OK: true, StatusCode: status, Body: body}
}
