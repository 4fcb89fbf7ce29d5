package ingestion

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/fmuoria/gems-hub/internal/logging"
	"github.com/fmuoria/gems-hub/internal/models"
)

// maxConcurrentLookups bounds parallel product lookups per invoice
const maxConcurrentLookups = 4

// ProductLookup fetches auction product details by product ID
type ProductLookup interface {
	ProductDetails(ctx context.Context, productID string) (*models.ProductDetails, error)
}

// Enrich fills items from the product lookup. Lookup values win for
// clarity, treatment, shape and gem type; title and carat are only
// back-filled where the text gave nothing. Failed lookups leave the item
// as parsed.
func Enrich(ctx context.Context, items []models.InvoiceLineItem, lookup ProductLookup, log *logging.Logger) []models.InvoiceLineItem {
	if lookup == nil || len(items) == 0 {
		return items
	}
	if log == nil {
		log = logging.Nop()
	}

	details := make([]*models.ProductDetails, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for i := range items {
		g.Go(func() error {
			d, err := lookup.ProductDetails(gctx, items[i].ProductID)
			if err != nil {
				log.Warn("product lookup failed", "product_id", items[i].ProductID, "error", err)
				return nil
			}
			details[i] = d
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.InvoiceLineItem, len(items))
	for i, item := range items {
		out[i] = applyDetails(item, details[i])
	}
	return out
}

func applyDetails(item models.InvoiceLineItem, d *models.ProductDetails) models.InvoiceLineItem {
	if d == nil {
		return item
	}

	if d.Clarity != "" {
		item.Clarity = d.Clarity
	}
	if d.Treatment != "" {
		item.Treatment = d.Treatment
	}
	if d.Shape != "" {
		item.Shape = d.Shape
	}
	if d.GemTypeID != 0 {
		item.GemTypeID = d.GemTypeID
	}
	if d.GemTypeName != "" {
		item.GemTypeName = d.GemTypeName
	}

	if item.Description == "" && d.Title != "" {
		item.Description = normalizeWhitespace(d.Title)
	}
	if item.CaratWeight == nil && d.CaratWeight != nil {
		w := *d.CaratWeight
		item.CaratWeight = &w
	}

	return item
}
