package hub

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fmuoria/gems-hub/internal/apperr"
	"github.com/fmuoria/gems-hub/internal/ingestion"
	"github.com/fmuoria/gems-hub/internal/models"
)

// ParseInvoice reads an uploaded GRA invoice PDF. Items are matched
// against the known gem types and enriched from the product API; neither
// step can fail the parse.
func (s *Service) ParseInvoice(ctx context.Context, pdfBytes []byte) (models.Invoice, error) {
	if !ingestion.IsPDF(pdfBytes) {
		return models.Invoice{}, apperr.Validation("unreadable invoice PDF")
	}

	var vocab *ingestion.Vocabulary
	if gems, err := s.loadGems(ctx); err != nil {
		s.log.Warn("gem vocabulary unavailable, items stay unresolved", "error", err)
	} else {
		vocab = ingestion.VocabularyFromGems(gems)
	}

	inv, err := ingestion.NewParser(vocab, s.log).ParsePDF(pdfBytes)
	if err != nil {
		return models.Invoice{}, err
	}
	inv.Items = ingestion.Enrich(ctx, inv.Items, s.gems, s.log)

	s.metrics.ObserveInvoice(len(inv.Items), inv.Skipped())
	s.log.Info("invoice parsed",
		"invoice", inv.Number,
		"items", len(inv.Items),
		"skipped", inv.Skipped())

	return inv, nil
}

// ImportInvoiceItems creates one holding per item. Items that fail are
// reported and do not stop the rest. purchaseDate defaults to today.
func (s *Service) ImportInvoiceItems(ctx context.Context, userID string, items []models.InvoiceLineItem, purchaseDate string) (models.ImportResult, error) {
	if userID == "" {
		return models.ImportResult{}, apperr.Unauthorized("sign in to import invoices")
	}
	if len(items) == 0 {
		return models.ImportResult{}, apperr.Validation("no invoice items to import")
	}

	purchaseDate = strings.TrimSpace(purchaseDate)
	if purchaseDate == "" {
		purchaseDate = time.Now().UTC().Format(time.DateOnly)
	} else if _, err := time.Parse(time.DateOnly, purchaseDate); err != nil {
		return models.ImportResult{}, apperr.Validation("purchase date must be YYYY-MM-DD")
	}

	result := models.ImportResult{Created: []models.Holding{}}
	for _, item := range items {
		in, err := holdingFromItem(item, purchaseDate)
		if err != nil {
			result.Failed = append(result.Failed, models.ImportError{ProductID: item.ProductID, Error: err.Error()})
			continue
		}

		h, err := s.holdings.CreateHolding(ctx, userID, in)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			s.log.Warn("holding import failed", "product_id", item.ProductID, "error", err)
			result.Failed = append(result.Failed, models.ImportError{ProductID: item.ProductID, Error: apperr.MessageOf(err)})
			continue
		}
		result.Created = append(result.Created, *h)
	}

	s.log.Info("invoice items imported", "user_id", userID, "created", len(result.Created), "failed", len(result.Failed))
	return result, nil
}

func holdingFromItem(item models.InvoiceLineItem, purchaseDate string) (models.HoldingInput, error) {
	name := strings.TrimSpace(item.GemTypeName)
	if name == "" {
		return models.HoldingInput{}, fmt.Errorf("gem type could not be resolved")
	}
	if item.PriceUSD < 0 {
		return models.HoldingInput{}, fmt.Errorf("price must not be negative")
	}

	in := models.HoldingInput{
		GemTypeName:   name,
		GemTypeID:     item.GemTypeID,
		PurchasePrice: item.PriceUSD,
		PurchaseDate:  purchaseDate,
		ProductID:     item.ProductID,
		SKU:           item.SKU,
		Description:   item.Description,
	}
	if item.CaratWeight != nil {
		in.WeightCarats = *item.CaratWeight
	}
	return in, nil
}
