package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fmuoria/gems-hub/internal/apperr"
	"github.com/fmuoria/gems-hub/internal/export"
	"github.com/fmuoria/gems-hub/internal/hub"
	"github.com/fmuoria/gems-hub/internal/ingestion"
	"github.com/fmuoria/gems-hub/internal/models"
)

func holdingID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("holding id must be a positive integer")
	}
	return id, nil
}

func bindHolding(c *gin.Context) (models.HoldingInput, error) {
	var in models.HoldingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		return in, apperr.Wrap(err, apperr.KindValidation, "invalid request body")
	}
	return in, nil
}

func (s *Server) handleHoldings(c *gin.Context) {
	holdings, err := s.hub.Holdings(c.Request.Context(), currentUser(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if holdings == nil {
		holdings = []models.Holding{}
	}
	c.JSON(http.StatusOK, gin.H{"holdings": holdings, "count": len(holdings)})
}

func (s *Server) handleAddHolding(c *gin.Context) {
	in, err := bindHolding(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	h, err := s.hub.AddHolding(c.Request.Context(), currentUser(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h)
}

func (s *Server) handleUpdateHolding(c *gin.Context) {
	id, err := holdingID(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	in, err := bindHolding(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	h, err := s.hub.UpdateHolding(c.Request.Context(), currentUser(c), id, in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h)
}

func (s *Server) handleRemoveHolding(c *gin.Context) {
	id, err := holdingID(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.hub.RemoveHolding(c.Request.Context(), currentUser(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handlePortfolioStats(c *gin.Context) {
	stats, err := s.hub.PortfolioStats(c.Request.Context(), currentUser(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handlePortfolioExport(c *gin.Context) {
	ctx := c.Request.Context()
	holdings, err := s.hub.Holdings(ctx, currentUser(c))
	if err != nil {
		s.respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WritePortfolio(&buf, holdings, hub.ComputeStats(holdings)); err != nil {
		s.respondError(c, err)
		return
	}
	s.sendWorkbook(c, "gem_portfolio", buf.Bytes())
}

// handleParseInvoice accepts a multipart "file" upload. Anything that is
// not a readable PDF is answered with 422.
func (s *Server) handleParseInvoice(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondErrorStatus(c, http.StatusRequestEntityTooLarge, apperr.Wrap(err, apperr.KindValidation, "invoice file is too large"))
			return
		}
		s.respondError(c, apperr.Wrap(err, apperr.KindValidation, "missing invoice file"))
		return
	}

	f, err := fh.Open()
	if err != nil {
		s.respondError(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !ingestion.IsPDF(data) {
		s.respondErrorStatus(c, http.StatusUnprocessableEntity, apperr.Validation("uploaded file is not a PDF"))
		return
	}
	if s.cfg.Invoices != nil {
		if _, err := s.cfg.Invoices.Save(fh.Filename, bytes.NewReader(data)); err != nil {
			s.log.Warn("invoice not archived", "file", fh.Filename, "error", err)
		}
	}

	inv, err := s.hub.ParseInvoice(c.Request.Context(), data)
	if apperr.Is(err, apperr.KindValidation) {
		s.respondErrorStatus(c, http.StatusUnprocessableEntity, err)
		return
	}
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.log.Info("invoice uploaded", "file", fh.Filename, "bytes", len(data), "items", len(inv.Items),
		"user_id", currentUser(c), "request_id", c.GetString(requestIDKey))
	c.JSON(http.StatusOK, inv)
}

type importRequest struct {
	Items        []models.InvoiceLineItem `json:"items"`
	PurchaseDate string                   `json:"purchase_date"`
}

func (s *Server) handleImportInvoice(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, apperr.Wrap(err, apperr.KindValidation, "invalid request body"))
		return
	}

	result, err := s.hub.ImportInvoiceItems(c.Request.Context(), currentUser(c), req.Items, req.PurchaseDate)
	if err != nil {
		s.respondError(c, err)
		return
	}

	status := http.StatusCreated
	if len(result.Created) == 0 {
		status = http.StatusOK
	}
	c.JSON(status, result)
}
