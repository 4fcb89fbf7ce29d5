package ingestion

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fmuoria/gems-hub/internal/logging"
	"github.com/fmuoria/gems-hub/internal/models"
)

// Gem Rock Auctions invoices list each item as a title line, a line with the
// quantity, SKU and price, and then the "Product ID:" marker that closes it.
var (
	productIDRe      = regexp.MustCompile(`Product ID:\s*(\d+)`)
	itemPriceRe      = regexp.MustCompile(`\$(\d+\.?\d*)\s+USD`)
	skuRe            = regexp.MustCompile(`SKU:\s*([A-Z0-9-]+)`)
	classicTitleRe   = regexp.MustCompile(`(?i)(\d+\.?\d*)\s+Ct\s+([^\n]+)`)
	noReserveTitleRe = regexp.MustCompile(`(?i)NO RESERVE\s+(\d+\.?\d*)\s+CARAT\s+([^\n]+)`)
	looseCaratRe     = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*(?:Ct|Carat|cts)`)
	whitespaceRe     = regexp.MustCompile(`\s+`)
)

// Parser turns invoice text into structured items
type Parser struct {
	vocab *Vocabulary
	log   *logging.Logger
}

// NewParser creates a new invoice parser. vocab may be nil, in which case
// items are left without a gem type.
func NewParser(vocab *Vocabulary, log *logging.Logger) *Parser {
	if log == nil {
		log = logging.Nop()
	}
	return &Parser{vocab: vocab, log: log}
}

// Parse extracts the header, line items and totals from invoice text
func (p *Parser) Parse(text string) models.Invoice {
	inv := parseHeader(text)
	inv.Items, inv.MarkerCount = p.ExtractLineItems(text)
	return inv
}

// ParsePDF extracts the text of a PDF and parses it. Only an unreadable
// document is an error; an invoice without items is not.
func (p *Parser) ParsePDF(data []byte) (models.Invoice, error) {
	text, err := ExtractPDFText(data)
	if err != nil {
		return models.Invoice{}, err
	}
	return p.Parse(text), nil
}

// ExtractLineItems returns the items found in text and the number of
// "Product ID:" markers seen. Blocks without a price are dropped.
func (p *Parser) ExtractLineItems(text string) ([]models.InvoiceLineItem, int) {
	markers := productIDRe.FindAllStringSubmatchIndex(text, -1)
	items := make([]models.InvoiceLineItem, 0, len(markers))

	start := 0
	for _, m := range markers {
		productID := text[m[2]:m[3]]
		block := text[start:m[0]]
		start = m[1]

		item, ok := p.parseBlock(block)
		if !ok {
			p.log.Debug("skipping invoice block without price", "product_id", productID)
			continue
		}
		item.ProductID = productID
		items = append(items, item)
	}

	return items, len(markers)
}

func (p *Parser) parseBlock(block string) (models.InvoiceLineItem, bool) {
	var item models.InvoiceLineItem

	price := itemPriceRe.FindStringSubmatch(block)
	if price == nil {
		return item, false
	}
	v, err := strconv.ParseFloat(price[1], 64)
	if err != nil {
		return item, false
	}
	item.PriceUSD = v

	if sku := skuRe.FindStringSubmatch(block); sku != nil {
		item.SKU = sku[1]
	}

	var title string
	if m := classicTitleRe.FindStringSubmatch(block); m != nil {
		item.CaratWeight = parseCarat(m[1])
		title = m[2]
	} else if m := noReserveTitleRe.FindStringSubmatch(block); m != nil {
		item.CaratWeight = parseCarat(m[1])
		title = m[2]
	} else {
		title = block
		if m := looseCaratRe.FindStringSubmatch(block); m != nil {
			item.CaratWeight = parseCarat(m[1])
		}
	}
	item.Description = normalizeWhitespace(title)

	if e, ok := p.vocab.Resolve(item.Description); ok {
		item.GemTypeName = e.Name
		item.GemTypeID = e.ID
	}

	return item, true
}

func parseCarat(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func normalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
