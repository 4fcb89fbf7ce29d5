package ingestion

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fmuoria/gems-hub/internal/models"
)

var (
	invoiceNumberRe = regexp.MustCompile(`Invoice #(\d+)`)
	orderDateRe     = regexp.MustCompile(`Order date\s+(\d{1,2})(?:st|nd|rd|th)?\s+(\w+)\s+(\d{4})`)
	orderTimeRe     = regexp.MustCompile(`Order time (.+?)(?:\n| invoice)`)
	sellerRe        = regexp.MustCompile(`(?s)SOLD BY.*?\n(.+?)\n(\+\d+)\n([\w@.]+)`)
	buyerRe         = regexp.MustCompile(`(?s)SOLD TO.*?\n(.+?)\n(\+\d+)\n([\w@.]+)`)

	subtotalRe     = regexp.MustCompile(`(?i)Subtotal\s+\$(\d+\.?\d*)\s+USD`)
	shippingCostRe = regexp.MustCompile(`(?i)Shipping\s+\$(\d+\.?\d*)\s+USD`)
	insuranceRe    = regexp.MustCompile(`(?i)Insurance\s+\$(\d+\.?\d*)\s+USD`)
	taxesRe        = regexp.MustCompile(`(?i)Taxes\s+\$(\d+\.?\d*)\s+USD`)
	tariffsRe      = regexp.MustCompile(`(?i)Tari(?:ff|[^\s])s?\s*&\s*Duties\s+\$(\d+\.?\d*)\s+USD`)
	totalRe        = regexp.MustCompile(`(?i)\bTotal\s+\$(\d+\.?\d*)\s+USD`)

	paymentMethodRe     = regexp.MustCompile(`(?i)Payment Method\s+(.+?)(?:\n|$)`)
	shippingProviderRe  = regexp.MustCompile(`(?i)Shipping Provider\s+(.+?)(?:\n|$)`)
	estimatedDeliveryRe = regexp.MustCompile(`(?i)Estimated Delivery\s+(.+?)(?:\n|$)`)
	trackingNumberRe    = regexp.MustCompile(`(?i)Tracking Number\s+(.+?)(?:\n|$)`)
)

// parseHeader reads everything on an invoice except the line items.
// Missing fields are left empty.
func parseHeader(text string) models.Invoice {
	var inv models.Invoice

	inv.Number = firstGroup(invoiceNumberRe, text)
	if m := orderDateRe.FindStringSubmatch(text); m != nil {
		if d, err := time.Parse("2 January 2006", m[1]+" "+m[2]+" "+m[3]); err == nil {
			inv.OrderDate = &d
		}
	}
	inv.OrderTime = firstGroup(orderTimeRe, text)
	inv.Seller = parseParty(sellerRe, text)
	inv.Buyer = parseParty(buyerRe, text)

	inv.Totals = models.InvoiceTotals{
		Subtotal:      amount(subtotalRe, text),
		Shipping:      amount(shippingCostRe, text),
		Insurance:     amount(insuranceRe, text),
		Taxes:         amount(taxesRe, text),
		TariffsDuties: amount(tariffsRe, text),
		Total:         amount(totalRe, text),
	}

	inv.Shipping = models.ShippingInfo{
		PaymentMethod:     firstGroup(paymentMethodRe, text),
		ShippingProvider:  firstGroup(shippingProviderRe, text),
		EstimatedDelivery: firstGroup(estimatedDeliveryRe, text),
		TrackingNumber:    firstGroup(trackingNumberRe, text),
	}

	return inv
}

func parseParty(re *regexp.Regexp, text string) models.Party {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return models.Party{}
	}
	return models.Party{
		Name:  strings.TrimSpace(m[1]),
		Phone: strings.TrimSpace(m[2]),
		Email: strings.TrimSpace(m[3]),
	}
}

func firstGroup(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func amount(re *regexp.Regexp, text string) *float64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}
