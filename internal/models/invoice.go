package models

import "time"

// InvoiceLineItem is one purchased item extracted from an auction invoice.
// It only lives for the duration of a parse request.
type InvoiceLineItem struct {
	ProductID   string   `json:"product_id"`
	SKU         string   `json:"sku,omitempty"`
	CaratWeight *float64 `json:"carat_weight,omitempty"`
	PriceUSD    float64  `json:"price_usd"`
	Description string   `json:"description"`
	GemTypeName string   `json:"gem_type_name,omitempty"`
	GemTypeID   int      `json:"gem_type_id,omitempty"`

	// Filled by product lookup enrichment only
	Clarity   string `json:"clarity,omitempty"`
	Treatment string `json:"treatment,omitempty"`
	Shape     string `json:"shape,omitempty"`
}

// Party is the seller or buyer block of an invoice
type Party struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// InvoiceTotals holds the money summary at the bottom of an invoice
type InvoiceTotals struct {
	Subtotal      *float64 `json:"subtotal,omitempty"`
	Shipping      *float64 `json:"shipping,omitempty"`
	Insurance     *float64 `json:"insurance,omitempty"`
	Taxes         *float64 `json:"taxes,omitempty"`
	TariffsDuties *float64 `json:"tariffs_duties,omitempty"`
	Total         *float64 `json:"total,omitempty"`
}

// ShippingInfo holds payment and delivery details of an invoice
type ShippingInfo struct {
	PaymentMethod     string `json:"payment_method,omitempty"`
	ShippingProvider  string `json:"shipping_provider,omitempty"`
	EstimatedDelivery string `json:"estimated_delivery,omitempty"`
	TrackingNumber    string `json:"tracking_number,omitempty"`
}

// Invoice is the structured result of parsing an invoice's text
type Invoice struct {
	Number      string            `json:"invoice_number,omitempty"`
	OrderDate   *time.Time        `json:"order_date,omitempty"`
	OrderTime   string            `json:"order_time,omitempty"`
	Seller      Party             `json:"seller"`
	Buyer       Party             `json:"buyer"`
	Items       []InvoiceLineItem `json:"items"`
	Totals      InvoiceTotals     `json:"totals"`
	Shipping    ShippingInfo      `json:"shipping_info"`
	MarkerCount int               `json:"product_markers"` // "Product ID:" occurrences
}

// Skipped returns how many product blocks could not be turned into items
func (inv Invoice) Skipped() int {
	if n := inv.MarkerCount - len(inv.Items); n > 0 {
		return n
	}
	return 0
}

// ProductDetails is what the upstream product lookup knows about an auction product
type ProductDetails struct {
	ProductID   string   `json:"product_id"`
	Title       string   `json:"title,omitempty"`
	CaratWeight *float64 `json:"carat_weight,omitempty"`
	Clarity     string   `json:"clarity,omitempty"`
	Treatment   string   `json:"treatment,omitempty"`
	Shape       string   `json:"shape,omitempty"`
	GemTypeID   int      `json:"gem_type_id,omitempty"`
	GemTypeName string   `json:"gem_type_name,omitempty"`
}
