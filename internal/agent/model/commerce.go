package model

import "time"

// Tenant is a merchant account. Only active tenants may run tools.
type Tenant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
	// CatalogURL is the full catalog link offered when a shortlist is not enough.
	CatalogURL string `json:"catalog_url"`
	Currency   string `json:"currency"`
}

// Variant is one purchasable option group, e.g. size or color.
type Variant struct {
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

type Product struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	Keywords    []string  `json:"keywords,omitempty"`
	Variants    []Variant `json:"variants,omitempty"`
	Stock       int       `json:"stock"`
}

// InStock reports whether at least one unit can be ordered.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// ProductSummary is the search-result projection of a product.
type ProductSummary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	InStock  bool    `json:"in_stock"`
	Score    float64 `json:"score"`
}

type SearchResult struct {
	Products   []ProductSummary `json:"products"`
	Total      int              `json:"total"`
	// Confidence in [0,1] says how well the best hit matches the query.
	Confidence float64          `json:"confidence"`
}

type OrderLine struct {
	ProductID        string            `json:"product_id"`
	Name             string            `json:"name"`
	Quantity         int               `json:"quantity"`
	UnitPrice        float64           `json:"unit_price"`
	VariantSelection map[string]string `json:"variant_selection,omitempty"`
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
)

type OrderTotals struct {
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`
}

type Order struct {
	ID             string      `json:"id"`
	TenantID       string      `json:"tenant_id"`
	CustomerID     string      `json:"customer_id,omitempty"`
	IdempotencyKey string      `json:"idempotency_key"`
	Lines          []OrderLine `json:"lines"`
	Totals         OrderTotals `json:"totals"`
	OfferCode      string      `json:"offer_code,omitempty"`
	Status         OrderStatus `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Offer is a tenant promotion; MinSubtotal gates eligibility.
type Offer struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Percent     float64 `json:"percent"`
	MinSubtotal float64 `json:"min_subtotal"`
}

type PaymentStatus string

const (
	PaymentNone    PaymentStatus = ""
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type Payment struct {
	ID       string        `json:"id"`
	TenantID string        `json:"tenant_id"`
	OrderID  string        `json:"order_id"`
	Amount   float64       `json:"amount"`
	Currency string        `json:"currency"`
	Method   string        `json:"method"`
	URL      string        `json:"url"`
	Status   PaymentStatus `json:"status"`
}

// Article is a knowledge-base entry.
type Article struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenant_id"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Tags     []string `json:"tags,omitempty"`
}
