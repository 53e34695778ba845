// Package commerce holds the tenant-scoped domain backends reached through tools.
// Every lookup is keyed by (tenant_id, entity_id); an id that exists only under
// another tenant is reported as not found.
package commerce

import (
	"context"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
)

type SearchQuery struct {
	Text     string
	Category string
	Limit    int
}

type Catalog interface {
	Search(ctx context.Context, tenantID string, q SearchQuery) (*model.SearchResult, error)
	Product(ctx context.Context, tenantID, productID string) (*model.Product, error)
}

type OrderRequest struct {
	CustomerID     string
	IdempotencyKey string
	Items          []model.CartItem
}

type Orders interface {
	// CreateOrder reserves stock for every line or for none. A repeated
	// idempotency key returns the existing order with created=false.
	CreateOrder(ctx context.Context, tenantID string, req OrderRequest) (order *model.Order, created bool, err error)
	Order(ctx context.Context, tenantID, orderID string) (*model.Order, error)
}

type Offers interface {
	ApplyBestOffer(ctx context.Context, tenantID, orderID string) (*model.Order, *model.Offer, error)
}

type Payments interface {
	CreatePayment(ctx context.Context, tenantID, orderID, method string) (*model.Payment, error)
	Payment(ctx context.Context, tenantID, paymentID string) (*model.Payment, error)
}

type Knowledge interface {
	SearchArticles(ctx context.Context, tenantID, query string, limit int) ([]model.Article, error)
}

type Consent interface {
	UpdateConsent(ctx context.Context, tenantID, customerID, channel string, optIn bool) error
}

type TenantDirectory interface {
	Resolve(ctx context.Context, tenantID string) (*model.Tenant, error)
}

// Backend groups the collaborators the tool registry dispatches to.
type Backend struct {
	Catalog   Catalog
	Orders    Orders
	Offers    Offers
	Payments  Payments
	Knowledge Knowledge
	Consent   Consent
}

// NewMemoryBackend wires every contract to one MemoryStore.
func NewMemoryBackend(s *MemoryStore) Backend {
	return Backend{
		Catalog:   s,
		Orders:    s,
		Offers:    s,
		Payments:  s,
		Knowledge: s,
		Consent:   s,
	}
}
