package tools

import (
	"context"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/commerce"
	"github.com/Chative-core-poc-v1/commerce-bot/pkg/metrics"
	"github.com/cloudwego/eino/schema"
)

const (
	OrderCreate   = "order_create"
	OrderLookup   = "order_lookup"
	OffersApply   = "offers_apply"
	PaymentCreate = "payment_create"
	PaymentStatus = "payment_status"
)

// PaymentMethods lists the methods payment_create accepts.
var PaymentMethods = []string{"promptpay", "card", "bank_transfer"}

type OrderCreateInput struct {
	IdempotencyKey string           `json:"idempotency_key"`
	CustomerID     string           `json:"customer_id"`
	Items          []model.CartItem `json:"items"`
}

type OrderInput struct {
	OrderID string `json:"order_id"`
}

type OrderOutput struct {
	Order   model.Order `json:"order"`
	Created bool        `json:"created"`
}

type OfferOutput struct {
	Order model.Order  `json:"order"`
	Offer *model.Offer `json:"offer"`
}

type PaymentCreateInput struct {
	OrderID string `json:"order_id"`
	Method  string `json:"method"`
}

type PaymentInput struct {
	PaymentID string `json:"payment_id"`
}

type PaymentOutput struct {
	Payment model.Payment `json:"payment"`
}

func orderIDParam() map[string]*schema.ParameterInfo {
	return map[string]*schema.ParameterInfo{
		"order_id": {Type: schema.String, Desc: "Order id", Required: true},
	}
}

func orderSpecs(b commerce.Backend) []Spec {
	return []Spec{
		{
			Name:   OrderCreate,
			Domain: "ORDER",
			Desc:   "Create an order for the cart. Stock is reserved for every line or for none. Repeating an idempotency key returns the existing order.",
			Params: map[string]*schema.ParameterInfo{
				"idempotency_key": {Type: schema.String, Desc: "Stable key of the cart revision being ordered", Required: true},
				"customer_id":     {Type: schema.String, Desc: "Customer placing the order"},
				"items": {
					Type:     schema.Array,
					Desc:     "Cart lines",
					Required: true,
					ElemInfo: &schema.ParameterInfo{
						Type: schema.Object,
						SubParams: map[string]*schema.ParameterInfo{
							"product_id":        {Type: schema.String, Required: true},
							"quantity":          {Type: schema.Integer, Required: true},
							"variant_selection": {Type: schema.Object, Desc: "Variant name to chosen option"},
						},
					},
				},
			},
			Run: func(ctx context.Context, c Call) (any, error) {
				var in OrderCreateInput
				if err := c.Bind(&in); err != nil {
					return nil, err
				}
				order, created, err := b.Orders.CreateOrder(ctx, c.TenantID, commerce.OrderRequest{
					CustomerID:     in.CustomerID,
					IdempotencyKey: in.IdempotencyKey,
					Items:          in.Items,
				})
				if err != nil {
					return nil, err
				}
				if created {
					metrics.OrdersCreated.Inc()
				}
				return OrderOutput{Order: *order, Created: created}, nil
			},
		},
		{
			Name:   OrderLookup,
			Domain: "ORDER",
			Desc:   "Look up an existing order and its status.",
			Params: orderIDParam(),
			Run: func(ctx context.Context, c Call) (any, error) {
				var in OrderInput
				if err := c.Bind(&in); err != nil {
					return nil, err
				}
				order, err := b.Orders.Order(ctx, c.TenantID, in.OrderID)
				if err != nil {
					return nil, err
				}
				return OrderOutput{Order: *order}, nil
			},
		},
		{
			Name:   OffersApply,
			Domain: "OFFER",
			Desc:   "Apply the best eligible tenant offer to an order.",
			Params: orderIDParam(),
			Run: func(ctx context.Context, c Call) (any, error) {
				var in OrderInput
				if err := c.Bind(&in); err != nil {
					return nil, err
				}
				order, offer, err := b.Offers.ApplyBestOffer(ctx, c.TenantID, in.OrderID)
				if err != nil {
					return nil, err
				}
				return OfferOutput{Order: *order, Offer: offer}, nil
			},
		},
		{
			Name:   PaymentCreate,
			Domain: "PAYMENT",
			Desc:   "Create a payment request for an order and return the payment link.",
			Params: map[string]*schema.ParameterInfo{
				"order_id": {Type: schema.String, Desc: "Order id", Required: true},
				"method":   {Type: schema.String, Desc: "Payment method", Enum: PaymentMethods},
			},
			Run: func(ctx context.Context, c Call) (any, error) {
				var in PaymentCreateInput
				if err := c.Bind(&in); err != nil {
					return nil, err
				}
				p, err := b.Payments.CreatePayment(ctx, c.TenantID, in.OrderID, in.Method)
				if err != nil {
					return nil, err
				}
				return PaymentOutput{Payment: *p}, nil
			},
		},
		{
			Name:   PaymentStatus,
			Domain: "PAYMENT",
			Desc:   "Check the status of a payment request.",
			Params: map[string]*schema.ParameterInfo{
				"payment_id": {Type: schema.String, Desc: "Payment request id", Required: true},
			},
			Run: func(ctx context.Context, c Call) (any, error) {
				var in PaymentInput
				if err := c.Bind(&in); err != nil {
					return nil, err
				}
				p, err := b.Payments.Payment(ctx, c.TenantID, in.PaymentID)
				if err != nil {
					return nil, err
				}
				return PaymentOutput{Payment: *p}, nil
			},
		},
	}
}
