package tools

import (
	"context"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/commerce"
	errx "github.com/Chative-core-poc-v1/commerce-bot/internal/core/error"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/handoff"
	"github.com/cloudwego/eino/schema"
)

const (
	KnowledgeSearch = "kb_search"
	ConsentUpdate   = "consent_update"
	HandoffCreate   = "handoff_create"
)

type KnowledgeInput struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type KnowledgeOutput struct {
	Articles []model.Article `json:"articles"`
	Total    int             `json:"total"`
}

type ConsentInput struct {
	CustomerID string `json:"customer_id"`
	Channel    string `json:"channel"`
	OptIn      bool   `json:"opt_in"`
}

type HandoffOutput struct {
	HandoffID string `json:"handoff_id"`
}

func supportSpecs(b commerce.Backend, publisher handoff.Publisher) []Spec {
	return []Spec{
		{
			Name:   KnowledgeSearch,
			Domain: "KNOWLEDGE",
			Desc:   "Search the tenant's help articles (shipping, returns, warranty).",
			Params: map[string]*schema.ParameterInfo{
				"query": {Type: schema.String, Desc: "Customer question", Required: true},
				"limit": {Type: schema.Integer, Desc: "Maximum articles to return (default 3)"},
			},
			Run: func(ctx context.Context, c Call) (any, error) {
				var in KnowledgeInput
				if err := c.Bind(&in); err != nil {
					return nil, err
				}
				if in.Limit <= 0 {
					in.Limit = 3
				}
				arts, err := b.Knowledge.SearchArticles(ctx, c.TenantID, in.Query, in.Limit)
				if err != nil {
					return nil, err
				}
				if arts == nil {
					arts = []model.Article{}
				}
				return KnowledgeOutput{Articles: arts, Total: len(arts)}, nil
			},
		},
		{
			Name:   ConsentUpdate,
			Domain: "CONSENT",
			Desc:   "Record a customer's marketing opt-in or opt-out for a channel.",
			Params: map[string]*schema.ParameterInfo{
				"customer_id": {Type: schema.String, Desc: "Customer id", Required: true},
				"channel":     {Type: schema.String, Desc: "Messaging channel, e.g. line, whatsapp", Required: true},
				"opt_in":      {Type: schema.Boolean, Desc: "true to opt in, false to opt out", Required: true},
			},
			Run: func(ctx context.Context, c Call) (any, error) {
				var in ConsentInput
				if err := c.Bind(&in); err != nil {
					return nil, err
				}
				if err := b.Consent.UpdateConsent(ctx, c.TenantID, in.CustomerID, in.Channel, in.OptIn); err != nil {
					return nil, err
				}
				return in, nil
			},
		},
		{
			Name:   HandoffCreate,
			Domain: "HANDOFF",
			Desc:   "Hand the conversation over to a human agent with a structured summary.",
			Params: map[string]*schema.ParameterInfo{
				"reason":   {Type: schema.String, Desc: "Escalation reason", Required: true},
				"priority": {Type: schema.String, Desc: "Queue priority", Required: true, Enum: []string{"low", "medium", "high", "urgent"}},
				"category": {Type: schema.String, Desc: "Routing category", Required: true},
				"context":  {Type: schema.Object, Desc: "Conversation snapshot for the agent", Required: true},
			},
			Run: func(ctx context.Context, c Call) (any, error) {
				if publisher == nil {
					return nil, errx.Upstream(nil, "handoff publisher is not configured")
				}
				var payload model.HandoffPayload
				if err := c.Bind(&payload); err != nil {
					return nil, err
				}
				id, err := publisher.Publish(ctx, c.TenantID, c.ConversationID, payload)
				if err != nil {
					return nil, errx.Upstream(err, "handoff publish failed")
				}
				return HandoffOutput{HandoffID: id}, nil
			},
		},
	}
}
