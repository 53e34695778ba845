package decision

import (
	"testing"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	"github.com/stretchr/testify/assert"
)

func TestIntentHeuristic(t *testing.T) {
	tests := []struct {
		msg     string
		current model.Journey
		want    model.Journey
		lang    string
	}{
		{"2", model.JourneySales, model.JourneySales, "en"},
		{"yes", model.JourneyGovernance, model.JourneyGovernance, "en"},
		{"where is my order?", model.JourneySales, model.JourneyOrders, "en"},
		{"I want a refund", model.JourneySales, model.JourneySupport, "en"},
		{"can I pay with promptpay", model.JourneySales, model.JourneyPayment, "en"},
		{"please unsubscribe me", model.JourneySales, model.JourneyGovernance, "en"},
		{"ขอดูมือถือหน่อย", model.JourneySupport, model.JourneySales, "th"},
		{"Black", model.JourneySales, model.JourneySales, "en"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			d := IntentHeuristic(IntentInput{Message: tt.msg, CurrentJourney: tt.current})
			assert.Equal(t, tt.want, d.Journey)
			assert.Equal(t, tt.lang, d.Language)
			assert.NotEmpty(t, d.Reasoning)
		})
	}
}

func TestNarrowQueryHeuristic(t *testing.T) {
	tests := []struct {
		msg    string
		action model.NarrowAction
		query  string
	}{
		{"show me products", model.NarrowClarify, ""},
		{"What do you sell?", model.NarrowClarify, ""},
		{"I'm looking for a gaming laptop", model.NarrowSearch, "gaming laptop"},
		{"มีมือถืออะไรบ้าง", model.NarrowSearch, "มือถือ"},
		{"ขอดูสินค้าหน่อย", model.NarrowClarify, ""},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			d := NarrowQueryHeuristic(NarrowQueryInput{Message: tt.msg})
			assert.Equal(t, tt.action, d.Action)
			assert.Equal(t, tt.query, d.Query)
			if tt.action == model.NarrowClarify {
				assert.NotEmpty(t, d.Question)
			}
		})
	}
}

var iphone = model.Product{
	ID: "prod-001", Name: "iPhone 15 Pro", Price: 39900, Stock: 3,
	Variants: []model.Variant{
		{Name: "storage", Options: []string{"128GB", "256GB", "512GB"}},
		{Name: "color", Options: []string{"Natural Titanium", "Blue Titanium"}},
	},
}

func TestDisambiguateHeuristic(t *testing.T) {
	d := DisambiguateHeuristic(DisambiguateInput{Message: "256GB Blue Titanium x2", Product: iphone})
	assert.Equal(t, model.DisambiguateProceed, d.Action)
	assert.Equal(t, 2, d.Quantity)
	assert.Equal(t, map[string]string{"storage": "256GB", "color": "Blue Titanium"}, d.VariantSelection)

	d = DisambiguateHeuristic(DisambiguateInput{Message: "blue titanium", Product: iphone})
	assert.Equal(t, model.DisambiguateGatherInfo, d.Action)
	assert.Contains(t, d.Question, "storage")
	assert.Equal(t, "Blue Titanium", d.VariantSelection["color"])

	d = DisambiguateHeuristic(DisambiguateInput{Message: "natural titanium", Product: iphone, Known: map[string]string{"storage": "512gb"}})
	assert.Equal(t, model.DisambiguateProceed, d.Action)
	assert.Equal(t, 1, d.Quantity)
	assert.Equal(t, "512GB", d.VariantSelection["storage"])

	d = DisambiguateHeuristic(DisambiguateInput{Message: "128GB Blue Titanium 5", Product: iphone})
	assert.Equal(t, model.DisambiguateGatherInfo, d.Action)
	assert.Contains(t, d.Question, "only 3")

	d = DisambiguateHeuristic(DisambiguateInput{Message: "150", Product: model.Product{ID: "p", Name: "Cable", Stock: 500}})
	assert.Equal(t, model.DisambiguateGatherInfo, d.Action)
	assert.Contains(t, d.Question, "1 to 99")

	d = DisambiguateHeuristic(DisambiguateInput{Message: "เอา 2ชิ้น", Product: model.Product{ID: "p", Name: "Cable", Stock: 5}})
	assert.Equal(t, model.DisambiguateProceed, d.Action)
	assert.Equal(t, 2, d.Quantity)
	assert.Nil(t, d.VariantSelection)
}

func TestCatalogLinkRule(t *testing.T) {
	p := model.DefaultPolicy()
	tests := []struct {
		name   string
		s      CatalogLinkSignals
		want   bool
		reason string
	}{
		{"nothing fires", CatalogLinkSignals{Total: 12, Query: "gaming laptop", Confidence: 0.9}, false, ""},
		{"many matches with vague query", CatalogLinkSignals{Total: 50, Query: "laptop", Confidence: 0.9}, true, LinkManyMatches},
		{"many matches but specific", CatalogLinkSignals{Total: 80, Query: "gaming laptop", Confidence: 0.9}, false, ""},
		{"low confidence", CatalogLinkSignals{Total: 3, Query: "gaming laptop", Confidence: 0.2}, true, LinkLowConfidence},
		{"visual", CatalogLinkSignals{Total: 3, Query: "shirt", Message: "what colors do you have", Confidence: 0.9}, true, LinkVisualNeeds},
		{"rejections", CatalogLinkSignals{Total: 3, Query: "gaming laptop", Confidence: 0.9, Rejections: 2}, true, LinkRepeatedRejections},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := CatalogLinkRule(p, tt.s)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.reason, reason)
		})
	}
}
