package decision

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedModel struct {
	replies []string
	errs    []error
	calls   int
}

func (m *scriptedModel) Generate(_ context.Context, _ []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	content := ""
	if i < len(m.replies) {
		content = m.replies[i]
	}
	msg := schema.AssistantMessage(content, nil)
	msg.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 1000, CompletionTokens: 100, TotalTokens: 1100}}
	return msg, nil
}

func (m *scriptedModel) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

type fakeBudget struct {
	allow   bool
	err     error
	charged float64
}

func (b *fakeBudget) Allow(context.Context, string) (bool, error) { return b.allow, b.err }

func (b *fakeBudget) Charge(_ context.Context, _ string, usd float64) error {
	b.charged += usd
	return nil
}

func testConfig() model.DecisionModelConfig {
	return model.DecisionModelConfig{Model: "gemini-2.5-flash-lite", Retries: 1}
}

const tenant = "5f0c1a52-7d3e-4b8a-9c21-6e4f2b7a9d10"

func TestHeuristicOnlyEngine(t *testing.T) {
	out := Heuristic().NarrowQuery(context.Background(), tenant, NarrowQueryInput{Message: "show me products"})
	assert.Equal(t, model.SourceHeuristic, out.Source)
	assert.Equal(t, model.FallbackUnavailable, out.Fallback)
	assert.Equal(t, model.NarrowClarify, out.Value.Action)
	assert.Contains(t, out.Value.Question, "What kind of product")
	assert.NotEmpty(t, out.Value.Reasoning)
}

func TestBudgetRejectionMakesNoCall(t *testing.T) {
	chat := &scriptedModel{replies: []string{`{"action":"search","query":"laptop"}`}}
	e := NewEngine(chat, &fakeBudget{allow: false}, testConfig())

	out := e.NarrowQuery(context.Background(), tenant, NarrowQueryInput{Message: "cheap laptop"})
	assert.Equal(t, 0, chat.calls)
	assert.Equal(t, model.FallbackBudget, out.Fallback)
	assert.Equal(t, model.NarrowSearch, out.Value.Action)
	assert.Equal(t, "cheap laptop", out.Value.Query)

	e = NewEngine(chat, &fakeBudget{err: errors.New("redis down")}, testConfig())
	out = e.NarrowQuery(context.Background(), tenant, NarrowQueryInput{Message: "cheap laptop"})
	assert.Equal(t, 0, chat.calls)
	assert.Equal(t, model.FallbackBudget, out.Fallback)
}

func TestMalformedReplyIsRetriedOnce(t *testing.T) {
	chat := &scriptedModel{replies: []string{"sure, searching now", "```json\n{\"action\":\"search\",\"query\":\"gaming laptop\",\"reasoning\":\"specific\"}\n```"}}
	budget := &fakeBudget{allow: true}
	e := NewEngine(chat, budget, testConfig())

	out := e.NarrowQuery(context.Background(), tenant, NarrowQueryInput{Message: "gaming laptop"})
	assert.Equal(t, 2, chat.calls)
	assert.Equal(t, model.SourceLLM, out.Source)
	assert.Equal(t, "gaming laptop", out.Value.Query)
	assert.InDelta(t, 0.00028, out.CostUSD, 1e-9)
	assert.InDelta(t, 0.00028, budget.charged, 1e-9)
}

func TestFallbackAfterRetries(t *testing.T) {
	tests := []struct {
		name   string
		chat   *scriptedModel
		reason model.FallbackReason
	}{
		{"malformed", &scriptedModel{replies: []string{"{", `{"query":"x"}`}}, model.FallbackMalformed},
		{"transport", &scriptedModel{errs: []error{errors.New("503"), fmt.Errorf("deadline: %w", context.DeadlineExceeded)}}, model.FallbackError},
		{"bad action", &scriptedModel{replies: []string{`{"action":"browse"}`, `{"action":"browse"}`}}, model.FallbackMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(tt.chat, &fakeBudget{allow: true}, testConfig())
			out := e.NarrowQuery(context.Background(), tenant, NarrowQueryInput{Message: "show me products"})
			assert.Equal(t, 2, tt.chat.calls)
			assert.Equal(t, model.SourceHeuristic, out.Source)
			assert.Equal(t, tt.reason, out.Fallback)
			assert.Equal(t, model.NarrowClarify, out.Value.Action)
		})
	}
}

func candidates(n int) []model.ProductSummary {
	out := make([]model.ProductSummary, n)
	for i := range out {
		out[i] = model.ProductSummary{ID: fmt.Sprintf("p-%02d", i+1), Name: fmt.Sprintf("Item %d", i+1), Price: float64(100 * (i + 1)), InStock: true}
	}
	return out
}

func TestPresentOptionsLLMIsConstrained(t *testing.T) {
	reply := `{"presentation_text":"Top picks","show_catalog_link":false,"selected_products":[
		{"product_id":"p-09","position":1,"name":"wrong","price":1},
		{"product_id":"evil","position":2},
		{"product_id":"p-01","position":3},
		{"product_id":"p-01","position":4},
		{"product_id":"p-02","position":5},{"product_id":"p-03","position":6},{"product_id":"p-04","position":7},
		{"product_id":"p-05","position":8},{"product_id":"p-06","position":9},{"product_id":"p-07","position":10}
	],"total_shown":10,"has_more_results":false}`
	e := NewEngine(&scriptedModel{replies: []string{reply}}, &fakeBudget{allow: true}, testConfig())

	out := e.PresentOptions(context.Background(), tenant, PresentOptionsInput{
		Query:              "item",
		Total:              40,
		Candidates:         candidates(12),
		SuggestCatalogLink: true,
		CatalogLinkReason:  LinkVisualNeeds,
	})
	require.Equal(t, model.SourceLLM, out.Source)
	d := out.Value
	require.Len(t, d.SelectedProducts, model.MaxShortlist)
	assert.Equal(t, "p-09", d.SelectedProducts[0].ProductID)
	assert.Equal(t, "Item 9", d.SelectedProducts[0].Name)
	assert.Equal(t, 900.0, d.SelectedProducts[0].Price)
	for i, p := range d.SelectedProducts {
		assert.Equal(t, i+1, p.Position)
		assert.NotEqual(t, "evil", p.ProductID)
	}
	assert.Equal(t, 6, d.TotalShown)
	assert.True(t, d.HasMoreResults)
	assert.True(t, d.ShowCatalogLink)
	assert.Equal(t, LinkVisualNeeds, d.CatalogLinkReason)
}

func TestPresentOptionsHeuristicCapsShortlist(t *testing.T) {
	for _, n := range []int{0, 1, 6, 7, 50} {
		c := candidates(n)
		if n > 2 {
			c[0].InStock = false
		}
		d := PresentOptionsHeuristic(PresentOptionsInput{Query: "item", Total: n, Candidates: c})
		assert.LessOrEqual(t, len(d.SelectedProducts), model.MaxShortlist)
		assert.Equal(t, len(d.SelectedProducts), d.TotalShown)
		assert.Equal(t, n > model.MaxShortlist, d.HasMoreResults)
		if n > 2 {
			assert.NotEqual(t, "p-01", d.SelectedProducts[0].ProductID, "out of stock items go last")
		}
	}
}
