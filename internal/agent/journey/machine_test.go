package journey

import (
	"context"
	"sync"
	"testing"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/decision"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/escalation"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/commerce"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/handoff"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder wraps the real invoker, counts calls and can inject failures.
type recorder struct {
	next ToolExecutor

	mu    sync.Mutex
	calls map[string]int
	fail  map[string]string
	panic map[string]bool
}

func (r *recorder) Execute(ctx context.Context, name string, args map[string]any) model.ToolResponse {
	r.mu.Lock()
	r.calls[name]++
	code, failing := r.fail[name]
	boom := r.panic[name]
	r.mu.Unlock()
	if boom {
		panic("backend exploded")
	}
	if failing {
		return model.ToolFail(code, "injected failure")
	}
	return r.next.Execute(ctx, name, args)
}

func (r *recorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[name]
}

type fixture struct {
	m     *Machine
	store *commerce.MemoryStore
	tools *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := commerce.NewMemoryStore(commerce.WithPaymentBaseURL("https://pay.test"))
	require.NoError(t, commerce.SeedDemo(context.Background(), store))
	tenants := commerce.NewMemoryTenants(commerce.DemoTenants()...)
	rec := &recorder{
		next:  tools.New(commerce.NewMemoryBackend(store), tenants, handoff.NewMemoryPublisher()),
		calls: map[string]int{},
		fail:  map[string]string{},
		panic: map[string]bool{},
	}
	m := New(Deps{
		Tools:   rec,
		Decider: decision.Heuristic(),
		Tenants: tenants,
		Policy:  model.DefaultPolicy(),
	})
	return &fixture{m: m, store: store, tools: rec}
}

func newConversation() *model.ConversationState {
	st := model.NewConversationState(commerce.DemoTenantID, uuid.NewString())
	st.Normalize()
	return st
}

func (f *fixture) say(t *testing.T, st *model.ConversationState, msg string) Result {
	t.Helper()
	st.BeginTurn(uuid.NewString(), msg)
	res := f.m.Run(context.Background(), st)
	require.True(t, st.Journey.HasStep(st.Step), "step %q not in journey %q", st.Step, st.Journey)
	require.NoError(t, st.Validate())
	return res
}

func TestHandlersAreExhaustive(t *testing.T) {
	m := New(Deps{})
	for _, j := range model.Journeys {
		for _, s := range j.Steps() {
			assert.NotNil(t, m.handler(j, s), "%s/%s has no handler", j, s)
		}
	}
	assert.Nil(t, m.handler(model.JourneySales, "checkout"))
}

func TestVagueRequestAsksForClarification(t *testing.T) {
	f := newFixture(t)
	st := newConversation()

	f.say(t, st, "show me products")
	assert.Equal(t, model.JourneySales, st.Journey)
	assert.Equal(t, model.StepAwaitingClarification, st.Step)
	assert.Contains(t, st.ResponseText, "What kind of product")
	assert.Equal(t, 1, st.Escalation.ClarificationLoops)
	assert.Zero(t, f.tools.count(tools.CatalogSearch))

	f.say(t, st, "laptop")
	assert.Equal(t, model.StepAwaitingSelection, st.Step)
	assert.Equal(t, 0, st.Escalation.ClarificationLoops)
	assert.Equal(t, "laptop", st.LastSearchQuery)
	require.Len(t, st.PresentedProducts, 5)
	assert.Equal(t, "prod-003", st.PresentedProducts[4].ProductID, "out of stock items go last")
	assert.Contains(t, st.ResponseText, "1. ")
	assert.Contains(t, st.ResponseText, "from 1 to 5")
}

func TestOrdinalSelectsPresentedProduct(t *testing.T) {
	f := newFixture(t)
	st := newConversation()
	st.Step = model.StepAwaitingSelection
	st.PresentedProducts = []model.PresentedProduct{
		{ProductID: "prod-004", Position: 1, Name: "AirPods Pro (3rd generation)", Price: 8900},
		{ProductID: "prod-006", Position: 2, Name: "Sony WH-1000XM5", Price: 12900},
	}

	f.say(t, st, "2")
	assert.Equal(t, model.StepGetItemDetails, st.Step)
	assert.Equal(t, []string{"prod-006"}, st.SelectedItemIDs)
	assert.Contains(t, st.ResponseText, "Sony WH-1000XM5")
	assert.Contains(t, st.ResponseText, "฿12,900")
}

func TestSelectionFallsThrough(t *testing.T) {
	f := newFixture(t)
	st := newConversation()
	st.Step = model.StepAwaitingSelection
	st.PresentedProducts = []model.PresentedProduct{
		{ProductID: "prod-004", Position: 1, Name: "AirPods Pro (3rd generation)", Price: 8900},
		{ProductID: "prod-006", Position: 2, Name: "Sony WH-1000XM5", Price: 12900},
	}

	f.say(t, st, "7")
	assert.Equal(t, model.StepAwaitingSelection, st.Step)
	assert.Contains(t, st.ResponseText, "between 1 and 2")

	f.say(t, st, "none of these")
	assert.Equal(t, model.StepAwaitingClarification, st.Step)
	assert.Equal(t, 1, st.ShortlistRejections)

	f.say(t, st, "headphones")
	assert.Equal(t, model.StepAwaitingSelection, st.Step)
	assert.Len(t, st.PresentedProducts, 2)
}

func TestCatalogLinkFollowsMatchQuality(t *testing.T) {
	f := newFixture(t)

	exact := newConversation()
	f.say(t, exact, "iphone 15 pro")
	require.Equal(t, model.StepAwaitingSelection, exact.Step)
	assert.Equal(t, "prod-001", exact.PresentedProducts[0].ProductID)
	assert.False(t, exact.CatalogLinkShown)
	assert.NotContains(t, exact.ResponseText, "techhub.example/catalog")

	weak := newConversation()
	f.say(t, weak, "titanium dragon unicorn")
	require.Equal(t, model.StepAwaitingSelection, weak.Step)
	assert.True(t, weak.CatalogLinkShown)
	assert.Contains(t, weak.ResponseText, "https://techhub.example/catalog")
}

func TestClassifySelection(t *testing.T) {
	tests := []struct {
		msg  string
		kind selectionKind
		pos  int
	}{
		{"2", selectOrdinal, 2},
		{"#3", selectOrdinal, 3},
		{"number 1", selectOrdinal, 1},
		{"9", selectInvalid, 0},
		{"show all", selectShowAll, 0},
		{"ดูทั้งหมด", selectShowAll, 0},
		{"none of them", selectRejection, 0},
		{"gaming laptop instead", selectNewSearch, 0},
		{"?", selectInvalid, 0},
	}
	for _, tt := range tests {
		kind, pos := classifySelection(tt.msg, 6)
		assert.Equal(t, tt.kind, kind, tt.msg)
		assert.Equal(t, tt.pos, pos, tt.msg)
	}
}

func purchase(t *testing.T, f *fixture, st *model.ConversationState) {
	t.Helper()
	st.Step = model.StepAwaitingSelection
	st.PresentedProducts = []model.PresentedProduct{
		{ProductID: "prod-004", Position: 1, Name: "AirPods Pro (3rd generation)", Price: 8900},
		{ProductID: "prod-006", Position: 2, Name: "Sony WH-1000XM5", Price: 12900},
	}
	f.say(t, st, "2")
	f.say(t, st, "2 black")
}

func TestPurchaseReachesPayment(t *testing.T) {
	f := newFixture(t)
	st := newConversation()
	purchase(t, f, st)

	assert.Equal(t, model.JourneyPayment, st.Journey)
	assert.Equal(t, model.StepAwaitingPayment, st.Step)
	require.Len(t, st.Cart, 1)
	assert.Equal(t, model.CartItem{ProductID: "prod-006", Quantity: 2, VariantSelection: map[string]string{"color": "Black"}}, st.Cart[0])
	assert.Equal(t, 1, st.CartRevision)
	require.NotNil(t, st.OrderID)
	require.NotNil(t, st.OrderTotals)
	assert.Equal(t, 25800.0, st.OrderTotals.Subtotal)
	assert.Equal(t, 24510.0, st.OrderTotals.Total)
	require.NotNil(t, st.PaymentURL)
	assert.Contains(t, st.ResponseText, *st.PaymentURL)
	assert.Equal(t, model.PaymentPending, st.PaymentStatus)
	assert.Equal(t, 1, f.tools.count(tools.OrderCreate))
}

func TestReenteringReadyForOrderDoesNotDuplicate(t *testing.T) {
	f := newFixture(t)
	st := newConversation()
	purchase(t, f, st)
	orderID := *st.OrderID

	st.Journey, st.Step = model.JourneySales, model.StepReadyForOrder
	f.say(t, st, "ok")
	assert.Equal(t, 1, f.tools.count(tools.OrderCreate))
	assert.Equal(t, orderID, *st.OrderID)
	assert.Equal(t, model.StepAwaitingPayment, st.Step)
}

func TestMissingVariantIsAskedFor(t *testing.T) {
	f := newFixture(t)
	st := newConversation()
	st.Step = model.StepAwaitingSelection
	st.PresentedProducts = []model.PresentedProduct{{ProductID: "prod-006", Position: 1, Name: "Sony WH-1000XM5", Price: 12900}}

	f.say(t, st, "1")
	f.say(t, st, "2 please")
	assert.Equal(t, model.StepDisambiguateProduct, st.Step)
	assert.Contains(t, st.ResponseText, "Which color")
	assert.Equal(t, 1, st.Escalation.ClarificationLoops)
	assert.Empty(t, st.Cart)

	f.say(t, st, "silver")
	assert.Equal(t, model.StepAwaitingPayment, st.Step)
	require.Len(t, st.Cart, 1)
	assert.Equal(t, "Silver", st.Cart[0].VariantSelection["color"])
}

func TestToolErrorsCountAndReset(t *testing.T) {
	f := newFixture(t)
	ev := escalation.New(nil)
	st := newConversation()
	f.tools.fail[tools.CatalogSearch] = "CATALOG_ERROR"

	f.say(t, st, "laptop")
	assert.Equal(t, 1, st.Escalation.ConsecutiveToolErrors)
	assert.Equal(t, model.StepStart, st.Step)
	assert.Nil(t, ev.PostStep(st))

	f.say(t, st, "laptop")
	assert.Equal(t, 2, st.Escalation.ConsecutiveToolErrors)
	require.Len(t, st.Escalation.FailedToolCalls, 2)
	esc := ev.PostStep(st)
	require.NotNil(t, esc)
	assert.Equal(t, model.ReasonRepeatedFailures, esc.Reason)

	delete(f.tools.fail, tools.CatalogSearch)
	f.say(t, st, "laptop")
	assert.Equal(t, 0, st.Escalation.ConsecutiveToolErrors)
	assert.Len(t, st.Escalation.FailedToolCalls, 2, "the window is history, not a counter")
}

func TestTwoEmptySearchesEscalate(t *testing.T) {
	f := newFixture(t)
	ev := escalation.New(nil)
	st := newConversation()

	f.say(t, st, "linen shirt")
	assert.Equal(t, 1, st.Escalation.EmptyCatalogResults)
	assert.Equal(t, model.StepStart, st.Step)
	assert.Nil(t, ev.PostStep(st))

	f.say(t, st, "velvet sofa")
	assert.Equal(t, 2, st.Escalation.EmptyCatalogResults)
	esc := ev.PostStep(st)
	require.NotNil(t, esc)
	assert.Equal(t, model.ReasonMissingInformation, esc.Reason)
}

func TestStepFailureRestoresSnapshot(t *testing.T) {
	f := newFixture(t)
	st := newConversation()
	f.say(t, st, "show me products")
	before := st.Clone()

	f.tools.panic[tools.CatalogSearch] = true
	res := f.say(t, st, "laptop")

	assert.True(t, res.Failed)
	assert.Equal(t, model.StepAwaitingClarification, st.Step)
	assert.Equal(t, before.Escalation.ClarificationLoops, st.Escalation.ClarificationLoops)
	assert.Equal(t, before.LastSearchQuery, st.LastSearchQuery)
	assert.True(t, st.EscalationRequired)
	assert.Contains(t, st.EscalationReason, "step_failure: catalog_search: panic")
	assert.Contains(t, st.ResponseText, "Sorry")
	assert.Equal(t, 2, st.TurnCount)
}

func TestStepFailureKeepsToolFailures(t *testing.T) {
	f := newFixture(t)
	st := newConversation()
	st.Step = model.StepAwaitingSelection
	st.PresentedProducts = []model.PresentedProduct{
		{ProductID: "prod-004", Position: 1, Name: "AirPods Pro (3rd generation)", Price: 8900},
		{ProductID: "prod-006", Position: 2, Name: "Sony WH-1000XM5", Price: 12900},
	}
	f.say(t, st, "2")
	require.Zero(t, st.Escalation.ConsecutiveToolErrors)

	f.tools.fail[tools.OffersApply] = "OFFERS_ERROR"
	f.tools.panic[tools.PaymentCreate] = true
	res := f.say(t, st, "2 black")

	assert.True(t, res.Failed)
	assert.Equal(t, model.StepGetItemDetails, st.Step, "the rest of the turn is rolled back")
	assert.Nil(t, st.OrderID)
	assert.Equal(t, 1, st.Escalation.ConsecutiveToolErrors)
	require.Len(t, st.Escalation.FailedToolCalls, 1)
	assert.Equal(t, tools.OffersApply, st.Escalation.FailedToolCalls[0].Tool)
	assert.Equal(t, "OFFERS_ERROR", st.Escalation.FailedToolCalls[0].ErrorCode)
}

func TestUnknownStepResetsToStart(t *testing.T) {
	f := newFixture(t)
	st := newConversation()
	st.Step = "checkout_v2"

	f.say(t, st, "show me products")
	assert.Equal(t, model.StepAwaitingClarification, st.Step)
}

func TestOrdersJourney(t *testing.T) {
	f := newFixture(t)
	ev := escalation.New(nil)
	st := newConversation()

	f.say(t, st, "where is my order")
	assert.Equal(t, model.JourneyOrders, st.Journey)
	assert.Equal(t, model.StepAwaitingOrderReference, st.Step)

	f.say(t, st, "6f1c2a9e-3b4d-4c5e-8f70-112233445566")
	assert.Equal(t, model.JourneyOrders, st.Journey)
	assert.Equal(t, 1, st.Escalation.FailedOrderLookups)
	assert.Equal(t, 0, st.Escalation.ConsecutiveToolErrors)
	assert.Nil(t, ev.PostStep(st))

	f.say(t, st, "7a2d3b0f-4c5e-4d6f-9a81-223344556677")
	esc := ev.PostStep(st)
	require.NotNil(t, esc)
	assert.Equal(t, model.ReasonMissingInformation, esc.Reason)
}

func TestOrderStatusAfterPurchase(t *testing.T) {
	f := newFixture(t)
	st := newConversation()
	purchase(t, f, st)

	f.say(t, st, "what is my order status")
	assert.Equal(t, model.JourneyOrders, st.Journey)
	assert.Equal(t, model.StepOrderStatusShown, st.Step)
	assert.Contains(t, st.ResponseText, "pending")
}

func TestPaymentConfirmed(t *testing.T) {
	f := newFixture(t)
	st := newConversation()
	purchase(t, f, st)
	require.NoError(t, f.store.SetPaymentStatus(context.Background(), commerce.DemoTenantID, *st.PaymentRequestID, model.PaymentPaid))

	f.say(t, st, "I paid")
	assert.Equal(t, model.StepPaymentConfirmed, st.Step)
	assert.Equal(t, model.PaymentPaid, st.PaymentStatus)
}

func TestSupportJourney(t *testing.T) {
	f := newFixture(t)
	st := newConversation()

	f.say(t, st, "what is your return policy")
	assert.Equal(t, model.JourneySupport, st.Journey)
	assert.Equal(t, model.StepAwaitingFollowup, st.Step)
	assert.Contains(t, st.ResponseText, "Return policy")
	assert.Zero(t, st.Escalation.EmptyKnowledgeResults)
}

func TestGovernanceOptOut(t *testing.T) {
	f := newFixture(t)
	st := newConversation()
	require.NoError(t, st.SetCustomer("cust-9"))

	f.say(t, st, "please unsubscribe me")
	assert.Equal(t, model.StepAwaitingOptOutConfirmation, st.Step)

	f.say(t, st, "yes")
	assert.Equal(t, model.StepCompleted, st.Step)
	optIn, ok := f.store.ConsentOf(commerce.DemoTenantID, "cust-9", "whatsapp")
	assert.True(t, ok)
	assert.False(t, optIn)
}

func TestStepAlwaysBelongsToJourney(t *testing.T) {
	f := newFixture(t)
	st := newConversation()
	for _, msg := range []string{
		"hi", "show me products", "laptop", "3", "x", "I paid", "where is my order", "refund?",
		"unsubscribe", "no", "มีมือถืออะไรบ้าง", "1", "256GB สีฟ้า", "",
	} {
		f.say(t, st, msg)
	}
}
