package escalation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tenant = "5f0c1a52-7d3e-4b8a-9c21-6e4f2b7a9d10"
	conv   = "0b6a4f7e-2c1d-4e3f-9a8b-7c6d5e4f3a21"
)

func stateWith(msg string, turn int) *model.ConversationState {
	st := model.NewConversationState(tenant, conv)
	st.Normalize()
	st.IncomingMessage = msg
	st.TurnCount = turn
	return st
}

func TestPreStepRules(t *testing.T) {
	ev := New(nil)

	tests := []struct {
		name   string
		msg    string
		turn   int
		setup  func(*model.ConversationState)
		reason model.EscalationReason
		prio   model.Priority
	}{
		{name: "explicit request", msg: "can I talk to a human please", turn: 1, reason: model.ReasonExplicitRequest, prio: model.PriorityHigh},
		{name: "explicit beats frustration", msg: "this is useless, get me a human", turn: 3, reason: model.ReasonExplicitRequest, prio: model.PriorityHigh},
		{name: "thai explicit", msg: "ขอคุยกับพนักงานหน่อย", turn: 1, reason: model.ReasonExplicitRequest, prio: model.PriorityHigh},
		{name: "dispute", msg: "I was charged twice for my order", turn: 1, reason: model.ReasonPaymentDispute, prio: model.PriorityUrgent},
		{name: "sensitive", msg: "I will contact my lawyer", turn: 1, reason: model.ReasonSensitiveContent, prio: model.PriorityUrgent},
		{name: "frustration after first turn", msg: "this is ridiculous", turn: 2, reason: model.ReasonUserFrustration, prio: model.PriorityMedium},
		{name: "frustration on first turn", msg: "this is ridiculous", turn: 1},
		{name: "keyword needs word boundary", msg: "I need a humanoid robot toy", turn: 1},
		{
			name: "upstream flag", msg: "ok", turn: 2,
			setup:  func(st *model.ConversationState) { st.EscalationRequired = true; st.EscalationReason = "step_failure: catalog_search: boom" },
			reason: model.ReasonUpstreamFlag, prio: model.PriorityHigh,
		},
		{
			name: "repeated tool errors", msg: "hello", turn: 3,
			setup:  func(st *model.ConversationState) { st.Escalation.ConsecutiveToolErrors = 2 },
			reason: model.ReasonRepeatedFailures, prio: model.PriorityHigh,
		},
		{
			name: "one tool error is tolerated", msg: "hello", turn: 3,
			setup: func(st *model.ConversationState) { st.Escalation.ConsecutiveToolErrors = 1 },
		},
		{
			name: "clarification loops", msg: "hello", turn: 4,
			setup:  func(st *model.ConversationState) { st.Escalation.ClarificationLoops = 3 },
			reason: model.ReasonRepeatedFailures, prio: model.PriorityHigh,
		},
		{
			name: "empty knowledge", msg: "hello", turn: 2,
			setup:  func(st *model.ConversationState) { st.Escalation.EmptyKnowledgeResults = 1 },
			reason: model.ReasonMissingInformation, prio: model.PriorityMedium,
		},
		{
			name: "one failed order lookup is tolerated", msg: "hello", turn: 2,
			setup: func(st *model.ConversationState) { st.Escalation.FailedOrderLookups = 1 },
		},
		{
			name: "empty catalog twice", msg: "hello", turn: 2,
			setup:  func(st *model.ConversationState) { st.Escalation.EmptyCatalogResults = 2 },
			reason: model.ReasonMissingInformation, prio: model.PriorityMedium,
		},
		{
			name: "failures beat frustration", msg: "this is useless", turn: 5,
			setup:  func(st *model.ConversationState) { st.Escalation.ConsecutiveToolErrors = 3 },
			reason: model.ReasonRepeatedFailures, prio: model.PriorityHigh,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := stateWith(tt.msg, tt.turn)
			if tt.setup != nil {
				tt.setup(st)
			}
			esc := ev.PreStep(st)
			if tt.reason == "" {
				assert.Nil(t, esc)
				return
			}
			require.NotNil(t, esc)
			assert.Equal(t, tt.reason, esc.Reason)
			assert.Equal(t, tt.prio, esc.Priority)
			assert.NotEmpty(t, esc.Category)
		})
	}
}

func TestPostStepIgnoresMessage(t *testing.T) {
	ev := New(nil)
	st := stateWith("get me a human", 1)
	assert.Nil(t, ev.PostStep(st))

	st.Escalation.ConsecutiveToolErrors = 2
	esc := ev.PostStep(st)
	require.NotNil(t, esc)
	assert.Equal(t, model.ReasonRepeatedFailures, esc.Reason)
}

func TestSummaryIsStable(t *testing.T) {
	st := stateWith("hello", 3)
	st.Intent = "product_search"
	st.Confidence = 0.7
	st.Step = model.StepAwaitingSelection
	st.SelectedItemIDs = []string{"prod-009"}
	st.Cart = []model.CartItem{{ProductID: "prod-009", Quantity: 1}, {ProductID: "prod-004", Quantity: 2}}
	st.OrderID = model.Ptr("ord-1")
	st.Escalation.ConsecutiveToolErrors = 2

	esc := New(nil).PreStep(st)
	require.NotNil(t, esc)
	parts := strings.Split(esc.Summary, " | ")
	require.Len(t, parts, 5)
	assert.Equal(t, "journey=sales step=awaiting_selection", parts[0])
	assert.Equal(t, "intent=product_search confidence=0.70", parts[1])
	assert.True(t, strings.HasPrefix(parts[2], "reason=repeated_failures"))
	assert.Contains(t, parts[3], "tool_errors=2")
	assert.Equal(t, "order=ord-1 products=prod-009,prod-004", parts[4])
	assert.Equal(t, esc.Summary, Summary(st, esc))
}

func TestApply(t *testing.T) {
	st := stateWith("hi", 1)
	st.EscalationRequired = true
	st.EscalationReason = "step_failure: payment_routing: timeout"

	Apply(st, &model.Escalation{Reason: model.ReasonUpstreamFlag, Priority: model.PriorityHigh})
	assert.True(t, st.EscalationRequired)
	assert.Equal(t, "step_failure: payment_routing: timeout", st.EscalationReason)

	Apply(st, &model.Escalation{Reason: model.ReasonExplicitRequest, Priority: model.PriorityHigh})
	assert.Equal(t, "explicit_request", st.EscalationReason)
	assert.Equal(t, []model.EscalationReason{model.ReasonUpstreamFlag, model.ReasonExplicitRequest}, st.Escalation.EscalationTriggers)

	Apply(st, nil)
	assert.Len(t, st.Escalation.EscalationTriggers, 2)
}

func TestPayload(t *testing.T) {
	st := stateWith("get me a human", 2)
	st.Cart = []model.CartItem{{ProductID: "prod-004", Quantity: 2}}
	st.Escalation.RecordToolFailure(model.FailedToolCall{Tool: "order_lookup", ErrorCode: "ORDER_NOT_FOUND"})
	esc := New(nil).PreStep(st)
	require.NotNil(t, esc)

	p := Payload(st, esc, nil)
	assert.Equal(t, model.ReasonExplicitRequest, p.Reason)
	assert.Equal(t, "human_request", p.Category)
	assert.Equal(t, esc.Summary, p.Context.Summary)
	assert.NotNil(t, p.Context.ConversationHistory)
	assert.Equal(t, []string{"prod-004"}, p.Context.ProductIDs)
	assert.Equal(t, 2, p.Context.ConversationMetrics.CartItems)
	assert.Equal(t, 1, p.Context.ConversationMetrics.ConsecutiveToolErrors)
	require.Len(t, p.Context.ErrorDetails, 1)
	assert.Equal(t, "ORDER_NOT_FOUND", p.Context.ErrorDetails[0].ErrorCode)
}

func TestLoadPolicyOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
keywords:
  explicit_request: ["supervisor"]
thresholds:
  consecutive_tool_errors: 4
`), 0o600))

	p, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"supervisor"}, p.Keywords.ExplicitRequest)
	assert.Equal(t, 4, p.Thresholds.ConsecutiveToolErrors)
	assert.Equal(t, 3, p.Thresholds.ClarificationLoops)
	assert.NotEmpty(t, p.Keywords.PaymentDispute)

	ev := New(p)
	assert.Nil(t, ev.PreStep(stateWith("talk to a human", 1)))
	esc := ev.PreStep(stateWith("I want a supervisor", 1))
	require.NotNil(t, esc)
	assert.Equal(t, model.ReasonExplicitRequest, esc.Reason)
}

func TestLoadPolicyRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("thresholds:\n  clarification_loops: 0\n"), 0o600))
	_, err := LoadPolicy(path)
	assert.Error(t, err)

	p, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Thresholds.ConsecutiveToolErrors)
}
