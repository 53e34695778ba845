package graph

import (
	"context"
	"sync"
	"testing"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/decision"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/escalation"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/journey"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/repo"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/commerce"
	errx "github.com/Chative-core-poc-v1/commerce-bot/internal/core/error"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/handoff"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyTools wraps the real invoker and can fail or panic on named tools.
type flakyTools struct {
	next journey.ToolExecutor

	mu    sync.Mutex
	fail  map[string]bool
	panic map[string]bool
	calls map[string]int
}

func (f *flakyTools) Execute(ctx context.Context, name string, args map[string]any) model.ToolResponse {
	f.mu.Lock()
	f.calls[name]++
	fail, boom := f.fail[name], f.panic[name]
	f.mu.Unlock()
	if boom {
		panic("backend exploded")
	}
	if fail {
		return model.ToolFail("HANDOFF_ERROR", "queue unavailable")
	}
	return f.next.Execute(ctx, name, args)
}

func (f *flakyTools) set(m map[string]bool, name string, v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m[name] = v
}

type fixture struct {
	runner    Runner
	states    *repo.MemoryStateStore
	history   *repo.MemoryConversationRepository
	publisher *handoff.MemoryPublisher
	tools     *flakyTools
	conv      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := commerce.NewMemoryStore(commerce.WithPaymentBaseURL("https://pay.test"))
	require.NoError(t, commerce.SeedDemo(ctx, store))
	tenants := commerce.NewMemoryTenants(commerce.DemoTenants()...)
	publisher := handoff.NewMemoryPublisher()

	ft := &flakyTools{
		next:  tools.New(commerce.NewMemoryBackend(store), tenants, publisher),
		fail:  map[string]bool{},
		panic: map[string]bool{},
		calls: map[string]int{},
	}
	states := repo.NewMemoryStateStore()
	history := repo.NewMemoryConversationRepository(0)

	runner, err := BuildTurnGraph(ctx, Config{
		States:           states,
		ConversationRepo: history,
		Conversation:     model.ConversationConfig{HistoryTurns: 20},
		Tenants:          tenants,
		Tools:            ft,
		Machine: journey.New(journey.Deps{
			Tools:   ft,
			Decider: decision.Heuristic(),
			Tenants: tenants,
			Policy:  model.DefaultPolicy(),
		}),
		Evaluator: escalation.New(nil),
	})
	require.NoError(t, err)
	return &fixture{runner: runner, states: states, history: history, publisher: publisher, tools: ft, conv: uuid.NewString()}
}

func (f *fixture) inbound(text string) model.InboundMessage {
	return model.InboundMessage{
		TenantID:       commerce.DemoTenantID,
		ConversationID: f.conv,
		RequestID:      uuid.NewString(),
		Text:           text,
	}
}

func (f *fixture) say(t *testing.T, text string) *model.TurnResult {
	t.Helper()
	res, err := f.runner.Invoke(context.Background(), f.inbound(text))
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func (f *fixture) state(t *testing.T) *model.ConversationState {
	t.Helper()
	st, err := f.states.Load(context.Background(), commerce.DemoTenantID, f.conv)
	require.NoError(t, err)
	return st
}

func TestSalesTurnsPersistState(t *testing.T) {
	f := newFixture(t)

	res := f.say(t, "show me products")
	assert.Equal(t, model.JourneySales, res.Journey)
	assert.Equal(t, model.StepAwaitingClarification, res.Step)
	assert.False(t, res.Escalated)

	res = f.say(t, "laptop")
	assert.Equal(t, model.StepAwaitingSelection, res.Step)
	assert.Contains(t, res.Response, "from 1 to 5")

	res = f.say(t, "2")
	assert.Equal(t, model.StepGetItemDetails, res.Step)

	st := f.state(t)
	assert.EqualValues(t, 3, st.Version)
	assert.Equal(t, 3, st.TurnCount)
	assert.Equal(t, res.RequestID, st.LastRequestID)
	require.Len(t, st.PresentedProducts, 5)
	assert.Equal(t, st.PresentedProducts[1].ProductID, st.FocusProductID())

	n, err := f.history.GetMessageCount(context.Background(), commerce.DemoTenantID, f.conv)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestReplayReturnsStoredResponse(t *testing.T) {
	f := newFixture(t)
	in := f.inbound("laptop")

	first, err := f.runner.Invoke(context.Background(), in)
	require.NoError(t, err)
	second, err := f.runner.Invoke(context.Background(), in)
	require.NoError(t, err)

	assert.False(t, first.Replayed)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Response, second.Response)
	assert.Equal(t, first.Step, second.Step)

	st := f.state(t)
	assert.EqualValues(t, 1, st.Version)
	assert.Equal(t, 1, st.TurnCount)
	assert.Equal(t, 1, f.tools.calls[tools.CatalogSearch])
}

func TestLateRedeliveryIsNotReprocessed(t *testing.T) {
	f := newFixture(t)
	early := f.inbound("show me products")

	_, err := f.runner.Invoke(context.Background(), early)
	require.NoError(t, err)
	latest := f.say(t, "laptop")
	require.Equal(t, model.StepAwaitingSelection, latest.Step)

	late, err := f.runner.Invoke(context.Background(), early)
	require.NoError(t, err)
	assert.True(t, late.Replayed)
	assert.Empty(t, late.Response, "only the latest turn's reply is stored")
	assert.Equal(t, model.StepAwaitingSelection, late.Step)

	st := f.state(t)
	assert.EqualValues(t, 2, st.Version)
	assert.Equal(t, 2, st.TurnCount)
	assert.Equal(t, latest.RequestID, st.LastRequestID)
	assert.Equal(t, []string{early.RequestID, latest.RequestID}, st.RecentRequestIDs)
}

func TestExplicitRequestHandsOffOnceThenHolds(t *testing.T) {
	f := newFixture(t)
	f.say(t, "laptop")

	res := f.say(t, "I want to talk to a human please")
	assert.True(t, res.Escalated)
	require.NotNil(t, res.Escalation)
	assert.Equal(t, model.ReasonExplicitRequest, res.Escalation.Reason)
	assert.Equal(t, model.PriorityHigh, res.Escalation.Priority)
	assert.Contains(t, res.Response, "connecting you")
	assert.Equal(t, model.StepAwaitingSelection, res.Step, "no step runs on a pre-step escalation")

	tickets := f.publisher.Tickets()
	require.Len(t, tickets, 1)
	p := tickets[0].Payload
	assert.Equal(t, model.ReasonExplicitRequest, p.Reason)
	assert.Equal(t, "human_request", p.Category)
	assert.Equal(t, model.StepAwaitingSelection, p.Context.CurrentStep)
	require.NotEmpty(t, p.Context.ConversationHistory)
	last := p.Context.ConversationHistory[len(p.Context.ConversationHistory)-1]
	assert.Equal(t, "I want to talk to a human please", last.Content)
	assert.Equal(t, "customer", p.Context.ConversationHistory[0].Role)
	assert.Contains(t, p.Context.Summary, "reason=explicit_request")

	st := f.state(t)
	require.NotNil(t, st.HandoffID)
	assert.Equal(t, tickets[0].ID, *st.HandoffID)

	res = f.say(t, "hello? anyone?")
	assert.Contains(t, res.Response, "will reply here shortly")
	assert.Nil(t, res.Escalation)
	assert.Len(t, f.publisher.Tickets(), 1, "one handoff per escalation")
	assert.Equal(t, model.StepAwaitingSelection, res.Step)

	require.NoError(t, f.runner.Resume(context.Background(), commerce.DemoTenantID, f.conv))
	st = f.state(t)
	assert.False(t, st.EscalationRequired)
	assert.Nil(t, st.HandoffID)
	assert.Contains(t, st.Escalation.EscalationTriggers, model.ReasonExplicitRequest)

	res = f.say(t, "headphones")
	assert.False(t, res.Escalated)
	assert.Equal(t, model.StepAwaitingSelection, res.Step)
}

func TestStepFailureEscalates(t *testing.T) {
	f := newFixture(t)
	f.tools.set(f.tools.panic, tools.CatalogSearch, true)

	res := f.say(t, "laptop")
	assert.True(t, res.Escalated)
	require.NotNil(t, res.Escalation)
	assert.Equal(t, model.ReasonUpstreamFlag, res.Escalation.Reason)
	assert.Contains(t, res.Response, "something went wrong")
	assert.Contains(t, res.Response, "connecting you")

	st := f.state(t)
	assert.Equal(t, model.StepStart, st.Step)
	assert.Contains(t, st.EscalationReason, "step_failure")
	require.Len(t, f.publisher.Tickets(), 1)
	assert.Equal(t, model.ReasonUpstreamFlag, f.publisher.Tickets()[0].Payload.Reason)
}

func TestTwoEmptySearchesHandOff(t *testing.T) {
	f := newFixture(t)

	res := f.say(t, "linen shirt")
	assert.False(t, res.Escalated)

	res = f.say(t, "velvet sofa")
	assert.True(t, res.Escalated)
	require.NotNil(t, res.Escalation)
	assert.Equal(t, model.ReasonMissingInformation, res.Escalation.Reason)
	require.Len(t, f.publisher.Tickets(), 1)
}

func TestFailedHandoffIsRetriedNextTurn(t *testing.T) {
	f := newFixture(t)
	f.tools.set(f.tools.fail, tools.HandoffCreate, true)

	res := f.say(t, "get me a real person")
	assert.True(t, res.Escalated)
	assert.Nil(t, f.state(t).HandoffID)

	f.tools.set(f.tools.fail, tools.HandoffCreate, false)
	res = f.say(t, "hello")
	require.NotNil(t, res.Escalation)
	assert.Equal(t, model.ReasonUpstreamFlag, res.Escalation.Reason)

	st := f.state(t)
	require.NotNil(t, st.HandoffID)
	assert.Equal(t, string(model.ReasonExplicitRequest), st.EscalationReason)
	require.Len(t, f.publisher.Tickets(), 1)
}

func TestInvalidInboundIsRejected(t *testing.T) {
	f := newFixture(t)

	in := f.inbound("hi")
	in.RequestID = "req-1"
	_, err := f.runner.Invoke(context.Background(), in)
	assert.Equal(t, errx.KindValidation, errx.KindOf(err))

	in = f.inbound("   ")
	_, err = f.runner.Invoke(context.Background(), in)
	assert.Equal(t, errx.KindValidation, errx.KindOf(err))

	in = f.inbound("hi")
	in.TenantID = uuid.NewString()
	_, err = f.runner.Invoke(context.Background(), in)
	assert.Error(t, err)

	_, err = f.states.Load(context.Background(), in.TenantID, f.conv)
	assert.True(t, errx.IsNotFound(err))
}

func TestConcurrentTurnsAreSerialized(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.runner.Invoke(context.Background(), f.inbound("laptop"))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	st := f.state(t)
	assert.EqualValues(t, 4, st.Version)
	assert.Equal(t, 4, st.TurnCount)
}
