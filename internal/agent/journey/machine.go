// Package journey is the step machine that moves a conversation through its
// journeys. Each inbound turn advances exactly one logical hop, chaining
// internally while a step's own result already decides the next step.
package journey

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/decision"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/commerce"
	logx "github.com/Chative-core-poc-v1/commerce-bot/pkg/logger"
)

const defaultMaxHops = 8

// ToolExecutor is the tool boundary. It never returns an error.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args map[string]any) model.ToolResponse
}

type Deps struct {
	Tools   ToolExecutor
	Decider decision.Decider
	// Tenants resolves the catalog link; nil disables the link text.
	Tenants commerce.TenantDirectory
	Policy  model.PolicyConfig
	MaxHops int
	Channel string
}

// Machine is built once and shared by every conversation.
type Machine struct {
	deps Deps
}

func New(d Deps) *Machine {
	if d.MaxHops <= 0 {
		d.MaxHops = defaultMaxHops
	}
	if d.Decider == nil {
		d.Decider = decision.Heuristic()
	}
	if d.Channel == "" {
		d.Channel = "whatsapp"
	}
	return &Machine{deps: d}
}

// transition is a handler result. A non-empty Journey switches journeys first.
type transition struct {
	Journey model.Journey
	Next    model.Step
	Chain   bool
}

func stop(s model.Step) transition  { return transition{Next: s} }
func chain(s model.Step) transition { return transition{Next: s, Chain: true} }

type handler func(t *turn) (transition, error)

// Result reports what one Run did.
type Result struct {
	CostUSD float64
	Hops    int
	// Failed is set when a step failed and the state was restored.
	Failed bool
}

// Run routes the turn and executes steps until one waits for input.
func (m *Machine) Run(ctx context.Context, st *model.ConversationState) Result {
	snapshot := st.Clone()
	t := &turn{ctx: ctx, m: m, st: st, log: logx.Turn(st.TenantID, st.ConversationID, st.RequestID)}

	var res Result
	step := st.Step
	err := t.guard(func() error {
		m.route(t)
		for res.Hops < m.deps.MaxHops {
			step = st.Step
			h := m.handler(st.Journey, st.Step)
			if h == nil {
				t.log.Warn().Str("journey", string(st.Journey)).Str("step", string(st.Step)).Msg("Unknown step, resetting")
				st.Step = st.Journey.InitialStep()
				continue
			}
			res.Hops++
			tr, err := h(t)
			if err != nil {
				return err
			}
			if tr.Journey != "" {
				st.SwitchJourney(tr.Journey)
			}
			if !st.Journey.HasStep(tr.Next) {
				return fmt.Errorf("transition to %q is not part of journey %q", tr.Next, st.Journey)
			}
			t.log.Debug().Str("step", string(step)).Str("next", string(tr.Next)).Bool("chain", tr.Chain).Msg("Step executed")
			st.Step = tr.Next
			if !tr.Chain {
				return nil
			}
		}
		t.log.Warn().Int("hops", res.Hops).Str("step", string(st.Step)).Msg("Hop limit reached")
		return nil
	})
	res.CostUSD = t.cost
	if err != nil {
		t.log.Error().Err(err).Str("step", string(step)).Msg("Step failed, restoring turn snapshot")
		lang := st.ResponseLanguage
		failed := st.Escalation
		*st = *snapshot
		// Tool calls of the failed run already happened.
		st.Escalation.ConsecutiveToolErrors = failed.ConsecutiveToolErrors
		st.Escalation.FailedToolCalls = failed.FailedToolCalls
		st.ResetResponse()
		st.Respond(apology(lang))
		st.EscalationRequired = true
		st.EscalationReason = fmt.Sprintf("step_failure: %s: %v", step, err)
		res.Failed = true
	}
	st.JoinResponse()
	return res
}

// route runs the intent decision and switches journeys when it says so.
func (m *Machine) route(t *turn) {
	st := t.st
	out := m.deps.Decider.Intent(t.ctx, st.TenantID, decision.IntentInput{
		Message:        st.IncomingMessage,
		CurrentJourney: st.Journey,
		CurrentStep:    st.Step,
	})
	t.cost += out.CostUSD
	d := out.Value
	st.Intent = d.Intent
	st.Confidence = d.Confidence
	if d.Language != "" {
		st.ResponseLanguage = d.Language
	}
	if d.Journey != st.Journey {
		t.log.Info().Str("from", string(st.Journey)).Str("to", string(d.Journey)).Str("intent", d.Intent).Msg("Switching journey")
		st.SwitchJourney(d.Journey)
	}
}

// handler is the exhaustive step table. A nil result means the step is unknown.
func (m *Machine) handler(j model.Journey, s model.Step) handler {
	switch j {
	case model.JourneySales:
		switch s {
		case model.StepStart:
			return salesStart
		case model.StepNarrowQuery:
			return narrowQuery
		case model.StepAwaitingClarification:
			return awaitingClarification
		case model.StepCatalogSearch:
			return catalogSearch
		case model.StepPresentOptions:
			return presentOptions
		case model.StepAwaitingSelection:
			return awaitingSelection
		case model.StepGetItemDetails:
			return getItemDetails
		case model.StepDisambiguateProduct:
			return disambiguateProduct
		case model.StepReadyForOrder:
			return readyForOrder
		case model.StepOrderCreated:
			return orderCreated
		case model.StepOffersHandled:
			return offersHandled
		case model.StepPaymentRouting:
			return paymentRouting
		}
	case model.JourneyOrders:
		switch s {
		case model.StepStart:
			return ordersStart
		case model.StepAwaitingOrderReference:
			return awaitingOrderReference
		case model.StepOrderLookup:
			return orderLookup
		case model.StepOrderStatusShown:
			return orderStatusShown
		}
	case model.JourneyPayment:
		switch s {
		case model.StepAwaitingPayment:
			return awaitingPayment
		case model.StepPaymentConfirmed:
			return paymentConfirmed
		case model.StepPaymentFailed:
			return paymentFailed
		}
	case model.JourneySupport:
		switch s {
		case model.StepStart:
			return supportStart
		case model.StepAwaitingFollowup:
			return awaitingFollowup
		}
	case model.JourneyGovernance:
		switch s {
		case model.StepStart:
			return governanceStart
		case model.StepAwaitingOptOutConfirmation:
			return awaitingOptOutConfirmation
		case model.StepCompleted:
			return governanceCompleted
		}
	}
	return nil
}

// guard turns a panic inside fn into an error carrying the stack.
func (t *turn) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Step panicked")
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
