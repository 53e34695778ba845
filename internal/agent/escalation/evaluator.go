// Package escalation decides, by a fixed rule table, when a conversation must
// leave automation for a human agent, and builds the handoff payload.
package escalation

import (
	"fmt"
	"strings"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/decision"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	"github.com/Chative-core-poc-v1/commerce-bot/pkg/metrics"
)

type rule struct {
	reason   model.EscalationReason
	priority model.Priority
	category string
	// needsMessage rules only run before a step, when the inbound text is fresh.
	needsMessage bool
	match        func(st *model.ConversationState, norm string) (bool, string)
}

// Evaluator holds the ordered rule table. First match wins.
type Evaluator struct {
	policy *Policy
	rules  []rule
}

func New(p *Policy) *Evaluator {
	if p == nil {
		p = DefaultPolicy()
	}
	e := &Evaluator{policy: p}
	e.rules = []rule{
		{model.ReasonExplicitRequest, model.PriorityHigh, "human_request", true, e.keywordRule(p.Keywords.ExplicitRequest)},
		{model.ReasonPaymentDispute, model.PriorityUrgent, "billing", true, e.keywordRule(p.Keywords.PaymentDispute)},
		{model.ReasonUpstreamFlag, model.PriorityHigh, "technical", false, flaggedUpstream},
		{model.ReasonRepeatedFailures, model.PriorityHigh, "technical", false, e.repeatedFailures},
		{model.ReasonSensitiveContent, model.PriorityUrgent, "compliance", true, e.keywordRule(p.Keywords.SensitiveContent)},
		{model.ReasonUserFrustration, model.PriorityMedium, "customer_experience", true, e.frustration},
		{model.ReasonMissingInformation, model.PriorityMedium, "information_gap", false, e.missingInformation},
	}
	return e
}

func (e *Evaluator) keywordRule(list []string) func(*model.ConversationState, string) (bool, string) {
	return func(_ *model.ConversationState, norm string) (bool, string) {
		if kw, ok := decision.HasAnyKeyword(norm, list); ok {
			return true, fmt.Sprintf("keyword %q", kw)
		}
		return false, ""
	}
}

func flaggedUpstream(st *model.ConversationState, _ string) (bool, string) {
	if st.EscalationRequired {
		return true, st.EscalationReason
	}
	return false, ""
}

func (e *Evaluator) repeatedFailures(st *model.ConversationState, _ string) (bool, string) {
	t := e.policy.Thresholds
	ec := st.Escalation
	if ec.ConsecutiveToolErrors >= t.ConsecutiveToolErrors {
		return true, fmt.Sprintf("%d consecutive tool errors", ec.ConsecutiveToolErrors)
	}
	if ec.ClarificationLoops >= t.ClarificationLoops {
		return true, fmt.Sprintf("%d clarification loops", ec.ClarificationLoops)
	}
	return false, ""
}

func (e *Evaluator) frustration(st *model.ConversationState, norm string) (bool, string) {
	if st.TurnCount < e.policy.Thresholds.FrustrationMinTurns {
		return false, ""
	}
	return e.keywordRule(e.policy.Keywords.Frustration)(st, norm)
}

func (e *Evaluator) missingInformation(st *model.ConversationState, _ string) (bool, string) {
	t := e.policy.Thresholds
	ec := st.Escalation
	switch {
	case ec.EmptyKnowledgeResults >= t.EmptyKnowledgeResults:
		return true, "knowledge base had no answer"
	case ec.FailedOrderLookups >= t.FailedOrderLookups:
		return true, fmt.Sprintf("%d failed order lookups", ec.FailedOrderLookups)
	case ec.EmptyCatalogResults >= t.EmptyCatalogResults:
		return true, fmt.Sprintf("%d empty catalog searches", ec.EmptyCatalogResults)
	}
	return false, ""
}

// PreStep runs every rule against the inbound message and the state.
func (e *Evaluator) PreStep(st *model.ConversationState) *model.Escalation {
	return e.evaluate(st, true)
}

// PostStep runs only the state rules after a step has executed.
func (e *Evaluator) PostStep(st *model.ConversationState) *model.Escalation {
	return e.evaluate(st, false)
}

func (e *Evaluator) evaluate(st *model.ConversationState, withMessage bool) *model.Escalation {
	norm := decision.Normalize(st.IncomingMessage)
	for _, r := range e.rules {
		if r.needsMessage && !withMessage {
			continue
		}
		ok, detail := r.match(st, norm)
		if !ok {
			continue
		}
		esc := &model.Escalation{
			Reason:   r.reason,
			Priority: r.priority,
			Category: r.category,
			Detail:   detail,
		}
		esc.Summary = Summary(st, esc)
		return esc
	}
	return nil
}

// Apply flags the state for handoff and records the trigger.
func Apply(st *model.ConversationState, esc *model.Escalation) {
	if esc == nil {
		return
	}
	st.EscalationRequired = true
	if esc.Reason != model.ReasonUpstreamFlag || st.EscalationReason == "" {
		st.EscalationReason = string(esc.Reason)
	}
	st.Escalation.EscalationTriggers = append(st.Escalation.EscalationTriggers, esc.Reason)
	metrics.EscalationsTotal.WithLabelValues(string(esc.Reason), string(esc.Priority)).Inc()
}

// Summary renders the context snapshot in a fixed order: journey and step,
// intent and confidence, reason, failure counts, order and product references.
func Summary(st *model.ConversationState, esc *model.Escalation) string {
	ec := st.Escalation
	parts := []string{
		fmt.Sprintf("journey=%s step=%s", st.Journey, st.Step),
		fmt.Sprintf("intent=%s confidence=%.2f", orDash(st.Intent), st.Confidence),
		fmt.Sprintf("reason=%s", esc.Reason),
	}
	if esc.Detail != "" {
		parts[2] += " (" + esc.Detail + ")"
	}
	parts = append(parts,
		fmt.Sprintf("failures: tool_errors=%d clarification_loops=%d empty_catalog=%d failed_order_lookups=%d empty_knowledge=%d",
			ec.ConsecutiveToolErrors, ec.ClarificationLoops, ec.EmptyCatalogResults, ec.FailedOrderLookups, ec.EmptyKnowledgeResults),
	)
	order := "-"
	if st.OrderID != nil {
		order = *st.OrderID
	}
	parts = append(parts, fmt.Sprintf("order=%s products=%s", order, orDash(strings.Join(productIDs(st), ","))))
	return strings.Join(parts, " | ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// productIDs lists selected then carted product ids without duplicates.
func productIDs(st *model.ConversationState) []string {
	seen := map[string]bool{}
	var out []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range st.SelectedItemIDs {
		add(id)
	}
	for _, c := range st.Cart {
		add(c.ProductID)
	}
	return out
}
