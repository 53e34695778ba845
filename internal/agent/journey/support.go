package journey

import (
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/decision"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
)

func supportStart(t *turn) (transition, error) {
	st := t.st
	var out tools.KnowledgeOutput
	resp, err := t.call(tools.KnowledgeSearch, map[string]any{"query": st.IncomingMessage, "limit": 1}, &out)
	if err != nil {
		return transition{}, err
	}
	if !resp.Success {
		st.Respond(kbUnavailableText(t.lang()))
		return stop(model.StepAwaitingFollowup), nil
	}
	if len(out.Articles) == 0 {
		st.Escalation.EmptyKnowledgeResults++
		st.Respond(kbNoAnswerText(t.lang()))
		return stop(model.StepAwaitingFollowup), nil
	}
	st.Escalation.EmptyKnowledgeResults = 0
	st.Respond(kbAnswerText(out.Articles[0]))
	return stop(model.StepAwaitingFollowup), nil
}

func awaitingFollowup(t *turn) (transition, error) {
	return chain(model.StepStart), nil
}

var (
	confirmWords = []string{"yes", "y", "yeah", "yep", "confirm", "sure", "ok", "okay", "ใช่", "ยืนยัน", "ตกลง", "โอเค"}
	declineWords = []string{"no", "n", "nope", "cancel", "keep", "ไม่", "ไม่ใช่", "ยกเลิก"}
)

func governanceStart(t *turn) (transition, error) {
	t.st.Respond(optOutConfirmText(t.lang()))
	return stop(model.StepAwaitingOptOutConfirmation), nil
}

func awaitingOptOutConfirmation(t *turn) (transition, error) {
	st := t.st
	norm := decision.Normalize(st.IncomingMessage)
	if _, ok := decision.HasAnyKeyword(norm, declineWords); ok {
		st.Respond(optOutKeptText(t.lang()))
		return stop(model.StepCompleted), nil
	}
	if _, ok := decision.HasAnyKeyword(norm, confirmWords); !ok {
		st.Escalation.ClarificationLoops++
		st.Respond(optOutConfirmText(t.lang()))
		return stop(model.StepAwaitingOptOutConfirmation), nil
	}
	st.Escalation.ClarificationLoops = 0

	customer := st.CustomerID
	if customer == "" {
		customer = st.ConversationID
	}
	resp, err := t.call(tools.ConsentUpdate, map[string]any{
		"customer_id": customer,
		"channel":     t.m.deps.Channel,
		"opt_in":      false,
	}, nil)
	if err != nil {
		return transition{}, err
	}
	if !resp.Success {
		st.Respond(optOutFailedText(t.lang()))
		return stop(model.StepAwaitingOptOutConfirmation), nil
	}
	st.Respond(optOutDoneText(t.lang()))
	return stop(model.StepCompleted), nil
}

// governanceCompleted returns the conversation to shopping.
func governanceCompleted(t *turn) (transition, error) {
	return transition{Journey: model.JourneySales, Next: model.StepStart, Chain: true}, nil
}
