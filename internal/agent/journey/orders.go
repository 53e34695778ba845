package journey

import (
	"regexp"
	"strings"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
)

var orderRefPattern = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`)

func orderReference(msg string) string {
	return strings.ToLower(orderRefPattern.FindString(msg))
}

func ordersStart(t *turn) (transition, error) {
	st := t.st
	if ref := orderReference(st.IncomingMessage); ref != "" {
		t.orderRef = ref
		return chain(model.StepOrderLookup), nil
	}
	if st.OrderID != nil {
		t.orderRef = *st.OrderID
		return chain(model.StepOrderLookup), nil
	}
	st.Respond(askOrderRefText(t.lang()))
	return stop(model.StepAwaitingOrderReference), nil
}

func awaitingOrderReference(t *turn) (transition, error) {
	st := t.st
	ref := orderReference(st.IncomingMessage)
	if ref == "" {
		st.Escalation.ClarificationLoops++
		st.Respond(askOrderRefText(t.lang()))
		return stop(model.StepAwaitingOrderReference), nil
	}
	st.Escalation.ClarificationLoops = 0
	t.orderRef = ref
	return chain(model.StepOrderLookup), nil
}

func orderLookup(t *turn) (transition, error) {
	st := t.st
	if t.orderRef == "" {
		return chain(model.StepStart), nil
	}
	var out tools.OrderOutput
	resp, err := t.call(tools.OrderLookup, map[string]any{"order_id": t.orderRef}, &out)
	if err != nil {
		return transition{}, err
	}
	if !resp.Success {
		if isNotFound(resp.ErrorCode) {
			st.Escalation.FailedOrderLookups++
			st.Respond(orderNotFoundText(t.lang()))
		} else {
			st.Respond(orderLookupFailedText(t.lang()))
		}
		return stop(model.StepAwaitingOrderReference), nil
	}
	st.Escalation.FailedOrderLookups = 0
	st.Respond(orderStatusText(t.lang(), out.Order))
	return stop(model.StepOrderStatusShown), nil
}

// orderStatusShown treats the next message as a new lookup request.
func orderStatusShown(t *turn) (transition, error) {
	return chain(model.StepStart), nil
}
