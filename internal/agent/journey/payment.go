package journey

import (
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
)

func awaitingPayment(t *turn) (transition, error) {
	st := t.st
	if st.PaymentRequestID == nil {
		st.Respond(noPendingPaymentText(t.lang()))
		return stop(model.StepAwaitingPayment), nil
	}
	var out tools.PaymentOutput
	resp, err := t.call(tools.PaymentStatus, map[string]any{"payment_id": *st.PaymentRequestID}, &out)
	if err != nil {
		return transition{}, err
	}
	if !resp.Success {
		st.Respond(paymentCheckFailedText(t.lang()))
		return stop(model.StepAwaitingPayment), nil
	}
	st.PaymentStatus = out.Payment.Status
	switch out.Payment.Status {
	case model.PaymentPaid:
		st.Respond(paymentConfirmedText(t.lang()))
		return stop(model.StepPaymentConfirmed), nil
	case model.PaymentFailed:
		st.Respond(paymentFailedText(t.lang(), out.Payment.URL))
		return stop(model.StepPaymentFailed), nil
	}
	st.Respond(paymentPendingText(t.lang(), out.Payment.URL))
	return stop(model.StepAwaitingPayment), nil
}

// paymentConfirmed hands a paid conversation back to shopping.
func paymentConfirmed(t *turn) (transition, error) {
	return transition{Journey: model.JourneySales, Next: model.StepStart, Chain: true}, nil
}

func paymentFailed(t *turn) (transition, error) {
	return chain(model.StepAwaitingPayment), nil
}
