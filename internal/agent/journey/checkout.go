package journey

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
)

// cartKey identifies one cart revision. It is the order idempotency marker.
func cartKey(conversationID string, revision int, items []model.CartItem) string {
	b, err := json.Marshal(struct {
		Conversation string           `json:"conversation"`
		Revision     int              `json:"revision"`
		Items        []model.CartItem `json:"items"`
	}{conversationID, revision, items})
	if err != nil {
		panic(fmt.Sprintf("cart key: %v", err))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func readyForOrder(t *turn) (transition, error) {
	st := t.st
	if len(st.Cart) == 0 {
		return chain(model.StepStart), nil
	}
	key := cartKey(st.ConversationID, st.CartRevision, st.Cart)
	if st.OrderID != nil && st.OrderCartKey != nil && *st.OrderCartKey == key {
		t.log.Debug().Str("order_id", *st.OrderID).Msg("Order already exists for this cart")
		return chain(model.StepOrderCreated), nil
	}

	args := map[string]any{"idempotency_key": key, "items": st.Cart}
	if st.CustomerID != "" {
		args["customer_id"] = st.CustomerID
	}
	var out tools.OrderOutput
	resp, err := t.call(tools.OrderCreate, args, &out)
	if err != nil {
		return transition{}, err
	}
	if !resp.Success {
		st.Respond(orderFailedText(t.lang(), resp.ErrorCode))
		return stop(model.StepReadyForOrder), nil
	}
	st.OrderID = model.Ptr(out.Order.ID)
	st.OrderCartKey = model.Ptr(key)
	totals := out.Order.Totals
	st.OrderTotals = &totals
	t.log.Info().Str("order_id", out.Order.ID).Bool("created", out.Created).Float64("total", totals.Total).Msg("Order ready")
	return chain(model.StepOrderCreated), nil
}

// orderCreated applies the best offer. A failed offer lookup does not block
// checkout.
func orderCreated(t *turn) (transition, error) {
	st := t.st
	if st.OrderID == nil {
		return chain(model.StepReadyForOrder), nil
	}
	var out tools.OfferOutput
	resp, err := t.call(tools.OffersApply, map[string]any{"order_id": *st.OrderID}, &out)
	if err != nil {
		return transition{}, err
	}
	var offer *model.Offer
	if resp.Success {
		totals := out.Order.Totals
		st.OrderTotals = &totals
		offer = out.Offer
	}
	if st.OrderTotals != nil {
		st.Respond(orderTotalText(t.lang(), *st.OrderID, *st.OrderTotals, offer))
	}
	return chain(model.StepOffersHandled), nil
}

func offersHandled(t *turn) (transition, error) {
	return chain(model.StepPaymentRouting), nil
}

func paymentRouting(t *turn) (transition, error) {
	st := t.st
	if st.OrderID == nil {
		return chain(model.StepReadyForOrder), nil
	}
	var out tools.PaymentOutput
	resp, err := t.call(tools.PaymentCreate, map[string]any{"order_id": *st.OrderID}, &out)
	if err != nil {
		return transition{}, err
	}
	if !resp.Success {
		st.Respond(paymentUnavailableText(t.lang()))
		return stop(model.StepPaymentRouting), nil
	}
	st.PaymentRequestID = model.Ptr(out.Payment.ID)
	st.PaymentURL = model.Ptr(out.Payment.URL)
	st.PaymentStatus = out.Payment.Status
	st.Respond(paymentLinkText(t.lang(), out.Payment.URL))
	return transition{Journey: model.JourneyPayment, Next: model.StepAwaitingPayment}, nil
}
