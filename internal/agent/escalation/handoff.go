package escalation

import (
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
)

// Payload builds the handoff tool payload for an escalation.
func Payload(st *model.ConversationState, esc *model.Escalation, history []model.HandoffMessage) model.HandoffPayload {
	if history == nil {
		history = []model.HandoffMessage{}
	}
	cartItems := 0
	for _, c := range st.Cart {
		cartItems += c.Quantity
	}
	ctx := model.HandoffContext{
		Summary:             esc.Summary,
		ConversationHistory: history,
		CurrentJourney:      st.Journey,
		CurrentStep:         st.Step,
		OrderID:             st.OrderID,
		ProductIDs:          productIDs(st),
		CartItems:           append([]model.CartItem(nil), st.Cart...),
		ErrorDetails:        append([]model.FailedToolCall(nil), st.Escalation.FailedToolCalls...),
		ConversationMetrics: model.ConversationMetrics{
			TurnCount:             st.TurnCount,
			ConsecutiveToolErrors: st.Escalation.ConsecutiveToolErrors,
			ClarificationLoops:    st.Escalation.ClarificationLoops,
			CartItems:             cartItems,
		},
	}
	return model.HandoffPayload{
		Reason:   esc.Reason,
		Priority: esc.Priority,
		Category: esc.Category,
		Context:  ctx,
	}
}

// HoldingReply is sent while a handoff is open.
func HoldingReply(lang string) string {
	if lang == "th" {
		return "เจ้าหน้าที่ได้รับเรื่องของคุณแล้ว และจะติดต่อกลับโดยเร็วที่สุดค่ะ"
	}
	return "A member of our team has your conversation and will reply here shortly."
}

// HandoffReply confirms a new handoff to the customer.
func HandoffReply(lang string) string {
	if lang == "th" {
		return "ขออภัยในความไม่สะดวกค่ะ กำลังส่งต่อให้เจ้าหน้าที่ดูแล กรุณารอสักครู่นะคะ"
	}
	return "I'm connecting you with a member of our team. They will pick up this conversation shortly."
}
