package decision

import (
	"context"
	"fmt"
	"strings"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
)

type IntentInput struct {
	Message        string
	CurrentJourney model.Journey
	CurrentStep    model.Step
}

// journeyKeywords is checked in order; the first journey with a hit wins.
var journeyKeywords = []struct {
	journey model.Journey
	intent  string
	words   []string
}{
	{model.JourneyGovernance, "opt_out", []string{
		"unsubscribe", "opt out", "opt-out", "stop messaging", "stop sending", "delete my data", "privacy",
		"ยกเลิกรับข่าวสาร", "เลิกส่ง", "ลบข้อมูล",
	}},
	{model.JourneyOrders, "order_status", []string{
		"my order", "order status", "track", "tracking", "where is my", "delivery status", "order id",
		"ออเดอร์", "คำสั่งซื้อ", "พัสดุ", "เลขพัสดุ",
	}},
	{model.JourneyPayment, "payment", []string{
		"pay", "payment", "paid", "promptpay", "pay now", "checkout",
		"ชำระ", "จ่ายเงิน", "โอนเงิน", "โอนแล้ว",
	}},
	{model.JourneySupport, "support_question", []string{
		"return", "refund", "warranty", "shipping", "ship", "delivery", "policy", "exchange",
		"คืนสินค้า", "คืนเงิน", "ประกัน", "จัดส่ง", "ส่งกี่วัน",
	}},
	{model.JourneySales, "product_search", []string{
		"buy", "looking for", "show", "want", "need", "price", "recommend", "sell", "products", "catalog",
		"phone", "smartphone", "laptop", "notebook", "computer", "headphones", "earbuds",
		"ซื้อ", "อยากได้", "หา", "ราคา", "แนะนำ", "สินค้า", "มือถือ", "โทรศัพท์", "โน้ตบุ๊ค", "คอม", "หูฟัง",
	}},
}

var shortReplies = []string{
	"yes", "no", "ok", "okay", "sure", "thanks", "thank you", "that one", "this one",
	"ใช่", "ไม่", "โอเค", "ตกลง", "ขอบคุณ", "เอา",
}

func intentNode() node[IntentInput, model.IntentDecision] {
	return node[IntentInput, model.IntentDecision]{
		name:     "intent",
		prompt:   prompts.Intent,
		required: []string{"journey", "intent", "confidence"},
		vars: func(in IntentInput) map[string]any {
			return map[string]any{
				"Message":        in.Message,
				"CurrentJourney": in.CurrentJourney,
				"CurrentStep":    in.CurrentStep,
			}
		},
		check:     checkIntent,
		heuristic: IntentHeuristic,
	}
}

func checkIntent(in IntentInput, d model.IntentDecision) (model.IntentDecision, error) {
	if !d.Journey.Valid() {
		return d, fmt.Errorf("unknown journey %q", d.Journey)
	}
	if isShortReply(in.Message) && in.CurrentJourney.Valid() {
		d.Journey = in.CurrentJourney
	}
	if d.Confidence < 0 {
		d.Confidence = 0
	}
	if d.Confidence > 1 {
		d.Confidence = 1
	}
	if strings.TrimSpace(d.Intent) == "" {
		d.Intent = "unknown"
	}
	if d.Language != "th" && d.Language != "en" {
		d.Language = DetectLanguage(in.Message)
	}
	return d, nil
}

// isShortReply is a bare number or an acknowledgement, which never switches journeys.
func isShortReply(msg string) bool {
	w := words(msg)
	if len(w) == 0 {
		return true
	}
	if len(w) == 1 && isDigits(w[0]) {
		return true
	}
	norm := Normalize(msg)
	for _, s := range shortReplies {
		if strings.TrimSpace(norm) == strings.TrimSpace(Normalize(s)) {
			return true
		}
	}
	return false
}

// IntentHeuristic routes by keyword and keeps the current journey otherwise.
func IntentHeuristic(in IntentInput) model.IntentDecision {
	current := in.CurrentJourney
	if !current.Valid() {
		current = model.JourneySales
	}
	d := model.IntentDecision{
		Journey:    current,
		Intent:     "continue",
		Confidence: 0.5,
		Language:   DetectLanguage(in.Message),
		Reasoning:  "short reply continues the current journey",
	}
	if isShortReply(in.Message) {
		return d
	}
	norm := Normalize(in.Message)
	for _, jk := range journeyKeywords {
		if kw, ok := HasAnyKeyword(norm, jk.words); ok {
			d.Journey = jk.journey
			d.Intent = jk.intent
			d.Confidence = 0.7
			d.Reasoning = fmt.Sprintf("keyword %q", kw)
			return d
		}
	}
	d.Intent = "unknown"
	d.Confidence = 0.3
	d.Reasoning = "no routing keyword, staying in the current journey"
	return d
}

func (e *Engine) Intent(ctx context.Context, tenantID string, in IntentInput) Outcome[model.IntentDecision] {
	return intentNode().decide(ctx, e, tenantID, in)
}
