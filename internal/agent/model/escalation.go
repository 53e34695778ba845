package model

// FailedToolCallWindow bounds EscalationContext.FailedToolCalls.
const FailedToolCallWindow = 5

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type EscalationReason string

const (
	ReasonExplicitRequest    EscalationReason = "explicit_request"
	ReasonPaymentDispute     EscalationReason = "payment_dispute"
	ReasonUpstreamFlag       EscalationReason = "upstream_flag"
	ReasonRepeatedFailures   EscalationReason = "repeated_failures"
	ReasonSensitiveContent   EscalationReason = "sensitive_content"
	ReasonUserFrustration    EscalationReason = "user_frustration"
	ReasonMissingInformation EscalationReason = "missing_information"
)

// FailedToolCall is one entry of the recent-failures window.
type FailedToolCall struct {
	Tool      string `json:"tool"`
	ErrorCode string `json:"error_code"`
	Error     string `json:"error"`
	Step      Step   `json:"step"`
}

// EscalationContext tracks failure signals for one conversation.
// Counters only reset on a success of the same kind.
type EscalationContext struct {
	ConsecutiveToolErrors int                `json:"consecutive_tool_errors"`
	ClarificationLoops    int                `json:"clarification_loops"`
	FailedToolCalls       []FailedToolCall   `json:"failed_tool_calls"`
	EscalationTriggers    []EscalationReason `json:"escalation_triggers"`
	EmptyCatalogResults   int                `json:"empty_catalog_results"`
	FailedOrderLookups    int                `json:"failed_order_lookups"`
	EmptyKnowledgeResults int                `json:"empty_knowledge_results"`
}

// RecordToolFailure increments the consecutive error counter and appends to the window.
func (e *EscalationContext) RecordToolFailure(f FailedToolCall) {
	e.ConsecutiveToolErrors++
	e.FailedToolCalls = append(e.FailedToolCalls, f)
	if n := len(e.FailedToolCalls); n > FailedToolCallWindow {
		e.FailedToolCalls = append([]FailedToolCall(nil), e.FailedToolCalls[n-FailedToolCallWindow:]...)
	}
}

// RecordToolSuccess resets the consecutive error counter.
func (e *EscalationContext) RecordToolSuccess() {
	e.ConsecutiveToolErrors = 0
}

// Reset clears every counter after a human hands the conversation back.
func (e *EscalationContext) Reset() {
	triggers := e.EscalationTriggers
	*e = EscalationContext{EscalationTriggers: triggers}
}

// Escalation is the deterministic outcome of a matched rule.
type Escalation struct {
	Reason   EscalationReason `json:"reason"`
	Priority Priority         `json:"priority"`
	Category string           `json:"category"`
	Summary  string           `json:"summary"`
	Detail   string           `json:"detail,omitempty"`
}

// HandoffMessage is one entry of the handoff conversation history.
type HandoffMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConversationMetrics summarises the conversation for the human agent.
type ConversationMetrics struct {
	TurnCount             int `json:"turn_count"`
	ConsecutiveToolErrors int `json:"consecutive_tool_errors"`
	ClarificationLoops    int `json:"clarification_loops"`
	CartItems             int `json:"cart_items"`
}

type HandoffContext struct {
	Summary             string              `json:"summary"`
	ConversationHistory []HandoffMessage    `json:"conversation_history"`
	CurrentJourney      Journey             `json:"current_journey"`
	CurrentStep         Step                `json:"current_step"`
	OrderID             *string             `json:"order_id,omitempty"`
	ProductIDs          []string            `json:"product_ids,omitempty"`
	CartItems           []CartItem          `json:"cart_items,omitempty"`
	ErrorDetails        []FailedToolCall    `json:"error_details,omitempty"`
	ConversationMetrics ConversationMetrics `json:"conversation_metrics"`
}

// HandoffPayload is handed to the handoff tool verbatim.
type HandoffPayload struct {
	Reason   EscalationReason `json:"reason"`
	Priority Priority         `json:"priority"`
	Category string           `json:"category"`
	Context  HandoffContext   `json:"context"`
}
