package model

import (
	"time"
)

// InboundMessage is one customer message addressed to a conversation.
type InboundMessage struct {
	TenantID       string `json:"tenant_id"`
	ConversationID string `json:"conversation_id"`
	RequestID      string `json:"request_id"`
	CustomerID     string `json:"customer_id,omitempty"`
	Text           string `json:"text"`
}

// TurnResult is what one processed turn hands back to the channel.
type TurnResult struct {
	ConversationID string      `json:"conversation_id"`
	RequestID      string      `json:"request_id"`
	Response       string      `json:"response"`
	Journey        Journey     `json:"journey"`
	Step           Step        `json:"step"`
	Escalated      bool        `json:"escalated"`
	Escalation     *Escalation `json:"escalation,omitempty"`
	Replayed       bool        `json:"replayed"`
	CostUSD        float64     `json:"cost_usd"`
}

// TurnState stores per-invocation state for the Eino graph.
// All reads/writes happen inside Eino state handlers or compose.ProcessState.
type TurnState struct {
	Inbound    InboundMessage
	StartedAt  time.Time
	Replay     bool
	Created    bool
	Escalation *Escalation
	// Holding is set when a handoff is already open and automation stays paused.
	Holding bool
	// StepFailed is set when the journey restored its turn-start snapshot.
	StepFailed   bool
	Hops         int
	TotalCostUSD float64
}
