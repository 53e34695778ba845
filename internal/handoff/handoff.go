// Package handoff delivers escalation payloads to the human support queue.
package handoff

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	"github.com/google/uuid"
)

// Ticket is one handoff as it travels to the support queue.
type Ticket struct {
	ID             string               `json:"id"`
	TenantID       string               `json:"tenant_id"`
	ConversationID string               `json:"conversation_id"`
	Payload        model.HandoffPayload `json:"payload"`
	CreatedAt      time.Time            `json:"created_at"`
}

// Publisher hands a conversation over to human agents and returns the ticket id.
type Publisher interface {
	Publish(ctx context.Context, tenantID, conversationID string, payload model.HandoffPayload) (string, error)
}

func newTicket(tenantID, conversationID string, payload model.HandoffPayload) Ticket {
	return Ticket{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		ConversationID: conversationID,
		Payload:        payload,
		CreatedAt:      time.Now().UTC(),
	}
}

func encode(t Ticket) ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal handoff: %w", err)
	}
	return data, nil
}

// MemoryPublisher keeps tickets in process. Used by simulate and tests.
type MemoryPublisher struct {
	mu      sync.Mutex
	tickets []Ticket
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, tenantID, conversationID string, payload model.HandoffPayload) (string, error) {
	t := newTicket(tenantID, conversationID, payload)
	if _, err := encode(t); err != nil {
		return "", err
	}
	p.mu.Lock()
	p.tickets = append(p.tickets, t)
	p.mu.Unlock()
	return t.ID, nil
}

// Tickets returns a copy of everything published so far.
func (p *MemoryPublisher) Tickets() []Ticket {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Ticket, len(p.tickets))
	copy(out, p.tickets)
	return out
}
