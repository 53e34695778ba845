package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// StateStore persists ConversationState keyed by (tenant_id, conversation_id).
type StateStore interface {
	// Load returns a NotFound AppError when the conversation has no state yet.
	Load(ctx context.Context, tenantID, conversationID string) (*ConversationState, error)

	// Save writes state if the stored version still equals state.Version, then bumps it.
	Save(ctx context.Context, state *ConversationState) error

	Delete(ctx context.Context, tenantID, conversationID string) error
}

type ConversationRepository interface {
	// AddMessage adds a message to the conversation history
	AddMessage(ctx context.Context, tenantID, conversationID string, message *schema.Message) error

	// LoadHistory retrieves the conversation history
	LoadHistory(ctx context.Context, tenantID, conversationID string) (*ConversationHistory, error)

	// ClearHistory removes all conversation history
	ClearHistory(ctx context.Context, tenantID, conversationID string) error

	// GetMessageCount returns the number of messages in the conversation
	GetMessageCount(ctx context.Context, tenantID, conversationID string) (int, error)
}

// ConversationHistory represents loaded conversation data with metadata.
type ConversationHistory struct {
	ConversationID string
	Messages       []*schema.Message
}
