// Package conversations records the customer-visible transcript and renders
// it for human agents.
package conversations

import (
	"context"
	"strings"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	"github.com/cloudwego/eino/schema"
)

type MessagesManager struct {
	conversationRepo model.ConversationRepository
	maxTurns         int
}

func NewMessagesManager(conversationRepo model.ConversationRepository, config model.ConversationConfig) *MessagesManager {
	return &MessagesManager{
		conversationRepo: conversationRepo,
		maxTurns:         config.HistoryTurns,
	}
}

// RecordTurn appends the inbound message and the reply of one processed turn.
func (cm *MessagesManager) RecordTurn(ctx context.Context, tenantID, conversationID, inbound, reply string) error {
	if strings.TrimSpace(inbound) != "" {
		if err := cm.conversationRepo.AddMessage(ctx, tenantID, conversationID, schema.UserMessage(inbound)); err != nil {
			return err
		}
	}
	if strings.TrimSpace(reply) != "" {
		return cm.conversationRepo.AddMessage(ctx, tenantID, conversationID, schema.AssistantMessage(reply, nil))
	}
	return nil
}

// Transcript returns the most recent turns as handoff history, oldest first.
func (cm *MessagesManager) Transcript(ctx context.Context, tenantID, conversationID string) ([]model.HandoffMessage, error) {
	history, err := cm.conversationRepo.LoadHistory(ctx, tenantID, conversationID)
	if err != nil {
		return nil, err
	}

	recent := trimTail(history.Messages, cm.maxTurns*2)
	out := make([]model.HandoffMessage, 0, len(recent))
	for _, msg := range recent {
		if msg == nil || msg.Content == "" {
			continue
		}
		switch msg.Role {
		case schema.User:
			out = append(out, model.HandoffMessage{Role: "customer", Content: msg.Content})
		case schema.Assistant:
			out = append(out, model.HandoffMessage{Role: "assistant", Content: msg.Content})
		}
	}
	return out, nil
}

// trimTail keeps the last max messages; max <= 0 keeps all.
func trimTail(messages []*schema.Message, max int) []*schema.Message {
	if max <= 0 || len(messages) <= max {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-max:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
