package conversations

import (
	"context"
	"testing"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriptKeepsRecentTurns(t *testing.T) {
	mm := NewMessagesManager(repo.NewMemoryConversationRepository(0), model.ConversationConfig{HistoryTurns: 2})
	ctx := context.Background()

	require.NoError(t, mm.RecordTurn(ctx, "t1", "c1", "hi", "Hello! What are you looking for?"))
	require.NoError(t, mm.RecordTurn(ctx, "t1", "c1", "laptop", "Here are 5 laptops"))
	require.NoError(t, mm.RecordTurn(ctx, "t1", "c1", "2", ""))

	got, err := mm.Transcript(ctx, "t1", "c1")
	require.NoError(t, err)
	assert.Equal(t, []model.HandoffMessage{
		{Role: "assistant", Content: "Hello! What are you looking for?"},
		{Role: "customer", Content: "laptop"},
		{Role: "assistant", Content: "Here are 5 laptops"},
		{Role: "customer", Content: "2"},
	}, got)

	other, err := mm.Transcript(ctx, "t2", "c1")
	require.NoError(t, err)
	assert.Empty(t, other)
}
