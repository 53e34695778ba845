package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/commerce-bot/internal/core/error"
	logx "github.com/Chative-core-poc-v1/commerce-bot/pkg/logger"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
)

// RedisConversationRepository keeps the message transcript of each conversation
// as a Redis list. The transcript is what a human agent sees on handoff.
type RedisConversationRepository struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
	// maxMessages trims the list from the head; zero keeps everything.
	maxMessages int
}

func NewRedisConversationRepository(rdb redis.Cmdable, prefix string, ttl time.Duration, maxMessages int) *RedisConversationRepository {
	return &RedisConversationRepository{rdb: rdb, prefix: prefix, ttl: ttl, maxMessages: maxMessages}
}

func (r *RedisConversationRepository) conversationKey(tenantID, conversationID string) string {
	return fmt.Sprintf("%sconversation:%s:%s:messages", r.prefix, tenantID, conversationID)
}

func (r *RedisConversationRepository) AddMessage(ctx context.Context, tenantID, conversationID string, message *schema.Message) error {
	b, err := json.Marshal(message)
	if err != nil {
		logx.Error().Err(err).Str("conversationID", conversationID).Msg("failed to marshal message")
		return fmt.Errorf("marshal message: %w", err)
	}
	key := r.conversationKey(tenantID, conversationID)

	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, key, b)
		if r.maxMessages > 0 {
			p.LTrim(ctx, key, int64(-r.maxMessages), -1)
		}
		// extend TTL on touch
		if r.ttl > 0 {
			p.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push message to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisConversationRepository) LoadHistory(ctx context.Context, tenantID, conversationID string) (*model.ConversationHistory, error) {
	key := r.conversationKey(tenantID, conversationID)

	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &model.ConversationHistory{ConversationID: conversationID, Messages: []*schema.Message{}}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation history from redis")
		return nil, errx.WrapRedis(err)
	}

	msgs := make([]*schema.Message, 0, len(rows))
	for i, s := range rows {
		var m schema.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logx.Error().Err(err).Str("conversationID", conversationID).Int("index", i).Msg("failed to unmarshal message")
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		msgs = append(msgs, &m)
	}
	return &model.ConversationHistory{ConversationID: conversationID, Messages: msgs}, nil
}

func (r *RedisConversationRepository) ClearHistory(ctx context.Context, tenantID, conversationID string) error {
	key := r.conversationKey(tenantID, conversationID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete conversation history from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisConversationRepository) GetMessageCount(ctx context.Context, tenantID, conversationID string) (int, error) {
	key := r.conversationKey(tenantID, conversationID)
	n, err := r.rdb.LLen(ctx, key).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to get message count from redis")
		return 0, errx.WrapRedis(err)
	}
	return int(n), nil
}

// MemoryConversationRepository is the in-process transcript used by the
// simulator and tests.
type MemoryConversationRepository struct {
	mu          sync.Mutex
	maxMessages int
	messages    map[string][]*schema.Message
}

func NewMemoryConversationRepository(maxMessages int) *MemoryConversationRepository {
	return &MemoryConversationRepository{maxMessages: maxMessages, messages: map[string][]*schema.Message{}}
}

func (r *MemoryConversationRepository) AddMessage(_ context.Context, tenantID, conversationID string, message *schema.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := tenantID + "/" + conversationID
	msgs := append(r.messages[k], message)
	if r.maxMessages > 0 && len(msgs) > r.maxMessages {
		msgs = msgs[len(msgs)-r.maxMessages:]
	}
	r.messages[k] = msgs
	return nil
}

func (r *MemoryConversationRepository) LoadHistory(_ context.Context, tenantID, conversationID string) (*model.ConversationHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	src := r.messages[tenantID+"/"+conversationID]
	msgs := make([]*schema.Message, len(src))
	copy(msgs, src)
	return &model.ConversationHistory{ConversationID: conversationID, Messages: msgs}, nil
}

func (r *MemoryConversationRepository) ClearHistory(_ context.Context, tenantID, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.messages, tenantID+"/"+conversationID)
	return nil
}

func (r *MemoryConversationRepository) GetMessageCount(_ context.Context, tenantID, conversationID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages[tenantID+"/"+conversationID]), nil
}

var (
	_ model.ConversationRepository = (*RedisConversationRepository)(nil)
	_ model.ConversationRepository = (*MemoryConversationRepository)(nil)
)
