package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/commerce-bot/internal/core/error"
	logx "github.com/Chative-core-poc-v1/commerce-bot/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const stateNotFoundMessage = "conversation state not found"

// RedisStateStore persists one JSON document per (tenant, conversation) and
// guards writes with WATCH on the stored version.
type RedisStateStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStateStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStateStore {
	return &RedisStateStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStateStore) key(tenantID, conversationID string) string {
	return fmt.Sprintf("%sstate:%s:%s", s.prefix, tenantID, conversationID)
}

func (s *RedisStateStore) Load(ctx context.Context, tenantID, conversationID string) (*model.ConversationState, error) {
	key := s.key(tenantID, conversationID)
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errx.NotFound(stateNotFoundMessage)
	}
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation state from redis")
		return nil, errx.WrapRedis(err)
	}
	return decodeState(raw, tenantID, conversationID)
}

func (s *RedisStateStore) Save(ctx context.Context, st *model.ConversationState) error {
	if err := st.Validate(); err != nil {
		return err
	}
	expected := st.Version
	b, err := encodeState(st, expected+1)
	if err != nil {
		return err
	}
	key := s.key(st.TenantID, st.ConversationID)

	txf := func(tx *redis.Tx) error {
		stored, err := storedVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if stored != expected {
			return errx.Conflict(fmt.Sprintf("conversation state version is %d, expected %d", stored, expected))
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, b, s.ttl)
			return nil
		})
		return err
	}

	err = s.client.Watch(ctx, txf, key)
	switch {
	case err == nil:
		st.Version = expected + 1
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return errx.Conflict("conversation state changed concurrently")
	case errx.KindOf(err) == errx.KindConflict:
		return err
	default:
		logx.Error().Err(err).Str("key", key).Msg("failed to save conversation state to redis")
		return errx.WrapRedis(err)
	}
}

func (s *RedisStateStore) Delete(ctx context.Context, tenantID, conversationID string) error {
	key := s.key(tenantID, conversationID)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete conversation state from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

// storedVersion reads only the version of the stored document; 0 when absent.
func storedVersion(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	raw, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var head struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return 0, errx.New(err, http.StatusInternalServerError, "stored conversation state is corrupt")
	}
	return head.Version, nil
}

func encodeState(st *model.ConversationState, version int64) ([]byte, error) {
	prev := st.Version
	st.Version = version
	b, err := json.Marshal(st)
	st.Version = prev
	if err != nil {
		return nil, fmt.Errorf("marshal conversation state: %w", err)
	}
	return b, nil
}

// decodeState rejects a document whose embedded keys disagree with the lookup keys.
func decodeState(raw []byte, tenantID, conversationID string) (*model.ConversationState, error) {
	var st model.ConversationState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, errx.New(err, http.StatusInternalServerError, "stored conversation state is corrupt")
	}
	if st.TenantID != tenantID || st.ConversationID != conversationID {
		logx.Warn().Str("tenant_id", tenantID).Str("conversation_id", conversationID).
			Msg("Stored conversation state belongs to another scope")
		return nil, errx.TenantIsolation(stateNotFoundMessage)
	}
	st.Normalize()
	if err := st.Validate(); err != nil {
		return nil, errx.New(err, http.StatusInternalServerError, "stored conversation state is invalid")
	}
	return &st, nil
}

// MemoryStateStore keeps serialized documents in process so callers never
// share pointers with the store.
type MemoryStateStore struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{docs: map[string][]byte{}}
}

func (s *MemoryStateStore) Load(_ context.Context, tenantID, conversationID string) (*model.ConversationState, error) {
	s.mu.Lock()
	raw, ok := s.docs[tenantID+"/"+conversationID]
	s.mu.Unlock()
	if !ok {
		return nil, errx.NotFound(stateNotFoundMessage)
	}
	return decodeState(raw, tenantID, conversationID)
}

func (s *MemoryStateStore) Save(_ context.Context, st *model.ConversationState) error {
	if err := st.Validate(); err != nil {
		return err
	}
	k := st.TenantID + "/" + st.ConversationID

	s.mu.Lock()
	defer s.mu.Unlock()
	var stored int64
	if raw, ok := s.docs[k]; ok {
		var head struct {
			Version int64 `json:"version"`
		}
		_ = json.Unmarshal(raw, &head)
		stored = head.Version
	}
	if stored != st.Version {
		return errx.Conflict(fmt.Sprintf("conversation state version is %d, expected %d", stored, st.Version))
	}
	b, err := encodeState(st, st.Version+1)
	if err != nil {
		return err
	}
	s.docs[k] = b
	st.Version++
	return nil
}

func (s *MemoryStateStore) Delete(_ context.Context, tenantID, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, tenantID+"/"+conversationID)
	return nil
}

var (
	_ model.StateStore = (*RedisStateStore)(nil)
	_ model.StateStore = (*MemoryStateStore)(nil)
)
