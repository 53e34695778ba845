package repo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	errx "github.com/Chative-core-poc-v1/commerce-bot/internal/core/error"
	logx "github.com/Chative-core-poc-v1/commerce-bot/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serializes turns of one conversation. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, tenantID, conversationID string) (func(), error)
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

// ConversationLocker is an in-process lock per conversation. Entries are
// reference counted and dropped when the last holder or waiter leaves.
// When remote is set it is taken after the local lock, so one process
// never competes with itself in Redis.
type ConversationLocker struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
	remote  Locker
}

func NewConversationLocker(remote Locker) *ConversationLocker {
	return &ConversationLocker{entries: map[string]*lockEntry{}, remote: remote}
}

func (l *ConversationLocker) Lock(ctx context.Context, tenantID, conversationID string) (func(), error) {
	k := tenantID + "/" + conversationID

	l.mu.Lock()
	e, ok := l.entries[k]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		l.entries[k] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(k, e, false)
		return nil, errx.Upstream(ctx.Err(), "conversation lock wait cancelled")
	}

	unlockRemote := func() {}
	if l.remote != nil {
		u, err := l.remote.Lock(ctx, tenantID, conversationID)
		if err != nil {
			l.release(k, e, true)
			return nil, err
		}
		unlockRemote = u
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			unlockRemote()
			l.release(k, e, true)
		})
	}, nil
}

func (l *ConversationLocker) release(k string, e *lockEntry, held bool) {
	if held {
		<-e.ch
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, k)
	}
}

// size is the number of live entries.
func (l *ConversationLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// unlockScript deletes the key only while it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the TTL only while the key still holds our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker is a cross-process lock: SET NX with a random token and a TTL,
// renewed while held and released by a token-checked delete.
type RedisLocker struct {
	rdb    redisLockClient
	prefix string
	ttl    time.Duration
	retry  time.Duration
	renew  time.Duration
}

type redisLockClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
}

func NewRedisLocker(rdb redisLockClient, prefix string, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{rdb: rdb, prefix: prefix, ttl: ttl, retry: 50 * time.Millisecond, renew: ttl / 3}
}

func (l *RedisLocker) key(tenantID, conversationID string) string {
	return fmt.Sprintf("%slock:%s:%s", l.prefix, tenantID, conversationID)
}

// Lock polls until the key is acquired, ctx ends, or one TTL has passed.
// A held key is renewed every ttl/3 until the returned func is called.
func (l *RedisLocker) Lock(ctx context.Context, tenantID, conversationID string) (func(), error) {
	key := l.key(tenantID, conversationID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.ttl)

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to acquire conversation lock")
			return nil, errx.WrapRedis(err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, errx.Conflict("conversation is locked by another turn")
		}
		t := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, errx.Upstream(ctx.Err(), "conversation lock wait cancelled")
		case <-t.C:
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// The turn's ctx may already be done; release on a fresh one.
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := unlockScript.Run(rctx, l.rdb, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				logx.Warn().Err(err).Str("key", key).Msg("failed to release conversation lock")
			}
		})
	}, nil
}

// keepAlive pushes the key's expiry out by one TTL on every tick. It stops
// when released or when the key no longer carries token.
func (l *RedisLocker) keepAlive(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	tick := time.NewTicker(l.renew)
	defer tick.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tick.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), l.renew)
		n, err := renewScript.Run(ctx, l.rdb, []string{key}, token, l.ttl.Milliseconds()).Int()
		cancel()
		if err != nil {
			logx.Warn().Err(err).Str("key", key).Msg("failed to renew conversation lock")
			continue
		}
		if n == 0 {
			logx.Warn().Str("key", key).Msg("conversation lock expired while held")
			return
		}
	}
}

var (
	_ Locker = (*ConversationLocker)(nil)
	_ Locker = (*RedisLocker)(nil)
)
